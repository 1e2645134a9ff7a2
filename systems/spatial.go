// Package systems provides the per-substep simulation systems.
package systems

import (
	"math"

	"github.com/pthm-cable/petri/components"
)

// Entry is an object registered in the spatial hash. Index points into the
// substep's agent or food view slice, depending on Kind.
type Entry struct {
	Kind  components.Kind
	Index int
	ID    uint32
	X, Y  float64
	R     float64
}

// SpatialHash is a uniform grid. Each entry is stored in every cell its
// bounding circle overlaps, so a query only has to visit the cells its own
// circle overlaps.
type SpatialHash struct {
	cellSize   float64
	minX, minY float64
	maxX, maxY float64
	cols, rows int
	cells      [][]Entry
	count      int
}

// NewSpatialHash creates a grid covering [minX, maxX] x [minY, maxY].
func NewSpatialHash(minX, minY, maxX, maxY, cellSize float64) *SpatialHash {
	cellSize = math.Max(cellSize, 1)
	cols := max(int(math.Ceil((maxX-minX)/cellSize)), 1)
	rows := max(int(math.Ceil((maxY-minY)/cellSize)), 1)

	cells := make([][]Entry, cols*rows)
	for i := range cells {
		cells[i] = make([]Entry, 0, 4)
	}

	return &SpatialHash{
		cellSize: cellSize,
		minX:     minX,
		minY:     minY,
		maxX:     maxX,
		maxY:     maxY,
		cols:     cols,
		rows:     rows,
		cells:    cells,
	}
}

// Matches reports whether the grid was built with this geometry.
func (h *SpatialHash) Matches(minX, minY, maxX, maxY, cellSize float64) bool {
	return h.minX == minX && h.minY == minY && h.maxX == maxX && h.maxY == maxY &&
		h.cellSize == math.Max(cellSize, 1)
}

// CellSize returns the grid spacing.
func (h *SpatialHash) CellSize() float64 {
	return h.cellSize
}

// Len returns the number of inserted entries.
func (h *SpatialHash) Len() int {
	return h.count
}

// Clear empties all cells, keeping their capacity.
func (h *SpatialHash) Clear() {
	for i := range h.cells {
		h.cells[i] = h.cells[i][:0]
	}
	h.count = 0
}

// cellRange returns the inclusive cell range overlapped by a box, clamped to the grid.
func (h *SpatialHash) cellRange(x0, y0, x1, y1 float64) (c0, r0, c1, r1 int) {
	c0 = h.col(x0)
	c1 = h.col(x1)
	r0 = h.row(y0)
	r1 = h.row(y1)
	return
}

func (h *SpatialHash) col(x float64) int {
	c := int(math.Floor((x - h.minX) / h.cellSize))
	return min(max(c, 0), h.cols-1)
}

func (h *SpatialHash) row(y float64) int {
	r := int(math.Floor((y - h.minY) / h.cellSize))
	return min(max(r, 0), h.rows-1)
}

// Insert adds e to every cell its circle overlaps.
func (h *SpatialHash) Insert(e Entry) {
	c0, r0, c1, r1 := h.cellRange(e.X-e.R, e.Y-e.R, e.X+e.R, e.Y+e.R)
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			idx := r*h.cols + c
			h.cells[idx] = append(h.cells[idx], e)
		}
	}
	h.count++
}

// QueryBall appends every entry registered in a cell overlapping the circle
// (x, y, radius) to dst. The result is a superset of the entries that truly
// intersect the circle; each entry appears once.
func (h *SpatialHash) QueryBall(x, y, radius float64, dst []Entry) []Entry {
	return h.QueryRect(x-radius, y-radius, x+radius, y+radius, dst)
}

// QueryRect appends every entry registered in a cell overlapping the box.
func (h *SpatialHash) QueryRect(x0, y0, x1, y1 float64, dst []Entry) []Entry {
	qc0, qr0, qc1, qr1 := h.cellRange(x0, y0, x1, y1)
	for r := qr0; r <= qr1; r++ {
		for c := qc0; c <= qc1; c++ {
			for _, e := range h.cells[r*h.cols+c] {
				// Report an entry only from the first cell shared by its
				// own range and the query range.
				ec0, er0, _, _ := h.cellRange(e.X-e.R, e.Y-e.R, e.X+e.R, e.Y+e.R)
				if c == max(ec0, qc0) && r == max(er0, qr0) {
					dst = append(dst, e)
				}
			}
		}
	}
	return dst
}

// HashStats summarizes grid occupancy.
type HashStats struct {
	Objects       int
	Cells         int
	OccupiedCells int
	Occupancy     float64
	CellSize      float64
}

// Stats returns occupancy counters.
func (h *SpatialHash) Stats() HashStats {
	occupied := 0
	for _, cell := range h.cells {
		if len(cell) > 0 {
			occupied++
		}
	}
	return HashStats{
		Objects:       h.count,
		Cells:         len(h.cells),
		OccupiedCells: occupied,
		Occupancy:     float64(occupied) / float64(len(h.cells)),
		CellSize:      h.cellSize,
	}
}
