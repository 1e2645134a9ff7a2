package neural

import (
	"container/list"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
)

// CacheConfig bounds the stacked-weight cache.
type CacheConfig struct {
	Enabled    bool
	MaxEntries int
	MaxBytes   int64
}

// DefaultCacheConfig matches the shipped parameter defaults.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{Enabled: true, MaxEntries: 64, MaxBytes: 64 << 20}
}

// CacheStats reports cache usage.
type CacheStats struct {
	Entries   int
	Bytes     int64
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// stack holds the weights of a group of same-architecture controllers,
// concatenated along the batch dimension. Layer l weights are laid out as
// (batch, out, in) and biases as (batch, out).
type stack struct {
	key     string
	batch   int
	weights [][]float64
	biases  [][]float64
	bytes   int64
}

// Batch runs inference over groups of controllers that share an architecture.
// It is owned by the engine goroutine and is not safe for concurrent use.
type Batch struct {
	cfg   CacheConfig
	lru   *list.List // front = most recent
	index map[string]*list.Element
	bytes int64
	stats CacheStats
}

// NewBatch creates a batch runner with the given cache bounds.
func NewBatch(cfg CacheConfig) *Batch {
	return &Batch{
		cfg:   cfg,
		lru:   list.New(),
		index: make(map[string]*list.Element),
	}
}

// Configure updates the cache bounds, evicting if the new bounds are tighter.
func (b *Batch) Configure(cfg CacheConfig) {
	b.cfg = cfg
	if !cfg.Enabled {
		b.Clear()
		return
	}
	b.evict()
}

// Clear drops every cached stack.
func (b *Batch) Clear() {
	b.lru.Init()
	clear(b.index)
	b.bytes = 0
}

// Stats returns cache counters.
func (b *Batch) Stats() CacheStats {
	s := b.stats
	s.Entries = b.lru.Len()
	s.Bytes = b.bytes
	return s
}

// ForwardMany returns one output vector per controller. When every controller
// shares the same layer sizes the weights are stacked (and cached); otherwise
// each controller runs Forward on its own.
func (b *Batch) ForwardMany(ctrls []*Controller, inputs [][]float64) [][]float64 {
	if len(ctrls) == 0 {
		return nil
	}
	for _, c := range ctrls[1:] {
		if !SameArchitecture(ctrls[0], c) {
			out := make([][]float64, len(ctrls))
			for i, c := range ctrls {
				out[i] = c.Forward(inputs[i])
			}
			return out
		}
	}

	s := b.lookup(ctrls)
	sizes := ctrls[0].Sizes
	n := len(ctrls)

	// x holds the current layer activations for all agents, row per agent.
	x := make([]float64, n*sizes[0])
	for i := range ctrls {
		copy(x[i*sizes[0]:(i+1)*sizes[0]], inputs[i])
	}

	last := len(sizes) - 2
	for l := 0; l <= last; l++ {
		in, out := sizes[l], sizes[l+1]
		y := make([]float64, n*out)
		copy(y, s.biases[l])
		for i := 0; i < n; i++ {
			blas64.Gemv(blas.NoTrans, 1,
				blas64.General{Rows: out, Cols: in, Stride: in, Data: s.weights[l][i*out*in : (i+1)*out*in]},
				blas64.Vector{N: in, Inc: 1, Data: x[i*in : (i+1)*in]},
				1,
				blas64.Vector{N: out, Inc: 1, Data: y[i*out : (i+1)*out]},
			)
		}
		if l < last {
			for j := range y {
				y[j] = math.Tanh(y[j])
			}
		}
		x = y
	}

	outN := sizes[len(sizes)-1]
	res := make([][]float64, n)
	for i := range res {
		res[i] = x[i*outN : (i+1)*outN : (i+1)*outN]
	}
	return res
}

// cacheKey encodes (sizes, versions) as a string.
func cacheKey(ctrls []*Controller) string {
	var sb strings.Builder
	sb.WriteString(ctrls[0].ArchKey())
	sb.WriteByte('|')
	for i, c := range ctrls {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(c.Version(), 36))
	}
	return sb.String()
}

func (b *Batch) lookup(ctrls []*Controller) *stack {
	if !b.cfg.Enabled {
		return buildStack("", ctrls)
	}
	key := cacheKey(ctrls)
	if el, ok := b.index[key]; ok {
		b.lru.MoveToFront(el)
		b.stats.Hits++
		return el.Value.(*stack)
	}
	b.stats.Misses++
	s := buildStack(key, ctrls)
	b.index[key] = b.lru.PushFront(s)
	b.bytes += s.bytes
	b.evict()
	return s
}

func buildStack(key string, ctrls []*Controller) *stack {
	layers := len(ctrls[0].Weights)
	s := &stack{
		key:     key,
		batch:   len(ctrls),
		weights: make([][]float64, layers),
		biases:  make([][]float64, layers),
	}
	for l := 0; l < layers; l++ {
		w := make([]float64, 0, len(ctrls)*len(ctrls[0].Weights[l]))
		bs := make([]float64, 0, len(ctrls)*len(ctrls[0].Biases[l]))
		for _, c := range ctrls {
			w = append(w, c.Weights[l]...)
			bs = append(bs, c.Biases[l]...)
		}
		s.weights[l] = w
		s.biases[l] = bs
		s.bytes += int64(8 * (len(w) + len(bs)))
	}
	return s
}

// evict drops least recently used stacks until the entry count fits, then,
// if the byte budget is exceeded, until usage is at most 80% of it.
// The most recent entry is never evicted.
func (b *Batch) evict() {
	for b.cfg.MaxEntries > 0 && b.lru.Len() > b.cfg.MaxEntries {
		b.removeOldest()
	}
	if b.cfg.MaxBytes > 0 && b.bytes > b.cfg.MaxBytes {
		target := int64(float64(b.cfg.MaxBytes) * 0.8)
		for b.bytes > target && b.lru.Len() > 1 {
			b.removeOldest()
		}
	}
}

func (b *Batch) removeOldest() {
	el := b.lru.Back()
	if el == nil {
		return
	}
	s := b.lru.Remove(el).(*stack)
	delete(b.index, s.key)
	b.bytes -= s.bytes
	b.stats.Evictions++
}
