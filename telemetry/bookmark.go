package telemetry

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/stat"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkFeedingBreakthrough BookmarkType = "feeding_breakthrough"
	BookmarkPredatorRecovery    BookmarkType = "predator_recovery"
	BookmarkPredatorExtinction  BookmarkType = "predator_extinction"
	BookmarkBacteriaCrash       BookmarkType = "bacteria_crash"
	BookmarkStableEcosystem     BookmarkType = "stable_ecosystem"
)

// Bookmark is an automatically detected moment worth a snapshot.
type Bookmark struct {
	Type        BookmarkType `csv:"type" json:"type"`
	SimTime     float64      `csv:"sim_time" json:"sim_time"`
	Description string       `csv:"description" json:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"sim_time", b.SimTime,
		"description", b.Description,
	)
}

// stableWindows is how many consecutive calm windows make an ecosystem stable.
const stableWindows = 5

// BookmarkDetector watches successive WindowStats for population events.
type BookmarkDetector struct {
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	recentPredMin  int
	recentBactPeak int
	sawPredators   bool
	stableCount    int
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	historySize = max(historySize, stableWindows)
	return &BookmarkDetector{
		history:       make([]WindowStats, historySize),
		historySize:   historySize,
		recentPredMin: -1,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var out []Bookmark
	if bd.historyFull || bd.historyIdx > 0 {
		for _, check := range []func(WindowStats) *Bookmark{
			bd.checkFeedingBreakthrough,
			bd.checkPredatorRecovery,
			bd.checkPredatorExtinction,
			bd.checkBacteriaCrash,
			bd.checkStableEcosystem,
		} {
			if b := check(stats); b != nil {
				out = append(out, *b)
			}
		}
	}

	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}

	if bd.recentPredMin < 0 || stats.Predators < bd.recentPredMin {
		bd.recentPredMin = stats.Predators
	}
	bd.recentBactPeak = max(bd.recentBactPeak, stats.Bacteria)
	if stats.Predators > 0 {
		bd.sawPredators = true
	}
	return out
}

// recent returns the stored windows, oldest first.
func (bd *BookmarkDetector) recent() []WindowStats {
	if !bd.historyFull {
		return bd.history[:bd.historyIdx]
	}
	out := make([]WindowStats, 0, bd.historySize)
	out = append(out, bd.history[bd.historyIdx:]...)
	return append(out, bd.history[:bd.historyIdx]...)
}

func feedingRate(s WindowStats) float64 {
	if s.Bacteria == 0 {
		return 0
	}
	return float64(s.FoodEaten) / float64(s.Bacteria)
}

func (bd *BookmarkDetector) checkFeedingBreakthrough(stats WindowStats) *Bookmark {
	history := bd.recent()
	if len(history) < 3 {
		return nil
	}
	rates := make([]float64, len(history))
	for i, h := range history {
		rates[i] = feedingRate(h)
	}
	avg := stat.Mean(rates, nil)
	cur := feedingRate(stats)
	if avg == 0 || cur <= avg*2 || stats.FoodEaten < 10 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkFeedingBreakthrough,
		SimTime:     stats.WindowEnd,
		Description: fmt.Sprintf("Pellets per bacterium %.2f is %.1fx average (%.2f)", cur, cur/avg, avg),
	}
}

func (bd *BookmarkDetector) checkPredatorRecovery(stats WindowStats) *Bookmark {
	if bd.recentPredMin <= 0 || bd.recentPredMin > 3 {
		return nil
	}
	if stats.Predators < bd.recentPredMin*3 || stats.Predators < 6 {
		return nil
	}
	oldMin := bd.recentPredMin
	bd.recentPredMin = stats.Predators
	return &Bookmark{
		Type:        BookmarkPredatorRecovery,
		SimTime:     stats.WindowEnd,
		Description: fmt.Sprintf("Predators recovered from %d to %d", oldMin, stats.Predators),
	}
}

func (bd *BookmarkDetector) checkPredatorExtinction(stats WindowStats) *Bookmark {
	if !bd.sawPredators || stats.Predators > 0 {
		return nil
	}
	bd.sawPredators = false
	return &Bookmark{
		Type:        BookmarkPredatorExtinction,
		SimTime:     stats.WindowEnd,
		Description: fmt.Sprintf("Predators died out with %d bacteria left", stats.Bacteria),
	}
}

func (bd *BookmarkDetector) checkBacteriaCrash(stats WindowStats) *Bookmark {
	if bd.recentBactPeak == 0 {
		return nil
	}
	drop := 1 - float64(stats.Bacteria)/float64(bd.recentBactPeak)
	if drop <= 0.30 || stats.Bacteria >= bd.recentBactPeak-10 {
		return nil
	}
	oldPeak := bd.recentBactPeak
	bd.recentBactPeak = stats.Bacteria
	return &Bookmark{
		Type:        BookmarkBacteriaCrash,
		SimTime:     stats.WindowEnd,
		Description: fmt.Sprintf("Bacteria crashed %.0f%% from peak %d to %d", drop*100, oldPeak, stats.Bacteria),
	}
}

// checkStableEcosystem fires once when both species have held steady
// (coefficient of variation under 0.2) for stableWindows windows in a row.
func (bd *BookmarkDetector) checkStableEcosystem(stats WindowStats) *Bookmark {
	if stats.Bacteria < 10 || stats.Predators < 3 {
		bd.stableCount = 0
		return nil
	}
	history := bd.recent()
	if len(history) < 4 {
		return nil
	}
	last := history[len(history)-4:]
	bact := make([]float64, len(last))
	pred := make([]float64, len(last))
	for i, h := range last {
		bact[i] = float64(h.Bacteria)
		pred[i] = float64(h.Predators)
	}
	if cv(bact) < 0.2 && cv(pred) < 0.2 {
		bd.stableCount++
	} else {
		bd.stableCount = 0
	}
	if bd.stableCount != stableWindows {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkStableEcosystem,
		SimTime:     stats.WindowEnd,
		Description: fmt.Sprintf("Stable ecosystem with %d bacteria, %d predators", stats.Bacteria, stats.Predators),
	}
}

func cv(xs []float64) float64 {
	mean, std := stat.PopMeanStdDev(xs, nil)
	if mean == 0 {
		return 0
	}
	return std / mean
}
