package telemetry

import "testing"

func hasBookmark(bms []Bookmark, typ BookmarkType) bool {
	for _, bm := range bms {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_FeedingBreakthrough(t *testing.T) {
	bd := NewBookmarkDetector(10)
	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEnd: float64(i * 10), Bacteria: 100, FoodEaten: 20})
	}

	bms := bd.Check(WindowStats{WindowEnd: 50, Bacteria: 100, FoodEaten: 60})
	if !hasBookmark(bms, BookmarkFeedingBreakthrough) {
		t.Errorf("got %v, want feeding_breakthrough", bms)
	}
}

func TestBookmarkDetector_BacteriaCrash(t *testing.T) {
	bd := NewBookmarkDetector(10)
	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEnd: float64(i * 10), Bacteria: 100, Predators: 10})
	}

	bms := bd.Check(WindowStats{WindowEnd: 50, Bacteria: 50, Predators: 10})
	if !hasBookmark(bms, BookmarkBacteriaCrash) {
		t.Errorf("got %v, want bacteria_crash", bms)
	}
	// the peak resets to the crashed level
	if bms := bd.Check(WindowStats{WindowEnd: 60, Bacteria: 45, Predators: 10}); hasBookmark(bms, BookmarkBacteriaCrash) {
		t.Error("crash reported twice")
	}
}

func TestBookmarkDetector_PredatorRecovery(t *testing.T) {
	bd := NewBookmarkDetector(10)
	for i := 0; i < 3; i++ {
		bd.Check(WindowStats{WindowEnd: float64(i * 10), Bacteria: 100, Predators: 2})
	}

	bms := bd.Check(WindowStats{WindowEnd: 30, Bacteria: 100, Predators: 10})
	if !hasBookmark(bms, BookmarkPredatorRecovery) {
		t.Errorf("got %v, want predator_recovery", bms)
	}
}

func TestBookmarkDetector_PredatorExtinction(t *testing.T) {
	bd := NewBookmarkDetector(10)
	bd.Check(WindowStats{WindowEnd: 0, Bacteria: 100, Predators: 5})

	if bms := bd.Check(WindowStats{WindowEnd: 10, Bacteria: 120}); !hasBookmark(bms, BookmarkPredatorExtinction) {
		t.Errorf("got %v, want predator_extinction", bms)
	}
	if bms := bd.Check(WindowStats{WindowEnd: 20, Bacteria: 120}); hasBookmark(bms, BookmarkPredatorExtinction) {
		t.Error("extinction reported twice")
	}
}

func TestBookmarkDetector_StableEcosystem(t *testing.T) {
	bd := NewBookmarkDetector(10)
	fired := -1
	for i := 0; i < 10; i++ {
		bms := bd.Check(WindowStats{WindowEnd: float64(i * 10), Bacteria: 100, Predators: 20})
		if hasBookmark(bms, BookmarkStableEcosystem) {
			if fired >= 0 {
				t.Fatalf("stable_ecosystem fired at windows %d and %d", fired, i)
			}
			fired = i
		}
	}
	// four windows of history are needed before counting starts
	if fired != 8 {
		t.Errorf("stable_ecosystem fired at window %d, want 8", fired)
	}
}

func TestBookmarkDetector_NoHistoryNoBookmarks(t *testing.T) {
	bd := NewBookmarkDetector(3)
	if bms := bd.Check(WindowStats{Bacteria: 0, Predators: 0}); len(bms) != 0 {
		t.Errorf("first window produced %v", bms)
	}
}
