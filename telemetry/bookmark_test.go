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

// TestBookmarkDetector feeds a steady history and then one unusual window
// per case, expecting the matching bookmark.
func TestBookmarkDetector(t *testing.T) {
	steady := WindowStats{
		Population:       110,
		Predators:        10,
		QueueNormal:      4,
		ThinkLatencyMean: 0.5,
		PathsSubmitted:   40,
		PathsFailed:      2,
	}

	tests := []struct {
		name   string
		mutate func(*WindowStats)
		want   BookmarkType
	}{
		{"backlog", func(s *WindowStats) { s.QueueNormal = 30; s.QueueLow = 20 }, BookmarkThinkBacklog},
		{"latency", func(s *WindowStats) { s.ThinkLatencyMean = 6; s.ThinkLatencyMax = 12 }, BookmarkLatencySpike},
		{"path failures", func(s *WindowStats) { s.PathsFailed = 30 }, BookmarkPathFailures},
		{"invariant", func(s *WindowStats) { s.InvariantIncidents = 1 }, BookmarkInvariant},
		{"prey crash", func(s *WindowStats) { s.Population = 60 }, BookmarkPreyCrash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bd := NewBookmarkDetector(10)
			for i := range 5 {
				s := steady
				s.WindowEndTick = int32(i * 100)
				if got := bd.Check(s); len(got) != 0 && !hasBookmark(got, BookmarkStableEcosystem) {
					t.Fatalf("steady window %d raised %+v", i, got)
				}
			}

			s := steady
			s.WindowEndTick = 500
			tt.mutate(&s)
			if got := bd.Check(s); !hasBookmark(got, tt.want) {
				t.Errorf("got %+v, want %s", got, tt.want)
			}
		})
	}
}

// TestBookmarkDetector_PredatorRecovery checks a predator rebound from a
// critical low.
func TestBookmarkDetector_PredatorRecovery(t *testing.T) {
	bd := NewBookmarkDetector(10)
	for i := range 3 {
		bd.Check(WindowStats{WindowEndTick: int32(i * 100), Population: 102, Predators: 2})
	}

	got := bd.Check(WindowStats{WindowEndTick: 300, Population: 110, Predators: 10})
	if !hasBookmark(got, BookmarkPredatorRecovery) {
		t.Errorf("got %+v, want predator_recovery", got)
	}
}

// TestBookmarkDetector_StableEcosystem checks that a flat population fires
// the stable bookmark exactly once.
func TestBookmarkDetector_StableEcosystem(t *testing.T) {
	bd := NewBookmarkDetector(10)
	fired := 0
	for i := range 12 {
		got := bd.Check(WindowStats{WindowEndTick: int32(i * 100), Population: 120, Predators: 20})
		if hasBookmark(got, BookmarkStableEcosystem) {
			fired++
		}
	}
	if fired != 1 {
		t.Errorf("stable_ecosystem fired %d times, want 1", fired)
	}
}
