package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkThinkBacklog     BookmarkType = "think_backlog"
	BookmarkLatencySpike     BookmarkType = "latency_spike"
	BookmarkPathFailures     BookmarkType = "path_failures"
	BookmarkInvariant        BookmarkType = "invariant_incident"
	BookmarkPreyCrash        BookmarkType = "prey_crash"
	BookmarkPredatorRecovery BookmarkType = "predator_recovery"
	BookmarkStableEcosystem  BookmarkType = "stable_ecosystem"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        int32        `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector flags windows where the scheduler or the population did
// something worth looking at.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	recentPredMin      int // minimum predator count in recent history
	recentPreyPeak     int // peak prey count in recent history
	stableWindowsCount int // consecutive windows with stable populations
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for stable ecosystem detection
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark
	add := func(b *Bookmark) {
		if b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	// Incidents need no history
	add(bd.checkInvariant(stats))
	add(bd.checkPathFailures(stats))

	if bd.historyFull || bd.historyIdx > 0 {
		add(bd.checkThinkBacklog(stats))
		add(bd.checkLatencySpike(stats))
		add(bd.checkPredatorRecovery(stats))
		add(bd.checkPreyCrash(stats))
		add(bd.checkStableEcosystem(stats))
	}

	bd.addToHistory(stats)

	// Track predator minimum and prey peak
	if stats.Predators < bd.recentPredMin || bd.recentPredMin == 0 {
		bd.recentPredMin = stats.Predators
	}
	if prey := stats.Prey(); prey > bd.recentPreyPeak {
		bd.recentPreyPeak = prey
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkInvariant(stats WindowStats) *Bookmark {
	if stats.InvariantIncidents == 0 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkInvariant,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("%d invariant violations tolerated this window", stats.InvariantIncidents),
	}
}

func (bd *BookmarkDetector) checkPathFailures(stats WindowStats) *Bookmark {
	if stats.PathsSubmitted < 10 {
		return nil
	}
	rate := float64(stats.PathsFailed) / float64(stats.PathsSubmitted)
	if rate <= 0.5 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkPathFailures,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("%.0f%% of %d path searches failed", rate*100, stats.PathsSubmitted),
	}
}

func (bd *BookmarkDetector) checkThinkBacklog(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total int
	for _, h := range history {
		total += h.QueueDepth()
	}
	avg := float64(total) / float64(len(history))

	depth := stats.QueueDepth()
	if depth >= 20 && float64(depth) > avg*2.0 {
		return &Bookmark{
			Type:        BookmarkThinkBacklog,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Think queue at %d, %.1fx average (%.1f)", depth, float64(depth)/max(avg, 1), avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkLatencySpike(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total float64
	for _, h := range history {
		total += h.ThinkLatencyMean
	}
	avg := total / float64(len(history))

	if stats.ThinkLatencyMean >= 2 && stats.ThinkLatencyMean > avg*2.0 {
		return &Bookmark{
			Type: BookmarkLatencySpike,
			Tick: stats.WindowEndTick,
			Description: fmt.Sprintf("Think latency %.1f ticks (max %.0f), average %.2f",
				stats.ThinkLatencyMean, stats.ThinkLatencyMax, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkPredatorRecovery(stats WindowStats) *Bookmark {
	if bd.recentPredMin == 0 || bd.recentPredMin > 3 {
		return nil
	}

	threshold := bd.recentPredMin * 3
	if stats.Predators >= threshold && stats.Predators >= 6 {
		// Reset the minimum after triggering
		oldMin := bd.recentPredMin
		bd.recentPredMin = stats.Predators

		return &Bookmark{
			Type:        BookmarkPredatorRecovery,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Predator population recovered from %d to %d", oldMin, stats.Predators),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkPreyCrash(stats WindowStats) *Bookmark {
	if bd.recentPreyPeak == 0 {
		return nil
	}

	prey := stats.Prey()
	dropPercent := 1.0 - float64(prey)/float64(bd.recentPreyPeak)
	if dropPercent > 0.30 && prey < bd.recentPreyPeak-10 {
		// Reset peak after crash
		oldPeak := bd.recentPreyPeak
		bd.recentPreyPeak = prey

		return &Bookmark{
			Type:        BookmarkPreyCrash,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Prey crashed %.0f%% from peak %d to %d", dropPercent*100, oldPeak, prey),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkStableEcosystem(stats WindowStats) *Bookmark {
	// Need both populations present
	if stats.Prey() < 10 || stats.Predators < 3 {
		bd.stableWindowsCount = 0
		return nil
	}

	history := bd.getHistory()
	if len(history) < 4 {
		return nil
	}
	recent := history[len(history)-4:]

	var preySum, predSum float64
	for _, h := range recent {
		preySum += float64(h.Prey())
		predSum += float64(h.Predators)
	}
	preyMean := preySum / 4
	predMean := predSum / 4

	var preyVar, predVar float64
	for _, h := range recent {
		preyDiff := float64(h.Prey()) - preyMean
		predDiff := float64(h.Predators) - predMean
		preyVar += preyDiff * preyDiff
		predVar += predDiff * predDiff
	}
	preyVar /= 4
	predVar /= 4

	// CV^2 < 0.04 means CV < 0.2
	if preyVar/(preyMean*preyMean) < 0.04 && predVar/(predMean*predMean) < 0.04 {
		bd.stableWindowsCount++
	} else {
		bd.stableWindowsCount = 0
	}

	if bd.stableWindowsCount == 5 { // trigger exactly once at 5 windows
		return &Bookmark{
			Type:        BookmarkStableEcosystem,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Stable ecosystem with %d prey, %d predators over 5+ windows", stats.Prey(), stats.Predators),
		}
	}
	return nil
}
