package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pthm-cable/herd/config"
)

// TestOutputManagerDisabled verifies an empty directory disables output.
func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("NewOutputManager(\"\") = %v, %v", om, err)
	}
	if err := om.WriteTelemetry(WindowStats{}); err != nil {
		t.Errorf("nil manager write: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Errorf("nil manager close: %v", err)
	}
}

// TestOutputManagerWrites verifies headers are written once per file.
func TestOutputManagerWrites(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}

	for _, end := range []int32{100, 200} {
		if err := om.WriteTelemetry(WindowStats{WindowEndTick: end, Population: 5}); err != nil {
			t.Fatal(err)
		}
		if err := om.WritePerf(PerfStats{}, end); err != nil {
			t.Fatal(err)
		}
	}
	timings := []SystemTiming{
		{Phase: PhasePlanning, System: SystemPlanner, Duration: 3 * time.Microsecond, Pct: 60},
		{Phase: PhaseActions, System: SystemActions, Duration: 2 * time.Microsecond, Pct: 40},
	}
	if err := om.WriteTimings(200, timings); err != nil {
		t.Fatal(err)
	}
	for _, bm := range []Bookmark{{Type: BookmarkInvariant, Tick: 100}, {Type: BookmarkThinkBacklog, Tick: 200}} {
		if err := om.WriteBookmarks([]Bookmark{bm}); err != nil {
			t.Fatal(err)
		}
	}
	if err := om.WriteConfig(config.Default()); err != nil {
		t.Fatal(err)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		file   string
		header string
		lines  int
	}{
		{"telemetry.csv", "window_end,population", 3},
		{"perf.csv", "window_end,avg_tick_us", 3},
		{"systems.csv", "tick,phase,system,duration_us,pct", 3},
		{"bookmarks.csv", "type,tick,description", 3},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			data, err := os.ReadFile(filepath.Join(dir, tt.file))
			if err != nil {
				t.Fatal(err)
			}
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			if len(lines) != tt.lines {
				t.Errorf("%d lines, want %d", len(lines), tt.lines)
			}
			if !strings.HasPrefix(lines[0], tt.header) {
				t.Errorf("header %q, want prefix %q", lines[0], tt.header)
			}
		})
	}

	if _, err := config.Load(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("written config does not load: %v", err)
	}
}
