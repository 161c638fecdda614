package systems

import (
	"testing"

	"github.com/pthm-cable/herd/components"
	"github.com/pthm-cable/herd/config"
)

// TestGenerateTerrainDeterministic verifies the same seed builds the same map.
func TestGenerateTerrainDeterministic(t *testing.T) {
	cfg := config.Default()
	a := GenerateTerrain(cfg.World, cfg.Terrain, 42)
	b := GenerateTerrain(cfg.World, cfg.Terrain, 42)

	for i := range a.kinds {
		if a.kinds[i] != b.kinds[i] || a.biomass[i] != b.biomass[i] {
			t.Fatalf("tile %d differs between runs", i)
		}
	}

	var water, rock, grass int
	for _, k := range a.kinds {
		switch k {
		case TerrainWater:
			water++
		case TerrainRock:
			rock++
		default:
			grass++
		}
	}
	t.Logf("water=%d rock=%d grass=%d", water, rock, grass)
	if grass == 0 {
		t.Error("expected some grass tiles")
	}
}

// TestDrinkable verifies only walkable tiles next to water are drinkable.
func TestDrinkable(t *testing.T) {
	g := NewTerrainGrid(8, 8, 100, 0)
	g.Set(components.Position{X: 4, Y: 4}, TerrainWater)

	tests := []struct {
		pos  components.Position
		want bool
	}{
		{components.Position{X: 3, Y: 3}, true},
		{components.Position{X: 5, Y: 4}, true},
		{components.Position{X: 4, Y: 4}, false}, // water itself
		{components.Position{X: 1, Y: 1}, false},
	}
	for _, tt := range tests {
		if got := g.Drinkable(tt.pos); got != tt.want {
			t.Errorf("Drinkable(%v) = %v, want %v", tt.pos, got, tt.want)
		}
	}
}

// TestGrazeAndRegrow verifies biomass is consumed and regrows to capacity.
func TestGrazeAndRegrow(t *testing.T) {
	g := NewTerrainGrid(2, 2, 10, 3)
	p := components.Position{X: 1, Y: 1}

	if got := g.Graze(p, 4); got != 4 {
		t.Errorf("first bite took %f, want 4", got)
	}
	if got := g.Graze(p, 10); got != 6 {
		t.Errorf("second bite took %f, want 6", got)
	}
	g.Regrow()
	if got := g.Biomass(p); got != 3 {
		t.Errorf("after regrow biomass = %f, want 3", got)
	}
	for i := 0; i < 10; i++ {
		g.Regrow()
	}
	if got := g.Biomass(p); got != 10 {
		t.Errorf("regrowth should cap at 10, got %f", got)
	}
}

// TestNearestMatch verifies ring search finds the closest tile.
func TestNearestMatch(t *testing.T) {
	target := components.Position{X: 6, Y: 2}
	got, ok := NearestMatch(components.Position{X: 2, Y: 2}, 5, func(p components.Position) bool {
		return p == target
	})
	if !ok || got != target {
		t.Errorf("NearestMatch = %v, %v; want %v, true", got, ok, target)
	}

	_, ok = NearestMatch(components.Position{X: 2, Y: 2}, 3, func(p components.Position) bool {
		return p == target
	})
	if ok {
		t.Error("target beyond radius should not be found")
	}
}
