package systems

import (
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/herd/components"
	"github.com/pthm-cable/herd/config"
)

// TerrainKind is the surface type of a tile.
type TerrainKind uint8

const (
	TerrainGrass TerrainKind = iota
	TerrainWater
	TerrainRock
)

// Terrain is the world layer the actions and the path solver query.
type Terrain interface {
	InBounds(p components.Position) bool
	Walkable(p components.Position) bool
	Drinkable(p components.Position) bool
	Biomass(p components.Position) float32
	// Graze removes up to amount biomass from p and returns what was taken.
	Graze(p components.Position, amount float32) float32
}

// TerrainGrid is a dense tile grid with per-tile grass biomass.
type TerrainGrid struct {
	width, height int32
	kinds         []TerrainKind
	biomass       []float32
	maxBiomass    float32
	regrowth      float32
}

// NewTerrainGrid creates an all-grass grid with full biomass.
func NewTerrainGrid(width, height int, maxBiomass, regrowth float32) *TerrainGrid {
	n := width * height
	t := &TerrainGrid{
		width:      int32(width),
		height:     int32(height),
		kinds:      make([]TerrainKind, n),
		biomass:    make([]float32, n),
		maxBiomass: maxBiomass,
		regrowth:   regrowth,
	}
	for i := range t.biomass {
		t.biomass[i] = maxBiomass
	}
	return t
}

// GenerateTerrain builds a grid from layered simplex noise: low elevation
// becomes water, high elevation rock, the rest grass whose starting biomass
// follows a second moisture field.
func GenerateTerrain(world config.WorldConfig, cfg config.TerrainConfig, seed int64) *TerrainGrid {
	t := NewTerrainGrid(world.Width, world.Height, float32(cfg.MaxBiomass), float32(cfg.RegrowthRate))

	elevNoise := opensimplex.NewNormalized(seed)
	moistNoise := opensimplex.NewNormalized(seed + 1)

	for y := int32(0); y < t.height; y++ {
		for x := int32(0); x < t.width; x++ {
			i := y*t.width + x
			elev := octaveNoise(elevNoise, float64(x), float64(y), cfg.Octaves, cfg.Scale, cfg.Persistence)
			switch {
			case elev < cfg.WaterLevel:
				t.kinds[i] = TerrainWater
				t.biomass[i] = 0
			case elev > cfg.RockLevel:
				t.kinds[i] = TerrainRock
				t.biomass[i] = 0
			default:
				moist := octaveNoise(moistNoise, float64(x), float64(y), 2, cfg.Scale*2, cfg.Persistence)
				t.biomass[i] = float32(moist) * t.maxBiomass
			}
		}
	}
	return t
}

// octaveNoise sums octaves of normalized noise into [0, 1].
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < max(octaves, 1); i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}
	return total / maxVal
}

// Width returns the grid width in tiles.
func (t *TerrainGrid) Width() int32 { return t.width }

// Height returns the grid height in tiles.
func (t *TerrainGrid) Height() int32 { return t.height }

func (t *TerrainGrid) index(p components.Position) int32 {
	return p.Y*t.width + p.X
}

// InBounds reports whether p is on the grid.
func (t *TerrainGrid) InBounds(p components.Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < t.width && p.Y < t.height
}

// Kind returns the surface type at p. Off-grid tiles read as rock.
func (t *TerrainGrid) Kind(p components.Position) TerrainKind {
	if !t.InBounds(p) {
		return TerrainRock
	}
	return t.kinds[t.index(p)]
}

// Set changes the surface type at p.
func (t *TerrainGrid) Set(p components.Position, kind TerrainKind) {
	if !t.InBounds(p) {
		return
	}
	i := t.index(p)
	t.kinds[i] = kind
	if kind != TerrainGrass {
		t.biomass[i] = 0
	}
}

// Walkable reports whether an animal can stand on p.
func (t *TerrainGrid) Walkable(p components.Position) bool {
	return t.Kind(p) == TerrainGrass
}

// Drinkable reports whether p is walkable and touches water.
func (t *TerrainGrid) Drinkable(p components.Position) bool {
	if !t.Walkable(p) {
		return false
	}
	for dy := int32(-1); dy <= 1; dy++ {
		for dx := int32(-1); dx <= 1; dx++ {
			if (dx != 0 || dy != 0) && t.Kind(p.Add(dx, dy)) == TerrainWater {
				return true
			}
		}
	}
	return false
}

// Biomass returns the grass available at p.
func (t *TerrainGrid) Biomass(p components.Position) float32 {
	if !t.InBounds(p) {
		return 0
	}
	return t.biomass[t.index(p)]
}

// SetBiomass overrides the grass at p.
func (t *TerrainGrid) SetBiomass(p components.Position, v float32) {
	if t.Walkable(p) {
		t.biomass[t.index(p)] = v
	}
}

// Graze removes up to amount biomass from p and returns what was taken.
func (t *TerrainGrid) Graze(p components.Position, amount float32) float32 {
	if !t.InBounds(p) {
		return 0
	}
	i := t.index(p)
	taken := min(amount, t.biomass[i])
	t.biomass[i] -= taken
	return taken
}

// Regrow adds one tick of regrowth to every grass tile.
func (t *TerrainGrid) Regrow() {
	if t.regrowth <= 0 {
		return
	}
	for i, k := range t.kinds {
		if k == TerrainGrass && t.biomass[i] < t.maxBiomass {
			t.biomass[i] = min(t.biomass[i]+t.regrowth, t.maxBiomass)
		}
	}
}

// TotalBiomass sums grass over the grid.
func (t *TerrainGrid) TotalBiomass() float64 {
	var sum float64
	for _, b := range t.biomass {
		sum += float64(b)
	}
	return sum
}

// NearestMatch searches rings of growing Chebyshev radius around from and
// returns the first tile accepted by match. Ties within a ring resolve in
// row-major order, which keeps the search deterministic.
func NearestMatch(from components.Position, radius int32, match func(components.Position) bool) (components.Position, bool) {
	if match(from) {
		return from, true
	}
	for r := int32(1); r <= radius; r++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if abs32(dx) != r && abs32(dy) != r {
					continue
				}
				p := from.Add(dx, dy)
				if match(p) {
					return p, true
				}
			}
		}
	}
	return components.Position{}, false
}

// RandomWalkable picks a walkable tile within radius of from, trying a fixed
// number of samples drawn from next. Returns false if none was found.
func RandomWalkable(t Terrain, from components.Position, radius int32, next func(n int) int) (components.Position, bool) {
	if radius < 1 {
		return from, false
	}
	span := int(2*radius + 1)
	for try := 0; try < 16; try++ {
		p := from.Add(int32(next(span))-radius, int32(next(span))-radius)
		if p != from && t.Walkable(p) {
			return p, true
		}
	}
	return from, false
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
