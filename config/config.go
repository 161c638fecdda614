// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	World        WorldConfig        `yaml:"world"`
	Terrain      TerrainConfig      `yaml:"terrain"`
	Spatial      SpatialConfig      `yaml:"spatial"`
	Think        ThinkConfig        `yaml:"think"`
	Safeguard    SafeguardConfig    `yaml:"safeguard"`
	Triggers     TriggersConfig     `yaml:"triggers"`
	Planner      PlannerConfig      `yaml:"planner"`
	Actions      ActionsConfig      `yaml:"actions"`
	Pathfinding  PathfindingConfig  `yaml:"pathfinding"`
	Fear         FearConfig         `yaml:"fear"`
	Reproduction ReproductionConfig `yaml:"reproduction"`
	Spawn        SpawnConfig        `yaml:"spawn"`
	Species      []SpeciesConfig    `yaml:"species"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
	Debug        DebugConfig        `yaml:"debug"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds world dimensions in tiles.
type WorldConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// TerrainConfig holds procedural terrain parameters.
type TerrainConfig struct {
	Scale        float64 `yaml:"scale"`         // Base noise frequency
	Octaves      int     `yaml:"octaves"`       // FBM octaves
	Persistence  float64 `yaml:"persistence"`   // Amplitude multiplier per octave
	WaterLevel   float64 `yaml:"water_level"`   // Elevation below this is water
	RockLevel    float64 `yaml:"rock_level"`    // Elevation above this is rock
	MaxBiomass   float64 `yaml:"max_biomass"`   // Grass capacity per tile
	RegrowthRate float64 `yaml:"regrowth_rate"` // Biomass regrown per tick on grass tiles
}

// SpatialConfig holds spatial index parameters.
type SpatialConfig struct {
	CellSize int `yaml:"cell_size"` // Tiles per cell side
}

// ThinkConfig holds think scheduler parameters.
type ThinkConfig struct {
	Budget           int `yaml:"budget"`             // Planning passes per tick
	DepthLogInterval int `yaml:"depth_log_interval"` // Ticks between queue depth logs (0 = off)
}

// SafeguardConfig holds force-replan safeguard parameters.
type SafeguardConfig struct {
	Interval      int `yaml:"interval"`       // Ticks between sweeps
	IdleThreshold int `yaml:"idle_threshold"` // Idle ticks before a forced replan
}

// TriggersConfig holds trigger thresholds. Needs are on a 0-100 scale.
type TriggersConfig struct {
	FearThreshold     float64 `yaml:"fear_threshold"` // Fear level that, with predators nearby, triggers Urgent
	HungerCritical    float64 `yaml:"hunger_critical"`
	HungerModerate    float64 `yaml:"hunger_moderate"`
	ThirstCritical    float64 `yaml:"thirst_critical"`
	ThirstModerate    float64 `yaml:"thirst_moderate"`
	EnergyCritical    float64 `yaml:"energy_critical"`      // At or below: Urgent
	EnergyLow         float64 `yaml:"energy_low"`           // At or below: Normal
	IdleCheckInterval int     `yaml:"idle_check_interval"`  // Ticks between long-idle evaluations
	LongIdleMin       int     `yaml:"long_idle_min"`        // Floor for the long-idle threshold
	LongIdlePerRadius int     `yaml:"long_idle_per_radius"` // Long idle = wander_radius * this
}

// PlannerConfig holds utility planner parameters.
type PlannerConfig struct {
	SearchRadius       int     `yaml:"search_radius"`        // Tiles searched for food and water
	EatThreshold       float64 `yaml:"eat_threshold"`        // Hunger above which eating is considered
	DrinkThreshold     float64 `yaml:"drink_threshold"`      // Thirst above which drinking is considered
	RestThreshold      float64 `yaml:"rest_threshold"`       // Energy below which resting is considered
	FleeFear           float64 `yaml:"flee_fear"`            // Fear level above which fleeing wins
	WanderUtility      float64 `yaml:"wander_utility"`       // Baseline utility of wandering
	FailureMemoryTicks int     `yaml:"failure_memory_ticks"` // Ticks a failed target is avoided
}

// ActionsConfig holds action state machine parameters.
type ActionsConfig struct {
	MaxPathRetries int     `yaml:"max_path_retries"` // Resubmits after a failed path
	MaxPathWait    int     `yaml:"max_path_wait"`    // Ticks in WaitingForPath before giving up on a request
	MaxRepaths     int     `yaml:"max_repaths"`      // Re-paths while moving (moving targets)
	RepathDistance int     `yaml:"repath_distance"`  // Target drift (tiles) that forces a re-path
	PanicFear      float64 `yaml:"panic_fear"`       // Fear level at which calm actions are not started
	RecentWindow   int     `yaml:"recent_window"`    // Ticks an outcome counts as recent

	Graze GrazeConfig `yaml:"graze"`
	Drink DrinkConfig `yaml:"drink"`
	Rest  RestConfig  `yaml:"rest"`
	Hunt  HuntConfig  `yaml:"hunt"`
	Flee  FleeConfig  `yaml:"flee"`
}

// GrazeConfig holds graze action parameters.
type GrazeConfig struct {
	BaseTicks       int     `yaml:"base_ticks"`
	RichBiomass     float64 `yaml:"rich_biomass"`     // At or above: 1.5x duration
	ModerateBiomass float64 `yaml:"moderate_biomass"` // At or above: 1.0x, below: 0.5x
	MinBiomass      float64 `yaml:"min_biomass"`      // Below this the tile cannot be grazed
	BitePerTick     float64 `yaml:"bite_per_tick"`    // Biomass eaten per executing tick
	Nutrition       float64 `yaml:"nutrition"`        // Hunger removed per unit biomass
}

// DrinkConfig holds drink action parameters.
type DrinkConfig struct {
	Ticks  int     `yaml:"ticks"`
	Amount float64 `yaml:"amount"` // Thirst removed on completion
}

// RestConfig holds rest action parameters.
type RestConfig struct {
	Ticks         int     `yaml:"ticks"`
	EnergyPerTick float64 `yaml:"energy_per_tick"`
}

// HuntConfig holds hunt action parameters.
type HuntConfig struct {
	AbortThirst float64 `yaml:"abort_thirst"` // Own thirst at which the hunt is abandoned
	Meal        float64 `yaml:"meal"`         // Hunger removed by a kill
	Ticks       int     `yaml:"ticks"`        // Attack duration
}

// FleeConfig holds flee action parameters.
type FleeConfig struct {
	Distance int `yaml:"distance"` // Tiles to run from the nearest predator
}

// PathfindingConfig holds path search parameters.
type PathfindingConfig struct {
	PathsPerTick   int `yaml:"paths_per_tick"`   // Requests resolved per tick
	MaxSearchNodes int `yaml:"max_search_nodes"` // A* expansion limit
}

// FearConfig holds fear sensing parameters.
type FearConfig struct {
	GainPerPredator float64 `yaml:"gain_per_predator"` // Fear added per visible predator per tick
	Decay           float64 `yaml:"decay"`             // Fear removed per tick with no predator in range
}

// ReproductionConfig holds reproduction parameters.
type ReproductionConfig struct {
	MaxHunger float64 `yaml:"max_hunger"` // Parents must be below this
	MaxThirst float64 `yaml:"max_thirst"`
	Cost      float64 `yaml:"cost"`       // Hunger added to each parent
}

// SpawnConfig holds the starting state of new animals.
type SpawnConfig struct {
	Hunger   float64 `yaml:"hunger"`
	Thirst   float64 `yaml:"thirst"`
	Energy   float64 `yaml:"energy"`
	Attempts int     `yaml:"attempts"` // Random tiles tried when placing an initial animal
}

// SpeciesConfig defines one animal species.
type SpeciesConfig struct {
	Name          string   `yaml:"name"`
	Predator      bool     `yaml:"predator"`
	Prey          []string `yaml:"prey"`           // Species names this one hunts
	Initial       int      `yaml:"initial"`        // Starting population
	Max           int      `yaml:"max"`            // Population cap
	Speed         float64  `yaml:"speed"`          // Tiles per tick
	HungerRate    float64  `yaml:"hunger_rate"`    // Per tick
	ThirstRate    float64  `yaml:"thirst_rate"`    // Per tick
	EnergyRate    float64  `yaml:"energy_rate"`    // Per tick at rest
	MoveCost      float64  `yaml:"move_cost"`      // Extra energy per tile moved
	WanderRadius  int      `yaml:"wander_radius"`
	SenseRadius   int      `yaml:"sense_radius"`   // Predator/prey detection radius
	MateRadius    int      `yaml:"mate_radius"`
	MaturityAge   int      `yaml:"maturity_age"`   // Ticks
	MaxAge        int      `yaml:"max_age"`        // Ticks (0 = immortal)
	ReproCooldown int      `yaml:"repro_cooldown"` // Ticks between litters
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	WindowTicks         int `yaml:"window_ticks"`          // Ticks per stats window
	PerfCollectorWindow int `yaml:"perf_collector_window"` // Ticks averaged for perf stats
	BookmarkHistory     int `yaml:"bookmark_history"`      // Windows kept for bookmark baselines
}

// DebugConfig holds development switches.
type DebugConfig struct {
	StrictInvariants bool `yaml:"strict_invariants"` // Panic on internal-consistency errors
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	SpeciesIndex map[string]uint8 // name -> index
	PreyMask     []uint64         // per species, bit i set if species i is prey
	LongIdle     []int32          // per species long-idle threshold in ticks
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// Validate rejects values the scheduler cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.World.Width <= 0 || c.World.Height <= 0:
		return fmt.Errorf("config: world size must be positive, got %dx%d", c.World.Width, c.World.Height)
	case c.Spatial.CellSize <= 0:
		return fmt.Errorf("config: spatial.cell_size must be positive, got %d", c.Spatial.CellSize)
	case c.Think.Budget <= 0:
		return fmt.Errorf("config: think.budget must be positive, got %d", c.Think.Budget)
	case c.Safeguard.Interval <= 0:
		return fmt.Errorf("config: safeguard.interval must be positive, got %d", c.Safeguard.Interval)
	case c.Triggers.IdleCheckInterval <= 0:
		return fmt.Errorf("config: triggers.idle_check_interval must be positive, got %d", c.Triggers.IdleCheckInterval)
	case len(c.Species) == 0:
		return fmt.Errorf("config: at least one species is required")
	case len(c.Species) > 64:
		return fmt.Errorf("config: at most 64 species are supported, got %d", len(c.Species))
	}

	seen := make(map[string]struct{}, len(c.Species))
	for _, s := range c.Species {
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("config: duplicate species %q", s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	for _, s := range c.Species {
		for _, p := range s.Prey {
			if _, ok := seen[p]; !ok {
				return fmt.Errorf("config: species %q hunts unknown species %q", s.Name, p)
			}
		}
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.SpeciesIndex = make(map[string]uint8, len(c.Species))
	for i, s := range c.Species {
		c.Derived.SpeciesIndex[s.Name] = uint8(i)
	}

	c.Derived.PreyMask = make([]uint64, len(c.Species))
	c.Derived.LongIdle = make([]int32, len(c.Species))
	for i, s := range c.Species {
		for _, p := range s.Prey {
			c.Derived.PreyMask[i] |= 1 << c.Derived.SpeciesIndex[p]
		}
		idle := s.WanderRadius * c.Triggers.LongIdlePerRadius
		c.Derived.LongIdle[i] = int32(max(idle, c.Triggers.LongIdleMin))
	}
}

// WriteYAML writes the current config to a file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
