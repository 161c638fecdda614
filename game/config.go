package game

import "github.com/pthm-cable/herd/systems"

// Options holds configuration for simulation initialization beyond the
// YAML config: run identity and where output goes.
type Options struct {
	Seed        int64                // RNG and terrain seed
	Solver      systems.PathSolver   // Serial path solver; nil uses pooled A*
	Workers     int                  // Path worker pool size (0 = GOMAXPROCS)
	OutputDir   string               // Directory for CSV logs and config snapshot
	JournalPath string               // SQLite outcome journal (empty = off)
	LogStats    bool                 // Output window stats via slog
	Terrain     *systems.TerrainGrid // Prebuilt terrain; nil generates from config
}

// DefaultOptions returns the default simulation options.
func DefaultOptions() Options {
	return Options{Seed: 42}
}

// Option adjusts Options.
type Option func(*Options)

// WithSeed sets the RNG and terrain seed.
func WithSeed(seed int64) Option {
	return func(o *Options) { o.Seed = seed }
}

// WithPathSolver replaces the pooled A* with solver, run serially.
func WithPathSolver(solver systems.PathSolver) Option {
	return func(o *Options) { o.Solver = solver }
}

// WithWorkers sets the path worker pool size.
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// WithOutputDir enables CSV output into dir.
func WithOutputDir(dir string) Option {
	return func(o *Options) { o.OutputDir = dir }
}

// WithJournal enables the SQLite outcome journal at path.
func WithJournal(path string) Option {
	return func(o *Options) { o.JournalPath = path }
}

// WithLogStats logs every telemetry window.
func WithLogStats(on bool) Option {
	return func(o *Options) { o.LogStats = on }
}

// WithTerrain uses t instead of generating terrain.
func WithTerrain(t *systems.TerrainGrid) Option {
	return func(o *Options) { o.Terrain = t }
}
