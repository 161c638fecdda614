package telemetry

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// journalBatch bounds rows per INSERT to stay under SQLite's variable limit.
const journalBatch = 500

// OutcomeRecord is one finished action as stored in the journal.
type OutcomeRecord struct {
	RunID       string `db:"run_id"`
	Tick        int32  `db:"tick"`
	Entity      uint32 `db:"entity"`
	Kind        string `db:"kind"`
	State       string `db:"state"`
	StartedTick int32  `db:"started_tick"`
	Retries     int32  `db:"retries"`
	Repaths     int32  `db:"repaths"`
	Requests    int32  `db:"requests"`
	Reason      string `db:"reason"`
}

// StateCount is a per-state outcome total.
type StateCount struct {
	State string `db:"state"`
	Count int    `db:"n"`
}

// Journal appends action outcomes and window stats for one run to SQLite.
// Writes are buffered and committed in one transaction per Flush.
type Journal struct {
	conn    *sqlx.DB
	runID   string
	pending []OutcomeRecord
}

// OpenJournal opens or creates a journal database at path and registers a
// new run with the given seed.
func OpenJournal(path string, seed int64) (*Journal, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	j := &Journal{conn: conn, runID: uuid.New().String()}
	if err := j.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	if _, err := conn.Exec(
		"INSERT INTO runs (id, seed, started_at) VALUES (?, ?, ?)",
		j.runID, seed, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("register run: %w", err)
	}

	slog.Info("journal opened", "path", path, "run_id", j.runID)
	return j, nil
}

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		started_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		entity INTEGER NOT NULL,
		kind TEXT NOT NULL,
		state TEXT NOT NULL,
		started_tick INTEGER NOT NULL,
		retries INTEGER NOT NULL,
		repaths INTEGER NOT NULL,
		requests INTEGER NOT NULL,
		reason TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS windows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		window_end INTEGER NOT NULL,
		population INTEGER NOT NULL,
		thinks INTEGER NOT NULL,
		think_latency_mean REAL NOT NULL,
		forced_replans INTEGER NOT NULL,
		actions_completed INTEGER NOT NULL,
		actions_failed INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_run_tick ON outcomes(run_id, tick);
	`
	_, err := j.conn.Exec(schema)
	return err
}

// RunID returns the id of the run this journal writes to.
func (j *Journal) RunID() string {
	if j == nil {
		return ""
	}
	return j.runID
}

// Record buffers an outcome until the next Flush.
func (j *Journal) Record(r OutcomeRecord) {
	if j == nil {
		return
	}
	r.RunID = j.runID
	j.pending = append(j.pending, r)
}

// Pending returns the number of buffered outcomes.
func (j *Journal) Pending() int {
	if j == nil {
		return 0
	}
	return len(j.pending)
}

// Flush writes buffered outcomes in one transaction.
func (j *Journal) Flush() error {
	if j == nil || len(j.pending) == 0 {
		return nil
	}

	tx, err := j.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for rows := j.pending; len(rows) > 0; {
		n := min(len(rows), journalBatch)
		_, err = tx.NamedExec(`INSERT INTO outcomes
			(run_id, tick, entity, kind, state, started_tick, retries, repaths, requests, reason)
			VALUES (:run_id, :tick, :entity, :kind, :state, :started_tick, :retries, :repaths, :requests, :reason)`,
			rows[:n])
		if err != nil {
			return fmt.Errorf("insert outcomes: %w", err)
		}
		rows = rows[n:]
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	j.pending = j.pending[:0]
	return nil
}

// WriteWindow stores the headline numbers of a telemetry window.
func (j *Journal) WriteWindow(s WindowStats) error {
	if j == nil {
		return nil
	}
	_, err := j.conn.Exec(`INSERT INTO windows
		(run_id, window_end, population, thinks, think_latency_mean, forced_replans, actions_completed, actions_failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		j.runID, s.WindowEndTick, s.Population, s.Thinks, s.ThinkLatencyMean,
		s.ForcedReplans, s.ActionsCompleted, s.ActionsFailed,
	)
	if err != nil {
		return fmt.Errorf("insert window: %w", err)
	}
	return nil
}

// Outcomes returns up to limit stored outcomes of this run, oldest first.
func (j *Journal) Outcomes(limit int) ([]OutcomeRecord, error) {
	var out []OutcomeRecord
	err := j.conn.Select(&out,
		`SELECT run_id, tick, entity, kind, state, started_tick, retries, repaths, requests, reason
		FROM outcomes WHERE run_id = ? ORDER BY id LIMIT ?`,
		j.runID, limit,
	)
	return out, err
}

// StateCounts returns stored outcome totals per state for this run.
func (j *Journal) StateCounts() ([]StateCount, error) {
	var out []StateCount
	err := j.conn.Select(&out,
		"SELECT state, COUNT(*) AS n FROM outcomes WHERE run_id = ? GROUP BY state ORDER BY state",
		j.runID,
	)
	return out, err
}

// Close flushes pending outcomes and closes the database.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	err := j.Flush()
	if cerr := j.conn.Close(); err == nil {
		err = cerr
	}
	return err
}
