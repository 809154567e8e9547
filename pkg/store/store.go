// Package store keeps the history of routing runs in SQLite.
//
// A run is one invocation of the pipeline over a set of tiles with one
// technology and router configuration. Each tile contributes a row with
// its status, statistics and the JSON encoded result, so that `tileroute
// check` and `tileroute runs show` can work from the store alone.
//
// The schema is versioned with golang-migrate; the migrations are
// embedded in the binary and applied by Open.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	tferrors "github.com/matzehuels/tileroute/pkg/errors"
	"github.com/matzehuels/tileroute/pkg/observability"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Tile statuses.
const (
	StatusDone   = "done"
	StatusFatal  = "fatal"
	StatusFailed = "failed"
)

// Run is one pipeline invocation.
type Run struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Label     string    `json:"label,omitempty"`
	TechName  string    `json:"tech"`
	TechHash  string    `json:"tech_hash"`
	// Config is the JSON encoded router configuration.
	Config  string `json:"config"`
	Version string `json:"version,omitempty"`
	Tiles   []Tile `json:"tiles,omitempty"`
}

// Tile is the stored outcome of one tile of a run.
type Tile struct {
	Tile       string        `json:"tile"`
	Status     string        `json:"status"`
	Iterations int           `json:"iterations"`
	Markers    int           `json:"markers"`
	Duration   time.Duration `json:"duration"`
	Cached     bool          `json:"cached"`
	ErrorCode  string        `json:"error_code,omitempty"`
	Error      string        `json:"error,omitempty"`
	// Result is the JSON encoded worker result, empty for failed tiles.
	Result []byte `json:"-"`
}

// Summary is a run with aggregate tile counts, as listed by ListRuns.
type Summary struct {
	Run
	TileCount  int `json:"tile_count"`
	Failed     int `json:"failed"`
	MarkerSum  int `json:"markers"`
	CachedHits int `json:"cached"`
}

// DB is a run store backed by SQLite.
type DB struct {
	*sql.DB
	logger *log.Logger
}

// Open opens (creating if needed) the store at path and migrates it to
// the latest schema. Use ":memory:" for a private in-memory store.
func Open(path string, logger *log.Logger) (*DB, error) {
	db, err := OpenUnmigrated(path, logger)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// OpenUnmigrated opens the store at path without touching its schema.
func OpenUnmigrated(path string, logger *log.Logger) (*DB, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	dsn := path
	if path != ":memory:" {
		if err := tferrors.ValidatePath(path); err != nil {
			return nil, err
		}
		dsn = "file:" + path
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn += sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	// One connection keeps :memory: stores coherent and serialises writers.
	sqlDB.SetMaxOpenConns(1)

	return &DB{DB: sqlDB, logger: logger}, nil
}

// =============================================================================
// Migrations
// =============================================================================

// MigrateUp applies all pending migrations.
func (db *DB) MigrateUp() error {
	m, err := db.newMigrate()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateDown rolls back the most recent migration.
func (db *DB) MigrateDown() error {
	m, err := db.newMigrate()
	if err != nil {
		return err
	}
	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the schema version and dirty flag. A store
// without migrations reports version 0.
func (db *DB) MigrateVersion() (uint, bool, error) {
	m, err := db.newMigrate()
	if err != nil {
		return 0, false, err
	}
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// newMigrate builds a migrate instance over the embedded migrations. The
// instance is not closed since that would close db.
func (db *DB) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return m, nil
}

// =============================================================================
// Runs
// =============================================================================

// SaveRun writes a run and its tiles in one transaction. An empty ID is
// replaced by a new UUID; the ID is returned.
func (db *DB) SaveRun(ctx context.Context, run *Run) (id string, err error) {
	start := time.Now()
	defer func() {
		observability.Store().OnRunSaved(ctx, id, len(run.Tiles), time.Since(start), err)
	}()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, label, tech_name, tech_hash, config_json, version)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UnixMilli(), run.Label, run.TechName, run.TechHash, run.Config, run.Version)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tile_results
		 (run_id, seq, tile, status, iterations, markers, duration_ms, cached, error_code, error, result_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()
	for i, t := range run.Tiles {
		_, err = stmt.ExecContext(ctx, run.ID, i, t.Tile, t.Status, t.Iterations, t.Markers,
			t.Duration.Milliseconds(), t.Cached, t.ErrorCode, t.Error, t.Result)
		if err != nil {
			return "", fmt.Errorf("insert tile %s: %w", t.Tile, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return "", err
	}
	db.logger.Debug("run saved", "id", run.ID, "tiles", len(run.Tiles))
	return run.ID, nil
}

// ListRuns returns the newest runs first. A limit of zero lists all runs.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Summary, error) {
	q := `SELECT r.id, r.created_at, r.label, r.tech_name, r.tech_hash, r.config_json, r.version,
	             COUNT(t.seq),
	             COALESCE(SUM(CASE WHEN t.status != 'done' THEN 1 ELSE 0 END), 0),
	             COALESCE(SUM(t.markers), 0),
	             COALESCE(SUM(t.cached), 0)
	      FROM runs r LEFT JOIN tile_results t ON t.run_id = r.id
	      GROUP BY r.id
	      ORDER BY r.created_at DESC, r.id`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		var created int64
		if err := rows.Scan(&s.ID, &created, &s.Label, &s.TechName, &s.TechHash, &s.Config, &s.Version,
			&s.TileCount, &s.Failed, &s.MarkerSum, &s.CachedHits); err != nil {
			return nil, err
		}
		s.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetRun returns a run with all its tiles. id may be a unique prefix of
// the run ID.
func (db *DB) GetRun(ctx context.Context, id string) (*Run, error) {
	fullID, err := db.resolveID(ctx, id)
	if err != nil {
		return nil, err
	}
	run := &Run{ID: fullID}
	var created int64
	err = db.QueryRowContext(ctx,
		`SELECT created_at, label, tech_name, tech_hash, config_json, version FROM runs WHERE id = ?`, fullID,
	).Scan(&created, &run.Label, &run.TechName, &run.TechHash, &run.Config, &run.Version)
	if err != nil {
		return nil, err
	}
	run.CreatedAt = time.UnixMilli(created).UTC()

	rows, err := db.QueryContext(ctx,
		`SELECT tile, status, iterations, markers, duration_ms, cached, error_code, error, result_json
		 FROM tile_results WHERE run_id = ? ORDER BY seq`, fullID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var t Tile
		var ms int64
		if err := rows.Scan(&t.Tile, &t.Status, &t.Iterations, &t.Markers, &ms, &t.Cached,
			&t.ErrorCode, &t.Error, &t.Result); err != nil {
			return nil, err
		}
		t.Duration = time.Duration(ms) * time.Millisecond
		run.Tiles = append(run.Tiles, t)
	}
	return run, rows.Err()
}

// TileResult returns the stored result JSON of one tile of a run.
func (db *DB) TileResult(ctx context.Context, runID, tile string) ([]byte, error) {
	fullID, err := db.resolveID(ctx, runID)
	if err != nil {
		return nil, err
	}
	var data []byte
	err = db.QueryRowContext(ctx,
		`SELECT result_json FROM tile_results WHERE run_id = ? AND tile = ?`, fullID, tile).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && len(data) == 0) {
		return nil, tferrors.New(tferrors.ErrCodeNotFound, "run %s has no result for tile %q", fullID, tile)
	}
	return data, err
}

// DeleteRun removes a run and its tiles.
func (db *DB) DeleteRun(ctx context.Context, id string) error {
	fullID, err := db.resolveID(ctx, id)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, fullID)
	return err
}

func (db *DB) resolveID(ctx context.Context, prefix string) (string, error) {
	if err := tferrors.ValidateRunID(prefix); err != nil {
		return "", err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id FROM runs WHERE substr(id, 1, length(?)) = ? ORDER BY id LIMIT 2`, prefix, prefix)
	if err != nil {
		return "", err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", tferrors.New(tferrors.ErrCodeRunNotFound, "no run matches %q", prefix)
	case 1:
		return ids[0], nil
	default:
		if ids[0] == prefix {
			return prefix, nil
		}
		return "", tferrors.New(tferrors.ErrCodeInvalidInput, "run id %q is ambiguous", prefix)
	}
}
