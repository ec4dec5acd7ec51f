package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/samogod/dreamprep/pkg/config"
)

var DebugLog func(string, ...interface{})

// DB is the local ledger of prepared runs. A disabled DB accepts TrackRun
// calls and ignores them.
type DB struct {
	conn    *sql.DB
	enabled bool
	path    string
}

type RunRecord struct {
	ID            string
	Instance      string
	Class         string
	ConceptsFile  string
	InstanceDir   string
	ImageCount    int
	ImagesValid   bool
	MaxTrainSteps int
	Command       string
	CreatedAt     time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	instance TEXT NOT NULL,
	class TEXT NOT NULL,
	concepts_file TEXT NOT NULL,
	instance_dir TEXT NOT NULL,
	image_count INTEGER NOT NULL,
	images_valid INTEGER NOT NULL,
	max_train_steps INTEGER NOT NULL,
	command TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_instance ON runs(instance);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func New(cfg *config.Config) (*DB, error) {
	db := &DB{
		enabled: cfg.Ledger.Enabled,
		path:    cfg.LedgerPath(),
	}

	if !db.enabled {
		if DebugLog != nil {
			DebugLog("run ledger disabled")
		}
		return db, nil
	}

	if err := os.MkdirAll(filepath.Dir(db.path), 0755); err != nil {
		return db, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", db.path)
	if err != nil {
		return db, fmt.Errorf("failed to open ledger: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return db, fmt.Errorf("failed to ping ledger: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return db, fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.conn = conn

	if DebugLog != nil {
		DebugLog("run ledger active at %s", db.path)
	}

	return db, nil
}

func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

func (db *DB) IsEnabled() bool {
	return db.enabled && db.conn != nil
}

func (db *DB) Path() string {
	return db.path
}

// TrackRun stores rec, filling in ID and CreatedAt when they are empty.
func (db *DB) TrackRun(rec *RunRecord) error {
	if !db.IsEnabled() {
		return nil
	}

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.Exec(`
		INSERT INTO runs (id, instance, class, concepts_file, instance_dir, image_count, images_valid, max_train_steps, command, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Instance, rec.Class, rec.ConceptsFile, rec.InstanceDir,
		rec.ImageCount, rec.ImagesValid, rec.MaxTrainSteps, rec.Command, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if DebugLog != nil {
		DebugLog("recorded run %s for %s", rec.ID, rec.Instance)
	}

	return nil
}

// QueryRuns lists recorded runs newest first. An empty instance lists all.
func (db *DB) QueryRuns(instance string) ([]RunRecord, error) {
	if !db.IsEnabled() {
		return nil, fmt.Errorf("run ledger is not enabled")
	}

	query := `
		SELECT id, instance, class, concepts_file, instance_dir, image_count, images_valid, max_train_steps, command, created_at
		FROM runs
	`
	var args []interface{}

	if instance != "" {
		query += " WHERE instance = ?"
		args = append(args, instance)
	}

	query += " ORDER BY created_at DESC, rowid DESC"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.Instance, &r.Class, &r.ConceptsFile, &r.InstanceDir,
			&r.ImageCount, &r.ImagesValid, &r.MaxTrainSteps, &r.Command, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	return records, rows.Err()
}
