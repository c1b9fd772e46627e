// Package history keeps a SQLite journal of generation runs.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Run is one invocation of the generator.
type Run struct {
	ID           string
	Template     string
	Root         string
	OutputDir    string
	Mode         string
	DryRun       bool
	StartedAt    time.Time
	Duration     time.Duration
	Dirs         int
	FilesWritten int
	FilesSkipped int
	Success      bool
	Error        string
}

// Store handles database operations
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database at path, creating its parent
// directory when needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		template TEXT NOT NULL,
		root TEXT,
		output_dir TEXT,
		mode TEXT,
		dry_run BOOLEAN,
		started_at DATETIME,
		duration_ms INTEGER,
		dirs INTEGER,
		files_written INTEGER,
		files_skipped INTEGER,
		success BOOLEAN,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_template ON runs(template);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Record saves a run, assigning an ID when it has none. It returns the ID.
func (s *Store) Record(r Run) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	query := `
	INSERT INTO runs (
		id, template, root, output_dir, mode, dry_run, started_at, duration_ms,
		dirs, files_written, files_skipped, success, error
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		r.ID, r.Template, r.Root, r.OutputDir, r.Mode, r.DryRun, r.StartedAt.UTC(),
		r.Duration.Milliseconds(), r.Dirs, r.FilesWritten, r.FilesSkipped, r.Success, r.Error,
	)
	if err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	return r.ID, nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
	SELECT id, template, root, output_dir, mode, dry_run, started_at, duration_ms,
		dirs, files_written, files_skipped, success, error
	FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?
	`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var durationMs sql.NullInt64
		var root, outputDir, mode, errMsg sql.NullString

		err := rows.Scan(
			&r.ID, &r.Template, &root, &outputDir, &mode, &r.DryRun, &r.StartedAt,
			&durationMs, &r.Dirs, &r.FilesWritten, &r.FilesSkipped, &r.Success, &errMsg,
		)
		if err != nil {
			return nil, err
		}

		r.Root = root.String
		r.OutputDir = outputDir.String
		r.Mode = mode.String
		r.Error = errMsg.String
		if durationMs.Valid {
			r.Duration = time.Duration(durationMs.Int64) * time.Millisecond
		}

		runs = append(runs, r)
	}

	return runs, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
