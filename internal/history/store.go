// Package history keeps a local SQLite log of analysis runs.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"archlens/internal/architecture"
	archerrors "archlens/internal/errors"
	"archlens/internal/rules"
	"archlens/internal/slogutil"
	"archlens/internal/violations"
)

const schemaVersion = 1

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

// Status is the outcome of a recorded run.
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Run is one recorded analysis.
type Run struct {
	ID           string               `json:"id" yaml:"id"`
	Root         string               `json:"root" yaml:"root"`
	StartedAt    time.Time            `json:"startedAt" yaml:"startedAt"`
	Duration     time.Duration        `json:"durationNs" yaml:"durationNs"`
	Status       Status               `json:"status" yaml:"status"`
	ErrorCode    string               `json:"errorCode,omitempty" yaml:"errorCode,omitempty"`
	ErrorMessage string               `json:"errorMessage,omitempty" yaml:"errorMessage,omitempty"`
	Analyzer     string               `json:"analyzer,omitempty" yaml:"analyzer,omitempty"`
	Modules      int                  `json:"modules" yaml:"modules"`
	Edges        int                  `json:"edges" yaml:"edges"`
	WarningCount int                  `json:"warningCount" yaml:"warningCount"`
	Warnings     []violations.Warning `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Store persists runs in a SQLite database.
type Store struct {
	conn   *sql.DB
	logger *slog.Logger
	dbPath string
	enc    *zstd.Encoder
	dec    *zstd.Decoder
}

// Open opens or creates the history database at dbPath.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	logger = slogutil.OrDiscard(logger)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// SQLite allows a single writer
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	s := &Store{conn: conn, logger: logger, dbPath: dbPath, enc: enc, dec: dec}
	if err := s.initializeSchema(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return s, nil
}

func (s *Store) initializeSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			root TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			status TEXT NOT NULL,
			error_code TEXT,
			error_message TEXT,
			analyzer TEXT,
			module_count INTEGER NOT NULL DEFAULT 0,
			edge_count INTEGER NOT NULL DEFAULT 0,
			warning_count INTEGER NOT NULL DEFAULT 0,
			document BLOB
		);
		CREATE INDEX IF NOT EXISTS idx_runs_root_started ON runs(root, started_at DESC);

		CREATE TABLE IF NOT EXISTS warnings (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			type TEXT NOT NULL,
			file_id TEXT NOT NULL,
			severity TEXT NOT NULL,
			message TEXT NOT NULL,
			path TEXT,
			rule TEXT,
			PRIMARY KEY (run_id, seq)
		);

		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);
	`
	if _, err := s.conn.Exec(schema); err != nil {
		return err
	}
	_, err := s.conn.Exec(`INSERT OR REPLACE INTO schema_version (version) VALUES (?)`, schemaVersion)
	return err
}

// Path returns the database file path.
func (s *Store) Path() string { return s.dbPath }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.enc != nil {
		_ = s.enc.Close()
	}
	if s.dec != nil {
		s.dec.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// RecordRun stores a successful run with its warnings and the compressed
// analyzer document.
func (s *Store) RecordRun(ctx context.Context, report *architecture.Report) error {
	var doc []byte
	if report.Document != nil {
		raw, err := json.Marshal(report.Document)
		if err != nil {
			return fmt.Errorf("failed to encode document: %w", err)
		}
		doc = s.enc.EncodeAll(raw, nil)
	}

	analyzer := ""
	if report.Analyzer != nil {
		analyzer = report.Analyzer.Name + " " + report.Analyzer.Version
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, root, started_at, duration_ms, status, analyzer, module_count, edge_count, warning_count, document)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.RunID,
		report.Root,
		report.StartedAt.UnixNano(),
		report.Duration.Milliseconds(),
		string(StatusOK),
		nullString(analyzer),
		report.Stats.Modules,
		report.Stats.Edges,
		len(report.Warnings),
		doc,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	for i, w := range report.Warnings {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO warnings (run_id, seq, type, file_id, severity, message, path, rule)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, report.RunID, i, string(w.Type), w.FileID, string(w.Severity), w.Message, nullString(w.Path), nullString(w.Rule))
		if err != nil {
			return fmt.Errorf("failed to record warning: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.Debug("Recorded run", "run", report.RunID, "warnings", len(report.Warnings), "document_bytes", len(doc))
	return nil
}

// RecordFailure stores a run that ended in runErr and returns its id.
func (s *Store) RecordFailure(ctx context.Context, root string, started time.Time, runErr error) (string, error) {
	id := uuid.NewString()
	code := string(archerrors.CodeOf(runErr))
	if code == "" {
		code = string(archerrors.InternalError)
	}

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO runs (id, root, started_at, duration_ms, status, error_code, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, root, started.UnixNano(), time.Since(started).Milliseconds(), string(StatusFailed), code, runErr.Error())
	if err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	return id, nil
}

const runColumns = `id, root, started_at, duration_ms, status, error_code, error_message, analyzer, module_count, edge_count, warning_count`

// ListRuns returns the newest runs first. An empty root lists every project.
func (s *Store) ListRuns(ctx context.Context, root string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if root != "" {
		query += ` WHERE root = ?`
		args = append(args, root)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetRun returns a run and its warnings.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT type, file_id, severity, message, path, rule
		FROM warnings WHERE run_id = ? ORDER BY seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load warnings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var w violations.Warning
		var typ, severity string
		var path, rule sql.NullString
		if err := rows.Scan(&typ, &w.FileID, &severity, &w.Message, &path, &rule); err != nil {
			return nil, err
		}
		w.Type = violations.Type(typ)
		w.Severity = rules.Severity(severity)
		w.Path = path.String
		w.Rule = rule.String
		r.Warnings = append(r.Warnings, w)
	}
	return r, rows.Err()
}

// RunDocument returns the decompressed analyzer JSON stored with a run,
// or nil when the run kept none.
func (s *Store) RunDocument(ctx context.Context, id string) ([]byte, error) {
	var doc []byte
	err := s.conn.QueryRowContext(ctx, `SELECT document FROM runs WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if len(doc) == 0 {
		return nil, nil
	}
	raw, err := s.dec.DecodeAll(doc, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress document: %w", err)
	}
	return raw, nil
}

// Prune keeps the newest keep runs per project and deletes the rest.
// It returns the number of runs removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.conn.ExecContext(ctx, `
		DELETE FROM runs WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY root ORDER BY started_at DESC) AS rn
				FROM runs
			) WHERE rn > ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.Debug("Pruned run history", "removed", n, "keep", keep)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var started, durationMs int64
	var status string
	var code, msg, analyzer sql.NullString
	err := row.Scan(&r.ID, &r.Root, &started, &durationMs, &status, &code, &msg, &analyzer,
		&r.Modules, &r.Edges, &r.WarningCount)
	if err != nil {
		return nil, err
	}
	r.StartedAt = time.Unix(0, started)
	r.Duration = time.Duration(durationMs) * time.Millisecond
	r.Status = Status(status)
	r.ErrorCode = code.String
	r.ErrorMessage = msg.String
	r.Analyzer = analyzer.String
	return &r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
