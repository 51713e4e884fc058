package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/mdmirror/internal/model"
)

// DBFileName is the name of the history database inside the data directory.
const DBFileName = "mdmirror.db"

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// HistoryDB provides SQLite-based storage for run history.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a new file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	-- One row per batch run
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		root TEXT NOT NULL,
		naming TEXT NOT NULL,
		workers INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		files_found INTEGER DEFAULT 0,
		files_processed INTEGER DEFAULT 0,
		files_failed INTEGER DEFAULT 0,
		images_seen INTEGER DEFAULT 0,
		images_processed INTEGER DEFAULT 0,
		images_downloaded INTEGER DEFAULT 0,
		images_failed INTEGER DEFAULT 0,
		images_with_metadata INTEGER DEFAULT 0,
		removed_dirs INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- One row per eligible image reference
	CREATE TABLE IF NOT EXISTS downloads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		document TEXT NOT NULL,
		line INTEGER,
		url TEXT NOT NULL,
		local_path TEXT,
		outcome TEXT NOT NULL,
		status_code INTEGER DEFAULT 0,
		bytes INTEGER DEFAULT 0,
		error TEXT,
		worker TEXT,
		metadata TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_downloads_run ON downloads(run_id);
	CREATE INDEX IF NOT EXISTS idx_downloads_url ON downloads(url);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord is a stored run.
type RunRecord struct {
	ID                 string    `json:"id"`
	Root               string    `json:"root"`
	Naming             string    `json:"naming"`
	Workers            int       `json:"workers"`
	StartedAt          time.Time `json:"startedAt"`
	FinishedAt         time.Time `json:"finishedAt,omitzero"`
	FilesFound         int       `json:"filesFound"`
	FilesProcessed     int       `json:"filesProcessed"`
	FilesFailed        int       `json:"filesFailed"`
	ImagesSeen         int       `json:"imagesSeen"`
	ImagesProcessed    int       `json:"imagesProcessed"`
	ImagesDownloaded   int       `json:"imagesDownloaded"`
	ImagesFailed       int       `json:"imagesFailed"`
	ImagesWithMetadata int       `json:"imagesWithMetadata"`
	RemovedDirs        int       `json:"removedDirs"`
}

// Finished reports whether the run was completed with FinishRun.
func (r *RunRecord) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// StartRun inserts a new run and returns its ID.
// The counters are written later by FinishRun.
func (hdb *HistoryDB) StartRun(ctx context.Context, run *model.RunResult) (string, error) {
	id := uuid.NewString()

	query := `
	INSERT INTO runs (id, root, naming, workers, started_at)
	VALUES (?, ?, ?, ?, ?)
	`

	_, err := hdb.db.ExecContext(ctx, query,
		id,
		run.Root,
		string(run.Naming),
		run.Workers,
		formatTimestamp(run.StartedAt),
	)
	if err != nil {
		return "", fmt.Errorf("failed to start run: %w", err)
	}

	return id, nil
}

// FinishRun stores the final counters of a run.
func (hdb *HistoryDB) FinishRun(ctx context.Context, runID string, run *model.RunResult) error {
	finishedAt := run.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = time.Now()
	}

	query := `
	UPDATE runs SET
		finished_at = ?,
		files_found = ?,
		files_processed = ?,
		files_failed = ?,
		images_seen = ?,
		images_processed = ?,
		images_downloaded = ?,
		images_failed = ?,
		images_with_metadata = ?,
		removed_dirs = ?
	WHERE id = ?
	`

	result, err := hdb.db.ExecContext(ctx, query,
		formatTimestamp(finishedAt),
		run.FilesFound,
		run.FilesProcessed,
		len(run.Failures),
		run.ImagesSeen,
		run.ImagesProcessed,
		run.ImagesDownloaded,
		run.ImagesFailed,
		run.ImagesWithMetadata,
		len(run.RemovedDirs),
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	return nil
}

// InsertDownloads stores the download records of one document in a single
// transaction.
func (hdb *HistoryDB) InsertDownloads(ctx context.Context, runID string, records []model.DownloadRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := hdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO downloads (run_id, document, line, url, local_path, outcome, status_code, bytes, error, worker, metadata)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare download insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var metadata sql.NullString
		if len(rec.Metadata) > 0 {
			data, err := json.Marshal(rec.Metadata)
			if err != nil {
				return fmt.Errorf("failed to serialize metadata: %w", err)
			}
			metadata = sql.NullString{String: string(data), Valid: true}
		}

		_, err := stmt.ExecContext(ctx,
			runID,
			rec.Document,
			rec.Line,
			rec.URL,
			rec.LocalPath,
			string(rec.Outcome),
			rec.StatusCode,
			rec.Bytes,
			rec.Error,
			rec.Worker,
			metadata,
		)
		if err != nil {
			return fmt.Errorf("failed to insert download record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit download records: %w", err)
	}
	return nil
}

const runColumns = `
	id, root, naming, workers, started_at, COALESCE(finished_at, ''),
	files_found, files_processed, files_failed,
	images_seen, images_processed, images_downloaded, images_failed,
	images_with_metadata, removed_dirs
`

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*RunRecord, error) {
	var rec RunRecord
	var startedAt, finishedAt string

	err := s.Scan(
		&rec.ID,
		&rec.Root,
		&rec.Naming,
		&rec.Workers,
		&startedAt,
		&finishedAt,
		&rec.FilesFound,
		&rec.FilesProcessed,
		&rec.FilesFailed,
		&rec.ImagesSeen,
		&rec.ImagesProcessed,
		&rec.ImagesDownloaded,
		&rec.ImagesFailed,
		&rec.ImagesWithMetadata,
		&rec.RemovedDirs,
	)
	if err != nil {
		return nil, err
	}

	rec.StartedAt = parseTimestamp(startedAt)
	if finishedAt != "" {
		rec.FinishedAt = parseTimestamp(finishedAt)
	}
	return &rec, nil
}

// ListRuns returns the most recent runs first.
// A non-positive limit returns every run.
func (hdb *HistoryDB) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunRecord, 0)
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *rec)
	}

	return runs, rows.Err()
}

// GetRun retrieves a run by ID. It returns ErrRunNotFound for unknown IDs.
func (hdb *HistoryDB) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	row := hdb.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)

	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return rec, nil
}

// GetRunDownloads returns the download records of a run in insertion order.
func (hdb *HistoryDB) GetRunDownloads(ctx context.Context, runID string) ([]model.DownloadRecord, error) {
	query := `
	SELECT document, line, url, COALESCE(local_path, ''), outcome, status_code, bytes,
		COALESCE(error, ''), COALESCE(worker, ''), metadata
	FROM downloads
	WHERE run_id = ?
	ORDER BY id
	`

	rows, err := hdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get downloads: %w", err)
	}
	defer rows.Close()

	records := make([]model.DownloadRecord, 0)
	for rows.Next() {
		var rec model.DownloadRecord
		var outcome string
		var metadata sql.NullString

		err := rows.Scan(
			&rec.Document,
			&rec.Line,
			&rec.URL,
			&rec.LocalPath,
			&outcome,
			&rec.StatusCode,
			&rec.Bytes,
			&rec.Error,
			&rec.Worker,
			&metadata,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan download: %w", err)
		}
		rec.Outcome = model.DownloadOutcome(outcome)

		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &rec.Metadata); err != nil {
				rec.Metadata = nil // Skip malformed metadata
			}
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}

// CountDownloadsByOutcome returns the number of download records per
// outcome for a run.
func (hdb *HistoryDB) CountDownloadsByOutcome(ctx context.Context, runID string) (map[model.DownloadOutcome]int, error) {
	rows, err := hdb.db.QueryContext(ctx,
		`SELECT outcome, COUNT(*) FROM downloads WHERE run_id = ? GROUP BY outcome`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to count downloads: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.DownloadOutcome]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("failed to scan download count: %w", err)
		}
		counts[model.DownloadOutcome(outcome)] = n
	}

	return counts, rows.Err()
}

// timestampLayout is RFC 3339 with fixed-width nanoseconds, so that stored
// UTC timestamps sort lexically in time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,           // Written by formatTimestamp
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
