package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/codebuildervaibhav/media-transcription/internal/types"
)

// ErrNotFound is returned when no transcript matches a job id
var ErrNotFound = errors.New("transcript not found")

// MetadataDB handles SQLite database operations
type MetadataDB struct {
	db *sql.DB
}

// NewMetadataDB creates a new metadata database
func NewMetadataDB(dbPath string) (*MetadataDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// modernc serializes writers; one connection avoids SQLITE_BUSY between workers
	db.SetMaxOpenConns(1)

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS transcripts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL UNIQUE,
		request_name TEXT NOT NULL,
		source_type TEXT NOT NULL,
		gdrive_url TEXT NOT NULL DEFAULT '',
		local_path TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		duration REAL NOT NULL DEFAULT 0,
		word_count INTEGER NOT NULL DEFAULT 0,
		chunk_count INTEGER NOT NULL DEFAULT 1,
		failed_chunks INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_created_at ON transcripts(created_at);
	CREATE INDEX IF NOT EXISTS idx_request_name ON transcripts(request_name);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MetadataDB{db: db}, nil
}

// SaveTranscript saves transcript metadata to the database
func (mdb *MetadataDB) SaveTranscript(result *types.TranscriptResult) error {
	query := `
	INSERT INTO transcripts (job_id, request_name, source_type, gdrive_url, local_path, created_at,
		duration, word_count, chunk_count, failed_chunks)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := result.ProcessedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := mdb.db.Exec(query, result.JobID, result.RequestName, result.SourceType, result.GDriveURL,
		result.LocalPath, createdAt.UTC(), result.Duration, result.WordCount,
		result.ChunkCount, len(result.FailedChunks))
	if err != nil {
		return fmt.Errorf("failed to save transcript metadata: %w", err)
	}

	return nil
}

const selectColumns = `SELECT job_id, request_name, source_type, gdrive_url, local_path, created_at,
	duration, word_count, chunk_count, failed_chunks FROM transcripts`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (types.TranscriptRecord, error) {
	var r types.TranscriptRecord
	err := row.Scan(&r.JobID, &r.RequestName, &r.SourceType, &r.GDriveURL, &r.LocalPath, &r.CreatedAt,
		&r.Duration, &r.WordCount, &r.ChunkCount, &r.FailedChunks)
	return r, err
}

// GetTranscript retrieves transcript metadata by job ID
func (mdb *MetadataDB) GetTranscript(jobID string) (*types.TranscriptRecord, error) {
	r, err := scanRecord(mdb.db.QueryRow(selectColumns+` WHERE job_id = ?`, jobID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}
	return &r, nil
}

// ListTranscripts returns the newest transcripts first
func (mdb *MetadataDB) ListTranscripts(limit int) ([]types.TranscriptRecord, error) {
	rows, err := mdb.db.Query(selectColumns+` ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}
	defer rows.Close()

	transcripts := make([]types.TranscriptRecord, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}
		transcripts = append(transcripts, r)
	}

	return transcripts, rows.Err()
}

// Close closes the database connection
func (mdb *MetadataDB) Close() error {
	return mdb.db.Close()
}
