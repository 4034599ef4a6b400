package types

import "time"

// Job status constants
const (
	StatusCapturing  = "CAPTURING"
	StatusQueued     = "QUEUED"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Source type constants
const (
	SourceUpload  = "upload"
	SourceGDrive  = "gdrive"
	SourceYouTube = "youtube"
	SourceStream  = "stream"
	SourceCLI     = "cli"
)

// TranscriptResult is a finished transcript ready to be stored
type TranscriptResult struct {
	JobID        string    `json:"job_id"`
	RequestName  string    `json:"request_name"`
	SourceType   string    `json:"source_type"`
	Text         string    `json:"-"`
	Model        string    `json:"model_used"`
	Language     string    `json:"language"`
	Duration     float64   `json:"duration_seconds"`
	WordCount    int       `json:"word_count"`
	ChunkCount   int       `json:"chunk_count"`
	FailedChunks []int     `json:"failed_chunks"`
	Warnings     []string  `json:"warnings"`
	Compressed   bool      `json:"compressed"`
	ProcessedAt  time.Time `json:"created_at"`
	LocalPath    string    `json:"local_path"`
	GDriveURL    string    `json:"gdrive_url"`
}

// TranscriptRecord is one row of the transcripts table
type TranscriptRecord struct {
	JobID        string    `json:"job_id"`
	RequestName  string    `json:"request_name"`
	SourceType   string    `json:"source_type"`
	GDriveURL    string    `json:"gdrive_url"`
	LocalPath    string    `json:"local_path"`
	CreatedAt    time.Time `json:"created_at"`
	Duration     float64   `json:"duration"`
	WordCount    int       `json:"word_count"`
	ChunkCount   int       `json:"chunk_count"`
	FailedChunks int       `json:"failed_chunks"`
}
