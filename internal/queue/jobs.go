package queue

import (
	"sync"
	"time"

	"github.com/codebuildervaibhav/media-transcription/internal/types"
)

// Job represents a transcription job
type Job struct {
	ID          string
	RequestName string
	SourceType  string
	FilePath    string
	CreatedAt   time.Time

	mu           sync.Mutex
	status       string
	err          error
	result       *types.TranscriptResult
	warnings     []string
	failedChunks []int
	chunkCount   int
	finishedAt   time.Time
}

// NewJob creates a new job with default values
func NewJob(id, requestName, sourceType, filePath string) *Job {
	return &Job{
		ID:          id,
		RequestName: requestName,
		SourceType:  sourceType,
		FilePath:    filePath,
		status:      types.StatusQueued,
		CreatedAt:   time.Now(),
	}
}

// JobStatus is a point-in-time copy of a job, safe to serialize
type JobStatus struct {
	ID           string     `json:"job_id"`
	RequestName  string     `json:"request_name"`
	SourceType   string     `json:"source_type"`
	Status       string     `json:"status"`
	Error        string     `json:"error,omitempty"`
	ChunkCount   int        `json:"chunk_count,omitempty"`
	FailedChunks []int      `json:"failed_chunks,omitempty"`
	Warnings     []string   `json:"warnings,omitempty"`
	LocalPath    string     `json:"local_path,omitempty"`
	GDriveURL    string     `json:"gdrive_url,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// Status returns the current status constant
func (j *Job) Status() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Err returns the failure cause, if any
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Snapshot copies the job's current state
func (j *Job) Snapshot() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()

	s := JobStatus{
		ID:           j.ID,
		RequestName:  j.RequestName,
		SourceType:   j.SourceType,
		Status:       j.status,
		ChunkCount:   j.chunkCount,
		FailedChunks: append([]int(nil), j.failedChunks...),
		Warnings:     append([]string(nil), j.warnings...),
		CreatedAt:    j.CreatedAt,
	}
	if j.err != nil {
		s.Error = j.err.Error()
	}
	if j.result != nil {
		s.LocalPath = j.result.LocalPath
		s.GDriveURL = j.result.GDriveURL
	}
	if !j.finishedAt.IsZero() {
		t := j.finishedAt
		s.FinishedAt = &t
	}
	return s
}

// MarkFailed records a failure that happened before the job was enqueued
func (j *Job) MarkFailed(err error) {
	j.fail(err)
}

// SetSource fills in the name and media path of a tracked job once its
// media has been fetched. An empty name keeps the current one.
func (j *Job) SetSource(requestName, filePath string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if requestName != "" {
		j.RequestName = requestName
	}
	j.FilePath = filePath
}

func (j *Job) setStatus(status string) {
	j.mu.Lock()
	j.status = status
	j.mu.Unlock()
}

func (j *Job) fail(err error) {
	j.mu.Lock()
	j.status = types.StatusFailed
	j.err = err
	j.finishedAt = time.Now()
	j.mu.Unlock()
}

func (j *Job) complete(result *types.TranscriptResult) {
	j.mu.Lock()
	j.status = types.StatusCompleted
	j.result = result
	j.finishedAt = time.Now()
	j.mu.Unlock()
}

func (j *Job) addWarnings(warnings ...string) {
	j.mu.Lock()
	j.warnings = append(j.warnings, warnings...)
	j.mu.Unlock()
}

func (j *Job) setChunks(count int, failed []int) {
	j.mu.Lock()
	j.chunkCount = count
	j.failedChunks = append([]int(nil), failed...)
	j.mu.Unlock()
}

// Registry keeps every job seen since process start
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Job)}
}

func (r *Registry) add(job *Job) {
	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()
}

// Get looks up a job by id
func (r *Registry) Get(id string) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	return job, ok
}

// Prune drops finished jobs older than maxAge and returns how many were removed
func (r *Registry) Prune(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, job := range r.jobs {
		job.mu.Lock()
		done := !job.finishedAt.IsZero() && job.finishedAt.Before(cutoff)
		job.mu.Unlock()
		if done {
			delete(r.jobs, id)
			removed++
		}
	}
	return removed
}
