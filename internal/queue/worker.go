package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"github.com/codebuildervaibhav/media-transcription/internal/media"
	"github.com/codebuildervaibhav/media-transcription/internal/storage"
	"github.com/codebuildervaibhav/media-transcription/internal/transcription"
	"github.com/codebuildervaibhav/media-transcription/internal/types"
)

var (
	// ErrQueueFull is returned when the job buffer has no room
	ErrQueueFull = errors.New("job queue is full")

	// ErrPoolStopped is returned for jobs enqueued after Stop
	ErrPoolStopped = errors.New("worker pool is stopped")
)

// LargeTranscriber runs the chunked pipeline on one file
type LargeTranscriber interface {
	TranscribeLarge(ctx context.Context, file *media.File, budget int64) (*transcription.Result, error)
}

// TranscriptSaver persists transcript text locally
type TranscriptSaver interface {
	SaveTranscript(result *types.TranscriptResult) (string, error)
}

// DriveUploader copies a saved transcript to remote storage
type DriveUploader interface {
	Upload(ctx context.Context, result *types.TranscriptResult) (string, error)
}

// MetadataStore records finished transcripts
type MetadataStore interface {
	SaveTranscript(result *types.TranscriptResult) error
}

// Options configures a WorkerPool
type Options struct {
	Workers       int
	QueueSize     int
	SizeBudget    int64
	Model         string
	Language      string
	FailureMarker string
	DriveAttempts int
}

// Deps are the collaborators a worker calls; Drive and DB are optional
type Deps struct {
	Pipeline LargeTranscriber
	Local    TranscriptSaver
	Drive    DriveUploader
	DB       MetadataStore
}

// WorkerPool manages a pool of workers processing transcription jobs
type WorkerPool struct {
	jobQueue chan *Job
	registry *Registry
	deps     Deps
	opts     Options
	backoff  func(attempt int) time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(deps Deps, opts Options) *WorkerPool {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 100
	}
	if opts.DriveAttempts < 1 {
		opts.DriveAttempts = 3
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		jobQueue: make(chan *Job, opts.QueueSize),
		registry: NewRegistry(),
		deps:     deps,
		opts:     opts,
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt*attempt) * time.Second
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start initializes all workers
func (wp *WorkerPool) Start() {
	log.Printf("Starting worker pool with %d workers", wp.opts.Workers)
	for i := 0; i < wp.opts.Workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop refuses new jobs and waits for queued ones to finish. When ctx
// expires first, running jobs are cancelled.
func (wp *WorkerPool) Stop(ctx context.Context) error {
	wp.mu.Lock()
	if !wp.stopped {
		wp.stopped = true
		close(wp.jobQueue)
	}
	wp.mu.Unlock()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wp.cancel()
		return nil
	case <-ctx.Done():
		wp.cancel()
		<-done
		return ctx.Err()
	}
}

// Registry exposes job lookup
func (wp *WorkerPool) Registry() *Registry {
	return wp.registry
}

// GetJob returns a snapshot of a known job
func (wp *WorkerPool) GetJob(id string) (JobStatus, bool) {
	job, ok := wp.registry.Get(id)
	if !ok {
		return JobStatus{}, false
	}
	return job.Snapshot(), true
}

// TrackPending registers a job whose media is still being fetched, so its
// status can be looked up before EnqueueJob
func (wp *WorkerPool) TrackPending(job *Job) {
	job.setStatus(types.StatusCapturing)
	wp.registry.add(job)
}

// EnqueueJob adds a job to the queue without blocking
func (wp *WorkerPool) EnqueueJob(job *Job) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.stopped {
		return ErrPoolStopped
	}

	job.setStatus(types.StatusQueued)
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	select {
	case wp.jobQueue <- job:
	default:
		return ErrQueueFull
	}

	wp.registry.add(job)
	log.Printf("Job %s enqueued (source: %s, name: %s)", job.ID, job.SourceType, job.RequestName)
	return nil
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	log.Printf("Worker %d started", id)

	for job := range wp.jobQueue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Worker %d: PANIC processing job %s: %v\n%s",
						id, job.ID, r, string(debug.Stack()))
					job.fail(fmt.Errorf("worker panic: %v", r))
					wp.cleanupTempFile(job.FilePath)
				}
			}()

			wp.processJob(id, job)
		}()
	}
}

// processJob runs one job end to end. The uploaded file is removed on every path.
func (wp *WorkerPool) processJob(workerID int, job *Job) {
	defer wp.cleanupTempFile(job.FilePath)

	log.Printf("Worker %d: Processing job %s", workerID, job.ID)
	job.setStatus(types.StatusProcessing)

	file, err := media.Open(job.FilePath)
	if err != nil {
		log.Printf("Worker %d: Cannot open media for job %s: %v", workerID, job.ID, err)
		job.fail(err)
		return
	}

	res, err := wp.deps.Pipeline.TranscribeLarge(wp.ctx, file, wp.opts.SizeBudget)
	if err != nil {
		log.Printf("Worker %d: Transcription failed for job %s: %v", workerID, job.ID, err)
		job.fail(fmt.Errorf("transcription failed: %w", err))
		return
	}
	job.setChunks(len(res.Chunks), res.FailedChunks())
	job.addWarnings(res.Warnings...)

	result := &types.TranscriptResult{
		JobID:        job.ID,
		RequestName:  job.RequestName,
		SourceType:   job.SourceType,
		Text:         res.Transcript,
		Model:        wp.opts.Model,
		Language:     wp.opts.Language,
		Duration:     res.Duration,
		WordCount:    storage.CountWords(res.Transcript, wp.opts.FailureMarker),
		ChunkCount:   len(res.Chunks),
		FailedChunks: res.FailedChunks(),
		Warnings:     res.Warnings,
		Compressed:   res.Compressed,
		ProcessedAt:  time.Now(),
	}

	localPath, err := wp.deps.Local.SaveTranscript(result)
	if err != nil {
		log.Printf("Worker %d: Local save failed for job %s: %v", workerID, job.ID, err)
		job.fail(fmt.Errorf("local save failed: %w", err))
		return
	}

	if wp.deps.Drive != nil {
		if url, err := wp.uploadWithRetry(workerID, result); err != nil {
			msg := fmt.Sprintf("Google Drive upload failed after %d attempts, transcript saved locally only", wp.opts.DriveAttempts)
			log.Printf("Worker %d: WARNING - %s: %v", workerID, msg, err)
			job.addWarnings(msg)
		} else {
			result.GDriveURL = url
		}
	}

	if wp.deps.DB != nil {
		if err := wp.deps.DB.SaveTranscript(result); err != nil {
			log.Printf("Worker %d: Database save failed: %v", workerID, err)
			job.addWarnings("metadata not recorded: " + err.Error())
		}
	}

	job.complete(result)
	log.Printf("Worker %d: Job %s completed (chunks: %d, failed: %d, local: %s, gdrive: %s)",
		workerID, job.ID, result.ChunkCount, len(result.FailedChunks), localPath, result.GDriveURL)
}

func (wp *WorkerPool) uploadWithRetry(workerID int, result *types.TranscriptResult) (string, error) {
	var err error
	for attempt := 1; attempt <= wp.opts.DriveAttempts; attempt++ {
		var url string
		url, err = wp.deps.Drive.Upload(wp.ctx, result)
		if err == nil {
			return url, nil
		}
		log.Printf("Worker %d: Google Drive upload attempt %d/%d failed: %v", workerID, attempt, wp.opts.DriveAttempts, err)
		if attempt < wp.opts.DriveAttempts {
			select {
			case <-wp.ctx.Done():
				return "", wp.ctx.Err()
			case <-time.After(wp.backoff(attempt)):
			}
		}
	}
	return "", err
}

// cleanupTempFile removes a temporary file
func (wp *WorkerPool) cleanupTempFile(filePath string) {
	if filePath == "" {
		return
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to cleanup temp file %s: %v", filePath, err)
	}
}
