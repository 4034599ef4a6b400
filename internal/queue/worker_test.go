package queue

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/codebuildervaibhav/media-transcription/internal/media"
	"github.com/codebuildervaibhav/media-transcription/internal/transcription"
	"github.com/codebuildervaibhav/media-transcription/internal/types"
)

type fakePipeline struct {
	result *transcription.Result
	err    error
	panic  bool
	budget int64
}

func (f *fakePipeline) TranscribeLarge(ctx context.Context, file *media.File, budget int64) (*transcription.Result, error) {
	if f.panic {
		panic("decoder exploded")
	}
	f.budget = budget
	return f.result, f.err
}

type fakeSaver struct {
	mu    sync.Mutex
	saved []*types.TranscriptResult
}

func (f *fakeSaver) SaveTranscript(result *types.TranscriptResult) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result.LocalPath = "/outputs/" + result.JobID + ".txt"
	f.saved = append(f.saved, result)
	return result.LocalPath, nil
}

type fakeDrive struct {
	mu       sync.Mutex
	attempts int
	err      error
}

func (f *fakeDrive) Upload(ctx context.Context, result *types.TranscriptResult) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.err != nil {
		return "", f.err
	}
	return "https://drive.google.com/file/d/abc/view", nil
}

type fakeDB struct {
	mu   sync.Mutex
	rows []*types.TranscriptResult
}

func (f *fakeDB) SaveTranscript(result *types.TranscriptResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, result)
	return nil
}

func writeUpload(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("audio bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runJob(t *testing.T, deps Deps, job *Job) *WorkerPool {
	t.Helper()
	wp := NewWorkerPool(deps, Options{Workers: 1, QueueSize: 4, SizeBudget: 1024, FailureMarker: "[transcription failed]"})
	wp.backoff = func(int) time.Duration { return 0 }
	wp.Start()

	if err := wp.EnqueueJob(job); err != nil {
		t.Fatalf("EnqueueJob() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wp.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	return wp
}

func TestWorkerPool_CompletesJob(t *testing.T) {
	upload := writeUpload(t, "talk.mp3")
	pipeline := &fakePipeline{result: &transcription.Result{
		Transcript: "hello world\n[transcription failed]\nbye",
		Chunks: []transcription.ChunkResult{
			{Ordinal: 0, Text: "hello world"},
			{Ordinal: 1, Err: errors.New("rate limited")},
			{Ordinal: 2, Text: "bye"},
		},
		Warnings: []string{"1 of 3 chunks failed to transcribe (ordinals [1])"},
		Duration: 90,
	}}
	saver, drive, db := &fakeSaver{}, &fakeDrive{}, &fakeDB{}

	job := NewJob("job-1", "standup", types.SourceUpload, upload)
	wp := runJob(t, Deps{Pipeline: pipeline, Local: saver, Drive: drive, DB: db}, job)

	status, ok := wp.GetJob("job-1")
	if !ok {
		t.Fatal("job not registered")
	}
	if status.Status != types.StatusCompleted {
		t.Fatalf("status = %s (%s)", status.Status, status.Error)
	}
	if status.ChunkCount != 3 || len(status.FailedChunks) != 1 || status.FailedChunks[0] != 1 {
		t.Errorf("chunks = %d failed = %v", status.ChunkCount, status.FailedChunks)
	}
	if len(status.Warnings) != 1 || status.GDriveURL == "" || status.FinishedAt == nil {
		t.Errorf("snapshot = %+v", status)
	}
	if pipeline.budget != 1024 {
		t.Errorf("budget = %d", pipeline.budget)
	}

	if len(saver.saved) != 1 || saver.saved[0].WordCount != 3 {
		t.Errorf("saved = %+v", saver.saved)
	}
	if len(db.rows) != 1 || db.rows[0].GDriveURL == "" {
		t.Errorf("db rows = %+v", db.rows)
	}
	if _, err := os.Stat(upload); !os.IsNotExist(err) {
		t.Error("upload should be removed after the job")
	}
}

func TestWorkerPool_FailedJobs(t *testing.T) {
	tests := []struct {
		name     string
		pipeline *fakePipeline
		file     string
	}{
		{"pipeline error", &fakePipeline{err: transcription.ErrAllChunksFailed}, "talk.mp3"},
		{"panic", &fakePipeline{panic: true}, "talk.mp3"},
		{"unsupported file", &fakePipeline{}, "notes.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upload := writeUpload(t, tt.file)
			saver := &fakeSaver{}

			job := NewJob("job-"+tt.name, "x", types.SourceUpload, upload)
			wp := runJob(t, Deps{Pipeline: tt.pipeline, Local: saver}, job)

			status, _ := wp.GetJob(job.ID)
			if status.Status != types.StatusFailed || status.Error == "" {
				t.Errorf("status = %+v", status)
			}
			if len(saver.saved) != 0 {
				t.Error("nothing should be saved for a failed job")
			}
			if _, err := os.Stat(upload); !os.IsNotExist(err) {
				t.Error("upload should be removed after a failed job")
			}
		})
	}

	t.Run("error is wrapped", func(t *testing.T) {
		job := NewJob("wrapped", "x", types.SourceUpload, writeUpload(t, "a.wav"))
		runJob(t, Deps{Pipeline: &fakePipeline{err: transcription.ErrToolchainUnavailable}, Local: &fakeSaver{}}, job)
		if !errors.Is(job.Err(), transcription.ErrToolchainUnavailable) {
			t.Errorf("Err() = %v", job.Err())
		}
	})
}

func TestWorkerPool_DriveFailureIsAWarning(t *testing.T) {
	drive := &fakeDrive{err: errors.New("quota exceeded")}
	job := NewJob("job-drive", "x", types.SourceUpload, writeUpload(t, "talk.mp3"))
	pipeline := &fakePipeline{result: &transcription.Result{
		Transcript: "hi",
		Chunks:     []transcription.ChunkResult{{Ordinal: 0, Text: "hi"}},
	}}

	wp := runJob(t, Deps{Pipeline: pipeline, Local: &fakeSaver{}, Drive: drive}, job)

	status, _ := wp.GetJob(job.ID)
	if status.Status != types.StatusCompleted {
		t.Fatalf("status = %s", status.Status)
	}
	if drive.attempts != 3 {
		t.Errorf("attempts = %d, want 3", drive.attempts)
	}
	if len(status.Warnings) != 1 || status.GDriveURL != "" {
		t.Errorf("snapshot = %+v", status)
	}
}

func TestWorkerPool_EnqueueLimits(t *testing.T) {
	wp := NewWorkerPool(Deps{}, Options{QueueSize: 1})

	if err := wp.EnqueueJob(NewJob("a", "a", types.SourceUpload, "")); err != nil {
		t.Fatal(err)
	}
	if err := wp.EnqueueJob(NewJob("b", "b", types.SourceUpload, "")); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
	if _, ok := wp.GetJob("b"); ok {
		t.Error("rejected job must not be registered")
	}

	// drain without workers so Stop does not block
	<-wp.jobQueue
	if err := wp.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := wp.EnqueueJob(NewJob("c", "c", types.SourceUpload, "")); !errors.Is(err, ErrPoolStopped) {
		t.Errorf("expected ErrPoolStopped, got %v", err)
	}
}

func TestRegistry_Prune(t *testing.T) {
	r := NewRegistry()
	old := NewJob("old", "x", types.SourceUpload, "")
	old.complete(&types.TranscriptResult{})
	old.finishedAt = time.Now().Add(-2 * time.Hour)
	running := NewJob("running", "x", types.SourceUpload, "")
	r.add(old)
	r.add(running)

	if n := r.Prune(time.Hour); n != 1 {
		t.Errorf("Prune() = %d, want 1", n)
	}
	if _, ok := r.Get("old"); ok {
		t.Error("old job should be pruned")
	}
	if _, ok := r.Get("running"); !ok {
		t.Error("unfinished job must be kept")
	}
}
