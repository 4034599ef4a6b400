package handlers

import (
	"errors"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/media-transcription/internal/storage"
	"github.com/codebuildervaibhav/media-transcription/internal/types"
)

// JobsHandler reports the status of queued and running jobs
type JobsHandler struct {
	jobs JobQueue
}

// NewJobsHandler creates a new jobs handler
func NewJobsHandler(jobs JobQueue) *JobsHandler {
	return &JobsHandler{jobs: jobs}
}

// Get returns one job's status, warnings and failed chunk ordinals
func (h *JobsHandler) Get(c *fiber.Ctx) error {
	status, ok := h.jobs.GetJob(c.Params("id"))
	if !ok {
		return errorJSON(c, fiber.StatusNotFound, "Job not found", "ERR_JOB_NOT_FOUND")
	}
	return c.JSON(status)
}

// TranscriptStore is the metadata lookup the transcript routes need
type TranscriptStore interface {
	GetTranscript(jobID string) (*types.TranscriptRecord, error)
	ListTranscripts(limit int) ([]types.TranscriptRecord, error)
}

// TranscriptsHandler serves stored transcripts
type TranscriptsHandler struct {
	store TranscriptStore
}

// NewTranscriptsHandler creates a new transcripts handler
func NewTranscriptsHandler(store TranscriptStore) *TranscriptsHandler {
	return &TranscriptsHandler{store: store}
}

// List returns the newest transcripts' metadata
func (h *TranscriptsHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 500 {
		return errorJSON(c, fiber.StatusBadRequest, "limit must be between 1 and 500", "ERR_INVALID_LIMIT")
	}

	transcripts, err := h.store.ListTranscripts(limit)
	if err != nil {
		log.Printf("Failed to list transcripts: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, err.Error(), "ERR_DATABASE")
	}
	return c.JSON(transcripts)
}

// Text returns the plain transcript text
func (h *TranscriptsHandler) Text(c *fiber.Ctx) error {
	transcript, err := h.store.GetTranscript(c.Params("id"))
	if errors.Is(err, storage.ErrNotFound) {
		return errorJSON(c, fiber.StatusNotFound, "Transcript not found", "ERR_NOT_FOUND")
	}
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, err.Error(), "ERR_DATABASE")
	}
	if transcript.LocalPath == "" {
		return errorJSON(c, fiber.StatusNotFound, "Transcript file path not found", "ERR_NOT_FOUND")
	}

	content, err := os.ReadFile(transcript.LocalPath)
	if err != nil {
		log.Printf("Failed to read transcript %s: %v", transcript.LocalPath, err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to read transcript file", "ERR_READ_FAILED")
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Send(content)
}
