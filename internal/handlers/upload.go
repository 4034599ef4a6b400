package handlers

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/codebuildervaibhav/media-transcription/internal/media"
	"github.com/codebuildervaibhav/media-transcription/internal/queue"
	"github.com/codebuildervaibhav/media-transcription/internal/types"
)

// UploadHandler handles file uploads
type UploadHandler struct {
	jobs      JobQueue
	tempDir   string
	maxSizeMB int
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(jobs JobQueue, tempDir string, maxSizeMB int) *UploadHandler {
	return &UploadHandler{
		jobs:      jobs,
		tempDir:   tempDir,
		maxSizeMB: maxSizeMB,
	}
}

// Handle processes the upload request
func (h *UploadHandler) Handle(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "No file uploaded", "ERR_NO_FILE")
	}

	requestName := strings.TrimSpace(c.FormValue("name"))
	if requestName == "" {
		requestName = strings.TrimSuffix(filepath.Base(file.Filename), filepath.Ext(file.Filename))
	}
	if requestName == "" {
		requestName = "untitled"
	}

	maxSize := int64(h.maxSizeMB) * 1024 * 1024
	if file.Size > maxSize {
		return errorJSON(c, fiber.StatusRequestEntityTooLarge,
			fmt.Sprintf("File too large (max %s)", humanize.IBytes(uint64(maxSize))), "ERR_FILE_TOO_LARGE")
	}
	if file.Size == 0 {
		return errorJSON(c, fiber.StatusBadRequest, "Uploaded file is empty", "ERR_EMPTY_FILE")
	}

	kind, ok := media.KindFromPath(file.Filename)
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "Unsupported media format", "ERR_INVALID_FORMAT")
	}

	jobID := uuid.New().String()
	tempPath := filepath.Join(h.tempDir, jobID+strings.ToLower(filepath.Ext(file.Filename)))

	if err := c.SaveFile(file, tempPath); err != nil {
		log.Printf("Failed to save uploaded file: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to save file", "ERR_SAVE_FAILED")
	}

	job := queue.NewJob(jobID, requestName, types.SourceUpload, tempPath)
	if err := h.jobs.EnqueueJob(job); err != nil {
		os.Remove(tempPath)
		return enqueueError(c, err)
	}

	return c.JSON(fiber.Map{
		"job_id":  jobID,
		"status":  types.StatusQueued,
		"kind":    kind,
		"size":    humanize.IBytes(uint64(file.Size)),
		"message": "File uploaded successfully, processing started",
	})
}
