package handlers

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/codebuildervaibhav/media-transcription/internal/media"
	"github.com/codebuildervaibhav/media-transcription/internal/queue"
	"github.com/codebuildervaibhav/media-transcription/internal/types"
)

// DriveDownloader fetches files through the Drive API
type DriveDownloader interface {
	Download(ctx context.Context, fileID string, w io.Writer) (string, error)
}

const publicDriveURL = "https://drive.google.com/uc?export=download&id=%s"

// GDriveHandler handles Google Drive link processing
type GDriveHandler struct {
	jobs       JobQueue
	drive      DriveDownloader // nil without credentials; public links only
	tempDir    string
	publicURL  string
	httpClient *http.Client
}

// NewGDriveHandler creates a new Google Drive handler
func NewGDriveHandler(jobs JobQueue, drive DriveDownloader, tempDir string) *GDriveHandler {
	return &GDriveHandler{
		jobs:       jobs,
		drive:      drive,
		tempDir:    tempDir,
		publicURL:  publicDriveURL,
		httpClient: &http.Client{Timeout: 30 * time.Minute},
	}
}

// GDriveRequest represents the request body
type GDriveRequest struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// Handle downloads the linked file and enqueues it
func (h *GDriveHandler) Handle(c *fiber.Ctx) error {
	var req GDriveRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body", "ERR_INVALID_BODY")
	}
	if req.URL == "" {
		return errorJSON(c, fiber.StatusBadRequest, "URL is required", "ERR_NO_URL")
	}

	fileID := extractGDriveFileID(req.URL)
	if fileID == "" {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid Google Drive URL", "ERR_INVALID_URL")
	}

	jobID := uuid.New().String()
	partPath := filepath.Join(h.tempDir, jobID+".part")

	log.Printf("Downloading from Google Drive: %s", fileID)
	fileName, err := h.download(c.UserContext(), fileID, partPath)
	if err != nil {
		os.Remove(partPath)
		log.Printf("Failed to download from Google Drive: %v", err)
		return errorJSON(c, fiber.StatusBadGateway,
			"File not accessible (may be private or doesn't exist)", "ERR_FILE_NOT_ACCESSIBLE")
	}

	// Drive share links rarely carry an extension; audio is the common case
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		ext = ".mp3"
	}
	if _, ok := media.KindFromPath(ext); !ok {
		os.Remove(partPath)
		return errorJSON(c, fiber.StatusBadRequest, fmt.Sprintf("Unsupported media format %s", ext), "ERR_INVALID_FORMAT")
	}

	tempPath := filepath.Join(h.tempDir, jobID+ext)
	if err := os.Rename(partPath, tempPath); err != nil {
		os.Remove(partPath)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to save downloaded file", "ERR_SAVE_FAILED")
	}

	name := req.Name
	if name == "" {
		name = strings.TrimSuffix(fileName, filepath.Ext(fileName))
	}
	if name == "" {
		name = "gdrive_file"
	}

	job := queue.NewJob(jobID, name, types.SourceGDrive, tempPath)
	if err := h.jobs.EnqueueJob(job); err != nil {
		os.Remove(tempPath)
		return enqueueError(c, err)
	}

	return c.JSON(fiber.Map{
		"job_id":  jobID,
		"status":  types.StatusQueued,
		"message": "Google Drive file downloaded, processing started",
	})
}

// download writes the file to path and returns its original name if known
func (h *GDriveHandler) download(ctx context.Context, fileID, path string) (string, error) {
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if h.drive != nil {
		name, err := h.drive.Download(ctx, fileID, out)
		if err == nil {
			return name, nil
		}
		log.Printf("Drive API download failed, trying public link: %v", err)
		if err := resetFile(out); err != nil {
			return "", err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(h.publicURL, fileID), nil)
	if err != nil {
		return "", err
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	// A sharing or virus-scan page instead of the file
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		return "", fmt.Errorf("drive returned an HTML page instead of the file")
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", err
	}
	return fileNameFromDisposition(resp.Header.Get("Content-Disposition")), nil
}

func resetFile(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	_, err := f.Seek(0, io.SeekStart)
	return err
}

func fileNameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil || params["filename"] == "" {
		return ""
	}
	return filepath.Base(params["filename"])
}

var (
	driveFilePattern = regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`)
	driveIDParam     = regexp.MustCompile(`[?&]id=([a-zA-Z0-9_-]+)`)
	driveBareID      = regexp.MustCompile(`^([a-zA-Z0-9_-]{25,40})$`)
)

// extractGDriveFileID extracts the file ID from various Google Drive URL formats
func extractGDriveFileID(url string) string {
	// https://drive.google.com/file/d/{ID}/view
	if matches := driveFilePattern.FindStringSubmatch(url); len(matches) > 1 {
		return matches[1]
	}

	// https://drive.google.com/open?id={ID}
	if matches := driveIDParam.FindStringSubmatch(url); len(matches) > 1 {
		return matches[1]
	}

	if matches := driveBareID.FindStringSubmatch(url); len(matches) > 1 {
		return matches[1]
	}

	return ""
}
