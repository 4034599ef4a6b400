package handlers

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/codebuildervaibhav/media-transcription/internal/media"
	"github.com/codebuildervaibhav/media-transcription/internal/queue"
	"github.com/codebuildervaibhav/media-transcription/internal/types"
)

// TitleFetcher looks up a human readable title for a page
type TitleFetcher func(ctx context.Context, pageURL string) (string, error)

// YouTubeHandler imports the audio track of a YouTube video
type YouTubeHandler struct {
	jobs         JobQueue
	runner       media.Runner
	ytDlpPath    string
	tempDir      string
	fetchTitle   TitleFetcher
	timeout      time.Duration
	titleTimeout time.Duration
}

// NewYouTubeHandler creates a new YouTube handler
func NewYouTubeHandler(jobs JobQueue, runner media.Runner, tempDir string) *YouTubeHandler {
	if runner == nil {
		runner = media.ExecRunner{}
	}
	return &YouTubeHandler{
		jobs:         jobs,
		runner:       runner,
		ytDlpPath:    "yt-dlp",
		tempDir:      tempDir,
		fetchTitle:   ChromeTitle,
		timeout:      30 * time.Minute,
		titleTimeout: 45 * time.Second,
	}
}

// YouTubeRequest represents the request body
type YouTubeRequest struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

var youtubeHosts = map[string]bool{
	"youtube.com":       true,
	"www.youtube.com":   true,
	"m.youtube.com":     true,
	"music.youtube.com": true,
	"youtu.be":          true,
}

func validYouTubeURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	return youtubeHosts[strings.ToLower(u.Hostname())]
}

// Handle starts a capture in the background and returns the job id at once
func (h *YouTubeHandler) Handle(c *fiber.Ctx) error {
	var req YouTubeRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body", "ERR_INVALID_BODY")
	}
	if req.URL == "" {
		return errorJSON(c, fiber.StatusBadRequest, "URL is required", "ERR_NO_URL")
	}
	if !validYouTubeURL(req.URL) {
		return errorJSON(c, fiber.StatusBadRequest, "Not a YouTube URL", "ERR_INVALID_URL")
	}

	jobID := uuid.New().String()
	job := queue.NewJob(jobID, req.Name, types.SourceYouTube, "")
	h.jobs.TrackPending(job)

	// Long videos take minutes to download
	go h.capture(job, req.URL)

	return c.JSON(fiber.Map{
		"job_id":  jobID,
		"status":  types.StatusCapturing,
		"message": "YouTube audio capture started (this may take a few minutes for long videos)",
	})
}

func (h *YouTubeHandler) capture(job *queue.Job, videoURL string) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	name := job.Snapshot().RequestName
	if name == "" {
		name = h.lookupTitle(ctx, videoURL)
	}

	path, err := h.download(ctx, job.ID, videoURL)
	if err != nil {
		log.Printf("Failed to capture YouTube audio: %v", err)
		job.MarkFailed(err)
		return
	}

	job.SetSource(name, path)
	if err := h.jobs.EnqueueJob(job); err != nil {
		os.Remove(path)
		job.MarkFailed(err)
	}
}

// lookupTitle never fails; a missing title falls back to a fixed name
func (h *YouTubeHandler) lookupTitle(ctx context.Context, videoURL string) string {
	if h.fetchTitle == nil {
		return "youtube_video"
	}
	tctx, cancel := context.WithTimeout(ctx, h.titleTimeout)
	defer cancel()

	title, err := h.fetchTitle(tctx, videoURL)
	title = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(title), "- YouTube"))
	if err != nil || title == "" {
		if err != nil {
			log.Printf("Could not read video title: %v", err)
		}
		return "youtube_video"
	}
	return title
}

// download runs yt-dlp and returns the path of the extracted opus file
func (h *YouTubeHandler) download(ctx context.Context, jobID, videoURL string) (string, error) {
	log.Printf("Using yt-dlp to download: %s", videoURL)

	template := filepath.Join(h.tempDir, jobID+".%(ext)s")
	res, err := h.runner.Run(ctx, h.ytDlpPath,
		"-x",
		"--audio-format", "opus",
		"--no-playlist",
		"-o", template,
		videoURL,
	)
	if err != nil {
		return "", fmt.Errorf("yt-dlp failed: %w\nOutput: %s", err, res.Diagnostic())
	}

	path := filepath.Join(h.tempDir, jobID+".opus")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("yt-dlp produced no audio file: %w", err)
	}

	log.Printf("YouTube audio downloaded successfully")
	return path, nil
}

// ChromeTitle loads the page in headless Chrome and reads its title
func ChromeTitle(ctx context.Context, pageURL string) (string, error) {
	ctx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	var title string
	err := chromedp.Run(ctx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.Evaluate(`(document.querySelector('meta[name="title"]') || {}).content || document.title`,
			&title, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
				return p.WithAwaitPromise(true)
			}),
	)
	if err != nil {
		return "", fmt.Errorf("failed to read page title: %w", err)
	}
	return title, nil
}
