package handlers

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/codebuildervaibhav/media-transcription/internal/media"
	"github.com/codebuildervaibhav/media-transcription/internal/queue"
	"github.com/codebuildervaibhav/media-transcription/internal/types"
)

// StreamHandler accepts a finished recording over a WebSocket. The client
// sends an optional name and "FORMAT:<ext>" as text frames, the recording
// as binary frames, then "END". The recording becomes a regular job.
type StreamHandler struct {
	jobs     JobQueue
	tempDir  string
	maxBytes int64
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(jobs JobQueue, tempDir string, maxSizeMB int) *StreamHandler {
	return &StreamHandler{
		jobs:     jobs,
		tempDir:  tempDir,
		maxBytes: int64(maxSizeMB) * 1024 * 1024,
	}
}

var errRecordingTooLarge = errors.New("recording too large")

// messageReader is the read side of a WebSocket connection
type messageReader interface {
	ReadMessage() (int, []byte, error)
}

// recording is what a client sent before END
type recording struct {
	name string
	ext  string
	size int64
}

// receiveRecording writes binary frames to path until END. A connection
// that closes before END still yields whatever was received.
func receiveRecording(conn messageReader, path string, maxBytes int64) (*recording, error) {
	rec := &recording{ext: ".webm"}

	out, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream file: %w", err)
	}
	defer out.Close()

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			log.Printf("WebSocket read ended: %v", err)
			break
		}

		if messageType == websocket.TextMessage {
			msg := strings.TrimSpace(string(message))
			switch {
			case msg == "END":
				return rec, nil
			case strings.HasPrefix(msg, "FORMAT:"):
				ext := strings.ToLower(strings.TrimPrefix(msg, "FORMAT:"))
				if !strings.HasPrefix(ext, ".") {
					ext = "." + ext
				}
				// ext becomes part of the temp path, so it must be a bare extension
				if ext != filepath.Ext(ext) || strings.ContainsAny(ext, `/\`) {
					return nil, fmt.Errorf("%w: invalid format %q", media.ErrUnsupportedFormat, ext)
				}
				if _, ok := media.KindFromPath("x" + ext); !ok {
					return nil, fmt.Errorf("%w: %s", media.ErrUnsupportedFormat, ext)
				}
				rec.ext = ext
			case len(msg) > 0 && len(msg) < 200:
				rec.name = msg
			}
			continue
		}

		if messageType == websocket.BinaryMessage {
			if rec.size+int64(len(message)) > maxBytes {
				return nil, errRecordingTooLarge
			}
			if _, err := out.Write(message); err != nil {
				return nil, fmt.Errorf("failed to write stream file: %w", err)
			}
			rec.size += int64(len(message))
		}
	}

	return rec, nil
}

// Handle processes WebSocket connections
func (h *StreamHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	jobID := uuid.New().String()
	partPath := filepath.Join(h.tempDir, jobID+".part")
	log.Printf("WebSocket connection established: %s", jobID)

	reply := func(format string, args ...interface{}) {
		c.WriteMessage(websocket.TextMessage, []byte(fmt.Sprintf(format, args...)))
	}

	rec, err := receiveRecording(c, partPath, h.maxBytes)
	if err != nil {
		os.Remove(partPath)
		log.Printf("Stream %s rejected: %v", jobID, err)
		reply(`{"error":%q}`, err.Error())
		return
	}
	if rec.size == 0 {
		os.Remove(partPath)
		log.Printf("No audio data received in stream %s", jobID)
		reply(`{"error":"no audio received"}`)
		return
	}

	tempPath := filepath.Join(h.tempDir, jobID+rec.ext)
	if err := os.Rename(partPath, tempPath); err != nil {
		os.Remove(partPath)
		log.Printf("Failed to save stream %s: %v", jobID, err)
		reply(`{"error":"failed to save recording"}`)
		return
	}
	log.Printf("Stream saved to %s (%s)", tempPath, humanize.IBytes(uint64(rec.size)))

	name := rec.name
	if name == "" {
		name = "stream_recording"
	}

	job := queue.NewJob(jobID, name, types.SourceStream, tempPath)
	if err := h.jobs.EnqueueJob(job); err != nil {
		os.Remove(tempPath)
		reply(`{"error":%q}`, err.Error())
		return
	}

	reply(`{"job_id":%q,"status":%q}`, jobID, types.StatusQueued)
}
