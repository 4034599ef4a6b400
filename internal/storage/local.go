package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codebuildervaibhav/media-transcription/internal/types"
)

// LocalStorage handles saving transcripts to the local filesystem
type LocalStorage struct {
	outputDir string
}

// NewLocalStorage creates a new local storage handler
func NewLocalStorage(outputDir string) *LocalStorage {
	return &LocalStorage{
		outputDir: outputDir,
	}
}

// SaveTranscript writes the transcript and its metadata under a dated
// directory and returns the transcript path. result.LocalPath is set.
func (ls *LocalStorage) SaveTranscript(result *types.TranscriptResult) (string, error) {
	now := result.ProcessedAt
	if now.IsZero() {
		now = time.Now()
		result.ProcessedAt = now
	}

	// outputs/2025/01/23/
	dateDir := filepath.Join(ls.outputDir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()))

	if err := os.MkdirAll(dateDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create date directory: %w", err)
	}

	// 20250123_143022_podcast_episode.txt
	baseFilename := fmt.Sprintf("%s_%s", now.Format("20060102_150405"), sanitizeFilename(result.RequestName))
	if result.JobID != "" {
		baseFilename += "_" + shortID(result.JobID)
	}

	txtPath := filepath.Join(dateDir, baseFilename+".txt")
	metaPath := filepath.Join(dateDir, baseFilename+"_meta.json")

	if err := os.WriteFile(txtPath, []byte(result.Text), 0644); err != nil {
		return "", fmt.Errorf("failed to save transcript: %w", err)
	}
	result.LocalPath = txtPath

	metaJSON, err := MetadataJSON(result)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(metaPath, metaJSON, 0644); err != nil {
		return "", fmt.Errorf("failed to save metadata: %w", err)
	}

	return txtPath, nil
}

// MetadataJSON renders the metadata document stored next to a transcript
func MetadataJSON(result *types.TranscriptResult) ([]byte, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return data, nil
}

// CountWords counts whitespace-separated words, ignoring failure marker lines
func CountWords(text, failureMarker string) int {
	count := 0
	for _, line := range strings.Split(text, "\n") {
		if failureMarker != "" && line == failureMarker {
			continue
		}
		count += len(strings.Fields(line))
	}
	return count
}

// sanitizeFilename replaces characters that are invalid in file names
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
	)
	result := replacer.Replace(name)
	if len(result) > 100 {
		result = result[:100]
	}
	if result == "" || result == "." || result == ".." {
		result = "transcript"
	}
	return result
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
