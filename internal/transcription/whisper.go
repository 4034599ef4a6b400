package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// WhisperTranscriber wraps Python's OpenAI Whisper for offline transcription
type WhisperTranscriber struct {
	pythonCmd string
	modelName string
	language  string
	tempDir   string
	mu        sync.Mutex // one model run at a time
}

// WhisperModelName extracts the model size from a model name or path
// (e.g. "models/ggml-small.bin" -> "small"), defaulting to small
func WhisperModelName(modelPath string) string {
	for _, name := range []string{"tiny", "base", "small", "medium", "large"} {
		if strings.Contains(modelPath, name) {
			return name
		}
	}
	return "small"
}

// NewWhisperTranscriber creates a transcriber calling `python -m whisper`
func NewWhisperTranscriber(pythonCmd, modelPath, language, tempDir string) *WhisperTranscriber {
	if pythonCmd == "" {
		pythonCmd = "python"
	}
	if language == "" {
		language = "en"
	}
	modelName := WhisperModelName(modelPath)

	log.Printf("Initializing Python Whisper with model: %s", modelName)
	log.Printf("Whisper will be called via: %s -m whisper", pythonCmd)

	return &WhisperTranscriber{
		pythonCmd: pythonCmd,
		modelName: modelName,
		language:  language,
		tempDir:   tempDir,
	}
}

// Name returns the backend name
func (wt *WhisperTranscriber) Name() string {
	return "whisper-" + wt.modelName
}

// Transcribe runs whisper on audioPath and returns the transcript text
func (wt *WhisperTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	wt.mu.Lock()
	defer wt.mu.Unlock()

	outputDir, err := os.MkdirTemp(wt.tempDir, "whisper-*")
	if err != nil {
		return "", &TranscriptionError{Path: audioPath, Err: fmt.Errorf("failed to create output dir: %w", err)}
	}
	defer os.RemoveAll(outputDir)

	absAudioPath, err := filepath.Abs(audioPath)
	if err != nil {
		return "", &TranscriptionError{Path: audioPath, Err: fmt.Errorf("failed to get absolute path: %w", err)}
	}

	cmd := exec.CommandContext(ctx, wt.pythonCmd, "-m", "whisper",
		absAudioPath,
		"--model", wt.modelName,
		"--output_dir", outputDir,
		"--output_format", "json",
		"--language", wt.language,
		"--fp16", "False", // CPU compatibility
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", &TranscriptionError{
			Path: audioPath,
			Body: strings.TrimSpace(string(output)),
			Err:  fmt.Errorf("whisper failed: %w", err),
		}
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonData, err := os.ReadFile(filepath.Join(outputDir, baseName+".json"))
	if err != nil {
		return "", &TranscriptionError{Path: audioPath, Err: fmt.Errorf("failed to read whisper output: %w", err)}
	}

	text, err := parseWhisperOutput(jsonData)
	if err != nil {
		return "", &TranscriptionError{Path: audioPath, Err: err}
	}
	return text, nil
}

// whisperOutput matches Python Whisper's JSON output format
type whisperOutput struct {
	Text string `json:"text"`
}

func parseWhisperOutput(data []byte) (string, error) {
	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("failed to parse whisper JSON: %w", err)
	}
	return strings.TrimSpace(out.Text), nil
}
