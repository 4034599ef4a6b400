package transcription

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultGroqBaseURL is Groq's OpenAI-compatible API root
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"

	// DefaultGroqModel is the speech model used unless configured otherwise
	DefaultGroqModel = "whisper-large-v3-turbo"

	maxErrorBody = 2048
)

// APIClient calls an OpenAI-compatible /audio/transcriptions endpoint
type APIClient struct {
	baseURL    string
	apiKey     string
	model      string
	language   string
	httpClient *http.Client
}

// NewAPIClient creates a client; empty baseURL and model fall back to Groq defaults
func NewAPIClient(baseURL, apiKey, model, language string, timeout time.Duration) *APIClient {
	if baseURL == "" {
		baseURL = DefaultGroqBaseURL
	}
	if model == "" {
		model = DefaultGroqModel
	}
	if language == "" {
		language = "en"
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &APIClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		model:    model,
		language: language,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name returns the backend name
func (c *APIClient) Name() string {
	return "api:" + c.model
}

// Transcribe uploads audioPath and returns the plain-text transcript
func (c *APIClient) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if c.apiKey == "" {
		return "", &TranscriptionError{Path: audioPath, Err: fmt.Errorf("API key not configured")}
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	audioFile, err := os.Open(audioPath)
	if err != nil {
		return "", &TranscriptionError{Path: audioPath, Err: err}
	}
	defer audioFile.Close()

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", &TranscriptionError{Path: audioPath, Err: err}
	}
	if _, err := io.Copy(part, audioFile); err != nil {
		return "", &TranscriptionError{Path: audioPath, Err: err}
	}

	writer.WriteField("model", c.model)
	writer.WriteField("response_format", "text")
	writer.WriteField("language", c.language)
	writer.WriteField("temperature", "0")
	if err := writer.Close(); err != nil {
		return "", &TranscriptionError{Path: audioPath, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", &TranscriptionError{Path: audioPath, Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TranscriptionError{Path: audioPath, Err: fmt.Errorf("API request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TranscriptionError{Path: audioPath, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return "", &TranscriptionError{
			Path:       audioPath,
			StatusCode: resp.StatusCode,
			Body:       msg,
			Err:        fmt.Errorf("API error (status %d)", resp.StatusCode),
		}
	}

	return strings.TrimSpace(string(body)), nil
}
