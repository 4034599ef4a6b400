package transcription

import (
	"fmt"
	"time"
)

// Backend names accepted by NewBackend
const (
	BackendGroq    = "groq"
	BackendOpenAI  = "openai"
	BackendWhisper = "whisper-local"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// BackendConfig selects and configures a transcription backend
type BackendConfig struct {
	Backend  string
	BaseURL  string
	APIKey   string
	Model    string
	Language string
	Timeout  time.Duration

	// local whisper only
	PythonCmd string
	ModelPath string
	TempDir   string
}

// NewBackend builds the configured Transcriber
func NewBackend(bc BackendConfig) (Transcriber, error) {
	switch bc.Backend {
	case BackendGroq, "":
		return NewAPIClient(bc.BaseURL, bc.APIKey, bc.Model, bc.Language, bc.Timeout), nil
	case BackendOpenAI:
		baseURL, model := bc.BaseURL, bc.Model
		if baseURL == "" {
			baseURL = defaultOpenAIBaseURL
		}
		if model == "" {
			model = "whisper-1"
		}
		return NewAPIClient(baseURL, bc.APIKey, model, bc.Language, bc.Timeout), nil
	case BackendWhisper:
		return NewWhisperTranscriber(bc.PythonCmd, bc.ModelPath, bc.Language, bc.TempDir), nil
	default:
		return nil, fmt.Errorf("unknown transcription backend %q", bc.Backend)
	}
}
