package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	Transcription struct {
		Backend        string `yaml:"backend"` // groq, openai or whisper-local
		BaseURL        string `yaml:"base_url"`
		Model          string `yaml:"model"`
		Language       string `yaml:"language"`
		APIKey         string `yaml:"api_key"`
		Attempts       int    `yaml:"attempts"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"transcription"`

	Pipeline struct {
		SizeBudgetMB         int    `yaml:"size_budget_mb"`
		Workers              int    `yaml:"workers"`
		MaxResplitDepth      int    `yaml:"max_resplit_depth"`
		PassthroughOversized bool   `yaml:"passthrough_oversized"`
		FailureMarker        string `yaml:"failure_marker"`
		AudioBitrate         string `yaml:"audio_bitrate"`
		VideoCRF             int    `yaml:"video_crf"`
		VideoPreset          string `yaml:"video_preset"`
		VideoAudioBitrate    string `yaml:"video_audio_bitrate"`
	} `yaml:"pipeline"`

	Toolchain struct {
		FFmpeg  string `yaml:"ffmpeg"`
		FFprobe string `yaml:"ffprobe"`
	} `yaml:"toolchain"`

	Whisper struct {
		PythonCmd string `yaml:"python_cmd"`
		ModelPath string `yaml:"model_path"`
	} `yaml:"whisper"`

	Workers struct {
		Count     int `yaml:"count"`
		QueueSize int `yaml:"queue_size"`
	} `yaml:"workers"`

	Storage struct {
		TempDir   string `yaml:"temp_dir"`
		OutputDir string `yaml:"output_dir"`
		Database  string `yaml:"database"`
	} `yaml:"storage"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`

	GoogleDrive struct {
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
		FolderName      string `yaml:"folder_name"`
	} `yaml:"google_drive"`

	Limits struct {
		MaxFileSizeMB int `yaml:"max_file_size_mb"`
	} `yaml:"limits"`

	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		Issuer    string `yaml:"issuer"`
	} `yaml:"auth"`
}

// Default returns the configuration used for every key the file leaves out
func Default() *Config {
	var c Config

	c.Server.Host = "0.0.0.0"
	c.Server.Port = 8080

	c.Transcription.Backend = "groq"
	c.Transcription.Language = "en"
	c.Transcription.Attempts = 3
	c.Transcription.TimeoutSeconds = 600

	// Well under Groq's 25 MB upload cap; chunks also stay short enough to retry cheaply
	c.Pipeline.SizeBudgetMB = 10
	c.Pipeline.Workers = 2
	c.Pipeline.MaxResplitDepth = 2
	c.Pipeline.AudioBitrate = "64k"
	c.Pipeline.VideoCRF = 28
	c.Pipeline.VideoPreset = "veryfast"
	c.Pipeline.VideoAudioBitrate = "64k"

	c.Toolchain.FFmpeg = "ffmpeg"
	c.Toolchain.FFprobe = "ffprobe"

	c.Whisper.PythonCmd = "python"
	c.Whisper.ModelPath = "small"

	c.Workers.Count = 2
	c.Workers.QueueSize = 100

	c.Storage.TempDir = "temp"
	c.Storage.OutputDir = "outputs"
	c.Storage.Database = "transcripts.db"

	c.Cleanup.IntervalMinutes = 30
	c.Cleanup.MaxAgeHours = 24

	c.GoogleDrive.CredentialsFile = "config/credentials.json"
	c.GoogleDrive.TokenFile = "config/token.json"
	c.GoogleDrive.FolderName = "Transcripts"

	c.Limits.MaxFileSizeMB = 2048

	return &c
}

// Load reads path and decodes it over the defaults. A missing file yields
// the defaults alone.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv fills secrets the file left empty
func (c *Config) applyEnv() {
	if c.Transcription.APIKey == "" {
		switch c.Transcription.Backend {
		case "openai":
			c.Transcription.APIKey = os.Getenv("OPENAI_API_KEY")
		default:
			c.Transcription.APIKey = os.Getenv("GROQ_API_KEY")
		}
	}
	if c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = os.Getenv("TRANSCRIBE_JWT_SECRET")
	}
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		add("server.port must be between 1 and 65535")
	}

	switch c.Transcription.Backend {
	case "groq", "openai", "whisper-local":
	default:
		add("transcription.backend %q is not one of groq, openai, whisper-local", c.Transcription.Backend)
	}
	if c.Transcription.Attempts < 1 {
		add("transcription.attempts must be at least 1")
	}

	if c.Pipeline.SizeBudgetMB <= 0 {
		add("pipeline.size_budget_mb must be positive")
	}
	if c.Pipeline.Workers < 1 {
		add("pipeline.workers must be at least 1")
	}
	if c.Pipeline.MaxResplitDepth < 0 {
		add("pipeline.max_resplit_depth must not be negative")
	}
	if c.Pipeline.VideoCRF < 0 || c.Pipeline.VideoCRF > 51 {
		add("pipeline.video_crf must be between 0 and 51")
	}

	if c.Workers.Count < 1 {
		add("workers.count must be at least 1")
	}
	if c.Storage.TempDir == "" || c.Storage.OutputDir == "" || c.Storage.Database == "" {
		add("storage.temp_dir, storage.output_dir and storage.database are required")
	}
	if c.Limits.MaxFileSizeMB <= 0 {
		add("limits.max_file_size_mb must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// SizeBudget is the per-request upload budget in bytes
func (c *Config) SizeBudget() int64 {
	return int64(c.Pipeline.SizeBudgetMB) * 1024 * 1024
}

// TranscriptionTimeout bounds a single backend request
func (c *Config) TranscriptionTimeout() time.Duration {
	return time.Duration(c.Transcription.TimeoutSeconds) * time.Second
}

// Addr is the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
