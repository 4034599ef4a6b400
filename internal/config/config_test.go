package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "from-env")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Pipeline.Workers != 2 || cfg.Transcription.Backend != "groq" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Transcription.APIKey != "from-env" {
		t.Errorf("api key = %q, want value from GROQ_API_KEY", cfg.Transcription.APIKey)
	}
	if cfg.SizeBudget() != 10*1024*1024 {
		t.Errorf("SizeBudget() = %d", cfg.SizeBudget())
	}
	if cfg.TranscriptionTimeout() != 10*time.Minute {
		t.Errorf("TranscriptionTimeout() = %v", cfg.TranscriptionTimeout())
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")

	path := writeConfig(t, `
server:
  port: 9090
transcription:
  backend: openai
  api_key: file-key
pipeline:
  size_budget_mb: 20
  workers: 4
  passthrough_oversized: true
storage:
  temp_dir: /tmp/scratch
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Addr() != "0.0.0.0:9090" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Transcription.APIKey != "file-key" {
		t.Errorf("file key must win over env, got %q", cfg.Transcription.APIKey)
	}
	if cfg.SizeBudget() != 20*1024*1024 || cfg.Pipeline.Workers != 4 || !cfg.Pipeline.PassthroughOversized {
		t.Errorf("pipeline = %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.VideoPreset != "veryfast" {
		t.Errorf("unset keys keep defaults, got preset %q", cfg.Pipeline.VideoPreset)
	}
	if cfg.Storage.TempDir != "/tmp/scratch" || cfg.Storage.OutputDir != "outputs" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad yaml", "server: [", "failed to parse"},
		{"unknown backend", "transcription:\n  backend: fax\n", "transcription.backend"},
		{"zero budget", "pipeline:\n  size_budget_mb: 0\n", "size_budget_mb"},
		{"no workers", "pipeline:\n  workers: 0\n", "pipeline.workers"},
		{"bad port", "server:\n  port: 70000\n", "server.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
