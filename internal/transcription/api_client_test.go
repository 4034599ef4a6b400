package transcription

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chunk_0001.mp3")
	if err := os.WriteFile(path, []byte("ID3 fake audio"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAPIClient_Transcribe(t *testing.T) {
	var (
		gotAuth   string
		gotFields = map[string]string{}
		gotFile   string
		gotName   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, k := range []string{"model", "response_format", "language", "temperature"} {
			gotFields[k] = r.FormValue(k)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		gotFile = string(data)
		gotName = hdr.Filename

		w.Write([]byte("  hello from the chunk \n"))
	}))
	defer srv.Close()

	client := NewAPIClient(srv.URL+"/v1/", "secret", "", "", time.Second)
	text, err := client.Transcribe(context.Background(), writeAudio(t))
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}

	if text != "hello from the chunk" {
		t.Errorf("text = %q", text)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	want := map[string]string{
		"model":           DefaultGroqModel,
		"response_format": "text",
		"language":        "en",
		"temperature":     "0",
	}
	for k, v := range want {
		if gotFields[k] != v {
			t.Errorf("field %s = %q, want %q", k, gotFields[k], v)
		}
	}
	if gotFile != "ID3 fake audio" || gotName != "chunk_0001.mp3" {
		t.Errorf("uploaded file = %q (%s)", gotFile, gotName)
	}
	if client.Name() != "api:"+DefaultGroqModel {
		t.Errorf("Name() = %q", client.Name())
	}
}

func TestAPIClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		w.Write([]byte(strings.Repeat("e", 5000)))
	}))
	defer srv.Close()

	client := NewAPIClient(srv.URL, "secret", "whisper-large-v3", "en", time.Second)
	_, err := client.Transcribe(context.Background(), writeAudio(t))

	var tErr *TranscriptionError
	if !errors.As(err, &tErr) {
		t.Fatalf("expected *TranscriptionError, got %v", err)
	}
	if tErr.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d", tErr.StatusCode)
	}
	if len(tErr.Body) != maxErrorBody {
		t.Errorf("body length = %d, want %d", len(tErr.Body), maxErrorBody)
	}
}

func TestAPIClient_MissingKey(t *testing.T) {
	client := NewAPIClient("http://127.0.0.1:1", "", "", "", time.Second)
	_, err := client.Transcribe(context.Background(), writeAudio(t))
	var tErr *TranscriptionError
	if !errors.As(err, &tErr) {
		t.Fatalf("expected *TranscriptionError, got %v", err)
	}
}

func TestAPIClient_MissingFile(t *testing.T) {
	client := NewAPIClient("http://127.0.0.1:1", "key", "", "", time.Second)
	if _, err := client.Transcribe(context.Background(), filepath.Join(t.TempDir(), "nope.mp3")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestNewBackend(t *testing.T) {
	tests := []struct {
		name     string
		cfg      BackendConfig
		wantName string
		wantErr  bool
	}{
		{"default is groq", BackendConfig{}, "api:" + DefaultGroqModel, false},
		{"openai", BackendConfig{Backend: BackendOpenAI}, "api:whisper-1", false},
		{"groq custom model", BackendConfig{Backend: BackendGroq, Model: "distil-whisper"}, "api:distil-whisper", false},
		{"local whisper", BackendConfig{Backend: BackendWhisper, ModelPath: "models/ggml-base.bin"}, "whisper-base", false},
		{"unknown", BackendConfig{Backend: "carrier-pigeon"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := NewBackend(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewBackend() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && tr.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", tr.Name(), tt.wantName)
			}
		})
	}
}

func TestParseWhisperOutput(t *testing.T) {
	text, err := parseWhisperOutput([]byte(`{"text":"  Hello world. ","language":"en","segments":[]}`))
	if err != nil {
		t.Fatal(err)
	}
	if text != "Hello world." {
		t.Errorf("text = %q", text)
	}
	if _, err := parseWhisperOutput([]byte("not json")); err == nil {
		t.Error("expected parse error")
	}
}

func TestTranscriptionError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *TranscriptionError
		want []string
	}{
		{"status and body", &TranscriptionError{Path: "a.wav", StatusCode: 413, Body: "too large"}, []string{"status 413", "too large"}},
		{"status only", &TranscriptionError{Path: "a.wav", StatusCode: 500}, []string{"status 500"}},
		{"process output", &TranscriptionError{Path: "a.wav", Body: "CUDA out of memory", Err: errors.New("whisper failed: exit status 1")}, []string{"exit status 1", "CUDA out of memory"}},
		{"cause only", &TranscriptionError{Path: "a.wav", Err: errors.New("connection reset")}, []string{"connection reset"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, w := range tt.want {
				if !strings.Contains(msg, w) {
					t.Errorf("Error() = %q, missing %q", msg, w)
				}
			}
		})
	}
}
