package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/codebuildervaibhav/media-transcription/internal/types"
)

func sampleResult() *types.TranscriptResult {
	return &types.TranscriptResult{
		JobID:        "3f2b8c1e-0000-4000-8000-000000000000",
		RequestName:  "weekly: sync/notes",
		SourceType:   types.SourceUpload,
		Text:         "first chunk\n[transcription failed]\nthird chunk",
		Model:        "api:whisper-large-v3-turbo",
		Language:     "en",
		Duration:     100,
		ChunkCount:   3,
		FailedChunks: []int{1},
		Warnings:     []string{"1 of 3 chunks failed to transcribe (ordinals [1])"},
		ProcessedAt:  time.Date(2025, 1, 23, 14, 30, 22, 0, time.UTC),
	}
}

func TestLocalStorage_SaveTranscript(t *testing.T) {
	dir := t.TempDir()
	ls := NewLocalStorage(dir)
	result := sampleResult()

	path, err := ls.SaveTranscript(result)
	if err != nil {
		t.Fatalf("SaveTranscript() error = %v", err)
	}

	wantDir := filepath.Join(dir, "2025", "01", "23")
	if filepath.Dir(path) != wantDir {
		t.Errorf("dir = %s, want %s", filepath.Dir(path), wantDir)
	}
	if base := filepath.Base(path); !strings.HasPrefix(base, "20250123_143022_weekly__sync_notes_3f2b8c1e") {
		t.Errorf("unexpected file name %s", base)
	}
	if result.LocalPath != path {
		t.Errorf("LocalPath = %q, want %q", result.LocalPath, path)
	}

	text, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(text) != result.Text {
		t.Errorf("text = %q", text)
	}

	metaPath := strings.TrimSuffix(path, ".txt") + "_meta.json"
	raw, err := os.ReadFile(metaPath)
	if err != nil {
		t.Fatal(err)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatal(err)
	}
	if meta["chunk_count"] != float64(3) || meta["job_id"] != result.JobID {
		t.Errorf("metadata = %v", meta)
	}
	if _, ok := meta["warnings"]; !ok {
		t.Error("metadata should carry warnings")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"podcast episode", "podcast_episode"},
		{"../../etc/passwd", ".._.._etc_passwd"},
		{"a:b*c?d", "a_b_c_d"},
		{"", "transcript"},
		{"..", "transcript"},
		{strings.Repeat("x", 150), strings.Repeat("x", 100)},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCountWords(t *testing.T) {
	text := "hello there\n[transcription failed]\n general  kenobi "
	if got := CountWords(text, "[transcription failed]"); got != 4 {
		t.Errorf("CountWords() = %d, want 4", got)
	}
}

func TestMetadataDB(t *testing.T) {
	db, err := NewMetadataDB(filepath.Join(t.TempDir(), "transcripts.db"))
	if err != nil {
		t.Fatalf("NewMetadataDB() error = %v", err)
	}
	defer db.Close()

	older := sampleResult()
	older.LocalPath = "/out/older.txt"
	older.WordCount = 4
	if err := db.SaveTranscript(older); err != nil {
		t.Fatalf("SaveTranscript() error = %v", err)
	}

	newer := sampleResult()
	newer.JobID = "job-2"
	newer.LocalPath = "/out/newer.txt"
	newer.FailedChunks = nil
	newer.ProcessedAt = older.ProcessedAt.Add(time.Hour)
	if err := db.SaveTranscript(newer); err != nil {
		t.Fatal(err)
	}

	if err := db.SaveTranscript(newer); err == nil {
		t.Error("duplicate job id should fail")
	}

	rec, err := db.GetTranscript(older.JobID)
	if err != nil {
		t.Fatalf("GetTranscript() error = %v", err)
	}
	if rec.ChunkCount != 3 || rec.FailedChunks != 1 || rec.WordCount != 4 || rec.LocalPath != "/out/older.txt" {
		t.Errorf("record = %+v", rec)
	}

	if _, err := db.GetTranscript("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	list, err := db.ListTranscripts(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].JobID != "job-2" {
		t.Errorf("list = %+v", list)
	}

	limited, err := db.ListTranscripts(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("limit ignored: %d rows", len(limited))
	}
}

func TestFolderQuery(t *testing.T) {
	got := folderQuery("Bob's", "parent1")
	want := `name='Bob\'s' and mimeType='application/vnd.google-apps.folder' and trashed=false and 'parent1' in parents`
	if got != want {
		t.Errorf("folderQuery() =\n%s\nwant\n%s", got, want)
	}
}
