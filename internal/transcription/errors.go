package transcription

import (
	"errors"
	"fmt"
)

var (
	// ErrToolchainUnavailable is returned when a file exceeds the size budget
	// and ffmpeg is not installed to compress or split it
	ErrToolchainUnavailable = errors.New("file too large and media toolchain unavailable")

	// ErrAllChunksFailed is returned when no chunk produced any text
	ErrAllChunksFailed = errors.New("all chunks failed to transcribe")
)

// TranscriptionError reports a failed call to the transcription backend
type TranscriptionError struct {
	Path       string
	StatusCode int
	Body       string
	Err        error
}

func (e *TranscriptionError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("transcription of %s failed (status %d): %s", e.Path, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("transcription of %s failed (status %d)", e.Path, e.StatusCode)
	case e.Body != "":
		return fmt.Sprintf("transcription of %s failed: %v: %s", e.Path, e.Err, e.Body)
	default:
		return fmt.Sprintf("transcription of %s failed: %v", e.Path, e.Err)
	}
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}

// SplitError reports a fatal failure while cutting the source into chunks
type SplitError struct {
	Chunk int
	Start float64
	Err   error
}

func (e *SplitError) Error() string {
	return fmt.Sprintf("split failed at chunk %d (%.2fs): %v", e.Chunk, e.Start, e.Err)
}

func (e *SplitError) Unwrap() error {
	return e.Err
}
