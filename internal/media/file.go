package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Kind is the broad media category of a file
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

var audioExtensions = []string{".mp3", ".wav", ".m4a", ".ogg", ".flac", ".webm", ".aac", ".wma", ".opus"}

var videoExtensions = []string{".mp4", ".mov", ".mkv", ".avi", ".m4v"}

// KindFromPath derives the media kind from the file extension
func KindFromPath(path string) (Kind, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range audioExtensions {
		if ext == e {
			return KindAudio, true
		}
	}
	for _, e := range videoExtensions {
		if ext == e {
			return KindVideo, true
		}
	}
	return "", false
}

// DurationProber reads the duration of a media file in seconds
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// File is a media file on disk. The duration is probed lazily and cached on
// this value only, so a replaced file has to be reopened and probed again.
type File struct {
	Path string
	Size int64
	Kind Kind

	duration float64
	probed   bool
}

// Open stats path and derives its kind
func Open(path string) (*File, error) {
	kind, ok := KindFromPath(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat media file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("media path is a directory: %s", path)
	}

	return &File{
		Path: path,
		Size: info.Size(),
		Kind: kind,
	}, nil
}

// Ext returns the lowercased extension including the dot
func (f *File) Ext() string {
	return strings.ToLower(filepath.Ext(f.Path))
}

// Duration returns the probed duration, invoking the prober on first use
func (f *File) Duration(ctx context.Context, prober DurationProber) (float64, error) {
	if f.probed {
		return f.duration, nil
	}
	d, err := prober.Duration(ctx, f.Path)
	if err != nil {
		return 0, err
	}
	f.duration = d
	f.probed = true
	return d, nil
}
