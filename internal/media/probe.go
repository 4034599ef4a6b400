package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ProbeFormat is the container section of ffprobe's JSON output
type ProbeFormat struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

// ProbeStream is one stream entry of ffprobe's JSON output
type ProbeStream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	SampleRate string `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
}

// ProbeResult holds the metadata ffprobe reports for a file
type ProbeResult struct {
	Format  ProbeFormat   `json:"format"`
	Streams []ProbeStream `json:"streams"`
}

// HasVideo reports whether any stream is a video stream
func (pr *ProbeResult) HasVideo() bool {
	for _, s := range pr.Streams {
		if s.CodecType == "video" {
			return true
		}
	}
	return false
}

// Prober wraps the ffprobe command
type Prober struct {
	ffprobePath string
	runner      Runner
}

// NewProber creates a prober using the given ffprobe binary
func NewProber(ffprobePath string, runner Runner) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Prober{
		ffprobePath: ffprobePath,
		runner:      runner,
	}
}

// Probe runs ffprobe and decodes its format and stream information
func (p *Prober) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	if path == "" {
		return nil, &ProbeError{Path: path, Err: errors.New("source path cannot be empty")}
	}

	res, err := p.runner.Run(ctx, p.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		return nil, &ProbeError{Path: path, Output: res.Diagnostic(), Err: fmt.Errorf("ffprobe failed: %w", err)}
	}

	var result ProbeResult
	if err := json.Unmarshal([]byte(res.Stdout), &result); err != nil {
		return nil, &ProbeError{Path: path, Output: res.Stdout, Err: fmt.Errorf("failed to parse ffprobe JSON output: %w", err)}
	}

	return &result, nil
}

// Duration returns the container duration in seconds
func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	result, err := p.Probe(ctx, path)
	if err != nil {
		return 0, err
	}

	raw := strings.TrimSpace(result.Format.Duration)
	if raw == "" {
		return 0, &ProbeError{Path: path, Err: errors.New("duration not available in format metadata")}
	}

	duration, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &ProbeError{Path: path, Output: raw, Err: fmt.Errorf("failed to parse duration: %w", err)}
	}
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration < 0 {
		return 0, &ProbeError{Path: path, Output: raw, Err: fmt.Errorf("invalid duration %q", raw)}
	}

	return duration, nil
}
