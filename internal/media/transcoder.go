package media

import (
	"context"
	"strconv"
)

// TranscoderSettings controls the lossy compression parameters
type TranscoderSettings struct {
	AudioBitrate      string // e.g. "64k"
	VideoCRF          int    // libx264 constant rate factor
	VideoPreset       string // libx264 speed preset
	VideoAudioBitrate string // audio bitrate inside compressed video
}

// DefaultTranscoderSettings returns the settings used when none are configured
func DefaultTranscoderSettings() TranscoderSettings {
	return TranscoderSettings{
		AudioBitrate:      "64k",
		VideoCRF:          28,
		VideoPreset:       "veryfast",
		VideoAudioBitrate: "64k",
	}
}

// Transcoder wraps the ffmpeg operations the pipeline needs. Every operation
// writes dst, overwriting it if present, and never retries.
type Transcoder struct {
	ffmpegPath string
	runner     Runner
	settings   TranscoderSettings
}

// NewTranscoder creates a transcoder using the given ffmpeg binary
func NewTranscoder(ffmpegPath string, runner Runner, settings TranscoderSettings) *Transcoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	defaults := DefaultTranscoderSettings()
	if settings.AudioBitrate == "" {
		settings.AudioBitrate = defaults.AudioBitrate
	}
	if settings.VideoCRF <= 0 {
		settings.VideoCRF = defaults.VideoCRF
	}
	if settings.VideoPreset == "" {
		settings.VideoPreset = defaults.VideoPreset
	}
	if settings.VideoAudioBitrate == "" {
		settings.VideoAudioBitrate = defaults.VideoAudioBitrate
	}
	return &Transcoder{
		ffmpegPath: ffmpegPath,
		runner:     runner,
		settings:   settings,
	}
}

// ExtractAudio converts src to 16kHz mono 16-bit PCM WAV
func (t *Transcoder) ExtractAudio(ctx context.Context, src, dst string) error {
	return t.run(ctx, "extract audio", src, dst,
		"-i", src,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
	)
}

// CompressAudio re-encodes src at a low fixed bitrate and 16kHz sample rate
func (t *Transcoder) CompressAudio(ctx context.Context, src, dst string) error {
	return t.run(ctx, "compress audio", src, dst,
		"-i", src,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-b:a", t.settings.AudioBitrate,
	)
}

// CompressVideo re-encodes src with libx264 and a reduced audio bitrate
func (t *Transcoder) CompressVideo(ctx context.Context, src, dst string) error {
	return t.run(ctx, "compress video", src, dst,
		"-i", src,
		"-c:v", "libx264",
		"-preset", t.settings.VideoPreset,
		"-crf", strconv.Itoa(t.settings.VideoCRF),
		"-c:a", "aac",
		"-b:a", t.settings.VideoAudioBitrate,
	)
}

// ExtractTimeRange remuxes [start, start+length) of src without re-encoding
func (t *Transcoder) ExtractTimeRange(ctx context.Context, src, dst string, start, length float64) error {
	return t.run(ctx, "extract time range", src, dst,
		"-ss", formatSeconds(start),
		"-i", src,
		"-t", formatSeconds(length),
		"-map", "0",
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
	)
}

func (t *Transcoder) run(ctx context.Context, op, src, dst string, args ...string) error {
	full := make([]string, 0, len(args)+5)
	full = append(full, "-hide_banner", "-loglevel", "error", "-y")
	full = append(full, args...)
	full = append(full, dst)

	res, err := t.runner.Run(ctx, t.ffmpegPath, full...)
	if err != nil {
		return &TranscodeError{
			Op:     op,
			Src:    src,
			Dst:    dst,
			Output: res.Diagnostic(),
			Err:    err,
		}
	}
	return nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
