package media

import (
	"context"
	"log"
	"strings"
)

// Toolchain describes whether ffmpeg and ffprobe can be invoked.
// It is computed once at startup and handed to the pipeline explicitly.
type Toolchain struct {
	Available     bool
	FFmpegPath    string
	FFprobePath   string
	FFmpegVersion string
}

// DetectToolchain runs the version command of both tools
func DetectToolchain(ctx context.Context, runner Runner, ffmpegPath, ffprobePath string) Toolchain {
	if runner == nil {
		runner = ExecRunner{}
	}
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}

	tc := Toolchain{
		FFmpegPath:  ffmpegPath,
		FFprobePath: ffprobePath,
	}

	res, err := runner.Run(ctx, ffmpegPath, "-version")
	if err != nil {
		log.Printf("WARNING: ffmpeg not available (%s): %v", ffmpegPath, err)
		return tc
	}
	tc.FFmpegVersion = firstLine(res.Stdout)

	if _, err := runner.Run(ctx, ffprobePath, "-version"); err != nil {
		log.Printf("WARNING: ffprobe not available (%s): %v", ffprobePath, err)
		return tc
	}

	tc.Available = true
	log.Printf("Media toolchain ready: %s", tc.FFmpegVersion)
	return tc
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
