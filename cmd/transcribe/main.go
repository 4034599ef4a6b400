package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/codebuildervaibhav/media-transcription/internal/config"
	"github.com/codebuildervaibhav/media-transcription/internal/media"
	"github.com/codebuildervaibhav/media-transcription/internal/transcription"
)

func main() {
	var (
		configPath  string
		outPath     string
		budgetMB    int
		workers     int
		backend     string
		passthrough bool
		verbose     bool
	)
	flag.StringVar(&configPath, "config", "config/config.yaml", "path to the YAML config file")
	flag.StringVar(&outPath, "out", "", "write the transcript to this file instead of stdout")
	flag.IntVar(&budgetMB, "budget-mb", 0, "override pipeline.size_budget_mb")
	flag.IntVar(&workers, "workers", 0, "override pipeline.workers")
	flag.StringVar(&backend, "backend", "", "override transcription.backend (groq, openai, whisper-local)")
	flag.BoolVar(&passthrough, "passthrough", false, "send oversized files whole when ffmpeg is missing")
	flag.BoolVar(&verbose, "v", false, "log pipeline progress to stderr")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <media-file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	log.SetOutput(os.Stderr)
	if !verbose {
		log.SetOutput(io.Discard)
	}

	if err := run(flag.Arg(0), configPath, outPath, budgetMB, workers, backend, passthrough); err != nil {
		fmt.Fprintf(os.Stderr, "[error] %v\n", err)
		os.Exit(1)
	}
}

func run(input, configPath, outPath string, budgetMB, workers int, backend string, passthrough bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if budgetMB > 0 {
		cfg.Pipeline.SizeBudgetMB = budgetMB
	}
	if workers > 0 {
		cfg.Pipeline.Workers = workers
	}
	if backend != "" {
		cfg.Transcription.Backend = backend
	}
	if passthrough {
		cfg.Pipeline.PassthroughOversized = true
	}

	file, err := media.Open(input)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := media.ExecRunner{}
	toolchain := media.DetectToolchain(ctx, runner, cfg.Toolchain.FFmpeg, cfg.Toolchain.FFprobe)

	transcriber, err := transcription.NewBackend(transcription.BackendConfig{
		Backend:   cfg.Transcription.Backend,
		BaseURL:   cfg.Transcription.BaseURL,
		APIKey:    cfg.Transcription.APIKey,
		Model:     cfg.Transcription.Model,
		Language:  cfg.Transcription.Language,
		Timeout:   cfg.TranscriptionTimeout(),
		PythonCmd: cfg.Whisper.PythonCmd,
		ModelPath: cfg.Whisper.ModelPath,
		TempDir:   cfg.Storage.TempDir,
	})
	if err != nil {
		return err
	}

	pipeline := transcription.NewPipeline(
		media.NewProber(toolchain.FFprobePath, runner),
		media.NewTranscoder(toolchain.FFmpegPath, runner, media.TranscoderSettings{
			AudioBitrate:      cfg.Pipeline.AudioBitrate,
			VideoCRF:          cfg.Pipeline.VideoCRF,
			VideoPreset:       cfg.Pipeline.VideoPreset,
			VideoAudioBitrate: cfg.Pipeline.VideoAudioBitrate,
		}),
		transcriber,
		transcription.Options{
			ToolchainAvailable:   toolchain.Available,
			TempDir:              cfg.Storage.TempDir,
			Workers:              cfg.Pipeline.Workers,
			TranscribeAttempts:   cfg.Transcription.Attempts,
			MaxResplitDepth:      cfg.Pipeline.MaxResplitDepth,
			PassthroughOversized: cfg.Pipeline.PassthroughOversized,
			FailureMarker:        cfg.Pipeline.FailureMarker,
		},
	)

	fmt.Fprintf(os.Stderr, "[info] transcribing %s (%s, %s) with %s\n",
		file.Path, file.Kind, humanize.IBytes(uint64(file.Size)), transcriber.Name())

	res, err := pipeline.TranscribeLarge(ctx, file, cfg.SizeBudget())
	if err != nil {
		if errors.Is(err, transcription.ErrToolchainUnavailable) {
			return fmt.Errorf("%w (install ffmpeg or pass -passthrough)", err)
		}
		return err
	}

	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "[warn] %s\n", w)
	}

	out := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if _, err := fmt.Fprintln(out, res.Transcript); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "[ok] %d chunks, %d failed\n", len(res.Chunks), len(res.FailedChunks()))
	return nil
}
