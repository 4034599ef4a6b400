package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/codebuildervaibhav/media-transcription/internal/cleanup"
	"github.com/codebuildervaibhav/media-transcription/internal/config"
	"github.com/codebuildervaibhav/media-transcription/internal/handlers"
	"github.com/codebuildervaibhav/media-transcription/internal/media"
	"github.com/codebuildervaibhav/media-transcription/internal/middleware"
	"github.com/codebuildervaibhav/media-transcription/internal/queue"
	"github.com/codebuildervaibhav/media-transcription/internal/storage"
	"github.com/codebuildervaibhav/media-transcription/internal/transcription"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	issueToken := flag.String("issue-token", "", "print an API token for this subject and exit")
	tokenTTL := flag.Duration("token-ttl", 30*24*time.Hour, "lifetime of tokens printed by -issue-token")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var jwtService *middleware.JWTService
	if cfg.Auth.JWTSecret != "" {
		jwtService, err = middleware.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
		if err != nil {
			log.Fatalf("Invalid auth config: %v", err)
		}
	}
	if *issueToken != "" {
		if jwtService == nil {
			log.Fatal("auth.jwt_secret is not configured")
		}
		token, err := jwtService.GenerateToken(*issueToken, *tokenTTL)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(token)
		return
	}

	if err := cleanup.EnsureTempDirExists(cfg.Storage.TempDir); err != nil {
		log.Fatalf("Failed to create temp directory: %v", err)
	}
	if err := os.MkdirAll(cfg.Storage.OutputDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	logBuffer := NewLogBuffer(1000)
	log.SetOutput(io.MultiWriter(os.Stdout, logBuffer))

	log.Println("Initializing components...")

	runner := media.ExecRunner{}
	toolchain := media.DetectToolchain(context.Background(), runner, cfg.Toolchain.FFmpeg, cfg.Toolchain.FFprobe)

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
		log.Fatalf("Failed to initialize transcription backend: %v", err)
	}
	log.Printf("Transcription backend: %s", transcriber.Name())

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

	localStorage := storage.NewLocalStorage(cfg.Storage.OutputDir)

	// Google Drive is optional
	var driveClient *storage.DriveClient
	if _, err := os.Stat(cfg.GoogleDrive.CredentialsFile); err == nil {
		driveClient, err = storage.NewDriveClient(context.Background(),
			cfg.GoogleDrive.CredentialsFile,
			cfg.GoogleDrive.TokenFile,
			cfg.GoogleDrive.FolderName,
		)
		if err != nil {
			log.Printf("WARNING: Google Drive not available: %v", err)
			log.Println("Transcripts will only be saved locally")
			driveClient = nil
		} else {
			log.Println("Google Drive integration enabled")
		}
	} else {
		log.Println("Google Drive credentials not found - saving locally only")
	}

	db, err := storage.NewMetadataDB(cfg.Storage.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	deps := queue.Deps{
		Pipeline: pipeline,
		Local:    localStorage,
		DB:       db,
	}
	var driveDownloader handlers.DriveDownloader
	if driveClient != nil {
		deps.Drive = driveClient
		driveDownloader = driveClient
	}

	workerPool := queue.NewWorkerPool(deps, queue.Options{
		Workers:       cfg.Workers.Count,
		QueueSize:     cfg.Workers.QueueSize,
		SizeBudget:    cfg.SizeBudget(),
		Model:         transcriber.Name(),
		Language:      cfg.Transcription.Language,
		FailureMarker: cfg.Pipeline.FailureMarker,
	})
	workerPool.Start()

	maxAge := time.Duration(cfg.Cleanup.MaxAgeHours) * time.Hour
	cleanupScheduler := cleanup.NewScheduler(
		cfg.Storage.TempDir,
		cfg.Cleanup.IntervalMinutes,
		cfg.Cleanup.MaxAgeHours,
		func() {
			if n := workerPool.Registry().Prune(maxAge); n > 0 {
				log.Printf("Pruned %d finished jobs from the registry", n)
			}
		},
	)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	app := fiber.New(fiber.Config{
		BodyLimit: cfg.Limits.MaxFileSizeMB * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	auth := middleware.RequireJWT(jwtService)
	if jwtService != nil {
		log.Println("Bearer token auth enabled on mutating routes")
	}

	uploadHandler := handlers.NewUploadHandler(workerPool, cfg.Storage.TempDir, cfg.Limits.MaxFileSizeMB)
	gdriveHandler := handlers.NewGDriveHandler(workerPool, driveDownloader, cfg.Storage.TempDir)
	youtubeHandler := handlers.NewYouTubeHandler(workerPool, runner, cfg.Storage.TempDir)
	streamHandler := handlers.NewStreamHandler(workerPool, cfg.Storage.TempDir, cfg.Limits.MaxFileSizeMB)
	jobsHandler := handlers.NewJobsHandler(workerPool)
	transcriptsHandler := handlers.NewTranscriptsHandler(db)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": "1.1.0",
			"backend": transcriber.Name(),
			"toolchain": fiber.Map{
				"available":      toolchain.Available,
				"ffmpeg_version": toolchain.FFmpegVersion,
			},
		})
	})

	app.Post("/upload", auth, uploadHandler.Handle)
	app.Post("/gdrive", auth, gdriveHandler.Handle)
	app.Post("/youtube", auth, youtubeHandler.Handle)

	app.Get("/ws/stream", auth, websocket.New(streamHandler.Handle))

	app.Get("/jobs/:id", jobsHandler.Get)
	app.Get("/transcripts", transcriptsHandler.List)
	app.Get("/transcripts/:id/text", transcriptsHandler.Text)

	app.Get("/logs", auth, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"logs": logBuffer.GetLogs(),
		})
	})

	addr := cfg.Addr()
	log.Printf("🚀 Server starting on %s", addr)
	log.Println("📝 Endpoints:")
	log.Println("   POST /upload      - Upload audio or video file")
	log.Println("   POST /gdrive      - Process Google Drive link")
	log.Println("   POST /youtube     - Capture YouTube audio")
	log.Println("   GET  /ws/stream   - WebSocket recording upload")
	log.Println("   GET  /jobs/:id    - Job status")
	log.Println("   GET  /transcripts - List all transcripts")
	log.Println("   GET  /transcripts/:id/text - Get transcript text")
	log.Println("   GET  /logs        - View server logs")
	log.Println("   GET  /health      - Health check")

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down gracefully...")
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Printf("HTTP shutdown: %v", err)
		}
	}()

	if err := app.Listen(addr); err != nil {
		log.Printf("Server stopped: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := workerPool.Stop(ctx); err != nil {
		log.Printf("Worker pool did not drain in time: %v", err)
	}
}
