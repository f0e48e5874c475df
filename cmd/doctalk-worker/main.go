package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/isaevxxi/DocTalk/internal/api"
	"github.com/isaevxxi/DocTalk/internal/asr"
	"github.com/isaevxxi/DocTalk/internal/asr/deepgram"
	"github.com/isaevxxi/DocTalk/internal/asr/voskasr"
	"github.com/isaevxxi/DocTalk/internal/asr/whisperremote"
	"github.com/isaevxxi/DocTalk/internal/audio"
	"github.com/isaevxxi/DocTalk/internal/config"
	"github.com/isaevxxi/DocTalk/internal/diarize"
	"github.com/isaevxxi/DocTalk/internal/metrics"
	"github.com/isaevxxi/DocTalk/internal/pipeline"
	"github.com/isaevxxi/DocTalk/internal/store"
	"github.com/isaevxxi/DocTalk/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logging
	setupLogging(cfg.LogLevel, cfg.LogFile)

	log.Info().Msg("Starting DocTalk transcription worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Storage: transcripts always live on the local file store; audio
	// objects go to MinIO when configured.
	fileStore, err := store.NewFileStore(cfg.StorageDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create file store")
	}

	var objects interface {
		Get(ctx context.Context, key string) ([]byte, error)
		Put(ctx context.Context, key string, data []byte) error
	} = fileStore

	if cfg.StorageBackend == "minio" {
		minioStore, err := store.NewMinioStore(ctx, store.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to MinIO")
		}
		objects = minioStore
		log.Info().Str("endpoint", cfg.MinioEndpoint).Str("bucket", cfg.MinioBucket).Msg("Using MinIO object storage")
	}

	// Voice activity detection
	classifier, err := audio.NewWebRTCClassifier()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize VAD")
	}
	defer classifier.Close()

	detector := audio.NewDetector(classifier, audio.DetectorConfig{
		Threshold:    cfg.VADThreshold,
		MinSpeechMS:  cfg.VADMinSpeechMS,
		MinSilenceMS: cfg.VADMinSilenceMS,
		PadMS:        cfg.VADPadMS,
		FrameMS:      cfg.VADFrameMS,
	})

	// Speaker diarization. An engine that fails to initialize is not
	// fatal: the worker still produces transcripts, just without speaker
	// labels.
	var diarizer *diarize.Diarizer
	if cfg.DiarizationEnabled {
		engine, err := diarize.NewExecEngine(cfg.DiarizationBinPath, cfg.DiarizationModelPath)
		if err != nil {
			log.Warn().Err(err).Msg("Diarization engine unavailable, transcripts will have no speaker labels")
		} else {
			diarizer = diarize.NewDiarizer(engine, detector, diarize.Config{
				PreVAD:      cfg.DiarizationPreVAD,
				MinSpeakers: cfg.DiarizationMinSpeakers,
				MaxSpeakers: cfg.DiarizationMaxSpeakers,
				StitchGap:   float64(cfg.DiarizationStitchGapMS) / 1000.0,
				PadSec:      float64(cfg.VADPadMS) / 1000.0,
			})
			log.Info().Str("engine", engine.Name()).Bool("pre_vad", cfg.DiarizationPreVAD).Msg("Diarization enabled")
		}
	}

	// Speech recognition backends
	registry := asr.NewRegistry()
	primary, err := buildBackend(cfg.ASRBackend, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.ASRBackend).Msg("Failed to initialize ASR backend")
	}
	registry.Register(cfg.ASRBackend, primary)

	if cfg.ASRFallbackBackend != "" {
		fallback, err := buildBackend(cfg.ASRFallbackBackend, cfg)
		if err != nil {
			log.Warn().Err(err).Str("backend", cfg.ASRFallbackBackend).Msg("Failed to initialize fallback ASR backend, continuing without it")
		} else {
			registry.Register(cfg.ASRFallbackBackend, fallback)
			registry.SetFallback(cfg.ASRFallbackBackend)
		}
	}
	log.Info().Strs("backends", registry.Backends()).Str("primary", cfg.ASRBackend).Msg("ASR backends ready")

	transcriber := asr.NewTranscriber(registry, asr.Config{
		MergeShortPauses:    cfg.MergeShortPauses,
		MergePauseThreshold: cfg.MergePauseThreshold,
		HygieneMinWordProb:  cfg.HygieneMinWordProb,
	})

	orchestrator := pipeline.NewOrchestrator(objects, fileStore, transcriber, diarizer, m, pipeline.Config{
		Language:           cfg.Language,
		NumSpeakers:        cfg.DiarizationNumSpeakers,
		DiarizationEnabled: cfg.DiarizationEnabled,
	})

	recordings := worker.NewMemoryRecordingStore()
	queue := worker.NewMemoryQueue(0)

	wrk := worker.New(queue, recordings, objects, fileStore, orchestrator, m, worker.Config{
		Concurrency: cfg.WorkerConcurrency,
		MaxAttempts: cfg.WorkerMaxAttempts,
		JobTimeout:  time.Duration(cfg.JobTimeoutSec) * time.Second,
	})

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.NewServer(wrk, recordings, fileStore, m).Router(),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return wrk.Run(gctx)
	})

	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker exited with error")
		os.Exit(1)
	}

	log.Info().Msg("Worker stopped gracefully")
}

func buildBackend(name string, cfg *config.Config) (asr.Backend, error) {
	switch name {
	case "whisper":
		return whisperremote.NewClient(whisperremote.Config{
			BaseURL:        cfg.WhisperURL,
			Model:          cfg.WhisperModel,
			TimeoutSeconds: cfg.WhisperTimeoutSec,
		}), nil
	case "vosk":
		backend, err := voskasr.NewVoskBackend(cfg.VoskModelPath)
		if err != nil {
			return nil, err
		}
		return backend, nil
	case "deepgram":
		return deepgram.NewDeepgramBackend(cfg.DeepgramAPIKey, cfg.DeepgramModel), nil
	default:
		return nil, fmt.Errorf("unknown ASR backend %q", name)
	}
}

func setupLogging(level, logFile string) {
	// Setup zerolog
	zerolog.TimeFieldFormat = time.RFC3339

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	if logFile != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		log.Logger = log.Output(zerolog.MultiLevelWriter(console, fileWriter))
	} else {
		log.Logger = log.Output(console)
	}

	// Set log level
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Info().Str("level", level).Msg("Logging configured")
}
