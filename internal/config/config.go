package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Worker
	WorkerConcurrency int
	WorkerMaxAttempts int
	JobTimeoutSec     int
	HTTPAddr          string

	// Storage
	StorageBackend string // "file" or "minio"
	StorageDir     string

	// MinIO settings
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	MinioBucket    string

	// ASR Backend
	ASRBackend         string // "whisper", "vosk" or "deepgram"
	ASRFallbackBackend string // optional secondary backend

	// Whisper settings (remote faster-whisper server)
	WhisperURL        string
	WhisperModel      string
	WhisperTimeoutSec int

	// Vosk settings
	VoskModelPath string

	// Deepgram settings
	DeepgramAPIKey string
	DeepgramModel  string

	// Transcription
	Language            string
	MergeShortPauses    bool
	MergePauseThreshold float64
	HygieneMinWordProb  float64

	// Voice activity detection
	VADThreshold    float64
	VADMinSpeechMS  int
	VADMinSilenceMS int
	VADPadMS        int
	VADFrameMS      int

	// Speaker diarization
	DiarizationEnabled     bool
	DiarizationBinPath     string
	DiarizationModelPath   string
	DiarizationPreVAD      bool
	DiarizationNumSpeakers int // 0 = use min/max range
	DiarizationMinSpeakers int
	DiarizationMaxSpeakers int
	DiarizationStitchGapMS int

	// Logging
	LogLevel string
	LogFile  string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("No .env file found, using environment variables only")
	}

	cfg := &Config{
		// Worker
		WorkerConcurrency: getIntEnvOrDefault("WORKER_CONCURRENCY", 2),
		WorkerMaxAttempts: getIntEnvOrDefault("WORKER_MAX_ATTEMPTS", 3),
		JobTimeoutSec:     getIntEnvOrDefault("JOB_TIMEOUT_SEC", 3600),
		HTTPAddr:          getEnvOrDefault("HTTP_ADDR", ":9090"),

		// Storage
		StorageBackend: getEnvOrDefault("STORAGE_BACKEND", "file"),
		StorageDir:     getEnvOrDefault("STORAGE_DIR", "./data"),

		// MinIO
		MinioEndpoint:  getEnvOrDefault("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioUseSSL:    getBoolEnvOrDefault("MINIO_USE_SSL", false),
		MinioBucket:    getEnvOrDefault("MINIO_BUCKET_RECORDINGS", "audio-recordings"),

		// ASR
		ASRBackend:         getEnvOrDefault("ASR_BACKEND", "whisper"),
		ASRFallbackBackend: os.Getenv("ASR_FALLBACK_BACKEND"),

		// Whisper
		WhisperURL:        getEnvOrDefault("WHISPER_URL", "http://localhost:8080"),
		WhisperModel:      getEnvOrDefault("WHISPER_MODEL", "base"),
		WhisperTimeoutSec: getIntEnvOrDefault("WHISPER_TIMEOUT_SEC", 300),

		// Vosk
		VoskModelPath: getEnvOrDefault("VOSK_MODEL_PATH", "./models/vosk/ru"),

		// Deepgram
		DeepgramAPIKey: os.Getenv("DEEPGRAM_API_KEY"),
		DeepgramModel:  getEnvOrDefault("DEEPGRAM_MODEL", "nova-2"),

		// Transcription
		Language:            getEnvOrDefault("TRANSCRIPTION_LANGUAGE", "ru"),
		MergeShortPauses:    getBoolEnvOrDefault("MERGE_SHORT_PAUSES", true),
		MergePauseThreshold: getFloatEnvOrDefault("MERGE_PAUSE_THRESHOLD", 0.8),
		HygieneMinWordProb:  getFloatEnvOrDefault("HYGIENE_MIN_WORD_PROBABILITY", 0.3),

		// VAD
		VADThreshold:    getFloatEnvOrDefault("VAD_THRESHOLD", 0.5),
		VADMinSpeechMS:  getIntEnvOrDefault("VAD_MIN_SPEECH_MS", 200),
		VADMinSilenceMS: getIntEnvOrDefault("VAD_MIN_SILENCE_MS", 300),
		VADPadMS:        getIntEnvOrDefault("VAD_PAD_MS", 180),
		VADFrameMS:      getIntEnvOrDefault("VAD_FRAME_MS", 30),

		// Diarization
		DiarizationEnabled:     getBoolEnvOrDefault("DIARIZATION_ENABLED", true),
		DiarizationBinPath:     getEnvOrDefault("DIARIZATION_BIN_PATH", "doctalk-diarize"),
		DiarizationModelPath:   os.Getenv("DIARIZATION_MODEL_PATH"),
		DiarizationPreVAD:      getBoolEnvOrDefault("DIARIZATION_ENABLE_PRE_VAD", true),
		DiarizationNumSpeakers: getIntEnvOrDefault("DIARIZATION_NUM_SPEAKERS", 2),
		DiarizationMinSpeakers: getIntEnvOrDefault("DIARIZATION_MIN_SPEAKERS", 1),
		DiarizationMaxSpeakers: getIntEnvOrDefault("DIARIZATION_MAX_SPEAKERS", 3),
		DiarizationStitchGapMS: getIntEnvOrDefault("DIARIZATION_STITCH_GAP_MS", 300),

		// Logging
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:  os.Getenv("LOG_FILE"),
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.ASRBackend {
	case "whisper", "vosk", "deepgram":
	default:
		return fmt.Errorf("ASR_BACKEND must be 'whisper', 'vosk' or 'deepgram'")
	}

	if c.ASRFallbackBackend != "" {
		switch c.ASRFallbackBackend {
		case "whisper", "vosk", "deepgram":
		default:
			return fmt.Errorf("ASR_FALLBACK_BACKEND must be 'whisper', 'vosk' or 'deepgram'")
		}
		if c.ASRFallbackBackend == c.ASRBackend {
			return fmt.Errorf("ASR_FALLBACK_BACKEND must differ from ASR_BACKEND")
		}
	}

	if c.ASRBackend == "deepgram" && c.DeepgramAPIKey == "" {
		return fmt.Errorf("DEEPGRAM_API_KEY is required when using deepgram backend")
	}

	if c.StorageBackend != "file" && c.StorageBackend != "minio" {
		return fmt.Errorf("STORAGE_BACKEND must be 'file' or 'minio'")
	}

	if c.StorageBackend == "minio" && (c.MinioAccessKey == "" || c.MinioSecretKey == "") {
		return fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when using minio storage")
	}

	if c.VADThreshold < 0 || c.VADThreshold > 1 {
		return fmt.Errorf("VAD_THRESHOLD must be within [0, 1]")
	}

	switch c.VADFrameMS {
	case 10, 20, 30:
	default:
		return fmt.Errorf("VAD_FRAME_MS must be 10, 20 or 30")
	}

	if c.DiarizationMinSpeakers < 1 || c.DiarizationMaxSpeakers < c.DiarizationMinSpeakers {
		return fmt.Errorf("invalid diarization speaker range [%d, %d]", c.DiarizationMinSpeakers, c.DiarizationMaxSpeakers)
	}

	if c.WorkerMaxAttempts < 1 {
		return fmt.Errorf("WORKER_MAX_ATTEMPTS must be at least 1")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnvOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getFloatEnvOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
