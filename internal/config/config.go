package config

import (
	"fmt"
	"os"
	"roofing-photo-sync/internal/constant"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DSN         string
	QueueDBPath string
	LogLevel    string
	HTTPAddr    string

	StorageMode   string
	StorageDir    string
	S3Bucket      string
	S3Region      string
	S3Endpoint    string
	S3AccessKey   string
	S3SecretKey   string
	PublicBaseURL string

	MaxRetries     int
	RetryBaseDelay time.Duration
	IsConcurrent   bool
	NumWorkers     int
	BatchSize      int
	UploadRate     float64
	UploadBurst    int

	CompletedRetention time.Duration
	PurgeBatchSize     int

	BackgroundSync        bool
	BackgroundSyncTimeout time.Duration

	NetworkPollInterval time.Duration
	NetworkProbeAddr    string
	NetworkProbeTimeout time.Duration

	JWTSecret    string
	SessionToken string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	StatsKey      string

	ThumbnailEnabled bool
	ThumbnailMaxSize int
	ThumbnailQuality int

	DrainSchedule         string
	PurgeSchedule         string
	JanitorSchedule       string
	JanitorStuckThreshold time.Duration
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) (int, error) {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(strValue)
	if err != nil {
		return 0, fmt.Errorf("env var %s: invalid integer value '%s'", key, strValue)
	}
	return value, nil
}

func getEnvAsFloat(key string, fallback float64) (float64, error) {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		return 0, fmt.Errorf("env var %s: invalid number value '%s'", key, strValue)
	}
	return value, nil
}

func getEnvAsBool(key string, fallback bool) (bool, error) {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(strValue)
	if err != nil {
		return false, fmt.Errorf("env var %s: invalid boolean value '%s'", key, strValue)
	}
	return value, nil
}

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("env var %s: invalid duration value '%s'", key, strValue)
	}
	return value, nil
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	var err error

	cfg.DSN = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "postgres"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_SSLMODE", "require"),
	)

	cfg.QueueDBPath = getEnv("QUEUE_DB_PATH", "./data/photo-queue.db")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	cfg.StorageMode = strings.ToLower(getEnv("STORAGE_MODE", constant.StorageModeLocal))
	cfg.StorageDir = getEnv("STORAGE_DIR", "./data/photos")
	cfg.S3Bucket = getEnv("S3_BUCKET", "")
	cfg.S3Region = getEnv("S3_REGION", "us-east-1")
	cfg.S3Endpoint = getEnv("S3_ENDPOINT", "")
	cfg.S3AccessKey = getEnv("S3_ACCESS_KEY", "")
	cfg.S3SecretKey = getEnv("S3_SECRET_KEY", "")
	cfg.PublicBaseURL = strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/")

	cfg.NetworkProbeAddr = getEnv("NETWORK_PROBE_ADDR", "")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.SessionToken = getEnv("SESSION_TOKEN", "")

	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.StatsKey = getEnv("STATS_KEY", "photo_queue:stats")

	cfg.DrainSchedule = getEnv("DRAIN_SCHEDULE", "@every 5m")
	cfg.PurgeSchedule = getEnv("PURGE_SCHEDULE", "@every 1h")
	cfg.JanitorSchedule = getEnv("JANITOR_SCHEDULE", "@every 10m")

	if cfg.MaxRetries, err = getEnvAsInt("MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.RetryBaseDelay, err = getEnvAsDuration("RETRY_BASE_DELAY", time.Second); err != nil {
		return nil, err
	}
	if cfg.IsConcurrent, err = getEnvAsBool("IS_CONCURRENT", true); err != nil {
		return nil, err
	}
	if cfg.NumWorkers, err = getEnvAsInt("NUM_WORKERS", 0); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = getEnvAsInt("BATCH_SIZE", 200); err != nil {
		return nil, err
	}
	if cfg.UploadRate, err = getEnvAsFloat("UPLOAD_RATE", 0); err != nil {
		return nil, err
	}
	if cfg.UploadBurst, err = getEnvAsInt("UPLOAD_BURST", 1); err != nil {
		return nil, err
	}
	if cfg.CompletedRetention, err = getEnvAsDuration("COMPLETED_RETENTION", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.PurgeBatchSize, err = getEnvAsInt("PURGE_BATCH_SIZE", 100); err != nil {
		return nil, err
	}
	if cfg.BackgroundSync, err = getEnvAsBool("BACKGROUND_SYNC", true); err != nil {
		return nil, err
	}
	if cfg.BackgroundSyncTimeout, err = getEnvAsDuration("BACKGROUND_SYNC_TIMEOUT", 3*time.Second); err != nil {
		return nil, err
	}
	if cfg.NetworkPollInterval, err = getEnvAsDuration("NETWORK_POLL_INTERVAL", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.NetworkProbeTimeout, err = getEnvAsDuration("NETWORK_PROBE_TIMEOUT", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getEnvAsInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.ThumbnailEnabled, err = getEnvAsBool("THUMBNAIL_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.ThumbnailMaxSize, err = getEnvAsInt("THUMBNAIL_MAX_SIZE", 480); err != nil {
		return nil, err
	}
	if cfg.ThumbnailQuality, err = getEnvAsInt("THUMBNAIL_QUALITY", 70); err != nil {
		return nil, err
	}
	if cfg.JanitorStuckThreshold, err = getEnvAsDuration("JANITOR_STUCK_THRESHOLD", 15*time.Minute); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.MaxRetries < 1 {
		return fmt.Errorf("MAX_RETRIES harus minimal 1")
	}
	if cfg.RetryBaseDelay <= 0 {
		return fmt.Errorf("RETRY_BASE_DELAY harus lebih besar dari 0")
	}
	if cfg.NumWorkers < 0 {
		return fmt.Errorf("NUM_WORKERS tidak boleh negatif")
	}
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE harus lebih besar dari 0")
	}
	if cfg.UploadRate < 0 {
		return fmt.Errorf("UPLOAD_RATE tidak boleh negatif")
	}
	if cfg.UploadBurst <= 0 {
		return fmt.Errorf("UPLOAD_BURST harus lebih besar dari 0")
	}
	if cfg.CompletedRetention < 0 {
		return fmt.Errorf("COMPLETED_RETENTION tidak boleh negatif")
	}
	if cfg.PurgeBatchSize <= 0 {
		return fmt.Errorf("PURGE_BATCH_SIZE harus lebih besar dari 0")
	}
	if cfg.BackgroundSyncTimeout <= 0 {
		return fmt.Errorf("BACKGROUND_SYNC_TIMEOUT harus lebih besar dari 0")
	}
	if cfg.NetworkPollInterval <= 0 {
		return fmt.Errorf("NETWORK_POLL_INTERVAL harus lebih besar dari 0")
	}
	if cfg.QueueDBPath == "" {
		return fmt.Errorf("QUEUE_DB_PATH tidak boleh kosong")
	}

	switch cfg.StorageMode {
	case constant.StorageModeLocal:
		if cfg.StorageDir == "" {
			return fmt.Errorf("STORAGE_DIR wajib diisi untuk STORAGE_MODE=local")
		}
	case constant.StorageModeS3:
		if cfg.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET wajib diisi untuk STORAGE_MODE=s3")
		}
	default:
		return fmt.Errorf("STORAGE_MODE tidak valid: '%s'. Gunakan salah satu dari: local, s3", cfg.StorageMode)
	}

	if cfg.ThumbnailEnabled {
		if cfg.ThumbnailQuality < 1 || cfg.ThumbnailQuality > 100 {
			return fmt.Errorf("THUMBNAIL_QUALITY harus di antara 1 dan 100")
		}
		if cfg.ThumbnailMaxSize <= 0 {
			return fmt.Errorf("THUMBNAIL_MAX_SIZE harus lebih besar dari 0")
		}
	}

	validLogLevels := map[string]bool{"DEBUG": true, "INFO": true, "WARN": true, "ERROR": true}
	if !validLogLevels[strings.ToUpper(cfg.LogLevel)] {
		return fmt.Errorf("LOG_LEVEL tidak valid: '%s'. Gunakan salah satu dari: debug, info, warn, error", cfg.LogLevel)
	}

	return nil
}
