// Package config loads process configuration from the environment.
// A .env file in the working directory is loaded first when present.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"viralcut/internal/pkg/logger"
)

// Config is shared by the api, worker and cli binaries.
type Config struct {
	HTTPPort      string
	PublicBaseURL string

	// UploadDir receives multipart uploads; local sources are resolved against it.
	UploadDir string
	// ScratchDir holds encoder output before it is published to a remote provider.
	ScratchDir string

	Storage StorageConfig

	DatabaseURL string
	RedisAddr   string
	QueueName   string
	ProgressTTL time.Duration

	FFmpegPath   string
	MaxParallel  int
	BatchTimeout time.Duration
	// ProcessTimeout bounds synchronous /api/process-clips requests; zero disables it.
	ProcessTimeout time.Duration

	CORSAllowedOrigins []string

	Log logger.Config
}

// StorageConfig selects and configures the output storage provider.
type StorageConfig struct {
	Provider  string // localfs | gdrive
	LocalRoot string

	GDriveClientID     string
	GDriveClientSecret string
	GDriveRefreshToken string
	GDriveFolderID     string
}

// Load reads the environment. serviceName tags every log record.
func Load(serviceName string) Config {
	_ = godotenv.Load()

	port := Env("HTTP_PORT", "3001")
	cfg := Config{
		HTTPPort:      port,
		PublicBaseURL: strings.TrimRight(Env("PUBLIC_BASE_URL", "http://localhost:"+port), "/"),
		UploadDir:     Env("UPLOAD_DIR", "uploads"),
		ScratchDir:    Env("SCRATCH_DIR", filepath.Join(os.TempDir(), "viralcut")),
		Storage: StorageConfig{
			Provider:           Env("STORAGE_PROVIDER", "localfs"),
			LocalRoot:          Env("STORAGE_LOCAL_ROOT", "public"),
			GDriveClientID:     Env("GDRIVE_CLIENT_ID", ""),
			GDriveClientSecret: Env("GDRIVE_CLIENT_SECRET", ""),
			GDriveRefreshToken: Env("GDRIVE_REFRESH_TOKEN", ""),
			GDriveFolderID:     Env("GDRIVE_FOLDER_ID", ""),
		},
		DatabaseURL:        Env("DATABASE_URL", ""),
		RedisAddr:          Env("REDIS_ADDR", ""),
		QueueName:          Env("BATCH_QUEUE_NAME", "viralcut:batches"),
		ProgressTTL:        DurationEnv("BATCH_PROGRESS_TTL", 24*time.Hour),
		FFmpegPath:         Env("FFMPEG_PATH", "ffmpeg"),
		MaxParallel:        IntEnv("MAX_PARALLEL_CLIPS", 0),
		BatchTimeout:       DurationEnv("BATCH_TIMEOUT", 30*time.Minute),
		ProcessTimeout:     DurationEnv("PROCESS_TIMEOUT", 0),
		CORSAllowedOrigins: CSVEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		Log: logger.Config{
			Level:       Env("LOG_LEVEL", "info"),
			Format:      Env("LOG_FORMAT", "json"),
			AddSource:   BoolEnv("LOG_SOURCE", false),
			ServiceName: serviceName,
		},
	}
	return cfg
}

// AsyncEnabled reports whether postgres and redis are configured, which the
// queued batch endpoints and the worker require.
func (c Config) AsyncEnabled() bool {
	return c.DatabaseURL != "" && c.RedisAddr != ""
}

func Env(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

func MustEnv(k string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}

// BoolEnv reads an env var as bool. If empty or invalid, returns def.
// strconv.ParseBool accepts: 1,t,T,TRUE,true,True,0,f,F,FALSE,false,False.
func BoolEnv(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// IntEnv reads an env var as int. If empty or invalid, returns def.
func IntEnv(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// DurationEnv reads an env var with time.ParseDuration. If empty or invalid, returns def.
func DurationEnv(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// CSVEnv splits a comma separated env var, dropping blanks.
func CSVEnv(k string, def []string) []string {
	raw := strings.TrimSpace(os.Getenv(k))
	if raw == "" {
		return def
	}
	out := make([]string, 0)
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
