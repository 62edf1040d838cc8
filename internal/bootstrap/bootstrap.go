// Package bootstrap builds the clip pipeline and its backing services from
// Config. The api, worker and cli binaries share it.
package bootstrap

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"viralcut/internal/clipping"
	"viralcut/internal/config"
	"viralcut/internal/media/platform"
	"viralcut/internal/media/source"
	"viralcut/internal/media/transcoder"
	"viralcut/internal/outputs"
	"viralcut/internal/pipeline"
	"viralcut/internal/pkg/errors"
	"viralcut/internal/pkg/logger"
	"viralcut/internal/pkg/shutdown"
	"viralcut/internal/storage"
)

const platformTimeout = 30 * time.Second

// Core is the in-process clip pipeline.
type Core struct {
	Pipeline *pipeline.Pipeline
	Outputs  *outputs.Store
	FFmpeg   *transcoder.FFmpeg
	YouTube  *platform.YouTube
}

// NewCore wires storage, naming, encoding and source resolution.
func NewCore(ctx context.Context, cfg config.Config, log *logger.Logger) (*Core, error) {
	sp, err := storage.NewProvider(ctx, cfg.Storage)
	if err != nil {
		return nil, errors.Wrap(err, "bootstrap.storage", "failed to initialize storage provider")
	}
	log.Info("storage provider initialized", "provider", sp.Provider())

	store := outputs.NewStore(sp, cfg.ScratchDir, cfg.PublicBaseURL, log)
	ff := transcoder.NewFFmpeg(cfg.FFmpegPath, log)
	if err := ff.Available(); err != nil {
		log.Warn("ffmpeg not found, renders will fail", "bin", cfg.FFmpegPath)
	}
	yt := platform.NewYouTube(&http.Client{Timeout: platformTimeout})

	job := clipping.NewJob(ff, store, log)
	p := &pipeline.Pipeline{
		Resolver:   source.NewResolver(yt, log),
		Runner:     clipping.NewCoordinator(job, cfg.MaxParallel, log),
		UploadDir:  cfg.UploadDir,
		IsPlatform: yt.IsPlatformLink,
		Log:        log.WithComponent("pipeline"),
	}
	return &Core{Pipeline: p, Outputs: store, FFmpeg: ff, YouTube: yt}, nil
}

// Backends holds the postgres pool and redis client used by queued batches.
type Backends struct {
	Pool *pgxpool.Pool
	RDB  *redis.Client
}

// Connect opens postgres and redis and registers both with mgr.
func Connect(ctx context.Context, cfg config.Config, log *logger.Logger, mgr *shutdown.Manager) (*Backends, error) {
	log.Info("connecting to PostgreSQL")
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "bootstrap.postgres", "failed to connect to PostgreSQL")
	}
	mgr.RegisterSimple("postgres", pool.Close)
	if err := pool.Ping(ctx); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "bootstrap.postgres", "failed to ping PostgreSQL")
	}
	log.Info("PostgreSQL connected")

	log.Info("connecting to Redis")
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	mgr.Register("redis", func(ctx context.Context) error {
		return rdb.Close()
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "bootstrap.redis", "failed to ping Redis")
	}
	log.Info("Redis connected")

	return &Backends{Pool: pool, RDB: rdb}, nil
}
