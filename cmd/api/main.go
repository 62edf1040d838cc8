package main

import (
	"context"
	"net/http"
	"time"

	"viralcut/internal/bootstrap"
	"viralcut/internal/config"
	"viralcut/internal/httpapi"
	"viralcut/internal/httpapi/handlers"
	"viralcut/internal/pkg/logger"
	"viralcut/internal/pkg/shutdown"
	"viralcut/internal/progress"
	"viralcut/internal/repositories"
	"viralcut/internal/worker/queue"
)

func main() {
	cfg := config.Load("viralcut-api")
	log := logger.New(cfg.Log)
	log.Info("starting viralcut API", "port", cfg.HTTPPort)

	ctx := context.Background()
	shutdownMgr := shutdown.NewManager(log, 30*time.Second)

	core, err := bootstrap.NewCore(ctx, cfg, log)
	if err != nil {
		log.LogFatal("failed to build pipeline", err)
	}

	deps := handlers.Deps{
		Pipeline:  core.Pipeline,
		Clips:     core.Outputs,
		Links:     core.YouTube,
		UploadDir: cfg.UploadDir,
		Checks: []handlers.Check{
			{Name: "ffmpeg", Fn: func(context.Context) error { return core.FFmpeg.Available() }},
		},
		Log: log,
	}

	if cfg.AsyncEnabled() {
		be, err := bootstrap.Connect(ctx, cfg, log, shutdownMgr)
		if err != nil {
			log.LogFatal("failed to connect backends", err)
		}
		repo := repositories.NewBatchRepository(be.Pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.LogFatal("failed to prepare schema", err)
		}

		deps.Batches = repo
		deps.Progress = progress.NewTracker(be.RDB, cfg.ProgressTTL)
		deps.Queue = queue.NewRedisQueue(be.RDB, cfg.QueueName)
		deps.Checks = append(deps.Checks,
			handlers.Check{Name: "postgres", Fn: repo.Ping},
			handlers.Check{Name: "redis", Fn: func(ctx context.Context) error { return be.RDB.Ping(ctx).Err() }},
		)
	} else {
		log.Info("DATABASE_URL or REDIS_ADDR unset, queued batches disabled")
	}

	router := httpapi.NewRouter(handlers.New(deps), httpapi.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		ProcessTimeout: cfg.ProcessTimeout,
	})

	// process-clips answers only after every clip rendered, so there is no
	// write timeout.
	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	shutdownMgr.Wait(ctx)
}
