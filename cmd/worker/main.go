package main

import (
	"context"
	"time"

	"viralcut/internal/bootstrap"
	"viralcut/internal/config"
	"viralcut/internal/pkg/logger"
	"viralcut/internal/pkg/shutdown"
	"viralcut/internal/progress"
	"viralcut/internal/repositories"
	"viralcut/internal/worker"
	"viralcut/internal/worker/queue"
)

func main() {
	cfg := config.Load("viralcut-worker")
	log := logger.New(cfg.Log)

	if !cfg.AsyncEnabled() {
		log.Error("worker needs DATABASE_URL and REDIS_ADDR")
		return
	}

	ctx := context.Background()
	shutdownMgr := shutdown.NewManager(log, 30*time.Second)

	be, err := bootstrap.Connect(ctx, cfg, log, shutdownMgr)
	if err != nil {
		log.LogFatal("failed to connect backends", err)
	}
	repo := repositories.NewBatchRepository(be.Pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.LogFatal("failed to prepare schema", err)
	}

	core, err := bootstrap.NewCore(ctx, cfg, log)
	if err != nil {
		log.LogFatal("failed to build pipeline", err)
	}

	runCtx, stop := context.WithCancel(ctx)
	stopped := make(chan struct{})
	// Registered last so it runs first: the in-flight batch is canceled and
	// recorded before the pools close.
	shutdownMgr.Register("worker", func(ctx context.Context) error {
		stop()
		select {
		case <-stopped:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	go func() {
		defer close(stopped)
		log.Info("viralcut worker started", "queue", cfg.QueueName)
		err := worker.Run(runCtx, worker.Deps{
			Queue:        queue.NewRedisQueue(be.RDB, cfg.QueueName),
			Repo:         repo,
			Pipeline:     core.Pipeline,
			Progress:     progress.NewTracker(be.RDB, cfg.ProgressTTL),
			Log:          log,
			BatchTimeout: cfg.BatchTimeout,
		})
		if err != nil && runCtx.Err() == nil {
			log.LogFatal("worker stopped", err)
		}
	}()

	shutdownMgr.Wait(ctx)
}
