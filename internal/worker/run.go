// Package worker consumes queued batch ids and renders them.
package worker

import (
	"context"
	"time"

	"viralcut/internal/pkg/logger"
	"viralcut/internal/worker/processor"
)

const (
	defaultPopWait = 5 * time.Second
	popRetryDelay  = time.Second
)

// Queue is the consumer side of the batch queue.
type Queue interface {
	Pop(ctx context.Context, wait time.Duration) (string, error)
}

// Run pops batch ids until ctx ends. One batch runs at a time; parallelism
// lives inside the batch. Batch failures are logged and never stop the loop.
func Run(ctx context.Context, d Deps) error {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("worker")

	wait := d.PopWait
	if wait <= 0 {
		wait = defaultPopWait
	}

	p := processor.New(processor.Deps{
		Repo:     d.Repo,
		Pipeline: d.Pipeline,
		Progress: d.Progress,
		Log:      log,
	})

	for {
		select {
		case <-ctx.Done():
			log.Info("worker context canceled, stopping")
			return ctx.Err()
		default:
		}

		batchID, err := d.Queue.Pop(ctx, wait)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("worker stopping due to context cancellation")
				return ctx.Err()
			}
			log.Warn("queue pop error, retrying", "error", err.Error())
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(popRetryDelay):
			}
			continue
		}
		if batchID == "" {
			continue
		}

		runBatch(ctx, p, log, batchID, d.BatchTimeout)
	}
}

func runBatch(ctx context.Context, p *processor.Processor, log *logger.Logger, batchID string, timeout time.Duration) {
	batchCtx := logger.ContextWithBatchID(ctx, batchID)
	if timeout > 0 {
		var cancel context.CancelFunc
		batchCtx, cancel = context.WithTimeout(batchCtx, timeout)
		defer cancel()
	}
	batchLog := log.WithBatchID(batchID)

	batchLog.Info("processing batch")
	start := time.Now()

	if err := p.ProcessBatch(batchCtx, batchID); err != nil {
		batchLog.Error("batch failed",
			"error", err.Error(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return
	}
	batchLog.Info("batch completed", "duration_ms", time.Since(start).Milliseconds())
}
