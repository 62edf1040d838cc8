// Package processor runs one queued batch: claim it, render every clip and
// store the outcome.
package processor

import (
	"context"
	"time"

	"viralcut/internal/clipping"
	clipsv1 "viralcut/internal/contracts/clips/v1"
	"viralcut/internal/models"
	"viralcut/internal/pkg/errors"
	"viralcut/internal/pkg/logger"
	"viralcut/internal/progress"
	"viralcut/internal/repositories"
)

// finalizeTimeout bounds the status write after a batch ends, which must
// happen even when the batch context was canceled.
const finalizeTimeout = 10 * time.Second

type BatchRepo interface {
	Get(ctx context.Context, id string) (*models.Batch, error)
	MarkRunning(ctx context.Context, id string) error
	MarkDone(ctx context.Context, id string, result clipsv1.ProcessResponse) error
	MarkFailed(ctx context.Context, id string, reason string) error
}

type Pipeline interface {
	Process(ctx context.Context, req clipsv1.ProcessRequest, obs clipping.Observer) (clipsv1.ProcessResponse, error)
}

type ProgressRecorder = progress.Recorder

type Deps struct {
	Repo     BatchRepo
	Pipeline Pipeline
	Progress ProgressRecorder
	Log      *logger.Logger
}

type Processor struct {
	repo     BatchRepo
	pipeline Pipeline
	progress progress.Recorder
	log      *logger.Logger
}

func New(d Deps) *Processor {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Processor{
		repo:     d.Repo,
		pipeline: d.Pipeline,
		progress: d.Progress,
		log:      log.WithComponent("processor"),
	}
}

// ProcessBatch renders batchID and records DONE or FAILED. Batches that are
// already finished are skipped without error.
func (p *Processor) ProcessBatch(ctx context.Context, batchID string) error {
	ctx = logger.ContextWithBatchID(ctx, batchID)
	log := p.log.FromContext(ctx)

	b, err := p.repo.Get(ctx, batchID)
	if err != nil {
		if errors.IsNotFound(err) {
			log.Warn("queued batch has no record, dropping")
			return nil
		}
		return errors.Wrap(err, "processor.fetch", "failed to load batch")
	}
	if b.Status.Terminal() {
		log.Info("batch already finished, skipping", "status", string(b.Status))
		return nil
	}

	if err := p.repo.MarkRunning(ctx, batchID); err != nil {
		if errors.Is(err, repositories.ErrBatchNotRunnable) {
			log.Info("batch claimed elsewhere, skipping")
			return nil
		}
		return p.fail(ctx, batchID, errors.Wrap(err, "processor.status", "failed to mark batch running"))
	}

	var obs clipping.Observer
	if p.progress != nil {
		obs = progress.Observer(p.progress, batchID, p.log)
	}

	log.Info("rendering batch", "clips", len(b.Request.Clips), "source", b.Request.SourceFilename)
	resp, err := p.pipeline.Process(ctx, b.Request, obs)
	if err != nil {
		return p.fail(ctx, batchID, err)
	}

	fctx, cancel := finalizeContext(ctx)
	defer cancel()
	if err := p.repo.MarkDone(fctx, batchID, resp); err != nil {
		return errors.Wrap(err, "processor.save", "failed to save batch result")
	}
	log.Info("batch done", "clips", len(resp.Clips))
	return nil
}

func (p *Processor) fail(ctx context.Context, batchID string, cause error) error {
	log := p.log.FromContext(ctx)

	reason := errors.Message(cause)
	var coded *errors.Error
	if errors.As(cause, &coded) {
		log.Error("batch failed",
			"code", string(coded.Code),
			"op", coded.Op,
			"message", coded.Message,
		)
	} else {
		log.Error("batch failed", "error", cause.Error())
	}

	fctx, cancel := finalizeContext(ctx)
	defer cancel()
	if err := p.repo.MarkFailed(fctx, batchID, reason); err != nil {
		log.Error("could not record batch failure", "error", err.Error())
	}
	return cause
}

func finalizeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
}
