package clipping

import (
	"context"
	"fmt"
	"sync"
	"time"

	"viralcut/internal/media/crop"
	"viralcut/internal/media/source"
	"viralcut/internal/pkg/errors"
	"viralcut/internal/pkg/logger"
)

// Observer is told about job progress. ClipStarted runs on job goroutines
// and must be safe for concurrent use; ClipFinished is only called from the
// coordinator's collecting goroutine.
type Observer interface {
	ClipStarted(ctx context.Context, clipID string)
	ClipFinished(ctx context.Context, r RenderResult)
}

type nopObserver struct{}

func (nopObserver) ClipStarted(context.Context, string)        {}
func (nopObserver) ClipFinished(context.Context, RenderResult) {}

// Coordinator fans a batch out to one Renderer call per clip and joins the
// results.
type Coordinator struct {
	Renderer Renderer
	// MaxParallel caps concurrently running jobs. Zero means one goroutine
	// per clip, all started at once.
	MaxParallel int
	Log         *logger.Logger
}

func NewCoordinator(r Renderer, maxParallel int, log *logger.Logger) *Coordinator {
	if log == nil {
		log = logger.Discard()
	}
	return &Coordinator{Renderer: r, MaxParallel: maxParallel, Log: log.WithComponent("coordinator")}
}

// RunBatch renders every spec against in and waits for all of them, even
// after a failure. ctx reaches every encoder process, so cancelling it stops
// the batch early; RunBatch still returns only after all jobs have exited.
func (c *Coordinator) RunBatch(ctx context.Context, in source.ResolvedInput, specs []ClipSpec, aspect crop.Aspect, obs Observer) BatchOutcome {
	const op = "clipping.run_batch"

	if err := ValidateBatch(specs); err != nil {
		return BatchOutcome{err: errors.Wrap(err, op, errors.Message(err))}
	}
	if obs == nil {
		obs = nopObserver{}
	}

	log := c.Log.FromContext(ctx)
	log.Info("batch started", "clips", len(specs), "aspect", string(aspect), "remote", in.IsRemoteStream)
	start := time.Now()

	// Buffered to len(specs) so a job never blocks on send.
	results := make(chan RenderResult, len(specs))
	var sem chan struct{}
	if c.MaxParallel > 0 && c.MaxParallel < len(specs) {
		sem = make(chan struct{}, c.MaxParallel)
	}

	var wg sync.WaitGroup
	for _, spec := range specs {
		wg.Add(1)
		go func(spec ClipSpec) {
			defer wg.Done()
			results <- c.runOne(ctx, in, spec, aspect, sem, obs)
		}(spec)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// Only this goroutine touches collected and first.
	collected := make([]RenderResult, 0, len(specs))
	var first *RenderResult
	for r := range results {
		collected = append(collected, r)
		obs.ClipFinished(ctx, r)

		if !r.Failed() {
			continue
		}
		if first == nil {
			f := r
			first = &f
			log.Warn("first clip failure", "clip_id", r.ClipID, "reason", r.Reason)
		} else {
			log.Warn("additional clip failure", "clip_id", r.ClipID, "reason", r.Reason)
		}
	}

	elapsed := time.Since(start).Milliseconds()
	if first != nil {
		bf := &BatchFailed{ClipID: first.ClipID, Reason: first.Reason}
		log.Error("batch failed", "clip_id", bf.ClipID, "completed", len(collected), "elapsed_ms", elapsed)
		return BatchOutcome{
			err: errors.WrapWithCode(bf, errors.CodeRenderFailed, op, fmt.Sprintf("Failed to process clip %s: %s", bf.ClipID, bf.Reason)).
				WithField("clip_id", bf.ClipID),
		}
	}

	SortResults(collected)
	log.Info("batch finished", "clips", len(collected), "elapsed_ms", elapsed)
	return BatchOutcome{Results: collected}
}

func (c *Coordinator) runOne(ctx context.Context, in source.ResolvedInput, spec ClipSpec, aspect crop.Aspect, sem chan struct{}, obs Observer) (res RenderResult) {
	defer func() {
		if rec := recover(); rec != nil {
			c.Log.FromContext(ctx).Error("clip job panicked", "clip_id", spec.ID, "panic", fmt.Sprint(rec))
			res = failed(spec.ID, fmt.Sprintf("internal error: %v", rec))
		}
	}()

	if sem != nil {
		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
		case <-ctx.Done():
			return failed(spec.ID, ctx.Err().Error())
		}
	}

	obs.ClipStarted(ctx, spec.ID)
	return c.Renderer.Render(ctx, in, spec, aspect)
}
