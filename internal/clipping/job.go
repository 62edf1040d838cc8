package clipping

import (
	"context"
	"time"

	"viralcut/internal/media/crop"
	"viralcut/internal/media/source"
	"viralcut/internal/media/transcoder"
	"viralcut/internal/outputs"
	"viralcut/internal/pkg/errors"
	"viralcut/internal/pkg/logger"
)

// OutputStore hands out output locations and publishes finished files.
type OutputStore interface {
	Allocate(clipID string) (outputs.Allocation, error)
	Publish(ctx context.Context, a outputs.Allocation) error
	Discard(ctx context.Context, a outputs.Allocation)
}

// Renderer renders one clip. Coordinator runs one Render per clip.
type Renderer interface {
	Render(ctx context.Context, in source.ResolvedInput, spec ClipSpec, aspect crop.Aspect) RenderResult
}

// Job trims, crops and encodes a single clip. It never retries.
type Job struct {
	Runner  transcoder.Runner
	Outputs OutputStore
	Profile transcoder.Profile
	Log     *logger.Logger
}

func NewJob(runner transcoder.Runner, out OutputStore, log *logger.Logger) *Job {
	if log == nil {
		log = logger.Discard()
	}
	return &Job{
		Runner:  runner,
		Outputs: out,
		Profile: transcoder.FastPreview,
		Log:     log.WithComponent("clip_job"),
	}
}

func (j *Job) Render(ctx context.Context, in source.ResolvedInput, spec ClipSpec, aspect crop.Aspect) RenderResult {
	log := j.Log.FromContext(ctx).WithClipID(spec.ID)

	if err := spec.Validate(); err != nil {
		log.Warn("clip rejected", "error", err.Error())
		return failed(spec.ID, errors.Message(err))
	}

	alloc, err := j.Outputs.Allocate(spec.ID)
	if err != nil {
		log.Error("output allocation failed", "error", err.Error())
		return failed(spec.ID, errors.Message(err))
	}

	req := transcoder.Request{
		Input:        in.URI,
		AudioInput:   in.AudioURI,
		RemoteStream: in.IsRemoteStream,
		Seek:         spec.StartTime,
		Duration:     spec.Duration(),
		Filter:       crop.Filter(aspect),
		Profile:      j.Profile,
		Output:       alloc.LocalPath,
	}

	start := time.Now()
	if err := j.Runner.Transcode(ctx, req); err != nil {
		j.Outputs.Discard(ctx, alloc)
		log.Warn("clip render failed", "error", err.Error(), "elapsed_ms", time.Since(start).Milliseconds())
		return failed(spec.ID, errors.Message(err))
	}

	if err := j.Outputs.Publish(ctx, alloc); err != nil {
		j.Outputs.Discard(ctx, alloc)
		log.Error("clip publish failed", "error", err.Error())
		return failed(spec.ID, errors.Message(err))
	}

	log.Info("clip rendered",
		"key", alloc.Key,
		"start", spec.StartTime,
		"duration", spec.Duration(),
		"aspect", string(aspect),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return RenderResult{
		ClipID:        spec.ID,
		OutputKey:     alloc.Key,
		OutputLocator: alloc.URL,
		Status:        StatusSuccess,
	}
}

var _ Renderer = (*Job)(nil)
