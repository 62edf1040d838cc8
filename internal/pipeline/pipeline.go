// Package pipeline runs one clip request end to end: classify and resolve
// the source, then render the batch.
package pipeline

import (
	"context"
	stderrors "errors"
	"strings"

	"viralcut/internal/clipping"
	clipsv1 "viralcut/internal/contracts/clips/v1"
	"viralcut/internal/media/crop"
	"viralcut/internal/media/source"
	"viralcut/internal/pkg/errors"
	"viralcut/internal/pkg/logger"
)

type SourceResolver interface {
	Resolve(ctx context.Context, d source.Descriptor) (source.ResolvedInput, error)
}

type BatchRunner interface {
	RunBatch(ctx context.Context, in source.ResolvedInput, specs []clipping.ClipSpec, aspect crop.Aspect, obs clipping.Observer) clipping.BatchOutcome
}

type Pipeline struct {
	Resolver  SourceResolver
	Runner    BatchRunner
	UploadDir string
	// IsPlatform recognises platform links; nil treats every URL as direct.
	IsPlatform func(string) bool
	Log        *logger.Logger
}

// Process validates req, resolves its source once and renders every clip.
// Request and source errors are returned before any job starts.
func (p *Pipeline) Process(ctx context.Context, req clipsv1.ProcessRequest, obs clipping.Observer) (clipsv1.ProcessResponse, error) {
	const op = "pipeline.process"
	log := p.logger().FromContext(ctx)

	aspect, specs, err := Validate(req)
	if err != nil {
		return clipsv1.ProcessResponse{}, err
	}

	desc, err := source.Classify(req.SourceFilename, p.UploadDir, p.IsPlatform)
	if err != nil {
		return clipsv1.ProcessResponse{}, err
	}

	in, err := p.Resolver.Resolve(ctx, desc)
	if err != nil {
		log.Warn("source resolution failed", "source", desc.String(), "error", err.Error())
		return clipsv1.ProcessResponse{}, err
	}
	log.Info("source resolved", "kind", desc.Kind().String(), "remote", in.IsRemoteStream, "clips", len(specs))

	outcome := p.Runner.RunBatch(ctx, in, specs, aspect, obs)
	if err := outcome.Err(); err != nil {
		// A batch that failed because ctx ended reports the deadline or
		// cancellation instead of the killed transcoder.
		if ctxErr := ctx.Err(); ctxErr != nil {
			code := errors.CodeCanceled
			if stderrors.Is(ctxErr, context.DeadlineExceeded) {
				code = errors.CodeTimeout
			}
			return clipsv1.ProcessResponse{}, errors.WrapWithCode(err, code, op, errors.Message(err)).
				WithFields(errors.GetFields(err))
		}
		return clipsv1.ProcessResponse{}, errors.Wrap(err, op, errors.Message(err))
	}

	return Respond(req.Clips, outcome.Results), nil
}

func (p *Pipeline) logger() *logger.Logger {
	if p.Log == nil {
		return logger.Discard()
	}
	return p.Log
}

// Validate checks everything about req that does not need the source.
func Validate(req clipsv1.ProcessRequest) (crop.Aspect, []clipping.ClipSpec, error) {
	aspect := crop.ParseAspect(req.AspectRatio)
	specs := Specs(req.Clips)
	if err := clipping.ValidateBatch(specs); err != nil {
		return "", nil, err
	}
	if strings.TrimSpace(req.SourceFilename) == "" {
		return "", nil, errors.ValidationField("sourceFilename", "sourceFilename is required")
	}
	return aspect, specs, nil
}

// Specs converts wire clips to clip specs.
func Specs(clips []clipsv1.Clip) []clipping.ClipSpec {
	out := make([]clipping.ClipSpec, len(clips))
	for i, c := range clips {
		out[i] = clipping.ClipSpec{ID: c.ID, StartTime: c.StartTime, EndTime: c.EndTime}
	}
	return out
}

// Respond echoes each requested clip with its video URL, in result order.
func Respond(requested []clipsv1.Clip, results []clipping.RenderResult) clipsv1.ProcessResponse {
	byID := make(map[string]clipsv1.Clip, len(requested))
	for _, c := range requested {
		byID[c.ID] = c
	}

	out := clipsv1.ProcessResponse{Clips: make([]clipsv1.Clip, 0, len(results))}
	for _, r := range results {
		c, ok := byID[r.ClipID]
		if !ok {
			c = clipsv1.Clip{ID: r.ClipID}
		}
		c.VideoURL = r.OutputLocator
		out.Clips = append(out.Clips, c)
	}
	return out
}
