package source

import (
	"context"
	"os"

	"viralcut/internal/media/platform"
	"viralcut/internal/pkg/errors"
	"viralcut/internal/pkg/logger"
)

// Resolver resolves descriptors. Platform may be nil, in which case platform
// links are unavailable.
type Resolver struct {
	Platform   platform.MetadataClient
	Strategies []Strategy
	Log        *logger.Logger
}

func NewResolver(pc platform.MetadataClient, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.Discard()
	}
	return &Resolver{
		Platform:   pc,
		Strategies: DefaultStrategies(),
		Log:        log.WithComponent("source"),
	}
}

// Resolve returns a decodable input for d. Local paths are checked for
// existence, direct URLs pass through untouched and platform links go through
// the strategy list once. A strategy whose stream URL cannot be resolved
// counts as producing nothing.
func (r *Resolver) Resolve(ctx context.Context, d Descriptor) (ResolvedInput, error) {
	const op = "source.resolve"

	switch d.Kind() {
	case KindLocalFile:
		fi, err := os.Stat(d.Ref())
		if err != nil {
			return ResolvedInput{}, errors.WrapWithCode(err, errors.CodeNotFound, op, ErrSourceNotFound.Message)
		}
		if fi.IsDir() {
			return ResolvedInput{}, errors.New(errors.CodeNotFound, ErrSourceNotFound.Message).WithField("path", d.Ref())
		}
		return ResolvedInput{URI: d.Ref()}, nil

	case KindDirectURL:
		return ResolvedInput{URI: d.Ref(), IsRemoteStream: true}, nil

	case KindPlatformLink:
		return r.resolvePlatform(ctx, d.Ref())

	default:
		return ResolvedInput{}, errors.Validationf("unknown source kind %d", d.Kind())
	}
}

func (r *Resolver) resolvePlatform(ctx context.Context, link string) (ResolvedInput, error) {
	const op = "source.resolve_platform"
	log := r.Log.FromContext(ctx)

	if r.Platform == nil {
		return ResolvedInput{}, errors.New(errors.CodeUnavailable, "no platform metadata client configured")
	}

	info, err := r.Platform.Info(ctx, link)
	if err != nil {
		return ResolvedInput{}, errors.WrapWithCode(err, errors.CodeUnavailable, op, ErrSourceUnavailable.Message)
	}

	// Formats whose stream URL failed are not offered to later strategies.
	candidates := info.Formats
	var lastErr error
	for _, s := range r.Strategies {
		sel, ok := s.Pick(candidates)
		if !ok {
			log.Debug("format strategy produced nothing", "strategy", s.Name, "formats", len(candidates))
			continue
		}

		in, bad, err := r.streamURLs(ctx, info, sel)
		if err != nil {
			log.Debug("format stream unresolvable", "strategy", s.Name, "itag", bad, "error", err.Error())
			lastErr = err
			candidates = withoutItag(candidates, bad)
			continue
		}

		log.Info("platform source resolved",
			"video_id", info.ID,
			"strategy", s.Name,
			"itag", sel.Video.Itag,
			"paired_audio", sel.Audio != nil,
		)
		return in, nil
	}

	if lastErr != nil {
		return ResolvedInput{}, errors.WrapWithCode(lastErr, errors.CodeUnavailable, op, ErrSourceUnavailable.Message).
			WithField("video_id", info.ID).
			WithField("formats", len(info.Formats))
	}
	return ResolvedInput{}, errors.New(errors.CodeUnavailable, ErrSourceUnavailable.Message).
		WithField("video_id", info.ID).
		WithField("formats", len(info.Formats))
}

// streamURLs resolves the direct media URLs of a selection. On failure it
// also returns the itag that could not be resolved.
func (r *Resolver) streamURLs(ctx context.Context, info platform.Info, sel Selection) (ResolvedInput, int, error) {
	in := ResolvedInput{IsRemoteStream: true}
	var err error
	if in.URI, err = r.Platform.StreamURL(ctx, info, sel.Video); err != nil {
		return ResolvedInput{}, sel.Video.Itag, err
	}
	if sel.Audio != nil {
		if in.AudioURI, err = r.Platform.StreamURL(ctx, info, *sel.Audio); err != nil {
			return ResolvedInput{}, sel.Audio.Itag, err
		}
	}
	return in, 0, nil
}

func withoutItag(formats []platform.Format, itag int) []platform.Format {
	out := make([]platform.Format, 0, len(formats))
	for _, f := range formats {
		if f.Itag != itag {
			out = append(out, f)
		}
	}
	return out
}
