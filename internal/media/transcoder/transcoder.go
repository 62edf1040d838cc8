// Package transcoder runs the external encoder for one clip.
package transcoder

import (
	"context"

	"viralcut/internal/media/crop"
	"viralcut/internal/pkg/errors"
)

// Profile is a fixed encoding configuration.
type Profile struct {
	VideoCodec    string
	Preset        string
	CRF           int
	AudioCodec    string
	AudioBitrate  string
	AudioChannels int
	PixelFormat   string
}

// FastPreview favours encode speed over size and quality: short social
// clips are rendered while the caller waits.
var FastPreview = Profile{
	VideoCodec:    "libx264",
	Preset:        "ultrafast",
	CRF:           30,
	AudioCodec:    "aac",
	AudioBitrate:  "96k",
	AudioChannels: 1,
	PixelFormat:   "yuv420p",
}

// Request describes one trim, crop and encode invocation.
type Request struct {
	Input string
	// AudioInput is an optional second input supplying the audio track.
	AudioInput string
	// RemoteStream enables minimal probing for network inputs.
	RemoteStream bool

	// Seek is the input side start offset in seconds. Seeking lands on a
	// keyframe so the clip may start slightly early.
	Seek float64
	// Duration is the output length in seconds.
	Duration float64

	Filter  crop.Expression
	Profile Profile
	Output  string
}

// Validate checks the fields every runner relies on.
func (r Request) Validate() error {
	switch {
	case r.Input == "":
		return errors.Validation("transcode input is required")
	case r.Output == "":
		return errors.Validation("transcode output is required")
	case r.Seek < 0:
		return errors.Validationf("seek must be >= 0, got %g", r.Seek)
	case r.Duration <= 0:
		return errors.Validationf("duration must be > 0, got %g", r.Duration)
	}
	return nil
}

// Runner executes a Request. Implementations must stop the encoder when ctx
// is done.
type Runner interface {
	Transcode(ctx context.Context, req Request) error
}
