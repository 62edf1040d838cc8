package transcoder

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"viralcut/internal/pkg/errors"
	"viralcut/internal/pkg/logger"
)

const stderrTailLines = 12

// FFmpeg runs the ffmpeg binary. Arguments are compiled with ffmpeg-go and
// executed through exec.CommandContext so a cancelled context kills the process.
type FFmpeg struct {
	Bin string
	Log *logger.Logger
}

func NewFFmpeg(bin string, log *logger.Logger) *FFmpeg {
	if bin == "" {
		bin = "ffmpeg"
	}
	if log == nil {
		log = logger.Discard()
	}
	return &FFmpeg{Bin: bin, Log: log.WithComponent("ffmpeg")}
}

// Available reports whether the binary can be found.
func (f *FFmpeg) Available() error {
	if _, err := exec.LookPath(f.Bin); err != nil {
		return errors.WrapWithCode(err, errors.CodeUnavailable, "ffmpeg.lookup", "ffmpeg binary not found")
	}
	return nil
}

// Args compiles req into the ffmpeg argument list, without the binary name.
func (f *FFmpeg) Args(req Request) []string {
	inputArgs := func() ffmpeg.KwArgs {
		kw := ffmpeg.KwArgs{"ss": seconds(req.Seek)}
		if req.RemoteStream {
			kw["analyzeduration"] = "0"
			kw["probesize"] = "32"
		}
		return kw
	}

	p := req.Profile
	out := ffmpeg.KwArgs{
		"t":       seconds(req.Duration),
		"c:v":     p.VideoCodec,
		"preset":  p.Preset,
		"crf":     strconv.Itoa(p.CRF),
		"c:a":     p.AudioCodec,
		"b:a":     p.AudioBitrate,
		"ac":      strconv.Itoa(p.AudioChannels),
		"pix_fmt": p.PixelFormat,
	}
	if vf := req.Filter.String(); vf != "" {
		out["vf"] = vf
	}

	video := ffmpeg.Input(req.Input, inputArgs())

	var stream *ffmpeg.Stream
	if req.AudioInput != "" {
		audio := ffmpeg.Input(req.AudioInput, inputArgs())
		stream = ffmpeg.Output([]*ffmpeg.Stream{video.Video(), audio.Audio()}, req.Output, out)
	} else {
		stream = video.Output(req.Output, out)
	}

	return stream.
		GlobalArgs("-hide_banner", "-loglevel", "error").
		OverWriteOutput().
		GetArgs()
}

// Transcode runs ffmpeg for req and waits for it to exit.
func (f *FFmpeg) Transcode(ctx context.Context, req Request) error {
	const op = "ffmpeg.transcode"

	if err := req.Validate(); err != nil {
		return err
	}

	args := f.Args(req)
	log := f.Log.FromContext(ctx)
	log.Debug("ffmpeg starting", "args", strings.Join(args, " "))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.Bin, args...)
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err == nil {
		log.Debug("ffmpeg finished", "output", req.Output, "duration_ms", elapsed.Milliseconds())
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		code := errors.CodeCanceled
		if stderrors.Is(ctxErr, context.DeadlineExceeded) {
			code = errors.CodeTimeout
		}
		return errors.WrapWithCode(ctxErr, code, op, "encode interrupted")
	}

	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		ee := &ExitError{Code: exitErr.ExitCode(), Stderr: tail(stderr.String(), stderrTailLines)}
		return errors.WrapWithCode(ee, errors.CodeRenderFailed, op, ee.Error())
	}
	return errors.WrapWithCode(err, errors.CodeRenderFailed, op, "ffmpeg could not be started")
}

// ExitError is a non-zero ffmpeg exit with the last lines of its stderr.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("ffmpeg exited with status %d", e.Code)
	}
	return fmt.Sprintf("ffmpeg exited with status %d: %s", e.Code, e.Stderr)
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

var _ Runner = (*FFmpeg)(nil)
