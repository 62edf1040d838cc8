package transcoder

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"viralcut/internal/media/crop"
	"viralcut/internal/pkg/errors"
)

func indexOf(args []string, v string) int {
	for i, a := range args {
		if a == v {
			return i
		}
	}
	return -1
}

func count(args []string, v string) int {
	n := 0
	for _, a := range args {
		if a == v {
			n++
		}
	}
	return n
}

func valueAfter(t *testing.T, args []string, flag string) string {
	t.Helper()
	i := indexOf(args, flag)
	if i < 0 || i+1 >= len(args) {
		t.Fatalf("flag %s missing in %v", flag, args)
	}
	return args[i+1]
}

func baseRequest() Request {
	return Request{
		Input:    "uploads/talk.mp4",
		Seek:     30,
		Duration: 15,
		Filter:   crop.Filter(crop.Portrait916),
		Profile:  FastPreview,
		Output:   "public/generated/clip-1.mp4",
	}
}

func TestArgsLocalPortrait(t *testing.T) {
	args := NewFFmpeg("", nil).Args(baseRequest())

	ss, in := indexOf(args, "-ss"), indexOf(args, "-i")
	if ss < 0 || in < 0 || ss > in {
		t.Fatalf("-ss must precede -i for input side seeking: %v", args)
	}
	if got := valueAfter(t, args, "-ss"); got != "30" {
		t.Errorf("-ss = %q", got)
	}
	if got := valueAfter(t, args, "-t"); got != "15" {
		t.Errorf("-t = %q, want exactly 15", got)
	}
	if got := valueAfter(t, args, "-vf"); got != "crop=ih*9/16:ih:(iw-ow)/2:0" {
		t.Errorf("-vf = %q", got)
	}
	for flag, want := range map[string]string{
		"-c:v": "libx264", "-preset": "ultrafast", "-crf": "30",
		"-c:a": "aac", "-b:a": "96k", "-ac": "1", "-pix_fmt": "yuv420p",
	} {
		if got := valueAfter(t, args, flag); got != want {
			t.Errorf("%s = %q, want %q", flag, got, want)
		}
	}
	if indexOf(args, "-probesize") >= 0 {
		t.Errorf("local input should not tune probing: %v", args)
	}
	if indexOf(args, "-y") < 0 {
		t.Errorf("expected overwrite flag: %v", args)
	}
	if indexOf(args, "public/generated/clip-1.mp4") < 0 {
		t.Errorf("output path missing: %v", args)
	}
}

func TestArgsFractionalDuration(t *testing.T) {
	req := baseRequest()
	req.Seek = 12.5
	req.Duration = 7.25
	args := NewFFmpeg("", nil).Args(req)

	if got := valueAfter(t, args, "-ss"); got != "12.5" {
		t.Errorf("-ss = %q", got)
	}
	if got := valueAfter(t, args, "-t"); got != "7.25" {
		t.Errorf("-t = %q", got)
	}
}

func TestArgsLandscapeHasNoFilter(t *testing.T) {
	req := baseRequest()
	req.Filter = crop.Filter(crop.Landscape169)
	args := NewFFmpeg("", nil).Args(req)

	if indexOf(args, "-vf") >= 0 {
		t.Fatalf("landscape must not add a filter: %v", args)
	}
}

func TestArgsRemoteStream(t *testing.T) {
	req := baseRequest()
	req.Input = "https://media.example/18"
	req.RemoteStream = true
	args := NewFFmpeg("", nil).Args(req)

	in := indexOf(args, "-i")
	for flag, want := range map[string]string{"-analyzeduration": "0", "-probesize": "32"} {
		i := indexOf(args, flag)
		if i < 0 || i > in {
			t.Fatalf("%s must be an input option: %v", flag, args)
		}
		if args[i+1] != want {
			t.Errorf("%s = %q, want %q", flag, args[i+1], want)
		}
	}
}

func TestArgsPairedAudio(t *testing.T) {
	req := baseRequest()
	req.Input = "https://media.example/137"
	req.AudioInput = "https://media.example/140"
	req.RemoteStream = true
	args := NewFFmpeg("", nil).Args(req)

	if n := count(args, "-i"); n != 2 {
		t.Fatalf("expected two inputs, got %d: %v", n, args)
	}
	if n := count(args, "-ss"); n != 2 {
		t.Fatalf("both inputs must seek, got %d: %v", n, args)
	}
	if n := count(args, "-map"); n != 2 {
		t.Fatalf("expected explicit stream mapping: %v", args)
	}
}

func TestRequestValidate(t *testing.T) {
	tests := map[string]func(r *Request){
		"no input":      func(r *Request) { r.Input = "" },
		"no output":     func(r *Request) { r.Output = "" },
		"negative seek": func(r *Request) { r.Seek = -1 },
		"zero duration": func(r *Request) { r.Duration = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			r := baseRequest()
			mutate(&r)
			if err := r.Validate(); !errors.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
	if err := baseRequest().Validate(); err != nil {
		t.Fatalf("base request invalid: %v", err)
	}
}

func fakeBinary(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes need a unix shell")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTranscodeExitError(t *testing.T) {
	bin := fakeBinary(t, "echo 'first line' >&2\necho 'Invalid data found when processing input' >&2\nexit 3")
	f := NewFFmpeg(bin, nil)

	err := f.Transcode(context.Background(), baseRequest())
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.IsCode(err, errors.CodeRenderFailed) {
		t.Fatalf("expected RENDER_FAILED, got %v", err)
	}

	var ee *ExitError
	if !stderrors.As(err, &ee) {
		t.Fatalf("expected *ExitError in chain, got %T", err)
	}
	if ee.Code != 3 || !strings.Contains(ee.Stderr, "Invalid data") {
		t.Fatalf("unexpected exit error %+v", ee)
	}
}

func TestTranscodeSuccess(t *testing.T) {
	bin := fakeBinary(t, "exit 0")
	if err := NewFFmpeg(bin, nil).Transcode(context.Background(), baseRequest()); err != nil {
		t.Fatalf("Transcode: %v", err)
	}
}

func TestTranscodeCanceled(t *testing.T) {
	bin := fakeBinary(t, "sleep 5")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewFFmpeg(bin, nil).Transcode(ctx, baseRequest())
	if !errors.IsCode(err, errors.CodeCanceled) {
		t.Fatalf("expected CANCELED, got %v", err)
	}
}

func TestAvailable(t *testing.T) {
	if err := NewFFmpeg("definitely-not-an-encoder-binary", nil).Available(); err == nil {
		t.Fatal("expected lookup failure")
	}
	bin := fakeBinary(t, "exit 0")
	if err := NewFFmpeg(bin, nil).Available(); err != nil {
		t.Fatalf("Available(%s): %v", bin, err)
	}
}

func TestTail(t *testing.T) {
	in := "a\nb\nc\nd\n"
	if got := tail(in, 2); got != "c\nd" {
		t.Fatalf("tail = %q", got)
	}
	if got := tail("only", 5); got != "only" {
		t.Fatalf("tail = %q", got)
	}
}
