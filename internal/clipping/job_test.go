package clipping

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"viralcut/internal/adapters/storage/localfs"
	"viralcut/internal/media/crop"
	"viralcut/internal/media/source"
	"viralcut/internal/media/transcoder"
	"viralcut/internal/outputs"
	"viralcut/internal/pkg/errors"
)

// recordingRunner writes a stub output file and records every request.
type recordingRunner struct {
	mu   sync.Mutex
	reqs map[string]transcoder.Request
	fail map[float64]error
}

func newRecordingRunner() *recordingRunner {
	return &recordingRunner{reqs: map[string]transcoder.Request{}, fail: map[float64]error{}}
}

func (r *recordingRunner) Transcode(ctx context.Context, req transcoder.Request) error {
	r.mu.Lock()
	r.reqs[req.Output] = req
	err := r.fail[req.Seek]
	r.mu.Unlock()

	if err != nil {
		return err
	}
	return os.WriteFile(req.Output, []byte("mp4"), 0o644)
}

func (r *recordingRunner) bySeek(seek float64) (transcoder.Request, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.reqs {
		if req.Seek == seek {
			return req, true
		}
	}
	return transcoder.Request{}, false
}

func scenario() []ClipSpec {
	return []ClipSpec{
		{ID: "1", StartTime: 0, EndTime: 15},
		{ID: "2", StartTime: 15, EndTime: 25},
		{ID: "3", StartTime: 25, EndTime: 33},
	}
}

func TestJobRequestsExactDuration(t *testing.T) {
	runner := newRecordingRunner()
	store := outputs.NewStore(localfs.New(t.TempDir()), "", "http://localhost:3001", nil)
	job := NewJob(runner, store, nil)

	cases := []ClipSpec{
		{ID: "a", StartTime: 0, EndTime: 15},
		{ID: "b", StartTime: 12.5, EndTime: 19.75},
		{ID: "c", StartTime: 100, EndTime: 100.04},
	}
	for _, spec := range cases {
		res := job.Render(context.Background(), source.ResolvedInput{URI: "in.mp4"}, spec, crop.Portrait916)
		if res.Failed() {
			t.Fatalf("clip %s failed: %s", spec.ID, res.Reason)
		}
		req, ok := runner.bySeek(spec.StartTime)
		if !ok {
			t.Fatalf("no request recorded for clip %s", spec.ID)
		}
		if req.Duration != spec.EndTime-spec.StartTime {
			t.Errorf("clip %s duration = %v, want %v", spec.ID, req.Duration, spec.EndTime-spec.StartTime)
		}
	}
}

func TestJobPassesSourceAndProfile(t *testing.T) {
	runner := newRecordingRunner()
	store := outputs.NewStore(localfs.New(t.TempDir()), "", "http://x", nil)
	job := NewJob(runner, store, nil)

	in := source.ResolvedInput{URI: "https://media/137", AudioURI: "https://media/140", IsRemoteStream: true}
	res := job.Render(context.Background(), in, ClipSpec{ID: "1", StartTime: 5, EndTime: 9}, crop.Square11)
	if res.Failed() {
		t.Fatal(res.Reason)
	}

	req, _ := runner.bySeek(5)
	if req.Input != in.URI || req.AudioInput != in.AudioURI || !req.RemoteStream {
		t.Errorf("source not passed through: %+v", req)
	}
	if req.Filter.String() != "crop=ih:ih:(iw-ow)/2:0" {
		t.Errorf("filter = %q", req.Filter.String())
	}
	if req.Profile != transcoder.FastPreview {
		t.Errorf("profile = %+v", req.Profile)
	}
}

func TestJobInvalidSpecSpawnsNothing(t *testing.T) {
	runner := newRecordingRunner()
	store := outputs.NewStore(localfs.New(t.TempDir()), "", "http://x", nil)
	job := NewJob(runner, store, nil)

	for _, spec := range []ClipSpec{
		{ID: "1", StartTime: 10, EndTime: 10},
		{ID: "2", StartTime: 10, EndTime: 5},
		{ID: "3", StartTime: -1, EndTime: 5},
	} {
		res := job.Render(context.Background(), source.ResolvedInput{URI: "in.mp4"}, spec, crop.Landscape169)
		if !res.Failed() || res.OutputLocator != "" || res.Reason == "" {
			t.Errorf("clip %s: expected failed result without locator, got %+v", spec.ID, res)
		}
	}
	if len(runner.reqs) != 0 {
		t.Fatalf("transcoder invoked %d times for invalid specs", len(runner.reqs))
	}
}

func TestBatchEndToEnd(t *testing.T) {
	runner := newRecordingRunner()
	root := t.TempDir()
	store := outputs.NewStore(localfs.New(root), "", "http://localhost:3001", nil)
	c := NewCoordinator(NewJob(runner, store, nil), 0, nil)

	out := c.RunBatch(context.Background(), source.ResolvedInput{URI: "uploads/talk.mp4"}, scenario(), crop.Portrait916, nil)
	if !out.AllSucceeded() {
		t.Fatalf("batch failed: %v", out.Err())
	}
	if len(out.Results) != 3 {
		t.Fatalf("got %d results", len(out.Results))
	}

	seen := map[string]bool{}
	for i, r := range out.Results {
		if want := fmt.Sprint(i + 1); r.ClipID != want {
			t.Errorf("result %d has id %s, want %s", i, r.ClipID, want)
		}
		if r.OutputLocator == "" || seen[r.OutputLocator] {
			t.Errorf("locator %q empty or duplicated", r.OutputLocator)
		}
		seen[r.OutputLocator] = true

		rc, _, _, err := store.Open(context.Background(), r.OutputKey)
		if err != nil {
			t.Errorf("clip %s not retrievable: %v", r.ClipID, err)
			continue
		}
		rc.Close()
	}

	for _, spec := range scenario() {
		req, ok := runner.bySeek(spec.StartTime)
		if !ok {
			t.Fatalf("clip %s never reached the transcoder", spec.ID)
		}
		if req.Filter.String() != "crop=ih*9/16:ih:(iw-ow)/2:0" {
			t.Errorf("clip %s filter = %q", spec.ID, req.Filter.String())
		}
	}
}

type countingRenderer struct {
	inner     Renderer
	mu        sync.Mutex
	completed int
}

func (c *countingRenderer) Render(ctx context.Context, in source.ResolvedInput, spec ClipSpec, aspect crop.Aspect) RenderResult {
	res := c.inner.Render(ctx, in, spec, aspect)
	c.mu.Lock()
	c.completed++
	c.mu.Unlock()
	return res
}

func TestBatchFailureScenario(t *testing.T) {
	runner := newRecordingRunner()
	runner.fail[15] = &transcoder.ExitError{Code: 1, Stderr: "moov atom not found"}
	root := t.TempDir()
	store := outputs.NewStore(localfs.New(root), "", "http://localhost:3001", nil)
	counter := &countingRenderer{inner: NewJob(runner, store, nil)}
	c := NewCoordinator(counter, 0, nil)

	out := c.RunBatch(context.Background(), source.ResolvedInput{URI: "uploads/talk.mp4"}, scenario(), crop.Portrait916, nil)

	var bf *BatchFailed
	if !stderrors.As(out.Err(), &bf) {
		t.Fatalf("expected BatchFailed, got %v", out.Err())
	}
	if bf.ClipID != "2" {
		t.Fatalf("failure references clip %s, want 2", bf.ClipID)
	}
	if msg := errors.Message(out.Err()); msg == "" || !strings.Contains(msg, "clip 2") {
		t.Fatalf("message %q should reference clip 2", msg)
	}
	if counter.completed != 3 {
		t.Fatalf("completion counter = %d, want 3", counter.completed)
	}
}
