package source

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"viralcut/internal/media/platform"
	"viralcut/internal/pkg/errors"
)

type fakePlatform struct {
	info      platform.Info
	infoErr   error
	infoHits  int
	streamed  []int
	streamErr map[int]error
}

func (f *fakePlatform) IsPlatformLink(raw string) bool {
	return strings.Contains(raw, "youtube.com")
}

func (f *fakePlatform) Info(ctx context.Context, link string) (platform.Info, error) {
	f.infoHits++
	return f.info, f.infoErr
}

func (f *fakePlatform) StreamURL(ctx context.Context, info platform.Info, fm platform.Format) (string, error) {
	f.streamed = append(f.streamed, fm.Itag)
	if err := f.streamErr[fm.Itag]; err != nil {
		return "", err
	}
	return fmt.Sprintf("https://media.example/%d", fm.Itag), nil
}

func TestResolveLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "talk.mp4")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(nil, nil)
	ctx := context.Background()

	in, err := r.Resolve(ctx, LocalFile(path))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if in.URI != path || in.IsRemoteStream {
		t.Fatalf("unexpected input %+v", in)
	}

	_, err = r.Resolve(ctx, LocalFile(filepath.Join(dir, "missing.mp4")))
	if !stderrors.Is(err, ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}
	if errors.GetHTTPStatus(err) != 404 {
		t.Fatalf("expected 404, got %d", errors.GetHTTPStatus(err))
	}

	_, err = r.Resolve(ctx, LocalFile(dir))
	if !stderrors.Is(err, ErrSourceNotFound) {
		t.Fatalf("directory should not resolve, got %v", err)
	}
}

func TestResolveDirectURL(t *testing.T) {
	fp := &fakePlatform{}
	r := NewResolver(fp, nil)

	in, err := r.Resolve(context.Background(), DirectURL("https://cdn.example/v.mp4"))
	if err != nil {
		t.Fatal(err)
	}
	if in.URI != "https://cdn.example/v.mp4" || !in.IsRemoteStream {
		t.Fatalf("unexpected input %+v", in)
	}
	if fp.infoHits != 0 {
		t.Fatal("direct URLs must not touch the metadata service")
	}
}

func TestResolvePlatformPrefersItag18(t *testing.T) {
	fp := &fakePlatform{info: platform.Info{ID: "abc", Formats: []platform.Format{
		{Itag: 22, Height: 720, HasVideo: true, HasAudio: true},
		{Itag: 18, Height: 360, HasVideo: true, HasAudio: true},
	}}}
	r := NewResolver(fp, nil)

	in, err := r.Resolve(context.Background(), PlatformLink("https://www.youtube.com/watch?v=abc"))
	if err != nil {
		t.Fatal(err)
	}
	if in.URI != "https://media.example/18" || !in.IsRemoteStream || in.AudioURI != "" {
		t.Fatalf("unexpected input %+v", in)
	}
}

func TestResolvePlatformLowestCombined(t *testing.T) {
	fp := &fakePlatform{info: platform.Info{Formats: []platform.Format{
		{Itag: 137, Height: 1080, HasVideo: true},
		{Itag: 22, Height: 720, HasVideo: true, HasAudio: true},
		{Itag: 36, Height: 240, HasVideo: true, HasAudio: true},
		{Itag: 140, HasAudio: true},
	}}}
	r := NewResolver(fp, nil)

	in, err := r.Resolve(context.Background(), PlatformLink("https://www.youtube.com/watch?v=abc"))
	if err != nil {
		t.Fatal(err)
	}
	if in.URI != "https://media.example/36" {
		t.Fatalf("expected lowest combined format, got %q", in.URI)
	}
}

func TestResolvePlatformFallsBackToPairing(t *testing.T) {
	fp := &fakePlatform{info: platform.Info{Formats: []platform.Format{
		{Itag: 251, HasAudio: true},
		{Itag: 137, Height: 1080, HasVideo: true},
		{Itag: 134, Height: 360, HasVideo: true},
		{Itag: 140, HasAudio: true},
	}}}
	r := NewResolver(fp, nil)

	in, err := r.Resolve(context.Background(), PlatformLink("https://www.youtube.com/watch?v=abc"))
	if err != nil {
		t.Fatalf("expected pairing fallback, got %v", err)
	}
	if in.URI != "https://media.example/137" || in.AudioURI != "https://media.example/251" {
		t.Fatalf("unexpected pairing %+v", in)
	}
}

func TestResolvePlatformSkipsUnresolvableStream(t *testing.T) {
	fp := &fakePlatform{
		info: platform.Info{Formats: []platform.Format{
			{Itag: 18, HasVideo: true, HasAudio: true},
			{Itag: 22, HasVideo: true, HasAudio: true},
		}},
		streamErr: map[int]error{18: fmt.Errorf("decipher failed for itag 18")},
	}
	r := NewResolver(fp, nil)

	in, err := r.Resolve(context.Background(), PlatformLink("https://www.youtube.com/watch?v=abc"))
	if err != nil {
		t.Fatalf("expected fallback to itag 22, got %v", err)
	}
	if in.URI != "https://media.example/22" {
		t.Fatalf("unexpected input %+v", in)
	}
	if fmt.Sprint(fp.streamed) != "[18 22]" {
		t.Fatalf("stream urls requested for %v, want [18 22]", fp.streamed)
	}
	if fp.infoHits != 1 {
		t.Fatalf("metadata fetched %d times, want exactly once", fp.infoHits)
	}
}

func TestResolvePlatformPairingAudioUnresolvable(t *testing.T) {
	fp := &fakePlatform{
		info: platform.Info{Formats: []platform.Format{
			{Itag: 137, Height: 1080, HasVideo: true},
			{Itag: 140, HasAudio: true},
		}},
		streamErr: map[int]error{140: fmt.Errorf("format not found")},
	}
	r := NewResolver(fp, nil)

	_, err := r.Resolve(context.Background(), PlatformLink("https://www.youtube.com/watch?v=abc"))
	if !stderrors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable once every strategy is used up, got %v", err)
	}
	if !strings.Contains(err.Error(), "format not found") {
		t.Fatalf("last stream error should be kept as the cause, got %v", err)
	}
}

func TestResolvePlatformUnavailable(t *testing.T) {
	link := PlatformLink("https://www.youtube.com/watch?v=abc")

	t.Run("metadata error", func(t *testing.T) {
		r := NewResolver(&fakePlatform{infoErr: fmt.Errorf("video is private")}, nil)
		_, err := r.Resolve(context.Background(), link)
		if !stderrors.Is(err, ErrSourceUnavailable) {
			t.Fatalf("expected ErrSourceUnavailable, got %v", err)
		}
	})

	t.Run("strategies exhausted", func(t *testing.T) {
		fp := &fakePlatform{info: platform.Info{Formats: []platform.Format{
			{Itag: 137, HasVideo: true},
			{Itag: 138, HasVideo: true},
		}}}
		r := NewResolver(fp, nil)
		_, err := r.Resolve(context.Background(), link)
		if !stderrors.Is(err, ErrSourceUnavailable) {
			t.Fatalf("expected ErrSourceUnavailable, got %v", err)
		}
		if fp.infoHits != 1 {
			t.Fatalf("metadata fetched %d times, want exactly once", fp.infoHits)
		}
		if len(fp.streamed) != 0 {
			t.Fatalf("no stream url should be requested, got %v", fp.streamed)
		}
	})

	t.Run("no client", func(t *testing.T) {
		_, err := NewResolver(nil, nil).Resolve(context.Background(), link)
		if !stderrors.Is(err, ErrSourceUnavailable) {
			t.Fatalf("expected ErrSourceUnavailable, got %v", err)
		}
	})
}

func TestClassify(t *testing.T) {
	fp := &fakePlatform{}

	tests := []struct {
		ref      string
		wantKind Kind
		wantRef  string
	}{
		{"https://www.youtube.com/watch?v=abc", KindPlatformLink, "https://www.youtube.com/watch?v=abc"},
		{"https://cdn.example/v.mp4", KindDirectURL, "https://cdn.example/v.mp4"},
		{"HTTP://cdn.example/v.mp4", KindDirectURL, "HTTP://cdn.example/v.mp4"},
		{"1234-talk.mp4", KindLocalFile, filepath.Join("uploads", "1234-talk.mp4")},
		{"../../etc/passwd", KindLocalFile, filepath.Join("uploads", "passwd")},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			d, err := Classify(tt.ref, "uploads", fp.IsPlatformLink)
			if err != nil {
				t.Fatal(err)
			}
			if d.Kind() != tt.wantKind || d.Ref() != tt.wantRef {
				t.Fatalf("Classify(%q) = %s, want %s:%s", tt.ref, d, tt.wantKind, tt.wantRef)
			}
		})
	}

	if _, err := Classify("  ", "uploads", nil); !errors.IsValidation(err) {
		t.Fatalf("expected validation error for empty ref, got %v", err)
	}
}
