package outputs

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"viralcut/internal/adapters/storage/localfs"
	"viralcut/internal/pkg/errors"
	"viralcut/internal/ports"
)

type memProvider struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemProvider() *memProvider {
	return &memProvider{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memProvider) Provider() string { return "mem" }

func (m *memProvider) PutObject(ctx context.Context, in ports.PutObjectInput) (ports.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Reader)
	if err != nil {
		return ports.PutObjectOutput{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[in.ObjectKey] = b
	m.types[in.ObjectKey] = in.ContentType
	return ports.PutObjectOutput{ObjectKey: in.ObjectKey, Size: int64(len(b))}, nil
}

func (m *memProvider) GetObject(ctx context.Context, key string) (io.ReadCloser, string, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	if !ok {
		return nil, "", 0, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(b)), m.types[key], int64(len(b)), nil
}

func (m *memProvider) DeleteObject(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

var keyPattern = regexp.MustCompile(`^generated/clip-[A-Za-z0-9_-]+-\d+-[0-9A-HJKMNP-TV-Z]{26}\.mp4$`)

func TestAllocateDistinctForSameID(t *testing.T) {
	s := NewStore(localfs.New(t.TempDir()), "", "http://localhost:3001/", nil)
	frozen := time.UnixMilli(1_700_000_000_000)
	s.now = func() time.Time { return frozen }

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		a, err := s.Allocate("7")
		if err != nil {
			t.Fatal(err)
		}
		if !keyPattern.MatchString(a.Key) {
			t.Fatalf("unexpected key %q", a.Key)
		}
		if !strings.HasPrefix(a.Key, "generated/clip-7-1700000000000-") {
			t.Fatalf("key %q does not embed id and timestamp", a.Key)
		}
		if seen[a.URL] {
			t.Fatalf("duplicate locator %q", a.URL)
		}
		seen[a.URL] = true
	}
}

func TestAllocateConcurrent(t *testing.T) {
	s := NewStore(localfs.New(t.TempDir()), "", "http://x", nil)

	var mu sync.Mutex
	seen := map[string]bool{}
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := s.Allocate("1")
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[a.Key] {
				t.Errorf("duplicate key %q", a.Key)
			}
			seen[a.Key] = true
		}()
	}
	wg.Wait()
}

func TestSanitizeID(t *testing.T) {
	tests := map[string]string{
		"3":          "3",
		"../../evil": "evil",
		"a b/c":      "a_b_c",
		"///":        "x",
	}
	for in, want := range tests {
		if got := sanitizeID(in); got != want {
			t.Errorf("sanitizeID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPublishInPlace(t *testing.T) {
	root := t.TempDir()
	s := NewStore(localfs.New(root), "", "http://localhost:3001", nil)
	ctx := context.Background()

	a, err := s.Allocate("1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(a.LocalPath, root) {
		t.Fatalf("local provider should encode in place, got %q", a.LocalPath)
	}
	if err := s.Publish(ctx, a); err == nil {
		t.Fatal("publishing a file that was never written must fail")
	}

	if err := os.WriteFile(a.LocalPath, []byte("mp4"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Publish(ctx, a); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	rc, ct, size, err := s.Open(ctx, a.Key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	if ct != "video/mp4" || size != 3 {
		t.Fatalf("unexpected object ct=%q size=%d", ct, size)
	}
}

func TestPublishRemote(t *testing.T) {
	mem := newMemProvider()
	scratch := t.TempDir()
	s := NewStore(mem, scratch, "https://clips.example", nil)
	ctx := context.Background()

	a, err := s.Allocate("2")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(a.LocalPath, scratch) {
		t.Fatalf("remote provider should encode into scratch, got %q", a.LocalPath)
	}
	if a.URL != "https://clips.example/"+a.Key {
		t.Fatalf("unexpected url %q", a.URL)
	}
	if err := os.WriteFile(a.LocalPath, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := s.Publish(ctx, a); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if string(mem.objects[a.Key]) != "data" || mem.types[a.Key] != "video/mp4" {
		t.Fatalf("object not uploaded: %q %q", mem.objects[a.Key], mem.types[a.Key])
	}
	if _, err := os.Stat(a.LocalPath); !os.IsNotExist(err) {
		t.Fatalf("scratch file should be removed, stat err=%v", err)
	}
}

func TestDiscard(t *testing.T) {
	s := NewStore(localfs.New(t.TempDir()), "", "http://x", nil)
	a, err := s.Allocate("1")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(a.LocalPath, []byte("partial"), 0o644); err != nil {
		t.Fatal(err)
	}

	s.Discard(context.Background(), a)
	if _, err := os.Stat(a.LocalPath); !os.IsNotExist(err) {
		t.Fatalf("partial output should be removed")
	}
	// second discard is a no-op
	s.Discard(context.Background(), a)
}

func TestOpenRejectsForeignKeys(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "secret.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewStore(localfs.New(root), "", "http://x", nil)
	ctx := context.Background()

	for _, key := range []string{"secret.txt", "generated/../secret.txt", "generated/missing.mp4", "generated"} {
		if _, _, _, err := s.Open(ctx, key); !errors.IsNotFound(err) {
			t.Errorf("Open(%q) = %v, want not found", key, err)
		}
	}
}
