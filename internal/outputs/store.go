// Package outputs names rendered clips and moves them into storage.
package outputs

import (
	"context"
	"crypto/rand"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"viralcut/internal/pkg/errors"
	"viralcut/internal/pkg/logger"
	"viralcut/internal/ports"
)

// Prefix is the key prefix of every rendered clip.
const Prefix = "generated"

const contentType = "video/mp4"

// Allocation is a reserved output slot for one clip.
type Allocation struct {
	ClipID string
	// Key is the storage object key, e.g. generated/clip-3-1700000000000-01H...mp4.
	Key string
	// LocalPath is where the encoder writes.
	LocalPath string
	// URL is the public locator handed back to callers.
	URL string

	// inPlace is true when LocalPath already is the final storage location.
	inPlace bool
}

// Store allocates unique output locations and publishes finished files to a
// StorageProvider. It is safe for concurrent use.
type Store struct {
	provider   ports.StorageProvider
	scratchDir string
	baseURL    string
	log        *logger.Logger

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// NewStore creates a store. Providers implementing ports.LocalPather get
// written in place; everything else is encoded under scratchDir first.
func NewStore(provider ports.StorageProvider, scratchDir, baseURL string, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Discard()
	}
	return &Store{
		provider:   provider,
		scratchDir: scratchDir,
		baseURL:    strings.TrimRight(baseURL, "/"),
		log:        log.WithComponent("outputs"),
		entropy:    ulid.Monotonic(rand.Reader, 0),
		now:        time.Now,
	}
}

// Provider returns the underlying storage provider name.
func (s *Store) Provider() string { return s.provider.Provider() }

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func sanitizeID(id string) string {
	clean := strings.Trim(unsafeChars.ReplaceAllString(id, "_"), "_")
	if clean == "" {
		return "x"
	}
	if len(clean) > 48 {
		clean = clean[:48]
	}
	return clean
}

func (s *Store) newKey(clipID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.now()
	id, err := ulid.New(ulid.Timestamp(t), s.entropy)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/clip-%s-%d-%s.mp4", Prefix, sanitizeID(clipID), t.UnixMilli(), id), nil
}

// Allocate reserves a fresh output location for clipID. Two allocations never
// share a key, even for the same clip id within the same millisecond.
func (s *Store) Allocate(clipID string) (Allocation, error) {
	const op = "outputs.allocate"

	key, err := s.newKey(clipID)
	if err != nil {
		return Allocation{}, errors.Wrap(err, op, "could not generate output name")
	}

	a := Allocation{ClipID: clipID, Key: key, URL: s.baseURL + "/" + key}
	if lp, ok := s.provider.(ports.LocalPather); ok {
		a.LocalPath, err = lp.LocalPath(key)
		if err != nil {
			return Allocation{}, errors.Wrap(err, op, "invalid output key")
		}
		a.inPlace = true
	} else {
		a.LocalPath = filepath.Join(s.scratchDir, filepath.FromSlash(key))
	}

	if err := os.MkdirAll(filepath.Dir(a.LocalPath), 0o755); err != nil {
		return Allocation{}, errors.Wrap(err, op, "could not create output directory")
	}
	return a, nil
}

// Publish makes an encoded file retrievable under its key. In-place
// allocations only need to exist; others are uploaded and the scratch copy
// removed.
func (s *Store) Publish(ctx context.Context, a Allocation) error {
	const op = "outputs.publish"

	f, err := os.Open(a.LocalPath)
	if err != nil {
		return errors.Wrap(err, op, "encoded file missing")
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return errors.Wrap(err, op, "encoded file unreadable")
	}

	if a.inPlace {
		f.Close()
		return nil
	}

	_, err = s.provider.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   a.Key,
		ContentType: contentType,
		Reader:      f,
		Size:        st.Size(),
	})
	f.Close()
	if err != nil {
		return errors.WrapWithCode(err, errors.CodeUnavailable, op, "upload to "+s.provider.Provider()+" failed")
	}

	if err := os.Remove(a.LocalPath); err != nil {
		s.log.FromContext(ctx).Warn("scratch cleanup failed", "path", a.LocalPath, "error", err.Error())
	}
	s.log.FromContext(ctx).Debug("clip published", "key", a.Key, "size", st.Size())
	return nil
}

// Discard removes whatever an aborted encode left behind.
func (s *Store) Discard(ctx context.Context, a Allocation) {
	if a.LocalPath == "" {
		return
	}
	if err := os.Remove(a.LocalPath); err != nil && !stderrors.Is(err, os.ErrNotExist) {
		s.log.FromContext(ctx).Warn("discard failed", "path", a.LocalPath, "error", err.Error())
	}
}

// Open streams a published clip. Only keys under Prefix are served.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, string, int64, error) {
	const op = "outputs.open"

	clean := path.Clean("/" + key)[1:]
	if !strings.HasPrefix(clean, Prefix+"/") || clean != key {
		return nil, "", 0, errors.NotFound("clip", key)
	}

	rc, ct, size, err := s.provider.GetObject(ctx, key)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, "", 0, errors.NotFound("clip", key)
		}
		return nil, "", 0, errors.Wrap(err, op, "could not read clip")
	}
	if ct == "" {
		ct = contentType
	}
	return rc, ct, size, nil
}
