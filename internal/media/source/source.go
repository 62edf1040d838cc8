// Package source turns a caller supplied video reference into one input the
// encoder can decode.
package source

import (
	"fmt"
	"path/filepath"
	"strings"

	"viralcut/internal/pkg/errors"
)

// Kind tags a Descriptor.
type Kind int

const (
	KindLocalFile Kind = iota + 1
	KindDirectURL
	KindPlatformLink
)

func (k Kind) String() string {
	switch k {
	case KindLocalFile:
		return "local"
	case KindDirectURL:
		return "url"
	case KindPlatformLink:
		return "youtube"
	default:
		return "unknown"
	}
}

// Descriptor identifies where the source video comes from. It is immutable.
type Descriptor struct {
	kind Kind
	ref  string
}

func LocalFile(path string) Descriptor    { return Descriptor{kind: KindLocalFile, ref: path} }
func DirectURL(url string) Descriptor     { return Descriptor{kind: KindDirectURL, ref: url} }
func PlatformLink(link string) Descriptor { return Descriptor{kind: KindPlatformLink, ref: link} }

func (d Descriptor) Kind() Kind     { return d.kind }
func (d Descriptor) Ref() string    { return d.ref }
func (d Descriptor) String() string { return fmt.Sprintf("%s:%s", d.kind, d.ref) }

// ResolvedInput is what the encoder reads. It lives for one batch and is
// never cached.
type ResolvedInput struct {
	URI string
	// AudioURI is set when video and audio come from separate streams.
	AudioURI       string
	IsRemoteStream bool
}

var (
	// ErrSourceNotFound means a local source path does not exist.
	ErrSourceNotFound = errors.New(errors.CodeNotFound, "Source file not found")
	// ErrSourceUnavailable means a platform link could not be turned into a
	// decodable stream.
	ErrSourceUnavailable = errors.New(errors.CodeUnavailable, "Source video unavailable")
)

// Classify maps an opaque reference onto a Descriptor. Links recognised by
// isPlatform become PlatformLink, other http(s) URLs DirectURL, and anything
// else is a file name inside uploadDir. Directory components of a file name
// are dropped so callers cannot escape uploadDir.
func Classify(ref, uploadDir string, isPlatform func(string) bool) (Descriptor, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Descriptor{}, errors.ValidationField("sourceFilename", "source is required")
	}

	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		if isPlatform != nil && isPlatform(ref) {
			return PlatformLink(ref), nil
		}
		return DirectURL(ref), nil
	}

	return LocalFile(filepath.Join(uploadDir, filepath.Base(ref))), nil
}
