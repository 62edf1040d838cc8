// Package platform fetches stream format metadata for video platform links.
package platform

import (
	"context"
	"strings"
)

// Format is one downloadable rendition of a platform video.
type Format struct {
	Itag         int
	MimeType     string
	QualityLabel string
	Width        int
	Height       int
	Bitrate      int
	HasVideo     bool
	HasAudio     bool
	// URL is the direct media URL when the platform hands it out in clear.
	// Ciphered formats leave it empty; MetadataClient.StreamURL resolves them.
	URL string
}

// Combined reports whether the format carries both audio and video.
func (f Format) Combined() bool {
	return f.HasVideo && f.HasAudio
}

// Info is the metadata of one platform video.
type Info struct {
	ID      string
	Title   string
	Formats []Format

	// handle is adapter private state needed to resolve stream URLs later.
	handle any
}

// MetadataClient is the read-only metadata service a SourceResolver talks to.
type MetadataClient interface {
	// IsPlatformLink reports whether raw is a link this client understands.
	IsPlatformLink(raw string) bool
	// Info fetches format metadata for link.
	Info(ctx context.Context, link string) (Info, error)
	// StreamURL returns the direct media URL for one format of info.
	StreamURL(ctx context.Context, info Info, f Format) (string, error)
}

func hasVideoMime(mime string) bool {
	return strings.HasPrefix(strings.ToLower(mime), "video/")
}
