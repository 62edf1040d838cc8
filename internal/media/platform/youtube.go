package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"
)

// YouTube implements MetadataClient with kkdai/youtube.
type YouTube struct {
	client *youtube.Client
}

// NewYouTube builds a client; a nil httpClient gets a 30s timeout client.
func NewYouTube(httpClient *http.Client) *YouTube {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &YouTube{client: &youtube.Client{HTTPClient: httpClient}}
}

var youtubeHosts = map[string]bool{
	"youtube.com":       true,
	"www.youtube.com":   true,
	"m.youtube.com":     true,
	"music.youtube.com": true,
	"youtu.be":          true,
}

// IsPlatformLink only trusts known hosts; ExtractVideoID alone accepts any
// URL with an 11 character path segment.
func (y *YouTube) IsPlatformLink(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	if !youtubeHosts[strings.ToLower(u.Hostname())] {
		return false
	}
	_, err = youtube.ExtractVideoID(raw)
	return err == nil
}

func (y *YouTube) Info(ctx context.Context, link string) (Info, error) {
	video, err := y.client.GetVideoContext(ctx, link)
	if err != nil {
		return Info{}, fmt.Errorf("youtube metadata: %w", err)
	}

	formats := make([]Format, 0, len(video.Formats))
	for _, f := range video.Formats {
		formats = append(formats, Format{
			Itag:         f.ItagNo,
			MimeType:     f.MimeType,
			QualityLabel: f.QualityLabel,
			Width:        f.Width,
			Height:       f.Height,
			Bitrate:      f.Bitrate,
			HasVideo:     hasVideoMime(f.MimeType),
			HasAudio:     f.AudioChannels > 0,
			URL:          f.URL,
		})
	}

	return Info{
		ID:      video.ID,
		Title:   video.Title,
		Formats: formats,
		handle:  video,
	}, nil
}

func (y *YouTube) StreamURL(ctx context.Context, info Info, f Format) (string, error) {
	video, ok := info.handle.(*youtube.Video)
	if !ok || video == nil {
		if f.URL != "" {
			return f.URL, nil
		}
		return "", fmt.Errorf("youtube stream url: format %d has no url and no video handle", f.Itag)
	}

	for i := range video.Formats {
		if video.Formats[i].ItagNo != f.Itag {
			continue
		}
		u, err := y.client.GetStreamURLContext(ctx, video, &video.Formats[i])
		if err != nil {
			return "", fmt.Errorf("youtube stream url itag=%d: %w", f.Itag, err)
		}
		return u, nil
	}
	return "", fmt.Errorf("youtube stream url: itag %d not in metadata", f.Itag)
}

var _ MetadataClient = (*YouTube)(nil)
