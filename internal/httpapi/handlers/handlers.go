// Package handlers implements the HTTP endpoints of the clip API.
package handlers

import (
	"context"
	"io"

	"viralcut/internal/clipping"
	clipsv1 "viralcut/internal/contracts/clips/v1"
	"viralcut/internal/media/platform"
	"viralcut/internal/models"
	"viralcut/internal/pkg/logger"
)

// Processor runs a clip request synchronously.
type Processor interface {
	Process(ctx context.Context, req clipsv1.ProcessRequest, obs clipping.Observer) (clipsv1.ProcessResponse, error)
}

type BatchStore interface {
	Create(ctx context.Context, b *models.Batch) error
	Get(ctx context.Context, id string) (*models.Batch, error)
}

type ProgressStore interface {
	Init(ctx context.Context, batchID string, clipIDs []string) error
	Get(ctx context.Context, batchID string) (map[string]string, error)
}

type Enqueuer interface {
	Push(ctx context.Context, batchID string) error
}

// ClipOpener serves rendered clips by key.
type ClipOpener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, string, int64, error)
	Provider() string
}

// LinkInspector recognises platform links and fetches their metadata.
type LinkInspector interface {
	IsPlatformLink(raw string) bool
	Info(ctx context.Context, link string) (platform.Info, error)
}

// Check is one dependency check of the deep health check.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

type Deps struct {
	Pipeline  Processor
	Clips     ClipOpener
	Links     LinkInspector
	UploadDir string

	// Batches, Progress and Queue are nil when async batches are disabled.
	Batches  BatchStore
	Progress ProgressStore
	Queue    Enqueuer

	Checks []Check
	Log    *logger.Logger
}

type Handler struct {
	pipeline  Processor
	clips     ClipOpener
	links     LinkInspector
	uploadDir string

	batches  BatchStore
	progress ProgressStore
	queue    Enqueuer

	checks []Check
	log    *logger.Logger
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{
		pipeline:  d.Pipeline,
		clips:     d.Clips,
		links:     d.Links,
		uploadDir: d.UploadDir,
		batches:   d.Batches,
		progress:  d.Progress,
		queue:     d.Queue,
		checks:    d.Checks,
		log:       log.WithComponent("http"),
	}
}

// Log is the handler logger, used by the router to wrap error handlers.
func (h *Handler) Log() *logger.Logger { return h.log }

func (h *Handler) asyncEnabled() bool {
	return h.batches != nil && h.progress != nil && h.queue != nil
}
