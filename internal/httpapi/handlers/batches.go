package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	clipsv1 "viralcut/internal/contracts/clips/v1"
	"viralcut/internal/httpkit"
	"viralcut/internal/models"
	"viralcut/internal/pipeline"
	"viralcut/internal/pkg/errors"
)

// PostBatch queues a clip request for the worker and answers 201 at once.
func (h *Handler) PostBatch(w http.ResponseWriter, r *http.Request) error {
	const op = "http.post_batch"
	if !h.asyncEnabled() {
		return errors.Unavailable("batch queue")
	}

	var req clipsv1.ProcessRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		return err
	}
	_, specs, err := pipeline.Validate(req)
	if err != nil {
		return err
	}

	ctx := r.Context()
	b := &models.Batch{
		ID:      ulid.Make().String(),
		Status:  clipsv1.BatchQueued,
		Request: req,
	}
	if err := h.batches.Create(ctx, b); err != nil {
		return err
	}

	ids := make([]string, len(specs))
	for i, s := range specs {
		ids[i] = s.ID
	}
	if err := h.progress.Init(ctx, b.ID, ids); err != nil {
		return errors.Wrap(err, op, "failed to initialise progress").WithField("batch_id", b.ID)
	}
	if err := h.queue.Push(ctx, b.ID); err != nil {
		return errors.Wrap(err, op, "queue push failed").WithField("batch_id", b.ID)
	}

	h.log.FromContext(ctx).Info("batch queued", "batch_id", b.ID, "clips", len(ids))
	httpkit.WriteJSON(w, http.StatusCreated, clipsv1.BatchResponse{Batch: clipsv1.Batch{
		ID:          b.ID,
		Status:      b.Status,
		Source:      req.SourceFilename,
		AspectRatio: req.AspectRatio,
		CreatedAt:   b.CreatedAt,
	}})
	return nil
}

// GetBatch returns a batch with per-clip progress. A progress read failure
// only drops the progress map.
func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) error {
	if !h.asyncEnabled() {
		return errors.Unavailable("batch queue")
	}

	ctx := r.Context()
	id := chi.URLParam(r, "batchId")

	b, err := h.batches.Get(ctx, id)
	if err != nil {
		return err
	}
	view := b.View()

	progress, err := h.progress.Get(ctx, id)
	if err != nil {
		h.log.FromContext(ctx).Warn("progress unavailable", "batch_id", id, "error", err.Error())
	} else if len(progress) > 0 {
		view.Progress = progress
	}

	httpkit.WriteJSON(w, http.StatusOK, clipsv1.BatchResponse{Batch: view})
	return nil
}
