package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	clipsv1 "viralcut/internal/contracts/clips/v1"
	"viralcut/internal/httpkit"
	"viralcut/internal/pkg/errors"
)

func TestProcess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/process-clips" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var req clipsv1.ProcessRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		httpkit.WriteJSON(w, http.StatusOK, clipsv1.ProcessResponse{Clips: []clipsv1.Clip{
			{ID: req.Clips[0].ID, EndTime: 15, VideoURL: "http://localhost:3001/generated/clip-1.mp4"},
		}})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL + "/")
	resp, err := c.Process(context.Background(), clipsv1.ProcessRequest{
		SourceFilename: "a.mp4",
		Clips:          []clipsv1.Clip{{ID: "1", EndTime: 15}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Clips) != 1 || resp.Clips[0].VideoURL == "" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestSubmitAndBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/batches":
			httpkit.WriteJSON(w, http.StatusCreated, clipsv1.BatchResponse{Batch: clipsv1.Batch{ID: "01J", Status: clipsv1.BatchQueued}})
		case r.Method == http.MethodGet && r.URL.Path == "/api/batches/01J":
			httpkit.WriteJSON(w, http.StatusOK, clipsv1.BatchResponse{Batch: clipsv1.Batch{
				ID: "01J", Status: clipsv1.BatchRunning, Progress: map[string]string{"1": "rendering"},
			}})
		default:
			httpkit.WriteErr(w, http.StatusNotFound, "NOT_FOUND", "batch not found: x", map[string]any{"id": "x"})
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	ctx := context.Background()

	b, err := c.Submit(ctx, clipsv1.ProcessRequest{SourceFilename: "a.mp4"})
	if err != nil || b.ID != "01J" || b.Status != clipsv1.BatchQueued {
		t.Fatalf("submit = %+v, %v", b, err)
	}

	b, err = c.Batch(ctx, "01J")
	if err != nil || b.Progress["1"] != "rendering" {
		t.Fatalf("batch = %+v, %v", b, err)
	}

	_, err = c.Batch(ctx, "x")
	if !errors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if errors.GetFields(err)["id"] != "x" {
		t.Fatalf("details lost: %v", errors.GetFields(err))
	}
}

func TestErrorWithoutEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL).Batch(context.Background(), "1")
	if !errors.IsCode(err, errors.CodeUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPClient(url).Batch(context.Background(), "1")
	if !errors.IsCode(err, errors.CodeUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}
