package models

import (
	"testing"
	"time"

	clipsv1 "viralcut/internal/contracts/clips/v1"
)

func TestBatchView(t *testing.T) {
	msg := "Failed to process clip 2: boom"
	b := &Batch{
		ID:        "01HZX",
		Status:    clipsv1.BatchFailed,
		Request:   clipsv1.ProcessRequest{SourceFilename: "talk.mp4", AspectRatio: "9:16"},
		ErrorText: &msg,
		CreatedAt: time.Unix(1700000000, 0),
	}

	v := b.View()
	if v.ID != "01HZX" || v.Status != clipsv1.BatchFailed || v.Source != "talk.mp4" || v.AspectRatio != "9:16" {
		t.Fatalf("unexpected view %+v", v)
	}
	if v.Error != msg || v.Clips != nil {
		t.Fatalf("failed batch view = %+v", v)
	}

	b.Status = clipsv1.BatchDone
	b.ErrorText = nil
	b.Result = &clipsv1.ProcessResponse{Clips: []clipsv1.Clip{{ID: "1", EndTime: 15}}}
	if v := b.View(); len(v.Clips) != 1 || v.Error != "" {
		t.Fatalf("done batch view = %+v", v)
	}
}
