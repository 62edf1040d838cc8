package models

import (
	"time"

	clipsv1 "viralcut/internal/contracts/clips/v1"
)

// Batch is a queued clip batch as stored in postgres. Request and Result are
// jsonb columns.
type Batch struct {
	ID         string                   `json:"id"`
	Status     clipsv1.BatchStatus      `json:"status"`
	Request    clipsv1.ProcessRequest   `json:"request"`
	Result     *clipsv1.ProcessResponse `json:"result,omitempty"`
	ErrorText  *string                  `json:"error_text,omitempty"`
	CreatedAt  time.Time                `json:"created_at"`
	StartedAt  *time.Time               `json:"started_at,omitempty"`
	FinishedAt *time.Time               `json:"finished_at,omitempty"`
}

// View converts the record into its API representation.
func (b *Batch) View() clipsv1.Batch {
	v := clipsv1.Batch{
		ID:          b.ID,
		Status:      b.Status,
		Source:      b.Request.SourceFilename,
		AspectRatio: b.Request.AspectRatio,
		CreatedAt:   b.CreatedAt,
		StartedAt:   b.StartedAt,
		FinishedAt:  b.FinishedAt,
	}
	if b.Result != nil {
		v.Clips = b.Result.Clips
	}
	if b.ErrorText != nil {
		v.Error = *b.ErrorText
	}
	return v
}
