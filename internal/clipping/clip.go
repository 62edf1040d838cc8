// Package clipping renders clip batches: one trim, crop and encode job per
// clip, all jobs of a batch running concurrently.
package clipping

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"

	"viralcut/internal/pkg/errors"
)

// ClipSpec is a time range of the source video in seconds.
type ClipSpec struct {
	ID        string
	StartTime float64
	EndTime   float64
}

// Duration is EndTime - StartTime.
func (c ClipSpec) Duration() float64 {
	return c.EndTime - c.StartTime
}

func (c ClipSpec) Validate() error {
	switch {
	case c.StartTime < 0:
		return errors.ValidationField("startTime", fmt.Sprintf("clip %s: startTime must be >= 0", c.ID))
	case c.EndTime <= c.StartTime:
		return errors.ValidationField("endTime", fmt.Sprintf("clip %s: endTime must be greater than startTime", c.ID))
	}
	return nil
}

// Status of one render.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// RenderResult is the outcome of one clip job. OutputLocator is empty on failure.
type RenderResult struct {
	ClipID        string `json:"clipId"`
	OutputKey     string `json:"outputKey,omitempty"`
	OutputLocator string `json:"videoUrl,omitempty"`
	Status        Status `json:"status"`
	Reason        string `json:"reason,omitempty"`
}

func (r RenderResult) Failed() bool { return r.Status != StatusSuccess }

func failed(clipID, reason string) RenderResult {
	return RenderResult{ClipID: clipID, Status: StatusFailed, Reason: reason}
}

// ErrInvalidBatch is returned for batches rejected before any job starts.
var ErrInvalidBatch = errors.New(errors.CodeValidation, "invalid clip batch")

func invalidBatch(message string) *errors.Error {
	return errors.WrapWithCode(ErrInvalidBatch, errors.CodeValidation, "clipping.validate_batch", message).
		WithField("field", "clips")
}

// ValidateBatch rejects empty batches, blank ids and duplicate ids with an
// error wrapping ErrInvalidBatch. Time ranges are checked per job so one bad
// clip fails like any other render.
func ValidateBatch(specs []ClipSpec) error {
	if len(specs) == 0 {
		return invalidBatch("at least one clip is required")
	}
	seen := make(map[string]struct{}, len(specs))
	for i, s := range specs {
		if s.ID == "" {
			return invalidBatch(fmt.Sprintf("clip #%d has no id", i))
		}
		if _, dup := seen[s.ID]; dup {
			return invalidBatch(fmt.Sprintf("duplicate clip id %q", s.ID)).WithField("clip_id", s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}

// BatchFailed reports the first clip to fail, by completion time.
type BatchFailed struct {
	ClipID string
	Reason string
}

func (e *BatchFailed) Error() string {
	return fmt.Sprintf("clip %s failed: %s", e.ClipID, e.Reason)
}

// BatchOutcome is either every result in id order or the first failure.
type BatchOutcome struct {
	Results []RenderResult
	err     error
}

// AllSucceeded reports whether Results is the full, ordered result list.
func (o BatchOutcome) AllSucceeded() bool { return o.err == nil }

// Err is nil on success. Batch failures carry a *BatchFailed and code
// RENDER_FAILED; rejected batches are validation errors.
func (o BatchOutcome) Err() error { return o.err }

// CompareIDs orders numeric ids by value, then non-numeric ids lexicographically.
func CompareIDs(a, b string) int {
	na, errA := strconv.ParseFloat(a, 64)
	nb, errB := strconv.ParseFloat(b, 64)
	switch {
	case errA == nil && errB == nil:
		if c := cmp.Compare(na, nb); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	default:
		return cmp.Compare(a, b)
	}
}

// SortResults orders results by clip id.
func SortResults(rs []RenderResult) {
	slices.SortFunc(rs, func(a, b RenderResult) int { return CompareIDs(a.ClipID, b.ClipID) })
}
