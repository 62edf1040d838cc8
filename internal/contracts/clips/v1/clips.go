// Package v1 is the JSON contract of the clip API.
//
// Field names are camelCase because the web client predates this service.
package v1

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Clip is one requested clip. Fields other than id, startTime, endTime and
// videoUrl (title, hashtags, ...) are opaque and echoed back unchanged.
type Clip struct {
	ID        string
	StartTime float64
	EndTime   float64
	VideoURL  string
	Extra     map[string]json.RawMessage

	// numericID remembers that the caller sent id as a JSON number.
	numericID bool
}

var reserved = map[string]bool{"id": true, "startTime": true, "endTime": true, "videoUrl": true}

func (c *Clip) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*c = Clip{}
	if v, ok := raw["id"]; ok {
		id, numeric, err := decodeID(v)
		if err != nil {
			return fmt.Errorf("clip id: %w", err)
		}
		c.ID, c.numericID = id, numeric
	}
	var err error
	if c.StartTime, err = decodeSeconds(raw["startTime"]); err != nil {
		return fmt.Errorf("clip %s startTime: %w", c.ID, err)
	}
	if c.EndTime, err = decodeSeconds(raw["endTime"]); err != nil {
		return fmt.Errorf("clip %s endTime: %w", c.ID, err)
	}
	if v, ok := raw["videoUrl"]; ok {
		_ = json.Unmarshal(v, &c.VideoURL)
	}

	for k, v := range raw {
		if reserved[k] {
			continue
		}
		if c.Extra == nil {
			c.Extra = make(map[string]json.RawMessage)
		}
		c.Extra[k] = v
	}
	return nil
}

func (c Clip) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Extra)+4)
	for k, v := range c.Extra {
		out[k] = v
	}
	if c.numericID {
		out["id"] = json.Number(c.ID)
	} else {
		out["id"] = c.ID
	}
	out["startTime"] = c.StartTime
	out["endTime"] = c.EndTime
	if c.VideoURL != "" {
		out["videoUrl"] = c.VideoURL
	}
	return json.Marshal(out)
}

func decodeID(v json.RawMessage) (string, bool, error) {
	v = bytes.TrimSpace(v)
	if len(v) > 0 && v[0] == '"' {
		var s string
		err := json.Unmarshal(v, &s)
		return s, false, err
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		return "", false, err
	}
	return n.String(), true, nil
}

// decodeSeconds accepts a JSON number or a numeric string.
func decodeSeconds(v json.RawMessage) (float64, error) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || string(v) == "null" {
		return 0, fmt.Errorf("missing")
	}
	if v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return 0, err
		}
		return strconv.ParseFloat(s, 64)
	}
	var f float64
	err := json.Unmarshal(v, &f)
	return f, err
}

// ProcessRequest is the body of POST /api/process-clips and POST /api/batches.
type ProcessRequest struct {
	SourceFilename string `json:"sourceFilename"`
	Clips          []Clip `json:"clips"`
	AspectRatio    string `json:"aspectRatio,omitempty"`
}

// ProcessResponse lists rendered clips in ascending id order.
type ProcessResponse struct {
	Clips []Clip `json:"clips"`
}

type UploadResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Type     string `json:"type"`
}

type ImportURLRequest struct {
	URL string `json:"url"`
}

type ImportURLResponse struct {
	Filename string       `json:"filename"`
	Path     string       `json:"path"`
	Type     string       `json:"type"`
	Metadata *URLMetadata `json:"metadata,omitempty"`
}

type URLMetadata struct {
	Title string `json:"title"`
}

// BatchStatus is the lifecycle state of a queued batch.
type BatchStatus string

const (
	BatchQueued  BatchStatus = "QUEUED"
	BatchRunning BatchStatus = "RUNNING"
	BatchDone    BatchStatus = "DONE"
	BatchFailed  BatchStatus = "FAILED"
)

// Terminal reports whether the batch will not change anymore.
func (s BatchStatus) Terminal() bool {
	return s == BatchDone || s == BatchFailed
}

// Batch is the public view of a queued batch.
type Batch struct {
	ID          string            `json:"id"`
	Status      BatchStatus       `json:"status"`
	Source      string            `json:"sourceFilename,omitempty"`
	AspectRatio string            `json:"aspectRatio,omitempty"`
	Clips       []Clip            `json:"clips,omitempty"`
	Progress    map[string]string `json:"progress,omitempty"`
	Error       string            `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	StartedAt   *time.Time        `json:"startedAt,omitempty"`
	FinishedAt  *time.Time        `json:"finishedAt,omitempty"`
}

type BatchResponse struct {
	Batch Batch `json:"batch"`
}
