// Package progress records per-clip state of queued batches in redis.
package progress

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"viralcut/internal/clipping"
	"viralcut/internal/pkg/logger"
)

// Clip states stored in the progress hash.
const (
	StateQueued    = "queued"
	StateRendering = "rendering"
	StateSuccess   = "success"
	StateFailed    = "failed"
)

const keyPrefix = "viralcut:progress:"

// Key returns the redis hash holding the progress of batchID.
func Key(batchID string) string {
	return keyPrefix + batchID
}

// Tracker keeps one hash per batch mapping clip id to state. Hashes expire
// ttl after their last update.
type Tracker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewTracker(rdb *redis.Client, ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Tracker{rdb: rdb, ttl: ttl}
}

// Init marks every clip of a batch as queued.
func (t *Tracker) Init(ctx context.Context, batchID string, clipIDs []string) error {
	if len(clipIDs) == 0 {
		return nil
	}
	values := make([]any, 0, 2*len(clipIDs))
	for _, id := range clipIDs {
		values = append(values, id, StateQueued)
	}
	return t.write(ctx, batchID, values...)
}

func (t *Tracker) SetClip(ctx context.Context, batchID, clipID, state string) error {
	return t.write(ctx, batchID, clipID, state)
}

func (t *Tracker) write(ctx context.Context, batchID string, values ...any) error {
	key := Key(batchID)
	_, err := t.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, values...)
		p.Expire(ctx, key, t.ttl)
		return nil
	})
	return err
}

// Get returns clip id -> state. A missing or expired hash yields an empty map.
func (t *Tracker) Get(ctx context.Context, batchID string) (map[string]string, error) {
	return t.rdb.HGetAll(ctx, Key(batchID)).Result()
}

// Recorder is the write side of Tracker.
type Recorder interface {
	SetClip(ctx context.Context, batchID, clipID, state string) error
}

// Observer adapts a Recorder to clipping.Observer for one batch. Write
// failures are logged and never fail the batch.
func Observer(rec Recorder, batchID string, log *logger.Logger) clipping.Observer {
	if log == nil {
		log = logger.Discard()
	}
	return &observer{rec: rec, batchID: batchID, log: log.WithComponent("progress")}
}

type observer struct {
	rec     Recorder
	batchID string
	log     *logger.Logger
}

func (o *observer) ClipStarted(ctx context.Context, clipID string) {
	o.set(ctx, clipID, StateRendering)
}

func (o *observer) ClipFinished(ctx context.Context, r clipping.RenderResult) {
	state := StateSuccess
	if r.Failed() {
		state = StateFailed
	}
	o.set(ctx, r.ClipID, state)
}

func (o *observer) set(ctx context.Context, clipID, state string) {
	if err := o.rec.SetClip(ctx, o.batchID, clipID, state); err != nil {
		o.log.FromContext(ctx).Warn("progress update failed",
			"clip_id", clipID,
			"state", state,
			"error", err.Error(),
		)
	}
}
