package repositories

import (
	"context"
	stderrors "errors"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	clipsv1 "viralcut/internal/contracts/clips/v1"
	"viralcut/internal/httpkit"
	"viralcut/internal/models"
	"viralcut/internal/pkg/errors"
)

var (
	ErrBatchExists = errors.New(errors.CodeConflict, "batch id already exists")

	// ErrBatchNotRunnable is returned when a batch already reached a terminal state.
	ErrBatchNotRunnable = errors.New(errors.CodeConflict, "batch is not runnable")
)

const maxErrorText = 2000

const schema = `
CREATE TABLE IF NOT EXISTS clip_batches (
	id           TEXT PRIMARY KEY,
	status       TEXT NOT NULL,
	request_json JSONB NOT NULL,
	result_json  JSONB,
	error_text   TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	started_at   TIMESTAMPTZ,
	finished_at  TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS clip_batches_created_at_idx ON clip_batches (created_at DESC);
`

type BatchRepository struct {
	db *pgxpool.Pool
}

func NewBatchRepository(db *pgxpool.Pool) *BatchRepository {
	return &BatchRepository{db: db}
}

// EnsureSchema creates the batch table when missing.
func (r *BatchRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return errors.Wrap(err, "batches.schema", "failed to create batch schema")
	}
	return nil
}

func (r *BatchRepository) Create(ctx context.Context, b *models.Batch) error {
	if b.Status == "" {
		b.Status = clipsv1.BatchQueued
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO clip_batches (id, status, request_json)
		VALUES ($1,$2,$3)
		RETURNING created_at
	`, b.ID, string(b.Status), b.Request).Scan(&b.CreatedAt)
	if err != nil {
		if httpkit.IsUniqueViolation(err) {
			return ErrBatchExists
		}
		return errors.Wrap(err, "batches.create", "failed to create batch")
	}
	return nil
}

func (r *BatchRepository) Get(ctx context.Context, id string) (*models.Batch, error) {
	var b models.Batch
	var status string
	err := r.db.QueryRow(ctx, `
		SELECT id, status, request_json, result_json, error_text, created_at, started_at, finished_at
		FROM clip_batches
		WHERE id=$1
	`, id).Scan(
		&b.ID,
		&status,
		&b.Request,
		&b.Result,
		&b.ErrorText,
		&b.CreatedAt,
		&b.StartedAt,
		&b.FinishedAt,
	)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NotFound("batch", id)
		}
		if httpkit.IsUndefinedTable(err) {
			return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "batches.get", "batch schema missing")
		}
		return nil, errors.Wrap(err, "batches.get", "failed to load batch")
	}
	b.Status = clipsv1.BatchStatus(status)
	return &b, nil
}

// MarkRunning moves a queued batch to RUNNING. A batch left RUNNING by a
// crashed worker may be claimed again.
func (r *BatchRepository) MarkRunning(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE clip_batches
		SET status='RUNNING', started_at=now(), finished_at=NULL, error_text=NULL
		WHERE id=$1 AND status IN ('QUEUED','RUNNING')
	`, id)
	if err != nil {
		return errors.Wrap(err, "batches.mark_running", "failed to mark batch running")
	}
	if cmd.RowsAffected() == 0 {
		return ErrBatchNotRunnable
	}
	return nil
}

func (r *BatchRepository) MarkDone(ctx context.Context, id string, result clipsv1.ProcessResponse) error {
	_, err := r.db.Exec(ctx, `
		UPDATE clip_batches
		SET status='DONE', result_json=$2, finished_at=now()
		WHERE id=$1
	`, id, result)
	if err != nil {
		return errors.Wrap(err, "batches.mark_done", "failed to save batch result")
	}
	return nil
}

func (r *BatchRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	reason = errorText(reason)
	_, err := r.db.Exec(ctx, `
		UPDATE clip_batches
		SET status='FAILED', error_text=$2, finished_at=now()
		WHERE id=$1
	`, id, reason)
	if err != nil {
		return errors.Wrap(err, "batches.mark_failed", "failed to save batch failure")
	}
	return nil
}

// errorText makes reason storable in a TEXT column: invalid UTF-8 and NUL
// bytes are replaced and the result is cut to maxErrorText bytes on a rune
// boundary.
func errorText(reason string) string {
	reason = strings.ToValidUTF8(reason, "\uFFFD")
	reason = strings.ReplaceAll(reason, "\x00", "\uFFFD")
	if len(reason) <= maxErrorText {
		return reason
	}
	n := maxErrorText
	for n > 0 && !utf8.RuneStart(reason[n]) {
		n--
	}
	return reason[:n]
}

// Ping checks database connectivity.
func (r *BatchRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
