// Package taskqpg implements the taskq backend contract on Postgres for
// deployments that already run a relational database and do not want a
// second broker. Ready jobs are claimed with FOR UPDATE SKIP LOCKED so
// concurrent workers never double-claim.
package taskqpg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/taskrelay/taskrelay/pkg/taskq"
)

// PGBackend implements taskq.Backend on a Postgres connection pool.
type PGBackend struct {
	db *sqlx.DB
}

// Option tunes the connection pool opened by Connect.
type Option func(db *sqlx.DB)

// WithMaxOpenConns caps the number of open connections in the pool.
func WithMaxOpenConns(n int) Option {
	return func(db *sqlx.DB) {
		if n > 0 {
			db.SetMaxOpenConns(n)
		}
	}
}

// WithMaxIdleConns caps the number of idle connections kept in the pool.
func WithMaxIdleConns(n int) Option {
	return func(db *sqlx.DB) {
		if n > 0 {
			db.SetMaxIdleConns(n)
		}
	}
}

// WithConnMaxLifetime bounds how long a pooled connection is reused.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(db *sqlx.DB) {
		if d > 0 {
			db.SetConnMaxLifetime(d)
		}
	}
}

// New wraps an existing sqlx pool. The caller is responsible for having
// verified the connection and applied the schema.
func New(db *sqlx.DB) *PGBackend {
	return &PGBackend{db: db}
}

// Connect opens a pool against the DSN, verifies it with a ping and applies
// the queue schema. Construction fails outright on an unreachable database.
func Connect(ctx context.Context, dsn string, options ...Option) (*PGBackend, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, pgErrors.NewWithCause(ErrConnect, err)
	}
	for _, o := range options {
		o(db)
	}

	b := &PGBackend{db: db}
	if err := b.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS taskq_jobs (
	id          TEXT PRIMARY KEY,
	func_ref    TEXT NOT NULL,
	args        JSONB,
	kwargs      JSONB,
	queue       TEXT NOT NULL,
	timeout_ms  BIGINT NOT NULL,
	status      TEXT NOT NULL,
	meta        JSONB,
	result      JSONB,
	error       TEXT NOT NULL DEFAULT '',
	enqueued_at TIMESTAMPTZ NOT NULL,
	started_at  TIMESTAMPTZ,
	ended_at    TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS taskq_jobs_ready_idx
	ON taskq_jobs (queue, enqueued_at)
	WHERE status = 'queued';
`

// EnsureSchema creates the jobs table and its claim index if missing.
func (b *PGBackend) EnsureSchema(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, schema); err != nil {
		return pgErrors.NewWithCause(ErrSchema, err)
	}
	return nil
}

// Enqueue inserts the job as queued.
func (b *PGBackend) Enqueue(ctx context.Context, job taskq.Job) (taskq.JobID, error) {
	id := taskq.JobID(uuid.New().String())

	row, err := toRow(&taskq.JobInfo{
		ID:         id,
		FuncRef:    job.FuncRef,
		Args:       job.Args,
		Kwargs:     job.Kwargs,
		Queue:      job.Queue,
		Timeout:    job.Timeout,
		Status:     taskq.StatusQueued,
		EnqueuedAt: time.Now().UTC(),
	})
	if err != nil {
		return "", err
	}

	const query = `
		INSERT INTO taskq_jobs (
			id, func_ref, args, kwargs, queue, timeout_ms, status,
			meta, result, error, enqueued_at, started_at, ended_at
		) VALUES (
			:id, :func_ref, :args, :kwargs, :queue, :timeout_ms, :status,
			:meta, :result, :error, :enqueued_at, :started_at, :ended_at
		)`

	if _, err := b.db.NamedExecContext(ctx, query, row); err != nil {
		return "", pgErrors.NewWithCause(ErrEnqueue, err).WithDetail("queue", job.Queue)
	}
	return id, nil
}

// GetJob re-fetches a job by ID.
func (b *PGBackend) GetJob(ctx context.Context, id taskq.JobID) (*taskq.JobInfo, error) {
	var row jobRow
	err := b.db.GetContext(ctx, &row,
		`SELECT * FROM taskq_jobs WHERE id = $1`, id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, pgErrors.New(ErrNotFound).WithDetail("job_id", id.String())
		}
		return nil, pgErrors.NewWithCause(ErrGetJob, err).WithDetail("job_id", id.String())
	}
	return fromRow(&row)
}

// Cancel transitions a non-terminal job to canceled. Terminal jobs are left
// untouched; an unknown ID is an error.
func (b *PGBackend) Cancel(ctx context.Context, id taskq.JobID) error {
	res, err := b.db.ExecContext(ctx, `
		UPDATE taskq_jobs
		SET status = 'canceled', ended_at = now()
		WHERE id = $1 AND status IN ('queued', 'started')`,
		id.String())
	if err != nil {
		return pgErrors.NewWithCause(ErrCancel, err).WithDetail("job_id", id.String())
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return pgErrors.NewWithCause(ErrCancel, err).WithDetail("job_id", id.String())
	}
	if affected == 0 {
		// Either terminal already (a no-op) or unknown.
		if _, err := b.GetJob(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Dequeue polls for a ready job on the given queues until the timeout
// expires, claiming atomically with SKIP LOCKED. Returns (nil, nil) when
// nothing became ready.
func (b *PGBackend) Dequeue(ctx context.Context, queues []string, timeout time.Duration) (*taskq.JobInfo, error) {
	const claim = `
		UPDATE taskq_jobs
		SET status = 'started', started_at = now()
		WHERE id = (
			SELECT id FROM taskq_jobs
			WHERE queue = ANY($1) AND status = 'queued'
			ORDER BY enqueued_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *`

	deadline := time.Now().Add(timeout)
	for {
		var row jobRow
		err := b.db.QueryRowxContext(ctx, claim, pq.Array(queues)).StructScan(&row)
		if err == nil {
			return fromRow(&row)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, pgErrors.NewWithCause(ErrDequeue, err)
		}

		if time.Now().After(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, nil
		case <-time.After(250 * time.Millisecond):
		}
	}
}

// Complete stores the result and marks the job finished unless it already
// reached a terminal state.
func (b *PGBackend) Complete(ctx context.Context, id taskq.JobID, result []byte) error {
	var res interface{}
	if len(result) > 0 {
		res = result
	}
	_, err := b.db.ExecContext(ctx, `
		UPDATE taskq_jobs
		SET status = 'finished', result = $2, ended_at = now()
		WHERE id = $1 AND status IN ('queued', 'started')`,
		id.String(), res)
	if err != nil {
		return pgErrors.NewWithCause(ErrComplete, err).WithDetail("job_id", id.String())
	}
	return nil
}

// Fail marks the job failed unless it already reached a terminal state.
func (b *PGBackend) Fail(ctx context.Context, id taskq.JobID, errMsg string) error {
	_, err := b.db.ExecContext(ctx, `
		UPDATE taskq_jobs
		SET status = 'failed', error = $2, ended_at = now()
		WHERE id = $1 AND status IN ('queued', 'started')`,
		id.String(), errMsg)
	if err != nil {
		return pgErrors.NewWithCause(ErrFail, err).WithDetail("job_id", id.String())
	}
	return nil
}

// SetMeta merges metadata into a non-terminal job using jsonb
// concatenation, so concurrent progress updates do not clobber each other's
// keys wholesale.
func (b *PGBackend) SetMeta(ctx context.Context, id taskq.JobID, meta map[string]any) error {
	data, err := marshalMap(meta)
	if err != nil {
		return pgErrors.NewWithCause(ErrMarshal, err).WithDetail("job_id", id.String())
	}

	_, err = b.db.ExecContext(ctx, `
		UPDATE taskq_jobs
		SET meta = COALESCE(meta, '{}'::jsonb) || $2::jsonb
		WHERE id = $1 AND status IN ('queued', 'started')`,
		id.String(), data)
	if err != nil {
		return pgErrors.NewWithCause(ErrSetMeta, err).WithDetail("job_id", id.String())
	}
	return nil
}

// Ping verifies the pool is alive.
func (b *PGBackend) Ping(ctx context.Context) error {
	if err := b.db.PingContext(ctx); err != nil {
		return pgErrors.NewWithCause(ErrConnect, err)
	}
	return nil
}

// Close releases the connection pool.
func (b *PGBackend) Close() error {
	return b.db.Close()
}
