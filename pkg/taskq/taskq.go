// Package taskq is a client-side abstraction over a distributed job queue.
// Callers submit deferred work by function reference, then observe and
// control the resulting job through its opaque ID. Storage and dispatch
// live behind the Backend interface; Redis, Postgres and in-memory
// implementations ship in the sub-packages.
package taskq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/taskrelay/taskrelay/pkg/errx"
)

// JobEnqueuer submits jobs to the backend.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, job Job) (JobID, error)
}

// JobReader fetches jobs from the backend by ID.
type JobReader interface {
	GetJob(ctx context.Context, id JobID) (*JobInfo, error)
}

// JobController requests lifecycle transitions on behalf of the caller.
type JobController interface {
	Cancel(ctx context.Context, id JobID) error
}

// JobProcessor provides the backend operations used by the worker loop.
type JobProcessor interface {
	Dequeue(ctx context.Context, queues []string, timeout time.Duration) (*JobInfo, error)
	Complete(ctx context.Context, id JobID, result []byte) error
	Fail(ctx context.Context, id JobID, errMsg string) error
	SetMeta(ctx context.Context, id JobID, meta map[string]any) error
}

// Backend combines all queue backend operations. Implementations must be
// safe for concurrent use; the client adds no locking of its own.
type Backend interface {
	JobEnqueuer
	JobReader
	JobController
	JobProcessor

	Ping(ctx context.Context) error
	Close() error
}

// Client is the entry point for submitting and observing jobs. It is
// stateless between calls beyond the backend connection it holds: each
// operation performs exactly one round trip and no retries.
type Client struct {
	backend Backend
	opts    ClientOptions
}

// NewClient creates a client bound to an already-connected backend and a
// default queue. Backend construction (taskqredis.Connect, taskqpg.Connect)
// is where connection failures surface; a Client is never created around a
// dead connection.
func NewClient(backend Backend, options ...ClientOption) *Client {
	opts := defaultClientOptions()
	for _, o := range options {
		o(&opts)
	}
	return &Client{backend: backend, opts: opts}
}

// Enqueue submits one unit of deferred work and returns the backend-assigned
// job ID. funcRef is a dotted reference resolved by the worker process; args
// and kwargs are passed through untouched. A single submission attempt is
// made per call.
func (c *Client) Enqueue(ctx context.Context, funcRef string, args []any, kwargs map[string]any, options ...EnqueueOption) (JobID, error) {
	if funcRef == "" {
		return "", taskqErrors.NewWithMessage(ErrInvalidJob, "function reference must not be empty")
	}

	opts := EnqueueOptions{Queue: c.opts.Queue, Timeout: c.opts.Timeout}
	for _, o := range options {
		o(&opts)
	}
	if opts.Queue == "" {
		opts.Queue = c.opts.Queue
	}
	if opts.Timeout <= 0 {
		opts.Timeout = c.opts.Timeout
	}

	id, err := c.backend.Enqueue(ctx, Job{
		FuncRef: funcRef,
		Args:    args,
		Kwargs:  kwargs,
		Queue:   opts.Queue,
		Timeout: opts.Timeout,
	})
	if err != nil {
		return "", wrapBackendErr(err, ErrEnqueueFailed)
	}
	if id.IsEmpty() {
		return "", taskqErrors.NewWithMessage(ErrEnqueueFailed, "backend returned an empty job ID")
	}
	return id, nil
}

// Status returns the job's current lifecycle state.
func (c *Client) Status(ctx context.Context, id JobID) (Status, error) {
	info, err := c.fetch(ctx, id, ErrStatusFailed)
	if err != nil {
		return "", err
	}
	return info.Status, nil
}

// Meta returns the job's current metadata snapshot.
func (c *Client) Meta(ctx context.Context, id JobID) (map[string]any, error) {
	info, err := c.fetch(ctx, id, ErrMetaFailed)
	if err != nil {
		return nil, err
	}
	if info.Meta == nil {
		return map[string]any{}, nil
	}
	return info.Meta, nil
}

// Cancel requests cancellation of a queued or running job. Whether a
// request against an already-terminal job is a no-op is backend-defined;
// the client only forwards the request and reports the outcome.
func (c *Client) Cancel(ctx context.Context, id JobID) error {
	if id.IsEmpty() {
		return taskqErrors.New(ErrInvalidJobID)
	}
	if err := c.backend.Cancel(ctx, id); err != nil {
		return wrapBackendErr(err, ErrCancelFailed)
	}
	return nil
}

// Result returns the value produced by the worker once the job is finished.
// For a job in any other state it returns a NOT_FINISHED error whose message
// names the current status and whose "status" detail carries it
// machine-readably, so callers can tell "not ready" from "backend broken".
func (c *Client) Result(ctx context.Context, id JobID) (any, error) {
	info, err := c.fetch(ctx, id, ErrResultFailed)
	if err != nil {
		return nil, err
	}

	if info.Status != StatusFinished {
		return nil, taskqErrors.
			NewWithMessage(ErrNotFinished, fmt.Sprintf("job is not finished yet (status: %s)", info.Status)).
			WithDetail("status", info.Status.String())
	}

	if len(info.Result) == 0 {
		return nil, nil
	}

	var value any
	if err := json.Unmarshal(info.Result, &value); err != nil {
		return nil, taskqErrors.NewWithCause(ErrResultFailed, err).WithDetail("job_id", id.String())
	}
	return value, nil
}

// Wait polls the job until it reaches a terminal state or ctx is done, and
// returns its final info. The five core operations stay single-round-trip;
// this helper exists for callers that want blocking completion semantics.
func (c *Client) Wait(ctx context.Context, id JobID, pollInterval time.Duration) (*JobInfo, error) {
	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		info, err := c.fetch(ctx, id, ErrStatusFailed)
		if err != nil {
			return nil, err
		}
		if info.Status.IsTerminal() {
			return info, nil
		}

		select {
		case <-ctx.Done():
			return nil, errx.Wrap(ctx.Err(), "wait aborted", errx.TypeInternal)
		case <-ticker.C:
		}
	}
}

func (c *Client) fetch(ctx context.Context, id JobID, code *errx.ErrorCode) (*JobInfo, error) {
	if id.IsEmpty() {
		return nil, taskqErrors.New(ErrInvalidJobID)
	}
	info, err := c.backend.GetJob(ctx, id)
	if err != nil {
		return nil, wrapBackendErr(err, code)
	}
	return info, nil
}

// wrapBackendErr folds any backend failure into the single *errx.Error
// shape. Not-found errors are re-issued under JOB_NOT_FOUND so callers see
// the same code from every backend; other errx errors pass through; anything
// else (driver errors, context errors) gets wrapped under the operation's
// code so no transport-specific error type ever crosses the client boundary.
func wrapBackendErr(err error, code *errx.ErrorCode) error {
	if err == nil {
		return nil
	}
	var e *errx.Error
	if errx.As(err, &e) {
		if e.Type == errx.TypeNotFound {
			return taskqErrors.NewWithCause(ErrJobNotFound, err)
		}
		return err
	}
	return taskqErrors.NewWithCause(code, err)
}
