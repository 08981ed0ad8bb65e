package taskq

import (
	"encoding/json"
	"time"
)

// JobID identifies a submitted job. It is generated by the backend at
// submission time and must be treated as an opaque token by callers.
type JobID string

func (id JobID) String() string { return string(id) }
func (id JobID) IsEmpty() bool  { return string(id) == "" }

// Status is the lifecycle state of a job. The backend owns all transitions;
// the client only observes them, except for the cancel request.
type Status string

const (
	StatusQueued   Status = "queued"
	StatusStarted  Status = "started"
	StatusFinished Status = "finished"
	StatusFailed   Status = "failed"
	StatusCanceled Status = "canceled"
)

func (s Status) String() string { return string(s) }

// IsTerminal reports whether a job in this state will never transition again.
func (s Status) IsTerminal() bool {
	return s == StatusFinished || s == StatusFailed || s == StatusCanceled
}

// Job is a unit of deferred work to be submitted. FuncRef is a dotted
// function reference resolved by the worker process; the client never
// inspects it beyond checking that it is present.
type Job struct {
	FuncRef string         `json:"func_ref"`
	Args    []any          `json:"args,omitempty"`
	Kwargs  map[string]any `json:"kwargs,omitempty"`
	Queue   string         `json:"queue"`

	// Timeout is how long a worker may run the job before the backend
	// abandons it as failed. Default is one hour.
	Timeout time.Duration `json:"timeout"`
}

// JobInfo is the full backend-owned representation of a job. The client
// holds no long-lived reference to it; every operation re-fetches by ID.
type JobInfo struct {
	ID      JobID          `json:"id"`
	FuncRef string         `json:"func_ref"`
	Args    []any          `json:"args,omitempty"`
	Kwargs  map[string]any `json:"kwargs,omitempty"`
	Queue   string         `json:"queue"`
	Timeout time.Duration  `json:"timeout"`

	Status Status `json:"status"`

	// Meta is arbitrary key/value data attached by the worker during
	// execution, e.g. progress.
	Meta map[string]any `json:"meta,omitempty"`

	// Result is the JSON-encoded value produced by the worker, present
	// only once Status is finished.
	Result json.RawMessage `json:"result,omitempty"`

	// Error is the failure message, present only once Status is failed.
	Error string `json:"error,omitempty"`

	EnqueuedAt time.Time  `json:"enqueued_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
}
