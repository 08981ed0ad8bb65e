// Package taskqmem is an in-memory implementation of the taskq backend
// contract, used in tests, examples and single-process deployments. It
// honors the same lifecycle rules as the networked backends.
package taskqmem

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskrelay/taskrelay/pkg/errx"
	"github.com/taskrelay/taskrelay/pkg/ptrx"
	"github.com/taskrelay/taskrelay/pkg/taskq"
)

var memErrors = errx.NewRegistry("TASKQ_MEM")

var (
	ErrNotFound = memErrors.Register("NOT_FOUND", errx.TypeNotFound, 404, "Job not found")
	ErrClosed   = memErrors.Register("CLOSED", errx.TypeExternal, 502, "Backend is closed")
)

// MemoryBackend implements taskq.Backend with process-local state.
type MemoryBackend struct {
	mu     sync.RWMutex
	jobs   map[taskq.JobID]*taskq.JobInfo
	queues map[string][]taskq.JobID
	closed bool
}

// New creates an empty in-memory backend.
func New() *MemoryBackend {
	return &MemoryBackend{
		jobs:   make(map[taskq.JobID]*taskq.JobInfo),
		queues: make(map[string][]taskq.JobID),
	}
}

// Enqueue stores the job as queued at the tail of its queue.
func (b *MemoryBackend) Enqueue(ctx context.Context, job taskq.Job) (taskq.JobID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return "", memErrors.New(ErrClosed)
	}

	id := taskq.JobID(uuid.New().String())
	b.jobs[id] = &taskq.JobInfo{
		ID:         id,
		FuncRef:    job.FuncRef,
		Args:       job.Args,
		Kwargs:     job.Kwargs,
		Queue:      job.Queue,
		Timeout:    job.Timeout,
		Status:     taskq.StatusQueued,
		EnqueuedAt: time.Now().UTC(),
	}
	b.queues[job.Queue] = append(b.queues[job.Queue], id)

	return id, nil
}

// GetJob returns a defensive copy of the stored job.
func (b *MemoryBackend) GetJob(ctx context.Context, id taskq.JobID) (*taskq.JobInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	info, ok := b.jobs[id]
	if !ok {
		return nil, memErrors.New(ErrNotFound).WithDetail("job_id", id.String())
	}
	return copyInfo(info), nil
}

// Cancel transitions a non-terminal job to canceled and drops it from its
// ready queue; already-terminal jobs are left untouched.
func (b *MemoryBackend) Cancel(ctx context.Context, id taskq.JobID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	info, ok := b.jobs[id]
	if !ok {
		return memErrors.New(ErrNotFound).WithDetail("job_id", id.String())
	}
	if info.Status.IsTerminal() {
		return nil
	}

	info.Status = taskq.StatusCanceled
	info.EndedAt = ptrx.Ptr(time.Now().UTC())
	b.removeFromQueue(info.Queue, id)

	return nil
}

// Dequeue polls the given queues in order until a job is ready or the
// timeout expires. It returns (nil, nil) on timeout, matching the blocking
// backends.
func (b *MemoryBackend) Dequeue(ctx context.Context, queues []string, timeout time.Duration) (*taskq.JobInfo, error) {
	deadline := time.Now().Add(timeout)

	for {
		if info := b.tryDequeue(queues); info != nil {
			return info, nil
		}

		if time.Now().After(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, nil
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (b *MemoryBackend) tryDequeue(queues []string) *taskq.JobInfo {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, name := range queues {
		for len(b.queues[name]) > 0 {
			id := b.queues[name][0]
			b.queues[name] = b.queues[name][1:]

			info, ok := b.jobs[id]
			if !ok || info.Status != taskq.StatusQueued {
				continue // canceled before pickup
			}

			info.Status = taskq.StatusStarted
			info.StartedAt = ptrx.Ptr(time.Now().UTC())
			return copyInfo(info)
		}
	}
	return nil
}

// Complete marks the job finished with its result. Terminal states are
// never overwritten.
func (b *MemoryBackend) Complete(ctx context.Context, id taskq.JobID, result []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	info, ok := b.jobs[id]
	if !ok {
		return memErrors.New(ErrNotFound).WithDetail("job_id", id.String())
	}
	if info.Status.IsTerminal() {
		return nil
	}

	info.Status = taskq.StatusFinished
	info.Result = append([]byte(nil), result...)
	info.EndedAt = ptrx.Ptr(time.Now().UTC())
	return nil
}

// Fail marks the job failed. Terminal states are never overwritten.
func (b *MemoryBackend) Fail(ctx context.Context, id taskq.JobID, errMsg string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	info, ok := b.jobs[id]
	if !ok {
		return memErrors.New(ErrNotFound).WithDetail("job_id", id.String())
	}
	if info.Status.IsTerminal() {
		return nil
	}

	info.Status = taskq.StatusFailed
	info.Error = errMsg
	info.EndedAt = ptrx.Ptr(time.Now().UTC())
	return nil
}

// SetMeta merges metadata into a non-terminal job.
func (b *MemoryBackend) SetMeta(ctx context.Context, id taskq.JobID, meta map[string]any) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	info, ok := b.jobs[id]
	if !ok {
		return memErrors.New(ErrNotFound).WithDetail("job_id", id.String())
	}
	if info.Status.IsTerminal() {
		return nil
	}

	if info.Meta == nil {
		info.Meta = make(map[string]any, len(meta))
	}
	for k, v := range meta {
		info.Meta[k] = v
	}
	return nil
}

// Ping reports whether the backend is usable.
func (b *MemoryBackend) Ping(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return memErrors.New(ErrClosed)
	}
	return nil
}

// Close marks the backend closed; subsequent submissions are rejected.
func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	return nil
}

func (b *MemoryBackend) removeFromQueue(queue string, id taskq.JobID) {
	ids := b.queues[queue]
	for i, qid := range ids {
		if qid == id {
			b.queues[queue] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}

func copyInfo(info *taskq.JobInfo) *taskq.JobInfo {
	cp := *info
	if info.Args != nil {
		cp.Args = append([]any(nil), info.Args...)
	}
	if info.Kwargs != nil {
		cp.Kwargs = make(map[string]any, len(info.Kwargs))
		for k, v := range info.Kwargs {
			cp.Kwargs[k] = v
		}
	}
	if info.Meta != nil {
		cp.Meta = make(map[string]any, len(info.Meta))
		for k, v := range info.Meta {
			cp.Meta[k] = v
		}
	}
	if info.Result != nil {
		cp.Result = append([]byte(nil), info.Result...)
	}
	return &cp
}
