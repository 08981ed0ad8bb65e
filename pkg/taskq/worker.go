package taskq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/taskrelay/taskrelay/pkg/logx"
)

// HandlerFunc executes one job. The returned value is JSON-encoded and
// stored as the job result; a non-nil error fails the job.
type HandlerFunc func(ctx context.Context, job *JobInfo) (any, error)

// Worker dequeues jobs and dispatches them to registered handlers. Function
// references are resolved through the registry built up with Register; a
// job whose reference has no handler is failed, not dropped.
type Worker struct {
	backend Backend
	opts    WorkerOptions

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	running  bool
}

// NewWorker creates a worker over a connected backend.
func NewWorker(backend Backend, options ...WorkerOption) *Worker {
	opts := defaultWorkerOptions()
	for _, o := range options {
		o(&opts)
	}
	return &Worker{
		backend:  backend,
		opts:     opts,
		handlers: make(map[string]HandlerFunc),
	}
}

// Register maps a function reference to its handler.
func (w *Worker) Register(funcRef string, handler HandlerFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[funcRef] = handler
}

// Start begins consuming jobs. It blocks until ctx is cancelled, then waits
// up to the shutdown timeout for in-flight jobs to finish.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return taskqErrors.New(ErrAlreadyRunning)
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	logx.Infof("taskq: starting %d workers on queues %v", w.opts.Concurrency, w.opts.Queues)

	var wg sync.WaitGroup
	for i := 0; i < w.opts.Concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.consumeLoop(ctx, id)
		}(i)
	}

	<-ctx.Done()
	logx.Info("taskq: shutting down workers...")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logx.Info("taskq: all workers stopped")
	case <-time.After(w.opts.ShutdownTimeout):
		logx.Warn("taskq: shutdown timed out, some jobs may not have completed")
	}

	return nil
}

func (w *Worker) consumeLoop(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.backend.Dequeue(ctx, w.opts.Queues, w.opts.DequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logx.WithError(err).Warnf("taskq: worker %d dequeue error", id)
			time.Sleep(w.opts.PollInterval)
			continue
		}
		if job == nil {
			continue
		}

		w.processJob(ctx, job)
	}
}

func (w *Worker) processJob(ctx context.Context, job *JobInfo) {
	w.mu.RLock()
	handler, ok := w.handlers[job.FuncRef]
	w.mu.RUnlock()

	if !ok {
		logx.Warnf("taskq: no handler for function reference %q (id=%s)", job.FuncRef, job.ID)
		w.fail(ctx, job.ID, fmt.Sprintf("no handler registered for function reference %q", job.FuncRef))
		return
	}

	timeout := job.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	runCtx = withMetaWriter(runCtx, func(meta map[string]any) error {
		return w.backend.SetMeta(ctx, job.ID, meta)
	})

	type outcome struct {
		value any
		err   error
	}
	ch := make(chan outcome, 1)
	go func() {
		v, err := handler(runCtx, job)
		ch <- outcome{value: v, err: err}
	}()

	select {
	case out := <-ch:
		if out.err != nil {
			logx.WithError(out.err).Warnf("taskq: job %s (%s) failed", job.ID, job.FuncRef)
			w.fail(ctx, job.ID, out.err.Error())
			return
		}
		w.complete(ctx, job.ID, out.value)

	case <-runCtx.Done():
		if ctx.Err() != nil {
			// Process shutdown, not a job timeout. Leave the job started;
			// an operator decides whether to requeue it.
			logx.Warnf("taskq: shutdown while job %s was running", job.ID)
			return
		}
		logx.Warnf("taskq: job %s timed out after %s", job.ID, timeout)
		w.fail(ctx, job.ID, fmt.Sprintf("job timed out after %s", timeout))
	}
}

func (w *Worker) complete(ctx context.Context, id JobID, value any) {
	var result []byte
	if value != nil {
		data, err := json.Marshal(value)
		if err != nil {
			logx.WithError(err).Errorf("taskq: job %s produced an unencodable result", id)
			w.fail(ctx, id, fmt.Sprintf("result not JSON-encodable: %v", err))
			return
		}
		result = data
	}

	if err := w.backend.Complete(ctx, id, result); err != nil {
		logx.WithError(err).Errorf("taskq: failed to complete job %s", id)
	}
}

func (w *Worker) fail(ctx context.Context, id JobID, msg string) {
	if err := w.backend.Fail(ctx, id, msg); err != nil {
		logx.WithError(err).Errorf("taskq: failed to mark job %s as failed", id)
	}
}
