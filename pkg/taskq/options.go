package taskq

import "time"

// DefaultQueue is the queue jobs go to when no queue is named.
const DefaultQueue = "default"

// DefaultTimeout is the job execution timeout applied when none is given.
const DefaultTimeout = time.Hour

// ClientOptions configures a Client.
type ClientOptions struct {
	Queue   string
	Timeout time.Duration
}

func defaultClientOptions() ClientOptions {
	return ClientOptions{
		Queue:   DefaultQueue,
		Timeout: DefaultTimeout,
	}
}

// ClientOption is a functional option for configuring the client.
type ClientOption func(*ClientOptions)

// WithDefaultQueue sets the queue bound to the client.
func WithDefaultQueue(queue string) ClientOption {
	return func(o *ClientOptions) {
		if queue != "" {
			o.Queue = queue
		}
	}
}

// WithDefaultTimeout sets the job timeout applied when Enqueue gets none.
func WithDefaultTimeout(d time.Duration) ClientOption {
	return func(o *ClientOptions) {
		if d > 0 {
			o.Timeout = d
		}
	}
}

// EnqueueOptions configures a single submission.
type EnqueueOptions struct {
	Queue   string
	Timeout time.Duration
}

// EnqueueOption is a functional option for a single Enqueue call.
type EnqueueOption func(*EnqueueOptions)

// OnQueue submits the job to a queue other than the client default.
func OnQueue(queue string) EnqueueOption {
	return func(o *EnqueueOptions) {
		o.Queue = queue
	}
}

// WithTimeout overrides the job execution timeout for this submission.
func WithTimeout(d time.Duration) EnqueueOption {
	return func(o *EnqueueOptions) {
		o.Timeout = d
	}
}

// WorkerOptions configures a Worker.
type WorkerOptions struct {
	Queues          []string
	Concurrency     int
	DequeueTimeout  time.Duration
	PollInterval    time.Duration
	ShutdownTimeout time.Duration
}

func defaultWorkerOptions() WorkerOptions {
	return WorkerOptions{
		Queues:          []string{DefaultQueue},
		Concurrency:     4,
		DequeueTimeout:  5 * time.Second,
		PollInterval:    time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// WorkerOption is a functional option for configuring the worker.
type WorkerOption func(*WorkerOptions)

// WithQueues sets the queues the worker consumes.
func WithQueues(queues ...string) WorkerOption {
	return func(o *WorkerOptions) {
		if len(queues) > 0 {
			o.Queues = queues
		}
	}
}

// WithConcurrency sets the number of worker goroutines.
func WithConcurrency(n int) WorkerOption {
	return func(o *WorkerOptions) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

// WithDequeueTimeout sets the timeout passed to the blocking dequeue call.
func WithDequeueTimeout(d time.Duration) WorkerOption {
	return func(o *WorkerOptions) {
		if d > 0 {
			o.DequeueTimeout = d
		}
	}
}

// WithPollInterval sets the backoff between dequeue attempts after an error.
func WithPollInterval(d time.Duration) WorkerOption {
	return func(o *WorkerOptions) {
		if d > 0 {
			o.PollInterval = d
		}
	}
}

// WithShutdownTimeout sets how long Start waits for in-flight jobs on
// shutdown.
func WithShutdownTimeout(d time.Duration) WorkerOption {
	return func(o *WorkerOptions) {
		if d > 0 {
			o.ShutdownTimeout = d
		}
	}
}
