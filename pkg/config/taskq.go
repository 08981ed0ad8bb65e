package config

import "time"

// TaskqConfig configures the job queue client and the optional embedded
// worker.
type TaskqConfig struct {
	// Backend selects the queue backend: redis, postgres or memory.
	Backend string

	DefaultQueue   string
	DefaultTimeout time.Duration

	// RunWorker starts an embedded worker alongside the HTTP surface.
	RunWorker       bool
	Queues          []string
	Concurrency     int
	DequeueTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadTaskqConfig() TaskqConfig {
	return TaskqConfig{
		Backend:         getEnv("TASKQ_BACKEND", "redis"),
		DefaultQueue:    getEnv("TASKQ_DEFAULT_QUEUE", "default"),
		DefaultTimeout:  getEnvDuration("TASKQ_DEFAULT_TIMEOUT", time.Hour),
		RunWorker:       getEnvBool("TASKQ_WORKER", false),
		Queues:          getEnvStringSlice("TASKQ_QUEUES", []string{"default"}),
		Concurrency:     getEnvInt("TASKQ_CONCURRENCY", 4),
		DequeueTimeout:  getEnvDuration("TASKQ_DEQUEUE_TIMEOUT", 5*time.Second),
		ShutdownTimeout: getEnvDuration("TASKQ_SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}
