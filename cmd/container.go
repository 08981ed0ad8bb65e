// cmd/container.go
//
// Composition root. Owns the queue backend connection and wires the client
// and the optional embedded worker. Construction is fatal on an unreachable
// backend: a process without its queue is not worth starting.
package main

import (
	"context"

	"github.com/taskrelay/taskrelay/pkg/config"
	"github.com/taskrelay/taskrelay/pkg/logx"
	"github.com/taskrelay/taskrelay/pkg/taskq"
	"github.com/taskrelay/taskrelay/pkg/taskq/taskqmem"
	"github.com/taskrelay/taskrelay/pkg/taskq/taskqpg"
	"github.com/taskrelay/taskrelay/pkg/taskq/taskqredis"
)

// Container holds shared infrastructure for the process.
type Container struct {
	Config  *config.Config
	Backend taskq.Backend
	Client  *taskq.Client
	Worker  *taskq.Worker
}

func NewContainer(cfg *config.Config) *Container {
	c := &Container{Config: cfg}

	c.initBackend()
	c.Client = taskq.NewClient(c.Backend,
		taskq.WithDefaultQueue(cfg.Taskq.DefaultQueue),
		taskq.WithDefaultTimeout(cfg.Taskq.DefaultTimeout),
	)

	if cfg.Taskq.RunWorker {
		c.Worker = taskq.NewWorker(c.Backend,
			taskq.WithQueues(cfg.Taskq.Queues...),
			taskq.WithConcurrency(cfg.Taskq.Concurrency),
			taskq.WithDequeueTimeout(cfg.Taskq.DequeueTimeout),
			taskq.WithShutdownTimeout(cfg.Taskq.ShutdownTimeout),
		)
		registerHandlers(c.Worker)
	}

	return c
}

func (c *Container) initBackend() {
	ctx := context.Background()

	switch c.Config.Taskq.Backend {
	case "redis":
		backend, err := taskqredis.Connect(ctx, c.Config.Redis.URL)
		if err != nil {
			logx.Fatalf("Failed to connect to Redis: %v", err)
		}
		c.Backend = backend
		logx.Infof("Redis backend connected (%s)", c.Config.Redis.URL)

	case "postgres":
		backend, err := taskqpg.Connect(ctx, c.Config.Database.DSN(),
			taskqpg.WithMaxOpenConns(c.Config.Database.MaxOpenConns),
			taskqpg.WithMaxIdleConns(c.Config.Database.MaxIdleConns),
			taskqpg.WithConnMaxLifetime(c.Config.Database.ConnMaxLifetime),
		)
		if err != nil {
			logx.Fatalf("Failed to connect to Postgres: %v", err)
		}
		c.Backend = backend
		logx.Info("Postgres backend connected")

	case "memory":
		c.Backend = taskqmem.New()
		logx.Warn("Using in-memory backend; jobs are lost on restart")

	default:
		logx.Fatalf("Unknown TASKQ_BACKEND: %s (use 'redis', 'postgres' or 'memory')", c.Config.Taskq.Backend)
	}
}

// Cleanup releases the backend connection.
func (c *Container) Cleanup() {
	if c.Backend != nil {
		if err := c.Backend.Close(); err != nil {
			logx.WithError(err).Warn("Failed to close backend")
		}
	}
}
