package main

import (
	"context"
	"time"

	"github.com/taskrelay/taskrelay/pkg/taskq"
)

// registerHandlers installs the built-in smoke-test tasks on the embedded
// worker. Real deployments register their own function references here or
// run dedicated worker processes.
func registerHandlers(w *taskq.Worker) {
	w.Register("taskrelay.ping", pingTask)
	w.Register("taskrelay.sleep", sleepTask)
}

// pingTask answers immediately; useful to verify the queue end to end.
func pingTask(ctx context.Context, job *taskq.JobInfo) (any, error) {
	return "pong", nil
}

// sleepTask sleeps for kwargs["seconds"] (default 1), reporting progress
// through job metadata once per second.
func sleepTask(ctx context.Context, job *taskq.JobInfo) (any, error) {
	seconds := 1
	if v, ok := job.Kwargs["seconds"].(float64); ok && v > 0 {
		seconds = int(v)
	}

	for i := 0; i < seconds; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
		_ = taskq.SetJobMeta(ctx, map[string]any{
			"progress": float64(i+1) / float64(seconds),
		})
	}

	return seconds, nil
}
