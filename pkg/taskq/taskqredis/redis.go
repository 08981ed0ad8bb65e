// Package taskqredis implements the taskq backend contract on Redis, the
// primary transport for this project. Jobs live as JSON blobs under
// per-job keys; ready queues are Redis lists of job IDs.
package taskqredis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/taskrelay/taskrelay/pkg/errx"
	"github.com/taskrelay/taskrelay/pkg/ptrx"
	"github.com/taskrelay/taskrelay/pkg/taskq"
)

// RedisBackend implements taskq.Backend on a Redis connection. The
// underlying go-redis client pools connections and is safe for concurrent
// independent requests.
type RedisBackend struct {
	rdb *redis.Client
}

// Key helpers
func queueKey(name string) string { return fmt.Sprintf("taskq:queue:%s", name) }
func jobKey(id taskq.JobID) string {
	return fmt.Sprintf("taskq:job:%s", id)
}

// casScript swaps the job blob only if it is unchanged since it was read.
// Uses a Lua script for atomicity: two processes racing on the same
// transition (say a cancel against a completing worker) cannot overwrite
// each other, the loser re-reads and re-evaluates.
var casScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    redis.call('SET', KEYS[1], ARGV[2])
    return 1
end
return 0`)

// New wraps an existing Redis client. The caller is responsible for having
// verified the connection.
func New(rdb *redis.Client) *RedisBackend {
	return &RedisBackend{rdb: rdb}
}

// Connect parses a redis:// URL, opens a client and verifies the connection
// with a PING. A backend is never returned around a dead connection: any
// failure here is fatal to construction, since no caller can proceed
// without a reachable queue.
func Connect(ctx context.Context, url string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, redisErrors.NewWithCause(ErrConnect, err).WithDetail("url", url)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, redisErrors.NewWithCause(ErrConnect, err).WithDetail("url", url)
	}

	return &RedisBackend{rdb: rdb}, nil
}

// Enqueue stores the job as queued and pushes its ID onto the ready queue.
func (b *RedisBackend) Enqueue(ctx context.Context, job taskq.Job) (taskq.JobID, error) {
	id := taskq.JobID(uuid.New().String())

	info := taskq.JobInfo{
		ID:         id,
		FuncRef:    job.FuncRef,
		Args:       job.Args,
		Kwargs:     job.Kwargs,
		Queue:      job.Queue,
		Timeout:    job.Timeout,
		Status:     taskq.StatusQueued,
		EnqueuedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(info)
	if err != nil {
		return "", redisErrors.NewWithCause(ErrMarshal, err)
	}

	pipe := b.rdb.Pipeline()
	pipe.Set(ctx, jobKey(id), data, 0)
	pipe.LPush(ctx, queueKey(job.Queue), id.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return "", redisErrors.NewWithCause(ErrEnqueue, err).WithDetail("queue", job.Queue)
	}

	return id, nil
}

// GetJob re-fetches a job by ID.
func (b *RedisBackend) GetJob(ctx context.Context, id taskq.JobID) (*taskq.JobInfo, error) {
	_, info, err := b.getRaw(ctx, id)
	return info, err
}

// Cancel transitions a non-terminal job to canceled and removes it from its
// ready queue. Requests against an already-terminal job are a no-op.
func (b *RedisBackend) Cancel(ctx context.Context, id taskq.JobID) error {
	info, err := b.update(ctx, id, ErrCancel, func(info *taskq.JobInfo) bool {
		if info.Status.IsTerminal() {
			return false
		}
		info.Status = taskq.StatusCanceled
		info.EndedAt = ptrx.Ptr(time.Now().UTC())
		return true
	})
	if err != nil {
		return err
	}
	if info == nil {
		return nil
	}

	// Dropping the ID from the ready list is best-effort cleanup; a worker
	// popping it anyway skips it on the status check in Dequeue.
	if err := b.rdb.LRem(ctx, queueKey(info.Queue), 0, id.String()).Err(); err != nil {
		return redisErrors.NewWithCause(ErrCancel, err).WithDetail("job_id", id.String())
	}
	return nil
}

// Dequeue blocks until a job is ready on one of the queues or the timeout
// expires. Jobs that were canceled while still listed are skipped.
func (b *RedisBackend) Dequeue(ctx context.Context, queues []string, timeout time.Duration) (*taskq.JobInfo, error) {
	keys := make([]string, len(queues))
	for i, name := range queues {
		keys[i] = queueKey(name)
	}

	result, err := b.rdb.BRPop(ctx, timeout, keys...).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // timeout, no job
		}
		if ctx.Err() != nil {
			return nil, nil // context cancelled
		}
		return nil, redisErrors.NewWithCause(ErrDequeue, err)
	}

	// result[0] = key, result[1] = job ID
	id := taskq.JobID(result[1])

	info, err := b.update(ctx, id, ErrDequeue, func(info *taskq.JobInfo) bool {
		if info.Status != taskq.StatusQueued {
			return false // canceled (or otherwise moved on) before pickup
		}
		info.Status = taskq.StatusStarted
		info.StartedAt = ptrx.Ptr(time.Now().UTC())
		return true
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// Complete stores the result and marks the job finished. Terminal states
// are never overwritten, so a job canceled mid-run stays canceled.
func (b *RedisBackend) Complete(ctx context.Context, id taskq.JobID, result []byte) error {
	_, err := b.update(ctx, id, ErrComplete, func(info *taskq.JobInfo) bool {
		if info.Status.IsTerminal() {
			return false
		}
		info.Status = taskq.StatusFinished
		info.Result = result
		info.EndedAt = ptrx.Ptr(time.Now().UTC())
		return true
	})
	return err
}

// Fail marks the job failed with the given message. Terminal states are
// never overwritten.
func (b *RedisBackend) Fail(ctx context.Context, id taskq.JobID, errMsg string) error {
	_, err := b.update(ctx, id, ErrFail, func(info *taskq.JobInfo) bool {
		if info.Status.IsTerminal() {
			return false
		}
		info.Status = taskq.StatusFailed
		info.Error = errMsg
		info.EndedAt = ptrx.Ptr(time.Now().UTC())
		return true
	})
	return err
}

// SetMeta merges worker-supplied metadata into the job. Metadata on a
// terminal job is left untouched.
func (b *RedisBackend) SetMeta(ctx context.Context, id taskq.JobID, meta map[string]any) error {
	_, err := b.update(ctx, id, ErrSetMeta, func(info *taskq.JobInfo) bool {
		if info.Status.IsTerminal() {
			return false
		}
		if info.Meta == nil {
			info.Meta = make(map[string]any, len(meta))
		}
		for k, v := range meta {
			info.Meta[k] = v
		}
		return true
	})
	return err
}

// Ping verifies the connection is alive.
func (b *RedisBackend) Ping(ctx context.Context) error {
	if err := b.rdb.Ping(ctx).Err(); err != nil {
		return redisErrors.NewWithCause(ErrConnect, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (b *RedisBackend) Close() error {
	return b.rdb.Close()
}

func (b *RedisBackend) getRaw(ctx context.Context, id taskq.JobID) ([]byte, *taskq.JobInfo, error) {
	data, err := b.rdb.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil, redisErrors.New(ErrNotFound).WithDetail("job_id", id.String())
		}
		return nil, nil, redisErrors.NewWithCause(ErrGetJob, err).WithDetail("job_id", id.String())
	}

	var info taskq.JobInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, nil, redisErrors.NewWithCause(ErrUnmarshal, err).WithDetail("job_id", id.String())
	}
	return data, &info, nil
}

// update applies mutate to the job under optimistic concurrency: the write
// lands only if the blob is unchanged since the read, otherwise the
// transition is re-evaluated against the fresh state. mutate returning
// false leaves the job untouched and update returns (nil, nil); that is how
// terminal states survive a racing Complete/Fail/Cancel.
func (b *RedisBackend) update(ctx context.Context, id taskq.JobID, code *errx.ErrorCode, mutate func(*taskq.JobInfo) bool) (*taskq.JobInfo, error) {
	for {
		old, info, err := b.getRaw(ctx, id)
		if err != nil {
			return nil, err
		}
		if !mutate(info) {
			return nil, nil
		}

		data, err := json.Marshal(info)
		if err != nil {
			return nil, redisErrors.NewWithCause(ErrMarshal, err).WithDetail("job_id", id.String())
		}

		swapped, err := casScript.Run(ctx, b.rdb, []string{jobKey(id)}, old, data).Int()
		if err != nil {
			return nil, redisErrors.NewWithCause(code, err).WithDetail("job_id", id.String())
		}
		if swapped == 1 {
			return info, nil
		}
		// Lost the race, go around with the fresh blob.
	}
}
