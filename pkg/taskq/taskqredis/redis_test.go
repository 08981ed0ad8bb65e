package taskqredis_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/taskrelay/taskrelay/pkg/taskq"
	"github.com/taskrelay/taskrelay/pkg/taskq/taskqredis"
)

// testSetup requires a live Redis; set TASKQ_REDIS_URL to run these tests.
func testSetup(t *testing.T) (*taskqredis.RedisBackend, string) {
	t.Helper()

	url := os.Getenv("TASKQ_REDIS_URL")
	if url == "" {
		t.Skip("TASKQ_REDIS_URL not set")
	}

	backend, err := taskqredis.Connect(context.Background(), url)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { _ = backend.Close() })

	// Fresh queue name per test so runs do not interfere.
	return backend, "test-" + uuid.New().String()
}

func TestConnect_BadURL(t *testing.T) {
	if _, err := taskqredis.Connect(context.Background(), "not-a-url"); err == nil {
		t.Fatal("expected error for malformed URL")
	}
}

func TestConnect_UnreachableBackend(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := taskqredis.Connect(ctx, "redis://localhost:1/0"); err == nil {
		t.Fatal("expected error for unreachable backend")
	}
}

func TestEnqueueAndGetJob(t *testing.T) {
	backend, queue := testSetup(t)
	ctx := context.Background()

	id, err := backend.Enqueue(ctx, taskq.Job{
		FuncRef: "tasks.noop",
		Args:    []any{"a", float64(1)},
		Kwargs:  map[string]any{"k": "v"},
		Queue:   queue,
		Timeout: time.Hour,
	})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if id.IsEmpty() {
		t.Fatal("Enqueue returned empty ID")
	}

	info, err := backend.GetJob(ctx, id)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if info.Status != taskq.StatusQueued {
		t.Errorf("status = %q, want queued", info.Status)
	}
	if info.FuncRef != "tasks.noop" || info.Queue != queue {
		t.Errorf("job fields not round-tripped: %+v", info)
	}
}

func TestDequeueCompleteResult(t *testing.T) {
	backend, queue := testSetup(t)
	ctx := context.Background()

	id, err := backend.Enqueue(ctx, taskq.Job{FuncRef: "tasks.noop", Queue: queue, Timeout: time.Hour})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	job, err := backend.Dequeue(ctx, []string{queue}, time.Second)
	if err != nil || job == nil {
		t.Fatalf("Dequeue failed: job=%v err=%v", job, err)
	}
	if job.ID != id || job.Status != taskq.StatusStarted {
		t.Fatalf("unexpected dequeued job: %+v", job)
	}

	if err := backend.Complete(ctx, id, []byte("42")); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	info, err := backend.GetJob(ctx, id)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if info.Status != taskq.StatusFinished || string(info.Result) != "42" {
		t.Fatalf("job not finished with result: %+v", info)
	}
}

func TestCancel_QueuedJobIsNeverDequeued(t *testing.T) {
	backend, queue := testSetup(t)
	ctx := context.Background()

	id, err := backend.Enqueue(ctx, taskq.Job{FuncRef: "tasks.noop", Queue: queue, Timeout: time.Hour})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	if err := backend.Cancel(ctx, id); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	info, err := backend.GetJob(ctx, id)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if info.Status != taskq.StatusCanceled {
		t.Fatalf("status = %q, want canceled", info.Status)
	}

	job, err := backend.Dequeue(ctx, []string{queue}, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if job != nil {
		t.Fatalf("canceled job was dequeued: %+v", job)
	}
}

func TestTerminalStateNeverOverwritten(t *testing.T) {
	backend, queue := testSetup(t)
	ctx := context.Background()

	// A worker finishing after the job was canceled must not resurrect it.
	id, err := backend.Enqueue(ctx, taskq.Job{FuncRef: "tasks.noop", Queue: queue, Timeout: time.Hour})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	job, err := backend.Dequeue(ctx, []string{queue}, time.Second)
	if err != nil || job == nil {
		t.Fatalf("Dequeue failed: job=%v err=%v", job, err)
	}
	if err := backend.Cancel(ctx, id); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	if err := backend.Complete(ctx, id, []byte("42")); err != nil {
		t.Fatalf("Complete on canceled job should be a no-op, got %v", err)
	}
	if err := backend.Fail(ctx, id, "late failure"); err != nil {
		t.Fatalf("Fail on canceled job should be a no-op, got %v", err)
	}
	if err := backend.SetMeta(ctx, id, map[string]any{"late": true}); err != nil {
		t.Fatalf("SetMeta on canceled job should be a no-op, got %v", err)
	}

	info, err := backend.GetJob(ctx, id)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if info.Status != taskq.StatusCanceled {
		t.Fatalf("status = %q, canceled job was overwritten", info.Status)
	}
	if info.Result != nil || info.Meta["late"] == true {
		t.Fatalf("terminal job mutated: %+v", info)
	}

	// And a cancel landing after completion must not strand the result.
	id, err = backend.Enqueue(ctx, taskq.Job{FuncRef: "tasks.noop", Queue: queue, Timeout: time.Hour})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if job, err = backend.Dequeue(ctx, []string{queue}, time.Second); err != nil || job == nil {
		t.Fatalf("Dequeue failed: job=%v err=%v", job, err)
	}
	if err := backend.Complete(ctx, id, []byte("42")); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if err := backend.Cancel(ctx, id); err != nil {
		t.Fatalf("Cancel on finished job should be a no-op, got %v", err)
	}

	info, err = backend.GetJob(ctx, id)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if info.Status != taskq.StatusFinished || string(info.Result) != "42" {
		t.Fatalf("finished job lost to late cancel: %+v", info)
	}
}

func TestSetMeta_ConcurrentWritersAllLand(t *testing.T) {
	backend, queue := testSetup(t)
	ctx := context.Background()

	id, err := backend.Enqueue(ctx, taskq.Job{FuncRef: "tasks.noop", Queue: queue, Timeout: time.Hour})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if job, err := backend.Dequeue(ctx, []string{queue}, time.Second); err != nil || job == nil {
		t.Fatalf("Dequeue failed: job=%v err=%v", job, err)
	}

	// Racing writers on distinct keys; a lost update would drop one.
	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- backend.SetMeta(ctx, id, map[string]any{fmt.Sprintf("w%d", i): true})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("SetMeta failed: %v", err)
		}
	}

	info, err := backend.GetJob(ctx, id)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	for i := 0; i < writers; i++ {
		if info.Meta[fmt.Sprintf("w%d", i)] != true {
			t.Fatalf("meta key w%d lost: %v", i, info.Meta)
		}
	}
}

func TestGetJob_Unknown(t *testing.T) {
	backend, _ := testSetup(t)

	if _, err := backend.GetJob(context.Background(), taskq.JobID(uuid.New().String())); err == nil {
		t.Fatal("expected error for unknown job ID")
	}
}
