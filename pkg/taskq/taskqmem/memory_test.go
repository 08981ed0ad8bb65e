package taskqmem_test

import (
	"context"
	"testing"
	"time"

	"github.com/taskrelay/taskrelay/pkg/taskq"
	"github.com/taskrelay/taskrelay/pkg/taskq/taskqmem"
)

func enqueue(t *testing.T, b *taskqmem.MemoryBackend, queue string) taskq.JobID {
	t.Helper()

	id, err := b.Enqueue(context.Background(), taskq.Job{
		FuncRef: "tasks.noop",
		Queue:   queue,
		Timeout: time.Minute,
	})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	return id
}

func TestDequeue_FIFO(t *testing.T) {
	b := taskqmem.New()
	ctx := context.Background()

	first := enqueue(t, b, "q")
	second := enqueue(t, b, "q")

	job, err := b.Dequeue(ctx, []string{"q"}, time.Second)
	if err != nil || job == nil {
		t.Fatalf("Dequeue failed: job=%v err=%v", job, err)
	}
	if job.ID != first {
		t.Errorf("dequeued %s, want first job %s", job.ID, first)
	}
	if job.Status != taskq.StatusStarted {
		t.Errorf("status = %q, want started", job.Status)
	}
	if job.StartedAt == nil {
		t.Error("StartedAt not set on dequeue")
	}

	job, err = b.Dequeue(ctx, []string{"q"}, time.Second)
	if err != nil || job == nil {
		t.Fatalf("second Dequeue failed: job=%v err=%v", job, err)
	}
	if job.ID != second {
		t.Errorf("dequeued %s, want second job %s", job.ID, second)
	}
}

func TestDequeue_TimeoutReturnsNil(t *testing.T) {
	b := taskqmem.New()

	job, err := b.Dequeue(context.Background(), []string{"empty"}, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if job != nil {
		t.Fatalf("Dequeue on empty queue = %v, want nil", job)
	}
}

func TestCancel_RemovesFromQueue(t *testing.T) {
	b := taskqmem.New()
	ctx := context.Background()

	id := enqueue(t, b, "q")
	if err := b.Cancel(ctx, id); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	info, err := b.GetJob(ctx, id)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if info.Status != taskq.StatusCanceled {
		t.Errorf("status = %q, want canceled", info.Status)
	}
	if info.EndedAt == nil {
		t.Error("EndedAt not set on cancel")
	}

	job, err := b.Dequeue(ctx, []string{"q"}, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if job != nil {
		t.Fatalf("canceled job was dequeued: %v", job)
	}
}

func TestComplete_DoesNotOverwriteTerminal(t *testing.T) {
	b := taskqmem.New()
	ctx := context.Background()

	id := enqueue(t, b, "q")
	if err := b.Cancel(ctx, id); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	if err := b.Complete(ctx, id, []byte("1")); err != nil {
		t.Fatalf("Complete on terminal job should be a no-op, got %v", err)
	}
	if err := b.Fail(ctx, id, "late failure"); err != nil {
		t.Fatalf("Fail on terminal job should be a no-op, got %v", err)
	}

	info, err := b.GetJob(ctx, id)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if info.Status != taskq.StatusCanceled {
		t.Fatalf("status = %q, canceled job was overwritten", info.Status)
	}
}

func TestGetJob_ReturnsDefensiveCopy(t *testing.T) {
	b := taskqmem.New()
	ctx := context.Background()

	id, err := b.Enqueue(ctx, taskq.Job{
		FuncRef: "tasks.noop",
		Args:    []any{"original"},
		Kwargs:  map[string]any{"k": "v"},
		Queue:   "q",
		Timeout: time.Minute,
	})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := b.SetMeta(ctx, id, map[string]any{"m": "v"}); err != nil {
		t.Fatalf("SetMeta failed: %v", err)
	}

	info, _ := b.GetJob(ctx, id)
	info.Args[0] = "mutated"
	info.Kwargs["k"] = "mutated"
	info.Meta["m"] = "mutated"

	fresh, _ := b.GetJob(ctx, id)
	if fresh.Args[0] != "original" {
		t.Error("Args shared with the store")
	}
	if fresh.Kwargs["k"] != "v" {
		t.Error("Kwargs shared with the store")
	}
	if fresh.Meta["m"] != "v" {
		t.Error("Meta shared with the store")
	}
}

func TestSetMeta_Merges(t *testing.T) {
	b := taskqmem.New()
	ctx := context.Background()

	id := enqueue(t, b, "q")
	if err := b.SetMeta(ctx, id, map[string]any{"a": 1}); err != nil {
		t.Fatalf("SetMeta failed: %v", err)
	}
	if err := b.SetMeta(ctx, id, map[string]any{"b": 2}); err != nil {
		t.Fatalf("SetMeta failed: %v", err)
	}

	info, _ := b.GetJob(ctx, id)
	if info.Meta["a"] != 1 || info.Meta["b"] != 2 {
		t.Fatalf("meta = %v, want both keys", info.Meta)
	}
}

func TestGetJob_Unknown(t *testing.T) {
	b := taskqmem.New()

	if _, err := b.GetJob(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for unknown job ID")
	}
}

func TestClosedBackend_RejectsEnqueue(t *testing.T) {
	b := taskqmem.New()
	_ = b.Close()

	if _, err := b.Enqueue(context.Background(), taskq.Job{FuncRef: "tasks.noop", Queue: "q"}); err == nil {
		t.Fatal("expected error after Close")
	}
	if err := b.Ping(context.Background()); err == nil {
		t.Fatal("expected Ping to fail after Close")
	}
}
