package taskqpg_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/taskrelay/taskrelay/pkg/taskq"
	"github.com/taskrelay/taskrelay/pkg/taskq/taskqpg"
)

// testSetup requires a live Postgres; set TASKQ_POSTGRES_DSN to run these
// tests. Each test uses a fresh queue name so runs do not interfere.
func testSetup(t *testing.T) (*taskqpg.PGBackend, string) {
	t.Helper()

	dsn := os.Getenv("TASKQ_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TASKQ_POSTGRES_DSN not set")
	}

	backend, err := taskqpg.Connect(context.Background(), dsn,
		taskqpg.WithMaxOpenConns(4),
		taskqpg.WithMaxIdleConns(2),
		taskqpg.WithConnMaxLifetime(time.Minute),
	)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { _ = backend.Close() })

	return backend, "test-" + uuid.New().String()
}

func TestEnqueueAndGetJob(t *testing.T) {
	backend, queue := testSetup(t)
	ctx := context.Background()

	id, err := backend.Enqueue(ctx, taskq.Job{
		FuncRef: "tasks.report",
		Args:    []any{"2026-08", float64(3)},
		Kwargs:  map[string]any{"format": "csv"},
		Queue:   queue,
		Timeout: 30 * time.Minute,
	})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	info, err := backend.GetJob(ctx, id)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if info.Status != taskq.StatusQueued {
		t.Errorf("status = %q, want queued", info.Status)
	}
	if info.Timeout != 30*time.Minute {
		t.Errorf("timeout = %v, want 30m", info.Timeout)
	}
	if len(info.Args) != 2 || info.Kwargs["format"] != "csv" {
		t.Errorf("payload not round-tripped: %+v", info)
	}
}

func TestDequeueClaimsOldestFirst(t *testing.T) {
	backend, queue := testSetup(t)
	ctx := context.Background()

	first, err := backend.Enqueue(ctx, taskq.Job{FuncRef: "tasks.noop", Queue: queue, Timeout: time.Hour})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if _, err := backend.Enqueue(ctx, taskq.Job{FuncRef: "tasks.noop", Queue: queue, Timeout: time.Hour}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	job, err := backend.Dequeue(ctx, []string{queue}, 2*time.Second)
	if err != nil || job == nil {
		t.Fatalf("Dequeue failed: job=%v err=%v", job, err)
	}
	if job.ID != first {
		t.Errorf("dequeued %s, want oldest job %s", job.ID, first)
	}
	if job.Status != taskq.StatusStarted || job.StartedAt == nil {
		t.Errorf("claim did not mark job started: %+v", job)
	}
}

func TestCompleteAndFail_TerminalGuard(t *testing.T) {
	backend, queue := testSetup(t)
	ctx := context.Background()

	id, err := backend.Enqueue(ctx, taskq.Job{FuncRef: "tasks.noop", Queue: queue, Timeout: time.Hour})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	if err := backend.Cancel(ctx, id); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if err := backend.Complete(ctx, id, []byte(`"late"`)); err != nil {
		t.Fatalf("Complete on terminal job should be a no-op, got %v", err)
	}

	info, err := backend.GetJob(ctx, id)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if info.Status != taskq.StatusCanceled {
		t.Fatalf("status = %q, canceled job was overwritten", info.Status)
	}
}

func TestSetMeta_MergesJSONB(t *testing.T) {
	backend, queue := testSetup(t)
	ctx := context.Background()

	id, err := backend.Enqueue(ctx, taskq.Job{FuncRef: "tasks.noop", Queue: queue, Timeout: time.Hour})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	if err := backend.SetMeta(ctx, id, map[string]any{"step": "extract"}); err != nil {
		t.Fatalf("SetMeta failed: %v", err)
	}
	if err := backend.SetMeta(ctx, id, map[string]any{"progress": 0.25}); err != nil {
		t.Fatalf("SetMeta failed: %v", err)
	}

	info, err := backend.GetJob(ctx, id)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if info.Meta["step"] != "extract" || info.Meta["progress"] != 0.25 {
		t.Fatalf("meta = %v, want both keys", info.Meta)
	}
}

func TestGetJob_Unknown(t *testing.T) {
	backend, _ := testSetup(t)

	if _, err := backend.GetJob(context.Background(), taskq.JobID(uuid.New().String())); err == nil {
		t.Fatal("expected error for unknown job ID")
	}
}
