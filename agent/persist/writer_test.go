package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	statex "github.com/autoosone/auto-state/agent/state"
)

func TestWriterRunsJobsInOrder(t *testing.T) {
	t.Parallel()

	w, err := NewWriter(NewMemoryGateway())
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })

	var mu sync.Mutex
	var got []int
	for i := 0; i < 10; i++ {
		i := i
		ok := w.Enqueue(Job{Op: "test", Run: func(context.Context, Gateway) error {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			return nil
		}})
		if !ok {
			t.Fatalf("Enqueue(%d) rejected", i)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := w.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 10 {
		t.Fatalf("ran %d jobs, want 10", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("job order = %v", got)
		}
	}
}

func TestWriterDropsWhenFull(t *testing.T) {
	t.Parallel()

	w, err := NewWriter(NewMemoryGateway(), WithQueueSize(1))
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })

	release := make(chan struct{})
	started := make(chan struct{})
	w.Enqueue(Job{Op: "block", Run: func(context.Context, Gateway) error {
		close(started)
		<-release
		return nil
	}})
	<-started

	if !w.Enqueue(Job{Op: "queued", Run: func(context.Context, Gateway) error { return nil }}) {
		t.Fatal("second job should fit the queue")
	}
	if w.Enqueue(Job{Op: "dropped", Run: func(context.Context, Gateway) error { return nil }}) {
		t.Fatal("third job should be dropped")
	}
	close(release)
}

func TestWriterAppliesTimeout(t *testing.T) {
	t.Parallel()

	w, err := NewWriter(NewMemoryGateway(), WithWriteTimeout(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })

	result := make(chan error, 1)
	w.Enqueue(Job{Op: "stuck", Run: func(ctx context.Context, _ Gateway) error {
		<-ctx.Done()
		result <- ctx.Err()
		return ctx.Err()
	}})

	select {
	case err := <-result:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("job error = %v, want deadline exceeded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("job was not cancelled by the write timeout")
	}
}

func TestWriterCloseDrainsAndRejects(t *testing.T) {
	t.Parallel()

	gw := NewMemoryGateway()
	w, err := NewWriter(gw)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}

	w.Enqueue(Job{Op: "create", Run: func(ctx context.Context, gw Gateway) error {
		_, err := gw.CreateSession(ctx, "session-w", statex.StageContactInfo, time.Now())
		return err
	}})
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, ok := gw.Session(1); !ok {
		t.Fatal("queued job did not run before Close returned")
	}

	if w.Enqueue(Job{Op: "late", Run: func(context.Context, Gateway) error { return nil }}) {
		t.Fatal("Enqueue after Close should be rejected")
	}
	if err := w.Flush(context.Background()); !errors.Is(err, ErrWriterClosed) {
		t.Fatalf("Flush() error = %v, want ErrWriterClosed", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}
