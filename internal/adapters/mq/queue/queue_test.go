package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/cragboard/internal/domain/model"
)

func event(climber, route string) model.ResultEvent {
	return model.ResultEvent{
		Climber: climber,
		Route:   route,
		Fields:  model.ResultFields{TotalAttempts: 1},
	}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if c := q.Cap(); c != 2 {
		t.Errorf("expected capacity 2, got %d", c)
	}

	if !q.Enqueue(ctx, event("Alex", "Route 1")) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	dctx, cancel := context.WithCancel(ctx)
	defer cancel()
	got := <-q.Dequeue(dctx)
	if got.Climber != "Alex" || got.Route != "Route 1" {
		t.Errorf("expected Alex/Route 1, got %s/%s", got.Climber, got.Route)
	}
}

func TestInMemoryQueue_DropsWhenFull(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, event("Alex", "Route 1")) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, event("Alex", "Route 2")) {
		t.Error("expected enqueue to succeed")
	}

	start := time.Now()
	if q.Enqueue(ctx, event("Alex", "Route 3")) {
		t.Error("expected enqueue to fail when full")
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("expected a full queue to reject without blocking")
	}

	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if q.Enqueue(ctx, event("Alex", "Route 1")) {
		t.Error("expected enqueue to fail with a cancelled context")
	}
}

func TestInMemoryQueue_PreservesOrder(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < 5; i++ {
		if !q.Enqueue(ctx, event(fmt.Sprintf("climber-%d", i), "Route 1")) {
			t.Fatalf("enqueue %d failed", i)
		}
	}
	ch := q.Dequeue(ctx)
	for i := 0; i < 5; i++ {
		got := <-ch
		if want := fmt.Sprintf("climber-%d", i); got.Climber != want {
			t.Errorf("position %d: expected %s, got %s", i, want, got.Climber)
		}
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	producers := 10
	perProducer := 100

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				for !q.Enqueue(ctx, event(fmt.Sprintf("climber-%d", id), fmt.Sprintf("Route %d", j))) {
					time.Sleep(time.Millisecond)
				}
			}
		}(i)
	}

	consumed := make(chan struct{}, producers*perProducer)
	for i := 0; i < 4; i++ {
		go func() {
			for range q.Dequeue(ctx) {
				consumed <- struct{}{}
			}
		}()
	}

	wg.Wait()
	timeout := time.After(2 * time.Second)
	for n := 0; n < producers*perProducer; n++ {
		select {
		case <-consumed:
		case <-timeout:
			t.Fatalf("consumed %d of %d events", n, producers*perProducer)
		}
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if !q.Enqueue(ctx, event("Alex", "Route 1")) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, event("Sam", "Route 1")) {
		t.Error("expected enqueue to succeed")
	}

	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if q.Enqueue(ctx, event("Kim", "Route 1")) {
		t.Error("expected enqueue to fail after closing")
	}

	// queued events drain before the channel closes
	var drained []string
	timeout := time.After(time.Second)
	ch := q.Dequeue(ctx)
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				if len(drained) != 2 {
					t.Errorf("expected 2 drained events, got %v", drained)
				}
				if err := q.Close(); err != nil {
					t.Errorf("expected second close to succeed, got error: %v", err)
				}
				return
			}
			drained = append(drained, e.Climber)
		case <-timeout:
			t.Fatal("expected dequeue channel to be closed within timeout")
		}
	}
}
