package eventloop_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"evseg/internal/platform/eventloop"
)

func TestLoopRunsPostedCallbacksInOrder(t *testing.T) {
	t.Parallel()
	loop := eventloop.New()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = loop.Run(ctx) }()

	var got []int
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		loop.Post(func() {
			got = append(got, i)
			if i == 4 {
				close(done)
			}
		})
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("callbacks did not run")
	}
	cancel()
	<-loop.Done()
	for i, v := range got {
		if v != i {
			t.Fatalf("out of order: %v", got)
		}
	}
}

func TestLoopStoppedTimerNeverFires(t *testing.T) {
	t.Parallel()
	loop := eventloop.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	var mu sync.Mutex
	fired := false
	timer := loop.AfterFunc(20*time.Millisecond, func() {
		mu.Lock()
		fired = true
		mu.Unlock()
	})
	if !timer.Stop() {
		t.Fatalf("expected first stop to succeed")
	}
	if timer.Stop() {
		t.Fatalf("expected second stop to report false")
	}
	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if fired {
		t.Fatalf("stopped timer fired")
	}
}

func TestLoopTimerFiresOnLoop(t *testing.T) {
	t.Parallel()
	loop := eventloop.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	fired := make(chan struct{})
	loop.AfterFunc(5*time.Millisecond, func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatalf("timer did not fire")
	}
}

func TestPostAfterStopReportsFalse(t *testing.T) {
	t.Parallel()
	loop := eventloop.New()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = loop.Run(ctx) }()
	cancel()
	<-loop.Done()
	if loop.Post(func() {}) {
		t.Fatalf("expected post on stopped loop to fail")
	}
}
