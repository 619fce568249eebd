package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"ideavote/internal/platform/config"
)

func TestWorkerRunsQueuedJobs(t *testing.T) {
	s := New(nil, config.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	done := make(chan string, 2)
	s.Enqueue("ok", func(context.Context) (any, error) {
		done <- "ok"
		return nil, nil
	})
	s.Enqueue("failing", func(context.Context) (any, error) {
		done <- "failing"
		return nil, errors.New("boom")
	})
	for _, want := range []string{"ok", "failing"} {
		select {
		case got := <-done:
			if got != want {
				t.Fatalf("expected %s, got %s", want, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("job %s did not run", want)
		}
	}

	cancel()
	s.Wait()
}

func TestGoWaitsForLoops(t *testing.T) {
	s := New(nil, config.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	var stopped atomic.Int32
	for i := 0; i < 3; i++ {
		s.Go(ctx, "loop", func(ctx context.Context) {
			<-ctx.Done()
			stopped.Add(1)
		})
	}
	cancel()
	s.Wait()
	if stopped.Load() != 3 {
		t.Fatalf("expected 3 loops stopped, got %d", stopped.Load())
	}
}

func TestRunNowReturnsDetails(t *testing.T) {
	s := New(nil, config.Config{})
	details, err := s.RunNow(context.Background(), "inline", func(context.Context) (any, error) {
		return map[string]int{"deleted": 2}, nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if details.(map[string]int)["deleted"] != 2 {
		t.Fatalf("unexpected details %v", details)
	}
}
