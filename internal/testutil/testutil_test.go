package testutil

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestGoroutineTest(t *testing.T) {
	var n atomic.Int32

	gt := NewGoroutineTest(t)
	for i := 0; i < 5; i++ {
		gt.Go(func() error {
			n.Add(1)
			return nil
		})
	}
	gt.Wait()

	if n.Load() != 5 {
		t.Errorf("expected 5 runs, got %d", n.Load())
	}
}

func TestGoroutineTestWithContext(t *testing.T) {
	gt := NewGoroutineTestWithTimeout(t, 5*time.Second)
	defer gt.Wait()

	gt.GoWithContext(func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
			return nil
		}
	})
}

func TestWithTimeout(t *testing.T) {
	if err := WithTimeout(time.Second, func() error { return nil }); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	boom := errors.New("boom")
	if err := WithTimeout(time.Second, func() error { return boom }); err != boom {
		t.Errorf("expected fn error, got %v", err)
	}

	err := WithTimeout(10*time.Millisecond, func() error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})
	if err == nil {
		t.Error("expected timeout")
	}
}

func TestEventually(t *testing.T) {
	var n atomic.Int32
	err := Eventually(time.Second, time.Millisecond, func() bool {
		return n.Add(1) >= 3
	})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := Eventually(20*time.Millisecond, 5*time.Millisecond, func() bool { return false }); err == nil {
		t.Error("expected condition failure")
	}
}

func TestClock(t *testing.T) {
	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	c := NewClock(start)

	c.Advance(90 * time.Second)
	if got := c.Now(); !got.Equal(start.Add(90 * time.Second)) {
		t.Errorf("unexpected time %v", got)
	}

	c.Set(start)
	if !c.Now().Equal(start) {
		t.Errorf("Set did not apply: %v", c.Now())
	}
}
