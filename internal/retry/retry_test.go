package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoReturnsFirstSuccessWithoutFurtherCalls(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), 3, time.Millisecond, func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "ok" {
		t.Fatalf("unexpected value: %q", v)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestDoStopsAfterBudget(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	_, err := Do(context.Background(), 3, time.Millisecond, func(ctx context.Context) (int, error) {
		calls++
		return 0, boom
	})
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped last error, got %v", err)
	}
}

func TestDoRecoversMidBudget(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), 3, time.Millisecond, func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 || calls != 3 {
		t.Fatalf("expected success on third call, got v=%d calls=%d", v, calls)
	}
}

func TestDoWaitsFixedDelayBetweenAttempts(t *testing.T) {
	const delay = 30 * time.Millisecond
	start := time.Now()
	_, err := Do(context.Background(), 3, delay, func(ctx context.Context) (int, error) {
		return 0, errors.New("always")
	})
	elapsed := time.Since(start)
	if err == nil {
		t.Fatalf("expected error")
	}
	// two waits between three attempts
	if elapsed < 2*delay {
		t.Fatalf("expected at least %v elapsed, got %v", 2*delay, elapsed)
	}
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, 3, time.Hour, func(ctx context.Context) (int, error) {
			calls++
			return 0, errors.New("fail")
		})
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Do did not return after cancellation")
	}
	if calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", calls)
	}
}
