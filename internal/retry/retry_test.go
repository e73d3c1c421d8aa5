package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/arodionov/vacpipe/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDo_SucceedsOnFirstAttempt(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), discardLogger(), 2, 10*time.Millisecond, "test", func(_ context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("expected ok, got %q", got)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), discardLogger(), 2, time.Millisecond, "test", func(_ context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, &model.HTTPError{StatusCode: 503}
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_NonRetryableReturnsImmediately(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), discardLogger(), 3, time.Millisecond, "test", func(_ context.Context) (int, error) {
		calls++
		return 0, &model.HTTPError{StatusCode: 404}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call for 404, got %d", calls)
	}
}

func TestDo_ExhaustsRetriesReturnsLastError(t *testing.T) {
	calls := 0
	wantErr := errors.New("connection refused")
	_, err := Do(context.Background(), discardLogger(), 2, time.Millisecond, "test", func(_ context.Context) (int, error) {
		calls++
		return 0, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected last error %v, got %v", wantErr, err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls (1 + 2 retries), got %d", calls)
	}
}

func TestDo_ContextCancelledNoRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Do(ctx, discardLogger(), 3, time.Second, "test", func(_ context.Context) (int, error) {
		calls++
		return 0, &model.HTTPError{StatusCode: 500}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call before cancellation stops retries, got %d", calls)
	}
}
