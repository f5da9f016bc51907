package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"voiceforge/internal/services"
)

func TestWrapTagsMarkerAndDetail(t *testing.T) {
	cause := errors.New("connection refused")
	err := services.Wrap(services.ErrProvider, "synth", "request", "post failed", cause)
	if !errors.Is(err, services.ErrProvider) {
		t.Fatalf("expected provider marker, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	for _, want := range []string{"synth", "request", "post failed", "connection refused"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("message %q missing %q", err.Error(), want)
		}
	}
}

func TestWrapDefaultsToProviderMarker(t *testing.T) {
	err := services.Wrap(nil, "synth", "request", "", nil)
	if !errors.Is(err, services.ErrProvider) {
		t.Fatalf("expected provider marker default, got %v", err)
	}
}

func TestIsRequestError(t *testing.T) {
	if !services.IsRequestError(services.Wrap(services.ErrValidation, "voice", "parse", "empty config", nil)) {
		t.Fatal("validation errors belong to the caller")
	}
	if services.IsRequestError(services.Wrap(services.ErrProvider, "synth", "request", "boom", nil)) {
		t.Fatal("provider errors fail the job, not the request")
	}
}

func TestPollRunsFirstStepImmediately(t *testing.T) {
	calls := 0
	err := services.Poll(context.Background(), time.Hour, time.Hour, func(context.Context) (bool, error) {
		calls++
		return true, nil
	})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single immediate step, got %d", calls)
	}
}

func TestPollDeadlineReturnsTimeout(t *testing.T) {
	err := services.Poll(context.Background(), time.Millisecond, 10*time.Millisecond, func(context.Context) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout marker, got %v", err)
	}
}

func TestPollPropagatesStepError(t *testing.T) {
	boom := errors.New("boom")
	err := services.Poll(context.Background(), time.Millisecond, time.Second, func(context.Context) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected step error, got %v", err)
	}
}

func TestPollStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := services.Poll(ctx, 50*time.Millisecond, time.Minute, func(context.Context) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}
