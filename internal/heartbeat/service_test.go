package heartbeat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewService_EmptySpecDisables(t *testing.T) {
	s, err := NewService("", func(context.Context) error { return nil }, discardLogger())
	if err != nil || s != nil {
		t.Fatalf("expected nil service, got %v, %v", s, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Start(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("nil service Start returned %v", err)
	}
}

func TestNewService_InvalidSpec(t *testing.T) {
	if _, err := NewService("every now and then", nil, discardLogger()); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestNewService_Schedule(t *testing.T) {
	s, err := NewService("@every 30m", func(context.Context) error { return nil }, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	if got := s.Next(base); !got.Equal(base.Add(30 * time.Minute)) {
		t.Errorf("Next() = %v", got)
	}

	s, err = NewService("0 9 * * *", func(context.Context) error { return nil }, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Next(base); got.Hour() != 9 || got.Day() != 2 {
		t.Errorf("Next() = %v, want 09:00 the next day", got)
	}
}

func TestCheck_ErrorsAreNotFatal(t *testing.T) {
	var calls atomic.Int32
	s, err := NewService("@every 1h", func(ctx context.Context) error {
		calls.Add(1)
		if _, ok := ctx.Deadline(); !ok {
			t.Error("probe should run with a deadline")
		}
		return errors.New("mastodon: 401")
	}, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	s.check(context.Background())
	s.check(context.Background())
	if calls.Load() != 2 {
		t.Errorf("expected 2 probes, got %d", calls.Load())
	}
}

func TestStart_FiresOnSchedule(t *testing.T) {
	var calls atomic.Int32
	s, err := NewService("@every 1s", func(context.Context) error {
		calls.Add(1)
		return nil
	}, discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()
	if err := s.Start(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Start returned %v", err)
	}
	if calls.Load() < 1 {
		t.Error("probe never ran")
	}
}
