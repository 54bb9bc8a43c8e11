package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestRunNow(t *testing.T) {
	r := NewRunner(zerolog.Nop())
	ran := 0
	r.Register("demo", 0, func(ctx context.Context) error {
		ran++
		return nil
	})

	if err := r.RunNow(context.Background(), "demo"); err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if ran != 1 {
		t.Errorf("job ran %d times, want 1", ran)
	}

	statuses := r.Statuses()
	if len(statuses) != 1 {
		t.Fatalf("got %d statuses, want 1", len(statuses))
	}
	if statuses[0].Runs != 1 || statuses[0].LastRun == nil {
		t.Errorf("status not updated: %+v", statuses[0])
	}
}

func TestRunNowUnknownJob(t *testing.T) {
	r := NewRunner(zerolog.Nop())
	if err := r.RunNow(context.Background(), "nope"); err == nil {
		t.Error("expected error for unknown job")
	}
}

func TestRunJobRecordsError(t *testing.T) {
	r := NewRunner(zerolog.Nop())
	r.Register("failing", 0, func(ctx context.Context) error {
		return errors.New("boom")
	})

	if err := r.RunNow(context.Background(), "failing"); err == nil {
		t.Fatal("expected job error")
	}
	if got := r.Statuses()[0].LastError; got != "boom" {
		t.Errorf("last error = %q, want boom", got)
	}
}

func TestRunJobSurvivesPanic(t *testing.T) {
	r := NewRunner(zerolog.Nop())
	r.Register("panicky", 0, func(ctx context.Context) error {
		panic("kaboom")
	})

	err := r.RunNow(context.Background(), "panicky")
	if err == nil {
		t.Fatal("expected error from panicking job")
	}
	if r.Statuses()[0].LastError == "" {
		t.Error("panic not recorded in status")
	}
}
