package schedule_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/flemzord/mnemo/internal/schedule"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_StartStop(t *testing.T) {
	t.Parallel()

	s := schedule.NewScheduler(discard())
	s.Register(schedule.Job{
		Name: "cleanup",
		Spec: "0 3 * * *",
		Run:  func(context.Context) error { return nil },
	})
	s.Register(schedule.Job{
		Name: "suggestions",
		Spec: "*/15 * * * *",
		Run:  func(context.Context) error { return nil },
	})

	if err := s.Start(); err != nil {
		t.Fatalf("Start: unexpected error: %v", err)
	}
	s.Stop()
}

func TestScheduler_InvalidSpec(t *testing.T) {
	t.Parallel()

	s := schedule.NewScheduler(discard())
	s.Register(schedule.Job{
		Name: "broken",
		Spec: "not a cron expression",
		Run:  func(context.Context) error { return nil },
	})

	err := s.Start()
	if err == nil {
		t.Fatal("Start with invalid spec succeeded, want error")
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Errorf("error %q does not name the failing job", err)
	}
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	t.Parallel()

	s := schedule.NewScheduler(discard())
	s.Stop()
}
