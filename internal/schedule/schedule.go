// Package schedule runs the engine's periodic background passes (history
// and pattern cleanup, auto-organization, suggestion refresh) on cron
// expressions.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Job is one periodic background task.
type Job struct {
	// Name identifies the job in logs.
	Name string

	// Spec is a 5-field cron expression (e.g. "*/15 * * * *").
	Spec string

	// Run executes one pass. Errors are logged, never fatal.
	Run func(ctx context.Context) error
}

// Scheduler executes registered jobs on their cron schedules. A job whose
// previous tick is still running skips the next tick instead of piling up.
type Scheduler struct {
	mu     sync.Mutex
	cron   *cron.Cron
	jobs   []Job
	logger *slog.Logger
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler. Jobs must be registered before Start.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{logger: logger}
}

// Register adds a job. Must be called before Start.
func (s *Scheduler) Register(j Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, j)
}

// Start begins executing registered jobs. Returns an error if any job has an
// invalid schedule expression.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	s.cron = cron.New(cron.WithParser(parser))

	for _, j := range s.jobs {
		job := j
		var running sync.Mutex

		_, err := s.cron.AddFunc(job.Spec, func() {
			// TryLock is atomic: if the previous tick is still running,
			// skip this one.
			if !running.TryLock() {
				s.logger.Warn("schedule: job still running, skipping tick", "job", job.Name)
				return
			}
			defer running.Unlock()

			if err := job.Run(ctx); err != nil {
				s.logger.Error("schedule: job failed", "job", job.Name, "error", err)
			}
		})
		if err != nil {
			cancel()
			return fmt.Errorf("schedule: invalid schedule %q for job %q: %w", job.Spec, job.Name, err)
		}
	}

	s.cron.Start()
	s.logger.Info("schedule: started", "jobs", len(s.jobs))
	return nil
}

// Stop shuts the scheduler down, waiting for in-flight jobs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.cron = nil
		s.logger.Info("schedule: stopped")
	}
}
