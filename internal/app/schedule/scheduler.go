// Package schedule runs the recurring due-reminder job.
package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/nguyenvh/custodesk/internal/services"
	"github.com/nguyenvh/custodesk/internal/worktime"
	"github.com/nguyenvh/custodesk/pkg/logger"
)

// defaultSpec fires the batch at 08:00 local time every day.
const defaultSpec = "0 8 * * *"

// Runner drives the daily reminder batch through a cron scheduler. The
// schedule is evaluated in the bank's local zone (UTC+7) so the job fires
// at the start of the working day regardless of host timezone.
type Runner struct {
	reminders *services.ReminderService
	cron      *cron.Cron
	spec      string
	now       func() time.Time
	log       *zap.Logger
}

// Option customises the Runner.
type Option func(*Runner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(r *Runner) {
		if c != nil {
			r.cron = c
		}
	}
}

// WithSchedule overrides the cron specification for the daily batch.
func WithSchedule(spec string) Option {
	return func(r *Runner) {
		if spec != "" {
			r.spec = spec
		}
	}
}

// WithNow overrides the clock passed to the due evaluation.
func WithNow(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRunner constructs a Runner with sensible defaults.
func NewRunner(reminders *services.ReminderService, opts ...Option) (*Runner, error) {
	if reminders == nil {
		return nil, errors.New("schedule: reminder service is required")
	}

	r := &Runner{
		reminders: reminders,
		spec:      defaultSpec,
		now:       time.Now,
		log:       logger.WithModule("schedule"),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.cron == nil {
		r.cron = cron.New(
			cron.WithLocation(worktime.Location),
			cron.WithLogger(cron.DiscardLogger),
		)
	}
	return r, nil
}

// Start registers the batch job and launches the scheduler.
func (r *Runner) Start() error {
	if _, err := r.cron.AddFunc(r.spec, func() {
		if err := r.RunOnce(context.Background()); err != nil {
			r.log.Warn("scheduled reminder batch failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	r.cron.Start()
	r.log.Info("reminder schedule started", zap.String("spec", r.spec))
	return nil
}

// Stop halts the scheduler, waiting for a running job to complete.
func (r *Runner) Stop() context.Context {
	if r.cron == nil {
		return context.Background()
	}
	return r.cron.Stop()
}

// RunOnce executes one due-reminder batch immediately.
func (r *Runner) RunOnce(ctx context.Context) error {
	summary, err := r.reminders.SendDue(ctx, r.now().In(worktime.Location))
	if err != nil {
		return err
	}

	r.log.Info("reminder batch finished",
		zap.Int("sent", summary.Sent),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", len(summary.Skipped)))
	return nil
}
