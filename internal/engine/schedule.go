package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// ParseSchedule validates a standard five-field cron spec or a descriptor
// such as "@every 30s".
func ParseSchedule(spec string) (cron.Schedule, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return schedule, nil
}

// RunScheduled invokes job on spec until ctx is cancelled. A run that is still
// going when the next tick arrives causes that tick to be skipped. When
// runNow is set the job also runs once immediately.
func RunScheduled(ctx context.Context, spec string, runNow bool, job func(context.Context)) error {
	schedule, err := ParseSchedule(spec)
	if err != nil {
		return err
	}

	logger := cron.VerbosePrintfLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelDebug))
	c := cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))

	entryID := c.Schedule(schedule, cron.FuncJob(func() { job(ctx) }))
	slog.Info("scheduler started", "schedule", spec, "entry_id", entryID)

	if runNow {
		job(ctx)
	}

	c.Start()
	<-ctx.Done()

	stopped := c.Stop()
	<-stopped.Done()
	slog.Info("scheduler stopped", "schedule", spec)
	return nil
}
