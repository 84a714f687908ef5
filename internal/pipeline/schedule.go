package pipeline

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}

// ValidateSchedule reports whether spec is a standard five field cron
// expression (descriptors such as @daily are accepted).
func ValidateSchedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// Schedule runs job on every tick of spec until ctx is cancelled. A tick that
// fires while the previous run is still going is skipped. Schedule blocks and
// waits for a running job before returning.
func Schedule(ctx context.Context, spec string, job func(context.Context)) error {
	if err := ValidateSchedule(spec); err != nil {
		return err
	}

	logger := cronLogger{}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(
		cron.Recover(logger),
		cron.SkipIfStillRunning(logger),
	))
	if _, err := c.AddFunc(spec, func() { job(ctx) }); err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	c.Start()
	for _, e := range c.Entries() {
		log.Info().Str("schedule", spec).Time("next", e.Next).Msg("daily pipeline scheduled")
	}

	<-ctx.Done()
	<-c.Stop().Done()
	log.Info().Msg("scheduler stopped")
	return nil
}
