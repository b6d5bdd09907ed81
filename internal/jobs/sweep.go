package jobs

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper runs periodic maintenance ticks outside the request path, such
// as auto-completing abandoned clock-ins.
type Sweeper struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// NewSweeper builds a cron scheduler with no ticks; register them with
// AddTick.
func NewSweeper(logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{cron: cron.New(), logger: logger}
}

// AddTick registers fn to run on spec's schedule. spec is a standard 5-field
// cron expression (e.g. "*/5 * * * *" for every five minutes) or a
// descriptor such as "@every 1m". Errors from fn are logged; a single
// failing tick never stops the scheduler.
func (s *Sweeper) AddTick(spec, name string, fn func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		if err := fn(context.Background()); err != nil {
			s.logger.Error("sweep tick failed", zap.String("tick", name), zap.Error(err))
		}
	})
	return err
}

// Start begins running registered ticks in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop blocks until any in-flight tick completes, then halts scheduling.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
