package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// tickTimeout bounds one reconciliation run.
const tickTimeout = 50 * time.Second

type Scheduler struct {
	cron       *cron.Cron
	reconciler *Reconciler
	log        *slog.Logger
}

// New registers the reconciliation job on spec, evaluated in loc. Runs never
// overlap; a tick that fires while the previous one is busy is skipped.
func New(spec string, loc *time.Location, r *Reconciler, log *slog.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	logger := cronLogger{log}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(
				cron.Recover(logger),
				cron.SkipIfStillRunning(logger),
			),
		),
		reconciler: r,
		log:        log,
	}

	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
	defer cancel()

	// errors are already logged per scan
	_, _ = s.reconciler.Tick(ctx)
}

func (s *Scheduler) Start() {
	s.log.Info("scheduler started", "entries", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop waits for a running tick to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out")
	}
}

// cronLogger routes cron's own messages into slog.
type cronLogger struct{ log *slog.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
