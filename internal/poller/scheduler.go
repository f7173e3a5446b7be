package poller

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Scheduler runs a supervised goroutine per [Loop].
type Scheduler struct {
	loops    []*Loop
	cooldown time.Duration
	recorder Recorder
	logger   *slog.Logger
}

// NewScheduler creates a scheduler for loops. A zero cooldown uses
// [DefaultCooldown].
func NewScheduler(loops []*Loop, cooldown time.Duration, recorder Recorder, logger *slog.Logger) *Scheduler {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		loops:    loops,
		cooldown: cooldown,
		recorder: recorder,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled and every loop has returned. All loops
// poll immediately on start.
func (s *Scheduler) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, loop := range s.loops {
		g.Go(func() error {
			return Supervise(gctx, loop.URL(), loop.Run, s.cooldown, s.logger, func() {
				s.recorder.LoopRestarted(loop.URL())
			})
		})
	}

	err := g.Wait()
	for _, loop := range s.loops {
		loop.client.Close()
	}
	return err
}
