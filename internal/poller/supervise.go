package poller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
)

// DefaultCooldown is the wait before a crashed task is restarted.
const DefaultCooldown = 60 * time.Second

// Supervise runs task until ctx is cancelled, restarting it after cooldown
// whenever it panics, fails or returns early. It returns nil once ctx is
// done; a crash never escapes to the caller.
//
// onRestart, if non-nil, is called before each restart.
func Supervise(ctx context.Context, name string, task func(context.Context) error, cooldown time.Duration, logger *slog.Logger, onRestart func()) error {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if logger == nil {
		logger = slog.Default()
	}

	for {
		err := runSafe(ctx, task, logger)
		if ctx.Err() != nil {
			return nil
		}

		if err != nil {
			logger.Error("task crashed", "task", name, "error", err, "restart_in", cooldown.String())
		} else {
			logger.Error("task exited unexpectedly", "task", name, "restart_in", cooldown.String())
		}

		timer := time.NewTimer(cooldown)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		if onRestart != nil {
			onRestart()
		}
		logger.Info("restarting task", "task", name)
	}
}

// runSafe calls task with panic recovery. A panic is logged with its stack
// trace under a correlation ID and returned as an error carrying the ID.
func runSafe(ctx context.Context, task func(context.Context) error, logger *slog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			logger.Error("task panic",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("panic (correlation_id: %s)", correlationID)
		}
	}()
	return task(ctx)
}
