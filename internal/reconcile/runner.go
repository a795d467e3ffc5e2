package reconcile

import (
	"context"
	"log/slog"
	"time"
)

// Job is one tick of a scheduled task. Poller and Scanner both satisfy it.
type Job interface {
	Tick(ctx context.Context) error
}

// Run drives a job on a fixed interval until ctx is canceled. Tick errors
// are logged and do not stop the loop; the next tick starts fresh.
func Run(ctx context.Context, name string, interval time.Duration, job Job, logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := job.Tick(ctx); err != nil && ctx.Err() == nil {
				if logger != nil {
					logger.WarnContext(ctx, "scheduled job tick failed", "job", name, "error", err)
				}
			}
		}
	}
}
