package service

import (
	"context"
	"time"
)

// RunCleanup purges expired records every interval until ctx is cancelled.
// Expired records are already invisible to Confirm; this only frees memory.
func (s *Service) RunCleanup(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := s.store.DeleteExpired(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "failed to purge expired confirmations", "error", err)
				continue
			}
			if n > 0 {
				s.logger.DebugContext(ctx, "purged expired confirmations", "count", n)
			}
		}
	}
}
