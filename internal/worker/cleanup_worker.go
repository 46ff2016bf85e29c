package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/token-service/internal/service"
)

// StartCleanupWorker periodically prunes revocation records for tokens that
// have expired on their own. It stops when ctx is cancelled.
func StartCleanupWorker(ctx context.Context, tokens *service.TokenService, interval time.Duration, logger *zap.Logger) {
	if tokens == nil || interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				count, err := tokens.Cleanup(ctx)
				if err != nil {
					logger.Warn("revocation cleanup failed", zap.Error(err))
					continue
				}
				if count > 0 {
					logger.Info("pruned expired revocation records", zap.Int64("count", count))
				}
			}
		}
	}()
}
