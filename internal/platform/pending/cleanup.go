package pending

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Purger is implemented by stores that can drop expired changes in bulk.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// StartCleanup runs a background goroutine that periodically removes expired
// changes. It stops when the context is cancelled.
func StartCleanup(ctx context.Context, p Purger, interval time.Duration, logger zerolog.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := p.PurgeExpired(ctx)
				if err != nil {
					logger.Warn().Err(err).Msg("purge expired pending changes")
					continue
				}
				if n > 0 {
					logger.Debug().Int64("removed", n).Msg("purged expired pending changes")
				}
			}
		}
	}()
}
