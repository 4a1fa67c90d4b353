package stores

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweep periodically deletes expired KV entries.
// It blocks until the context is cancelled.
func Sweep(ctx context.Context, store *KVStore, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.SweepExpired(ctx)
			if err != nil {
				log.Debug().Err(err).Msg("kv sweep failed")
				continue
			}
			if n > 0 {
				log.Debug().Int("removed", n).Msg("kv sweep")
			}
		}
	}
}
