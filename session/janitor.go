package session

import (
	"context"
	"time"
)

// Run sweeps idle sessions every interval until ctx is done. Each reclaimed
// session is passed to onReclaim, which may be nil.
func (r *Registry) Run(ctx context.Context, interval, maxIdle time.Duration, onReclaim func(Record)) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, rec := range r.Sweep(maxIdle) {
				if onReclaim != nil {
					onReclaim(rec)
				}
			}
		}
	}
}
