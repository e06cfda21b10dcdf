// Package feeder implements the three tick-driven workers (C5): People-Count,
// Sensor-Data, and Bus-Position. Each owns its own in-process simulated-world
// state and talks to the rest of the system only through the X1 store and
// X2 event bus adapters, per spec.md §5's shared-resource policy.
//
// The tick-loop shape (ticker + select, drain-then-exit on shutdown) is
// grounded on FabianUB-minibarcelona3d's apps/poller/cmd/poller/main.go.
package feeder

import (
	"context"
	"log"
	"time"
)

// RunLoop calls fn once per interval until shutdown is closed. A tick that
// is already running is allowed to finish — only the decision to start the
// *next* tick is gated on shutdown — matching spec.md §5: "partial ticks
// are not started" but the current one drains.
func RunLoop(shutdown <-chan struct{}, interval time.Duration, fn func(ctx context.Context, now time.Time) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-shutdown:
			return
		case now := <-ticker.C:
			select {
			case <-shutdown:
				return
			default:
			}
			// fn runs on a fresh background context, not the shutdown
			// signal, so an in-flight tick is never aborted mid-call —
			// only its own per-call timeouts bound it.
			if err := fn(context.Background(), now); err != nil {
				log.Printf("[feeder] tick error: %v", err)
			}
		}
	}
}
