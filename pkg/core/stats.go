// pkg/core/stats.go
package core

import "time"

// TickStats summarizes one processed projection pass.
type TickStats struct {
	Tick     uint64
	Time     time.Time
	Duration time.Duration

	Targets      int // registered targets considered this pass
	OnScreen     int
	OffScreen    int
	BehindCamera int
	Culled       int // beyond the visible distance
	Hidden       int // off-screen with indicators disabled
	Pruned       int // unregistered because the target became invalid
	Dropped      int // wanted a marker but the pool had none

	MarkersActive int
	PoolIdle      int
}
