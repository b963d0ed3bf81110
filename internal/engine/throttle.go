package engine

import (
	"time"

	"golang.org/x/time/rate"
)

// LoadThrottle enforces a minimum spacing between full rolling-window
// reloads. Date navigation can fire many rapid change notifications (drag
// scrolling through weeks); without this, every frame would issue a
// multi-month store query. Per-day cache-miss queries bypass the throttle —
// they are individually cheap and already TTL-bounded.
type LoadThrottle struct {
	limiter *rate.Limiter
}

// NewLoadThrottle creates a throttle allowing one load per minInterval.
func NewLoadThrottle(minInterval time.Duration) *LoadThrottle {
	return &LoadThrottle{limiter: rate.NewLimiter(rate.Every(minInterval), 1)}
}

// ShouldLoad reports whether a load is permitted at now without consuming
// the slot.
func (t *LoadThrottle) ShouldLoad(now time.Time) bool {
	return t.limiter.TokensAt(now) >= 1
}

// RecordLoad consumes the load slot at now.
func (t *LoadThrottle) RecordLoad(now time.Time) {
	t.limiter.AllowN(now, 1)
}
