package ratelimit

import (
	"net/http"
	"sync"
	"time"
)

// DefaultThrottleInterval is the minimum spacing between call starts in
// serialized pacing mode.
const DefaultThrottleInterval = 5 * time.Second

// Throttle is an http.RoundTripper that serializes every outbound call and
// enforces a minimum spacing between the start of one call and the start of
// the next, regardless of which pipeline stage issues it. It trades
// throughput for a hard ceiling on request rate.
type Throttle struct {
	next     http.RoundTripper
	interval time.Duration

	mu        sync.Mutex
	lastStart time.Time

	sleep func(d time.Duration) // test seam
}

// NewThrottle wraps next with a strict global serializer.
// Parameters:
//   - interval: minimum spacing between call starts; <= 0 uses DefaultThrottleInterval.
//   - next: transport performing the actual request; nil uses http.DefaultTransport.
// Returns:
//   - *Throttle: wrapping transport.
func NewThrottle(interval time.Duration, next http.RoundTripper) *Throttle {
	if interval <= 0 {
		interval = DefaultThrottleInterval
	}
	if next == nil {
		next = http.DefaultTransport
	}
	return &Throttle{
		next:     next,
		interval: interval,
		sleep:    time.Sleep,
	}
}

// RoundTrip implements http.RoundTripper. The lock is held across the
// request so at most one call is ever in flight.
func (t *Throttle) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.lastStart.IsZero() {
		if wait := t.interval - time.Since(t.lastStart); wait > 0 {
			t.sleep(wait)
		}
	}
	t.lastStart = time.Now()

	return t.next.RoundTrip(req)
}
