package ratelimit

import (
	"net/http"
	"sync"
	"testing"
	"time"
)

type countingTransport struct {
	mu       sync.Mutex
	inFlight int
	maxSeen  int
	calls    int
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	c.inFlight++
	if c.inFlight > c.maxSeen {
		c.maxSeen = c.inFlight
	}
	c.calls++
	c.mu.Unlock()

	time.Sleep(time.Millisecond)

	c.mu.Lock()
	c.inFlight--
	c.mu.Unlock()

	return resp(200, nil), nil
}

func TestThrottleSerializesCalls(t *testing.T) {
	inner := &countingTransport{}
	th := NewThrottle(time.Millisecond, inner)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := th.RoundTrip(get(t)); err != nil {
				t.Errorf("RoundTrip failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if inner.calls != 8 {
		t.Errorf("calls = %d, want 8", inner.calls)
	}
	if inner.maxSeen != 1 {
		t.Errorf("max in-flight = %d, want 1", inner.maxSeen)
	}
}

func TestThrottleEnforcesSpacing(t *testing.T) {
	inner := &countingTransport{}
	th := NewThrottle(50*time.Millisecond, inner)

	var slept []time.Duration
	th.sleep = func(d time.Duration) { slept = append(slept, d) }

	for i := 0; i < 3; i++ {
		if _, err := th.RoundTrip(get(t)); err != nil {
			t.Fatalf("RoundTrip failed: %v", err)
		}
	}

	// First call never waits; the back-to-back followups do.
	if len(slept) != 2 {
		t.Fatalf("slept %d times, want 2", len(slept))
	}
	for i, d := range slept {
		if d <= 0 || d > 50*time.Millisecond {
			t.Errorf("sleep[%d] = %v, want within (0, 50ms]", i, d)
		}
	}
}

func TestThrottleDefaultInterval(t *testing.T) {
	th := NewThrottle(0, nil)
	if th.interval != DefaultThrottleInterval {
		t.Errorf("interval = %v, want %v", th.interval, DefaultThrottleInterval)
	}
}
