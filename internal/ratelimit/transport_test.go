package ratelimit

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

// stubTransport returns canned responses in sequence, repeating the last one.
type stubTransport struct {
	responses []*http.Response
	calls     int
}

func (s *stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	idx := s.calls
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	s.calls++
	return s.responses[idx], nil
}

func resp(status int, headers map[string]string) *http.Response {
	r := &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader("{}")),
	}
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	return r
}

func newTestTransport(t *testing.T, cfg *Config, next http.RoundTripper) (*Transport, *[]time.Duration) {
	t.Helper()
	tr, err := NewTransport(cfg, next)
	if err != nil {
		t.Fatalf("NewTransport failed: %v", err)
	}
	var sleeps []time.Duration
	tr.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	// Midpoint of the jitter window, so waits are deterministic.
	tr.randn = func(n int64) int64 { return n / 2 }
	return tr, &sleeps
}

func get(t *testing.T) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, "http://upstream.test/products", nil)
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	return req
}

func TestPassThroughOnSuccess(t *testing.T) {
	stub := &stubTransport{responses: []*http.Response{resp(200, nil)}}
	tr, sleeps := newTestTransport(t, nil, stub)

	r, err := tr.RoundTrip(get(t))
	if err != nil {
		t.Fatalf("RoundTrip failed: %v", err)
	}
	if r.StatusCode != 200 {
		t.Errorf("status = %d, want 200", r.StatusCode)
	}
	if stub.calls != 1 {
		t.Errorf("calls = %d, want 1", stub.calls)
	}
	if len(*sleeps) != 0 {
		t.Errorf("slept %d times, want 0", len(*sleeps))
	}
}

func TestRetriesThrottledStatuses(t *testing.T) {
	testCases := []struct {
		name   string
		status int
	}{
		{name: "standard 429", status: 429},
		{name: "upstream quirk 400", status: 400},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubTransport{responses: []*http.Response{
				resp(tc.status, nil),
				resp(tc.status, nil),
				resp(200, nil),
			}}
			tr, sleeps := newTestTransport(t, nil, stub)

			r, err := tr.RoundTrip(get(t))
			if err != nil {
				t.Fatalf("RoundTrip failed: %v", err)
			}
			if r.StatusCode != 200 {
				t.Errorf("status = %d, want 200", r.StatusCode)
			}
			if stub.calls != 3 {
				t.Errorf("calls = %d, want 3", stub.calls)
			}
			if len(*sleeps) != 2 {
				t.Errorf("slept %d times, want 2", len(*sleeps))
			}
		})
	}
}

func TestGivesUpAfterMaxRetries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRetries = 3
	stub := &stubTransport{responses: []*http.Response{resp(429, nil)}}
	tr, sleeps := newTestTransport(t, cfg, stub)

	r, err := tr.RoundTrip(get(t))
	if err != nil {
		t.Fatalf("RoundTrip failed: %v", err)
	}
	// The final throttled response surfaces unmodified.
	if r.StatusCode != 429 {
		t.Errorf("status = %d, want 429", r.StatusCode)
	}
	if stub.calls != 4 {
		t.Errorf("calls = %d, want 4 (initial + 3 retries)", stub.calls)
	}
	if len(*sleeps) != 3 {
		t.Errorf("slept %d times, want 3", len(*sleeps))
	}
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRetries = 8
	cfg.BaseDelay = 500 * time.Millisecond
	cfg.MaxDelay = 2 * time.Second
	cfg.JitterRatio = 0 // exact waits
	stub := &stubTransport{responses: []*http.Response{resp(429, nil)}}
	tr, sleeps := newTestTransport(t, cfg, stub)

	if _, err := tr.RoundTrip(get(t)); err != nil {
		t.Fatalf("RoundTrip failed: %v", err)
	}

	// 500ms, 1s, 2s, then capped at 2s.
	want := []time.Duration{
		500 * time.Millisecond,
		1000 * time.Millisecond,
		2000 * time.Millisecond,
		2000 * time.Millisecond,
	}
	if len(*sleeps) < len(want) {
		t.Fatalf("slept %d times, want at least %d", len(*sleeps), len(want))
	}
	for i, w := range want {
		if (*sleeps)[i] != w {
			t.Errorf("sleep[%d] = %v, want %v", i, (*sleeps)[i], w)
		}
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRetries = 1
	cfg.JitterRatio = 0
	stub := &stubTransport{responses: []*http.Response{
		resp(429, map[string]string{"Retry-After": "7"}),
		resp(200, nil),
	}}
	tr, sleeps := newTestTransport(t, cfg, stub)

	if _, err := tr.RoundTrip(get(t)); err != nil {
		t.Fatalf("RoundTrip failed: %v", err)
	}
	if len(*sleeps) != 1 {
		t.Fatalf("slept %d times, want 1", len(*sleeps))
	}
	if (*sleeps)[0] != 7*time.Second {
		t.Errorf("wait = %v, want 7s", (*sleeps)[0])
	}
}

func TestRetryAfterHTTPDate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRetries = 1
	cfg.JitterRatio = 0
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	at := now.Add(10 * time.Second)
	stub := &stubTransport{responses: []*http.Response{
		resp(429, map[string]string{"Retry-After": at.Format(http.TimeFormat)}),
		resp(200, nil),
	}}
	tr, sleeps := newTestTransport(t, cfg, stub)
	tr.now = func() time.Time { return now }

	if _, err := tr.RoundTrip(get(t)); err != nil {
		t.Fatalf("RoundTrip failed: %v", err)
	}
	if len(*sleeps) != 1 {
		t.Fatalf("slept %d times, want 1", len(*sleeps))
	}
	if (*sleeps)[0] != 10*time.Second {
		t.Errorf("wait = %v, want 10s", (*sleeps)[0])
	}
}

func TestRetryAfterGarbageFallsBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRetries = 1
	cfg.BaseDelay = 500 * time.Millisecond
	cfg.JitterRatio = 0
	stub := &stubTransport{responses: []*http.Response{
		resp(429, map[string]string{"Retry-After": "soon-ish"}),
		resp(200, nil),
	}}
	tr, sleeps := newTestTransport(t, cfg, stub)

	if _, err := tr.RoundTrip(get(t)); err != nil {
		t.Fatalf("RoundTrip failed: %v", err)
	}
	if (*sleeps)[0] != 500*time.Millisecond {
		t.Errorf("wait = %v, want base delay 500ms", (*sleeps)[0])
	}
}

func TestRetryAfterPastDateWaitsZero(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRetries = 1
	cfg.JitterRatio = 0
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	at := now.Add(-30 * time.Second)
	stub := &stubTransport{responses: []*http.Response{
		resp(429, map[string]string{"Retry-After": at.Format(http.TimeFormat)}),
		resp(200, nil),
	}}
	tr, sleeps := newTestTransport(t, cfg, stub)
	tr.now = func() time.Time { return now }

	if _, err := tr.RoundTrip(get(t)); err != nil {
		t.Fatalf("RoundTrip failed: %v", err)
	}
	if (*sleeps)[0] != 0 {
		t.Errorf("wait = %v, want 0", (*sleeps)[0])
	}
}

func TestJitterWindow(t *testing.T) {
	tr, err := NewTransport(nil, nil)
	if err != nil {
		t.Fatalf("NewTransport failed: %v", err)
	}

	// base 1000ms, jitter 0.2: every wait lands in [800ms, 1200ms).
	r := resp(429, nil)
	for i := 0; i < 1000; i++ {
		wait := tr.computeWait(r, time.Second)
		if wait < 800*time.Millisecond || wait >= 1200*time.Millisecond {
			t.Fatalf("wait %v outside [800ms, 1200ms)", wait)
		}
	}
}

func TestConfigValidation(t *testing.T) {
	testCases := []struct {
		name string
		mod  func(*Config)
	}{
		{name: "negative retries", mod: func(c *Config) { c.MaxRetries = -1 }},
		{name: "jitter above one", mod: func(c *Config) { c.JitterRatio = 1.5 }},
		{name: "negative jitter", mod: func(c *Config) { c.JitterRatio = -0.1 }},
		{name: "multiplier below one", mod: func(c *Config) { c.BackoffMultiplier = 0.5 }},
		{name: "no status codes", mod: func(c *Config) { c.StatusCodes = nil }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mod(cfg)
			if _, err := NewTransport(cfg, nil); err == nil {
				t.Error("expected configuration error, got nil")
			}
		})
	}
}

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestAbandonedResponsesAreDrained(t *testing.T) {
	bodies := []*closeRecorder{
		{Reader: strings.NewReader("slow down")},
		{Reader: strings.NewReader("ok")},
	}
	stub := &stubTransport{responses: []*http.Response{
		{StatusCode: 429, Header: http.Header{}, Body: bodies[0]},
		{StatusCode: 200, Header: http.Header{}, Body: bodies[1]},
	}}
	tr, _ := newTestTransport(t, nil, stub)

	r, err := tr.RoundTrip(get(t))
	if err != nil {
		t.Fatalf("RoundTrip failed: %v", err)
	}
	if !bodies[0].closed {
		t.Error("throttled response body not closed before retry")
	}
	if bodies[1].closed {
		t.Error("returned response body must stay open for the caller")
	}
	if r.StatusCode != 200 {
		t.Errorf("status = %d, want 200", r.StatusCode)
	}
}

func TestCanceledContextStopsRetrying(t *testing.T) {
	stub := &stubTransport{responses: []*http.Response{resp(429, nil)}}
	tr, err := NewTransport(nil, stub)
	if err != nil {
		t.Fatalf("NewTransport failed: %v", err)
	}
	tr.randn = func(n int64) int64 { return 0 }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := get(t).WithContext(ctx)

	if _, err := tr.RoundTrip(req); err == nil {
		t.Error("expected context error, got nil")
	}
}
