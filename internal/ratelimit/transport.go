// Package ratelimit implements the throttle-aware retry policy applied to
// every outbound grocery API call. The upstream signals rate limiting with
// HTTP 400 as well as the standard 429, so both are treated as throttling
// by default.
package ratelimit

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Config holds retry policy settings.
type Config struct {
	MaxRetries        int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	JitterRatio       float64
	RespectRetryAfter bool
	BackoffMultiplier float64
	StatusCodes       []int
}

// DefaultConfig returns the policy defaults tuned for the freshop upstream.
// Parameters: none.
// Returns:
//   - *Config: default retry policy configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:        8,
		BaseDelay:         500 * time.Millisecond,
		MaxDelay:          30 * time.Second,
		JitterRatio:       0.2,
		RespectRetryAfter: true,
		BackoffMultiplier: 2.0,
		// 400 is deliberate: this upstream answers Bad Request when it
		// actually means "slow down".
		StatusCodes: []int{http.StatusTooManyRequests, http.StatusBadRequest},
	}
}

func (c *Config) validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("maxRetries must be >= 0, got %d", c.MaxRetries)
	}
	if c.JitterRatio < 0 || c.JitterRatio > 1 {
		return fmt.Errorf("jitterRatio must be within [0,1], got %v", c.JitterRatio)
	}
	if c.BackoffMultiplier < 1.0 {
		return fmt.Errorf("backoffMultiplier must be >= 1.0, got %v", c.BackoffMultiplier)
	}
	if len(c.StatusCodes) == 0 {
		return fmt.Errorf("statusCodes must not be empty")
	}
	return nil
}

// Transport is an http.RoundTripper that waits and retries when the
// response carries a throttling status. Non-throttle responses pass
// through untouched; after MaxRetries the last throttled response is
// returned for the caller to surface.
type Transport struct {
	next  http.RoundTripper
	cfg   Config
	codes map[int]bool

	// test seams
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
	randn func(n int64) int64
}

// NewTransport wraps next with the retry policy.
// Parameters:
//   - cfg: policy configuration; nil uses DefaultConfig.
//   - next: transport performing the actual request; nil uses http.DefaultTransport.
// Returns:
//   - *Transport: wrapping transport.
//   - error: non-nil when the configuration is invalid.
func NewTransport(cfg *Config, next http.RoundTripper) (*Transport, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if next == nil {
		next = http.DefaultTransport
	}
	codes := make(map[int]bool, len(cfg.StatusCodes))
	for _, c := range cfg.StatusCodes {
		codes[c] = true
	}
	return &Transport{
		next:  next,
		cfg:   *cfg,
		codes: codes,
		sleep: sleepCtx,
		now:   time.Now,
		randn: rand.Int63n,
	}, nil
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	attempt := 0
	fallback := t.cfg.BaseDelay

	for {
		resp, err := t.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if !t.codes[resp.StatusCode] {
			return resp, nil
		}

		if attempt >= t.cfg.MaxRetries {
			// Give up: the caller handles the throttled response.
			return resp, nil
		}

		wait := t.computeWait(resp, fallback)

		// Release the abandoned response before sleeping.
		drainBody(resp)

		if err := t.sleep(req.Context(), wait); err != nil {
			return nil, err
		}

		if req, err = rewindRequest(req); err != nil {
			return nil, err
		}

		fallback = time.Duration(float64(fallback) * t.cfg.BackoffMultiplier)
		if fallback > t.cfg.MaxDelay {
			fallback = t.cfg.MaxDelay
		}
		attempt++
	}
}

// computeWait derives the sleep duration for one throttled response: the
// Retry-After hint when present and honored, the fallback delay otherwise,
// with uniform jitter in [base*(1-j), base*(1+j)).
func (t *Transport) computeWait(resp *http.Response, fallback time.Duration) time.Duration {
	base := fallback.Milliseconds()
	if t.cfg.RespectRetryAfter {
		if ms, ok := t.parseRetryAfter(resp.Header.Get("Retry-After")); ok {
			base = ms
		}
	}

	j := t.cfg.JitterRatio
	low := int64(float64(base) * (1.0 - j))
	if low < 0 {
		low = 0
	}
	high := int64(float64(base) * (1.0 + j))
	if high < low+1 {
		high = low + 1
	}
	ms := low + t.randn(high-low)
	return time.Duration(ms) * time.Millisecond
}

// parseRetryAfter accepts either an integer number of seconds or an
// HTTP-date. A malformed value is treated as absent, never as an error.
func (t *Transport) parseRetryAfter(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}

	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		ms := secs * 1000
		if ms < 0 {
			ms = 0
		}
		return ms, true
	}

	if at, err := http.ParseTime(raw); err == nil {
		ms := at.Sub(t.now()).Milliseconds()
		if ms < 0 {
			ms = 0
		}
		return ms, true
	}

	return 0, false
}

func drainBody(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	_ = resp.Body.Close()
}

// rewindRequest prepares a request for re-sending. Bodyless requests pass
// through; requests with a body need GetBody so the payload can be replayed.
func rewindRequest(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("ratelimit: cannot retry request with unreplayable body")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
