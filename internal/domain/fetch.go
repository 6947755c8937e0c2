package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// PacingMode selects how outbound calls are paced during a run.
type PacingMode string

const (
	// PacingConcurrent is the default stage-bounded concurrent pipeline.
	PacingConcurrent PacingMode = "concurrent"
	// PacingSerialized forces at most one outbound call in flight with a
	// fixed minimum spacing between call starts.
	PacingSerialized PacingMode = "serialized"
)

// FetchOptions controls one harvesting run.
type FetchOptions struct {
	DeptConcurrency   int
	DetailConcurrency int
	// Resume narrows a resumed session to its unfinished department jobs.
	// When false every department job is re-visited. The session row
	// itself is always reused; Resume never forks a second sync.
	Resume bool
	Since  *time.Time
	DryRun bool
}

// Validate rejects option combinations that would misconfigure the pipeline.
// Parameters: none.
// Returns:
//   - error: non-nil when a bound is non-positive.
func (o FetchOptions) Validate() error {
	if o.DeptConcurrency <= 0 {
		return fmt.Errorf("deptConcurrency must be > 0, got %d", o.DeptConcurrency)
	}
	if o.DetailConcurrency <= 0 {
		return fmt.Errorf("detailConcurrency must be > 0, got %d", o.DetailConcurrency)
	}
	return nil
}

// ItemSummary is the lightweight listing record flowing between pipeline stages.
type ItemSummary struct {
	ID    int64
	Count int
}

// ItemDetail carries the full upstream payload for one item. Raw holds the
// exact response body for snapshot persistence.
type ItemDetail struct {
	ID            int64
	StoreID       int
	Name          string
	Status        string
	Category      string
	UnitPrice     float64
	Popularity    int
	UPC           string
	CanonicalURL  string
	DepartmentIDs []int
	Raw           json.RawMessage
}

// FetchReport is the terminal output of one harvesting run. It is built
// incrementally from atomic counters and immutable once returned.
type FetchReport struct {
	Departments int   `json:"departments"`
	Items       int   `json:"items"`
	Details     int   `json:"details"`
	Failed      int   `json:"failed"`
	DurationMs  int64 `json:"duration_ms"`
}
