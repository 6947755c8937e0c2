package domain

import "time"

// SyncStatus represents the lifecycle state of a harvesting attempt.
// Values include SyncStatusPending, SyncStatusRunning, SyncStatusDone,
// SyncStatusRetry, and SyncStatusDead.
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "PENDING"
	SyncStatusRunning SyncStatus = "RUNNING"
	SyncStatusDone    SyncStatus = "DONE"
	SyncStatusRetry   SyncStatus = "RETRY"
	// SyncStatusDead marks a sync abandoned by an operator. The fetch
	// engine never sets it.
	SyncStatusDead SyncStatus = "DEAD"
)

// Sync represents one end-to-end catalog harvesting attempt.
// A sync is created once, re-entered on RETRY, and terminal on DONE or DEAD.
type Sync struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Attempts   int        `gorm:"default:0" json:"attempts"`
	Status     SyncStatus `gorm:"type:text;index;default:PENDING" json:"status"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Sync.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (Sync) TableName() string {
	return "syncs"
}
