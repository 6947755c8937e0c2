package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// JobStatus represents the status of a fetch job.
// Values include JobStatusPending, JobStatusInProgress, JobStatusSuccess,
// and JobStatusError.
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	JobStatusSuccess    JobStatus = "SUCCESS"
	JobStatusError      JobStatus = "ERROR"
)

// JobType identifies the unit of fetch work a job represents.
type JobType string

const (
	// JobTypeFetchDepartments is a singleton marker: the department list
	// has been retrieved for the owning sync.
	JobTypeFetchDepartments JobType = "FETCH_DEPARTMENTS"
	// JobTypeFetchDepartmentProducts covers listing the items of one department.
	JobTypeFetchDepartmentProducts JobType = "FETCH_DEPARTMENT_PRODUCTS"
	// JobTypeFetchProduct is reserved for per-item granularity.
	JobTypeFetchProduct JobType = "FETCH_PRODUCT"
)

// MaxDedupeKeyLen is the hard upper bound on a job dedupe key.
const MaxDedupeKeyLen = 40

// AllDepartmentsDedupeKey marks that the department list was retrieved
// for a sync.
const AllDepartmentsDedupeKey = "all_departments"

const departmentDedupePrefix = "dept:"

// Job represents one deduplicated unit of fetch work scoped to a sync.
// (sync_id, dedupe_key) is unique; re-inserting an existing pair is a no-op.
type Job struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SyncID    uint      `gorm:"not null;uniqueIndex:idx_jobs_sync_dedupe" json:"sync_id"`
	JobType   JobType   `gorm:"type:text;not null;index" json:"job_type"`
	Status    JobStatus `gorm:"type:text;index;default:PENDING" json:"status"`
	DedupeKey string    `gorm:"size:40;not null;uniqueIndex:idx_jobs_sync_dedupe" json:"dedupe_key"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Job.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (Job) TableName() string {
	return "jobs"
}

// DepartmentDedupeKey builds the dedupe key for a department products job.
// Parameters:
//   - departmentID: upstream department identifier.
// Returns:
//   - string: key in "dept:<id>" form.
func DepartmentDedupeKey(departmentID int) string {
	return fmt.Sprintf("%s%d", departmentDedupePrefix, departmentID)
}

// ParseDepartmentDedupeKey extracts the department ID from a "dept:<id>" key.
// Parameters:
//   - key: dedupe key to parse.
// Returns:
//   - int: parsed department ID.
//   - bool: false when the key is not a parsable department key.
func ParseDepartmentDedupeKey(key string) (int, bool) {
	suffix, ok := strings.CutPrefix(key, departmentDedupePrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, false
	}
	return id, true
}
