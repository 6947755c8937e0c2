// Package storage defines the durable persistence port consumed by the
// fetch engine, with a GORM-backed implementation (sqlite or postgres) and
// an in-memory fake for tests and dry experimentation.
package storage

import (
	"context"

	"github.com/wingsum93/dropit-fetcher/internal/domain"
)

// ErrNotFound re-exports the domain sentinel so callers holding only a
// Storage can match lookup misses without importing domain.
var ErrNotFound = domain.ErrNotFound

// Storage is the persistence port for syncs, jobs, and catalog data. All
// writes are safe under concurrent callers: inserts are idempotent and
// updates target rows by primary key.
type Storage interface {
	// FindRunningSync returns the highest-id sync in RUNNING state, or nil.
	FindRunningSync(ctx context.Context) (*domain.Sync, error)

	// CreateSync inserts a fresh PENDING sync with zero attempts.
	CreateSync(ctx context.Context) (*domain.Sync, error)

	// SaveSync replaces the mutable fields of an existing sync by ID.
	// Returns domain.ErrNotFound when the ID no longer exists.
	SaveSync(ctx context.Context, sync *domain.Sync) error

	// GetSync retrieves one sync. Returns domain.ErrNotFound when absent.
	GetSync(ctx context.Context, id uint) (*domain.Sync, error)

	// ListSyncs returns syncs newest first, capped at limit when > 0.
	ListSyncs(ctx context.Context, limit int) ([]domain.Sync, error)

	// InsertJobsIfNotExist idempotently inserts jobs; rows whose
	// (sync_id, dedupe_key) already exist are left untouched. An over-long
	// dedupe key rejects the whole batch before any I/O.
	InsertJobsIfNotExist(ctx context.Context, jobs []domain.Job) error

	// FindJobByDedupeKey returns the highest-id match, or nil.
	FindJobByDedupeKey(ctx context.Context, syncID uint, key string) (*domain.Job, error)

	// FindJobsByType returns jobs of one type ordered by id ascending,
	// optionally filtered to the given statuses.
	FindJobsByType(ctx context.Context, syncID uint, jobType domain.JobType, statuses ...domain.JobStatus) ([]domain.Job, error)

	// ListJobsBySync returns every job of a sync ordered by id ascending.
	ListJobsBySync(ctx context.Context, syncID uint) ([]domain.Job, error)

	// UpdateJobStatus sets one job's status. Returns domain.ErrNotFound
	// when the ID does not exist.
	UpdateJobStatus(ctx context.Context, id uint, status domain.JobStatus) error

	// UpdateJobStatusBulk sets many jobs' status all-or-nothing; a single
	// missing ID fails the whole batch with domain.ErrNotFound.
	UpdateJobStatusBulk(ctx context.Context, ids []uint, status domain.JobStatus) error

	// UpsertDepartments creates or refreshes department rows.
	UpsertDepartments(ctx context.Context, departments []domain.Department) error

	// CreateProductsIfNotExist inserts bare product stubs for unseen IDs.
	CreateProductsIfNotExist(ctx context.Context, ids []int64) error

	// UpsertProduct creates or updates one product row.
	UpsertProduct(ctx context.Context, product *domain.Product) error

	// UpsertSnapshot creates or replaces a snapshot payload by key.
	UpsertSnapshot(ctx context.Context, snapshot *domain.ProductSnapshot) error

	// FindSnapshotByKey retrieves one snapshot. Returns domain.ErrNotFound
	// when absent.
	FindSnapshotByKey(ctx context.Context, key string) (*domain.ProductSnapshot, error)

	// CountSnapshots returns the number of stored snapshots.
	CountSnapshots(ctx context.Context) (int64, error)

	// Close releases any held connections.
	Close() error
}
