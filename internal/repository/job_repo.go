package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/wingsum93/dropit-fetcher/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JobRepository handles job ledger rows.
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new JobRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *JobRepository: repository instance bound to db.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// InsertIfNotExist inserts each job unless a row with the same
// (sync_id, dedupe_key) already exists. Existing rows keep their status
// and timestamps untouched. Any over-long dedupe key rejects the whole
// batch before a single row is written.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - jobs: batch to insert.
// Returns:
//   - error: non-nil on validation or query failure.
func (r *JobRepository) InsertIfNotExist(ctx context.Context, jobs []domain.Job) error {
	if err := validateDedupeKeys(jobs); err != nil {
		return err
	}
	if len(jobs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sync_id"}, {Name: "dedupe_key"}},
		DoNothing: true,
	}).Create(&jobs).Error
}

// FindByDedupeKey returns the highest-id job matching (syncID, key).
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - syncID: owning sync.
//   - key: dedupe key.
// Returns:
//   - *domain.Job: matching job, or nil when none exists.
//   - error: non-nil if the query fails.
func (r *JobRepository) FindByDedupeKey(ctx context.Context, syncID uint, key string) (*domain.Job, error) {
	var job domain.Job
	err := r.db.WithContext(ctx).
		Where("sync_id = ? AND dedupe_key = ?", syncID, key).
		Order("id DESC").
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// FindByType returns jobs of one type for a sync, ordered by id ascending.
// An empty status list matches every status.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - syncID: owning sync.
//   - jobType: job type filter.
//   - statuses: optional status filter.
// Returns:
//   - []domain.Job: matching jobs in id order.
//   - error: non-nil if the query fails.
func (r *JobRepository) FindByType(ctx context.Context, syncID uint, jobType domain.JobType, statuses ...domain.JobStatus) ([]domain.Job, error) {
	var jobs []domain.Job
	query := r.db.WithContext(ctx).
		Where("sync_id = ? AND job_type = ?", syncID, jobType)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	if err := query.Order("id ASC").Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// ListBySync returns every job of a sync, ordered by id ascending.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - syncID: owning sync.
// Returns:
//   - []domain.Job: jobs in id order.
//   - error: non-nil if the query fails.
func (r *JobRepository) ListBySync(ctx context.Context, syncID uint) ([]domain.Job, error) {
	var jobs []domain.Job
	if err := r.db.WithContext(ctx).
		Where("sync_id = ?", syncID).
		Order("id ASC").
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// UpdateStatus sets the status of one job.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job ID.
//   - status: new status.
// Returns:
//   - error: domain.ErrNotFound when the ID does not exist.
func (r *JobRepository) UpdateStatus(ctx context.Context, id uint, status domain.JobStatus) error {
	return r.UpdateStatusBulk(ctx, []uint{id}, status)
}

// UpdateStatusBulk sets the status of many jobs all-or-nothing: if any
// target ID is missing the transaction rolls back and nothing is applied.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ids: job IDs to update.
//   - status: new status.
// Returns:
//   - error: domain.ErrNotFound when any ID does not exist.
func (r *JobRepository) UpdateStatusBulk(ctx context.Context, ids []uint, status domain.JobStatus) error {
	if len(ids) == 0 {
		return nil
	}
	unique := uniqueIDs(ids)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Job{}).
			Where("id IN ?", unique).
			Count(&count).Error; err != nil {
			return err
		}
		if count != int64(len(unique)) {
			return domain.ErrNotFound
		}
		return tx.Model(&domain.Job{}).
			Where("id IN ?", unique).
			Update("status", status).Error
	})
}

func validateDedupeKeys(jobs []domain.Job) error {
	for _, job := range jobs {
		if len(job.DedupeKey) > domain.MaxDedupeKeyLen {
			return fmt.Errorf("dedupe key %q exceeds %d characters", job.DedupeKey, domain.MaxDedupeKeyLen)
		}
	}
	return nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
