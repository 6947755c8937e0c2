package repository

import (
	"context"
	"errors"

	"github.com/wingsum93/dropit-fetcher/internal/domain"
	"gorm.io/gorm"
)

// SyncRepository handles sync ledger rows.
type SyncRepository struct {
	db *gorm.DB
}

// NewSyncRepository creates a new SyncRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *SyncRepository: repository instance bound to db.
func NewSyncRepository(db *gorm.DB) *SyncRepository {
	return &SyncRepository{db: db}
}

// FindRunning returns the most recent sync in RUNNING state.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - *domain.Sync: highest-id running sync, or nil when none exists.
//   - error: non-nil if the query fails.
func (r *SyncRepository) FindRunning(ctx context.Context) (*domain.Sync, error) {
	var sync domain.Sync
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.SyncStatusRunning).
		Order("id DESC").
		First(&sync).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sync, nil
}

// Create inserts a fresh sync row in PENDING state with zero attempts.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - *domain.Sync: created sync with assigned ID.
//   - error: non-nil if the insert fails.
func (r *SyncRepository) Create(ctx context.Context) (*domain.Sync, error) {
	sync := &domain.Sync{Status: domain.SyncStatusPending}
	if err := r.db.WithContext(ctx).Create(sync).Error; err != nil {
		return nil, err
	}
	return sync, nil
}

// Save replaces the mutable fields (attempts, status, finished_at) of an
// existing sync identified by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - sync: sync row carrying the target ID and new field values.
// Returns:
//   - error: domain.ErrNotFound when the ID no longer exists; other
//     non-nil values on query failure.
func (r *SyncRepository) Save(ctx context.Context, sync *domain.Sync) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Sync{}).
		Where("id = ?", sync.ID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return domain.ErrNotFound
	}
	return r.db.WithContext(ctx).Model(&domain.Sync{}).
		Where("id = ?", sync.ID).
		Updates(map[string]interface{}{
			"attempts":    sync.Attempts,
			"status":      sync.Status,
			"finished_at": sync.FinishedAt,
		}).Error
}

// List returns syncs ordered newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum number of rows; <= 0 means no limit.
// Returns:
//   - []domain.Sync: matching rows.
//   - error: non-nil if the query fails.
func (r *SyncRepository) List(ctx context.Context, limit int) ([]domain.Sync, error) {
	var syncs []domain.Sync
	query := r.db.WithContext(ctx).Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&syncs).Error; err != nil {
		return nil, err
	}
	return syncs, nil
}

// GetByID retrieves one sync row.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: sync ID.
// Returns:
//   - *domain.Sync: sync row if found.
//   - error: domain.ErrNotFound when absent.
func (r *SyncRepository) GetByID(ctx context.Context, id uint) (*domain.Sync, error) {
	var sync domain.Sync
	err := r.db.WithContext(ctx).First(&sync, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sync, nil
}
