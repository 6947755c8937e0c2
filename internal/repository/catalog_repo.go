package repository

import (
	"context"
	"errors"
	"time"

	"github.com/wingsum93/dropit-fetcher/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CatalogRepository handles department, product, and snapshot rows.
type CatalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a new CatalogRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *CatalogRepository: repository instance bound to db.
func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// UpsertDepartments creates or refreshes department rows keyed by upstream ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - departments: rows to write.
// Returns:
//   - error: non-nil if the write fails.
func (r *CatalogRepository) UpsertDepartments(ctx context.Context, departments []domain.Department) error {
	if len(departments) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"parent_id", "name", "path", "store_id", "count", "canonical_url", "updated_at",
		}),
	}).Create(&departments).Error
}

// CreateProductsIfNotExist inserts bare product stubs for item IDs that have
// never been seen. Existing rows are left untouched.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ids: upstream item IDs.
// Returns:
//   - error: non-nil if the write fails.
func (r *CatalogRepository) CreateProductsIfNotExist(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]bool, len(ids))
	stubs := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			stubs = append(stubs, domain.Product{ID: id})
		}
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&stubs).Error
}

// UpsertProduct creates or updates one product row from a fetched detail.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - product: product row to write.
// Returns:
//   - error: non-nil if the write fails.
func (r *CatalogRepository) UpsertProduct(ctx context.Context, product *domain.Product) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"store_id", "department_id", "name", "unit_price", "popularity",
			"upc", "canonical_url", "remote_updated_at", "updated_at",
		}),
	}).Create(product).Error
}

// UpsertSnapshot creates or replaces the snapshot payload for a key.
// Re-applying the same detail never creates a duplicate row.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - snapshot: snapshot row to write.
// Returns:
//   - error: non-nil if the write fails.
func (r *CatalogRepository) UpsertSnapshot(ctx context.Context, snapshot *domain.ProductSnapshot) error {
	snapshot.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "snapshot_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(snapshot).Error
}

// FindSnapshotByKey retrieves the snapshot for a key.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - key: snapshot key (item ID as text).
// Returns:
//   - *domain.ProductSnapshot: snapshot row if found.
//   - error: domain.ErrNotFound when absent.
func (r *CatalogRepository) FindSnapshotByKey(ctx context.Context, key string) (*domain.ProductSnapshot, error) {
	var snapshot domain.ProductSnapshot
	err := r.db.WithContext(ctx).First(&snapshot, "snapshot_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// CountSnapshots returns the number of stored snapshots.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - int64: snapshot row count.
//   - error: non-nil if the query fails.
func (r *CatalogRepository) CountSnapshots(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.ProductSnapshot{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
