package storage

import (
	"context"

	"github.com/wingsum93/dropit-fetcher/internal/domain"
	"github.com/wingsum93/dropit-fetcher/internal/repository"
	"gorm.io/gorm"
)

// GormStorage implements Storage on top of the GORM repositories.
type GormStorage struct {
	db      *gorm.DB
	syncs   *repository.SyncRepository
	jobs    *repository.JobRepository
	catalog *repository.CatalogRepository
}

// NewGormStorage creates a Storage backed by the given database handle.
// Parameters:
//   - db: initialized GORM handle (see repository.InitDB).
// Returns:
//   - *GormStorage: storage instance bound to db.
func NewGormStorage(db *gorm.DB) *GormStorage {
	return &GormStorage{
		db:      db,
		syncs:   repository.NewSyncRepository(db),
		jobs:    repository.NewJobRepository(db),
		catalog: repository.NewCatalogRepository(db),
	}
}

func (s *GormStorage) FindRunningSync(ctx context.Context) (*domain.Sync, error) {
	return s.syncs.FindRunning(ctx)
}

func (s *GormStorage) CreateSync(ctx context.Context) (*domain.Sync, error) {
	return s.syncs.Create(ctx)
}

func (s *GormStorage) SaveSync(ctx context.Context, sync *domain.Sync) error {
	return s.syncs.Save(ctx, sync)
}

func (s *GormStorage) GetSync(ctx context.Context, id uint) (*domain.Sync, error) {
	return s.syncs.GetByID(ctx, id)
}

func (s *GormStorage) ListSyncs(ctx context.Context, limit int) ([]domain.Sync, error) {
	return s.syncs.List(ctx, limit)
}

func (s *GormStorage) InsertJobsIfNotExist(ctx context.Context, jobs []domain.Job) error {
	return s.jobs.InsertIfNotExist(ctx, jobs)
}

func (s *GormStorage) FindJobByDedupeKey(ctx context.Context, syncID uint, key string) (*domain.Job, error) {
	return s.jobs.FindByDedupeKey(ctx, syncID, key)
}

func (s *GormStorage) FindJobsByType(ctx context.Context, syncID uint, jobType domain.JobType, statuses ...domain.JobStatus) ([]domain.Job, error) {
	return s.jobs.FindByType(ctx, syncID, jobType, statuses...)
}

func (s *GormStorage) ListJobsBySync(ctx context.Context, syncID uint) ([]domain.Job, error) {
	return s.jobs.ListBySync(ctx, syncID)
}

func (s *GormStorage) UpdateJobStatus(ctx context.Context, id uint, status domain.JobStatus) error {
	return s.jobs.UpdateStatus(ctx, id, status)
}

func (s *GormStorage) UpdateJobStatusBulk(ctx context.Context, ids []uint, status domain.JobStatus) error {
	return s.jobs.UpdateStatusBulk(ctx, ids, status)
}

func (s *GormStorage) UpsertDepartments(ctx context.Context, departments []domain.Department) error {
	return s.catalog.UpsertDepartments(ctx, departments)
}

func (s *GormStorage) CreateProductsIfNotExist(ctx context.Context, ids []int64) error {
	return s.catalog.CreateProductsIfNotExist(ctx, ids)
}

func (s *GormStorage) UpsertProduct(ctx context.Context, product *domain.Product) error {
	return s.catalog.UpsertProduct(ctx, product)
}

func (s *GormStorage) UpsertSnapshot(ctx context.Context, snapshot *domain.ProductSnapshot) error {
	return s.catalog.UpsertSnapshot(ctx, snapshot)
}

func (s *GormStorage) FindSnapshotByKey(ctx context.Context, key string) (*domain.ProductSnapshot, error) {
	return s.catalog.FindSnapshotByKey(ctx, key)
}

func (s *GormStorage) CountSnapshots(ctx context.Context) (int64, error) {
	return s.catalog.CountSnapshots(ctx)
}

// Close releases the underlying connection pool.
func (s *GormStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
