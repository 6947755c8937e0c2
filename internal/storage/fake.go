package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wingsum93/dropit-fetcher/internal/domain"
)

// Fake is an in-memory Storage used by tests. It honors the same
// contracts as the GORM implementation: idempotent job insertion,
// highest-id lookups, and all-or-nothing bulk updates.
type Fake struct {
	mu sync.Mutex

	nextSyncID uint
	nextJobID  uint

	syncs       map[uint]domain.Sync
	jobs        map[uint]domain.Job
	departments map[int]domain.Department
	products    map[int64]domain.Product
	snapshots   map[string]domain.ProductSnapshot
}

// NewFake creates an empty in-memory storage.
func NewFake() *Fake {
	return &Fake{
		syncs:       make(map[uint]domain.Sync),
		jobs:        make(map[uint]domain.Job),
		departments: make(map[int]domain.Department),
		products:    make(map[int64]domain.Product),
		snapshots:   make(map[string]domain.ProductSnapshot),
	}
}

func (f *Fake) FindRunningSync(ctx context.Context) (*domain.Sync, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var found *domain.Sync
	for id, s := range f.syncs {
		if s.Status != domain.SyncStatusRunning {
			continue
		}
		if found == nil || id > found.ID {
			copy := s
			found = &copy
		}
	}
	return found, nil
}

func (f *Fake) CreateSync(ctx context.Context) (*domain.Sync, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSyncID++
	sync := domain.Sync{
		ID:        f.nextSyncID,
		Status:    domain.SyncStatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	f.syncs[sync.ID] = sync
	return &sync, nil
}

func (f *Fake) SaveSync(ctx context.Context, sync *domain.Sync) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.syncs[sync.ID]
	if !ok {
		return domain.ErrNotFound
	}
	existing.Attempts = sync.Attempts
	existing.Status = sync.Status
	existing.FinishedAt = sync.FinishedAt
	existing.UpdatedAt = time.Now()
	f.syncs[sync.ID] = existing
	return nil
}

func (f *Fake) GetSync(ctx context.Context, id uint) (*domain.Sync, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sync, ok := f.syncs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &sync, nil
}

func (f *Fake) ListSyncs(ctx context.Context, limit int) ([]domain.Sync, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	syncs := make([]domain.Sync, 0, len(f.syncs))
	for _, s := range f.syncs {
		syncs = append(syncs, s)
	}
	sort.Slice(syncs, func(i, j int) bool { return syncs[i].ID > syncs[j].ID })
	if limit > 0 && len(syncs) > limit {
		syncs = syncs[:limit]
	}
	return syncs, nil
}

func (f *Fake) InsertJobsIfNotExist(ctx context.Context, jobs []domain.Job) error {
	for _, job := range jobs {
		if len(job.DedupeKey) > domain.MaxDedupeKeyLen {
			return fmt.Errorf("dedupe key %q exceeds %d characters", job.DedupeKey, domain.MaxDedupeKeyLen)
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, job := range jobs {
		if f.findByKeyLocked(job.SyncID, job.DedupeKey) != nil {
			continue
		}
		f.nextJobID++
		job.ID = f.nextJobID
		if job.Status == "" {
			job.Status = domain.JobStatusPending
		}
		job.CreatedAt = time.Now()
		job.UpdatedAt = time.Now()
		f.jobs[job.ID] = job
	}
	return nil
}

func (f *Fake) findByKeyLocked(syncID uint, key string) *domain.Job {
	var found *domain.Job
	for id, j := range f.jobs {
		if j.SyncID != syncID || j.DedupeKey != key {
			continue
		}
		if found == nil || id > found.ID {
			copy := j
			found = &copy
		}
	}
	return found
}

func (f *Fake) FindJobByDedupeKey(ctx context.Context, syncID uint, key string) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findByKeyLocked(syncID, key), nil
}

func (f *Fake) FindJobsByType(ctx context.Context, syncID uint, jobType domain.JobType, statuses ...domain.JobStatus) ([]domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := make(map[domain.JobStatus]bool, len(statuses))
	for _, s := range statuses {
		wanted[s] = true
	}
	var jobs []domain.Job
	for _, j := range f.jobs {
		if j.SyncID != syncID || j.JobType != jobType {
			continue
		}
		if len(wanted) > 0 && !wanted[j.Status] {
			continue
		}
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].ID < jobs[k].ID })
	return jobs, nil
}

func (f *Fake) ListJobsBySync(ctx context.Context, syncID uint) ([]domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var jobs []domain.Job
	for _, j := range f.jobs {
		if j.SyncID == syncID {
			jobs = append(jobs, j)
		}
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].ID < jobs[k].ID })
	return jobs, nil
}

func (f *Fake) UpdateJobStatus(ctx context.Context, id uint, status domain.JobStatus) error {
	return f.UpdateJobStatusBulk(ctx, []uint{id}, status)
}

func (f *Fake) UpdateJobStatusBulk(ctx context.Context, ids []uint, status domain.JobStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	// All-or-nothing: verify every target before touching any.
	for _, id := range ids {
		if _, ok := f.jobs[id]; !ok {
			return domain.ErrNotFound
		}
	}
	for _, id := range ids {
		job := f.jobs[id]
		job.Status = status
		job.UpdatedAt = time.Now()
		f.jobs[id] = job
	}
	return nil
}

func (f *Fake) UpsertDepartments(ctx context.Context, departments []domain.Department) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range departments {
		f.departments[d.ID] = d
	}
	return nil
}

func (f *Fake) CreateProductsIfNotExist(ctx context.Context, ids []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		if _, ok := f.products[id]; !ok {
			f.products[id] = domain.Product{ID: id, CreatedAt: time.Now()}
		}
	}
	return nil
}

func (f *Fake) UpsertProduct(ctx context.Context, product *domain.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[product.ID] = *product
	return nil
}

func (f *Fake) UpsertSnapshot(ctx context.Context, snapshot *domain.ProductSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.snapshots[snapshot.SnapshotKey]
	if ok {
		existing.Payload = snapshot.Payload
		existing.UpdatedAt = time.Now()
		f.snapshots[snapshot.SnapshotKey] = existing
		return nil
	}
	snapshot.ID = uint(len(f.snapshots) + 1)
	snapshot.CreatedAt = time.Now()
	snapshot.UpdatedAt = snapshot.CreatedAt
	f.snapshots[snapshot.SnapshotKey] = *snapshot
	return nil
}

func (f *Fake) FindSnapshotByKey(ctx context.Context, key string) (*domain.ProductSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot, ok := f.snapshots[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &snapshot, nil
}

func (f *Fake) CountSnapshots(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.snapshots)), nil
}

// Close implements Storage. It is a no-op for the in-memory fake.
func (f *Fake) Close() error {
	return nil
}

// ProductCount reports how many product rows exist. Test helper.
func (f *Fake) ProductCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.products)
}
