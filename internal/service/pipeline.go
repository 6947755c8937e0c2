package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/wingsum93/dropit-fetcher/internal/domain"
	"github.com/wingsum93/dropit-fetcher/internal/logger"
	"github.com/wingsum93/dropit-fetcher/internal/source"
)

// pipelineStats collects counters across both stages. All fields are
// updated atomically while workers run.
type pipelineStats struct {
	departments int64
	items       int64
	details     int64
	failed      int64
}

func (p *pipelineStats) fill(report *domain.FetchReport) {
	report.Departments = int(atomic.LoadInt64(&p.departments))
	report.Items = int(atomic.LoadInt64(&p.items))
	report.Details = int(atomic.LoadInt64(&p.details))
	report.Failed = int(atomic.LoadInt64(&p.failed))
}

// fatalOnce records the first unrecoverable failure and cancels the run:
// ledger writes and department listing trip it, per-item detail failures
// never do. Those are counted instead.
type fatalOnce struct {
	once   sync.Once
	cancel context.CancelFunc
	mu     sync.Mutex
	err    error
}

func (f *fatalOnce) set(err error) {
	f.once.Do(func() {
		f.mu.Lock()
		f.err = err
		f.mu.Unlock()
		f.cancel()
	})
}

func (f *fatalOnce) get() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// runPipeline executes the two-stage fetch: department listing workers
// feed item summaries through a bounded channel to detail workers. The
// returned stats are valid even when an error is returned.
func (s *FetchService) runPipeline(ctx context.Context, session *domain.Sync, deptIDs []int, opts domain.FetchOptions) (*pipelineStats, error) {
	stats := &pipelineStats{}
	if len(deptIDs) == 0 {
		return stats, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	fatal := &fatalOnce{cancel: cancel}

	deptChan := make(chan int)
	summaries := make(chan domain.ItemSummary, s.buffer)

	// Stage A: department listing workers.
	var listWG sync.WaitGroup
	for i := 0; i < opts.DeptConcurrency; i++ {
		listWG.Add(1)
		go func() {
			defer listWG.Done()
			s.deptWorker(ctx, session, deptChan, summaries, opts, stats, fatal)
		}()
	}

	// Stage B: detail fetch workers behind an admission gate, so at most
	// DetailConcurrency upstream detail calls are in flight at once.
	gate := make(chan struct{}, opts.DetailConcurrency)
	var detailWG sync.WaitGroup
	for i := 0; i < opts.DetailConcurrency; i++ {
		detailWG.Add(1)
		go func() {
			defer detailWG.Done()
			s.detailWorker(ctx, session, summaries, gate, opts, stats)
		}()
	}

	// Feed departments.
	for _, id := range deptIDs {
		select {
		case deptChan <- id:
		case <-ctx.Done():
		}
	}
	close(deptChan)

	listWG.Wait()
	close(summaries)
	detailWG.Wait()

	if err := fatal.get(); err != nil {
		return stats, err
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

func (s *FetchService) deptWorker(ctx context.Context, session *domain.Sync, depts <-chan int, summaries chan<- domain.ItemSummary, opts domain.FetchOptions, stats *pipelineStats, fatal *fatalOnce) {
	for deptID := range depts {
		if ctx.Err() != nil {
			return
		}

		job, err := s.storage.FindJobByDedupeKey(ctx, session.ID, domain.DepartmentDedupeKey(deptID))
		if err != nil {
			fatal.set(fmt.Errorf("failed to load job for department %d: %w", deptID, err))
			return
		}
		if job != nil && job.Status != domain.JobStatusSuccess {
			if err := s.storage.UpdateJobStatus(ctx, job.ID, domain.JobStatusInProgress); err != nil {
				fatal.set(fmt.Errorf("failed to mark department %d in progress: %w", deptID, err))
				return
			}
		}

		items, err := s.source.ListItemsInDepartment(ctx, deptID, source.ListOptions{Since: opts.Since})
		if err != nil {
			// A listing failure sinks the whole run; losing a department's
			// item set would make the join point lie about completeness.
			s.log(ctx).WithFields(logger.Fields{
				"department_id": deptID,
			}).WithError(err).Error("Failed to list department")
			if job != nil {
				if serr := s.storage.UpdateJobStatus(ctx, job.ID, domain.JobStatusError); serr != nil {
					s.log(ctx).WithError(serr).Warn("Failed to mark department job errored")
				}
			}
			fatal.set(fmt.Errorf("failed to list department %d: %w", deptID, err))
			return
		}

		atomic.AddInt64(&stats.departments, 1)
		atomic.AddInt64(&stats.items, int64(len(items)))

		if !opts.DryRun && len(items) > 0 {
			ids := make([]int64, len(items))
			for i, item := range items {
				ids[i] = item.ID
			}
			if err := s.storage.CreateProductsIfNotExist(ctx, ids); err != nil {
				fatal.set(fmt.Errorf("failed to record items of department %d: %w", deptID, err))
				return
			}
		}

		for _, item := range items {
			select {
			case summaries <- item:
			case <-ctx.Done():
				return
			}
		}

		if job != nil {
			if err := s.storage.UpdateJobStatus(ctx, job.ID, domain.JobStatusSuccess); err != nil {
				fatal.set(fmt.Errorf("failed to mark department %d done: %w", deptID, err))
				return
			}
		}
	}
}

func (s *FetchService) detailWorker(ctx context.Context, session *domain.Sync, summaries <-chan domain.ItemSummary, gate chan struct{}, opts domain.FetchOptions, stats *pipelineStats) {
	for item := range summaries {
		select {
		case gate <- struct{}{}:
		case <-ctx.Done():
			return
		}
		detail, err := s.source.FetchItemDetail(ctx, item.ID)
		<-gate

		if err == nil && !opts.DryRun {
			err = s.persistDetail(ctx, detail)
		}
		// One bad item never sinks the run, whichever side it failed on.
		if err != nil {
			atomic.AddInt64(&stats.failed, 1)
			s.log(ctx).WithFields(logger.Fields{
				"item_id": item.ID,
			}).WithError(err).Error("Failed to fetch item detail")
			s.recordItemFailure(ctx, session, item.ID, opts)
			continue
		}
		atomic.AddInt64(&stats.details, 1)
	}
}

// recordItemFailure leaves an errored per-item job behind for post-run
// inspection. Best effort; a ledger hiccup here must not kill the run.
func (s *FetchService) recordItemFailure(ctx context.Context, session *domain.Sync, itemID int64, opts domain.FetchOptions) {
	if opts.DryRun {
		return
	}
	job := domain.Job{
		SyncID:    session.ID,
		JobType:   domain.JobTypeFetchProduct,
		Status:    domain.JobStatusError,
		DedupeKey: fmt.Sprintf("item:%d", itemID),
	}
	if err := s.storage.InsertJobsIfNotExist(ctx, []domain.Job{job}); err != nil {
		s.log(ctx).WithFields(logger.Fields{
			"item_id": itemID,
		}).WithError(err).Warn("Failed to record item failure")
	}
}

func (s *FetchService) persistDetail(ctx context.Context, detail *domain.ItemDetail) error {
	product := &domain.Product{
		ID:           detail.ID,
		StoreID:      detail.StoreID,
		Name:         detail.Name,
		UnitPrice:    detail.UnitPrice,
		Popularity:   detail.Popularity,
		UPC:          detail.UPC,
		CanonicalURL: detail.CanonicalURL,
	}
	if len(detail.DepartmentIDs) > 0 {
		product.DepartmentID = detail.DepartmentIDs[0]
	}
	if err := s.storage.UpsertProduct(ctx, product); err != nil {
		return err
	}

	snapshot := &domain.ProductSnapshot{
		SnapshotKey: fmt.Sprintf("product:%d", detail.ID),
		Payload:     domain.JSONPayload(detail.Raw),
	}
	return s.storage.UpsertSnapshot(ctx, snapshot)
}
