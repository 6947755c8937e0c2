package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wingsum93/dropit-fetcher/internal/domain"
	"github.com/wingsum93/dropit-fetcher/internal/logger"
	"github.com/wingsum93/dropit-fetcher/internal/source"
	"github.com/wingsum93/dropit-fetcher/internal/storage"
)

// FetchService drives the catalog harvesting pipeline: it owns the sync
// session, seeds the job ledger, and runs the two-stage fetch.
type FetchService struct {
	storage   storage.Storage
	source    source.GrocerySource
	logger    *logger.Logger
	storeID   string
	buffer    int
	resumeAll bool
}

// FetchServiceConfig holds configuration for the fetch service.
type FetchServiceConfig struct {
	StoreID string
	// BufferSize is the capacity of the channel between the listing and
	// detail stages.
	BufferSize int
	// ResumeAllStatuses widens resume to re-run every department job
	// regardless of its recorded status.
	ResumeAllStatuses bool
}

// NewFetchService creates a new fetch service.
func NewFetchService(store storage.Storage, src source.GrocerySource, log *logger.Logger, cfg *FetchServiceConfig) *FetchService {
	buffer := cfg.BufferSize
	if buffer <= 0 {
		buffer = 200
	}
	return &FetchService{
		storage:   store,
		source:    src,
		logger:    log,
		storeID:   cfg.StoreID,
		buffer:    buffer,
		resumeAll: cfg.ResumeAllStatuses,
	}
}

// log returns a logger from context if available, otherwise returns the default logger
func (s *FetchService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// Run executes one harvesting run. The returned report is never nil, so
// callers see partial progress even when the run fails.
func (s *FetchService) Run(ctx context.Context, opts domain.FetchOptions) (*domain.FetchReport, error) {
	report := &domain.FetchReport{}
	if err := opts.Validate(); err != nil {
		return report, err
	}

	start := time.Now()

	session, err := s.prepareSession(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to prepare session: %w", err)
	}
	ctx = logger.SetSyncID(ctx, session.ID)

	s.log(ctx).WithFields(logger.Fields{
		"sync_id":  session.ID,
		"attempts": session.Attempts,
		"dry_run":  opts.DryRun,
	}).Info("Starting catalog fetch")

	deptIDs, err := s.ensureDepartmentJobs(ctx, session, opts)
	if err != nil {
		s.markRetry(ctx, session)
		report.DurationMs = time.Since(start).Milliseconds()
		return report, fmt.Errorf("failed to seed department jobs: %w", err)
	}

	stats, err := s.runPipeline(ctx, session, deptIDs, opts)
	stats.fill(report)
	report.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		s.markRetry(ctx, session)
		return report, err
	}

	now := time.Now()
	session.Status = domain.SyncStatusDone
	session.FinishedAt = &now
	if err := s.storage.SaveSync(ctx, session); err != nil {
		return report, fmt.Errorf("failed to finalize sync: %w", err)
	}

	s.log(ctx).WithFields(logger.Fields{
		"departments": report.Departments,
		"items":       report.Items,
		"details":     report.Details,
		"failed":      report.Failed,
		"duration":    time.Since(start).String(),
	}).Info("Catalog fetch completed")

	return report, nil
}

// prepareSession reuses the most recent running sync when one exists,
// otherwise creates one, then bumps the attempt counter and marks the
// session running. Reuse is unconditional so an interrupted run can
// never fork a second live session.
func (s *FetchService) prepareSession(ctx context.Context) (*domain.Sync, error) {
	session, err := s.storage.FindRunningSync(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		session, err = s.storage.CreateSync(ctx)
		if err != nil {
			return nil, err
		}
	}

	session.Attempts++
	session.Status = domain.SyncStatusRunning
	session.FinishedAt = nil
	if err := s.storage.SaveSync(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// ensureDepartmentJobs seeds the job ledger for the sync. The listing
// marker makes the upstream department call at most once per sync: on
// resume the department set is reconstructed from the ledger instead.
func (s *FetchService) ensureDepartmentJobs(ctx context.Context, session *domain.Sync, opts domain.FetchOptions) ([]int, error) {
	marker, err := s.storage.FindJobByDedupeKey(ctx, session.ID, domain.AllDepartmentsDedupeKey)
	if err != nil {
		return nil, err
	}
	if marker != nil {
		return s.remainingDepartments(ctx, session, opts)
	}

	departments, err := s.source.ListDepartments(ctx, s.storeID)
	if err != nil {
		return nil, err
	}

	if !opts.DryRun && len(departments) > 0 {
		if err := s.storage.UpsertDepartments(ctx, departments); err != nil {
			return nil, err
		}
	}

	jobs := make([]domain.Job, 0, len(departments))
	ids := make([]int, 0, len(departments))
	for _, dept := range departments {
		jobs = append(jobs, domain.Job{
			SyncID:    session.ID,
			JobType:   domain.JobTypeFetchDepartmentProducts,
			Status:    domain.JobStatusPending,
			DedupeKey: domain.DepartmentDedupeKey(dept.ID),
		})
		ids = append(ids, dept.ID)
	}
	if err := s.storage.InsertJobsIfNotExist(ctx, jobs); err != nil {
		return nil, err
	}

	// The marker goes in last so its presence implies the department
	// jobs are already on record.
	markerJob := domain.Job{
		SyncID:    session.ID,
		JobType:   domain.JobTypeFetchDepartments,
		Status:    domain.JobStatusPending,
		DedupeKey: domain.AllDepartmentsDedupeKey,
	}
	if err := s.storage.InsertJobsIfNotExist(ctx, []domain.Job{markerJob}); err != nil {
		return nil, err
	}

	sort.Ints(ids)
	return ids, nil
}

// remainingDepartments rebuilds the department worklist from the job
// ledger. Unparsable keys are dropped, duplicates collapse, and the
// result is sorted ascending. Resume narrows the scan to unfinished
// jobs; without it (or with resumeAll) every department is re-visited.
func (s *FetchService) remainingDepartments(ctx context.Context, session *domain.Sync, opts domain.FetchOptions) ([]int, error) {
	statuses := []domain.JobStatus{domain.JobStatusPending, domain.JobStatusInProgress}
	if s.resumeAll || !opts.Resume {
		statuses = nil
	}
	jobs, err := s.storage.FindJobsByType(ctx, session.ID, domain.JobTypeFetchDepartmentProducts, statuses...)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]bool, len(jobs))
	var ids []int
	for _, job := range jobs {
		id, ok := domain.ParseDepartmentDedupeKey(job.DedupeKey)
		if !ok {
			s.log(ctx).WithFields(logger.Fields{
				"dedupe_key": job.DedupeKey,
				"job_id":     job.ID,
			}).Warn("Dropping unparsable department job key")
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Ints(ids)

	s.log(ctx).WithFields(logger.Fields{
		"remaining": len(ids),
	}).Info("Resuming from existing department jobs")
	return ids, nil
}

// markRetry flags the sync for another attempt. The finished timestamp
// stays unset so the session is still picked up on resume.
func (s *FetchService) markRetry(ctx context.Context, session *domain.Sync) {
	session.Status = domain.SyncStatusRetry
	session.FinishedAt = nil
	if err := s.storage.SaveSync(ctx, session); err != nil {
		s.log(ctx).WithError(err).Error("Failed to mark sync for retry")
	}
}
