package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/wingsum93/dropit-fetcher/internal/domain"
)

func TestInsertJobsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewFake()

	sync, err := store.CreateSync(ctx)
	if err != nil {
		t.Fatalf("CreateSync failed: %v", err)
	}

	first := []domain.Job{{
		SyncID:    sync.ID,
		JobType:   domain.JobTypeFetchDepartmentProducts,
		Status:    domain.JobStatusSuccess,
		DedupeKey: domain.DepartmentDedupeKey(7),
	}}
	if err := store.InsertJobsIfNotExist(ctx, first); err != nil {
		t.Fatalf("InsertJobsIfNotExist failed: %v", err)
	}

	// Re-inserting the same key must keep the original row untouched.
	again := []domain.Job{{
		SyncID:    sync.ID,
		JobType:   domain.JobTypeFetchDepartmentProducts,
		Status:    domain.JobStatusPending,
		DedupeKey: domain.DepartmentDedupeKey(7),
	}}
	if err := store.InsertJobsIfNotExist(ctx, again); err != nil {
		t.Fatalf("second insert failed: %v", err)
	}

	jobs, err := store.ListJobsBySync(ctx, sync.ID)
	if err != nil {
		t.Fatalf("ListJobsBySync failed: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(jobs))
	}
	if jobs[0].Status != domain.JobStatusSuccess {
		t.Errorf("status = %s, want SUCCESS (original row preserved)", jobs[0].Status)
	}
}

func TestInsertJobsRejectsLongKeysBeforeWriting(t *testing.T) {
	ctx := context.Background()
	store := NewFake()

	sync, _ := store.CreateSync(ctx)
	jobs := []domain.Job{
		{SyncID: sync.ID, JobType: domain.JobTypeFetchDepartmentProducts, DedupeKey: "dept:1"},
		{SyncID: sync.ID, JobType: domain.JobTypeFetchDepartmentProducts, DedupeKey: strings.Repeat("x", 41)},
	}

	if err := store.InsertJobsIfNotExist(ctx, jobs); err == nil {
		t.Fatal("expected key length error, got nil")
	}

	// Whole-batch validation: the valid job must not have been written either.
	got, _ := store.ListJobsBySync(ctx, sync.ID)
	if len(got) != 0 {
		t.Errorf("jobs = %d, want 0 after rejected batch", len(got))
	}
}

func TestFindJobByDedupeKeyReturnsHighestID(t *testing.T) {
	ctx := context.Background()
	store := NewFake()

	sync, _ := store.CreateSync(ctx)
	other, _ := store.CreateSync(ctx)

	// Same key under a different sync must not interfere.
	_ = store.InsertJobsIfNotExist(ctx, []domain.Job{
		{SyncID: other.ID, JobType: domain.JobTypeFetchDepartments, DedupeKey: "shared"},
		{SyncID: sync.ID, JobType: domain.JobTypeFetchDepartments, DedupeKey: "shared"},
	})

	job, err := store.FindJobByDedupeKey(ctx, sync.ID, "shared")
	if err != nil {
		t.Fatalf("FindJobByDedupeKey failed: %v", err)
	}
	if job == nil {
		t.Fatal("job not found")
	}
	if job.SyncID != sync.ID {
		t.Errorf("sync_id = %d, want %d", job.SyncID, sync.ID)
	}

	missing, err := store.FindJobByDedupeKey(ctx, sync.ID, "absent")
	if err != nil {
		t.Fatalf("FindJobByDedupeKey failed: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for absent key")
	}
}

func TestUpdateJobStatusBulkIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := NewFake()

	sync, _ := store.CreateSync(ctx)
	_ = store.InsertJobsIfNotExist(ctx, []domain.Job{
		{SyncID: sync.ID, JobType: domain.JobTypeFetchDepartmentProducts, DedupeKey: "dept:1"},
		{SyncID: sync.ID, JobType: domain.JobTypeFetchDepartmentProducts, DedupeKey: "dept:2"},
	})
	jobs, _ := store.ListJobsBySync(ctx, sync.ID)

	err := store.UpdateJobStatusBulk(ctx, []uint{jobs[0].ID, 9999}, domain.JobStatusSuccess)
	if err == nil {
		t.Fatal("expected error for unknown job id, got nil")
	}

	// Neither row may have changed.
	after, _ := store.ListJobsBySync(ctx, sync.ID)
	for _, job := range after {
		if job.Status == domain.JobStatusSuccess {
			t.Errorf("job %d updated despite failed batch", job.ID)
		}
	}

	if err := store.UpdateJobStatusBulk(ctx, []uint{jobs[0].ID, jobs[1].ID}, domain.JobStatusSuccess); err != nil {
		t.Fatalf("valid bulk update failed: %v", err)
	}
	after, _ = store.ListJobsBySync(ctx, sync.ID)
	for _, job := range after {
		if job.Status != domain.JobStatusSuccess {
			t.Errorf("job %d status = %s, want SUCCESS", job.ID, job.Status)
		}
	}
}

func TestFindJobsByTypeFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	store := NewFake()

	sync, _ := store.CreateSync(ctx)
	_ = store.InsertJobsIfNotExist(ctx, []domain.Job{
		{SyncID: sync.ID, JobType: domain.JobTypeFetchDepartmentProducts, Status: domain.JobStatusSuccess, DedupeKey: "dept:1"},
		{SyncID: sync.ID, JobType: domain.JobTypeFetchDepartmentProducts, Status: domain.JobStatusPending, DedupeKey: "dept:2"},
		{SyncID: sync.ID, JobType: domain.JobTypeFetchDepartments, Status: domain.JobStatusPending, DedupeKey: "all_departments"},
	})

	jobs, err := store.FindJobsByType(ctx, sync.ID, domain.JobTypeFetchDepartmentProducts, domain.JobStatusPending)
	if err != nil {
		t.Fatalf("FindJobsByType failed: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(jobs))
	}
	if jobs[0].DedupeKey != "dept:2" {
		t.Errorf("dedupe_key = %s, want dept:2", jobs[0].DedupeKey)
	}

	all, _ := store.FindJobsByType(ctx, sync.ID, domain.JobTypeFetchDepartmentProducts)
	if len(all) != 2 {
		t.Fatalf("jobs = %d, want 2 with no status filter", len(all))
	}
	if all[0].ID > all[1].ID {
		t.Error("jobs not ordered by id ascending")
	}
}

func TestSaveSyncUnknownID(t *testing.T) {
	ctx := context.Background()
	store := NewFake()

	sync := &domain.Sync{ID: 42, Status: domain.SyncStatusDone}
	if err := store.SaveSync(ctx, sync); err != domain.ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFindRunningSyncPicksNewest(t *testing.T) {
	ctx := context.Background()
	store := NewFake()

	a, _ := store.CreateSync(ctx)
	b, _ := store.CreateSync(ctx)

	a.Status = domain.SyncStatusRunning
	_ = store.SaveSync(ctx, a)
	b.Status = domain.SyncStatusRunning
	_ = store.SaveSync(ctx, b)

	running, err := store.FindRunningSync(ctx)
	if err != nil {
		t.Fatalf("FindRunningSync failed: %v", err)
	}
	if running == nil || running.ID != b.ID {
		t.Errorf("running = %+v, want sync %d", running, b.ID)
	}
}

func TestUpsertSnapshotUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	store := NewFake()

	first := &domain.ProductSnapshot{SnapshotKey: "product:5", Payload: domain.JSONPayload(`{"v":1}`)}
	if err := store.UpsertSnapshot(ctx, first); err != nil {
		t.Fatalf("UpsertSnapshot failed: %v", err)
	}
	second := &domain.ProductSnapshot{SnapshotKey: "product:5", Payload: domain.JSONPayload(`{"v":2}`)}
	if err := store.UpsertSnapshot(ctx, second); err != nil {
		t.Fatalf("second UpsertSnapshot failed: %v", err)
	}

	count, _ := store.CountSnapshots(ctx)
	if count != 1 {
		t.Fatalf("snapshots = %d, want 1", count)
	}
	snap, err := store.FindSnapshotByKey(ctx, "product:5")
	if err != nil {
		t.Fatalf("FindSnapshotByKey failed: %v", err)
	}
	if string(snap.Payload) != `{"v":2}` {
		t.Errorf("payload = %s, want updated document", snap.Payload)
	}
}
