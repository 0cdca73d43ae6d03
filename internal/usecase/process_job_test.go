package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Harsh-BH/certqueue/internal/domain"
	"github.com/Harsh-BH/certqueue/internal/repository/mock"
	"github.com/Harsh-BH/certqueue/internal/usecase"
)

type fakeBuilder struct {
	BuildFn func(ctx context.Context, job *domain.Job) (string, error)
	Calls   int
}

func (f *fakeBuilder) Build(ctx context.Context, job *domain.Job) (string, error) {
	f.Calls++
	if f.BuildFn != nil {
		return f.BuildFn(ctx, job)
	}
	return fmt.Sprintf("/generated/job_%d_labels.pdf", job.ID), nil
}

type harness struct {
	repo     *mock.MockJobRepository
	leases   *mock.LeaseStore
	verifier *mock.Verifier
	builder  *fakeBuilder
	uc       *usecase.ProcessJobUsecase
}

func newHarness() *harness {
	logger := zap.NewNop()
	h := &harness{
		repo:     mock.NewMockJobRepository(),
		leases:   &mock.LeaseStore{},
		verifier: &mock.Verifier{Known: map[string]bool{}},
		builder:  &fakeBuilder{},
	}
	certs := usecase.NewCertificateRunner(h.repo, h.verifier, 0, logger)
	labels := usecase.NewLabelRunner(h.repo, h.builder, logger)
	h.uc = usecase.NewProcessJobUsecase(h.repo, h.leases, certs, labels, logger)
	return h
}

func (h *harness) createJob(t *testing.T, kind domain.JobKind, ids ...string) *domain.Job {
	t.Helper()
	job := &domain.Job{Kind: kind, OwnerID: "owner-1", FileName: "batch.xlsx"}
	for i, id := range ids {
		job.Items = append(job.Items, domain.Item{Position: i, Identifier: id})
	}
	if err := h.repo.Create(context.Background(), job); err != nil {
		t.Fatalf("create: %v", err)
	}
	return job
}

func taskFor(job *domain.Job) *domain.Task {
	return &domain.Task{JobID: job.ID, Kind: job.Kind}
}

// Scenario A: four matches and one miss complete with 4/1.
func TestProcess_CertificatesPartialSuccess(t *testing.T) {
	h := newHarness()
	h.verifier.Known = map[string]bool{"C1": true, "C2": true, "C4": true, "C5": true}
	job := h.createJob(t, domain.KindCertificates, "C1", "C2", "C3", "C4", "C5")

	isDup, err := h.uc.Execute(context.Background(), taskFor(job))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if isDup {
		t.Fatal("expected not duplicate")
	}

	got, _ := h.repo.GetByID(context.Background(), job.ID)
	if got.Status != domain.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", got.Status)
	}
	if got.SuccessCount != 4 || got.FailedCount != 1 {
		t.Errorf("expected 4/1, got %d/%d", got.SuccessCount, got.FailedCount)
	}
	if got.Items[2].Outcome != domain.OutcomeFailed {
		t.Errorf("expected C3 to be FAILED, got %q", got.Items[2].Outcome)
	}

	// One checkpoint per item, counters monotonically increasing.
	if len(h.repo.Checkpoints) != 5 {
		t.Fatalf("expected 5 checkpoints, got %d", len(h.repo.Checkpoints))
	}
	prev := 0
	for i, c := range h.repo.Checkpoints {
		n := c.Checkpoint.SuccessCount + c.Checkpoint.FailedCount
		if n != prev+1 {
			t.Errorf("checkpoint %d: expected %d attempted, got %d", i, prev+1, n)
		}
		prev = n
	}

	calls := h.verifier.Calls()
	want := []string{"C1", "C2", "C3", "C4", "C5"}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("expected items in upload order, got %v", calls)
			break
		}
	}

	if len(h.leases.AcquireCalls) != 1 || h.leases.AcquireCalls[0] != fmt.Sprintf("job:%d", job.ID) {
		t.Errorf("unexpected lease acquisitions: %v", h.leases.AcquireCalls)
	}
	if len(h.leases.ReleaseCalls) != 1 {
		t.Errorf("expected lease release, got %v", h.leases.ReleaseCalls)
	}
}

// A transport error is an item failure, never a job failure.
func TestProcess_VerifierErrorCountsAsFailedItem(t *testing.T) {
	h := newHarness()
	h.verifier.VerifyFn = func(ctx context.Context, cert string) (bool, error) {
		if cert == "BAD" {
			return false, errors.New("connection refused")
		}
		return true, nil
	}
	job := h.createJob(t, domain.KindCertificates, "OK", "BAD")

	if _, err := h.uc.Execute(context.Background(), taskFor(job)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := h.repo.GetByID(context.Background(), job.ID)
	if got.Status != domain.StatusCompleted || got.SuccessCount != 1 || got.FailedCount != 1 {
		t.Errorf("unexpected final job: status=%s %d/%d", got.Status, got.SuccessCount, got.FailedCount)
	}
}

// Scenario C: a redelivered message for a job already claimed is a no-op.
func TestProcess_DuplicateDeliveryAfterClaim(t *testing.T) {
	h := newHarness()
	h.verifier.Known = map[string]bool{"C1": true}
	job := h.createJob(t, domain.KindCertificates, "C1")

	if _, err := h.uc.Execute(context.Background(), taskFor(job)); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	// The lease has lapsed; only the claim stands in the way.
	h.leases.Drop(context.Background(), fmt.Sprintf("job:%d", job.ID))

	isDup, err := h.uc.Execute(context.Background(), taskFor(job))
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if !isDup {
		t.Fatal("expected duplicate")
	}
	if n := len(h.verifier.Calls()); n != 1 {
		t.Errorf("expected the step to run once, got %d calls", n)
	}

	got, _ := h.repo.GetByID(context.Background(), job.ID)
	if got.SuccessCount != 1 || got.FailedCount != 0 {
		t.Errorf("counters changed by duplicate: %d/%d", got.SuccessCount, got.FailedCount)
	}
}

func TestProcess_LeaseHeldIsDuplicate(t *testing.T) {
	h := newHarness()
	h.leases.AcquireFn = func(ctx context.Context, key string) (bool, error) {
		return false, nil
	}
	job := h.createJob(t, domain.KindCertificates, "C1")

	isDup, err := h.uc.Execute(context.Background(), taskFor(job))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !isDup {
		t.Fatal("expected duplicate")
	}

	got, _ := h.repo.GetByID(context.Background(), job.ID)
	if got.Status != domain.StatusPending {
		t.Errorf("expected job to stay PENDING, got %s", got.Status)
	}
}

func TestProcess_LeaseErrorRecordsFailure(t *testing.T) {
	h := newHarness()
	h.leases.AcquireFn = func(ctx context.Context, key string) (bool, error) {
		return false, errors.New("redis down")
	}
	job := h.createJob(t, domain.KindCertificates, "C1")

	isDup, err := h.uc.Execute(context.Background(), taskFor(job))
	if err != nil {
		t.Fatalf("expected recorded failure, got error %v", err)
	}
	if isDup {
		t.Fatal("expected not duplicate")
	}
	got, _ := h.repo.GetByID(context.Background(), job.ID)
	if got.Status != domain.StatusFailed {
		t.Fatalf("expected FAILED, got %s", got.Status)
	}
	if !strings.Contains(got.FailedReason, "redis down") {
		t.Errorf("expected the lease error in the reason, got %q", got.FailedReason)
	}
	if len(h.verifier.Calls()) != 0 {
		t.Error("expected no verification without a lease")
	}
	if len(h.leases.ReleaseCalls) != 0 {
		t.Errorf("expected no release of an unheld lease, got %v", h.leases.ReleaseCalls)
	}
}

// Without a lease, a job another worker already claimed is left untouched.
func TestProcess_LeaseErrorOnClaimedJobIsDuplicate(t *testing.T) {
	h := newHarness()
	h.leases.AcquireFn = func(ctx context.Context, key string) (bool, error) {
		return false, errors.New("redis down")
	}
	job := h.createJob(t, domain.KindCertificates, "C1")
	h.repo.Claim(context.Background(), job.ID)

	isDup, err := h.uc.Execute(context.Background(), taskFor(job))
	if err != nil || !isDup {
		t.Fatalf("expected duplicate, got %v, %v", isDup, err)
	}
	got, _ := h.repo.GetByID(context.Background(), job.ID)
	if got.Status != domain.StatusProcessing {
		t.Errorf("expected PROCESSING, got %s", got.Status)
	}
}

func TestProcess_MissingJobIsUnrecordable(t *testing.T) {
	h := newHarness()

	_, err := h.uc.Execute(context.Background(), &domain.Task{JobID: 404, Kind: domain.KindCertificates})
	if !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
	if len(h.repo.Fails) != 0 {
		t.Errorf("expected no Fail call, got %v", h.repo.Fails)
	}
}

// Deleting a job mid-run aborts the run at the next checkpoint.
func TestProcess_DeletedMidRunAborts(t *testing.T) {
	h := newHarness()
	job := h.createJob(t, domain.KindCertificates, "C1", "C2", "C3")
	h.verifier.VerifyFn = func(ctx context.Context, cert string) (bool, error) {
		if cert == "C2" {
			h.repo.Delete(ctx, job.ID)
		}
		return true, nil
	}

	_, err := h.uc.Execute(context.Background(), taskFor(job))
	if !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
	if n := len(h.verifier.Calls()); n != 2 {
		t.Errorf("expected the run to stop after C2, got %d calls", n)
	}
}

func TestProcess_LabelsCompleteWithArtifact(t *testing.T) {
	h := newHarness()
	job := h.createJob(t, domain.KindLabels, "S1", "S2")

	if _, err := h.uc.Execute(context.Background(), taskFor(job)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := h.repo.GetByID(context.Background(), job.ID)
	if got.Status != domain.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", got.Status)
	}
	if got.SuccessCount != 2 || got.FailedCount != 0 {
		t.Errorf("expected 2/0, got %d/%d", got.SuccessCount, got.FailedCount)
	}
	want := fmt.Sprintf("/generated/job_%d_labels.pdf", job.ID)
	if got.GeneratedArtifactPath != want {
		t.Errorf("expected artifact %s, got %s", want, got.GeneratedArtifactPath)
	}
	if len(h.repo.Checkpoints) != 1 {
		t.Errorf("expected a single checkpoint, got %d", len(h.repo.Checkpoints))
	}
}

// A missing template fails the whole job with a recorded reason.
func TestProcess_LabelTemplateMissingFailsJob(t *testing.T) {
	h := newHarness()
	h.builder.BuildFn = func(ctx context.Context, job *domain.Job) (string, error) {
		return "", fmt.Errorf("%w: tried [a b]", domain.ErrTemplateNotFound)
	}
	job := h.createJob(t, domain.KindLabels, "S1")

	isDup, err := h.uc.Execute(context.Background(), taskFor(job))
	if err != nil {
		t.Fatalf("expected recorded failure, got error %v", err)
	}
	if isDup {
		t.Fatal("expected not duplicate")
	}

	got, _ := h.repo.GetByID(context.Background(), job.ID)
	if got.Status != domain.StatusFailed {
		t.Fatalf("expected FAILED, got %s", got.Status)
	}
	if got.FailedReason == "" {
		t.Error("expected a failure reason")
	}
	if got.SuccessCount != 0 {
		t.Errorf("expected no successes, got %d", got.SuccessCount)
	}
}

func TestProcess_FailRecordErrorIsReturned(t *testing.T) {
	h := newHarness()
	h.builder.BuildFn = func(ctx context.Context, job *domain.Job) (string, error) {
		return "", errors.New("render failed")
	}
	h.repo.FailFunc = func(ctx context.Context, id int64, reason string) error {
		return errors.New("db down")
	}
	job := h.createJob(t, domain.KindLabels, "S1")

	if _, err := h.uc.Execute(context.Background(), taskFor(job)); err == nil {
		t.Fatal("expected error when the failure cannot be recorded")
	}
}

// writeLabels makes the builder produce a real file under dir.
func (h *harness) writeLabels(t *testing.T, dir string) {
	t.Helper()
	h.builder.BuildFn = func(ctx context.Context, job *domain.Job) (string, error) {
		path := filepath.Join(dir, fmt.Sprintf("job_%d_labels.pdf", job.ID))
		return path, os.WriteFile(path, []byte("%PDF-1.3"), 0o644)
	}
}

func assertNoFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no files left in %s, got %d", dir, len(entries))
	}
}

// A labels job deleted while rendering leaves no file behind.
func TestProcess_LabelsDeletedMidRunRemovesFile(t *testing.T) {
	h := newHarness()
	dir := t.TempDir()
	h.writeLabels(t, dir)
	job := h.createJob(t, domain.KindLabels, "S1", "S2")

	build := h.builder.BuildFn
	h.builder.BuildFn = func(ctx context.Context, j *domain.Job) (string, error) {
		path, err := build(ctx, j)
		h.repo.Delete(ctx, j.ID)
		return path, err
	}

	_, err := h.uc.Execute(context.Background(), taskFor(job))
	if !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
	assertNoFiles(t, dir)
}

// A rejected completion fails the job and removes the rendered file.
func TestProcess_LabelsCompleteRejectedRemovesFile(t *testing.T) {
	h := newHarness()
	dir := t.TempDir()
	h.writeLabels(t, dir)
	h.repo.CompleteFunc = func(ctx context.Context, id int64, artifactPath string) error {
		return domain.ErrInvalidTransition
	}
	job := h.createJob(t, domain.KindLabels, "S1")

	if _, err := h.uc.Execute(context.Background(), taskFor(job)); err != nil {
		t.Fatalf("expected recorded failure, got error %v", err)
	}
	got, _ := h.repo.GetByID(context.Background(), job.ID)
	if got.Status != domain.StatusFailed {
		t.Fatalf("expected FAILED, got %s", got.Status)
	}
	assertNoFiles(t, dir)
}

func TestCertificateRunner_DelayHonoursContext(t *testing.T) {
	h := newHarness()
	h.verifier.Known = map[string]bool{"C1": true, "C2": true}
	runner := usecase.NewCertificateRunner(h.repo, h.verifier, time.Hour, zap.NewNop())

	job := h.createJob(t, domain.KindCertificates, "C1", "C2")
	h.repo.Claim(context.Background(), job.ID)
	loaded, _ := h.repo.GetByID(context.Background(), job.ID)

	ctx, cancel := context.WithCancel(context.Background())
	h.repo.CheckpointFunc = func(context.Context, int64, domain.Checkpoint) error {
		cancel()
		return nil
	}

	if _, err := runner.Run(ctx, loaded); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if n := len(h.verifier.Calls()); n != 1 {
		t.Errorf("expected one verification before cancel, got %d", n)
	}
}
