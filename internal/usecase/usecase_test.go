package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Harsh-BH/certqueue/internal/domain"
	mockpub "github.com/Harsh-BH/certqueue/internal/publisher/mock"
	mockrepo "github.com/Harsh-BH/certqueue/internal/repository/mock"
)

// writeSheet stores rows as the first sheet of a workbook under dir.
func writeSheet(t *testing.T, dir string, rows ...[]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		row := r
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	path := filepath.Join(dir, "upload.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

func TestSubmitJob_Success(t *testing.T) {
	repo := mockrepo.NewMockJobRepository()
	pub := mockpub.NewMockPublisher()
	uc := NewSubmitJobUsecase(repo, pub, zap.NewNop())

	path := writeSheet(t, t.TempDir(),
		[]interface{}{"Report Number", "Notes"},
		[]interface{}{"IGI-1", "x"},
		[]interface{}{"IGI-2", ""},
	)

	resp, err := uc.Execute(context.Background(), &domain.SubmitRequest{
		Kind:       domain.KindCertificates,
		OwnerID:    "owner-1",
		FileName:   "batch.xlsx",
		SourcePath: path,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != domain.StatusPending || resp.TotalCount != 2 {
		t.Errorf("unexpected response: %+v", resp)
	}

	jobs := repo.GetAll()
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job in repo, got %d", len(jobs))
	}
	if jobs[0].Items[0].Identifier != "IGI-1" || jobs[0].Items[1].Identifier != "IGI-2" {
		t.Errorf("unexpected items: %+v", jobs[0].Items)
	}
	if jobs[0].SourceFilePath != path || jobs[0].OwnerID != "owner-1" {
		t.Errorf("unexpected job: %+v", jobs[0])
	}

	if len(pub.Published) != 1 {
		t.Fatalf("expected 1 published task, got %d", len(pub.Published))
	}
	if pub.Published[0].JobID != resp.ID || pub.Published[0].Kind != domain.KindCertificates {
		t.Errorf("unexpected task: %+v", pub.Published[0])
	}
}

func TestSubmitJob_Labels(t *testing.T) {
	repo := mockrepo.NewMockJobRepository()
	uc := NewSubmitJobUsecase(repo, mockpub.NewMockPublisher(), zap.NewNop())

	path := writeSheet(t, t.TempDir(),
		[]interface{}{"Stock No", "CTS", "Shape"},
		[]interface{}{"S-1", "1.5", "round"},
	)

	resp, err := uc.Execute(context.Background(), &domain.SubmitRequest{
		Kind: domain.KindLabels, OwnerID: "owner-1", FileName: "labels.xlsx", SourcePath: path,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	job, _ := repo.GetByID(context.Background(), resp.ID)
	if job.Items[0].Identifier != "S-1" || job.Items[0].Fields["weight"] != "1.5" {
		t.Errorf("unexpected label item: %+v", job.Items[0])
	}
}

func TestSubmitJob_EmptyBatch(t *testing.T) {
	repo := mockrepo.NewMockJobRepository()
	pub := mockpub.NewMockPublisher()
	uc := NewSubmitJobUsecase(repo, pub, zap.NewNop())

	path := writeSheet(t, t.TempDir(),
		[]interface{}{"Certificate Number"},
	)

	_, err := uc.Execute(context.Background(), &domain.SubmitRequest{
		Kind: domain.KindCertificates, OwnerID: "owner-1", SourcePath: path,
	})
	if !errors.Is(err, domain.ErrEmptyBatch) {
		t.Errorf("expected ErrEmptyBatch, got %v", err)
	}
	if len(repo.GetAll()) != 0 || len(pub.Published) != 0 {
		t.Error("expected nothing stored or published")
	}
}

func TestSubmitJob_UnreadableInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("certificate numbers"), 0o644); err != nil {
		t.Fatal(err)
	}
	uc := NewSubmitJobUsecase(mockrepo.NewMockJobRepository(), mockpub.NewMockPublisher(), zap.NewNop())

	_, err := uc.Execute(context.Background(), &domain.SubmitRequest{
		Kind: domain.KindCertificates, OwnerID: "owner-1", SourcePath: path,
	})
	if !errors.Is(err, domain.ErrUnreadableInput) {
		t.Errorf("expected ErrUnreadableInput, got %v", err)
	}
}

func TestSubmitJob_UnsupportedKind(t *testing.T) {
	uc := NewSubmitJobUsecase(mockrepo.NewMockJobRepository(), mockpub.NewMockPublisher(), zap.NewNop())

	_, err := uc.Execute(context.Background(), &domain.SubmitRequest{Kind: "invoices"})
	if !errors.Is(err, domain.ErrUnsupportedKind) {
		t.Errorf("expected ErrUnsupportedKind, got %v", err)
	}
}

func TestSubmitJob_PublishFailure(t *testing.T) {
	repo := mockrepo.NewMockJobRepository()
	pub := mockpub.NewMockPublisher()
	pub.PublishFn = func(ctx context.Context, task *domain.Task) error {
		return errors.New("connection refused")
	}
	uc := NewSubmitJobUsecase(repo, pub, zap.NewNop())

	path := writeSheet(t, t.TempDir(),
		[]interface{}{"Certificate Number"},
		[]interface{}{"IGI-1"},
	)

	_, err := uc.Execute(context.Background(), &domain.SubmitRequest{
		Kind: domain.KindCertificates, OwnerID: "owner-1", SourcePath: path,
	})
	if !errors.Is(err, domain.ErrPublishFailed) {
		t.Fatalf("expected ErrPublishFailed, got %v", err)
	}

	jobs := repo.GetAll()
	if len(jobs) != 1 || jobs[0].Status != domain.StatusFailed {
		t.Fatalf("expected the unpublished job to be FAILED, got %+v", jobs)
	}
}

func TestSubmitJob_RepoCreateFailure(t *testing.T) {
	repo := mockrepo.NewMockJobRepository()
	repo.CreateFunc = func(ctx context.Context, job *domain.Job) error {
		return errors.New("db connection lost")
	}
	pub := mockpub.NewMockPublisher()
	uc := NewSubmitJobUsecase(repo, pub, zap.NewNop())

	path := writeSheet(t, t.TempDir(),
		[]interface{}{"Certificate Number"},
		[]interface{}{"IGI-1"},
	)

	_, err := uc.Execute(context.Background(), &domain.SubmitRequest{
		Kind: domain.KindCertificates, OwnerID: "owner-1", SourcePath: path,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(pub.Published) != 0 {
		t.Error("expected no publish after create failure")
	}
}

func seedJob(t *testing.T, repo *mockrepo.MockJobRepository, job *domain.Job) {
	t.Helper()
	repo.Put(job)
}

func TestGetStatus_Views(t *testing.T) {
	repo := mockrepo.NewMockJobRepository()
	uc := NewGetStatusUsecase(repo, zap.NewNop())

	seedJob(t, repo, &domain.Job{ID: 1, Kind: domain.KindCertificates, OwnerID: "o", Status: domain.StatusProcessing, TotalCount: 3, SuccessCount: 1})
	seedJob(t, repo, &domain.Job{ID: 2, Kind: domain.KindCertificates, OwnerID: "o", Status: domain.StatusCompleted, TotalCount: 2, SuccessCount: 1, FailedCount: 1})
	seedJob(t, repo, &domain.Job{ID: 3, Kind: domain.KindLabels, OwnerID: "o", Status: domain.StatusFailed, TotalCount: 1, FailedReason: "label template not found"})
	seedJob(t, repo, &domain.Job{ID: 4, Kind: domain.KindCertificates, OwnerID: "o", Status: domain.StatusCompleted, TotalCount: 1, FailedCount: 1})

	ctx := context.Background()

	running, err := uc.Execute(ctx, "o", domain.KindCertificates, 1)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if running.State != domain.StatusProcessing || running.Progress != (domain.Progress{Success: 1, Total: 3}) || running.Result != nil {
		t.Errorf("unexpected running view: %+v", running)
	}

	done, _ := uc.Execute(ctx, "o", domain.KindCertificates, 2)
	if done.Result == nil || done.Result.FileName != "job_2_results.xlsx" || done.Result.DownloadURL != "/api/v1/certificates/download/2" {
		t.Errorf("unexpected completed view: %+v", done.Result)
	}

	failed, _ := uc.Execute(ctx, "o", domain.KindLabels, 3)
	if failed.FailedReason != "label template not found" || failed.Result != nil {
		t.Errorf("unexpected failed view: %+v", failed)
	}

	noSuccess, _ := uc.Execute(ctx, "o", domain.KindCertificates, 4)
	if noSuccess.Result != nil {
		t.Errorf("expected no result for a job without successes, got %+v", noSuccess.Result)
	}
}

func TestGetStatus_ScopedByOwnerAndKind(t *testing.T) {
	repo := mockrepo.NewMockJobRepository()
	uc := NewGetStatusUsecase(repo, zap.NewNop())
	seedJob(t, repo, &domain.Job{ID: 1, Kind: domain.KindCertificates, OwnerID: "o", Status: domain.StatusPending})

	ctx := context.Background()
	if _, err := uc.Execute(ctx, "someone-else", domain.KindCertificates, 1); !errors.Is(err, domain.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound for another owner, got %v", err)
	}
	if _, err := uc.Execute(ctx, "o", domain.KindLabels, 1); !errors.Is(err, domain.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound for another kind, got %v", err)
	}
	if _, err := uc.Execute(ctx, "o", domain.KindCertificates, 99); !errors.Is(err, domain.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound for a missing job, got %v", err)
	}
}

func TestListJobs_NewestFirst(t *testing.T) {
	repo := mockrepo.NewMockJobRepository()
	uc := NewListJobsUsecase(repo, zap.NewNop())
	seedJob(t, repo, &domain.Job{ID: 1, Kind: domain.KindCertificates, OwnerID: "o", FileName: "a.xlsx"})
	seedJob(t, repo, &domain.Job{ID: 2, Kind: domain.KindCertificates, OwnerID: "o", FileName: "b.xlsx"})
	seedJob(t, repo, &domain.Job{ID: 3, Kind: domain.KindCertificates, OwnerID: "x", FileName: "c.xlsx"})

	jobs, err := uc.Execute(context.Background(), "o", domain.KindCertificates)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 2 || jobs[0].ID != 2 || jobs[1].FileName != "a.xlsx" {
		t.Errorf("unexpected listing: %+v", jobs)
	}
}

type fakeProvider struct {
	EnsureFn func(ctx context.Context, job *domain.Job) (*domain.Artifact, error)
}

func (f *fakeProvider) Ensure(ctx context.Context, job *domain.Job) (*domain.Artifact, error) {
	return f.EnsureFn(ctx, job)
}

func TestDownloadArtifact(t *testing.T) {
	repo := mockrepo.NewMockJobRepository()
	seedJob(t, repo, &domain.Job{ID: 5, Kind: domain.KindCertificates, OwnerID: "o", Status: domain.StatusCompleted})

	provider := &fakeProvider{EnsureFn: func(ctx context.Context, job *domain.Job) (*domain.Artifact, error) {
		if job.SuccessCount == 0 {
			return nil, domain.ErrNoSuccesses
		}
		return &domain.Artifact{JobID: job.ID}, nil
	}}
	uc := NewDownloadArtifactUsecase(repo, provider, zap.NewNop())

	if _, err := uc.Execute(context.Background(), "o", domain.KindCertificates, 5); !errors.Is(err, domain.ErrNoSuccesses) {
		t.Errorf("expected ErrNoSuccesses, got %v", err)
	}
	if _, err := uc.Execute(context.Background(), "other", domain.KindCertificates, 5); !errors.Is(err, domain.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

// Scenario D: delete removes files and record; a second delete is a no-op.
func TestDeleteJob_RemovesFilesAndIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "upload.xlsx")
	artifact := filepath.Join(dir, "job_7_results.xlsx")
	for _, p := range []string{source, artifact} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	repo := mockrepo.NewMockJobRepository()
	seedJob(t, repo, &domain.Job{
		ID: 7, Kind: domain.KindCertificates, OwnerID: "o", Status: domain.StatusCompleted,
		SourceFilePath: source, GeneratedArtifactPath: artifact,
	})
	uc := NewDeleteJobUsecase(repo, zap.NewNop())
	status := NewGetStatusUsecase(repo, zap.NewNop())
	ctx := context.Background()

	deleted, err := uc.Execute(ctx, "o", domain.KindCertificates, 7)
	if err != nil || !deleted {
		t.Fatalf("delete: deleted=%v err=%v", deleted, err)
	}
	for _, p := range []string{source, artifact} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("expected %s to be removed", p)
		}
	}
	if _, err := status.Execute(ctx, "o", domain.KindCertificates, 7); !errors.Is(err, domain.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound after delete, got %v", err)
	}

	deleted, err = uc.Execute(ctx, "o", domain.KindCertificates, 7)
	if err != nil || deleted {
		t.Errorf("second delete: expected (false, nil), got (%v, %v)", deleted, err)
	}
}

func TestDeleteJob_ToleratesMissingFiles(t *testing.T) {
	repo := mockrepo.NewMockJobRepository()
	seedJob(t, repo, &domain.Job{
		ID: 8, Kind: domain.KindLabels, OwnerID: "o", Status: domain.StatusFailed,
		SourceFilePath: filepath.Join(t.TempDir(), "gone.xlsx"),
	})
	uc := NewDeleteJobUsecase(repo, zap.NewNop())

	deleted, err := uc.Execute(context.Background(), "o", domain.KindLabels, 8)
	if err != nil || !deleted {
		t.Errorf("expected delete to succeed, got deleted=%v err=%v", deleted, err)
	}
}
