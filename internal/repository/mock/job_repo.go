package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Harsh-BH/certqueue/internal/domain"
	"github.com/Harsh-BH/certqueue/internal/repository"
)

// Ensure MockJobRepository implements repository.JobRepository.
var _ repository.JobRepository = (*MockJobRepository)(nil)

// MockJobRepository is an in-memory job store with the same conditional
// transitions as the SQL stores. Hooks replace the default behaviour.
type MockJobRepository struct {
	mu     sync.RWMutex
	jobs   map[int64]*domain.Job
	nextID int64

	CreateFunc     func(ctx context.Context, job *domain.Job) error
	GetByIDFunc    func(ctx context.Context, id int64) (*domain.Job, error)
	ClaimFunc      func(ctx context.Context, id int64) (bool, error)
	CheckpointFunc func(ctx context.Context, id int64, cp domain.Checkpoint) error
	CompleteFunc   func(ctx context.Context, id int64, artifactPath string) error
	FailFunc       func(ctx context.Context, id int64, reason string) error

	// Recorded calls for assertions.
	Checkpoints []CheckpointCall
	Fails       []FailCall
}

type CheckpointCall struct {
	ID         int64
	Checkpoint domain.Checkpoint
}

type FailCall struct {
	ID     int64
	Reason string
}

// NewMockJobRepository creates a new mock repository.
func NewMockJobRepository() *MockJobRepository {
	return &MockJobRepository{
		jobs: make(map[int64]*domain.Job),
	}
}

func (m *MockJobRepository) Create(ctx context.Context, job *domain.Job) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, job)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	now := time.Now().UTC().Add(time.Duration(m.nextID) * time.Microsecond)
	job.ID = m.nextID
	job.Status = domain.StatusPending
	job.TotalCount = len(job.Items)
	job.CreatedAt = now
	job.UpdatedAt = now
	m.jobs[job.ID] = cloneJob(job)
	return nil
}

func (m *MockJobRepository) GetByID(ctx context.Context, id int64) (*domain.Job, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return cloneJob(job), nil
}

func (m *MockJobRepository) ListByOwner(ctx context.Context, ownerID string, kind domain.JobKind) ([]*domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Job
	for _, j := range m.jobs {
		if j.OwnerID == ownerID && j.Kind == kind {
			c := cloneJob(j)
			c.Items = nil
			out = append(out, c)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID > out[b].ID })
	return out, nil
}

func (m *MockJobRepository) Claim(ctx context.Context, id int64) (bool, error) {
	if m.ClaimFunc != nil {
		return m.ClaimFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return false, domain.ErrJobNotFound
	}
	if job.Status != domain.StatusPending {
		return false, nil
	}
	now := time.Now().UTC()
	job.Status = domain.StatusProcessing
	job.StartedAt = &now
	return true, nil
}

func (m *MockJobRepository) Checkpoint(ctx context.Context, id int64, cp domain.Checkpoint) error {
	m.mu.Lock()
	m.Checkpoints = append(m.Checkpoints, CheckpointCall{ID: id, Checkpoint: cp})
	m.mu.Unlock()
	if m.CheckpointFunc != nil {
		return m.CheckpointFunc(ctx, id, cp)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	if job.Status != domain.StatusProcessing || cp.SuccessCount+cp.FailedCount > job.TotalCount {
		return domain.ErrInvalidTransition
	}
	job.SuccessCount = cp.SuccessCount
	job.FailedCount = cp.FailedCount
	for _, r := range cp.Results {
		if r.Position >= 0 && r.Position < len(job.Items) {
			job.Items[r.Position].Outcome = r.Outcome
		}
	}
	return nil
}

func (m *MockJobRepository) Complete(ctx context.Context, id int64, artifactPath string) error {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, id, artifactPath)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	if job.Status != domain.StatusProcessing {
		return domain.ErrInvalidTransition
	}
	if job.Attempted() != job.TotalCount {
		return domain.ErrIncompleteProgress
	}
	now := time.Now().UTC()
	job.Status = domain.StatusCompleted
	if artifactPath != "" {
		job.GeneratedArtifactPath = artifactPath
	}
	job.FinishedAt = &now
	return nil
}

func (m *MockJobRepository) Fail(ctx context.Context, id int64, reason string) error {
	m.mu.Lock()
	m.Fails = append(m.Fails, FailCall{ID: id, Reason: reason})
	m.mu.Unlock()
	if m.FailFunc != nil {
		return m.FailFunc(ctx, id, reason)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	if job.Status.IsTerminal() {
		return domain.ErrInvalidTransition
	}
	now := time.Now().UTC()
	job.Status = domain.StatusFailed
	job.FailedReason = reason
	job.FinishedAt = &now
	return nil
}

func (m *MockJobRepository) SetArtifactPath(ctx context.Context, id int64, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	if job.Status != domain.StatusCompleted || job.SuccessCount == 0 {
		return domain.ErrInvalidTransition
	}
	job.GeneratedArtifactPath = path
	return nil
}

func (m *MockJobRepository) Delete(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return false, nil
	}
	delete(m.jobs, id)
	return true, nil
}

// Put stores job as-is, bypassing Create. Useful for arranging a specific state.
func (m *MockJobRepository) Put(job *domain.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.ID > m.nextID {
		m.nextID = job.ID
	}
	m.jobs[job.ID] = cloneJob(job)
}

// GetAll returns all stored jobs (for test assertions).
func (m *MockJobRepository) GetAll() []*domain.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		result = append(result, cloneJob(j))
	}
	sort.Slice(result, func(a, b int) bool { return result[a].ID < result[b].ID })
	return result
}

func cloneJob(j *domain.Job) *domain.Job {
	c := *j
	if j.Items != nil {
		c.Items = make([]domain.Item, len(j.Items))
		copy(c.Items, j.Items)
	}
	return &c
}
