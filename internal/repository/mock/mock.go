package mock

import (
	"context"
	"sync"

	"github.com/Harsh-BH/certqueue/internal/domain"
	"github.com/Harsh-BH/certqueue/internal/repository"
)

// ---- ReferenceRepository mock ----

var _ repository.ReferenceRepository = (*ReferenceRepository)(nil)

// ReferenceRepository is an in-memory test double for repository.ReferenceRepository.
type ReferenceRepository struct {
	mu      sync.Mutex
	records map[string]*domain.ReferenceRecord

	GetByCertificatesFn func(ctx context.Context, certs []string) (map[string]*domain.ReferenceRecord, error)

	LookupCalls int
}

// NewReferenceRepository creates a reference double pre-loaded with recs.
func NewReferenceRepository(recs ...*domain.ReferenceRecord) *ReferenceRepository {
	m := &ReferenceRepository{records: make(map[string]*domain.ReferenceRecord)}
	for _, r := range recs {
		m.records[r.CertificateNumber] = r
	}
	return m
}

func (m *ReferenceRepository) GetByCertificate(ctx context.Context, cert string) (*domain.ReferenceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[cert]
	if !ok {
		return nil, domain.ErrReferenceNotFound
	}
	return rec, nil
}

func (m *ReferenceRepository) GetByCertificates(ctx context.Context, certs []string) (map[string]*domain.ReferenceRecord, error) {
	m.mu.Lock()
	m.LookupCalls++
	m.mu.Unlock()
	if m.GetByCertificatesFn != nil {
		return m.GetByCertificatesFn(ctx, certs)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*domain.ReferenceRecord, len(certs))
	for _, c := range certs {
		if rec, ok := m.records[c]; ok {
			out[c] = rec
		}
	}
	return out, nil
}

func (m *ReferenceRepository) CreateIfAbsent(ctx context.Context, rec *domain.ReferenceRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.CertificateNumber]; ok {
		return false, nil
	}
	m.records[rec.CertificateNumber] = rec
	return true, nil
}

// Len returns the number of stored records.
func (m *ReferenceRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// ---- LeaseStore mock ----

var _ repository.LeaseStore = (*LeaseStore)(nil)

// LeaseStore is a test double for repository.LeaseStore. By default every
// key can be held once until dropped or released.
type LeaseStore struct {
	mu   sync.Mutex
	held map[string]bool

	AcquireFn func(ctx context.Context, key string) (bool, error)

	AcquireCalls []string
	ReleaseCalls []string
	DropCalls    []string
}

func (m *LeaseStore) Acquire(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	m.AcquireCalls = append(m.AcquireCalls, key)
	m.mu.Unlock()
	if m.AcquireFn != nil {
		return m.AcquireFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held == nil {
		m.held = make(map[string]bool)
	}
	if m.held[key] {
		return false, nil
	}
	m.held[key] = true
	return true, nil
}

func (m *LeaseStore) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReleaseCalls = append(m.ReleaseCalls, key)
	return nil
}

func (m *LeaseStore) Drop(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DropCalls = append(m.DropCalls, key)
	delete(m.held, key)
	return nil
}

// ---- Verifier mock ----

var _ repository.Verifier = (*Verifier)(nil)

// Verifier is a test double for repository.Verifier. Known certificates
// verify; everything else is reported as not found.
type Verifier struct {
	mu sync.Mutex

	Known    map[string]bool
	VerifyFn func(ctx context.Context, cert string) (bool, error)

	VerifyCalls []string
}

func (m *Verifier) Verify(ctx context.Context, cert string) (bool, error) {
	m.mu.Lock()
	m.VerifyCalls = append(m.VerifyCalls, cert)
	m.mu.Unlock()
	if m.VerifyFn != nil {
		return m.VerifyFn(ctx, cert)
	}
	return m.Known[cert], nil
}

// Calls returns a copy of the recorded certificates.
func (m *Verifier) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.VerifyCalls))
	copy(out, m.VerifyCalls)
	return out
}
