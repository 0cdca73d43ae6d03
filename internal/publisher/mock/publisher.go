package mock

import (
	"context"
	"sync"

	"github.com/Harsh-BH/certqueue/internal/domain"
	"github.com/Harsh-BH/certqueue/internal/publisher"
)

// Ensure MockPublisher implements publisher.Publisher.
var _ publisher.Publisher = (*MockPublisher)(nil)

// MockPublisher records published tasks.
type MockPublisher struct {
	mu        sync.Mutex
	Published []*domain.Task
	PublishFn func(ctx context.Context, task *domain.Task) error
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, task *domain.Task) error {
	if m.PublishFn != nil {
		return m.PublishFn(ctx, task)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, task)
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}
