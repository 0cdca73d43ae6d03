package pool

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Harsh-BH/certqueue/internal/domain"
	"github.com/Harsh-BH/certqueue/internal/metrics"
	"github.com/Harsh-BH/certqueue/internal/usecase"
)

// WorkerPool manages a fixed-size pool of goroutines that process task deliveries.
type WorkerPool struct {
	size      int
	tasks     <-chan *domain.TaskMessage
	processUC *usecase.ProcessJobUsecase
	logger    *zap.Logger
	wg        sync.WaitGroup
}

// NewWorkerPool creates a new fixed-size worker pool.
func NewWorkerPool(size int, tasks <-chan *domain.TaskMessage, processUC *usecase.ProcessJobUsecase, logger *zap.Logger) *WorkerPool {
	return &WorkerPool{
		size:      size,
		tasks:     tasks,
		processUC: processUC,
		logger:    logger,
	}
}

// Start launches all worker goroutines. Call Stop to wait for them to finish.
func (p *WorkerPool) Start(ctx context.Context) {
	p.logger.Info("Starting worker pool", zap.Int("pool_size", p.size))

	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop waits for all workers to finish their current job and exit.
func (p *WorkerPool) Stop() {
	p.wg.Wait()
	p.logger.Info("Worker pool stopped")
}

// worker stops taking deliveries once ctx is cancelled. A job already
// started runs to completion.
func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	p.logger.Debug("Worker started", zap.Int("worker_id", id))

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("Worker shutting down", zap.Int("worker_id", id))
			return
		case msg, ok := <-p.tasks:
			if !ok {
				p.logger.Debug("Task channel closed", zap.Int("worker_id", id))
				return
			}
			p.handle(context.WithoutCancel(ctx), id, msg)
		}
	}
}

func (p *WorkerPool) handle(ctx context.Context, id int, msg *domain.TaskMessage) {
	task := msg.Task
	log := p.logger.With(zap.Int("worker_id", id), zap.Int64("job_id", task.JobID))

	metrics.WorkersActive.Inc()
	defer metrics.WorkersActive.Dec()

	isDuplicate, err := p.process(ctx, task)
	if err != nil {
		log.Error("Job processing failed", zap.Error(err))

		// Nack without requeue: the delivery goes to the DLQ.
		if nackErr := msg.Nack(false); nackErr != nil {
			log.Error("Failed to NACK message", zap.Error(nackErr))
		}
		return
	}

	if isDuplicate {
		log.Debug("Duplicate delivery skipped")
	}
	if ackErr := msg.Ack(); ackErr != nil {
		log.Error("Failed to ACK message", zap.Error(ackErr))
	}
}

// process runs the use case and turns a panic into an error.
func (p *WorkerPool) process(ctx context.Context, task *domain.Task) (isDuplicate bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.processUC.Execute(ctx, task)
}
