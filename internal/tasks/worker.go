package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/garnizeh/ats/internal/models"
	"github.com/garnizeh/ats/pkg/repository"
)

// WorkerPool runs queued tasks from the tasks table. Failed tasks are retried
// with backoff and moved to the dead-letter table once they run out of
// attempts.
type WorkerPool struct {
	repo        repository.TaskRepo
	handlers    map[string]Handler
	logger      *slog.Logger
	workerCount int
	idle        time.Duration

	wake     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewWorkerPool(repo repository.TaskRepo, handlers map[string]Handler, logger *slog.Logger, workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerPool{
		repo:        repo,
		handlers:    handlers,
		logger:      logger,
		workerCount: workerCount,
		idle:        500 * time.Millisecond,
		wake:        make(chan struct{}, 1),
		stop:        make(chan struct{}),
	}
}

// Start launches the worker goroutines
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop signals workers to stop and waits for them
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			p.logger.Info("worker stopping", "id", id)
			return
		case <-ctx.Done():
			p.logger.Info("context canceled, worker exiting", "id", id)
			return
		default:
		}

		t, err := p.repo.ClaimNext(ctx)
		if err != nil {
			if ctx.Err() == nil {
				p.logger.Error("claim task", "err", err)
			}
			p.pause(ctx, time.Second)
			continue
		}
		if t == nil {
			p.pause(ctx, p.idle)
			continue
		}
		p.run(ctx, t)
	}
}

// pause waits for d, a wake-up from Enqueue, or shutdown.
func (p *WorkerPool) pause(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-p.wake:
	case <-p.stop:
	case <-ctx.Done():
	}
}

func (p *WorkerPool) run(ctx context.Context, t *models.Task) {
	h, ok := p.handlers[t.Type]
	if !ok {
		t.Status = "failed"
		t.LastError = "no handler"
		if err := p.repo.MoveToDeadLetter(ctx, t); err != nil {
			p.logger.Error("move to dead letter", "task", t.ID, "err", err)
		}
		return
	}

	err := h(ctx, t)
	if err == nil {
		t.Status = "done"
		if upErr := p.repo.UpdateTask(ctx, t); upErr != nil {
			p.logger.Error("mark task done", "task", t.ID, "err", upErr)
		}
		return
	}

	t.Attempts++
	t.LastError = err.Error()
	if t.Attempts >= t.MaxAttempts {
		t.Status = "failed"
		p.logger.Warn("task failed permanently", "task", t.ID, "type", t.Type, "err", err)
		if mvErr := p.repo.MoveToDeadLetter(ctx, t); mvErr != nil {
			p.logger.Error("move to dead letter", "task", t.ID, "err", mvErr)
		}
		return
	}

	next := time.Now().Add(BackoffDuration(t.Attempts))
	t.NextTryAt = &next
	t.Status = "retry"
	if upErr := p.repo.UpdateTask(ctx, t); upErr != nil {
		p.logger.Error("update task for retry", "task", t.ID, "err", upErr)
	}
}

// Enqueue persists a task and wakes an idle worker.
func (p *WorkerPool) Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("encode payload: %w", err)
	}
	id, err := p.repo.Enqueue(ctx, &models.Task{Type: typ, Payload: b, Priority: priority, MaxAttempts: maxAttempts, ScheduledAt: time.Now()})
	if err != nil {
		return 0, err
	}
	select {
	case p.wake <- struct{}{}:
	default:
	}
	return id, nil
}
