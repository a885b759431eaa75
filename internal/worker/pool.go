// Package worker runs a pool of goroutines that consume task messages
// from a queue broker, execute the registered task functions, and push
// results back to submitters.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/stepflow/stepflow/internal/log"
	"github.com/stepflow/stepflow/internal/queue"
	"github.com/stepflow/stepflow/pkg/task"
)

// DefaultConcurrency is the default number of worker goroutines.
const DefaultConcurrency = 4

// Pool consumes tasks from a broker and executes them through a task
// registry.
type Pool struct {
	broker      queue.Broker
	registry    *task.Registry
	logger      *slog.Logger
	concurrency int

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures a Pool.
type Option func(*Pool)

// WithConcurrency sets the number of concurrent worker goroutines.
func WithConcurrency(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// NewPool creates a worker pool.
func NewPool(broker queue.Broker, registry *task.Registry, logger *slog.Logger, opts ...Option) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		broker:      broker,
		registry:    registry,
		logger:      logger,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the worker goroutines. It returns immediately; workers
// run until Stop is called, the context is cancelled, or the broker
// closes.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("worker pool already started")
	}
	p.running = true

	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}

	p.logger.Debug("worker pool started", "concurrency", p.concurrency)
	return nil
}

// Stop signals all workers to exit and waits for in-flight tasks to
// finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel := p.cancel
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
	p.logger.Debug("worker pool stopped")
}

// worker is the consume loop for a single goroutine.
func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	logger := p.logger.With("worker", id)
	for {
		msg, err := p.broker.NextTask(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrClosed) || ctx.Err() != nil {
				return
			}
			logger.Warn("failed to dequeue task", "error", err)
			continue
		}

		res := p.execute(ctx, msg)
		if err := p.broker.Complete(ctx, res); err != nil && !errors.Is(err, queue.ErrClosed) {
			logger.Warn("failed to deliver result", log.TaskKey, msg.Name, "error", err)
		}
	}
}

// execute resolves and runs a single task, converting the outcome into a
// result message.
func (p *Pool) execute(ctx context.Context, msg *queue.TaskMessage) *queue.ResultMessage {
	start := time.Now()

	fn, err := p.registry.Lookup(msg.Name)
	if err != nil {
		return &queue.ResultMessage{TaskID: msg.ID, Err: err.Error()}
	}

	var input any
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &input); err != nil {
			return &queue.ResultMessage{TaskID: msg.ID, Err: fmt.Sprintf("decode input: %v", err)}
		}
	}

	output, err := fn(ctx, input)
	if err != nil {
		p.logger.Debug("task failed",
			log.TaskKey, msg.Name,
			log.DurationKey, time.Since(start).Milliseconds(),
			"error", err,
		)
		return &queue.ResultMessage{TaskID: msg.ID, Err: err.Error()}
	}

	payload, err := json.Marshal(output)
	if err != nil {
		return &queue.ResultMessage{TaskID: msg.ID, Err: fmt.Sprintf("encode output: %v", err)}
	}

	p.logger.Debug("task completed",
		log.TaskKey, msg.Name,
		log.DurationKey, time.Since(start).Milliseconds(),
	)
	return &queue.ResultMessage{TaskID: msg.ID, Payload: payload}
}
