// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rapidaai/outreach/pkg/commons"
)

var (
	// ErrRunnerClosed is returned by Submit after shutdown began.
	ErrRunnerClosed = errors.New("agent runner is shutting down")
	// ErrQueueFull is returned when the dispatch queue has no capacity.
	ErrQueueFull = errors.New("agent runner queue is full")
)

// Task is one unit of agent work, typically a full call session.
type Task struct {
	Id  string
	Run func(ctx context.Context) error
}

// Runner executes dispatched agent tasks on a bounded worker pool. Each
// task runs its own call session end to end; the pool caps how many calls
// are in flight at once.
type Runner struct {
	logger      commons.Logger
	concurrency int

	tasks  chan Task
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	// mu orders Submit's send against the channel close in Shutdown.
	mu     sync.Mutex
	closed bool

	active atomic.Int32
}

// NewRunner builds a runner with the given worker count and queue depth.
func NewRunner(logger commons.Logger, concurrency, queueDepth int) *Runner {
	if concurrency <= 0 {
		concurrency = 1
	}
	if queueDepth <= 0 {
		queueDepth = concurrency
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		logger:      logger,
		concurrency: concurrency,
		tasks:       make(chan Task, queueDepth),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start launches the worker pool.
func (r *Runner) Start() {
	for i := 0; i < r.concurrency; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	r.logger.Info("agent runner started", "workers", r.concurrency, "queue", cap(r.tasks))
}

// Submit enqueues a task without blocking. A full queue is a client-visible
// error so the caller can shed load instead of stacking calls.
func (r *Runner) Submit(task Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRunnerClosed
	}
	select {
	case r.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Active reports how many tasks are currently executing.
func (r *Runner) Active() int {
	return int(r.active.Load())
}

// Shutdown stops accepting tasks and waits for in-flight ones, bounded by
// ctx. In-flight call sessions are cancelled once ctx expires.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.tasks)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		<-done
		return fmt.Errorf("agent runner drain cut short: %w", ctx.Err())
	}
}

func (r *Runner) worker(id int) {
	defer r.wg.Done()
	for task := range r.tasks {
		r.execute(id, task)
	}
}

// execute runs one task with panic isolation: a crashing call session must
// never take down the worker, let alone the process.
func (r *Runner) execute(worker int, task Task) {
	r.active.Add(1)
	defer r.active.Add(-1)
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("agent task panicked", "worker", worker, "task", task.Id, "panic", fmt.Sprintf("%v", rec))
		}
	}()

	r.logger.Info("agent task started", "worker", worker, "task", task.Id)
	if err := task.Run(r.ctx); err != nil {
		r.logger.Error("agent task failed", "worker", worker, "task", task.Id, "error", err.Error())
		return
	}
	r.logger.Info("agent task finished", "worker", worker, "task", task.Id)
}
