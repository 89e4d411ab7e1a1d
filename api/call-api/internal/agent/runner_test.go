// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_agent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rapidaai/outreach/pkg/commons"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger(commons.WithLevel("error"))
	require.NoError(t, err)
	return logger
}

func TestRunnerExecutesSubmittedTasks(t *testing.T) {
	r := NewRunner(testLogger(t), 2, 8)
	r.Start()

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		err := r.Submit(Task{Id: "t", Run: func(ctx context.Context) error {
			ran.Add(1)
			return nil
		}})
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))
	assert.Equal(t, int32(5), ran.Load())
}

func TestRunnerBoundsConcurrency(t *testing.T) {
	r := NewRunner(testLogger(t), 2, 16)
	r.Start()

	var peak atomic.Int32
	var current atomic.Int32
	release := make(chan struct{})
	for i := 0; i < 6; i++ {
		require.NoError(t, r.Submit(Task{Id: "t", Run: func(ctx context.Context) error {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-release
			current.Add(-1)
			return nil
		}}))
	}
	time.Sleep(50 * time.Millisecond)
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRunnerRejectsWhenQueueFull(t *testing.T) {
	r := NewRunner(testLogger(t), 1, 1)
	r.Start()

	block := make(chan struct{})
	require.NoError(t, r.Submit(Task{Id: "blocking", Run: func(ctx context.Context) error {
		<-block
		return nil
	}}))
	// Give the worker time to take the first task so the queue slot frees.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, r.Submit(Task{Id: "queued", Run: func(ctx context.Context) error { return nil }}))

	err := r.Submit(Task{Id: "overflow", Run: func(ctx context.Context) error { return nil }})
	assert.ErrorIs(t, err, ErrQueueFull)

	close(block)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))
}

func TestRunnerRejectsAfterShutdown(t *testing.T) {
	r := NewRunner(testLogger(t), 1, 1)
	r.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))

	err := r.Submit(Task{Id: "late", Run: func(ctx context.Context) error { return nil }})
	assert.ErrorIs(t, err, ErrRunnerClosed)
}

func TestRunnerSubmitRacingShutdownNeverPanics(t *testing.T) {
	r := NewRunner(testLogger(t), 2, 4)
	r.Start()

	// Submitters hammer the queue while Shutdown closes it; every outcome
	// must be a clean error, never a send on the closed channel.
	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				err := r.Submit(Task{Id: "racer", Run: func(ctx context.Context) error { return nil }})
				if errors.Is(err, ErrRunnerClosed) {
					return
				}
				select {
				case <-stop:
					return
				default:
				}
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))
	close(stop)
	wg.Wait()

	err := r.Submit(Task{Id: "late", Run: func(ctx context.Context) error { return nil }})
	assert.ErrorIs(t, err, ErrRunnerClosed)
}

func TestRunnerSurvivesPanickingTask(t *testing.T) {
	r := NewRunner(testLogger(t), 1, 4)
	r.Start()

	require.NoError(t, r.Submit(Task{Id: "boom", Run: func(ctx context.Context) error {
		panic("task exploded")
	}}))
	var ran atomic.Bool
	require.NoError(t, r.Submit(Task{Id: "after", Run: func(ctx context.Context) error {
		ran.Store(true)
		return nil
	}}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))
	assert.True(t, ran.Load())
}

func TestRunnerShutdownCutShort(t *testing.T) {
	r := NewRunner(testLogger(t), 1, 1)
	r.Start()

	require.NoError(t, r.Submit(Task{Id: "slow", Run: func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	}}))
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := r.Shutdown(ctx)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
