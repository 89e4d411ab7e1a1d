// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rapidaai/outreach/pkg/commons"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frameSink struct {
	mu     sync.Mutex
	frames [][]int16
}

func (f *frameSink) write(pcm []int16) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	frame := make([]int16, len(pcm))
	copy(frame, pcm)
	f.frames = append(f.frames, frame)
	return nil
}

func (f *frameSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func newTestPlayout(t *testing.T) (*playoutController, *frameSink) {
	t.Helper()
	logger, err := commons.NewApplicationLogger(commons.WithLevel("error"))
	require.NoError(t, err)
	sink := &frameSink{}
	p := newPlayoutController(logger, sink.write)
	t.Cleanup(p.Close)
	return p, sink
}

func TestPlayoutDrainsAndBecomesIdle(t *testing.T) {
	p, sink := newTestPlayout(t)

	p.Begin("ctx-1")
	p.Enqueue("ctx-1", make([]int16, frameSamples*3))
	p.Complete("ctx-1")
	assert.True(t, p.Speaking())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.WaitIdle(ctx))
	assert.False(t, p.Speaking())
	assert.Equal(t, 3, sink.count())
}

func TestPlayoutPadsFinalPartialFrame(t *testing.T) {
	p, sink := newTestPlayout(t)

	p.Begin("ctx-1")
	p.Enqueue("ctx-1", make([]int16, frameSamples+frameSamples/2))
	p.Complete("ctx-1")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.WaitIdle(ctx))
	assert.Equal(t, 2, sink.count())
}

func TestPlayoutDropsStaleContext(t *testing.T) {
	p, _ := newTestPlayout(t)

	p.Begin("ctx-2")
	p.Enqueue("ctx-1", make([]int16, frameSamples*10))
	p.Complete("ctx-1")
	p.Complete("ctx-2")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	// Stale audio was dropped, so the new context is already empty.
	require.NoError(t, p.WaitIdle(ctx))
}

func TestPlayoutCancelFlushesImmediately(t *testing.T) {
	p, sink := newTestPlayout(t)

	p.Begin("ctx-1")
	p.Enqueue("ctx-1", make([]int16, frameSamples*500))
	p.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.WaitIdle(ctx))
	// Far fewer than the 500 queued frames were written.
	assert.Less(t, sink.count(), 5)
}

func TestWaitIdleWhenNeverStarted(t *testing.T) {
	p, _ := newTestPlayout(t)
	assert.NoError(t, p.WaitIdle(context.Background()))
}

func TestBeginSupersedesPreviousContext(t *testing.T) {
	p, _ := newTestPlayout(t)

	p.Begin("ctx-1")
	p.Enqueue("ctx-1", make([]int16, frameSamples*100))
	p.Begin("ctx-2")
	p.Complete("ctx-2")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.WaitIdle(ctx))
}
