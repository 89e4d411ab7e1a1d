// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rapidaai/outreach/pkg/commons"
)

const (
	frameDuration = 20 * time.Millisecond
	// samples per frame at the vendor rate (16kHz mono, 20ms).
	frameSamples = vendorSampleRate / 50
)

// playoutController paces synthesized audio onto the room track one frame
// at a time, so barge-in can cut playback off mid-utterance by flushing
// what has not been written yet.
type playoutController struct {
	mu     sync.Mutex
	logger commons.Logger

	// write delivers one vendor-rate frame to the room track.
	write func(pcm []int16) error

	currentId string
	buffer    []int16
	synthDone bool
	active    bool
	idleCh    chan struct{}

	stop     chan struct{}
	stopOnce sync.Once
}

func newPlayoutController(logger commons.Logger, write func(pcm []int16) error) *playoutController {
	p := &playoutController{
		logger: logger,
		write:  write,
		stop:   make(chan struct{}),
	}
	go p.run()
	return p
}

// Begin starts a new playout context, superseding any previous one.
func (p *playoutController) Begin(contextId string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentId = contextId
	p.buffer = nil
	p.synthDone = false
	if !p.active {
		p.active = true
		p.idleCh = make(chan struct{})
	}
}

// Enqueue appends synthesized PCM for the context; stale contexts are
// dropped.
func (p *playoutController) Enqueue(contextId string, pcm []int16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if contextId != p.currentId {
		return
	}
	p.buffer = append(p.buffer, pcm...)
}

// Complete marks that synthesis finished for the context; playout becomes
// idle once the buffered audio drains.
func (p *playoutController) Complete(contextId string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if contextId != p.currentId {
		return
	}
	p.synthDone = true
}

// Cancel flushes pending audio immediately (barge-in).
func (p *playoutController) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.currentId == "" && !p.active {
		return
	}
	p.currentId = ""
	p.buffer = nil
	p.synthDone = false
	p.becomeIdleLocked()
}

// Speaking reports whether audio is queued or playing.
func (p *playoutController) Speaking() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// WaitIdle blocks until the current playout drains or ctx is done.
func (p *playoutController) WaitIdle(ctx context.Context) error {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return nil
	}
	idle := p.idleCh
	p.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *playoutController) Close() {
	p.stopOnce.Do(func() { close(p.stop) })
}

func (p *playoutController) run() {
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.tick()
		}
	}
}

func (p *playoutController) tick() {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return
	}
	if len(p.buffer) < frameSamples {
		if !p.synthDone {
			p.mu.Unlock()
			return
		}
		if len(p.buffer) == 0 {
			p.becomeIdleLocked()
			p.mu.Unlock()
			return
		}
		// Last partial frame: pad with silence so no tail audio is lost.
	}
	frame := make([]int16, frameSamples)
	n := copy(frame, p.buffer)
	if n >= frameSamples {
		p.buffer = p.buffer[frameSamples:]
	} else {
		p.buffer = nil
	}
	p.mu.Unlock()

	if err := p.write(frame); err != nil {
		p.logger.Warn("failed to write audio frame", "error", err.Error())
	}
}

func (p *playoutController) becomeIdleLocked() {
	if p.active {
		p.active = false
		close(p.idleCh)
	}
}
