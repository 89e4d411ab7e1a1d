// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_pipeline

import (
	"sync"

	"github.com/streamer45/silero-vad-go/speech"

	"github.com/rapidaai/outreach/pkg/commons"
)

// vadWindowSamples is the silero analysis window at 16kHz.
const vadWindowSamples = 512

// voiceDetector wraps the silero model for barge-in detection: it watches
// the callee's audio and reports when speech starts.
type voiceDetector struct {
	mu       sync.Mutex
	logger   commons.Logger
	detector *speech.Detector
	buffer   []float32
}

// newVoiceDetector loads the silero model. A load failure disables barge-in
// rather than failing the call; the conversation still works, interruptions
// just will not cut the agent off.
func newVoiceDetector(logger commons.Logger, modelPath string) *voiceDetector {
	if modelPath == "" {
		logger.Warn("no VAD model path configured, barge-in disabled")
		return &voiceDetector{logger: logger}
	}
	detector, err := speech.NewDetector(speech.DetectorConfig{
		ModelPath:            modelPath,
		SampleRate:           vendorSampleRate,
		Threshold:            0.5,
		MinSilenceDurationMs: 250,
		SpeechPadMs:          30,
	})
	if err != nil {
		logger.Warn("failed to load VAD model, barge-in disabled",
			"model", modelPath, "error", err.Error())
		return &voiceDetector{logger: logger}
	}
	return &voiceDetector{logger: logger, detector: detector}
}

// Process feeds callee PCM and reports whether speech was detected in any
// complete analysis window.
func (v *voiceDetector) Process(pcm []float32) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.detector == nil {
		return false
	}
	v.buffer = append(v.buffer, pcm...)
	speaking := false
	for len(v.buffer) >= vadWindowSamples {
		window := v.buffer[:vadWindowSamples]
		v.buffer = v.buffer[vadWindowSamples:]
		segments, err := v.detector.Detect(window)
		if err != nil {
			continue
		}
		if len(segments) > 0 {
			speaking = true
		}
	}
	return speaking
}

func (v *voiceDetector) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.detector != nil {
		_ = v.detector.Destroy()
		v.detector = nil
	}
}
