// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_pipeline

import "encoding/binary"

// The room runs opus at 48kHz; the speech vendors run linear16 at 16kHz.
// The exact 3:1 ratio keeps resampling trivial.
const (
	roomSampleRate   = 48000
	vendorSampleRate = 16000
	resampleRatio    = roomSampleRate / vendorSampleRate
)

// pcmToBytes packs little-endian 16-bit samples.
func pcmToBytes(pcm []int16) []byte {
	out := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// bytesToPCM unpacks little-endian 16-bit samples. A trailing odd byte is
// dropped.
func bytesToPCM(raw []byte) []int16 {
	n := len(raw) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return out
}

// downsampleToVendor decimates 48kHz PCM to 16kHz. Telephone audio carries
// nothing above 4kHz, so plain decimation is fine here.
func downsampleToVendor(pcm []int16) []int16 {
	out := make([]int16, 0, len(pcm)/resampleRatio)
	for i := 0; i < len(pcm); i += resampleRatio {
		out = append(out, pcm[i])
	}
	return out
}

// upsampleToRoom expands 16kHz PCM to 48kHz by sample repetition.
func upsampleToRoom(pcm []int16) []int16 {
	out := make([]int16, 0, len(pcm)*resampleRatio)
	for _, s := range pcm {
		for r := 0; r < resampleRatio; r++ {
			out = append(out, s)
		}
	}
	return out
}

// pcmToFloat32 converts to the normalized [-1, 1] form the VAD consumes.
func pcmToFloat32(pcm []int16) []float32 {
	out := make([]float32, len(pcm))
	for i, s := range pcm {
		out[i] = float32(s) / 32768.0
	}
	return out
}
