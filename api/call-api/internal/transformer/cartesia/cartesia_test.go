// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_transformer_cartesia

import (
	"testing"

	"github.com/rapidaai/outreach/pkg/commons"
	"github.com/rapidaai/outreach/pkg/utils"
	"github.com/stretchr/testify/assert"
)

func newTestLogger() commons.Logger {
	l, _ := commons.NewApplicationLogger()
	return l
}

func TestNewCartesiaOption_ValidKey(t *testing.T) {
	opt, err := NewCartesiaOption(newTestLogger(), "test-api-key", utils.Option{})
	assert.NoError(t, err)
	assert.NotNil(t, opt)
	assert.Equal(t, "test-api-key", opt.GetKey())
}

func TestNewCartesiaOption_MissingKey(t *testing.T) {
	opt, err := NewCartesiaOption(newTestLogger(), "", utils.Option{})
	assert.Error(t, err)
	assert.Nil(t, opt)
}

func TestCartesiaGetEncoding(t *testing.T) {
	opt, _ := NewCartesiaOption(newTestLogger(), "k", utils.Option{})
	assert.Equal(t, "pcm_s16le", opt.GetEncoding())
}

func TestGetTextToSpeechInput_Defaults(t *testing.T) {
	opt, _ := NewCartesiaOption(newTestLogger(), "k", utils.Option{})
	input := opt.GetTextToSpeechInput("hello world", map[string]interface{}{})
	assert.Equal(t, "hello world", input.Transcript)
	assert.Equal(t, "sonic-2", input.ModelID)
	assert.Equal(t, "id", input.Voice.Mode)
	assert.Equal(t, defaultVoice, input.Voice.ID)
	assert.Equal(t, "raw", input.OutputFormat.Container)
	assert.Equal(t, "pcm_s16le", input.OutputFormat.Encoding)
	assert.Equal(t, 16000, input.OutputFormat.SampleRate)
}

func TestGetTextToSpeechInput_WithOverrides(t *testing.T) {
	opts := utils.Option{
		"speak.voice.id": "custom-voice-id",
		"speak.model":    "sonic-mini",
		"speak.language": "fr",
	}
	opt, _ := NewCartesiaOption(newTestLogger(), "k", opts)
	input := opt.GetTextToSpeechInput("bonjour", map[string]interface{}{})
	assert.Equal(t, "bonjour", input.Transcript)
	assert.Equal(t, "sonic-mini", input.ModelID)
	assert.Equal(t, "custom-voice-id", input.Voice.ID)
	assert.Equal(t, "fr", input.Language)
}

func TestGetTextToSpeechInput_WithContinueAndContextID(t *testing.T) {
	opt, _ := NewCartesiaOption(newTestLogger(), "k", utils.Option{})
	input := opt.GetTextToSpeechInput("hello", map[string]interface{}{
		"continue":   true,
		"context_id": "ctx-123",
	})
	assert.True(t, input.Continue)
	assert.Equal(t, "ctx-123", input.ContextID)
}

func TestConnectionStringCarriesKeyAndVersion(t *testing.T) {
	opt, _ := NewCartesiaOption(newTestLogger(), "secret", utils.Option{})
	cs := opt.GetTextToSpeechConnectionString()
	assert.Contains(t, cs, "wss://api.cartesia.ai/tts/websocket?")
	assert.Contains(t, cs, "api_key=secret")
	assert.Contains(t, cs, "cartesia_version=2025-04-16")
}
