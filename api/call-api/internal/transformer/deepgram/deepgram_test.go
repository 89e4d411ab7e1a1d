// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_transformer_deepgram

import (
	"testing"

	"github.com/rapidaai/outreach/pkg/commons"
	"github.com/rapidaai/outreach/pkg/utils"
	"github.com/stretchr/testify/assert"
)

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	l, _ := commons.NewApplicationLogger()
	return l
}

func TestNewDeepgramOption_ValidKey(t *testing.T) {
	opt, err := NewDeepgramOption(newTestLogger(t), "test-api-key", utils.Option{})
	assert.NoError(t, err)
	assert.NotNil(t, opt)
	assert.Equal(t, "test-api-key", opt.GetKey())
}

func TestNewDeepgramOption_MissingKey(t *testing.T) {
	opt, err := NewDeepgramOption(newTestLogger(t), "", utils.Option{})
	assert.Error(t, err)
	assert.Nil(t, opt)
}

func TestDeepgramGetEncoding(t *testing.T) {
	opt, _ := NewDeepgramOption(newTestLogger(t), "k", utils.Option{})
	assert.Equal(t, "linear16", opt.GetEncoding())
	assert.Equal(t, 16000, opt.GetSampleRate())
}

func TestConnectionString_Defaults(t *testing.T) {
	opt, _ := NewDeepgramOption(newTestLogger(t), "k", utils.Option{})
	cs := opt.GetSpeechToTextConnectionString()

	assert.Contains(t, cs, "wss://api.deepgram.com/v1/listen?")
	assert.Contains(t, cs, "model=nova-3")
	assert.Contains(t, cs, "language=en-US")
	assert.Contains(t, cs, "encoding=linear16")
	assert.Contains(t, cs, "sample_rate=16000")
	assert.Contains(t, cs, "interim_results=true")
	assert.Contains(t, cs, "endpointing=300")
	assert.Contains(t, cs, "smart_format=true")
}

func TestConnectionString_Overrides(t *testing.T) {
	opt, _ := NewDeepgramOption(newTestLogger(t), "k", utils.Option{
		"listen.model":    "nova-2",
		"listen.language": "es",
	})
	cs := opt.GetSpeechToTextConnectionString()
	assert.Contains(t, cs, "model=nova-2")
	assert.Contains(t, cs, "language=es")
}

func TestSpeechToTextHeader(t *testing.T) {
	opt, _ := NewDeepgramOption(newTestLogger(t), "secret", utils.Option{})
	header := opt.GetSpeechToTextHeader()
	assert.Equal(t, "Token secret", header.Get("Authorization"))
}
