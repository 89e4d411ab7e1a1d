// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_transformer_deepgram

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rapidaai/outreach/pkg/commons"
	"github.com/rapidaai/outreach/pkg/utils"
)

const speechToTextEndpoint = "wss://api.deepgram.com/v1/listen"

type deepgramOption struct {
	logger commons.Logger
	key    string

	model       string
	language    string
	sampleRate  int
	channels    int
	endpointing int
	interim     bool
	smartFormat bool
}

// NewDeepgramOption resolves the recognition parameters from the api key and
// option overrides.
func NewDeepgramOption(logger commons.Logger, apiKey string, opts utils.Option) (*deepgramOption, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepgram: api key is required")
	}

	o := &deepgramOption{
		logger:      logger,
		key:         apiKey,
		model:       "nova-3",
		language:    "en-US",
		sampleRate:  16000,
		channels:    1,
		endpointing: 300,
		interim:     true,
		smartFormat: true,
	}
	if model, err := opts.GetString("listen.model"); err == nil && model != "" {
		o.model = model
	}
	if language, err := opts.GetString("listen.language"); err == nil && language != "" {
		o.language = language
	}
	return o, nil
}

func (o *deepgramOption) GetKey() string {
	return o.key
}

// GetEncoding returns the raw audio encoding submitted to the recognizer.
func (o *deepgramOption) GetEncoding() string {
	return "linear16"
}

func (o *deepgramOption) GetSampleRate() int {
	return o.sampleRate
}

// GetSpeechToTextConnectionString builds the live-listen websocket url.
func (o *deepgramOption) GetSpeechToTextConnectionString() string {
	params := url.Values{}
	params.Set("model", o.model)
	params.Set("language", o.language)
	params.Set("encoding", o.GetEncoding())
	params.Set("sample_rate", strconv.Itoa(o.sampleRate))
	params.Set("channels", strconv.Itoa(o.channels))
	params.Set("endpointing", strconv.Itoa(o.endpointing))
	params.Set("interim_results", strconv.FormatBool(o.interim))
	params.Set("smart_format", strconv.FormatBool(o.smartFormat))
	params.Set("punctuate", "true")
	return fmt.Sprintf("%s?%s", speechToTextEndpoint, params.Encode())
}

// GetSpeechToTextHeader carries the websocket auth header.
func (o *deepgramOption) GetSpeechToTextHeader() http.Header {
	header := http.Header{}
	header.Set("Authorization", "Token "+o.key)
	return header
}
