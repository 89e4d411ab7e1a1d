// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_transformer_cartesia

import (
	"fmt"
	"net/url"

	"github.com/rapidaai/outreach/pkg/commons"
	"github.com/rapidaai/outreach/pkg/utils"
)

const (
	textToSpeechEndpoint = "wss://api.cartesia.ai/tts/websocket"
	cartesiaVersion      = "2025-04-16"

	defaultModel = "sonic-2"
	defaultVoice = "c2ac25f9-ecc4-4f56-9095-651354df60c0"
)

type cartesiaOption struct {
	logger commons.Logger
	key    string

	model      string
	voiceId    string
	language   string
	sampleRate int
}

// NewCartesiaOption resolves the synthesis parameters from the api key and
// option overrides.
func NewCartesiaOption(logger commons.Logger, apiKey string, opts utils.Option) (*cartesiaOption, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("cartesia: api key is required")
	}

	o := &cartesiaOption{
		logger:     logger,
		key:        apiKey,
		model:      defaultModel,
		voiceId:    defaultVoice,
		language:   "en",
		sampleRate: 16000,
	}
	if model, err := opts.GetString("speak.model"); err == nil && model != "" {
		o.model = model
	}
	if voice, err := opts.GetString("speak.voice.id"); err == nil && voice != "" {
		o.voiceId = voice
	}
	if language, err := opts.GetString("speak.language"); err == nil && language != "" {
		o.language = language
	}
	return o, nil
}

func (o *cartesiaOption) GetKey() string {
	return o.key
}

// GetEncoding returns the raw audio encoding produced by the synthesizer.
func (o *cartesiaOption) GetEncoding() string {
	return "pcm_s16le"
}

func (o *cartesiaOption) GetSampleRate() int {
	return o.sampleRate
}

// GetTextToSpeechConnectionString builds the synthesis websocket url.
func (o *cartesiaOption) GetTextToSpeechConnectionString() string {
	params := url.Values{}
	params.Set("api_key", o.key)
	params.Set("cartesia_version", cartesiaVersion)
	return fmt.Sprintf("%s?%s", textToSpeechEndpoint, params.Encode())
}

// textToSpeechVoice selects the synthesis voice.
type textToSpeechVoice struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

// textToSpeechOutputFormat describes the raw PCM stream requested.
type textToSpeechOutputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
}

// TextToSpeechInput is one synthesis request frame.
type TextToSpeechInput struct {
	ModelID      string                   `json:"model_id"`
	Transcript   string                   `json:"transcript"`
	Voice        textToSpeechVoice        `json:"voice"`
	Language     string                   `json:"language,omitempty"`
	OutputFormat textToSpeechOutputFormat `json:"output_format"`
	Continue     bool                     `json:"continue"`
	ContextID    string                   `json:"context_id,omitempty"`
}

// TextToSpeechOutput is one synthesis response frame. Data carries base64
// PCM; Done marks the end of a context.
type TextToSpeechOutput struct {
	Type      string `json:"type"`
	Data      string `json:"data"`
	Done      bool   `json:"done"`
	ContextID string `json:"context_id"`
}

// GetTextToSpeechInput builds a request frame for the given text.
func (o *cartesiaOption) GetTextToSpeechInput(text string, overrides map[string]interface{}) *TextToSpeechInput {
	input := &TextToSpeechInput{
		ModelID:    o.model,
		Transcript: text,
		Voice: textToSpeechVoice{
			Mode: "id",
			ID:   o.voiceId,
		},
		Language: o.language,
		OutputFormat: textToSpeechOutputFormat{
			Container:  "raw",
			Encoding:   o.GetEncoding(),
			SampleRate: o.sampleRate,
		},
	}
	if cont, ok := overrides["continue"].(bool); ok {
		input.Continue = cont
	}
	if contextId, ok := overrides["context_id"].(string); ok {
		input.ContextID = contextId
	}
	return input
}
