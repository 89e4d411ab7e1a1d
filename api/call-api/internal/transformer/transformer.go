// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package internal_transformer defines the vendor-adapter contracts of the
// voice pipeline: speech recognition in, synthesized speech out, and the
// conversational model in between. Each vendor lives in its own subpackage
// behind these interfaces.
package internal_transformer

import (
	"context"
)

// OnTranscript receives recognition results as they stream in. isFinal
// distinguishes utterance-final results from interim ones.
type OnTranscript func(text string, confidence float64, language string, isFinal bool) error

// SpeechToTextInitializeOptions configures a recognition stream.
type SpeechToTextInitializeOptions struct {
	OnTranscript OnTranscript
}

// SpeechToTextOption carries per-chunk options. Empty today; kept so the
// Transform signature stays stable across vendors.
type SpeechToTextOption struct{}

// SpeechToTextTransformer is a streaming speech recognizer.
type SpeechToTextTransformer interface {
	Name() string
	Initialize() error
	// Transform submits one chunk of PCM audio.
	Transform(ctx context.Context, in []byte, opts *SpeechToTextOption) error
	Close(ctx context.Context) error
}

// OnSpeech receives synthesized PCM audio chunks for a context id.
type OnSpeech func(contextId string, audio []byte) error

// OnSpeechComplete signals that synthesis for a context id finished.
type OnSpeechComplete func(contextId string) error

// TextToSpeechInitializeOptions configures a synthesis stream.
type TextToSpeechInitializeOptions struct {
	OnSpeech   OnSpeech
	OnComplete OnSpeechComplete
}

// TextToSpeechOption carries per-utterance options.
type TextToSpeechOption struct {
	// ContextId groups chunks of one utterance; audio for a stale context is
	// discarded by the caller on barge-in.
	ContextId string
	// IsComplete marks the final text fragment of the utterance.
	IsComplete bool
}

// TextToSpeechTransformer is a streaming speech synthesizer.
type TextToSpeechTransformer interface {
	Name() string
	Initialize() error
	Transform(ctx context.Context, in string, opts *TextToSpeechOption) error
	Close(ctx context.Context) error
}

// ToolDefinition describes one function the model may invoke.
type ToolDefinition struct {
	Name        string
	Description string
}

// OnAssistantText receives the model's spoken reply for one turn.
type OnAssistantText func(text string) error

// OnToolCall is invoked when the model calls a tool; the returned string is
// fed back to the model as the tool result.
type OnToolCall func(name string, arguments string) (string, error)

// ConversationInitializeOptions configures the conversational model.
type ConversationInitializeOptions struct {
	Instructions    string
	Tools           []ToolDefinition
	OnAssistantText OnAssistantText
	OnToolCall      OnToolCall
}

// ConversationTransformer is the turn-based language model of the pipeline.
// Implementations own the conversation history.
type ConversationTransformer interface {
	Name() string
	// Respond appends the user turn and produces the model's reply, invoking
	// the tool callback for any tool calls before the final text.
	Respond(ctx context.Context, userText string) error
	Close(ctx context.Context) error
}
