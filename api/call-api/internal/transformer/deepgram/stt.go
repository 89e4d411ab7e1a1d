// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_transformer_deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	internal_transformer "github.com/rapidaai/outreach/api/call-api/internal/transformer"
	"github.com/rapidaai/outreach/pkg/commons"
	"github.com/rapidaai/outreach/pkg/utils"
)

// keepAliveInterval keeps the live-listen socket open through silences.
const keepAliveInterval = 5 * time.Second

type deepgramSpeechToText struct {
	*deepgramOption
	mu                 sync.Mutex
	ctx                context.Context
	logger             commons.Logger
	connection         *websocket.Conn
	transformerOptions *internal_transformer.SpeechToTextInitializeOptions
}

// speechToTextOutput is the live-listen result envelope.
type speechToTextOutput struct {
	Type        string `json:"type"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`
	Channel     struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
		Languages []string `json:"languages"`
	} `json:"channel"`
}

// NewDeepgramSpeechToText builds the live recognition adapter.
func NewDeepgramSpeechToText(
	ctx context.Context,
	logger commons.Logger,
	apiKey string,
	opts utils.Option,
	transformerOptions *internal_transformer.SpeechToTextInitializeOptions,
) (internal_transformer.SpeechToTextTransformer, error) {
	deepgramOpts, err := NewDeepgramOption(logger, apiKey, opts)
	if err != nil {
		logger.Errorf("deepgram-stt: initializing deepgram failed %+v", err)
		return nil, err
	}
	return &deepgramSpeechToText{
		deepgramOption:     deepgramOpts,
		ctx:                ctx,
		logger:             logger,
		transformerOptions: transformerOptions,
	}, nil
}

// Name implements internal_transformer.SpeechToTextTransformer.
func (*deepgramSpeechToText) Name() string {
	return "deepgram-speech-to-text"
}

func (dst *deepgramSpeechToText) Initialize() error {
	dst.mu.Lock()
	defer dst.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.Dial(
		dst.GetSpeechToTextConnectionString(), dst.GetSpeechToTextHeader())
	if err != nil {
		return fmt.Errorf("deepgram-stt: failed to connect to Deepgram WebSocket: %w", err)
	}
	dst.connection = conn
	go dst.speechToTextCallback(dst.ctx)
	go dst.keepAlive(dst.ctx)
	return nil
}

func (dst *deepgramSpeechToText) speechToTextCallback(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			dst.logger.Infof("deepgram-stt: context cancelled, stopping response listener")
			return
		default:
			_, msg, err := dst.connection.ReadMessage()
			if err != nil {
				return
			}
			var resp speechToTextOutput
			if err := json.Unmarshal(msg, &resp); err != nil {
				dst.logger.Errorf("deepgram-stt: invalid json from deepgram error: %v", err)
				continue
			}
			if resp.Type != "Results" || len(resp.Channel.Alternatives) == 0 {
				continue
			}
			alt := resp.Channel.Alternatives[0]
			if alt.Transcript == "" {
				continue
			}
			language := ""
			if len(resp.Channel.Languages) > 0 {
				language = resp.Channel.Languages[0]
			}
			if dst.transformerOptions.OnTranscript != nil {
				_ = dst.transformerOptions.OnTranscript(
					alt.Transcript,
					alt.Confidence,
					language,
					resp.IsFinal,
				)
			}
		}
	}
}

// keepAlive pings the socket so deepgram does not drop it during long
// stretches of callee silence.
func (dst *deepgramSpeechToText) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dst.mu.Lock()
			conn := dst.connection
			if conn == nil {
				dst.mu.Unlock()
				return
			}
			err := conn.WriteJSON(map[string]string{"type": "KeepAlive"})
			dst.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (dst *deepgramSpeechToText) Transform(ctx context.Context, in []byte, opts *internal_transformer.SpeechToTextOption) error {
	dst.mu.Lock()
	defer dst.mu.Unlock()

	if dst.connection == nil {
		return fmt.Errorf("deepgram-stt: websocket connection is not initialized")
	}
	if err := dst.connection.WriteMessage(websocket.BinaryMessage, in); err != nil {
		return fmt.Errorf("failed to send audio data: %w", err)
	}
	return nil
}

func (dst *deepgramSpeechToText) Close(ctx context.Context) error {
	dst.mu.Lock()
	defer dst.mu.Unlock()

	if dst.connection != nil {
		// Ask for a graceful end of stream before dropping the socket.
		_ = dst.connection.WriteJSON(map[string]string{"type": "CloseStream"})
		if err := dst.connection.Close(); err != nil {
			return fmt.Errorf("error closing WebSocket connection: %w", err)
		}
		dst.connection = nil
		dst.logger.Info("deepgram-stt: deepgram websocket connection closed")
	}
	return nil
}
