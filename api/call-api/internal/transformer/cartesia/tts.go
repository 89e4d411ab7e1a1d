// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_transformer_cartesia

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	internal_transformer "github.com/rapidaai/outreach/api/call-api/internal/transformer"
	"github.com/rapidaai/outreach/pkg/commons"
	"github.com/rapidaai/outreach/pkg/utils"
)

type cartesiaTTS struct {
	*cartesiaOption
	mu         sync.Mutex
	ctx        context.Context
	logger     commons.Logger
	connection *websocket.Conn
	options    *internal_transformer.TextToSpeechInitializeOptions
}

// NewCartesiaTextToSpeech builds the streaming synthesis adapter.
func NewCartesiaTextToSpeech(
	ctx context.Context,
	logger commons.Logger,
	apiKey string,
	opts utils.Option,
	transformerOptions *internal_transformer.TextToSpeechInitializeOptions,
) (internal_transformer.TextToSpeechTransformer, error) {
	cartesiaOpts, err := NewCartesiaOption(logger, apiKey, opts)
	if err != nil {
		logger.Errorf("cartesia-tts: initializing cartesia failed %+v", err)
		return nil, err
	}
	return &cartesiaTTS{
		cartesiaOption: cartesiaOpts,
		ctx:            ctx,
		logger:         logger,
		options:        transformerOptions,
	}, nil
}

// Name returns the name of this transformer.
func (*cartesiaTTS) Name() string {
	return "cartesia-text-to-speech"
}

func (ct *cartesiaTTS) Initialize() error {
	conn, _, err := websocket.DefaultDialer.Dial(ct.GetTextToSpeechConnectionString(), nil)
	if err != nil {
		return fmt.Errorf("cartesia-tts: failed to connect to Cartesia WebSocket: %w", err)
	}
	ct.connection = conn
	go ct.textToSpeechCallback(ct.ctx)
	return nil
}

func (ct *cartesiaTTS) textToSpeechCallback(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			ct.logger.Infof("cartesia-tts: context cancelled, stopping response listener")
			return
		default:
			_, msg, err := ct.connection.ReadMessage()
			if err != nil {
				return
			}
			var payload TextToSpeechOutput
			if err := json.Unmarshal(msg, &payload); err != nil {
				ct.logger.Errorf("cartesia-tts: invalid json from cartesia error: %v", err)
				continue
			}
			if payload.Done {
				if ct.options.OnComplete != nil {
					_ = ct.options.OnComplete(payload.ContextID)
				}
				continue
			}
			if payload.Data == "" {
				continue
			}
			decoded, err := base64.StdEncoding.DecodeString(payload.Data)
			if err != nil {
				ct.logger.Errorf("cartesia-tts: failed to decode audio payload error: %v", err)
				continue
			}
			if ct.options.OnSpeech != nil {
				_ = ct.options.OnSpeech(payload.ContextID, decoded)
			}
		}
	}
}

func (ct *cartesiaTTS) Transform(ctx context.Context, in string, opts *internal_transformer.TextToSpeechOption) error {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	if ct.connection == nil {
		return fmt.Errorf("cartesia-tts: websocket connection is not initialized")
	}
	message := ct.GetTextToSpeechInput(in, map[string]interface{}{
		"continue":   !opts.IsComplete,
		"context_id": opts.ContextId,
	})
	if err := ct.connection.WriteJSON(message); err != nil {
		return err
	}
	return nil
}

func (ct *cartesiaTTS) Close(ctx context.Context) error {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	if ct.connection != nil {
		_ = ct.connection.Close()
		ct.connection = nil
	}
	return nil
}
