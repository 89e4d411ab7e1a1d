// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_transformer_openai

import (
	"context"
	"fmt"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	internal_transformer "github.com/rapidaai/outreach/api/call-api/internal/transformer"
	"github.com/rapidaai/outreach/pkg/commons"
	"github.com/rapidaai/outreach/pkg/utils"
)

// maxToolRounds bounds the tool-call loop within one user turn so a
// misbehaving model cannot spin the conversation forever.
const maxToolRounds = 5

type openaiConversation struct {
	mu      sync.Mutex
	logger  commons.Logger
	client  openai.Client
	options *internal_transformer.ConversationInitializeOptions

	model       string
	temperature float64

	messages []openai.ChatCompletionMessageParamUnion
	tools    []openai.ChatCompletionToolParam
}

// NewOpenaiConversation builds the turn-based chat adapter. The instruction
// document becomes the system message; tool definitions are registered with
// empty argument schemas since the policy tools carry no parameters.
func NewOpenaiConversation(
	ctx context.Context,
	logger commons.Logger,
	apiKey string,
	opts utils.Option,
	transformerOptions *internal_transformer.ConversationInitializeOptions,
) (internal_transformer.ConversationTransformer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: api key is required")
	}

	model := "gpt-4o-mini"
	if m, err := opts.GetString("chat.model"); err == nil && m != "" {
		model = m
	}

	tools := make([]openai.ChatCompletionToolParam, 0, len(transformerOptions.Tools))
	for _, tool := range transformerOptions.Tools {
		tools = append(tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        tool.Name,
				Description: openai.String(tool.Description),
				Parameters: openai.FunctionParameters{
					"type":       "object",
					"properties": map[string]interface{}{},
				},
			},
		})
	}

	return &openaiConversation{
		logger:      logger,
		client:      openai.NewClient(option.WithAPIKey(apiKey)),
		options:     transformerOptions,
		model:       model,
		temperature: 0.7,
		messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(transformerOptions.Instructions),
		},
		tools: tools,
	}, nil
}

// Name implements internal_transformer.ConversationTransformer.
func (*openaiConversation) Name() string {
	return "openai-conversation"
}

// Respond appends the user turn, then alternates completions and tool
// results until the model produces a plain text reply.
func (oc *openaiConversation) Respond(ctx context.Context, userText string) error {
	oc.mu.Lock()
	defer oc.mu.Unlock()

	oc.messages = append(oc.messages, openai.UserMessage(userText))

	for round := 0; round < maxToolRounds; round++ {
		completion, err := oc.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:       oc.model,
			Messages:    oc.messages,
			Tools:       oc.tools,
			Temperature: openai.Float(oc.temperature),
		})
		if err != nil {
			return fmt.Errorf("openai: chat completion failed: %w", err)
		}
		if len(completion.Choices) == 0 {
			return fmt.Errorf("openai: chat completion returned no choices")
		}

		message := completion.Choices[0].Message
		oc.messages = append(oc.messages, message.ToParam())

		if len(message.ToolCalls) == 0 {
			if message.Content != "" && oc.options.OnAssistantText != nil {
				return oc.options.OnAssistantText(message.Content)
			}
			return nil
		}

		for _, call := range message.ToolCalls {
			result := ""
			if oc.options.OnToolCall != nil {
				r, err := oc.options.OnToolCall(call.Function.Name, call.Function.Arguments)
				if err != nil {
					oc.logger.Warn("tool invocation failed",
						"tool", call.Function.Name, "error", err.Error())
					r = fmt.Sprintf("error: %v", err)
				}
				result = r
			}
			oc.messages = append(oc.messages, openai.ToolMessage(result, call.ID))
		}
		// Loop: let the model react to the tool results.
	}
	return fmt.Errorf("openai: tool-call loop exceeded %d rounds", maxToolRounds)
}

func (oc *openaiConversation) Close(ctx context.Context) error {
	return nil
}
