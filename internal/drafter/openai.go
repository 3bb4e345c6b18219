// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package drafter

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/pdiddy/thesis-engine/pkg/types"
)

// OpenAIGenerator calls an OpenAI-compatible chat completions API. With
// BaseURL set to Groq's endpoint it drives the same Llama models the
// original deployment used; unset, it talks to OpenAI proper.
type OpenAIGenerator struct {
	Model string
	Opts  []option.RequestOption
}

// NewOpenAIGenerator builds a generator from AI configuration.
func NewOpenAIGenerator(cfg types.AIConfig) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("generation API key missing: set draft.api_key or a .secrets/ key file")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("generation model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIGenerator{Model: cfg.Model, Opts: opts}, nil
}

// Generate sends one system+user exchange and returns the completion text.
func (g *OpenAIGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	client := openai.NewClient(g.Opts...)

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty choices in completion response")
	}
	return resp.Choices[0].Message.Content, nil
}
