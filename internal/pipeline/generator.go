package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/skywalkers77/astro-rag/internal/rag"
)

const (
	// defaultTemperature keeps generation deterministic; grounded answering
	// wants reproducibility, not creativity.
	defaultTemperature float32 = 0.0

	// defaultMaxOutputTokens caps the answer length.
	defaultMaxOutputTokens = 512
)

// Generator produces answers from a chat model given a system prompt, an
// assembled context block, and the user query.
type Generator struct {
	// chatModel is the configured LLM backend.
	chatModel model.BaseChatModel
	// temperature is the sampling temperature passed to the model.
	temperature float32
	// maxTokens caps the generated answer length.
	maxTokens int
}

// NewGenerator constructs a Generator with deterministic defaults.
func NewGenerator(chatModel model.BaseChatModel) (*Generator, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("pipeline: generator requires a chat model")
	}
	return &Generator{
		chatModel:   chatModel,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxOutputTokens,
	}, nil
}

// Answer calls the chat model with the system prompt and the composed user
// turn. It returns the trimmed answer text together with the raw model
// response so callers can surface finish reason and token usage. Transport
// failures and empty completions are wrapped in rag.ErrCompletionService.
func (g *Generator) Answer(ctx context.Context, systemPrompt, contextBlock, query string) (string, *schema.Message, error) {
	user := fmt.Sprintf("CONTEXT:\n%s\n\nUSER QUERY:\n%s\n\nAnswer:", contextBlock, query)
	messages := []*schema.Message{
		schema.SystemMessage(strings.TrimSpace(systemPrompt)),
		schema.UserMessage(user),
	}

	resp, err := g.chatModel.Generate(ctx, messages,
		model.WithTemperature(g.temperature),
		model.WithMaxTokens(g.maxTokens),
	)
	if err != nil {
		return "", nil, fmt.Errorf("pipeline: generate answer: %v: %w", err, rag.ErrCompletionService)
	}

	answer := strings.TrimSpace(resp.Content)
	if answer == "" {
		return "", resp, fmt.Errorf("pipeline: model returned empty completion: %w", rag.ErrCompletionService)
	}
	return answer, resp, nil
}
