package llm

import (
	"context"
	"fmt"

	"github.com/RichardoC/arohi/internal/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIGenerator talks to any OpenAI-compatible endpoint, including a local
// Ollama server.
type OpenAIGenerator struct {
	llm llms.Model
}

func NewOpenAIGenerator(baseURL, token, model string) (*OpenAIGenerator, error) {
	if token == "" {
		if baseURL == "" {
			return nil, ErrMissingAPIKey
		}
		// local endpoints accept any token
		token = "fake"
	}

	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
	}
	return &OpenAIGenerator{llm: llm}, nil
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	resp, err := g.llm.GenerateContent(ctx, openAIMessages(req), llms.WithModel(req.Model))
	if err != nil {
		return "", fmt.Errorf("failed to generate completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Content, nil
}

func openAIMessages(req Request) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(req.History)+2)
	if req.SystemInstruction != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.SystemInstruction))
	}
	for _, turn := range req.History {
		role := llms.ChatMessageTypeHuman
		if turn.Role == models.SenderBot {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, turn.Text))
	}
	return append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.Text))
}
