package openai

import (
	"context"
	"fmt"

	"docquery/internal/domain/vectorstore"
	"docquery/pkg/apperr"

	openai "github.com/sashabaranov/go-openai"
)

type ChatClient struct {
	client *openai.Client
	model  string
}

func NewChatClient(apiKey, model string) *ChatClient {
	return &ChatClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

var _ vectorstore.Generator = (*ChatClient)(nil)

const systemPrompt = `You are an assistant that answers questions about an uploaded document.

Instructions:
1. Answer ONLY from the provided context.
2. If the context does not contain the answer, say you could not find it in the document.
3. Keep answers clear, concise and structured.`

// Generate produces an answer grounded in the retrieved context.
func (c *ChatClient) Generate(ctx context.Context, question, docContext string) (string, error) {
	userPrompt := fmt.Sprintf(`Context from the document:
%s

Question: %s

Answer:`, docContext, question)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
		Temperature: 0.7,
		MaxTokens:   700,
	})
	if err != nil {
		return "", apperr.Upstream("failed to generate answer", err, true)
	}

	if len(resp.Choices) == 0 {
		return "", apperr.Upstream("no response from OpenAI", nil, false)
	}

	return resp.Choices[0].Message.Content, nil
}
