package openai

import (
	"context"

	"docquery/internal/domain/vectorstore"
	"docquery/pkg/apperr"

	openai "github.com/sashabaranov/go-openai"
)

type EmbeddingClient struct {
	client *openai.Client
	model  string
}

// NewEmbeddingClient creates a new OpenAI embedding client. The same model
// must serve ingestion and query embedding; both go through this client.
func NewEmbeddingClient(apiKey, model string) *EmbeddingClient {
	return &EmbeddingClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

var _ vectorstore.Embedder = (*EmbeddingClient)(nil)

// Embed generates the vector for a single text.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, apperr.Upstream("no embedding generated", nil, false)
	}
	return vectors[0], nil
}

// EmbedBatch generates vectors for several texts in one request.
func (c *EmbeddingClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		return nil, apperr.Upstream("embedding request failed", err, true)
	}

	vectors := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		embedding := make([]float32, len(data.Embedding))
		copy(embedding, data.Embedding)
		vectors[i] = embedding
	}

	return vectors, nil
}
