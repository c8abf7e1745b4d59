package vectorstore

import (
	"context"

	"docquery/internal/domain/entity"
)

// VectorIndex stores chunk embeddings scoped by collection and answers
// nearest-neighbor queries. Each document binds to one collection.
type VectorIndex interface {
	// EnsureCollection creates the collection if it does not exist yet.
	EnsureCollection(ctx context.Context, collection string, dimension int) error

	// Upsert writes one chunk's vector and payload. Point identity is
	// derived from (documentID, chunkIndex), so re-inserting the same chunk
	// overwrites instead of duplicating.
	Upsert(ctx context.Context, collection string, chunk entity.Chunk, vector []float32) error

	// Search returns the topK nearest chunks, most similar first.
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]entity.ScoredChunk, error)

	// DeleteDocument removes every point belonging to the document.
	DeleteDocument(ctx context.Context, collection string, documentID string) error
}

// Embedder converts text into vectors. Ingestion and query embedding must go
// through the same embedder so both live in the same embedding space.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator produces an answer from a question and retrieved context.
type Generator interface {
	Generate(ctx context.Context, question, context string) (string, error)
}
