package pgvector

import (
	"context"
	"fmt"
	"time"

	"docquery/internal/domain/entity"
	"docquery/internal/domain/vectorstore"
	"docquery/pkg/apperr"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	pgv "github.com/pgvector/pgvector-go"
)

// Index stores chunk vectors in the document_chunks table and searches with
// pgvector cosine distance. Collections are a column filter rather than
// physical tables; the search contract is the same as the qdrant backend.
type Index struct {
	db *sqlx.DB
}

func NewIndex(db *sqlx.DB) *Index {
	return &Index{db: db}
}

var _ vectorstore.VectorIndex = (*Index)(nil)

// EnsureCollection is a no-op here: the table is shared and the collection
// exists as soon as a row references it. The dimension is fixed by the
// embedding column type in the schema.
func (i *Index) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	return nil
}

// pointID derives a stable id from chunk identity so re-indexing overwrites
// the previous point instead of duplicating it.
func pointID(documentID string, chunkIndex int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s:%d", documentID, chunkIndex))).String()
}

func (i *Index) Upsert(ctx context.Context, collection string, chunk entity.Chunk, vector []float32) error {
	query := `
		INSERT INTO document_chunks (id, collection, document_id, chunk_index, content, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET content = EXCLUDED.content, embedding = EXCLUDED.embedding
	`
	_, err := i.db.ExecContext(ctx, query,
		pointID(chunk.DocumentID, chunk.Index),
		collection,
		chunk.DocumentID,
		chunk.Index,
		chunk.Text,
		pgv.NewVector(vector),
		time.Now(),
	)
	if err != nil {
		return apperr.Upstream("vector upsert failed", err, true)
	}
	return nil
}

// Search returns the topK nearest chunks by cosine similarity, scoped to the
// collection. Equal distances are broken by lower chunk index so retrieval
// ordering is reproducible.
func (i *Index) Search(ctx context.Context, collection string, vector []float32, topK int) ([]entity.ScoredChunk, error) {
	query := `
		SELECT document_id, chunk_index, content, 1 - (embedding <=> $1) AS similarity
		FROM document_chunks
		WHERE collection = $2
		ORDER BY embedding <=> $1, chunk_index
		LIMIT $3
	`
	rows, err := i.db.QueryContext(ctx, query, pgv.NewVector(vector), collection, topK)
	if err != nil {
		return nil, apperr.Upstream("vector search failed", err, true)
	}
	defer rows.Close()

	var chunks []entity.ScoredChunk
	for rows.Next() {
		var c entity.ScoredChunk
		if err := rows.Scan(&c.DocumentID, &c.Index, &c.Text, &c.Score); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}

	return chunks, rows.Err()
}

func (i *Index) DeleteDocument(ctx context.Context, collection string, documentID string) error {
	query := `DELETE FROM document_chunks WHERE collection = $1 AND document_id = $2`
	if _, err := i.db.ExecContext(ctx, query, collection, documentID); err != nil {
		return apperr.Upstream("vector delete failed", err, true)
	}
	return nil
}
