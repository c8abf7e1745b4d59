package qdrant

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"docquery/internal/domain/entity"
	"docquery/internal/domain/vectorstore"
	"docquery/pkg/apperr"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// Index stores chunk vectors in Qdrant, one collection per document, cosine
// distance. Payload carries enough to rebuild a chunk without the registry.
type Index struct {
	client *qdrant.Client
}

// New connects to Qdrant at addr ("host:port", gRPC port).
func New(addr string) (*Index, error) {
	host, port := parseHostPort(addr, "localhost", 6334)

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init qdrant client: %w", err)
	}

	return &Index{client: client}, nil
}

var _ vectorstore.VectorIndex = (*Index)(nil)

func (i *Index) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	collections, err := i.client.ListCollections(ctx)
	if err != nil {
		return apperr.Upstream("qdrant list collections failed", err, true)
	}
	for _, c := range collections {
		if c == collection {
			return nil
		}
	}

	err = i.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return apperr.Upstream("qdrant create collection failed", err, true)
	}
	return nil
}

// pointID derives a stable UUID from chunk identity so a re-index overwrites
// the existing point instead of inserting a duplicate.
func pointID(documentID string, chunkIndex int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s:%d", documentID, chunkIndex))).String()
}

func (i *Index) Upsert(ctx context.Context, collection string, chunk entity.Chunk, vector []float32) error {
	points := []*qdrant.PointStruct{
		{
			Id:      qdrant.NewIDUUID(pointID(chunk.DocumentID, chunk.Index)),
			Vectors: qdrant.NewVectors(vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"document_id": chunk.DocumentID,
				"chunk_index": int64(chunk.Index),
				"text":        chunk.Text,
			}),
		},
	}

	_, err := i.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         points,
	})
	if err != nil {
		return apperr.Upstream("qdrant upsert failed", err, true)
	}
	return nil
}

func (i *Index) Search(ctx context.Context, collection string, vector []float32, topK int) ([]entity.ScoredChunk, error) {
	limit := uint64(topK)
	points, err := i.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, apperr.Upstream("qdrant search failed", err, true)
	}

	results := make([]entity.ScoredChunk, 0, len(points))
	for _, point := range points {
		c := entity.ScoredChunk{Score: float64(point.Score)}
		if val, ok := point.Payload["document_id"]; ok {
			c.DocumentID = val.GetStringValue()
		}
		if val, ok := point.Payload["chunk_index"]; ok {
			c.Index = int(val.GetIntegerValue())
		}
		if val, ok := point.Payload["text"]; ok {
			c.Text = val.GetStringValue()
		}
		results = append(results, c)
	}
	return results, nil
}

func (i *Index) DeleteDocument(ctx context.Context, collection string, documentID string) error {
	_, err := i.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("document_id", documentID),
			},
		}),
	})
	if err != nil {
		return apperr.Upstream("qdrant delete failed", err, true)
	}
	return nil
}

func (i *Index) Close() error {
	return i.client.Close()
}

// parseHostPort splits "host:port", falling back to defaults.
func parseHostPort(addr string, defaultHost string, defaultPort int) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return defaultHost, defaultPort
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, defaultPort
	}
	return host, port
}
