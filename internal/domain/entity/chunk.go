package entity

// Chunk is a contiguous text span of a document with its stable position
// index. Chunks live in the vector index, not the registry; this struct only
// exists while the pipeline is in flight and inside search results.
type Chunk struct {
	DocumentID string `json:"documentId"`
	Index      int    `json:"index"`
	Text       string `json:"text"`
}

// ScoredChunk is a chunk returned by a similarity search.
type ScoredChunk struct {
	Chunk
	Score float64 `json:"score"`
}
