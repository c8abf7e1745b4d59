package document

import (
	"strings"
	"unicode"

	"docquery/internal/domain/entity"
)

type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a new chunker
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Chunk splits text into bounded overlapping segments. Indices are assigned
// in document order and are stable: the same text and configuration always
// produce the same chunks, which is what citations rely on.
func (c *Chunker) Chunk(documentID, text string) []entity.Chunk {
	//clean text
	text = strings.TrimSpace(text)
	text = cleanText(text)

	if len(text) == 0 {
		return nil
	}

	var chunks []entity.Chunk
	start := 0

	for start < len(text) {
		end := start + c.chunkSize
		if end > len(text) {
			end = len(text)
		}

		// try to break at sentence boundary
		if end < len(text) {
			for i := end; i > start+c.chunkSize/2; i-- {
				if text[i] == '.' || text[i] == '!' || text[i] == '?' || text[i] == '\n' {
					end = i + 1
					break
				}
			}
		}
		segment := strings.TrimSpace(text[start:end])
		if len(segment) > 0 {
			chunks = append(chunks, entity.Chunk{
				DocumentID: documentID,
				Index:      len(chunks),
				Text:       segment,
			})
		}

		// the final segment covers the tail; rewinding for overlap here
		// would re-emit suffixes of it
		if end >= len(text) {
			break
		}

		// move start position with overlap
		newStart := end - c.chunkOverlap
		if newStart <= start {
			// ensure progress to avoid infinite loop
			newStart = start + 1
		}
		start = newStart
	}

	return chunks
}

func cleanText(text string) string {
	// remove multiple whitespace
	var result strings.Builder
	prevSpace := false

	for _, r := range text {
		if unicode.IsSpace(r) {
			if !prevSpace {
				result.WriteRune(' ')
				prevSpace = true
			}
		} else {
			result.WriteRune(r)
			prevSpace = false
		}
	}

	return result.String()
}
