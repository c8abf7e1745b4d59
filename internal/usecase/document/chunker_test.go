package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunker_EmptyText(t *testing.T) {
	c := NewChunker(100, 20)
	assert.Empty(t, c.Chunk("doc-1", ""))
	assert.Empty(t, c.Chunk("doc-1", "   \n\t  "))
}

func TestChunker_SingleShortChunk(t *testing.T) {
	c := NewChunker(100, 20)
	chunks := c.Chunk("doc-1", "just a short paragraph.")

	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "doc-1", chunks[0].DocumentID)
	assert.Equal(t, "just a short paragraph.", chunks[0].Text)
}

func TestChunker_IndicesAreStableAndOrdered(t *testing.T) {
	c := NewChunker(50, 10)
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 20)

	first := c.Chunk("doc-1", text)
	second := c.Chunk("doc-1", text)

	require.Greater(t, len(first), 1)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, i, first[i].Index)
		// same input and config always produce the same chunks
		assert.Equal(t, first[i].Text, second[i].Text)
	}
}

func TestChunker_RespectsSizeBound(t *testing.T) {
	c := NewChunker(80, 20)
	text := strings.Repeat("Sentences of moderate length fill this document nicely. ", 30)

	for _, chunk := range c.Chunk("doc-1", text) {
		assert.LessOrEqual(t, len(chunk.Text), 80)
		assert.NotEmpty(t, chunk.Text)
	}
}

func TestChunker_OverlapCarriesTextBetweenChunks(t *testing.T) {
	c := NewChunker(40, 15)
	text := strings.Repeat("alpha beta gamma delta epsilon zeta. ", 10)
	chunks := c.Chunk("doc-1", text)
	require.Greater(t, len(chunks), 2)

	// the tail of each chunk reappears at the head of the next
	for i := 0; i < len(chunks)-1; i++ {
		tail := chunks[i].Text
		if len(tail) > 5 {
			tail = tail[len(tail)-5:]
		}
		assert.Contains(t, chunks[i+1].Text, strings.TrimSpace(tail))
	}
}

func TestChunker_TailEmitsNoDegenerateSuffixChunks(t *testing.T) {
	c := NewChunker(10, 4)
	text := "abcdefghijklmnopqrstuvwxy"
	chunks := c.Chunk("doc-1", text)

	require.NotEmpty(t, chunks)
	assert.True(t, strings.HasSuffix(text, chunks[len(chunks)-1].Text))
	// once the tail is covered the chunker stops instead of sliding one
	// byte at a time through the last segment
	for i := 1; i < len(chunks); i++ {
		assert.False(t, strings.HasSuffix(chunks[i-1].Text, chunks[i].Text),
			"chunk %d repeats the tail of chunk %d", i, i-1)
	}
	assert.LessOrEqual(t, len(chunks), 5)
}

func TestChunker_CollapsesWhitespace(t *testing.T) {
	c := NewChunker(100, 0)
	chunks := c.Chunk("doc-1", "spaced    out\n\n\ttext here.")

	require.Len(t, chunks, 1)
	assert.Equal(t, "spaced out text here.", chunks[0].Text)
}
