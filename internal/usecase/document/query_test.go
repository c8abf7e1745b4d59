package document

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"docquery/internal/domain/entity"
	"docquery/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func indexedDoc(t *testing.T, uc *DocumentUsecase, reg *fakeRegistry, ownerID string) *entity.Document {
	t.Helper()
	doc := newPendingDoc(t, reg, ownerID)
	require.NoError(t, uc.IndexDocument(context.Background(), doc.ID, nil))
	after, err := reg.FindByID(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Equal(t, entity.StatusCompleted, after.Status)
	return after
}

func TestAnswer_ReturnsGeneratedAnswerWithCitations(t *testing.T) {
	reg := newFakeRegistry()
	index := newFakeIndex()
	gen := &fakeGenerator{answer: "the sky is blue"}
	uc := testUsecase(reg, index, newFakeEmbedder(), gen, threeChunkText)
	doc := indexedDoc(t, uc, reg, "owner")

	result, err := uc.Answer(context.Background(), "owner", doc.ID, "why is the sky blue?")
	require.NoError(t, err)
	assert.Equal(t, "the sky is blue", result.Answer)
	assert.False(t, result.PartialIndex)
	assert.Subset(t, []int{0, 1, 2}, result.Citations)
	assert.NotEmpty(t, result.Citations)
	// the generated answer saw retrieved chunk text
	assert.Contains(t, gen.lastContext, "abcde")
}

func TestAnswer_TieBrokenByLowerChunkIndex(t *testing.T) {
	reg := newFakeRegistry()
	index := newFakeIndex()
	uc := testUsecase(reg, index, newFakeEmbedder(), &fakeGenerator{}, threeChunkText)
	doc := indexedDoc(t, uc, reg, "owner")

	index.searchResults = []entity.ScoredChunk{
		{Chunk: entity.Chunk{DocumentID: doc.ID, Index: 2, Text: "second"}, Score: 0.9},
		{Chunk: entity.Chunk{DocumentID: doc.ID, Index: 0, Text: "first"}, Score: 0.9},
		{Chunk: entity.Chunk{DocumentID: doc.ID, Index: 5, Text: "third"}, Score: 0.7},
	}

	result, err := uc.Answer(context.Background(), "owner", doc.ID, "what order?")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 5}, result.Citations)
}

func TestAnswer_EmptyQuestionIsValidationError(t *testing.T) {
	reg := newFakeRegistry()
	uc := testUsecase(reg, newFakeIndex(), newFakeEmbedder(), &fakeGenerator{}, threeChunkText)
	doc := indexedDoc(t, uc, reg, "owner")

	_, err := uc.Answer(context.Background(), "owner", doc.ID, "   ")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestAnswer_ForbiddenWithoutAccess(t *testing.T) {
	reg := newFakeRegistry()
	uc := testUsecase(reg, newFakeIndex(), newFakeEmbedder(), &fakeGenerator{}, threeChunkText)
	doc := indexedDoc(t, uc, reg, "owner")

	_, err := uc.Answer(context.Background(), "stranger", doc.ID, "anything?")
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestAnswer_GrantedReaderCanQuery(t *testing.T) {
	reg := newFakeRegistry()
	uc := testUsecase(reg, newFakeIndex(), newFakeEmbedder(), &fakeGenerator{}, threeChunkText)
	doc := indexedDoc(t, uc, reg, "owner")
	_, err := uc.ShareDocument(context.Background(), "owner", doc.ID, "reader", entity.PermissionRead)
	require.NoError(t, err)

	result, err := uc.Answer(context.Background(), "reader", doc.ID, "anything?")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Answer)
}

func TestAnswer_ConflictBeforeAnythingIndexed(t *testing.T) {
	reg := newFakeRegistry()
	uc := testUsecase(reg, newFakeIndex(), newFakeEmbedder(), &fakeGenerator{}, threeChunkText)
	doc := newPendingDoc(t, reg, "owner")

	_, err := uc.Answer(context.Background(), "owner", doc.ID, "too early?")
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestAnswer_PartialIndexIsQueryableAndFlagged(t *testing.T) {
	reg := newFakeRegistry()
	index := newFakeIndex()
	embedder := newFakeEmbedder()
	embedder.failAlways("fghij")
	uc := testUsecase(reg, index, embedder, &fakeGenerator{}, threeChunkText)
	doc := newPendingDoc(t, reg, "owner")
	require.NoError(t, uc.IndexDocument(context.Background(), doc.ID, nil))

	// the question itself must still embed
	delete(embedder.failTexts, "fghij")

	result, err := uc.Answer(context.Background(), "owner", doc.ID, "what survived?")
	require.NoError(t, err)
	assert.True(t, result.PartialIndex)
	// retrieval only serves the chunks that made it into the index
	for _, citation := range result.Citations {
		assert.NotEqual(t, 1, citation)
	}
	assert.ElementsMatch(t, []int{0, 2}, result.Citations)
}

func TestAnswer_EmptyRetrievalIsAnAnswerNotAnError(t *testing.T) {
	reg := newFakeRegistry()
	index := newFakeIndex()
	gen := &fakeGenerator{}
	uc := testUsecase(reg, index, newFakeEmbedder(), gen, threeChunkText)
	doc := indexedDoc(t, uc, reg, "owner")

	index.searchResults = []entity.ScoredChunk{}

	result, err := uc.Answer(context.Background(), "owner", doc.ID, "anything?")
	require.NoError(t, err)
	assert.Contains(t, result.Answer, "No relevant content")
	assert.Empty(t, result.Citations)
	// the generator is never consulted on an empty retrieval
	assert.Empty(t, gen.lastContext)
}

func TestAnswer_GeneratorFailureIsUpstream(t *testing.T) {
	reg := newFakeRegistry()
	gen := &fakeGenerator{err: errors.New("model overloaded")}
	uc := testUsecase(reg, newFakeIndex(), newFakeEmbedder(), gen, threeChunkText)
	doc := indexedDoc(t, uc, reg, "owner")

	_, err := uc.Answer(context.Background(), "owner", doc.ID, "anything?")
	assert.True(t, apperr.IsKind(err, apperr.KindUpstream))
}

func TestAnswer_EmbeddingFailureIsUpstream(t *testing.T) {
	reg := newFakeRegistry()
	embedder := newFakeEmbedder()
	uc := testUsecase(reg, newFakeIndex(), embedder, &fakeGenerator{}, threeChunkText)
	doc := indexedDoc(t, uc, reg, "owner")

	embedder.failAlways("does not embed?")

	_, err := uc.Answer(context.Background(), "owner", doc.ID, "does not embed?")
	assert.True(t, apperr.IsKind(err, apperr.KindUpstream))
}

func TestBuildContext_RespectsCharacterBudget(t *testing.T) {
	uc := testUsecase(newFakeRegistry(), newFakeIndex(), newFakeEmbedder(), &fakeGenerator{}, "")
	uc.cfg.MaxContextChars = 120

	chunks := []entity.ScoredChunk{
		{Chunk: entity.Chunk{Index: 0, Text: strings.Repeat("a", 60)}, Score: 0.9},
		{Chunk: entity.Chunk{Index: 1, Text: strings.Repeat("b", 60)}, Score: 0.8},
		{Chunk: entity.Chunk{Index: 2, Text: strings.Repeat("c", 60)}, Score: 0.7},
	}

	got := uc.buildContext(chunks)
	assert.LessOrEqual(t, len(got), 120)
	assert.Contains(t, got, "aaa")
	assert.NotContains(t, got, "ccc")
}

func TestBuildContext_OversizedFirstChunkIsTruncatedNotDropped(t *testing.T) {
	uc := testUsecase(newFakeRegistry(), newFakeIndex(), newFakeEmbedder(), &fakeGenerator{}, "")
	uc.cfg.MaxContextChars = 50

	chunks := []entity.ScoredChunk{
		{Chunk: entity.Chunk{Index: 0, Text: strings.Repeat("x", 500)}, Score: 0.9},
	}

	got := uc.buildContext(chunks)
	assert.NotEmpty(t, got)
	assert.LessOrEqual(t, len(got), 50)
}

func TestBuildContext_TruncatesOnRuneBoundary(t *testing.T) {
	uc := testUsecase(newFakeRegistry(), newFakeIndex(), newFakeEmbedder(), &fakeGenerator{}, "")
	uc.cfg.MaxContextChars = 40

	chunks := []entity.ScoredChunk{
		{Chunk: entity.Chunk{Index: 0, Text: strings.Repeat("日本語の文章", 20)}, Score: 0.9},
	}

	got := uc.buildContext(chunks)
	assert.NotEmpty(t, got)
	assert.LessOrEqual(t, len(got), 40)
	// the cut must not land inside a multi-byte rune
	assert.True(t, utf8.ValidString(got))
}
