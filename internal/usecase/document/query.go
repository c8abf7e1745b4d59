package document

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"docquery/internal/domain/entity"
	"docquery/pkg/apperr"
	"docquery/pkg/retry"
)

// QueryResult is the answer to one question against one document.
type QueryResult struct {
	Answer    string               `json:"answer"`
	Citations []int                `json:"citations"`
	Sources   []entity.ScoredChunk `json:"sources"`
	// PartialIndex flags answers drawn from an incompletely indexed
	// document, e.g. after a partial pipeline failure.
	PartialIndex bool `json:"partialIndex"`
}

// Answer runs the retrieval-augmented query pipeline: access gate, readiness
// check, question embedding, top-K retrieval, context assembly, generation.
func (uc *DocumentUsecase) Answer(ctx context.Context, userID, documentID, question string) (*QueryResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apperr.Validation("question is required")
	}

	// 1 load and gate
	doc, err := uc.docRepo.FindByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !HasAccess(doc, userID) {
		return nil, apperr.Forbidden("you do not have access to this document")
	}

	// 2 readiness: nothing retrievable is a conflict, a partial index is
	// usable but flagged
	if doc.Status != entity.StatusCompleted && doc.SuccessfulChunks == 0 {
		return nil, apperr.Conflict(fmt.Sprintf("document is not ready for querying (status: %s)", doc.Status))
	}
	partial := doc.Status != entity.StatusCompleted

	// 3 embed the question in the same embedding space as ingestion
	vector, err := retry.DoWithResult(ctx, uc.cfg.Retry, func() ([]float32, error) {
		var v []float32
		embedErr := uc.withTimeout(ctx, func(callCtx context.Context) error {
			var err error
			v, err = uc.embedder.Embed(callCtx, question)
			return err
		})
		return v, embedErr
	})
	if err != nil {
		return nil, apperr.Upstream("failed to generate query embedding", err, false)
	}

	// 4 retrieve top-K from the document's collection
	chunks, err := retry.DoWithResult(ctx, uc.cfg.Retry, func() ([]entity.ScoredChunk, error) {
		var result []entity.ScoredChunk
		searchErr := uc.withTimeout(ctx, func(callCtx context.Context) error {
			var err error
			result, err = uc.index.Search(callCtx, doc.Collection, vector, uc.cfg.TopK)
			return err
		})
		return result, searchErr
	})
	if err != nil {
		return nil, apperr.Upstream("failed to search similar chunks", err, false)
	}

	rankChunks(chunks)

	// empty retrieval is a valid answer path, not an upstream failure
	if len(chunks) == 0 {
		return &QueryResult{
			Answer:       "No relevant content was found in the document for this question.",
			Citations:    []int{},
			PartialIndex: partial,
		}, nil
	}

	// 5 assemble bounded context, most similar first
	docContext := uc.buildContext(chunks)

	// 6 generate
	answer, err := retry.DoWithResult(ctx, uc.cfg.Retry, func() (string, error) {
		var text string
		genErr := uc.withTimeout(ctx, func(callCtx context.Context) error {
			var err error
			text, err = uc.generator.Generate(callCtx, question, docContext)
			return err
		})
		return text, genErr
	})
	if err != nil {
		return nil, apperr.Upstream("failed to generate answer", err, false)
	}

	citations := make([]int, len(chunks))
	for i, c := range chunks {
		citations[i] = c.Index
	}

	return &QueryResult{
		Answer:       answer,
		Citations:    citations,
		Sources:      chunks,
		PartialIndex: partial,
	}, nil
}

// rankChunks orders by similarity descending with ties broken by lower chunk
// index, so retrieval ordering is stable and reproducible.
func rankChunks(chunks []entity.ScoredChunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].Score != chunks[j].Score {
			return chunks[i].Score > chunks[j].Score
		}
		return chunks[i].Index < chunks[j].Index
	})
}

// buildContext concatenates chunk texts in similarity order until the
// configured character budget is spent.
func (uc *DocumentUsecase) buildContext(chunks []entity.ScoredChunk) string {
	var b strings.Builder
	for _, chunk := range chunks {
		section := fmt.Sprintf("[Chunk %d - Similarity: %.2f]\n%s\n\n", chunk.Index, chunk.Score, chunk.Text)
		if uc.cfg.MaxContextChars > 0 && b.Len()+len(section) > uc.cfg.MaxContextChars {
			// never return an empty context when something was retrieved;
			// back the cut off to a rune boundary so the context stays
			// valid UTF-8
			if b.Len() == 0 {
				cut := uc.cfg.MaxContextChars
				for cut > 0 && !utf8.RuneStart(section[cut]) {
					cut--
				}
				b.WriteString(section[:cut])
			}
			break
		}
		b.WriteString(section)
	}
	return b.String()
}
