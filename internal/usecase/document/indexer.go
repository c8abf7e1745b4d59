package document

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"docquery/internal/domain/entity"
	"docquery/pkg/retry"

	"golang.org/x/sync/errgroup"
)

// IndexDocument drives one document through the full pipeline:
// claim -> extract -> chunk -> embed+insert (bounded workers) -> terminal
// state. The claim is a compare-and-set, so concurrent triggers produce
// exactly one run; the loser returns Conflict without touching anything.
func (uc *DocumentUsecase) IndexDocument(ctx context.Context, documentID string, fileData []byte) error {
	if err := uc.docRepo.ClaimForProcessing(ctx, documentID); err != nil {
		return err
	}

	doc, err := uc.docRepo.FindByID(ctx, documentID)
	if err != nil {
		// the claim already moved the document to processing; record the
		// failure so it does not stay stuck there with no terminal state
		if ferr := uc.docRepo.MarkFailed(ctx, documentID, fmt.Sprintf("failed to load document: %v", err)); ferr != nil {
			log.Printf("Failed to mark document %s failed after load error: %v", documentID, ferr)
		}
		return err
	}

	log.Printf("Starting processing for document %s", documentID)

	// 1 extract text; failure here is a whole-document failure with no chunks
	text, pageCount, err := uc.extractor.ExtractFromPDF(fileData)
	if err != nil {
		return uc.failDocument(ctx, documentID, fmt.Sprintf("text extraction failed: %v", err))
	}
	if err := uc.docRepo.SetPageCount(ctx, documentID, pageCount); err != nil {
		return uc.failDocument(ctx, documentID, fmt.Sprintf("failed to record page count: %v", err))
	}

	// 2 chunk text
	chunks := uc.chunker.Chunk(documentID, text)
	if len(chunks) == 0 {
		return uc.failDocument(ctx, documentID, "no text extracted from document")
	}
	log.Printf("Generated %d chunks from document %s", len(chunks), documentID)

	total := len(chunks)
	if err := uc.docRepo.UpdateProgress(ctx, documentID, total, 0); err != nil {
		return uc.failDocument(ctx, documentID, fmt.Sprintf("failed to record chunk count: %v", err))
	}

	if err := uc.withTimeout(ctx, func(callCtx context.Context) error {
		return uc.index.EnsureCollection(callCtx, doc.Collection, uc.cfg.EmbeddingDimension)
	}); err != nil {
		return uc.failDocument(ctx, documentID, fmt.Sprintf("vector collection setup failed: %v", err))
	}

	// 3 embed and insert with bounded parallelism; every chunk is attempted
	// even when siblings fail, partial progress stays committed
	var succeeded atomic.Int64
	var mu sync.Mutex
	var failed int
	var firstErr error

	g := new(errgroup.Group)
	g.SetLimit(uc.cfg.IndexWorkers)

	for _, chunk := range chunks {
		chunk := chunk
		g.Go(func() error {
			if err := uc.processChunk(ctx, doc.Collection, chunk); err != nil {
				mu.Lock()
				failed++
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				log.Printf("Chunk %d of document %s failed permanently: %v", chunk.Index, documentID, err)
				return nil
			}

			// progress writes carry absolute counts and the registry applies
			// them monotonically, so reordering between workers is harmless
			n := succeeded.Add(1)
			if err := uc.docRepo.UpdateProgress(ctx, documentID, total, int(n)); err != nil {
				log.Printf("Failed to persist progress for document %s: %v", documentID, err)
			}
			return nil
		})
	}
	g.Wait()

	// 4 terminal transition
	if failed > 0 {
		msg := fmt.Sprintf("%d of %d chunks failed: %v", failed, total, firstErr)
		if err := uc.docRepo.MarkFailed(ctx, documentID, msg); err != nil {
			return err
		}
		log.Printf("Document %s failed with partial progress %d/%d", documentID, succeeded.Load(), total)
		return nil
	}

	if err := uc.docRepo.MarkCompleted(ctx, documentID); err != nil {
		return err
	}
	log.Printf("Document %s processed successfully with %d chunks", documentID, total)
	return nil
}

// processChunk embeds one chunk and inserts it into the vector index, each
// call wrapped in a timeout and the bounded retry budget. An error returned
// here is a permanent per-chunk failure.
func (uc *DocumentUsecase) processChunk(ctx context.Context, collection string, chunk entity.Chunk) error {
	vector, err := retry.DoWithResult(ctx, uc.cfg.Retry, func() ([]float32, error) {
		var v []float32
		err := uc.withTimeout(ctx, func(callCtx context.Context) error {
			var embedErr error
			v, embedErr = uc.embedder.Embed(callCtx, chunk.Text)
			return embedErr
		})
		return v, err
	})
	if err != nil {
		return fmt.Errorf("embedding chunk %d: %w", chunk.Index, err)
	}

	err = retry.Do(ctx, uc.cfg.Retry, func() error {
		return uc.withTimeout(ctx, func(callCtx context.Context) error {
			return uc.index.Upsert(callCtx, collection, chunk, vector)
		})
	})
	if err != nil {
		return fmt.Errorf("inserting chunk %d: %w", chunk.Index, err)
	}

	return nil
}

// failDocument records a whole-document failure and returns nil so the
// caller treats the failed state as recorded rather than re-raised.
func (uc *DocumentUsecase) failDocument(ctx context.Context, documentID, message string) error {
	if err := uc.docRepo.MarkFailed(ctx, documentID, message); err != nil {
		return err
	}
	log.Printf("Document %s failed: %s", documentID, message)
	return nil
}

// withTimeout bounds a single external call so a hang becomes a classified
// failure instead of a stuck pipeline.
func (uc *DocumentUsecase) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	if uc.cfg.UpstreamTimeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, uc.cfg.UpstreamTimeout)
	defer cancel()
	return fn(callCtx)
}
