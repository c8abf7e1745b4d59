package repository

import (
	"context"

	"docquery/internal/domain/entity"
)

// DocumentRepository is the authoritative registry for document identity,
// ownership, sharing and indexing state. State transitions are explicit
// methods rather than generic field updates so the state-machine invariants
// live in one place.
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	FindByID(ctx context.Context, id string) (*entity.Document, error)

	// ListVisible returns every document the user owns, every public
	// document, and every document shared with the user.
	ListVisible(ctx context.Context, userID string, page, limit int) ([]entity.Document, int, error)

	// ClaimForProcessing atomically moves pending -> processing. Exactly one
	// caller wins a race; losers get a Conflict error.
	ClaimForProcessing(ctx context.Context, id string) error

	// UpdateProgress persists absolute chunk counts. Writes are monotonic:
	// a retried or reordered write can never decrease either counter.
	UpdateProgress(ctx context.Context, id string, totalChunks, successfulChunks int) error

	// SetPageCount records the page count discovered during extraction.
	SetPageCount(ctx context.Context, id string, pages int) error

	// MarkCompleted finishes processing -> completed in one write: status,
	// is_indexed and indexed_at (first time only) change together.
	MarkCompleted(ctx context.Context, id string) error

	// MarkFailed finishes processing -> failed, recording the diagnostic and
	// keeping partial progress.
	MarkFailed(ctx context.Context, id string, message string) error

	// ResetForRetry re-enters pending from completed or failed, clearing the
	// error and counters ahead of a full re-run.
	ResetForRetry(ctx context.Context, id string) error

	// ReplaceGrants writes the document's grant list under an optimistic
	// version check; a lost race returns Conflict.
	ReplaceGrants(ctx context.Context, doc *entity.Document) error
}
