package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"docquery/internal/domain/entity"
	"docquery/internal/domain/repository"
	"docquery/pkg/apperr"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type documentRepository struct {
	db *sqlx.DB
}

func NewDocumentRepository(db *sqlx.DB) repository.DocumentRepository {
	return &documentRepository{db: db}
}

// documentRow adds the jsonb tags column to the entity for scanning.
type documentRow struct {
	entity.Document
	TagsJSON []byte `db:"tags"`
}

const documentColumns = `
	id, owner_id, name, original_name, file_size, mime_type, page_count,
	description, tags, status, is_indexed, indexed_at, error_message,
	total_chunks, successful_chunks, is_public, collection, version,
	created_at, updated_at`

// create document
func (r *documentRepository) Create(ctx context.Context, doc *entity.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	doc.ID = uuid.New().String()
	doc.Status = entity.StatusPending
	doc.Version = 1
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = time.Now()

	tags := doc.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO documents (id, owner_id, name, original_name, file_size, mime_type, page_count,
			description, tags, status, is_indexed, error_message, total_chunks, successful_chunks,
			is_public, collection, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err = r.db.ExecContext(ctx, query,
		doc.ID, doc.OwnerID, doc.Name, doc.OriginalName, doc.FileSize, doc.MimeType, doc.PageCount,
		doc.Description, tagsJSON, doc.Status, doc.IsIndexed, doc.ErrorMessage, doc.TotalChunks,
		doc.SuccessfulChunks, doc.IsPublic, doc.Collection, doc.Version, doc.CreatedAt, doc.UpdatedAt,
	)
	return err
}

// find document by id, grants included
func (r *documentRepository) FindByID(ctx context.Context, id string) (*entity.Document, error) {
	var row documentRow
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("document not found")
	}
	if err != nil {
		return nil, err
	}

	doc := row.Document
	if len(row.TagsJSON) > 0 {
		if err := json.Unmarshal(row.TagsJSON, &doc.Tags); err != nil {
			return nil, err
		}
	}

	grants, err := r.loadGrants(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.Grants = grants

	return &doc, nil
}

func (r *documentRepository) loadGrants(ctx context.Context, documentID string) ([]entity.Grant, error) {
	var grants []entity.Grant
	query := `SELECT user_id, permission, shared_at FROM document_grants WHERE document_id = $1 ORDER BY shared_at`
	if err := r.db.SelectContext(ctx, &grants, query, documentID); err != nil {
		return nil, err
	}
	return grants, nil
}

// ListVisible returns owned, public and shared documents in one page.
func (r *documentRepository) ListVisible(ctx context.Context, userID string, page, limit int) ([]entity.Document, int, error) {
	offset := (page - 1) * limit

	visible := `
		FROM documents d
		WHERE d.owner_id = $1
		   OR d.is_public
		   OR EXISTS (SELECT 1 FROM document_grants g WHERE g.document_id = d.id AND g.user_id = $1)`

	var rows []documentRow
	query := `SELECT ` + documentColumns + ` ` + visible + ` ORDER BY d.created_at DESC LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit, offset); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) `+visible, userID); err != nil {
		return nil, 0, err
	}

	docs := make([]entity.Document, 0, len(rows))
	for _, row := range rows {
		doc := row.Document
		if len(row.TagsJSON) > 0 {
			if err := json.Unmarshal(row.TagsJSON, &doc.Tags); err != nil {
				return nil, 0, err
			}
		}
		docs = append(docs, doc)
	}

	return docs, total, nil
}

// ClaimForProcessing is the pipeline's compare-and-set: the WHERE clause on
// status makes postgres arbitrate concurrent triggers, exactly one wins.
func (r *documentRepository) ClaimForProcessing(ctx context.Context, id string) error {
	query := `UPDATE documents SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, entity.StatusProcessing, id, entity.StatusPending)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return r.classifyMissedUpdate(ctx, id, "document already claimed or not pending")
	}
	return nil
}

// UpdateProgress applies absolute counts monotonically. GREATEST makes
// reordered or retried writes harmless; the counter never moves backwards.
func (r *documentRepository) UpdateProgress(ctx context.Context, id string, totalChunks, successfulChunks int) error {
	query := `
		UPDATE documents
		SET total_chunks = GREATEST(total_chunks, $1),
		    successful_chunks = LEAST(GREATEST(successful_chunks, $2), GREATEST(total_chunks, $1)),
		    updated_at = NOW()
		WHERE id = $3
	`
	res, err := r.db.ExecContext(ctx, query, totalChunks, successfulChunks, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("document not found")
	}
	return nil
}

// set page count after extraction
func (r *documentRepository) SetPageCount(ctx context.Context, id string, pages int) error {
	query := `UPDATE documents SET page_count = $1, updated_at = NOW() WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, pages, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("document not found")
	}
	return nil
}

// MarkCompleted writes status, is_indexed and indexed_at together so the
// completed-implies-indexed invariant cannot be half applied. indexed_at is
// preserved once set.
func (r *documentRepository) MarkCompleted(ctx context.Context, id string) error {
	query := `
		UPDATE documents
		SET status = $1, is_indexed = TRUE, indexed_at = COALESCE(indexed_at, NOW()),
		    error_message = '', updated_at = NOW()
		WHERE id = $2 AND status = $3
	`
	res, err := r.db.ExecContext(ctx, query, entity.StatusCompleted, id, entity.StatusProcessing)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return r.classifyMissedUpdate(ctx, id, "document is not processing")
	}
	return nil
}

func (r *documentRepository) MarkFailed(ctx context.Context, id string, message string) error {
	query := `
		UPDATE documents
		SET status = $1, error_message = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
	`
	res, err := r.db.ExecContext(ctx, query, entity.StatusFailed, message, id, entity.StatusProcessing)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return r.classifyMissedUpdate(ctx, id, "document is not processing")
	}
	return nil
}

// ResetForRetry restarts the state machine from a terminal state. Counters
// reset to zero because a retry re-runs the full pipeline.
func (r *documentRepository) ResetForRetry(ctx context.Context, id string) error {
	query := `
		UPDATE documents
		SET status = $1, error_message = '', total_chunks = 0, successful_chunks = 0, updated_at = NOW()
		WHERE id = $2 AND status IN ($3, $4)
	`
	res, err := r.db.ExecContext(ctx, query, entity.StatusPending, id, entity.StatusFailed, entity.StatusCompleted)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return r.classifyMissedUpdate(ctx, id, "document is not in a terminal state")
	}
	return nil
}

// ReplaceGrants rewrites the grant list under an optimistic version check.
// A concurrent share bumps the version first and the loser gets Conflict.
func (r *documentRepository) ReplaceGrants(ctx context.Context, doc *entity.Document) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE documents SET version = version + 1, updated_at = NOW() WHERE id = $1 AND version = $2`,
		doc.ID, doc.Version,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.Conflict("document was modified concurrently")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_grants WHERE document_id = $1`, doc.ID); err != nil {
		return err
	}

	insert := `INSERT INTO document_grants (document_id, user_id, permission, shared_at) VALUES ($1, $2, $3, $4)`
	for _, g := range doc.Grants {
		if _, err := tx.ExecContext(ctx, insert, doc.ID, g.UserID, g.Permission, g.SharedAt); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	doc.Version++
	return nil
}

// classifyMissedUpdate distinguishes a missing document from a state-machine
// violation after a conditional update touched zero rows.
func (r *documentRepository) classifyMissedUpdate(ctx context.Context, id, conflictMsg string) error {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1)`, id)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound("document not found")
	}
	return apperr.Conflict(conflictMsg)
}
