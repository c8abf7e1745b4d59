package entity

import (
	"fmt"
	"time"

	"docquery/pkg/apperr"
)

type IndexingStatus string
type Permission string
type AccessLevel string

const (
	StatusPending    IndexingStatus = "pending"
	StatusProcessing IndexingStatus = "processing"
	StatusCompleted  IndexingStatus = "completed"
	StatusFailed     IndexingStatus = "failed"

	PermissionRead  Permission = "read"
	PermissionWrite Permission = "write"

	AccessOwner AccessLevel = "owner"
	AccessWrite AccessLevel = "write"
	AccessRead  AccessLevel = "read"
	AccessNone  AccessLevel = "none"
)

const (
	MaxNameLength        = 255
	MaxDescriptionLength = 500
	MaxTagLength         = 50
)

// Grant records non-owner access to a document. At most one grant per user.
type Grant struct {
	UserID     string     `db:"user_id" json:"userId"`
	Permission Permission `db:"permission" json:"permission"`
	SharedAt   time.Time  `db:"shared_at" json:"sharedAt"`
}

type Document struct {
	ID               string         `db:"id" json:"id"`
	OwnerID          string         `db:"owner_id" json:"ownerId"`
	Name             string         `db:"name" json:"name"`
	OriginalName     string         `db:"original_name" json:"originalName"`
	FileSize         int64          `db:"file_size" json:"fileSize"`
	MimeType         string         `db:"mime_type" json:"mimeType"`
	PageCount        int            `db:"page_count" json:"pageCount"`
	Description      string         `db:"description" json:"description"`
	Tags             []string       `db:"-" json:"tags"`
	Status           IndexingStatus `db:"status" json:"status"`
	IsIndexed        bool           `db:"is_indexed" json:"isIndexed"`
	IndexedAt        *time.Time     `db:"indexed_at" json:"indexedAt,omitempty"`
	ErrorMessage     string         `db:"error_message" json:"errorMessage,omitempty"`
	TotalChunks      int            `db:"total_chunks" json:"totalChunks"`
	SuccessfulChunks int            `db:"successful_chunks" json:"successfulChunks"`
	IsPublic         bool           `db:"is_public" json:"isPublic"`
	Collection       string         `db:"collection" json:"-"`
	Version          int            `db:"version" json:"-"`
	CreatedAt        time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updatedAt"`

	// loaded from document_grants, not a column
	Grants []Grant `db:"-" json:"grants,omitempty"`
}

// Validate checks the declared bounds for user-supplied fields.
func (d *Document) Validate() error {
	if d.Name == "" {
		return apperr.Validation("name is required")
	}
	if len(d.Name) > MaxNameLength {
		return apperr.Validation(fmt.Sprintf("name exceeds %d characters", MaxNameLength))
	}
	if len(d.Description) > MaxDescriptionLength {
		return apperr.Validation(fmt.Sprintf("description exceeds %d characters", MaxDescriptionLength))
	}
	for _, tag := range d.Tags {
		if len(tag) > MaxTagLength {
			return apperr.Validation(fmt.Sprintf("tag %q exceeds %d characters", tag, MaxTagLength))
		}
	}
	if d.FileSize < 0 {
		return apperr.Validation("file size must be >= 0")
	}
	if d.PageCount < 0 {
		return apperr.Validation("page count must be >= 0")
	}
	return nil
}

// ClaimProcessing moves pending -> processing. Any other starting state is a
// conflict: either another run already claimed the document or it is terminal.
func (d *Document) ClaimProcessing() error {
	if d.Status != StatusPending {
		return apperr.Conflict(fmt.Sprintf("document is %s, not pending", d.Status))
	}
	d.Status = StatusProcessing
	return nil
}

// Complete moves processing -> completed as a single transition: status,
// is_indexed and indexed_at change together so the invariant
// (completed implies is_indexed and indexed_at set) cannot be bypassed by a
// field write elsewhere. indexed_at is set only the first time.
func (d *Document) Complete(now time.Time) error {
	if d.Status != StatusProcessing {
		return apperr.Conflict(fmt.Sprintf("cannot complete document in %s state", d.Status))
	}
	d.Status = StatusCompleted
	d.IsIndexed = true
	d.ErrorMessage = ""
	if d.IndexedAt == nil {
		d.IndexedAt = &now
	}
	return nil
}

// Fail moves processing -> failed, keeping whatever partial progress was
// committed. Already-inserted chunks stay queryable.
func (d *Document) Fail(message string) error {
	if d.Status != StatusProcessing {
		return apperr.Conflict(fmt.Sprintf("cannot fail document in %s state", d.Status))
	}
	d.Status = StatusFailed
	d.ErrorMessage = message
	return nil
}

// ResetForRetry re-enters pending from a terminal state. Counters and the
// error are cleared because a retry restarts the full pipeline; there is no
// partial resume across a failure boundary.
func (d *Document) ResetForRetry() error {
	if d.Status != StatusFailed && d.Status != StatusCompleted {
		return apperr.Conflict(fmt.Sprintf("cannot re-index document in %s state", d.Status))
	}
	d.Status = StatusPending
	d.ErrorMessage = ""
	d.TotalChunks = 0
	d.SuccessfulChunks = 0
	return nil
}

// RecordProgress applies absolute chunk counts. Counts are monotonic so a
// retried progress write can never move the counters backwards.
func (d *Document) RecordProgress(totalChunks, successfulChunks int) {
	if totalChunks > d.TotalChunks {
		d.TotalChunks = totalChunks
	}
	if successfulChunks > d.SuccessfulChunks {
		d.SuccessfulChunks = successfulChunks
	}
	if d.SuccessfulChunks > d.TotalChunks {
		d.SuccessfulChunks = d.TotalChunks
	}
}

// GrantFor returns the active grant for a user, if any.
func (d *Document) GrantFor(userID string) (Grant, bool) {
	for _, g := range d.Grants {
		if g.UserID == userID {
			return g, true
		}
	}
	return Grant{}, false
}
