package document

import (
	"context"
	"time"

	"docquery/internal/domain/entity"
	"docquery/pkg/apperr"
)

// Resolve computes the effective access level for a (document, user) pair.
// First match wins: ownership, then public visibility, then an explicit
// grant. It is pure so every read and query path can call it cheaply.
func Resolve(doc *entity.Document, userID string) entity.AccessLevel {
	if doc.OwnerID == userID {
		return entity.AccessOwner
	}
	if doc.IsPublic {
		return entity.AccessRead
	}
	if grant, ok := doc.GrantFor(userID); ok {
		if grant.Permission == entity.PermissionWrite {
			return entity.AccessWrite
		}
		return entity.AccessRead
	}
	return entity.AccessNone
}

// HasAccess reports whether the user can see the document at all.
func HasAccess(doc *entity.Document, userID string) bool {
	return Resolve(doc, userID) != entity.AccessNone
}

// canWrite reports whether the level allows mutating operations.
func canWrite(level entity.AccessLevel) bool {
	return level == entity.AccessOwner || level == entity.AccessWrite
}

// ShareDocument grants or updates a non-owner user's permission. Only the
// owner may share. Re-sharing the same user updates the existing grant in
// place, so a user never holds more than one grant.
func (uc *DocumentUsecase) ShareDocument(ctx context.Context, callerID, documentID, targetUserID string, permission entity.Permission) (*entity.Document, error) {
	if permission != entity.PermissionRead && permission != entity.PermissionWrite {
		return nil, apperr.Validation("permission must be read or write")
	}

	doc, err := uc.docRepo.FindByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if Resolve(doc, callerID) != entity.AccessOwner {
		return nil, apperr.Forbidden("only the owner can share a document")
	}
	if targetUserID == doc.OwnerID {
		return nil, apperr.Validation("cannot share with owner")
	}

	now := time.Now()
	updated := false
	for i := range doc.Grants {
		if doc.Grants[i].UserID == targetUserID {
			doc.Grants[i].Permission = permission
			doc.Grants[i].SharedAt = now
			updated = true
			break
		}
	}
	if !updated {
		doc.Grants = append(doc.Grants, entity.Grant{
			UserID:     targetUserID,
			Permission: permission,
			SharedAt:   now,
		})
	}

	if err := uc.docRepo.ReplaceGrants(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// UnshareDocument removes a user's grant. Missing grants are a NotFound so
// the caller can tell "never shared" apart from a validation mistake.
func (uc *DocumentUsecase) UnshareDocument(ctx context.Context, callerID, documentID, targetUserID string) (*entity.Document, error) {
	doc, err := uc.docRepo.FindByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if Resolve(doc, callerID) != entity.AccessOwner {
		return nil, apperr.Forbidden("only the owner can unshare a document")
	}

	found := false
	grants := doc.Grants[:0]
	for _, g := range doc.Grants {
		if g.UserID == targetUserID {
			found = true
			continue
		}
		grants = append(grants, g)
	}
	if !found {
		return nil, apperr.NotFound("not shared with this user")
	}
	doc.Grants = grants

	if err := uc.docRepo.ReplaceGrants(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}
