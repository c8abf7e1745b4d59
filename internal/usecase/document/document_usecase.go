package document

import (
	"context"
	"fmt"
	"log"
	"time"

	"docquery/internal/domain/entity"
	"docquery/internal/domain/repository"
	"docquery/internal/domain/vectorstore"
	"docquery/pkg/apperr"
	"docquery/pkg/retry"

	"github.com/google/uuid"
)

// Config carries every tunable the document pipeline and query engine use.
// It is passed in explicitly so tests can vary it per case.
type Config struct {
	ChunkSize          int
	ChunkOverlap       int
	TopK               int
	MaxContextChars    int
	IndexWorkers       int
	Retry              retry.Config
	UpstreamTimeout    time.Duration
	EmbeddingDimension int
	CollectionPrefix   string
}

type DocumentUsecase struct {
	docRepo   repository.DocumentRepository
	index     vectorstore.VectorIndex
	embedder  vectorstore.Embedder
	generator vectorstore.Generator
	extractor Extractor
	chunker   *Chunker
	cfg       Config
}

func NewDocumentUsecase(
	docRepo repository.DocumentRepository,
	index vectorstore.VectorIndex,
	embedder vectorstore.Embedder,
	generator vectorstore.Generator,
	cfg Config,
) *DocumentUsecase {
	if cfg.IndexWorkers <= 0 {
		cfg.IndexWorkers = 4
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 6
	}
	return &DocumentUsecase{
		docRepo:   docRepo,
		index:     index,
		embedder:  embedder,
		generator: generator,
		extractor: NewPDFExtractor(),
		chunker:   NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		cfg:       cfg,
	}
}

// UploadDocument registers a new document in pending state and starts the
// indexing pipeline in the background, like the rest of the API it returns
// before indexing finishes.
func (uc *DocumentUsecase) UploadDocument(
	ctx context.Context,
	ownerID string,
	filename string,
	fileData []byte,
	mimeType string,
	isPublic bool,
	description string,
	tags []string,
) (*entity.Document, error) {
	if mimeType != "application/pdf" {
		return nil, apperr.Validation(fmt.Sprintf("unsupported file type: %s", mimeType))
	}

	doc := &entity.Document{
		OwnerID:      ownerID,
		Name:         filename,
		OriginalName: filename,
		FileSize:     int64(len(fileData)),
		MimeType:     mimeType,
		Description:  description,
		Tags:         tags,
		IsPublic:     isPublic,
		Collection:   fmt.Sprintf("%s_%s", uc.cfg.CollectionPrefix, uuid.NewString()),
	}

	if err := uc.docRepo.Create(ctx, doc); err != nil {
		return nil, err
	}

	// process document in background
	go func() {
		// recovery for panic in background process
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Panic in document processing for doc %s: %v", doc.ID, r)
				uc.docRepo.MarkFailed(context.Background(), doc.ID, fmt.Sprintf("internal error: %v", r))
			}
		}()

		if err := uc.IndexDocument(context.Background(), doc.ID, fileData); err != nil {
			log.Printf("Error processing document %s: %v", doc.ID, err)
		}
	}()

	return doc, nil
}

// ListDocuments returns every document visible to the user: owned, public,
// or shared with them.
func (uc *DocumentUsecase) ListDocuments(ctx context.Context, userID string, page, limit int) ([]entity.Document, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return uc.docRepo.ListVisible(ctx, userID, page, limit)
}

// GetDocument loads a document the user can read.
func (uc *DocumentUsecase) GetDocument(ctx context.Context, userID, documentID string) (*entity.Document, error) {
	doc, err := uc.docRepo.FindByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !HasAccess(doc, userID) {
		return nil, apperr.Forbidden("you do not have access to this document")
	}
	return doc, nil
}

// ReindexDocument re-enters pending from a terminal state and runs the full
// pipeline again over the supplied file bytes. Counters and the error reset
// first; deterministic vector ids make the re-run overwrite old points.
func (uc *DocumentUsecase) ReindexDocument(ctx context.Context, callerID, documentID string, fileData []byte) (*entity.Document, error) {
	doc, err := uc.docRepo.FindByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !canWrite(Resolve(doc, callerID)) {
		return nil, apperr.Forbidden("write access required to re-index")
	}

	if err := uc.docRepo.ResetForRetry(ctx, documentID); err != nil {
		return nil, err
	}
	doc.Status = entity.StatusPending
	doc.ErrorMessage = ""
	doc.TotalChunks = 0
	doc.SuccessfulChunks = 0

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Panic in document re-indexing for doc %s: %v", documentID, r)
				uc.docRepo.MarkFailed(context.Background(), documentID, fmt.Sprintf("internal error: %v", r))
			}
		}()

		// drop stale points first so a shorter re-upload does not leave
		// orphaned chunks behind the new index
		if err := uc.index.DeleteDocument(context.Background(), doc.Collection, documentID); err != nil {
			log.Printf("Failed to clear old vectors for document %s: %v", documentID, err)
		}

		if err := uc.IndexDocument(context.Background(), documentID, fileData); err != nil {
			log.Printf("Error re-indexing document %s: %v", documentID, err)
		}
	}()

	return doc, nil
}
