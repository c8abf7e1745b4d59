package document

import (
	"context"
	"fmt"
	"sync"
	"time"

	"docquery/internal/domain/entity"
	"docquery/internal/domain/repository"
	"docquery/pkg/apperr"
	"docquery/pkg/retry"

	"github.com/google/uuid"
)

// fakeRegistry is an in-memory DocumentRepository with the same transition
// semantics as the postgres adapter: CAS claim, monotonic progress, atomic
// terminal transitions, versioned grant writes.
type fakeRegistry struct {
	mu      sync.Mutex
	docs    map[string]*entity.Document
	findErr error // injected FindByID failure
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{docs: make(map[string]*entity.Document)}
}

var _ repository.DocumentRepository = (*fakeRegistry)(nil)

func (r *fakeRegistry) Create(_ context.Context, doc *entity.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc.ID = uuid.New().String()
	doc.Status = entity.StatusPending
	doc.Version = 1
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = time.Now()
	stored := *doc
	r.docs[doc.ID] = &stored
	return nil
}

func (r *fakeRegistry) put(doc *entity.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *doc
	r.docs[doc.ID] = &stored
}

func (r *fakeRegistry) FindByID(_ context.Context, id string) (*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	doc, ok := r.docs[id]
	if !ok {
		return nil, apperr.NotFound("document not found")
	}
	copied := *doc
	copied.Grants = append([]entity.Grant(nil), doc.Grants...)
	return &copied, nil
}

func (r *fakeRegistry) ListVisible(_ context.Context, userID string, page, limit int) ([]entity.Document, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var visible []entity.Document
	for _, doc := range r.docs {
		if HasAccess(doc, userID) {
			visible = append(visible, *doc)
		}
	}
	return visible, len(visible), nil
}

func (r *fakeRegistry) ClaimForProcessing(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return apperr.NotFound("document not found")
	}
	return doc.ClaimProcessing()
}

func (r *fakeRegistry) UpdateProgress(_ context.Context, id string, total, successful int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return apperr.NotFound("document not found")
	}
	doc.RecordProgress(total, successful)
	return nil
}

func (r *fakeRegistry) SetPageCount(_ context.Context, id string, pages int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return apperr.NotFound("document not found")
	}
	doc.PageCount = pages
	return nil
}

func (r *fakeRegistry) MarkCompleted(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return apperr.NotFound("document not found")
	}
	return doc.Complete(time.Now())
}

func (r *fakeRegistry) MarkFailed(_ context.Context, id string, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return apperr.NotFound("document not found")
	}
	return doc.Fail(message)
}

func (r *fakeRegistry) ResetForRetry(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return apperr.NotFound("document not found")
	}
	return doc.ResetForRetry()
}

func (r *fakeRegistry) ReplaceGrants(_ context.Context, doc *entity.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.docs[doc.ID]
	if !ok {
		return apperr.NotFound("document not found")
	}
	if stored.Version != doc.Version {
		return apperr.Conflict("document was modified concurrently")
	}
	stored.Version++
	stored.Grants = append([]entity.Grant(nil), doc.Grants...)
	doc.Version = stored.Version
	return nil
}

// fakeEmbedder returns deterministic vectors and can fail specific texts.
type fakeEmbedder struct {
	mu        sync.Mutex
	failTexts map[string]int // text -> remaining failures (-1 = always)
	calls     int
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{failTexts: make(map[string]int)}
}

func (e *fakeEmbedder) failAlways(text string) {
	e.failTexts[text] = -1
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if remaining, ok := e.failTexts[text]; ok {
		if remaining != 0 {
			if remaining > 0 {
				e.failTexts[text] = remaining - 1
			}
			return nil, apperr.Upstream("embedding request failed", fmt.Errorf("injected failure for %q", text), true)
		}
	}
	// deterministic, length-based vector keeps the fake trivial
	return []float32{float32(len(text)), 1, 0}, nil
}

// fakeIndex stores chunks per collection and serves canned or stored search
// results.
type fakeIndex struct {
	mu            sync.Mutex
	stored        map[string]map[int]entity.Chunk // collection -> chunk index -> chunk
	searchResults []entity.ScoredChunk            // canned results override stored contents
	failUpserts   map[int]bool                    // chunk index -> always fail
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		stored:      make(map[string]map[int]entity.Chunk),
		failUpserts: make(map[int]bool),
	}
}

func (f *fakeIndex) EnsureCollection(context.Context, string, int) error { return nil }

func (f *fakeIndex) Upsert(_ context.Context, collection string, chunk entity.Chunk, _ []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpserts[chunk.Index] {
		return apperr.Upstream("vector upsert failed", fmt.Errorf("injected failure for chunk %d", chunk.Index), true)
	}
	if f.stored[collection] == nil {
		f.stored[collection] = make(map[int]entity.Chunk)
	}
	f.stored[collection][chunk.Index] = chunk
	return nil
}

func (f *fakeIndex) Search(_ context.Context, collection string, _ []float32, topK int) ([]entity.ScoredChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchResults != nil {
		if len(f.searchResults) > topK {
			return append([]entity.ScoredChunk(nil), f.searchResults[:topK]...), nil
		}
		return append([]entity.ScoredChunk(nil), f.searchResults...), nil
	}
	var results []entity.ScoredChunk
	for _, chunk := range f.stored[collection] {
		results = append(results, entity.ScoredChunk{Chunk: chunk, Score: 1.0})
	}
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (f *fakeIndex) DeleteDocument(_ context.Context, collection string, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for idx, chunk := range f.stored[collection] {
		if chunk.DocumentID == documentID {
			delete(f.stored[collection], idx)
		}
	}
	return nil
}

func (f *fakeIndex) storedIndices(collection string) []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var indices []int
	for idx := range f.stored[collection] {
		indices = append(indices, idx)
	}
	return indices
}

// fakeGenerator echoes a canned answer or fails on demand.
type fakeGenerator struct {
	answer      string
	err         error
	lastContext string
}

func (g *fakeGenerator) Generate(_ context.Context, _, docContext string) (string, error) {
	g.lastContext = docContext
	if g.err != nil {
		return "", g.err
	}
	if g.answer == "" {
		return "generated answer", nil
	}
	return g.answer, nil
}

// fakeExtractor returns fixed text instead of parsing a PDF.
type fakeExtractor struct {
	text  string
	pages int
	err   error
}

func (e *fakeExtractor) ExtractFromPDF([]byte) (string, int, error) {
	if e.err != nil {
		return "", 0, e.err
	}
	return e.text, e.pages, nil
}

// testUsecase wires a usecase over the fakes with test-friendly settings.
func testUsecase(reg *fakeRegistry, index *fakeIndex, embedder *fakeEmbedder, gen *fakeGenerator, extractorText string) *DocumentUsecase {
	uc := NewDocumentUsecase(reg, index, embedder, gen, Config{
		ChunkSize:       6,
		ChunkOverlap:    0,
		TopK:            3,
		MaxContextChars: 4000,
		IndexWorkers:    2,
		Retry: retry.Config{
			MaxRetries:   1,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
			Multiplier:   2.0,
		},
		UpstreamTimeout:    time.Second,
		EmbeddingDimension: 3,
		CollectionPrefix:   "test",
	})
	uc.extractor = &fakeExtractor{text: extractorText, pages: 1}
	return uc
}

// threeChunkText chunks into exactly ["abcde", "fghij", "klmno"] with the
// test chunker settings (size 6, no overlap).
const threeChunkText = "abcde fghij klmno"
