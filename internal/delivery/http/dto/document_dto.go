package dto

import "time"

type UploadDocumentResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type GrantInfo struct {
	UserID     string    `json:"userId"`
	Permission string    `json:"permission"`
	SharedAt   time.Time `json:"sharedAt"`
}

type DocumentInfo struct {
	ID               string      `json:"id"`
	OwnerID          string      `json:"ownerId"`
	Name             string      `json:"name"`
	OriginalName     string      `json:"originalName"`
	FileSize         int64       `json:"fileSize"`
	MimeType         string      `json:"mimeType"`
	PageCount        int         `json:"pageCount"`
	Description      string      `json:"description,omitempty"`
	Tags             []string    `json:"tags,omitempty"`
	Status           string      `json:"status"`
	IsIndexed        bool        `json:"isIndexed"`
	IndexedAt        *time.Time  `json:"indexedAt,omitempty"`
	ErrorMessage     string      `json:"errorMessage,omitempty"`
	TotalChunks      int         `json:"totalChunks"`
	SuccessfulChunks int         `json:"successfulChunks"`
	IsPublic         bool        `json:"isPublic"`
	Grants           []GrantInfo `json:"grants,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
}

type ListDocumentsResponse struct {
	Data []DocumentInfo `json:"data"`
	Meta PaginationMeta `json:"meta"`
}

type PaginationMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

type IndexingStatusResponse struct {
	ID               string     `json:"id"`
	Status           string     `json:"status"`
	IsIndexed        bool       `json:"isIndexed"`
	IndexedAt        *time.Time `json:"indexedAt,omitempty"`
	TotalChunks      int        `json:"totalChunks"`
	SuccessfulChunks int        `json:"successfulChunks"`
	ErrorMessage     string     `json:"errorMessage,omitempty"`
}

type ShareDocumentRequest struct {
	UserID     string `json:"userId"`
	Permission string `json:"permission"`
}

type QueryDocumentRequest struct {
	Question string `json:"question"`
}

type ChunkSource struct {
	ChunkIndex int     `json:"chunkIndex"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

type QueryDocumentResponse struct {
	Question     string        `json:"question"`
	Answer       string        `json:"answer"`
	Citations    []int         `json:"citations"`
	Sources      []ChunkSource `json:"sources"`
	PartialIndex bool          `json:"partialIndex"`
}
