package handler

import (
	"io"
	"strconv"

	"docquery/internal/delivery/http/dto"
	"docquery/internal/domain/entity"
	"docquery/internal/usecase/document"

	"github.com/gofiber/fiber/v2"
)

type DocumentHandler struct {
	docUsecase *document.DocumentUsecase
}

func NewDocumentHandler(docUsecase *document.DocumentUsecase) *DocumentHandler {
	return &DocumentHandler{docUsecase: docUsecase}
}

// Upload godoc
// @Summary      Upload a document
// @Description  Upload a PDF file; chunking, embedding and indexing run in the background
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file    formData  file    true  "PDF file to upload"
// @Param        public  formData  string  false "Make the document public (true/false)" default(false)
// @Success      201  {object}  dto.UploadDocumentResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/documents/upload [post]
func (h *DocumentHandler) Upload(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)

	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Failed to get file"})
	}

	isPublic := c.FormValue("public") == "true"
	description := c.FormValue("description")

	fileData, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to open file"})
	}
	defer fileData.Close()

	buf, err := io.ReadAll(fileData)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to read file"})
	}

	doc, err := h.docUsecase.UploadDocument(
		c.Context(),
		userID,
		file.Filename,
		buf,
		file.Header.Get("Content-Type"),
		isPublic,
		description,
		nil,
	)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.UploadDocumentResponse{
		ID:      doc.ID,
		Name:    doc.Name,
		Status:  string(doc.Status),
		Message: "Document uploaded successfully. Processing in background.",
	})
}

// List godoc
// @Summary      List visible documents
// @Description  Documents the user owns, public documents, and documents shared with them
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        page   query  int  false  "Page number" default(1)
// @Param        limit  query  int  false  "Items per page" default(10)
// @Success      200  {object}  dto.ListDocumentsResponse
// @Router       /api/documents [get]
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))

	docs, total, err := h.docUsecase.ListDocuments(c.Context(), userID, page, limit)
	if err != nil {
		return respondError(c, err)
	}

	docInfos := make([]dto.DocumentInfo, 0, len(docs))
	for _, doc := range docs {
		docInfos = append(docInfos, toDocumentInfo(&doc))
	}

	totalPages := (total + limit - 1) / limit

	return c.Status(fiber.StatusOK).JSON(dto.ListDocumentsResponse{
		Data: docInfos,
		Meta: dto.PaginationMeta{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: totalPages,
		},
	})
}

// GetByID godoc
// @Summary      Get document by ID
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Document ID"
// @Success      200  {object}  dto.DocumentInfo
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/documents/{id} [get]
func (h *DocumentHandler) GetByID(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	documentID := c.Params("id")

	doc, err := h.docUsecase.GetDocument(c.Context(), userID, documentID)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(toDocumentInfo(doc))
}

// Status godoc
// @Summary      Get indexing status
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Document ID"
// @Success      200  {object}  dto.IndexingStatusResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/status [get]
func (h *DocumentHandler) Status(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	documentID := c.Params("id")

	doc, err := h.docUsecase.GetDocument(c.Context(), userID, documentID)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(dto.IndexingStatusResponse{
		ID:               doc.ID,
		Status:           string(doc.Status),
		IsIndexed:        doc.IsIndexed,
		IndexedAt:        doc.IndexedAt,
		TotalChunks:      doc.TotalChunks,
		SuccessfulChunks: doc.SuccessfulChunks,
		ErrorMessage:     doc.ErrorMessage,
	})
}

// Reindex godoc
// @Summary      Re-index a document
// @Description  Resets a completed or failed document to pending and re-runs the pipeline over the uploaded file
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string  true  "Document ID"
// @Param        file  formData  file    true  "PDF file to re-process"
// @Success      202  {object}  dto.UploadDocumentResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/reindex [post]
func (h *DocumentHandler) Reindex(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	documentID := c.Params("id")

	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Failed to get file"})
	}

	fileData, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to open file"})
	}
	defer fileData.Close()

	buf, err := io.ReadAll(fileData)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to read file"})
	}

	doc, err := h.docUsecase.ReindexDocument(c.Context(), userID, documentID, buf)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(dto.UploadDocumentResponse{
		ID:      doc.ID,
		Name:    doc.Name,
		Status:  string(doc.Status),
		Message: "Re-indexing started.",
	})
}

// Share godoc
// @Summary      Share a document with another user
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  string                   true  "Document ID"
// @Param        payload  body  dto.ShareDocumentRequest true  "Target user and permission"
// @Success      200  {object}  dto.DocumentInfo
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/share [post]
func (h *DocumentHandler) Share(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	documentID := c.Params("id")

	var req dto.ShareDocumentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	doc, err := h.docUsecase.ShareDocument(c.Context(), userID, documentID, req.UserID, entity.Permission(req.Permission))
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(toDocumentInfo(doc))
}

// Unshare godoc
// @Summary      Revoke a user's access to a document
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id      path  string  true  "Document ID"
// @Param        userId  path  string  true  "User whose grant is removed"
// @Success      200  {object}  dto.DocumentInfo
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/share/{userId} [delete]
func (h *DocumentHandler) Unshare(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	documentID := c.Params("id")
	targetUserID := c.Params("userId")

	doc, err := h.docUsecase.UnshareDocument(c.Context(), userID, documentID, targetUserID)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(toDocumentInfo(doc))
}

// Query godoc
// @Summary      Ask a question about a document
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  string                   true  "Document ID"
// @Param        payload  body  dto.QueryDocumentRequest true  "Question"
// @Success      200  {object}  dto.QueryDocumentResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/query [post]
func (h *DocumentHandler) Query(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	documentID := c.Params("id")

	var req dto.QueryDocumentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	result, err := h.docUsecase.Answer(c.Context(), userID, documentID, req.Question)
	if err != nil {
		return respondError(c, err)
	}

	sources := make([]dto.ChunkSource, 0, len(result.Sources))
	for _, chunk := range result.Sources {
		sources = append(sources, dto.ChunkSource{
			ChunkIndex: chunk.Index,
			Content:    chunk.Text,
			Similarity: chunk.Score,
		})
	}

	return c.Status(fiber.StatusOK).JSON(dto.QueryDocumentResponse{
		Question:     req.Question,
		Answer:       result.Answer,
		Citations:    result.Citations,
		Sources:      sources,
		PartialIndex: result.PartialIndex,
	})
}

func toDocumentInfo(doc *entity.Document) dto.DocumentInfo {
	grants := make([]dto.GrantInfo, 0, len(doc.Grants))
	for _, g := range doc.Grants {
		grants = append(grants, dto.GrantInfo{
			UserID:     g.UserID,
			Permission: string(g.Permission),
			SharedAt:   g.SharedAt,
		})
	}

	return dto.DocumentInfo{
		ID:               doc.ID,
		OwnerID:          doc.OwnerID,
		Name:             doc.Name,
		OriginalName:     doc.OriginalName,
		FileSize:         doc.FileSize,
		MimeType:         doc.MimeType,
		PageCount:        doc.PageCount,
		Description:      doc.Description,
		Tags:             doc.Tags,
		Status:           string(doc.Status),
		IsIndexed:        doc.IsIndexed,
		IndexedAt:        doc.IndexedAt,
		ErrorMessage:     doc.ErrorMessage,
		TotalChunks:      doc.TotalChunks,
		SuccessfulChunks: doc.SuccessfulChunks,
		IsPublic:         doc.IsPublic,
		Grants:           grants,
		CreatedAt:        doc.CreatedAt,
	}
}
