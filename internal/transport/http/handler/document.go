package handler

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"pdfquery/internal/app"
	"pdfquery/internal/transport/http/response"
)

type DocumentHandler struct {
	docService   *app.DocumentService
	queryService *app.QueryService
	maxUpload    int64
}

func NewDocumentHandler(docService *app.DocumentService, queryService *app.QueryService, maxUpload int64) *DocumentHandler {
	return &DocumentHandler{
		docService:   docService,
		queryService: queryService,
		maxUpload:    maxUpload,
	}
}

// Dashboard lists the requester's documents and recent queries.
func (h *DocumentHandler) Dashboard(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	docs, err := h.docService.List(userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list documents failed")
		return
	}
	recent, err := h.queryService.RecentQueries(userID, 20)
	if err != nil {
		log.Printf("list recent queries failed: %v", err)
		recent = nil
	}

	response.OK(c, gin.H{
		"documents":      docs,
		"recent_queries": recent,
	})
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	fileHeader, err := c.FormFile("pdf_file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing pdf_file form field")
		return
	}
	if fileHeader.Size > h.maxUpload {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "uploaded file is too large")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read uploaded file failed")
		return
	}
	defer f.Close()

	doc, err := h.docService.Upload(app.UploadDocumentInput{
		UserID:   userID,
		Filename: fileHeader.Filename,
		File:     f,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrUnsupportedUpload), errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrStorage):
			log.Printf("store upload failed: %v", err)
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "store upload failed")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "upload failed")
		}
		return
	}

	response.OK(c, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	docID, err := parseUintParam(c, "id")
	if err != nil || docID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}

	if err := h.docService.Delete(userID, docID); err != nil {
		writeDocumentError(c, err, "delete document failed")
		return
	}
	response.OK(c, gin.H{"deleted_document_id": docID})
}

// Serve streams the raw PDF back to its owner.
func (h *DocumentHandler) Serve(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	docID, err := parseUintParam(c, "id")
	if err != nil || docID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}

	doc, f, err := h.docService.Open(userID, docID)
	if err != nil {
		writeDocumentError(c, err, "serve document failed")
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", `inline; filename="`+doc.Filename+`"`)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, f); err != nil {
		log.Printf("stream document %d failed: %v", doc.ID, err)
	}
}

// writeDocumentError maps the document service's sentinel errors onto the
// API surface. Storage detail stays in the server log.
func writeDocumentError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrDocumentNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "document not found")
	case errors.Is(err, app.ErrPermissionDenied):
		response.Error(c, http.StatusForbidden, response.CodePermissionDenied, "you do not own this document")
	case errors.Is(err, app.ErrStorage):
		log.Printf("%s: %v", fallback, err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	default:
		log.Printf("%s: %v", fallback, err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
