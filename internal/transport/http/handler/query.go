package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"pdfquery/internal/app"
	"pdfquery/internal/transport/http/response"
)

type QueryHandler struct {
	queryService *app.QueryService
}

type QueryRequest struct {
	Query string `json:"query" binding:"required"`
}

func NewQueryHandler(queryService *app.QueryService) *QueryHandler {
	return &QueryHandler{queryService: queryService}
}

// Process builds or reuses the document's index and makes it the session's
// active index.
func (h *QueryHandler) Process(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	sessionID, ok := getSessionIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	docID, err := parseUintParam(c, "id")
	if err != nil || docID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}

	indexName, err := h.queryService.Process(c.Request.Context(), userID, sessionID, docID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrIndexBuild):
			log.Printf("process document %d failed: %v", docID, err)
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "index build failed")
		default:
			writeDocumentError(c, err, "process document failed")
		}
		return
	}

	response.OK(c, gin.H{"index_name": indexName})
}

// Query answers a question against the session's active index.
func (h *QueryHandler) Query(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	sessionID, ok := getSessionIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	answer, err := h.queryService.Query(c.Request.Context(), userID, sessionID, req.Query)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrNoActiveIndex):
			response.Error(c, http.StatusBadRequest, response.CodeNoActiveIndex, err.Error())
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrDocumentNotFound):
			response.Error(c, http.StatusNotFound, response.CodeNotFound, "the processed document is no longer indexed")
		default:
			log.Printf("answer query failed: %v", err)
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "answer query failed")
		}
		return
	}

	response.OK(c, gin.H{"answer": answer})
}
