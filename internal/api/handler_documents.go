package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"labops-backend/internal/ledger"
)

type documentRequest struct {
	Name       string    `json:"name" binding:"required"`
	Type       string    `json:"type"`
	UploadDate time.Time `json:"uploadDate"`
	URL        string    `json:"url" binding:"required"`
}

// AttachDocument handles POST /api/equipment/:id/documents.
func (h *Handler) AttachDocument(c *gin.Context) {
	var req documentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UploadDate.IsZero() {
		req.UploadDate = time.Now().UTC()
	}

	id, err := h.svc.AttachDocument(c.Request.Context(), c.Param("id"), ledger.DocumentInput{
		Name:       req.Name,
		Type:       req.Type,
		UploadDate: req.UploadDate,
		URL:        req.URL,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// ListDocuments handles GET /api/equipment/:id/documents.
func (h *Handler) ListDocuments(c *gin.Context) {
	docs, err := h.svc.ListDocuments(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}
