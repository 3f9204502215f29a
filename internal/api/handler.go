package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"labops-backend/internal/ledger"
	"labops-backend/internal/service"
	"labops-backend/internal/validate"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	svc *service.Service
}

// NewHandler creates a new API handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// nowParam reads the optional "at" query parameter (RFC3339), defaulting to
// the current time. The second return value is false when the parameter was
// present but unparsable.
func nowParam(c *gin.Context) (time.Time, bool) {
	atParam := c.Query("at")
	if atParam == "" {
		return time.Now().UTC(), true
	}
	at, err := time.Parse(time.RFC3339, atParam)
	if err != nil {
		return time.Time{}, false
	}
	return at, true
}

// rangeParams reads the optional from/to query parameters (RFC3339).
func rangeParams(c *gin.Context) (ledger.LogRange, error) {
	var rng ledger.LogRange
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return rng, err
		}
		rng.From = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return rng, err
		}
		rng.To = &t
	}
	return rng, nil
}

// respondError maps the ledger error taxonomy onto HTTP statuses. Overlap
// responses carry the conflicting log id so the caller can pick another
// window.
func respondError(c *gin.Context, err error) {
	var oe *validate.OverlapError
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error(), "kind": service.ErrKind(err)})
	case errors.As(err, &oe):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":              oe.Error(),
			"kind":               service.ErrKind(err),
			"conflicting_log_id": oe.ConflictingLogID,
		})
	case errors.Is(err, ledger.ErrDuplicateSerialNumber),
		errors.Is(err, ledger.ErrEquipmentUnavailable):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error(), "kind": service.ErrKind(err)})
	case errors.Is(err, ledger.ErrNonMonotonicDate),
		errors.Is(err, ledger.ErrNonPositiveFrequency),
		errors.Is(err, validate.ErrInvalidInterval),
		errors.Is(err, ledger.ErrInvalidLog):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "kind": service.ErrKind(err)})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
