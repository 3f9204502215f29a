package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"labops-backend/internal/ledger"
	"labops-backend/internal/model"
)

type usageLogRequest struct {
	StartTime     time.Time         `json:"startTime" binding:"required"`
	EndTime       time.Time         `json:"endTime" binding:"required"`
	Operator      string            `json:"operator" binding:"required"`
	TestReference string            `json:"testReference"`
	Parameters    map[string]string `json:"parameters"`
	Notes         string            `json:"notes"`
}

// AppendUsageLog handles POST /api/equipment/:id/usage-logs.
func (h *Handler) AppendUsageLog(c *gin.Context) {
	var req usageLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.svc.AppendUsageLog(c.Request.Context(), c.Param("id"), ledger.UsageInput{
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		Operator:      req.Operator,
		TestReference: req.TestReference,
		Parameters:    req.Parameters,
		Notes:         req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

type maintenanceLogRequest struct {
	Date          time.Time               `json:"date" binding:"required"`
	Technician    string                  `json:"technician" binding:"required"`
	Type          model.MaintenanceType   `json:"type" binding:"required"`
	Description   string                  `json:"description"`
	Cost          float64                 `json:"cost"`
	DowntimeHours float64                 `json:"downtimeHours"`
	Result        model.MaintenanceResult `json:"result" binding:"required"`
}

// AppendMaintenanceLog handles POST /api/equipment/:id/maintenance-logs.
func (h *Handler) AppendMaintenanceLog(c *gin.Context) {
	var req maintenanceLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.svc.AppendMaintenanceLog(c.Request.Context(), c.Param("id"), ledger.MaintenanceInput{
		Date:          req.Date,
		Technician:    req.Technician,
		Type:          req.Type,
		Description:   req.Description,
		Cost:          req.Cost,
		DowntimeHours: req.DowntimeHours,
		Result:        req.Result,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

type calibrationLogRequest struct {
	Date                 time.Time                 `json:"date" binding:"required"`
	Technician           string                    `json:"technician" binding:"required"`
	Provider             model.CalibrationProvider `json:"provider" binding:"required"`
	ExternalProviderName string                    `json:"externalProviderName"`
	Result               model.CalibrationResult   `json:"result" binding:"required"`
	CertificateNumber    string                    `json:"certificateNumber"`
	ValidUntil           time.Time                 `json:"validUntil"`
}

// AppendCalibrationLog handles POST /api/equipment/:id/calibration-logs.
func (h *Handler) AppendCalibrationLog(c *gin.Context) {
	var req calibrationLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.svc.AppendCalibrationLog(c.Request.Context(), c.Param("id"), ledger.CalibrationInput{
		Date:                 req.Date,
		Technician:           req.Technician,
		Provider:             req.Provider,
		ExternalProviderName: req.ExternalProviderName,
		Result:               req.Result,
		CertificateNumber:    req.CertificateNumber,
		ValidUntil:           req.ValidUntil,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// ListUsageLogs handles GET /api/equipment/:id/usage-logs.
func (h *Handler) ListUsageLogs(c *gin.Context) {
	rng, err := rangeParams(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid from/to timestamp format. Use RFC3339."})
		return
	}

	logs, err := h.svc.ListUsageLogs(c.Request.Context(), c.Param("id"), rng)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// ListMaintenanceLogs handles GET /api/equipment/:id/maintenance-logs.
func (h *Handler) ListMaintenanceLogs(c *gin.Context) {
	rng, err := rangeParams(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid from/to timestamp format. Use RFC3339."})
		return
	}

	logs, err := h.svc.ListMaintenanceLogs(c.Request.Context(), c.Param("id"), rng)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// ListCalibrationLogs handles GET /api/equipment/:id/calibration-logs.
func (h *Handler) ListCalibrationLogs(c *gin.Context) {
	rng, err := rangeParams(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid from/to timestamp format. Use RFC3339."})
		return
	}

	logs, err := h.svc.ListCalibrationLogs(c.Request.Context(), c.Param("id"), rng)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
