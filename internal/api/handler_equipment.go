package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"labops-backend/internal/ledger"
	"labops-backend/internal/model"
	"labops-backend/internal/schedule"
)

type registerEquipmentRequest struct {
	Name           string            `json:"name" binding:"required"`
	Model          string            `json:"model"`
	SerialNumber   string            `json:"serialNumber" binding:"required"`
	Manufacturer   string            `json:"manufacturer"`
	Location       string            `json:"location"`
	Category       string            `json:"category"`
	Specifications map[string]string `json:"specifications"`
	Notes          string            `json:"notes"`

	LastCalibrationDate      time.Time `json:"lastCalibrationDate"`
	CalibrationFrequencyDays int       `json:"calibrationFrequencyDays" binding:"required"`
	LastMaintenanceDate      time.Time `json:"lastMaintenanceDate"`
	MaintenanceFrequencyDays int       `json:"maintenanceFrequencyDays" binding:"required"`
}

// trackResponse reports one track's schedule state.
type trackResponse struct {
	NextDue time.Time        `json:"nextDue"`
	Urgency schedule.Urgency `json:"urgency"`
}

// equipmentViewResponse is the flattened structure for the API response.
type equipmentViewResponse struct {
	model.Equipment
	Status      model.EquipmentStatus `json:"status"`
	Calibration trackResponse         `json:"calibration"`
	Maintenance trackResponse         `json:"maintenance"`
}

func toViewResponse(v ledger.View) equipmentViewResponse {
	return equipmentViewResponse{
		Equipment:   v.Equipment,
		Status:      v.Status,
		Calibration: trackResponse{NextDue: v.Calibration.NextDue, Urgency: v.Calibration.Urgency},
		Maintenance: trackResponse{NextDue: v.Maintenance.NextDue, Urgency: v.Maintenance.Urgency},
	}
}

func toViewResponses(views []ledger.View) []equipmentViewResponse {
	out := make([]equipmentViewResponse, len(views))
	for i, v := range views {
		out[i] = toViewResponse(v)
	}
	return out
}

// RegisterEquipment handles POST /api/equipment.
func (h *Handler) RegisterEquipment(c *gin.Context) {
	var req registerEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Track baselines default to the registration time when not supplied.
	now := time.Now().UTC()
	if req.LastCalibrationDate.IsZero() {
		req.LastCalibrationDate = now
	}
	if req.LastMaintenanceDate.IsZero() {
		req.LastMaintenanceDate = now
	}

	eq, err := h.svc.RegisterEquipment(c.Request.Context(), ledger.RegisterSpec{
		Name:                     req.Name,
		Model:                    req.Model,
		SerialNumber:             req.SerialNumber,
		Manufacturer:             req.Manufacturer,
		Location:                 req.Location,
		Category:                 req.Category,
		Specifications:           req.Specifications,
		Notes:                    req.Notes,
		LastCalibrationDate:      req.LastCalibrationDate,
		CalibrationFrequencyDays: req.CalibrationFrequencyDays,
		LastMaintenanceDate:      req.LastMaintenanceDate,
		MaintenanceFrequencyDays: req.MaintenanceFrequencyDays,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": eq.ID})
}

// GetEquipment handles GET /api/equipment/:id.
func (h *Handler) GetEquipment(c *gin.Context) {
	now, ok := nowParam(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid 'at' timestamp format. Use RFC3339."})
		return
	}

	view, err := h.svc.GetEquipmentView(c.Request.Context(), c.Param("id"), now)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toViewResponse(view))
}

// ListEquipment handles GET /api/equipment.
func (h *Handler) ListEquipment(c *gin.Context) {
	now, ok := nowParam(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid 'at' timestamp format. Use RFC3339."})
		return
	}

	filter := ledger.ListFilter{
		Category: c.Query("category"),
		Location: c.Query("location"),
	}
	views, err := h.svc.ListEquipment(c.Request.Context(), filter, now)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toViewResponses(views))
}

// ListOverdue handles GET /api/equipment/overdue.
func (h *Handler) ListOverdue(c *gin.Context) {
	now, ok := nowParam(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid 'at' timestamp format. Use RFC3339."})
		return
	}

	views, err := h.svc.ListOverdue(c.Request.Context(), now)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toViewResponses(views))
}

// ListDueSoon handles GET /api/equipment/due-soon.
func (h *Handler) ListDueSoon(c *gin.Context) {
	now, ok := nowParam(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid 'at' timestamp format. Use RFC3339."})
		return
	}

	views, err := h.svc.ListDueSoon(c.Request.Context(), now)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toViewResponses(views))
}

// DeactivateEquipment handles DELETE /api/equipment/:id.
func (h *Handler) DeactivateEquipment(c *gin.Context) {
	if err := h.svc.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type overrideRequest struct {
	Status model.EquipmentStatus `json:"status" binding:"required"`
}

// PutOverride handles PUT /api/equipment/:id/override.
func (h *Handler) PutOverride(c *gin.Context) {
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.svc.SetManualOverride(c.Request.Context(), c.Param("id"), &req.Status); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteOverride handles DELETE /api/equipment/:id/override, returning the
// equipment to derived status resolution.
func (h *Handler) DeleteOverride(c *gin.Context) {
	if err := h.svc.SetManualOverride(c.Request.Context(), c.Param("id"), nil); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
