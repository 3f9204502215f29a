package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"labops-backend/config"
	"labops-backend/internal/ledger"
	"labops-backend/internal/metrics"
	"labops-backend/internal/model"
	"labops-backend/internal/schedule"
	"labops-backend/internal/service"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:api-%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.Equipment{},
		&model.UsageLog{},
		&model.MaintenanceLog{},
		&model.CalibrationLog{},
		&model.EquipmentDocument{},
	))

	store := ledger.NewGormStore(db, schedule.DefaultDueSoonWindowDays)
	svc := service.New(store, metrics.New())

	return NewRouter(svc, nil, &config.ServerConfig{
		RateLimitPerSec: 1000,
		RateLimitBurst:  1000,
		CacheTTLSeconds: 1,
	})
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	// Reads go straight to the store; the response cache is exercised in its
	// own test below.
	req.Header.Set("Cache-Control", "no-cache")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func registerTestEquipment(t *testing.T, r *gin.Engine, serial string) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/equipment", gin.H{
		"name":                     "HPLC System",
		"serialNumber":             serial,
		"lastCalibrationDate":      "2025-01-01T00:00:00Z",
		"calibrationFrequencyDays": 180,
		"lastMaintenanceDate":      "2025-01-01T00:00:00Z",
		"maintenanceFrequencyDays": 90,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	return resp.ID
}

func TestRegisterAndGetEquipment(t *testing.T) {
	r := newTestRouter(t)
	id := registerTestEquipment(t, r, "SN-API-1")

	w := doJSON(t, r, http.MethodGet, "/api/equipment/"+id+"?at=2025-02-01T00:00:00Z", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var view struct {
		SerialNumber string `json:"SerialNumber"`
		Status       string `json:"status"`
		Calibration  struct {
			NextDue time.Time `json:"nextDue"`
			Urgency string    `json:"urgency"`
		} `json:"calibration"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "SN-API-1", view.SerialNumber)
	assert.Equal(t, "operational", view.Status)
	assert.Equal(t, "current", view.Calibration.Urgency)

	t.Run("Duplicate serial returns 409", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/equipment", gin.H{
			"name":                     "HPLC System",
			"serialNumber":             "SN-API-1",
			"calibrationFrequencyDays": 180,
			"maintenanceFrequencyDays": 90,
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Unknown id returns 404", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/equipment/nope", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Missing required fields returns 400", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/equipment", gin.H{"name": "No serial"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Bad at parameter returns 400", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/equipment/"+id+"?at=yesterday", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUsageLogEndpoints(t *testing.T) {
	r := newTestRouter(t)
	id := registerTestEquipment(t, r, "SN-API-2")

	w := doJSON(t, r, http.MethodPost, "/api/equipment/"+id+"/usage-logs", gin.H{
		"startTime": "2025-04-10T09:00:00Z",
		"endTime":   "2025-04-10T11:00:00Z",
		"operator":  "j.doe",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	t.Run("Overlap returns 409 with conflicting id", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/equipment/"+id+"/usage-logs", gin.H{
			"startTime": "2025-04-10T10:00:00Z",
			"endTime":   "2025-04-10T12:00:00Z",
			"operator":  "j.doe",
		})
		require.Equal(t, http.StatusConflict, w.Code)

		var resp struct {
			Kind             string `json:"kind"`
			ConflictingLogID int64  `json:"conflicting_log_id"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "overlap", resp.Kind)
		assert.Positive(t, resp.ConflictingLogID)
	})

	t.Run("Back-to-back interval returns 201", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/equipment/"+id+"/usage-logs", gin.H{
			"startTime": "2025-04-10T11:00:00Z",
			"endTime":   "2025-04-10T12:00:00Z",
			"operator":  "j.doe",
		})
		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	})

	t.Run("Reversed interval returns 422", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/equipment/"+id+"/usage-logs", gin.H{
			"startTime": "2025-04-11T12:00:00Z",
			"endTime":   "2025-04-11T09:00:00Z",
			"operator":  "j.doe",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("History with range filter", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet,
			"/api/equipment/"+id+"/usage-logs?from=2025-04-10T00:00:00Z&to=2025-04-11T00:00:00Z", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var logs []model.UsageLog
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
		assert.Len(t, logs, 2)
	})
}

func TestMaintenanceAndCalibrationEndpoints(t *testing.T) {
	r := newTestRouter(t)
	id := registerTestEquipment(t, r, "SN-API-3")

	w := doJSON(t, r, http.MethodPost, "/api/equipment/"+id+"/maintenance-logs", gin.H{
		"date":       "2025-03-01T00:00:00Z",
		"technician": "m.smith",
		"type":       "preventive",
		"result":     "completed",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	t.Run("Non-monotonic maintenance date returns 422", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/equipment/"+id+"/maintenance-logs", gin.H{
			"date":       "2025-02-01T00:00:00Z",
			"technician": "m.smith",
			"type":       "preventive",
			"result":     "completed",
		})
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var resp struct {
			Kind string `json:"kind"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "non_monotonic_date", resp.Kind)
	})

	t.Run("Unknown maintenance type returns 422", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/equipment/"+id+"/maintenance-logs", gin.H{
			"date":       "2025-04-01T00:00:00Z",
			"technician": "m.smith",
			"type":       "cosmetic",
			"result":     "completed",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Failed calibration flips status to out of service", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/equipment/"+id+"/calibration-logs", gin.H{
			"date":       "2025-03-10T00:00:00Z",
			"technician": "c.lee",
			"provider":   "internal",
			"result":     "fail",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		get := doJSON(t, r, http.MethodGet, "/api/equipment/"+id+"?at=2025-03-11T00:00:00Z", nil)
		require.Equal(t, http.StatusOK, get.Code)

		var view struct {
			Status string `json:"status"`
		}
		require.NoError(t, json.Unmarshal(get.Body.Bytes(), &view))
		assert.Equal(t, "out_of_service", view.Status)

		// Usage on out-of-service equipment is refused.
		use := doJSON(t, r, http.MethodPost, "/api/equipment/"+id+"/usage-logs", gin.H{
			"startTime": "2025-03-12T09:00:00Z",
			"endTime":   "2025-03-12T10:00:00Z",
			"operator":  "j.doe",
		})
		assert.Equal(t, http.StatusConflict, use.Code)
	})

	t.Run("External calibration without provider name returns 422", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/equipment/"+id+"/calibration-logs", gin.H{
			"date":       "2025-03-20T00:00:00Z",
			"technician": "c.lee",
			"provider":   "external",
			"result":     "pass",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestOverrideEndpoints(t *testing.T) {
	r := newTestRouter(t)
	id := registerTestEquipment(t, r, "SN-API-4")

	w := doJSON(t, r, http.MethodPut, "/api/equipment/"+id+"/override", gin.H{
		"status": "out_of_service",
	})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	get := doJSON(t, r, http.MethodGet, "/api/equipment/"+id+"?at=2025-02-01T00:00:00Z", nil)
	var view struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &view))
	assert.Equal(t, "out_of_service", view.Status)

	w = doJSON(t, r, http.MethodDelete, "/api/equipment/"+id+"/override", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	get = doJSON(t, r, http.MethodGet, "/api/equipment/"+id+"?at=2025-02-01T00:00:00Z", nil)
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &view))
	assert.Equal(t, "operational", view.Status)

	t.Run("Unknown override status returns 422", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPut, "/api/equipment/"+id+"/override", gin.H{
			"status": "sabotaged",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestListEndpoints(t *testing.T) {
	r := newTestRouter(t)
	registerTestEquipment(t, r, "SN-API-5")

	// At this date the 90-day maintenance track (due 2025-04-01) is overdue.
	w := doJSON(t, r, http.MethodGet, "/api/equipment/overdue?at=2025-05-01T00:00:00Z", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var views []json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
	assert.Len(t, views, 1)

	// Mid-March: maintenance due 2025-04-01 is inside the 30-day window.
	w = doJSON(t, r, http.MethodGet, "/api/equipment/due-soon?at=2025-03-15T00:00:00Z", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
	assert.Len(t, views, 1)

	w = doJSON(t, r, http.MethodGet, "/api/equipment?at=2025-02-01T00:00:00Z", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
	assert.Len(t, views, 1)
}

func TestDocumentEndpoints(t *testing.T) {
	r := newTestRouter(t)
	id := registerTestEquipment(t, r, "SN-API-6")

	w := doJSON(t, r, http.MethodPost, "/api/equipment/"+id+"/documents", gin.H{
		"name": "user-manual.pdf",
		"type": "manual",
		"url":  "https://docs.example.com/manuals/hplc.pdf",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/api/equipment/"+id+"/documents", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var docs []model.EquipmentDocument
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "user-manual.pdf", docs[0].Name)
}

func TestResponseCache(t *testing.T) {
	r := newTestRouter(t)
	registerTestEquipment(t, r, "SN-API-7")

	req := httptest.NewRequest(http.MethodGet, "/api/equipment?at=2025-02-01T00:00:00Z", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-Cache"))

	// Second identical request inside the TTL is served from cache.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hit", w.Header().Get("X-Cache"))
}
