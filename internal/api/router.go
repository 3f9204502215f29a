package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"labops-backend/config"
	"labops-backend/internal/metrics"
	"labops-backend/internal/mw"
	"labops-backend/internal/service"
)

// NewRouter creates and configures a new Gin router. rec may be nil; the
// /metrics endpoint is then not registered.
func NewRouter(svc *service.Service, rec *metrics.Recorder, cfg *config.ServerConfig) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(svc)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	// Read-side caching only; every write path stays uncached so derived
	// views never outlive an append by more than the TTL.
	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	if rec != nil {
		r.GET("/metrics", gin.WrapH(rec.Handler()))
	}

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/equipment", handler.RegisterEquipment)
		api.GET("/equipment", caching, handler.ListEquipment)
		api.GET("/equipment/overdue", caching, handler.ListOverdue)
		api.GET("/equipment/due-soon", caching, handler.ListDueSoon)
		api.GET("/equipment/:id", handler.GetEquipment)
		api.DELETE("/equipment/:id", handler.DeactivateEquipment)

		api.PUT("/equipment/:id/override", handler.PutOverride)
		api.DELETE("/equipment/:id/override", handler.DeleteOverride)

		api.POST("/equipment/:id/usage-logs", handler.AppendUsageLog)
		api.GET("/equipment/:id/usage-logs", handler.ListUsageLogs)
		api.POST("/equipment/:id/maintenance-logs", handler.AppendMaintenanceLog)
		api.GET("/equipment/:id/maintenance-logs", handler.ListMaintenanceLogs)
		api.POST("/equipment/:id/calibration-logs", handler.AppendCalibrationLog)
		api.GET("/equipment/:id/calibration-logs", handler.ListCalibrationLogs)

		api.POST("/equipment/:id/documents", handler.AttachDocument)
		api.GET("/equipment/:id/documents", handler.ListDocuments)
	}

	return r
}
