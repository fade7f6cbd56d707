package handlers

import (
	"context"
	"net/http"
	"time"

	"reliefledger/internal/caching"
	"reliefledger/internal/repositories"
	"reliefledger/internal/services"

	"github.com/labstack/echo/v4"
)

// HealthHandlers handles health check endpoints
type HealthHandlers struct {
	store   repositories.LedgerStore
	cache   caching.CacheService
	storage services.ReportStorage
	version string
	started time.Time
}

// NewHealthHandlers creates a new health handlers instance. storage may be nil.
func NewHealthHandlers(store repositories.LedgerStore, cache caching.CacheService, storage services.ReportStorage, version string) *HealthHandlers {
	return &HealthHandlers{
		store:   store,
		cache:   cache,
		storage: storage,
		version: version,
		started: time.Now(),
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Uptime    string            `json:"uptime"`
	Version   string            `json:"version"`
}

// HealthCheck reports the store, cache and object storage status. A failed store
// makes the service unavailable; anything else only degrades it.
func (h *HealthHandlers) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  make(map[string]string),
		Version:   h.version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
	}
	statusCode := http.StatusOK

	if err := h.store.Ping(ctx); err != nil {
		health.Services["database"] = "unhealthy"
		health.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	} else {
		health.Services["database"] = "healthy"
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			health.Services["cache"] = "unhealthy"
			if health.Status == "healthy" {
				health.Status = "degraded"
			}
		} else {
			health.Services["cache"] = "healthy"
		}
	}

	if h.storage != nil {
		if err := h.storage.EnsureBucket(ctx); err != nil {
			health.Services["storage"] = "unhealthy"
			if health.Status == "healthy" {
				health.Status = "degraded"
			}
		} else {
			health.Services["storage"] = "healthy"
		}
	}

	return c.JSON(statusCode, health)
}

// LivenessCheck determines if the application is running
func (h *HealthHandlers) LivenessCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
