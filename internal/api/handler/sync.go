package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wingsum93/dropit-fetcher/internal/domain"
	"github.com/wingsum93/dropit-fetcher/internal/storage"
)

// SyncHandler exposes the sync and job ledgers read-only.
type SyncHandler struct {
	storage storage.Storage
}

// NewSyncHandler creates a new sync handler.
// Parameters:
//   - store: backing storage.
// Returns:
//   - *SyncHandler: initialized handler.
func NewSyncHandler(store storage.Storage) *SyncHandler {
	return &SyncHandler{storage: store}
}

// ListSyncs handles GET /api/v1/syncs.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SyncHandler) ListSyncs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	syncs, err := h.storage.ListSyncs(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list syncs: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"syncs": syncs,
		"count": len(syncs),
	})
}

// GetSync handles GET /api/v1/syncs/:id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SyncHandler) GetSync(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Sync ID must be numeric",
		})
		return
	}

	sync, err := h.storage.GetSync(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Sync not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load sync: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, sync)
}

// ListJobs handles GET /api/v1/syncs/:id/jobs.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SyncHandler) ListJobs(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Sync ID must be numeric",
		})
		return
	}

	jobs, err := h.storage.ListJobsBySync(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list jobs: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"count": len(jobs),
	})
}
