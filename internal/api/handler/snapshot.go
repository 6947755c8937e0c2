package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wingsum93/dropit-fetcher/internal/domain"
	"github.com/wingsum93/dropit-fetcher/internal/storage"
)

// SnapshotHandler serves stored product payloads.
type SnapshotHandler struct {
	storage storage.Storage
}

// NewSnapshotHandler creates a new snapshot handler.
// Parameters:
//   - store: backing storage.
// Returns:
//   - *SnapshotHandler: initialized handler.
func NewSnapshotHandler(store storage.Storage) *SnapshotHandler {
	return &SnapshotHandler{storage: store}
}

// GetProductSnapshot handles GET /api/v1/products/:id/snapshot.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SnapshotHandler) GetProductSnapshot(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Product ID must be numeric",
		})
		return
	}

	snapshot, err := h.storage.FindSnapshotByKey(c.Request.Context(), fmt.Sprintf("product:%d", id))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Snapshot not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load snapshot: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// GetStats handles GET /api/v1/stats.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SnapshotHandler) GetStats(c *gin.Context) {
	count, err := h.storage.CountSnapshots(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to count snapshots: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"snapshots": count,
	})
}
