package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ayase/picvault/internal/repository"
	"github.com/ayase/picvault/internal/service"
)

// AssetHandler handles catalog read and curation endpoints.
type AssetHandler struct {
	query   *service.QueryService
	assets  *repository.AssetRepository
	vectors *repository.VectorRepository
	qdrant  *repository.QdrantRepository
	sync    *service.SyncService
}

// NewAssetHandler creates a new asset handler.
// Parameters:
//   - query: query service instance.
//   - assets: asset repository.
//   - vectors: embedding repository.
//   - qdrant: similarity index repository, may be nil.
//   - sync: pipeline service (used for cascading deletes).
// Returns:
//   - *AssetHandler: initialized handler.
func NewAssetHandler(
	query *service.QueryService,
	assets *repository.AssetRepository,
	vectors *repository.VectorRepository,
	qdrant *repository.QdrantRepository,
	sync *service.SyncService,
) *AssetHandler {
	return &AssetHandler{
		query:   query,
		assets:  assets,
		vectors: vectors,
		qdrant:  qdrant,
		sync:    sync,
	}
}

// SearchRequest is the filter search request body.
type SearchRequest struct {
	service.AssetFilter
	OrderBy string `json:"order_by"`
	Order   string `json:"order"`
	Limit   int    `json:"limit"`
	Offset  int    `json:"offset"`
}

// Search handles POST /api/v1/assets/search.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *AssetHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	assets, err := h.query.Search(c.Request.Context(), &req.AssetFilter,
		service.AssetOrder{By: req.OrderBy, Dir: req.Order}, req.Limit, req.Offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"assets": assets,
		"count":  len(assets),
	})
}

// Count handles POST /api/v1/assets/count.
func (h *AssetHandler) Count(c *gin.Context) {
	var filter service.AssetFilter
	if err := c.ShouldBindJSON(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	count, err := h.query.Count(c.Request.Context(), &filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Count failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

// CountBy handles POST /api/v1/assets/count/:column for rating, score
// and extension groupings.
func (h *AssetHandler) CountBy(c *gin.Context) {
	var filter service.AssetFilter
	if err := c.ShouldBindJSON(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	counts, err := h.query.CountBy(c.Request.Context(), &filter, c.Param("column"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Grouped count failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"counts": counts})
}

// Get handles GET /api/v1/assets/:id.
func (h *AssetHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid asset id"})
		return
	}

	asset, err := h.assets.GetByID(c.Request.Context(), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get asset: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, asset)
}

// Similar handles GET /api/v1/assets/:id/similar.
func (h *AssetHandler) Similar(c *gin.Context) {
	if h.qdrant == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Similarity index is not configured"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid asset id"})
		return
	}
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}

	vector, err := h.vectors.Get(c.Request.Context(), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Asset has no embedding"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load embedding: " + err.Error()})
		return
	}

	similar, err := h.qdrant.SearchSimilar(c.Request.Context(), vector, id, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Similarity search failed: " + err.Error()})
		return
	}

	results := make([]gin.H, 0, len(similar))
	for _, s := range similar {
		asset, err := h.assets.GetByID(c.Request.Context(), s.AssetID)
		if err != nil {
			// Index points can outlive rows briefly after a delete.
			continue
		}
		results = append(results, gin.H{"asset": asset, "score": s.Score})
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"count":   len(results),
	})
}

// UpdateScore handles PUT /api/v1/assets/:id/score.
func (h *AssetHandler) UpdateScore(c *gin.Context) {
	var req struct {
		Score *int `json:"score" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || *req.Score < 0 || *req.Score > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Score must be between 0 and 5"})
		return
	}
	h.updateField(c, "score", *req.Score)
}

// UpdateRating handles PUT /api/v1/assets/:id/rating.
func (h *AssetHandler) UpdateRating(c *gin.Context) {
	var req struct {
		Rating *int `json:"rating" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || *req.Rating < 0 || *req.Rating > 4 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Rating must be between 0 and 4"})
		return
	}
	h.updateField(c, "rating", *req.Rating)
}

// UpdateCaption handles PUT /api/v1/assets/:id/caption.
func (h *AssetHandler) UpdateCaption(c *gin.Context) {
	var req struct {
		Caption string `json:"caption"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	h.updateField(c, "caption", req.Caption)
}

// UpdateSource handles PUT /api/v1/assets/:id/source.
func (h *AssetHandler) UpdateSource(c *gin.Context) {
	var req struct {
		Source string `json:"source"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	h.updateField(c, "source", req.Source)
}

func (h *AssetHandler) updateField(c *gin.Context, field string, value interface{}) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid asset id"})
		return
	}
	if _, err := h.assets.GetByID(c.Request.Context(), id); errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
		return
	}
	if err := h.assets.UpdateFields(c.Request.Context(), id, map[string]interface{}{field: value}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Update failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Updated"})
}

// Delete handles DELETE /api/v1/assets. Rows, files, thumbnails and
// index points are all removed.
func (h *AssetHandler) Delete(c *gin.Context) {
	var req struct {
		IDs []int64 `json:"ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if err := h.sync.DeleteByIDs(c.Request.Context(), req.IDs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Delete failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Deleted", "count": len(req.IDs)})
}

// Folders handles GET /api/v1/folders.
func (h *AssetHandler) Folders(c *gin.Context) {
	tree, err := h.query.FolderTree(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build folder tree: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, tree)
}

// Stats handles GET /api/v1/stats.
func (h *AssetHandler) Stats(c *gin.Context) {
	stats, err := h.query.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}
