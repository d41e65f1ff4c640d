package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ayase/picvault/internal/domain"
	"github.com/ayase/picvault/internal/repository"
)

// TagHandler handles tag taxonomy endpoints.
type TagHandler struct {
	tags *repository.TagRepository
}

// NewTagHandler creates a new tag handler.
// Parameters:
//   - tags: tag repository.
// Returns:
//   - *TagHandler: initialized handler.
func NewTagHandler(tags *repository.TagRepository) *TagHandler {
	return &TagHandler{tags: tags}
}

// ListTags handles GET /api/v1/tags with keyset pagination.
func (h *TagHandler) ListTags(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}

	tags, err := h.tags.ListTags(c.Request.Context(), c.Query("cursor"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list tags: " + err.Error()})
		return
	}

	next := ""
	if len(tags) == limit {
		next = tags[len(tags)-1].Name
	}
	c.JSON(http.StatusOK, gin.H{
		"tags":        tags,
		"next_cursor": next,
	})
}

// GetTag handles GET /api/v1/tags/:name.
func (h *TagHandler) GetTag(c *gin.Context) {
	tag, err := h.tags.GetTag(c.Request.Context(), c.Param("name"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tag not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get tag: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, tag)
}

// CreateTag handles POST /api/v1/tags.
func (h *TagHandler) CreateTag(c *gin.Context) {
	var req struct {
		Name    string `json:"name" binding:"required"`
		GroupID *int64 `json:"group_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	tag := domain.Tag{Name: req.Name, GroupID: req.GroupID}
	if err := h.tags.CreateTag(c.Request.Context(), &tag); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Failed to create tag: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, tag)
}

// UpdateTag handles PUT /api/v1/tags/:name (group reassignment).
func (h *TagHandler) UpdateTag(c *gin.Context) {
	var req struct {
		GroupID *int64 `json:"group_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	name := c.Param("name")
	if _, err := h.tags.GetTag(c.Request.Context(), name); errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tag not found"})
		return
	}
	if err := h.tags.UpdateTagGroup(c.Request.Context(), name, req.GroupID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update tag: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Updated"})
}

// DeleteTags handles DELETE /api/v1/tags.
func (h *TagHandler) DeleteTags(c *gin.Context) {
	var req struct {
		Names []string `json:"names" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if err := h.tags.DeleteTags(c.Request.Context(), req.Names); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete tags: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted", "count": len(req.Names)})
}

// Attach handles POST /api/v1/assets/:id/tags/:name. The tag is created
// on first use; manual assignments clear no auto flag on existing pairs.
func (h *TagHandler) Attach(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid asset id"})
		return
	}
	name := c.Param("name")

	if _, err := h.tags.GetOrCreateTag(c.Request.Context(), name, nil); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create tag: " + err.Error()})
		return
	}
	if err := h.tags.AttachIfAbsent(c.Request.Context(), id, name, false); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to attach tag: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attached"})
}

// Detach handles DELETE /api/v1/assets/:id/tags/:name.
func (h *TagHandler) Detach(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid asset id"})
		return
	}
	if err := h.tags.Detach(c.Request.Context(), id, c.Param("name")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to detach tag: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Detached"})
}

// ListGroups handles GET /api/v1/tag-groups.
func (h *TagHandler) ListGroups(c *gin.Context) {
	groups, err := h.tags.ListGroups(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list tag groups: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// CreateGroup handles POST /api/v1/tag-groups.
func (h *TagHandler) CreateGroup(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Color    string `json:"color"`
		ParentID *int64 `json:"parent_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	group := domain.TagGroup{Name: req.Name, Color: req.Color, ParentID: req.ParentID}
	if err := h.tags.CreateGroup(c.Request.Context(), &group); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Failed to create tag group: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, group)
}

// UpdateGroup handles PUT /api/v1/tag-groups/:id.
func (h *TagHandler) UpdateGroup(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group id"})
		return
	}
	var req struct {
		Name     *string `json:"name"`
		Color    *string `json:"color"`
		ParentID *int64  `json:"parent_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if _, err := h.tags.GetGroup(c.Request.Context(), id); errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tag group not found"})
		return
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Color != nil {
		fields["color"] = *req.Color
	}
	if req.ParentID != nil {
		fields["parent_id"] = *req.ParentID
	}
	if len(fields) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}
	if err := h.tags.UpdateGroup(c.Request.Context(), id, fields); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update tag group: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Updated"})
}

// DeleteGroup handles DELETE /api/v1/tag-groups/:id.
func (h *TagHandler) DeleteGroup(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group id"})
		return
	}
	if err := h.tags.DeleteGroup(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete tag group: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted"})
}
