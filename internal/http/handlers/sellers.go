package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	dbutil "github.com/passdeck/passdeck/internal/db"
	"github.com/passdeck/passdeck/internal/models"
	"gorm.io/gorm"
)

// SellerHandler handles admin operations for seller accounts.
type SellerHandler struct {
	db *gorm.DB
}

// NewSellerHandler wires a seller handler.
func NewSellerHandler(db *gorm.DB) *SellerHandler {
	return &SellerHandler{db: db}
}

// createSellerRequest captures the payload for seller creation.
type createSellerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Create persists a new seller account.
func (h *SellerHandler) Create(c *gin.Context) {
	var body createSellerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	email := strings.TrimSpace(body.Email)
	if name == "" || email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and email are required"})
		return
	}

	seller := models.Seller{Name: name, Email: email, Active: true}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&seller).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create seller failed"})
		return
	}
	c.JSON(http.StatusCreated, formatSeller(&seller))
}

// List returns sellers filtered by query parameters.
func (h *SellerHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.Seller{})
	if nameQ := strings.TrimSpace(c.Query("name")); nameQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+nameQ+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "name"), pattern)
	}

	var rows []models.Seller
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list sellers failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatSeller(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"sellers": out})
}

// Get fetches a single seller by ID.
func (h *SellerHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var seller models.Seller
	if errFind := h.db.WithContext(c.Request.Context()).First(&seller, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, formatSeller(&seller))
}

// updateSellerRequest captures optional fields for seller updates.
type updateSellerRequest struct {
	Name             *string `json:"name"`
	Email            *string `json:"email"`
	Active           *bool   `json:"active"`
	DefaultProfileID *uint64 `json:"default_profile_id"`
}

// Update applies validated field changes to a seller.
func (h *SellerHandler) Update(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body updateSellerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	ctx := c.Request.Context()
	var seller models.Seller
	if errFind := h.db.WithContext(ctx).First(&seller, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	updates := map[string]any{}
	if body.Name != nil {
		name := strings.TrimSpace(*body.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name cannot be empty"})
			return
		}
		updates["name"] = name
	}
	if body.Email != nil {
		email := strings.TrimSpace(*body.Email)
		if email == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email cannot be empty"})
			return
		}
		updates["email"] = email
	}
	if body.Active != nil {
		updates["active"] = *body.Active
	}
	if body.DefaultProfileID != nil {
		var profile models.ConfigProfile
		if errFind := h.db.WithContext(ctx).First(&profile, *body.DefaultProfileID).Error; errFind != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "default profile not found"})
			return
		}
		if profile.Scope != models.ScopeSeller || profile.SellerID == nil || *profile.SellerID != seller.ID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "default profile must be a seller profile owned by this seller"})
			return
		}
		updates["default_profile_id"] = *body.DefaultProfileID
	}
	if len(updates) == 0 {
		c.JSON(http.StatusOK, formatSeller(&seller))
		return
	}

	if errUpdate := h.db.WithContext(ctx).Model(&seller).Updates(updates).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update seller failed"})
		return
	}
	c.JSON(http.StatusOK, formatSeller(&seller))
}

// formatSeller shapes a seller row for API responses.
func formatSeller(seller *models.Seller) gin.H {
	return gin.H{
		"id":                 seller.ID,
		"name":               seller.Name,
		"email":              seller.Email,
		"active":             seller.Active,
		"default_profile_id": seller.DefaultProfileID,
		"created_at":         seller.CreatedAt,
	}
}
