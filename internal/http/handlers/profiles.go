package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/passdeck/passdeck/internal/models"
	"github.com/passdeck/passdeck/internal/passconfig"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProfileHandler handles configuration profile management.
type ProfileHandler struct {
	db *gorm.DB
}

// NewProfileHandler wires a profile handler.
func NewProfileHandler(db *gorm.DB) *ProfileHandler {
	return &ProfileHandler{db: db}
}

// createProfileRequest captures the payload for profile creation.
type createProfileRequest struct {
	SellerID *uint64         `json:"seller_id,omitempty"` // Required for seller scope.
	Scope    string          `json:"scope"`               // system, seller or link.
	Name     string          `json:"name"`                // Display name.
	Document json.RawMessage `json:"document"`            // Layer fields.
}

// Create validates the layer document and persists a profile.
func (h *ProfileHandler) Create(c *gin.Context) {
	var body createProfileRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing name"})
		return
	}
	switch body.Scope {
	case models.ScopeSystem:
		if body.SellerID != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "system profiles cannot name a seller"})
			return
		}
	case models.ScopeSeller:
		if body.SellerID == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "seller profiles require seller_id"})
			return
		}
	case models.ScopeLink:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scope"})
		return
	}

	doc := body.Document
	if len(doc) == 0 {
		doc = json.RawMessage("{}")
	}
	if _, errParse := passconfig.ParseLayer(doc); errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document"})
		return
	}

	profile := models.ConfigProfile{
		SellerID: body.SellerID,
		Scope:    body.Scope,
		Name:     name,
		Document: datatypes.JSON(doc),
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&profile).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create profile failed"})
		return
	}
	c.JSON(http.StatusCreated, formatProfile(&profile))
}

// List returns profiles filtered by query parameters.
func (h *ProfileHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.ConfigProfile{})
	if scopeQ := strings.TrimSpace(c.Query("scope")); scopeQ != "" {
		q = q.Where("scope = ?", scopeQ)
	}
	if sellerQ := strings.TrimSpace(c.Query("seller_id")); sellerQ != "" {
		sellerID, errParse := strconv.ParseUint(sellerQ, 10, 64)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid seller_id"})
			return
		}
		q = q.Where("seller_id = ?", sellerID)
	}

	var rows []models.ConfigProfile
	if errFind := q.Order("id DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list profiles failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatProfile(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"profiles": out})
}

// Get fetches a single profile by ID.
func (h *ProfileHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var profile models.ConfigProfile
	if errFind := h.db.WithContext(c.Request.Context()).First(&profile, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, formatProfile(&profile))
}

// updateProfileRequest captures optional fields for profile updates.
type updateProfileRequest struct {
	Name     *string         `json:"name"`
	Document json.RawMessage `json:"document"`
}

// Update applies validated changes to a profile. Scope and owner are fixed at
// creation; issued passes keep their frozen snapshot regardless.
func (h *ProfileHandler) Update(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body updateProfileRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	ctx := c.Request.Context()
	var profile models.ConfigProfile
	if errFind := h.db.WithContext(ctx).First(&profile, id).Error; errFind != nil {
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
	if len(body.Document) > 0 {
		if _, errLayer := passconfig.ParseLayer(body.Document); errLayer != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document"})
			return
		}
		updates["document"] = datatypes.JSON(body.Document)
	}
	if len(updates) == 0 {
		c.JSON(http.StatusOK, formatProfile(&profile))
		return
	}

	if errUpdate := h.db.WithContext(ctx).Model(&profile).Updates(updates).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update profile failed"})
		return
	}
	c.JSON(http.StatusOK, formatProfile(&profile))
}

// formatProfile shapes a profile row for API responses.
func formatProfile(profile *models.ConfigProfile) gin.H {
	return gin.H{
		"id":         profile.ID,
		"seller_id":  profile.SellerID,
		"scope":      profile.Scope,
		"name":       profile.Name,
		"document":   json.RawMessage(profile.Document),
		"created_at": profile.CreatedAt,
		"updated_at": profile.UpdatedAt,
	}
}
