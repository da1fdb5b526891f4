package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/passdeck/passdeck/internal/models"
	"gorm.io/gorm"
)

// TemplateHandler handles email template management.
type TemplateHandler struct {
	db *gorm.DB
}

// NewTemplateHandler wires a template handler.
func NewTemplateHandler(db *gorm.DB) *TemplateHandler {
	return &TemplateHandler{db: db}
}

// createTemplateRequest captures the payload for template creation.
type createTemplateRequest struct {
	SellerID  *uint64 `json:"seller_id,omitempty"` // Nil for system templates.
	Kind      string  `json:"kind"`                // welcome or reminder.
	Name      string  `json:"name"`
	Subject   string  `json:"subject"`
	IsDefault bool    `json:"is_default"`
}

// Create persists a template; marking it default demotes the previous default
// of the same kind in the same transaction.
func (h *TemplateHandler) Create(c *gin.Context) {
	var body createTemplateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	subject := strings.TrimSpace(body.Subject)
	if name == "" || subject == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and subject are required"})
		return
	}
	if body.Kind != models.TemplateWelcome && body.Kind != models.TemplateReminder {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid kind"})
		return
	}
	if body.IsDefault && body.SellerID != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only system templates can be default"})
		return
	}

	template := models.EmailTemplate{
		SellerID:  body.SellerID,
		Kind:      body.Kind,
		Name:      name,
		Subject:   subject,
		IsDefault: body.IsDefault,
		Active:    true,
	}
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if body.IsDefault {
			if errDemote := tx.Model(&models.EmailTemplate{}).
				Where("kind = ? AND is_default = ?", body.Kind, true).
				Update("is_default", false).Error; errDemote != nil {
				return errDemote
			}
		}
		return tx.Create(&template).Error
	})
	if errTx != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create template failed"})
		return
	}
	c.JSON(http.StatusCreated, formatTemplate(&template))
}

// List returns templates filtered by query parameters.
func (h *TemplateHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.EmailTemplate{})
	if kindQ := strings.TrimSpace(c.Query("kind")); kindQ != "" {
		q = q.Where("kind = ?", kindQ)
	}
	if sellerQ := strings.TrimSpace(c.Query("seller_id")); sellerQ != "" {
		sellerID, errParse := strconv.ParseUint(sellerQ, 10, 64)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid seller_id"})
			return
		}
		q = q.Where("seller_id = ?", sellerID)
	}

	var rows []models.EmailTemplate
	if errFind := q.Order("id ASC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list templates failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatTemplate(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"templates": out})
}

// updateTemplateRequest captures optional fields for template updates.
type updateTemplateRequest struct {
	Name      *string `json:"name"`
	Subject   *string `json:"subject"`
	Active    *bool   `json:"active"`
	IsDefault *bool   `json:"is_default"`
}

// Update applies validated changes to a template.
func (h *TemplateHandler) Update(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body updateTemplateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	ctx := c.Request.Context()
	var template models.EmailTemplate
	if errFind := h.db.WithContext(ctx).First(&template, id).Error; errFind != nil {
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
	if body.Subject != nil {
		subject := strings.TrimSpace(*body.Subject)
		if subject == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "subject cannot be empty"})
			return
		}
		updates["subject"] = subject
	}
	if body.Active != nil {
		updates["active"] = *body.Active
	}
	if body.IsDefault != nil && *body.IsDefault {
		if template.SellerID != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "only system templates can be default"})
			return
		}
		updates["is_default"] = true
	}

	errTx := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if isDefault, ok := updates["is_default"].(bool); ok && isDefault {
			if errDemote := tx.Model(&models.EmailTemplate{}).
				Where("kind = ? AND is_default = ? AND id <> ?", template.Kind, true, template.ID).
				Update("is_default", false).Error; errDemote != nil {
				return errDemote
			}
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&template).Updates(updates).Error
	})
	if errTx != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update template failed"})
		return
	}
	c.JSON(http.StatusOK, formatTemplate(&template))
}

// formatTemplate shapes a template row for API responses.
func formatTemplate(template *models.EmailTemplate) gin.H {
	return gin.H{
		"id":         template.ID,
		"seller_id":  template.SellerID,
		"kind":       template.Kind,
		"name":       template.Name,
		"subject":    template.Subject,
		"is_default": template.IsDefault,
		"active":     template.Active,
		"created_at": template.CreatedAt,
	}
}
