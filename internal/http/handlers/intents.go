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

// IntentHandler exposes the scheduled intent audit trail.
type IntentHandler struct {
	db *gorm.DB
}

// NewIntentHandler wires an intent handler.
func NewIntentHandler(db *gorm.DB) *IntentHandler {
	return &IntentHandler{db: db}
}

// List returns scheduled intents filtered by query parameters.
func (h *IntentHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.ScheduledIntent{})

	if stateQ := strings.TrimSpace(c.Query("state")); stateQ != "" {
		switch stateQ {
		case models.IntentPending, models.IntentProcessed, models.IntentFailed:
			q = q.Where("state = ?", stateQ)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid state"})
			return
		}
	}
	if sellerQ := strings.TrimSpace(c.Query("seller_id")); sellerQ != "" {
		sellerID, errParse := strconv.ParseUint(sellerQ, 10, 64)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid seller_id"})
			return
		}
		q = q.Where("seller_id = ?", sellerID)
	}

	var rows []models.ScheduledIntent
	if errFind := q.Order("target_at ASC, id ASC").Limit(500).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list intents failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatIntent(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"intents": out})
}

// Get fetches a single scheduled intent.
func (h *IntentHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var intent models.ScheduledIntent
	if errFind := h.db.WithContext(c.Request.Context()).First(&intent, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, formatIntent(&intent))
}

// formatIntent shapes an intent row for API responses.
func formatIntent(intent *models.ScheduledIntent) gin.H {
	return gin.H{
		"id":              intent.ID,
		"seller_id":       intent.SellerID,
		"state":           intent.State,
		"target_at":       intent.TargetAt,
		"retry_count":     intent.RetryCount,
		"last_attempt_at": intent.LastAttemptAt,
		"last_error":      intent.LastError,
		"created_pass_id": intent.CreatedPassID,
		"created_at":      intent.CreatedAt,
	}
}
