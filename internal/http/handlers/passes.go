package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	dbutil "github.com/passdeck/passdeck/internal/db"
	"github.com/passdeck/passdeck/internal/models"
	"github.com/passdeck/passdeck/internal/passconfig"
	"github.com/passdeck/passdeck/internal/passes"
	"github.com/passdeck/passdeck/internal/scheduler"
	"gorm.io/gorm"
)

// PassHandler handles pass creation, inspection and reactivation.
type PassHandler struct {
	db        *gorm.DB
	resolver  *passconfig.Resolver
	scheduler *scheduler.Scheduler
	passes    *passes.Service
}

// NewPassHandler wires a pass handler.
func NewPassHandler(db *gorm.DB, resolver *passconfig.Resolver, sched *scheduler.Scheduler, passSvc *passes.Service) *PassHandler {
	return &PassHandler{db: db, resolver: resolver, scheduler: sched, passes: passSvc}
}

// createPassRequest captures the payload for pass creation.
type createPassRequest struct {
	SellerID      uint64     `json:"seller_id"`                 // Requesting seller.
	ProfileID     *uint64    `json:"profile_id,omitempty"`      // Optional saved seller profile.
	LinkProfileID *uint64    `json:"link_profile_id,omitempty"` // Optional per-link override.
	IssueAt       *time.Time `json:"issue_at,omitempty"`        // Optional future issuance instant.
}

// Create resolves the layered configuration and either issues a pass now or
// schedules an intent for later.
func (h *PassHandler) Create(c *gin.Context) {
	var body createPassRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.SellerID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing seller_id"})
		return
	}

	ctx := c.Request.Context()
	var seller models.Seller
	if errFind := h.db.WithContext(ctx).First(&seller, body.SellerID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "seller not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if !seller.Active {
		c.JSON(http.StatusForbidden, gin.H{"error": "seller is disabled"})
		return
	}

	cfg, errResolve := h.resolver.Resolve(ctx, body.SellerID, body.ProfileID, body.LinkProfileID)
	if errResolve != nil {
		switch {
		case errors.Is(errResolve, passconfig.ErrConfigIncomplete):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": errResolve.Error()})
		case errors.Is(errResolve, passconfig.ErrProfileNotFound),
			errors.Is(errResolve, passconfig.ErrProfileScope):
			c.JSON(http.StatusBadRequest, gin.H{"error": errResolve.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "config resolution failed"})
		}
		return
	}

	pass, intent, errSchedule := h.scheduler.ScheduleOrIssueNow(ctx, body.SellerID, cfg, body.IssueAt)
	if errSchedule != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue pass failed"})
		return
	}
	if intent != nil {
		c.JSON(http.StatusAccepted, gin.H{
			"intent_id": intent.ID,
			"state":     intent.State,
			"target_at": intent.TargetAt,
		})
		return
	}
	c.JSON(http.StatusCreated, formatPass(pass))
}

// reactivateRequest captures the payload for pass reactivation.
type reactivateRequest struct {
	Guests int `json:"guests"`
	Days   int `json:"days"`
}

// Reactivate extends a pass and re-arms its expiration reminder.
func (h *PassHandler) Reactivate(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body reactivateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	pass, errReactivate := h.passes.Reactivate(c.Request.Context(), id, body.Guests, body.Days)
	if errReactivate != nil {
		switch {
		case errors.Is(errReactivate, passes.ErrPassNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		case errors.Is(errReactivate, passes.ErrInvalidEntitlement):
			c.JSON(http.StatusBadRequest, gin.H{"error": "guests and days must be positive"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "reactivate failed"})
		}
		return
	}
	c.JSON(http.StatusOK, formatPass(pass))
}

// List returns passes filtered by query parameters.
func (h *PassHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.Pass{})

	if sellerQ := strings.TrimSpace(c.Query("seller_id")); sellerQ != "" {
		sellerID, errParse := strconv.ParseUint(sellerQ, 10, 64)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid seller_id"})
			return
		}
		q = q.Where("seller_id = ?", sellerID)
	}
	if codeQ := strings.TrimSpace(c.Query("code")); codeQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+codeQ+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "code"), pattern)
	}
	if activeQ := strings.TrimSpace(c.Query("active")); activeQ == "true" || activeQ == "1" {
		q = q.Where("active = ?", true)
	} else if activeQ == "false" || activeQ == "0" {
		q = q.Where("active = ?", false)
	}

	var rows []models.Pass
	if errFind := q.Order("created_at DESC").Limit(500).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list passes failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatPass(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"passes": out})
}

// Get fetches a single pass with its reminder state.
func (h *PassHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	ctx := c.Request.Context()
	var pass models.Pass
	if errFind := h.db.WithContext(ctx).First(&pass, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	out := formatPass(&pass)
	var reminder models.ReminderState
	if errFind := h.db.WithContext(ctx).Where("pass_id = ?", pass.ID).First(&reminder).Error; errFind == nil {
		out["reminder"] = gin.H{
			"status":    reminder.Status,
			"armed_for": reminder.ArmedFor,
			"sent_at":   reminder.SentAt,
		}
	}
	c.JSON(http.StatusOK, out)
}

// formatPass shapes a pass row for API responses.
func formatPass(pass *models.Pass) gin.H {
	return gin.H{
		"id":              pass.ID,
		"code":            pass.Code,
		"seller_id":       pass.SellerID,
		"guests":          pass.Guests,
		"days":            pass.Days,
		"cost":            pass.Cost,
		"delivery_method": pass.DeliveryMethod,
		"active":          pass.Active,
		"created_at":      pass.CreatedAt,
		"expires_at":      pass.ExpiresAt,
	}
}
