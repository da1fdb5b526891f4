package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/passdeck/passdeck/internal/campaign"
	"github.com/passdeck/passdeck/internal/scheduler"
)

// IssuanceSweeper runs one due-sweep synchronously.
type IssuanceSweeper interface {
	Sweep(ctx context.Context) (scheduler.Summary, error)
}

// CampaignSweeper runs one campaign sweep synchronously.
type CampaignSweeper interface {
	Sweep(ctx context.Context) (campaign.Summary, error)
}

// OpsHandler exposes sweep trigger endpoints for external cron callers.
// Both endpoints are idempotent: the sweeps' conditional state transitions
// make redundant invocations harmless.
type OpsHandler struct {
	issuance IssuanceSweeper
	campaign CampaignSweeper
}

// NewOpsHandler wires an operations handler.
func NewOpsHandler(issuance IssuanceSweeper, campaignSweep CampaignSweeper) *OpsHandler {
	return &OpsHandler{issuance: issuance, campaign: campaignSweep}
}

// TriggerIssuanceSweep runs one due-sweep and returns its summary.
func (h *OpsHandler) TriggerIssuanceSweep(c *gin.Context) {
	summary, errSweep := h.issuance.Sweep(c.Request.Context())
	if errSweep != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issuance sweep failed"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// TriggerCampaignSweep runs one campaign sweep and returns its summary.
func (h *OpsHandler) TriggerCampaignSweep(c *gin.Context) {
	summary, errSweep := h.campaign.Sweep(c.Request.Context())
	if errSweep != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "campaign sweep failed"})
		return
	}
	c.JSON(http.StatusOK, summary)
}
