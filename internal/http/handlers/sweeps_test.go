package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/passdeck/passdeck/internal/campaign"
	"github.com/passdeck/passdeck/internal/models"
	"github.com/passdeck/passdeck/internal/passconfig"
	"github.com/passdeck/passdeck/internal/passes"
	"github.com/passdeck/passdeck/internal/scheduler"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newOpsRouter(conn *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	passSvc := passes.NewService(conn, noopGateway{})
	handler := NewOpsHandler(scheduler.NewScheduler(conn, passSvc), campaign.NewTrigger(conn, noopGateway{}))
	router := gin.New()
	router.POST("/v0/ops/sweeps/issuance", handler.TriggerIssuanceSweep)
	router.POST("/v0/ops/sweeps/campaign", handler.TriggerCampaignSweep)
	return router
}

func TestTriggerIssuanceSweepEndpoint(t *testing.T) {
	conn := setupHandlerDB(t)
	router := newOpsRouter(conn)

	payload, errMarshal := json.Marshal(gin.H{
		"seller_id": 1,
		"config":    passconfig.EffectiveConfig{Guests: 2, Days: 3, DeliveryMethod: "email", PricingMode: "free"},
	})
	if errMarshal != nil {
		t.Fatalf("marshal payload: %v", errMarshal)
	}
	intent := models.ScheduledIntent{
		SellerID: 1,
		State:    models.IntentPending,
		TargetAt: time.Now().UTC().Add(-time.Minute),
		Payload:  datatypes.JSON(payload),
	}
	if errCreate := conn.Create(&intent).Error; errCreate != nil {
		t.Fatalf("create intent: %v", errCreate)
	}

	req := httptest.NewRequest(http.MethodPost, "/v0/ops/sweeps/issuance", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var summary scheduler.Summary
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &summary); errDecode != nil {
		t.Fatalf("decode summary: %v", errDecode)
	}
	if summary.RunID == "" || summary.Processed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestTriggerCampaignSweepEndpoint(t *testing.T) {
	conn := setupHandlerDB(t)
	router := newOpsRouter(conn)

	template := models.EmailTemplate{
		Kind:      models.TemplateReminder,
		Name:      "Default reminder",
		Subject:   "Your pass is about to expire",
		IsDefault: true,
		Active:    true,
	}
	if errCreate := conn.Create(&template).Error; errCreate != nil {
		t.Fatalf("create template: %v", errCreate)
	}

	expiresAt := time.Now().UTC().Add(6 * time.Hour)
	pass := models.Pass{
		Code:           fmt.Sprintf("pd_%d", time.Now().UnixNano()),
		SellerID:       1,
		Guests:         2,
		Days:           3,
		DeliveryMethod: "email",
		ConfigSnapshot: datatypes.JSON([]byte(`{}`)),
		Active:         true,
		ExpiresAt:      expiresAt,
	}
	if errCreate := conn.Create(&pass).Error; errCreate != nil {
		t.Fatalf("create pass: %v", errCreate)
	}
	state := models.ReminderState{PassID: pass.ID, Status: models.ReminderEligible, ArmedFor: expiresAt}
	if errCreate := conn.Create(&state).Error; errCreate != nil {
		t.Fatalf("create reminder state: %v", errCreate)
	}

	req := httptest.NewRequest(http.MethodPost, "/v0/ops/sweeps/campaign", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var summary campaign.Summary
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &summary); errDecode != nil {
		t.Fatalf("decode summary: %v", errDecode)
	}
	if summary.Processed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}
