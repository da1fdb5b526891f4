package passes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/passdeck/passdeck/internal/models"
	"github.com/passdeck/passdeck/internal/notify"
	"github.com/passdeck/passdeck/internal/passconfig"
	"gorm.io/gorm"
)

type fakeGateway struct {
	mu        sync.Mutex
	issued    []notify.IssuedEvent
	reminders []notify.ReminderEvent
	issuedErr error
}

func (f *fakeGateway) PassIssued(_ context.Context, evt notify.IssuedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issued = append(f.issued, evt)
	return f.issuedErr
}

func (f *fakeGateway) ReminderDue(_ context.Context, evt notify.ReminderEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reminders = append(f.reminders, evt)
	return nil
}

func (f *fakeGateway) issuedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.issued)
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:passes_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.AutoMigrate(
		&models.Pass{}, &models.ReminderState{}, &models.PassAudit{},
	); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return db
}

func testConfig() *passconfig.EffectiveConfig {
	return &passconfig.EffectiveConfig{
		Guests:           2,
		Days:             3,
		DeliveryMethod:   "email",
		PricingMode:      "free",
		SendWelcomeEmail: true,
	}
}

func TestIssueCreatesPassReminderAndAudit(t *testing.T) {
	db := setupServiceDB(t)
	gateway := &fakeGateway{}
	svc := NewService(db, gateway)

	before := time.Now().UTC()
	pass, errIssue := svc.Issue(context.Background(), 7, testConfig())
	if errIssue != nil {
		t.Fatalf("issue: %v", errIssue)
	}
	if pass.ID == 0 || !pass.Active {
		t.Fatalf("expected an active persisted pass, got %+v", pass)
	}
	if !strings.HasPrefix(pass.Code, "pd_") {
		t.Fatalf("unexpected code format: %s", pass.Code)
	}

	wantExpiry := before.Add(3 * 24 * time.Hour)
	if pass.ExpiresAt.Before(wantExpiry.Add(-time.Minute)) || pass.ExpiresAt.After(wantExpiry.Add(time.Minute)) {
		t.Fatalf("expiry not anchored to issuance time: %v", pass.ExpiresAt)
	}

	var reminder models.ReminderState
	if errFind := db.Where("pass_id = ?", pass.ID).First(&reminder).Error; errFind != nil {
		t.Fatalf("reminder state missing: %v", errFind)
	}
	if reminder.Status != models.ReminderEligible {
		t.Fatalf("expected eligible reminder, got %s", reminder.Status)
	}
	if delta := reminder.ArmedFor.Sub(pass.ExpiresAt); delta < -time.Second || delta > time.Second {
		t.Fatalf("reminder armed for %v, pass expires %v", reminder.ArmedFor, pass.ExpiresAt)
	}

	var auditCount int64
	if errCount := db.Model(&models.PassAudit{}).Where("pass_id = ? AND action = ?", pass.ID, "issued").
		Count(&auditCount).Error; errCount != nil {
		t.Fatalf("count audits: %v", errCount)
	}
	if auditCount != 1 {
		t.Fatalf("expected one issued audit row, got %d", auditCount)
	}

	if gateway.issuedCount() != 1 {
		t.Fatalf("expected one issuance event, got %d", gateway.issuedCount())
	}
	gateway.mu.Lock()
	evt := gateway.issued[0]
	gateway.mu.Unlock()
	if evt.PassID != pass.ID || !evt.SendWelcomeEmail {
		t.Fatalf("unexpected event: %+v", evt)
	}
}

func TestIssueRejectsInvalidEntitlement(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewService(db, &fakeGateway{})

	cfg := testConfig()
	cfg.Guests = 0
	if _, errIssue := svc.Issue(context.Background(), 7, cfg); !errors.Is(errIssue, ErrInvalidEntitlement) {
		t.Fatalf("expected ErrInvalidEntitlement, got %v", errIssue)
	}

	var count int64
	if errCount := db.Model(&models.Pass{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count passes: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("expected rollback, found %d passes", count)
	}
}

func TestIssueSurvivesGatewayFailure(t *testing.T) {
	db := setupServiceDB(t)
	gateway := &fakeGateway{issuedErr: errors.New("broker down")}
	svc := NewService(db, gateway)

	pass, errIssue := svc.Issue(context.Background(), 7, testConfig())
	if errIssue != nil {
		t.Fatalf("issue must not fail on event delivery: %v", errIssue)
	}
	var stored models.Pass
	if errFind := db.First(&stored, pass.ID).Error; errFind != nil {
		t.Fatalf("pass not durable: %v", errFind)
	}
}

func TestReactivateExpiredPass(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewService(db, &fakeGateway{})

	pass, errIssue := svc.Issue(context.Background(), 7, testConfig())
	if errIssue != nil {
		t.Fatalf("issue: %v", errIssue)
	}

	// Age the pass past its expiration and consume its reminder.
	expired := time.Now().UTC().Add(-48 * time.Hour)
	if errUpdate := db.Model(&models.Pass{}).Where("id = ?", pass.ID).
		Updates(map[string]any{"active": false, "expires_at": expired}).Error; errUpdate != nil {
		t.Fatalf("expire pass: %v", errUpdate)
	}
	sentAt := time.Now().UTC().Add(-60 * time.Hour)
	if errUpdate := db.Model(&models.ReminderState{}).Where("pass_id = ?", pass.ID).
		Updates(map[string]any{"status": models.ReminderSent, "sent_at": sentAt}).Error; errUpdate != nil {
		t.Fatalf("mark reminder sent: %v", errUpdate)
	}

	updated, errReactivate := svc.Reactivate(context.Background(), pass.ID, 4, 5)
	if errReactivate != nil {
		t.Fatalf("reactivate: %v", errReactivate)
	}
	if !updated.Active || updated.Guests != 4 || updated.Days != 5 {
		t.Fatalf("unexpected reactivated pass: %+v", updated)
	}
	if !updated.ExpiresAt.After(time.Now().UTC().Add(4 * 24 * time.Hour)) {
		t.Fatalf("expiry must be anchored to now, got %v", updated.ExpiresAt)
	}

	var reminder models.ReminderState
	if errFind := db.Where("pass_id = ?", pass.ID).First(&reminder).Error; errFind != nil {
		t.Fatalf("reminder state missing: %v", errFind)
	}
	if reminder.Status != models.ReminderEligible {
		t.Fatalf("reminder must be re-armed, got %s", reminder.Status)
	}
	if reminder.SentAt != nil || reminder.TemplateID != nil {
		t.Fatalf("reminder send markers must be cleared: %+v", reminder)
	}
	if delta := reminder.ArmedFor.Sub(updated.ExpiresAt); delta < -time.Second || delta > time.Second {
		t.Fatalf("reminder armed for %v, pass expires %v", reminder.ArmedFor, updated.ExpiresAt)
	}

	var audit models.PassAudit
	if errFind := db.Where("pass_id = ? AND action = ?", pass.ID, "reactivated").
		First(&audit).Error; errFind != nil {
		t.Fatalf("reactivation audit missing: %v", errFind)
	}
	if audit.PriorActive == nil || *audit.PriorActive {
		t.Fatalf("audit must capture the prior inactive state: %+v", audit)
	}
	if audit.PriorExpiresAt == nil {
		t.Fatalf("audit must capture the prior expiry: %+v", audit)
	}
	if delta := audit.PriorExpiresAt.Sub(expired); delta < -time.Second || delta > time.Second {
		t.Fatalf("audit prior expiry %v, want near %v", audit.PriorExpiresAt, expired)
	}
}

func TestReactivateUnknownPass(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewService(db, &fakeGateway{})

	if _, errReactivate := svc.Reactivate(context.Background(), 999, 2, 3); !errors.Is(errReactivate, ErrPassNotFound) {
		t.Fatalf("expected ErrPassNotFound, got %v", errReactivate)
	}
}
