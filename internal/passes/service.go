package passes

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/passdeck/passdeck/internal/models"
	"github.com/passdeck/passdeck/internal/notify"
	"github.com/passdeck/passdeck/internal/passconfig"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service errors.
var (
	// ErrPassNotFound indicates the pass id does not exist.
	ErrPassNotFound = errors.New("passes: pass not found")
	// ErrInvalidEntitlement indicates non-positive guests or days.
	ErrInvalidEntitlement = errors.New("passes: guests and days must be positive")
)

// Service owns pass issuance and lifecycle transitions. It is the only writer
// of pass rows; sweepers go through it so entitlement and audit rules live in
// one place.
type Service struct {
	db      *gorm.DB       // Pass store.
	gateway notify.Gateway // Event sink, invoked after commits only.
}

// NewService wires a pass service.
func NewService(db *gorm.DB, gateway notify.Gateway) *Service {
	return &Service{db: db, gateway: gateway}
}

// Issue creates a pass with a fresh eligible reminder state and emits the
// issuance event once the transaction commits.
func (s *Service) Issue(ctx context.Context, sellerID uint64, cfg *passconfig.EffectiveConfig) (*models.Pass, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("passes: service not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var pass *models.Pass
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, errIssue := s.IssueInTx(tx, sellerID, cfg, time.Now().UTC())
		if errIssue != nil {
			return errIssue
		}
		pass = created
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}

	s.EmitIssued(ctx, pass, cfg)
	return pass, nil
}

// IssueInTx creates the pass, reminder state and audit rows inside an existing
// transaction. Callers must emit the issuance event themselves after commit.
func (s *Service) IssueInTx(tx *gorm.DB, sellerID uint64, cfg *passconfig.EffectiveConfig, now time.Time) (*models.Pass, error) {
	if cfg == nil {
		return nil, errors.New("passes: nil config")
	}
	if cfg.Guests <= 0 || cfg.Days <= 0 {
		return nil, ErrInvalidEntitlement
	}

	code, errCode := generateCode()
	if errCode != nil {
		return nil, errCode
	}
	snapshot, errMarshal := json.Marshal(cfg)
	if errMarshal != nil {
		return nil, fmt.Errorf("passes: encode config snapshot: %w", errMarshal)
	}

	expiresAt := now.Add(time.Duration(cfg.Days) * 24 * time.Hour)
	pass := models.Pass{
		Code:           code,
		SellerID:       sellerID,
		Guests:         cfg.Guests,
		Days:           cfg.Days,
		Cost:           cfg.Price,
		DeliveryMethod: cfg.DeliveryMethod,
		ConfigSnapshot: datatypes.JSON(snapshot),
		Active:         true,
		ExpiresAt:      expiresAt,
		CreatedAt:      now,
	}
	if errCreate := tx.Create(&pass).Error; errCreate != nil {
		return nil, errCreate
	}

	reminder := models.ReminderState{
		PassID:   pass.ID,
		Status:   models.ReminderEligible,
		ArmedFor: expiresAt,
	}
	if errCreate := tx.Create(&reminder).Error; errCreate != nil {
		return nil, errCreate
	}

	audit := models.PassAudit{
		PassID:    pass.ID,
		Action:    "issued",
		Guests:    cfg.Guests,
		Days:      cfg.Days,
		CreatedAt: now,
	}
	if errCreate := tx.Create(&audit).Error; errCreate != nil {
		return nil, errCreate
	}

	return &pass, nil
}

// EmitIssued publishes the issuance event. Delivery failure is logged only;
// the pass is already durable.
func (s *Service) EmitIssued(ctx context.Context, pass *models.Pass, cfg *passconfig.EffectiveConfig) {
	if s.gateway == nil || pass == nil {
		return
	}
	evt := notify.IssuedEvent{
		PassID:         pass.ID,
		Code:           pass.Code,
		SellerID:       pass.SellerID,
		Guests:         pass.Guests,
		Days:           pass.Days,
		DeliveryMethod: pass.DeliveryMethod,
		ExpiresAt:      pass.ExpiresAt,
	}
	if cfg != nil {
		evt.SendWelcomeEmail = cfg.SendWelcomeEmail
		evt.WelcomeTemplateID = cfg.WelcomeTemplateID
	}
	if errEmit := s.gateway.PassIssued(ctx, evt); errEmit != nil {
		log.WithError(errEmit).Warnf("passes: issuance event delivery failed (pass=%d)", pass.ID)
	}
}

// Reactivate extends a pass to now + days, marks it active and re-arms its
// reminder state for the new expiration instant. The prior state is kept in
// the audit trail; the pass identity does not change.
func (s *Service) Reactivate(ctx context.Context, passID uint64, guests, days int) (*models.Pass, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("passes: service not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if guests <= 0 || days <= 0 {
		return nil, ErrInvalidEntitlement
	}

	now := time.Now().UTC()
	expiresAt := now.Add(time.Duration(days) * 24 * time.Hour)

	var pass models.Pass
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errFind := tx.First(&pass, passID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrPassNotFound
			}
			return errFind
		}

		priorActive := pass.Active
		priorExpiresAt := pass.ExpiresAt

		if errUpdate := tx.Model(&models.Pass{}).
			Where("id = ?", pass.ID).
			Updates(map[string]any{
				"guests":     guests,
				"days":       days,
				"active":     true,
				"expires_at": expiresAt,
				"updated_at": now,
			}).Error; errUpdate != nil {
			return errUpdate
		}

		// Re-arm exactly one reminder against the new expiration instant.
		if errReset := tx.Model(&models.ReminderState{}).
			Where("pass_id = ?", pass.ID).
			Updates(map[string]any{
				"status":      models.ReminderEligible,
				"armed_for":   expiresAt,
				"sent_at":     nil,
				"template_id": nil,
				"updated_at":  now,
			}).Error; errReset != nil {
			return errReset
		}

		audit := models.PassAudit{
			PassID:         pass.ID,
			Action:         "reactivated",
			PriorActive:    &priorActive,
			PriorExpiresAt: &priorExpiresAt,
			Guests:         guests,
			Days:           days,
			CreatedAt:      now,
		}
		if errCreate := tx.Create(&audit).Error; errCreate != nil {
			return errCreate
		}

		pass.Guests = guests
		pass.Days = days
		pass.Active = true
		pass.ExpiresAt = expiresAt
		pass.UpdatedAt = now
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return &pass, nil
}

// generateCode creates a random pass code.
func generateCode() (string, error) {
	secret := make([]byte, 10)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return "", fmt.Errorf("passes: generate code: %w", err)
	}
	return "pd_" + hex.EncodeToString(secret), nil
}
