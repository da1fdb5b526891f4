package campaign

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/passdeck/passdeck/internal/metrics"
	"github.com/passdeck/passdeck/internal/models"
	"github.com/passdeck/passdeck/internal/notify"
	"github.com/passdeck/passdeck/internal/passconfig"
	internalsettings "github.com/passdeck/passdeck/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const sweepName = "campaign"

// ErrNoDefaultTemplate indicates the system reminder template is missing.
var ErrNoDefaultTemplate = errors.New("campaign: no default reminder template")

// Summary reports one campaign sweep run.
type Summary struct {
	RunID     string `json:"run_id"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

// Trigger scans active passes and fires their expiration reminder at most once
// per armed expiration instant.
type Trigger struct {
	db      *gorm.DB
	gateway notify.Gateway
}

// NewTrigger constructs a campaign trigger engine.
func NewTrigger(db *gorm.DB, gateway notify.Gateway) *Trigger {
	if db == nil {
		return nil
	}
	return &Trigger{db: db, gateway: gateway}
}

// Start launches the campaign sweep loop in a background goroutine.
func (t *Trigger) Start(ctx context.Context) {
	if t == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go t.run(ctx)
	log.Info("campaign trigger started")
}

func (t *Trigger) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if _, errSweep := t.Sweep(ctx); errSweep != nil {
			log.WithError(errSweep).Warn("campaign sweep failed")
		}
		if ctx.Err() != nil {
			return
		}
		interval := time.Duration(internalsettings.IntValue(
			internalsettings.CampaignSweepIntervalSecondsKey,
			internalsettings.DefaultCampaignSweepIntervalSeconds,
		)) * time.Second
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

// Sweep fires reminders for passes inside the lead window. Eligibility is
// consumed by a conditional update keyed to the armed expiration instant, so
// overlapping sweeps and reactivations racing the sweep cannot double-send.
// Already-expired and inactive passes never qualify.
func (t *Trigger) Sweep(ctx context.Context) (Summary, error) {
	summary := Summary{RunID: uuid.NewString()}
	if t == nil || t.db == nil {
		return summary, errors.New("campaign: not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	now := start.UTC()
	lead := time.Duration(internalsettings.IntValue(
		internalsettings.ReminderLeadHoursKey,
		internalsettings.DefaultReminderLeadHours,
	)) * time.Hour

	var due []models.ReminderState
	if errFind := t.db.WithContext(ctx).
		Joins("JOIN passes ON passes.id = reminder_states.pass_id").
		Where("reminder_states.status = ?", models.ReminderEligible).
		Where("passes.active = ?", true).
		Where("passes.expires_at > ? AND passes.expires_at <= ?", now, now.Add(lead)).
		Order("passes.expires_at ASC, reminder_states.id ASC").
		Preload("Pass").
		Find(&due).Error; errFind != nil {
		return summary, errFind
	}

	for i := range due {
		if ctx.Err() != nil {
			break
		}
		t.processReminder(ctx, &due[i], now, &summary)
	}

	if errHWM := internalsettings.Save(ctx, t.db, internalsettings.CampaignSweepHWMKey, now); errHWM != nil {
		log.WithError(errHWM).Warn("campaign sweep: persist high-water mark failed")
	}
	metrics.RecordSweepDuration(sweepName, time.Since(start).Seconds())

	log.WithFields(log.Fields{
		"run_id":    summary.RunID,
		"processed": summary.Processed,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
	}).Info("campaign sweep finished")
	return summary, nil
}

func (t *Trigger) processReminder(ctx context.Context, state *models.ReminderState, now time.Time, summary *Summary) {
	pass := state.Pass

	templateID, errTemplate := t.resolveTemplate(ctx, &pass)
	if errTemplate != nil {
		log.WithError(errTemplate).Warnf("campaign sweep: template resolution failed (pass=%d)", pass.ID)
		summary.Failed++
		metrics.RecordSweepItem(sweepName, "failed")
		return
	}

	// The gate: flip eligible -> sent for the armed instant only. A pass
	// reactivated since the window query re-armed the row to a new instant
	// and must not consume this send.
	res := t.db.WithContext(ctx).Model(&models.ReminderState{}).
		Where("id = ? AND status = ? AND armed_for = ?", state.ID, models.ReminderEligible, state.ArmedFor).
		Updates(map[string]any{
			"status":      models.ReminderSent,
			"sent_at":     now,
			"template_id": templateID,
			"updated_at":  now,
		})
	if res.Error != nil {
		log.WithError(res.Error).Warnf("campaign sweep: gate update failed (pass=%d)", pass.ID)
		summary.Failed++
		metrics.RecordSweepItem(sweepName, "failed")
		return
	}
	if res.RowsAffected == 0 {
		log.Infof("campaign sweep: duplicate suppressed (pass=%d)", pass.ID)
		summary.Skipped++
		metrics.RecordSweepItem(sweepName, "skipped")
		return
	}

	summary.Processed++
	metrics.RecordSweepItem(sweepName, "processed")
	metrics.RemindersSent.Inc()

	if t.gateway == nil {
		return
	}
	evt := notify.ReminderEvent{
		PassID:     pass.ID,
		Code:       pass.Code,
		SellerID:   pass.SellerID,
		TemplateID: templateID,
		Guests:     pass.Guests,
		Days:       pass.Days,
		ExpiresAt:  pass.ExpiresAt,
		TimeLeft:   pass.ExpiresAt.Sub(now),
	}
	if errEmit := t.gateway.ReminderDue(ctx, evt); errEmit != nil {
		// The gate is already won; a failed delivery is a missed send, not a
		// reason to re-arm. Surfaced through logs and metrics only.
		log.WithError(errEmit).Errorf("campaign sweep: reminder delivery failed (pass=%d)", pass.ID)
	}
}

// resolveTemplate picks the reminder template for a pass: the variant from the
// pass's frozen config when it still exists and is active, otherwise the
// system default. A dangling reference falls back instead of failing the item.
func (t *Trigger) resolveTemplate(ctx context.Context, pass *models.Pass) (uint64, error) {
	var cfg passconfig.EffectiveConfig
	if len(pass.ConfigSnapshot) > 0 {
		if errDecode := json.Unmarshal(pass.ConfigSnapshot, &cfg); errDecode != nil {
			log.WithError(errDecode).Warnf("campaign sweep: bad config snapshot (pass=%d)", pass.ID)
		}
	}

	if cfg.ReminderTemplateID != nil {
		var row models.EmailTemplate
		errFind := t.db.WithContext(ctx).
			Where("id = ? AND kind = ? AND active = ?", *cfg.ReminderTemplateID, models.TemplateReminder, true).
			First(&row).Error
		if errFind == nil {
			return row.ID, nil
		}
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			return 0, errFind
		}
		log.Warnf("campaign sweep: template %d missing, falling back to default (pass=%d)", *cfg.ReminderTemplateID, pass.ID)
	}

	var fallback models.EmailTemplate
	errFind := t.db.WithContext(ctx).
		Where("kind = ? AND is_default = ? AND active = ?", models.TemplateReminder, true, true).
		Order("id ASC").
		First(&fallback).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return 0, ErrNoDefaultTemplate
	}
	if errFind != nil {
		return 0, errFind
	}
	return fallback.ID, nil
}
