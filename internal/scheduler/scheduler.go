package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/passdeck/passdeck/internal/metrics"
	"github.com/passdeck/passdeck/internal/models"
	"github.com/passdeck/passdeck/internal/passconfig"
	"github.com/passdeck/passdeck/internal/passes"
	internalsettings "github.com/passdeck/passdeck/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const sweepName = "issuance"

// errDuplicateClaim marks a sweep item another worker already claimed.
// Not an error condition; the losing worker just moves on.
var errDuplicateClaim = errors.New("scheduler: intent already claimed")

// intentPayload is the frozen request stored on a scheduled intent.
type intentPayload struct {
	SellerID uint64                     `json:"seller_id"`
	Config   passconfig.EffectiveConfig `json:"config"`
}

// Summary reports one sweep run.
type Summary struct {
	RunID     string `json:"run_id"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

// Scheduler turns pass requests into passes, either synchronously or through
// durable scheduled intents materialized by the due-sweep.
type Scheduler struct {
	db     *gorm.DB
	passes *passes.Service
}

// NewScheduler constructs an issuance scheduler.
func NewScheduler(db *gorm.DB, passSvc *passes.Service) *Scheduler {
	if db == nil || passSvc == nil {
		return nil
	}
	return &Scheduler{db: db, passes: passSvc}
}

// ScheduleOrIssueNow issues a pass immediately when issueAt is absent or not
// in the future, and otherwise persists a pending intent for the due-sweep.
// Exactly one of the returns is non-nil on success.
func (s *Scheduler) ScheduleOrIssueNow(ctx context.Context, sellerID uint64, cfg *passconfig.EffectiveConfig, issueAt *time.Time) (*models.Pass, *models.ScheduledIntent, error) {
	if s == nil || s.db == nil {
		return nil, nil, errors.New("scheduler: not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := time.Now().UTC()
	if issueAt == nil || !issueAt.After(now) {
		pass, errIssue := s.passes.Issue(ctx, sellerID, cfg)
		if errIssue != nil {
			return nil, nil, errIssue
		}
		metrics.PassesIssued.WithLabelValues("immediate").Inc()
		return pass, nil, nil
	}

	payload, errMarshal := json.Marshal(intentPayload{SellerID: sellerID, Config: *cfg})
	if errMarshal != nil {
		return nil, nil, fmt.Errorf("scheduler: encode payload: %w", errMarshal)
	}
	intent := models.ScheduledIntent{
		SellerID: sellerID,
		State:    models.IntentPending,
		TargetAt: issueAt.UTC(),
		Payload:  datatypes.JSON(payload),
	}
	if errCreate := s.db.WithContext(ctx).Create(&intent).Error; errCreate != nil {
		return nil, nil, errCreate
	}
	metrics.PassesIssued.WithLabelValues("scheduled").Inc()
	return nil, &intent, nil
}

// Start launches the due-sweep loop in a background goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go s.run(ctx)
	log.Info("issuance due-sweep started")
}

func (s *Scheduler) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if _, errSweep := s.Sweep(ctx); errSweep != nil {
			log.WithError(errSweep).Warn("issuance sweep failed")
		}
		if ctx.Err() != nil {
			return
		}
		interval := time.Duration(internalsettings.IntValue(
			internalsettings.IssuanceSweepIntervalSecondsKey,
			internalsettings.DefaultIssuanceSweepIntervalSeconds,
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

// Sweep materializes every due pending intent. Overdue backlog is not a
// separate path: the due query uses <= so missed windows are picked up by the
// next run. Items are processed in (target_at, id) order; a per-item failure
// never aborts the batch. Safe to invoke concurrently: the pending->processed
// transition is a conditional update and only one invocation can win it.
func (s *Scheduler) Sweep(ctx context.Context) (Summary, error) {
	summary := Summary{RunID: uuid.NewString()}
	if s == nil || s.db == nil {
		return summary, errors.New("scheduler: not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	now := start.UTC()

	var due []models.ScheduledIntent
	if errFind := s.db.WithContext(ctx).
		Where("state = ? AND target_at <= ?", models.IntentPending, now).
		Order("target_at ASC, id ASC").
		Find(&due).Error; errFind != nil {
		return summary, errFind
	}

	maxAttempts := internalsettings.IntValue(
		internalsettings.IntentMaxAttemptsKey,
		internalsettings.DefaultIntentMaxAttempts,
	)

	for i := range due {
		if ctx.Err() != nil {
			break
		}
		s.processIntent(ctx, &due[i], maxAttempts, &summary)
	}

	if errHWM := internalsettings.Save(ctx, s.db, internalsettings.IssuanceSweepHWMKey, now); errHWM != nil {
		log.WithError(errHWM).Warn("issuance sweep: persist high-water mark failed")
	}
	metrics.RecordSweepDuration(sweepName, time.Since(start).Seconds())

	log.WithFields(log.Fields{
		"run_id":    summary.RunID,
		"processed": summary.Processed,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
	}).Info("issuance sweep finished")
	return summary, nil
}

// processIntent attempts to materialize one intent. The pass is created in the
// same transaction that flips the intent to processed; losing the conditional
// update rolls the pass back, so a duplicate sweep cannot double-issue.
func (s *Scheduler) processIntent(ctx context.Context, intent *models.ScheduledIntent, maxAttempts int, summary *Summary) {
	now := time.Now().UTC()

	var payload intentPayload
	if errDecode := json.Unmarshal(intent.Payload, &payload); errDecode != nil {
		s.recordFailure(ctx, intent, maxAttempts, now, fmt.Errorf("decode payload: %w", errDecode))
		summary.Failed++
		metrics.RecordSweepItem(sweepName, "failed")
		return
	}

	var issued *models.Pass
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pass, errIssue := s.passes.IssueInTx(tx, payload.SellerID, &payload.Config, now)
		if errIssue != nil {
			return errIssue
		}
		res := tx.Model(&models.ScheduledIntent{}).
			Where("id = ? AND state = ?", intent.ID, models.IntentPending).
			Updates(map[string]any{
				"state":           models.IntentProcessed,
				"created_pass_id": pass.ID,
				"retry_count":     gorm.Expr("retry_count + 1"),
				"last_attempt_at": now,
				"last_error":      "",
				"updated_at":      now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errDuplicateClaim
		}
		issued = pass
		return nil
	})

	switch {
	case errTx == nil:
		s.passes.EmitIssued(ctx, issued, &payload.Config)
		summary.Processed++
		metrics.RecordSweepItem(sweepName, "processed")
	case errors.Is(errTx, errDuplicateClaim):
		log.Infof("issuance sweep: duplicate suppressed (intent=%d)", intent.ID)
		summary.Skipped++
		metrics.RecordSweepItem(sweepName, "skipped")
	default:
		s.recordFailure(ctx, intent, maxAttempts, now, errTx)
		summary.Failed++
		metrics.RecordSweepItem(sweepName, "failed")
	}
}

// recordFailure bumps the attempt counter and abandons the intent once the
// retry bound is exhausted. Both updates are conditional on the pending state
// so a concurrent success is never overwritten.
func (s *Scheduler) recordFailure(ctx context.Context, intent *models.ScheduledIntent, maxAttempts int, now time.Time, cause error) {
	log.WithError(cause).Warnf("issuance sweep: materialization failed (intent=%d attempt=%d)", intent.ID, intent.RetryCount+1)

	if errUpdate := s.db.WithContext(ctx).Model(&models.ScheduledIntent{}).
		Where("id = ? AND state = ?", intent.ID, models.IntentPending).
		Updates(map[string]any{
			"retry_count":     gorm.Expr("retry_count + 1"),
			"last_attempt_at": now,
			"last_error":      cause.Error(),
			"updated_at":      now,
		}).Error; errUpdate != nil {
		log.WithError(errUpdate).Warnf("issuance sweep: record attempt failed (intent=%d)", intent.ID)
		return
	}

	res := s.db.WithContext(ctx).Model(&models.ScheduledIntent{}).
		Where("id = ? AND state = ? AND retry_count >= ?", intent.ID, models.IntentPending, maxAttempts).
		Update("state", models.IntentFailed)
	if res.Error != nil {
		log.WithError(res.Error).Warnf("issuance sweep: mark failed errored (intent=%d)", intent.ID)
		return
	}
	if res.RowsAffected > 0 {
		log.Errorf("issuance sweep: intent abandoned after %d attempts (intent=%d)", maxAttempts, intent.ID)
	}
}
