package models

import (
	"time"

	"gorm.io/datatypes"
)

// ScheduledIntent processing states. pending rows are owned by the due-sweep;
// processed and failed are terminal.
const (
	// IntentPending marks an intent waiting for its target instant.
	IntentPending = "pending"
	// IntentProcessed marks an intent that materialized a pass.
	IntentProcessed = "processed"
	// IntentFailed marks an intent abandoned after exhausting retries.
	IntentFailed = "failed"
)

// ScheduledIntent is a durable record of a future pass-creation request.
// Rows are never deleted; they double as the issuance audit trail.
type ScheduledIntent struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key, tie-breaker for due ordering.

	SellerID uint64    `gorm:"not null;index"`                      // Requesting seller.
	State    string    `gorm:"type:text;not null;default:'pending';index:idx_intents_due,priority:1"` // pending, processed or failed.
	TargetAt time.Time `gorm:"not null;index:idx_intents_due,priority:2"`                             // Instant the pass should be issued at.

	Payload datatypes.JSON `gorm:"type:jsonb;not null"` // Frozen request plus effective config.

	RetryCount    int        `gorm:"not null;default:0"` // Materialization attempts so far.
	LastAttemptAt *time.Time // Most recent attempt, if any.
	LastError     string     `gorm:"type:text"` // Error from the most recent failed attempt.

	CreatedPassID *uint64 `gorm:"index"`                    // Pass produced once processed.
	CreatedPass   *Pass   `gorm:"foreignKey:CreatedPassID"` // Pass relation.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
