package models

import (
	"time"

	"gorm.io/datatypes"
)

// Pass is an issued, time-bounded access artifact with guest/day entitlement.
type Pass struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Code     string `gorm:"type:text;not null;uniqueIndex"` // Unique redeemable code.
	SellerID uint64 `gorm:"not null;index"`                 // Owning seller.

	Guests int `gorm:"not null"` // Guest entitlement.
	Days   int `gorm:"not null"` // Validity in days at issuance.

	Cost           float64 `gorm:"type:decimal(20,10);not null;default:0"` // Charged amount.
	DeliveryMethod string  `gorm:"type:text;not null"`                     // Delivery channel (email, sms, link).

	ConfigSnapshot datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"` // Effective config frozen at issuance.

	Active    bool      `gorm:"not null;default:true;index"` // Lifecycle flag.
	ExpiresAt time.Time `gorm:"not null;index"`              // Canonical expiration instant.

	Seller Seller `gorm:"foreignKey:SellerID"` // Seller relation.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Issuance timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// ReminderState statuses. The transition eligible -> sent is the concurrency
// gate for reminder delivery; sent is terminal for the armed expiration instant.
const (
	// ReminderEligible marks a pass whose expiration reminder has not fired.
	ReminderEligible = "eligible"
	// ReminderSent marks a pass whose reminder fired for the armed instant.
	ReminderSent = "sent"
)

// ReminderState is the one-to-one reminder companion of a Pass.
type ReminderState struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	PassID uint64 `gorm:"not null;uniqueIndex"` // Related pass.

	Status   string    `gorm:"type:text;not null;default:'eligible';index"` // eligible or sent.
	ArmedFor time.Time `gorm:"not null"`                                    // Expiration instant this state guards.

	SentAt     *time.Time // When the reminder fired, if it did.
	TemplateID *uint64    // Template resolved at send time.

	Pass Pass `gorm:"foreignKey:PassID"` // Pass relation.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// PassAudit records a lifecycle transition on a pass, keeping the prior state.
type PassAudit struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	PassID uint64 `gorm:"not null;index"`     // Related pass.
	Action string `gorm:"type:text;not null"` // Transition name (issued, reactivated).

	PriorActive    *bool      // Active flag before the transition.
	PriorExpiresAt *time.Time // Expiration instant before the transition.

	Guests int `gorm:"not null"` // Entitlement applied by the transition.
	Days   int `gorm:"not null"` // Days applied by the transition.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Transition timestamp.
}
