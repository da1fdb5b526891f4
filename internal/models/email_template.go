package models

import "time"

// EmailTemplate kinds.
const (
	// TemplateWelcome is sent when a pass is issued.
	TemplateWelcome = "welcome"
	// TemplateReminder is sent inside the expiration reminder window.
	TemplateReminder = "reminder"
)

// EmailTemplate identifies a mail variant a seller or the system can select.
// Bodies live in the notification gateway; the engine only resolves ids.
type EmailTemplate struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	SellerID *uint64 `gorm:"index"`                    // Owning seller; nil for system templates.
	Kind     string  `gorm:"type:text;not null;index"` // welcome or reminder.
	Name     string  `gorm:"type:text;not null"`       // Display name.
	Subject  string  `gorm:"type:text;not null"`       // Mail subject line.

	IsDefault bool `gorm:"not null;default:false;index"` // System fallback for its kind.
	Active    bool `gorm:"not null;default:true"`        // Whether the template may be selected.

	Seller *Seller `gorm:"foreignKey:SellerID"` // Seller relation.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
