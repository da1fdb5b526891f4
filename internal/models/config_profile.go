package models

import (
	"time"

	"gorm.io/datatypes"
)

// ConfigProfile scopes. Resolution layers profiles lowest to highest:
// system, then seller, then link.
const (
	// ScopeSystem marks the single system-wide default layer.
	ScopeSystem = "system"
	// ScopeSeller marks a seller's saved configuration.
	ScopeSeller = "seller"
	// ScopeLink marks a per-link override chosen at request time.
	ScopeLink = "link"
)

// ConfigProfile is one layer of pass configuration, stored as a JSON document.
// A key present in the document is "set" regardless of its value; absent keys
// fall through to the next lower layer.
type ConfigProfile struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key; resolution fetches by id.

	SellerID *uint64 `gorm:"index"`                    // Owning seller; nil for the system layer.
	Scope    string  `gorm:"type:text;not null;index"` // system, seller or link.
	Name     string  `gorm:"type:text;not null"`       // Display name.

	Document datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"` // Layer fields.

	Seller *Seller `gorm:"foreignKey:SellerID"` // Seller relation.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
