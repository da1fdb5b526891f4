package models

import "time"

// Seller represents a merchant account that issues passes.
type Seller struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name  string `gorm:"type:text;not null"`             // Display name.
	Email string `gorm:"type:text;not null;uniqueIndex"` // Contact address, unique.

	Active bool `gorm:"not null;default:true"` // Whether the seller may issue passes.

	DefaultProfileID *uint64 `gorm:"index"` // Saved config profile used when a request names none.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
