package db

import (
	"fmt"

	"github.com/passdeck/passdeck/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates the schema for all engine tables.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	return conn.AutoMigrate(
		&models.Admin{},
		&models.Seller{},
		&models.ConfigProfile{},
		&models.EmailTemplate{},
		&models.Pass{},
		&models.ReminderState{},
		&models.ScheduledIntent{},
		&models.PassAudit{},
		&models.Setting{},
	)
}
