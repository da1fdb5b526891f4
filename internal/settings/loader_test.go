package settings

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/passdeck/passdeck/internal/models"
	"gorm.io/gorm"
)

func setupSettingsDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:settings_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.AutoMigrate(&models.Setting{}); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	if errRefresh := RefreshDBConfigSnapshot(context.Background(), db); errRefresh != nil {
		t.Fatalf("refresh: %v", errRefresh)
	}
	return db
}

func TestSaveRefreshesSnapshot(t *testing.T) {
	db := setupSettingsDB(t)

	if IntValue(ReminderLeadHoursKey, DefaultReminderLeadHours) != DefaultReminderLeadHours {
		t.Fatalf("expected the fallback before any save")
	}

	if errSave := Save(context.Background(), db, ReminderLeadHoursKey, 6); errSave != nil {
		t.Fatalf("save: %v", errSave)
	}
	if got := IntValue(ReminderLeadHoursKey, DefaultReminderLeadHours); got != 6 {
		t.Fatalf("expected 6 after save, got %d", got)
	}

	// Upsert replaces, never duplicates.
	if errSave := Save(context.Background(), db, ReminderLeadHoursKey, 9); errSave != nil {
		t.Fatalf("second save: %v", errSave)
	}
	if got := IntValue(ReminderLeadHoursKey, DefaultReminderLeadHours); got != 9 {
		t.Fatalf("expected 9 after upsert, got %d", got)
	}
	var count int64
	if errCount := db.Model(&models.Setting{}).Where("key = ?", ReminderLeadHoursKey).
		Count(&count).Error; errCount != nil {
		t.Fatalf("count rows: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("expected one row, got %d", count)
	}
}

func TestIntValueRejectsGarbage(t *testing.T) {
	db := setupSettingsDB(t)

	if errSave := Save(context.Background(), db, IntentMaxAttemptsKey, "not a number"); errSave != nil {
		t.Fatalf("save: %v", errSave)
	}
	if got := IntValue(IntentMaxAttemptsKey, DefaultIntentMaxAttempts); got != DefaultIntentMaxAttempts {
		t.Fatalf("garbage must fall back, got %d", got)
	}

	if errSave := Save(context.Background(), db, IntentMaxAttemptsKey, -3); errSave != nil {
		t.Fatalf("save negative: %v", errSave)
	}
	if got := IntValue(IntentMaxAttemptsKey, DefaultIntentMaxAttempts); got != DefaultIntentMaxAttempts {
		t.Fatalf("non-positive must fall back, got %d", got)
	}
}
