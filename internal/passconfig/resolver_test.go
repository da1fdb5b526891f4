package passconfig

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/passdeck/passdeck/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupResolverDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:resolver_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.AutoMigrate(&models.Seller{}, &models.ConfigProfile{}); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return db
}

func seedProfile(t *testing.T, db *gorm.DB, sellerID *uint64, scope, document string) uint64 {
	t.Helper()
	row := models.ConfigProfile{
		SellerID: sellerID,
		Scope:    scope,
		Name:     scope + " profile",
		Document: datatypes.JSON([]byte(document)),
	}
	if errCreate := db.Create(&row).Error; errCreate != nil {
		t.Fatalf("create profile: %v", errCreate)
	}
	return row.ID
}

func seedSeller(t *testing.T, db *gorm.DB) uint64 {
	t.Helper()
	seller := models.Seller{Name: "acme", Email: "acme@example.com", Active: true}
	if errCreate := db.Create(&seller).Error; errCreate != nil {
		t.Fatalf("create seller: %v", errCreate)
	}
	return seller.ID
}

func TestResolveSystemDefaultsOnly(t *testing.T) {
	db := setupResolverDB(t)
	sellerID := seedSeller(t, db)
	seedProfile(t, db, nil, models.ScopeSystem, `{"guests":2,"days":3,"delivery_method":"email","send_welcome_email":true}`)

	resolver := NewResolver(db)
	cfg, errResolve := resolver.Resolve(context.Background(), sellerID, nil, nil)
	if errResolve != nil {
		t.Fatalf("resolve: %v", errResolve)
	}
	if cfg.Guests != 2 || cfg.Days != 3 || cfg.DeliveryMethod != "email" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !cfg.SendWelcomeEmail {
		t.Fatalf("expected welcome email enabled from system layer")
	}
}

func TestResolveExplicitFalseOverridesSystemTrue(t *testing.T) {
	db := setupResolverDB(t)
	sellerID := seedSeller(t, db)
	seedProfile(t, db, nil, models.ScopeSystem, `{"guests":2,"days":3,"delivery_method":"email","send_welcome_email":true}`)
	profileID := seedProfile(t, db, &sellerID, models.ScopeSeller, `{"send_welcome_email":false}`)

	resolver := NewResolver(db)
	cfg, errResolve := resolver.Resolve(context.Background(), sellerID, &profileID, nil)
	if errResolve != nil {
		t.Fatalf("resolve: %v", errResolve)
	}
	if cfg.SendWelcomeEmail {
		t.Fatalf("explicit false at the seller layer must override the system true")
	}
	if cfg.Guests != 2 || cfg.Days != 3 {
		t.Fatalf("unset seller fields must fall through, got %+v", cfg)
	}
}

func TestResolveUnsetFieldFallsThrough(t *testing.T) {
	db := setupResolverDB(t)
	sellerID := seedSeller(t, db)
	seedProfile(t, db, nil, models.ScopeSystem, `{"guests":2,"days":3,"delivery_method":"email","send_welcome_email":true}`)
	profileID := seedProfile(t, db, &sellerID, models.ScopeSeller, `{"guests":6}`)

	resolver := NewResolver(db)
	cfg, errResolve := resolver.Resolve(context.Background(), sellerID, &profileID, nil)
	if errResolve != nil {
		t.Fatalf("resolve: %v", errResolve)
	}
	if cfg.Guests != 6 {
		t.Fatalf("expected seller guests=6, got %d", cfg.Guests)
	}
	if !cfg.SendWelcomeEmail {
		t.Fatalf("unset seller flag must fall through to the system true")
	}
}

func TestResolveLinkOverrideWins(t *testing.T) {
	db := setupResolverDB(t)
	sellerID := seedSeller(t, db)
	seedProfile(t, db, nil, models.ScopeSystem, `{"guests":2,"days":3,"delivery_method":"email"}`)
	profileID := seedProfile(t, db, &sellerID, models.ScopeSeller, `{"guests":6,"pricing_mode":"fixed","price":19.5}`)
	linkID := seedProfile(t, db, nil, models.ScopeLink, `{"guests":4,"days":7}`)

	resolver := NewResolver(db)
	cfg, errResolve := resolver.Resolve(context.Background(), sellerID, &profileID, &linkID)
	if errResolve != nil {
		t.Fatalf("resolve: %v", errResolve)
	}
	if cfg.Guests != 4 || cfg.Days != 7 {
		t.Fatalf("link layer must win, got %+v", cfg)
	}
	if cfg.PricingMode != "fixed" || cfg.Price != 19.5 {
		t.Fatalf("seller pricing must survive under the link layer, got %+v", cfg)
	}
}

func TestResolveSellerDefaultProfileUsedWhenNoneGiven(t *testing.T) {
	db := setupResolverDB(t)
	sellerID := seedSeller(t, db)
	seedProfile(t, db, nil, models.ScopeSystem, `{"guests":2,"days":3,"delivery_method":"email"}`)
	profileID := seedProfile(t, db, &sellerID, models.ScopeSeller, `{"guests":9}`)
	if errUpdate := db.Model(&models.Seller{}).Where("id = ?", sellerID).
		Update("default_profile_id", profileID).Error; errUpdate != nil {
		t.Fatalf("set default profile: %v", errUpdate)
	}

	resolver := NewResolver(db)
	cfg, errResolve := resolver.Resolve(context.Background(), sellerID, nil, nil)
	if errResolve != nil {
		t.Fatalf("resolve: %v", errResolve)
	}
	if cfg.Guests != 9 {
		t.Fatalf("expected default profile guests=9, got %d", cfg.Guests)
	}
}

func TestResolveIncompleteConfigFails(t *testing.T) {
	db := setupResolverDB(t)
	sellerID := seedSeller(t, db)
	seedProfile(t, db, nil, models.ScopeSystem, `{"guests":2}`)

	resolver := NewResolver(db)
	_, errResolve := resolver.Resolve(context.Background(), sellerID, nil, nil)
	if !errors.Is(errResolve, ErrConfigIncomplete) {
		t.Fatalf("expected ErrConfigIncomplete, got %v", errResolve)
	}
	var incomplete *IncompleteError
	if !errors.As(errResolve, &incomplete) {
		t.Fatalf("expected IncompleteError, got %T", errResolve)
	}
	if len(incomplete.Missing) != 2 {
		t.Fatalf("expected days and delivery_method missing, got %v", incomplete.Missing)
	}
}

func TestResolveWrongScopeRejected(t *testing.T) {
	db := setupResolverDB(t)
	sellerID := seedSeller(t, db)
	seedProfile(t, db, nil, models.ScopeSystem, `{"guests":2,"days":3,"delivery_method":"email"}`)
	linkID := seedProfile(t, db, nil, models.ScopeLink, `{"guests":4}`)

	resolver := NewResolver(db)
	_, errResolve := resolver.Resolve(context.Background(), sellerID, &linkID, nil)
	if !errors.Is(errResolve, ErrProfileScope) {
		t.Fatalf("expected ErrProfileScope, got %v", errResolve)
	}
}
