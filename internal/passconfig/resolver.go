package passconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/passdeck/passdeck/internal/models"
	"gorm.io/gorm"
)

// Resolution errors.
var (
	// ErrConfigIncomplete indicates no layer supplied a mandatory field.
	ErrConfigIncomplete = errors.New("passconfig: incomplete configuration")
	// ErrProfileNotFound indicates a referenced profile row does not exist.
	ErrProfileNotFound = errors.New("passconfig: profile not found")
	// ErrProfileScope indicates a referenced profile has the wrong scope or owner.
	ErrProfileScope = errors.New("passconfig: profile scope mismatch")
)

// IncompleteError lists the mandatory fields no layer supplied.
type IncompleteError struct {
	Missing []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("passconfig: incomplete configuration, missing %s", strings.Join(e.Missing, ", "))
}

func (e *IncompleteError) Unwrap() error {
	return ErrConfigIncomplete
}

// Layer is one pass configuration document. Pointer fields carry explicit
// present/absent semantics: a nil field falls through to the next lower layer,
// a non-nil field wins even when it holds the zero value. An explicit false
// therefore overrides a lower-layer true.
type Layer struct {
	Guests             *int     `json:"guests,omitempty"`               // Guest entitlement.
	Days               *int     `json:"days,omitempty"`                 // Validity in days.
	DeliveryMethod     *string  `json:"delivery_method,omitempty"`      // Delivery channel.
	PricingMode        *string  `json:"pricing_mode,omitempty"`         // free or fixed.
	Price              *float64 `json:"price,omitempty"`                // Charged amount for fixed pricing.
	SendWelcomeEmail   *bool    `json:"send_welcome_email,omitempty"`   // Welcome mail feature flag.
	WelcomeTemplateID  *uint64  `json:"welcome_template_id,omitempty"`  // Welcome template variant.
	ReminderTemplateID *uint64  `json:"reminder_template_id,omitempty"` // Reminder template variant.
	LandingTemplate    *string  `json:"landing_template,omitempty"`     // Landing page identifier.
}

// EffectiveConfig is the flattened result of layered resolution.
type EffectiveConfig struct {
	Guests             int      `json:"guests"`
	Days               int      `json:"days"`
	DeliveryMethod     string   `json:"delivery_method"`
	PricingMode        string   `json:"pricing_mode"`
	Price              float64  `json:"price"`
	SendWelcomeEmail   bool     `json:"send_welcome_email"`
	WelcomeTemplateID  *uint64  `json:"welcome_template_id,omitempty"`
	ReminderTemplateID *uint64  `json:"reminder_template_id,omitempty"`
	LandingTemplate    string   `json:"landing_template,omitempty"`
}

// Resolver merges layered configuration profiles into effective configs.
type Resolver struct {
	db *gorm.DB // Profile lookups.
}

// NewResolver wires a resolver with its database dependency.
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// Resolve flattens system -> seller -> link layers for a pass request.
// sellerProfileID and linkProfileID are optional; when the seller profile is
// absent the seller's default profile is used if one is configured.
func (r *Resolver) Resolve(ctx context.Context, sellerID uint64, sellerProfileID, linkProfileID *uint64) (*EffectiveConfig, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("passconfig: resolver not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	merged := Layer{}

	system, errSystem := r.systemLayer(ctx)
	if errSystem != nil {
		return nil, errSystem
	}
	if system != nil {
		merge(&merged, *system)
	}

	profileID := sellerProfileID
	if profileID == nil {
		var seller models.Seller
		errSeller := r.db.WithContext(ctx).Select("id", "default_profile_id").First(&seller, sellerID).Error
		if errSeller != nil && !errors.Is(errSeller, gorm.ErrRecordNotFound) {
			return nil, errSeller
		}
		if errSeller == nil {
			profileID = seller.DefaultProfileID
		}
	}
	if profileID != nil {
		layer, errLayer := r.fetchLayer(ctx, *profileID, models.ScopeSeller, &sellerID)
		if errLayer != nil {
			return nil, errLayer
		}
		merge(&merged, layer)
	}

	if linkProfileID != nil {
		layer, errLayer := r.fetchLayer(ctx, *linkProfileID, models.ScopeLink, nil)
		if errLayer != nil {
			return nil, errLayer
		}
		merge(&merged, layer)
	}

	return flatten(merged)
}

// systemLayer fetches the newest system-scope profile, which acts as the
// versioned global default. A missing row is not an error; mandatory-field
// validation happens after the merge.
func (r *Resolver) systemLayer(ctx context.Context) (*Layer, error) {
	var row models.ConfigProfile
	errFind := r.db.WithContext(ctx).
		Where("scope = ?", models.ScopeSystem).
		Order("id DESC").
		First(&row).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if errFind != nil {
		return nil, errFind
	}
	layer, errParse := ParseLayer(row.Document)
	if errParse != nil {
		return nil, errParse
	}
	return &layer, nil
}

// fetchLayer loads a profile by id and validates scope and ownership.
func (r *Resolver) fetchLayer(ctx context.Context, id uint64, scope string, sellerID *uint64) (Layer, error) {
	var row models.ConfigProfile
	errFind := r.db.WithContext(ctx).First(&row, id).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return Layer{}, fmt.Errorf("%w: id=%d", ErrProfileNotFound, id)
	}
	if errFind != nil {
		return Layer{}, errFind
	}
	if row.Scope != scope {
		return Layer{}, fmt.Errorf("%w: id=%d scope=%s", ErrProfileScope, id, row.Scope)
	}
	if sellerID != nil && (row.SellerID == nil || *row.SellerID != *sellerID) {
		return Layer{}, fmt.Errorf("%w: id=%d not owned by seller %d", ErrProfileScope, id, *sellerID)
	}
	return ParseLayer(row.Document)
}

// ParseLayer decodes a profile document into a layer.
func ParseLayer(doc []byte) (Layer, error) {
	var layer Layer
	if len(doc) == 0 {
		return layer, nil
	}
	if errUnmarshal := json.Unmarshal(doc, &layer); errUnmarshal != nil {
		return Layer{}, fmt.Errorf("passconfig: parse layer: %w", errUnmarshal)
	}
	return layer, nil
}

// merge overlays src on dst; only fields src has set win.
func merge(dst *Layer, src Layer) {
	if src.Guests != nil {
		dst.Guests = src.Guests
	}
	if src.Days != nil {
		dst.Days = src.Days
	}
	if src.DeliveryMethod != nil {
		dst.DeliveryMethod = src.DeliveryMethod
	}
	if src.PricingMode != nil {
		dst.PricingMode = src.PricingMode
	}
	if src.Price != nil {
		dst.Price = src.Price
	}
	if src.SendWelcomeEmail != nil {
		dst.SendWelcomeEmail = src.SendWelcomeEmail
	}
	if src.WelcomeTemplateID != nil {
		dst.WelcomeTemplateID = src.WelcomeTemplateID
	}
	if src.ReminderTemplateID != nil {
		dst.ReminderTemplateID = src.ReminderTemplateID
	}
	if src.LandingTemplate != nil {
		dst.LandingTemplate = src.LandingTemplate
	}
}

// flatten validates mandatory fields and produces the effective config.
// Mandatory fields are never defaulted; a gap is a hard resolution failure.
func flatten(layer Layer) (*EffectiveConfig, error) {
	var missing []string
	if layer.Guests == nil {
		missing = append(missing, "guests")
	}
	if layer.Days == nil {
		missing = append(missing, "days")
	}
	if layer.DeliveryMethod == nil || strings.TrimSpace(*layer.DeliveryMethod) == "" {
		missing = append(missing, "delivery_method")
	}
	if len(missing) > 0 {
		return nil, &IncompleteError{Missing: missing}
	}

	cfg := &EffectiveConfig{
		Guests:         *layer.Guests,
		Days:           *layer.Days,
		DeliveryMethod: strings.TrimSpace(*layer.DeliveryMethod),
		PricingMode:    "free",
	}
	if layer.PricingMode != nil {
		cfg.PricingMode = *layer.PricingMode
	}
	if layer.Price != nil {
		cfg.Price = *layer.Price
	}
	if layer.SendWelcomeEmail != nil {
		cfg.SendWelcomeEmail = *layer.SendWelcomeEmail
	}
	cfg.WelcomeTemplateID = layer.WelcomeTemplateID
	cfg.ReminderTemplateID = layer.ReminderTemplateID
	if layer.LandingTemplate != nil {
		cfg.LandingTemplate = *layer.LandingTemplate
	}
	return cfg, nil
}
