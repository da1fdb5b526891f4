package notify

import (
	"context"
	"time"
)

// IssuedEvent describes a pass that just became active.
type IssuedEvent struct {
	PassID            uint64    `json:"pass_id"`
	Code              string    `json:"code"`
	SellerID          uint64    `json:"seller_id"`
	Guests            int       `json:"guests"`
	Days              int       `json:"days"`
	DeliveryMethod    string    `json:"delivery_method"`
	SendWelcomeEmail  bool      `json:"send_welcome_email"`
	WelcomeTemplateID *uint64   `json:"welcome_template_id,omitempty"`
	ExpiresAt         time.Time `json:"expires_at"`
}

// ReminderEvent describes a reminder that is due for delivery.
type ReminderEvent struct {
	PassID     uint64        `json:"pass_id"`
	Code       string        `json:"code"`
	SellerID   uint64        `json:"seller_id"`
	TemplateID uint64        `json:"template_id"`
	Guests     int           `json:"guests"`
	Days       int           `json:"days"`
	ExpiresAt  time.Time     `json:"expires_at"`
	TimeLeft   time.Duration `json:"time_left"`
}

// Gateway delivers engine events to collaborators. The engine decides when to
// emit and with which template; delivery itself happens elsewhere. Gateways are
// invoked only after the relevant state transition is durably committed, so a
// failing gateway can lose a send but never cause a duplicate.
type Gateway interface {
	PassIssued(ctx context.Context, evt IssuedEvent) error
	ReminderDue(ctx context.Context, evt ReminderEvent) error
}
