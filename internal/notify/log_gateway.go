package notify

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// LogGateway records events in the process log. It backs development setups
// and acts as the always-on tail of a fan-out.
type LogGateway struct{}

// NewLogGateway returns a log-backed gateway.
func NewLogGateway() *LogGateway {
	return &LogGateway{}
}

// PassIssued logs an issuance event.
func (g *LogGateway) PassIssued(_ context.Context, evt IssuedEvent) error {
	log.WithFields(log.Fields{
		"pass_id":   evt.PassID,
		"code":      evt.Code,
		"seller_id": evt.SellerID,
		"expires":   evt.ExpiresAt,
	}).Info("pass issued")
	return nil
}

// ReminderDue logs a reminder event.
func (g *LogGateway) ReminderDue(_ context.Context, evt ReminderEvent) error {
	log.WithFields(log.Fields{
		"pass_id":     evt.PassID,
		"code":        evt.Code,
		"template_id": evt.TemplateID,
		"time_left":   evt.TimeLeft,
	}).Info("reminder due")
	return nil
}
