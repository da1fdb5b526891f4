package notify

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// MultiGateway fans events out to several gateways. Every gateway is invoked
// even when an earlier one fails; the first error is returned.
type MultiGateway struct {
	gateways []Gateway
}

// NewMultiGateway combines gateways, skipping nil entries.
func NewMultiGateway(gateways ...Gateway) *MultiGateway {
	out := &MultiGateway{}
	for _, g := range gateways {
		if g == nil {
			continue
		}
		out.gateways = append(out.gateways, g)
	}
	return out
}

// PassIssued delivers the event to every gateway.
func (m *MultiGateway) PassIssued(ctx context.Context, evt IssuedEvent) error {
	var firstErr error
	for _, g := range m.gateways {
		if errSend := g.PassIssued(ctx, evt); errSend != nil {
			log.WithError(errSend).Warnf("notify: pass issued delivery failed (pass=%d)", evt.PassID)
			if firstErr == nil {
				firstErr = errSend
			}
		}
	}
	return firstErr
}

// ReminderDue delivers the event to every gateway.
func (m *MultiGateway) ReminderDue(ctx context.Context, evt ReminderEvent) error {
	var firstErr error
	for _, g := range m.gateways {
		if errSend := g.ReminderDue(ctx, evt); errSend != nil {
			log.WithError(errSend).Warnf("notify: reminder delivery failed (pass=%d)", evt.PassID)
			if firstErr == nil {
				firstErr = errSend
			}
		}
	}
	return firstErr
}
