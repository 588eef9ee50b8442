// Package notification formats and dispatches customer-facing status
// messages. Delivery is best-effort: a failure is logged and never propagates
// into the mutation that triggered it.
package notification

import (
	"context"
	"fmt"

	"fixtrack/backend/internal/model"

	"github.com/rs/zerolog/log"
)

type Notifier interface {
	NotifyStatus(ctx context.Context, order *model.Order, status string) error
}

// Message renders the customer-facing text for a status change. Kept separate
// from dispatch so alternative channels reuse the same wording.
func Message(order *model.Order, status string) string {
	name := ""
	if order.Customer != nil {
		name = order.Customer.Name
	}
	switch status {
	case model.StatusRepaired:
		return fmt.Sprintf("Hi %s, your %s (order #%d) is repaired and ready for pickup.", name, order.DeviceModel, order.ReadableID)
	case model.StatusReturned:
		return fmt.Sprintf("Hi %s, order #%d has been delivered. Thank you!", name, order.ReadableID)
	case model.StatusExternal:
		return fmt.Sprintf("Hi %s, your %s (order #%d) was sent to a specialist workshop. We'll keep you posted.", name, order.DeviceModel, order.ReadableID)
	default:
		return fmt.Sprintf("Hi %s, order #%d is now %s.", name, order.ReadableID, status)
	}
}

// LogNotifier is the default channel: it writes the message to the service
// log. Real SMS/WhatsApp dispatch plugs in behind the same interface.
type LogNotifier struct{}

func (LogNotifier) NotifyStatus(ctx context.Context, order *model.Order, status string) error {
	log.Info().
		Int("readable_id", order.ReadableID).
		Str("status", status).
		Str("message", Message(order, status)).
		Msg("customer notification")
	return nil
}
