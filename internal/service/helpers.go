package service

import (
	"context"

	"fixtrack/backend/internal/cache"
	"fixtrack/backend/internal/model"
	"fixtrack/backend/internal/notification"
	"fixtrack/backend/internal/realtime"

	"github.com/rs/zerolog/log"
)

// simpleTransitions is the legal graph for the narrow status-update path.
// Transitions that carry side effects (REPAIRED, WAITING_APPROVAL, EXTERNAL,
// RETURNED, reopen) only happen through their workflow or delivery
// operations and are deliberately absent here.
var simpleTransitions = map[string][]string{
	model.StatusPending:   {model.StatusDiagnosis, model.StatusOnHold, model.StatusCanceled},
	model.StatusDiagnosis: {model.StatusInRepair, model.StatusOnHold, model.StatusCanceled},
	model.StatusInRepair:  {model.StatusDiagnosis, model.StatusOnHold, model.StatusCanceled},
	model.StatusOnHold:    {model.StatusPending, model.StatusDiagnosis, model.StatusInRepair, model.StatusCanceled},

	model.StatusWaitingApproval: {model.StatusCanceled},
	model.StatusRepaired:        {model.StatusCanceled},
}

func legalSimpleTransition(from, to string) bool {
	for _, allowed := range simpleTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// broadcaster bundles the side effects every committed order mutation shares:
// updating the in-memory collection, pushing the realtime event, and firing
// the best-effort customer notification. All of it happens after the write is
// durable; none of it can fail the operation.
type broadcaster struct {
	cache    *cache.OrderCache
	hub      *realtime.Hub
	notifier notification.Notifier
}

func (b *broadcaster) publishCreated(order *model.Order) {
	b.cache.Replace(*order)
	if b.hub != nil {
		b.hub.BroadcastOrder(realtime.EventOrderCreated, order)
	}
}

func (b *broadcaster) publishUpdated(order *model.Order) {
	b.cache.Replace(*order)
	if b.hub != nil {
		b.hub.BroadcastOrder(realtime.EventOrderUpdated, order)
	}
}

func (b *broadcaster) publishDeleted(order *model.Order) {
	b.cache.Remove(order.ID)
	if b.hub != nil {
		b.hub.BroadcastOrder(realtime.EventOrderDeleted, order)
	}
}

// notifyStatus dispatches the customer-facing status message. Store-owned
// stock orders have no customer to notify.
func (b *broadcaster) notifyStatus(order *model.Order, status string) {
	if b.notifier == nil || order.Type == model.OrderTypeStock {
		return
	}
	o := *order
	go func() {
		if err := b.notifier.NotifyStatus(context.Background(), &o, status); err != nil {
			log.Warn().Err(err).Str("order_id", o.ID.String()).Msg("status notification failed")
		}
	}()
}
