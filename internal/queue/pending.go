// Package queue persists not-yet-confirmed order creations in Redis so a
// crash or lost connection between intake and the database write cannot lose
// an order. Entries are keyed by order id and removed once the store confirms
// the row.
package queue

import (
	"context"
	"encoding/json"

	"fixtrack/backend/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const pendingOrdersKey = "pending:orders"

type PendingQueue struct {
	rdb *redis.Client
}

func NewPendingQueue(rdb *redis.Client) *PendingQueue {
	return &PendingQueue{rdb: rdb}
}

// Put stores the order under its id before the database write is attempted.
func (q *PendingQueue) Put(ctx context.Context, order *model.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return q.rdb.HSet(ctx, pendingOrdersKey, order.ID.String(), data).Err()
}

// Remove deletes the entry once the store has confirmed the creation.
func (q *PendingQueue) Remove(ctx context.Context, id uuid.UUID) error {
	return q.rdb.HDel(ctx, pendingOrdersKey, id.String()).Err()
}

// List returns every queued order. Entries that no longer unmarshal are
// dropped from the queue rather than retried forever.
func (q *PendingQueue) List(ctx context.Context) ([]model.Order, error) {
	raw, err := q.rdb.HGetAll(ctx, pendingOrdersKey).Result()
	if err != nil {
		return nil, err
	}

	orders := make([]model.Order, 0, len(raw))
	for id, data := range raw {
		var order model.Order
		if err := json.Unmarshal([]byte(data), &order); err != nil {
			log.Warn().Str("order_id", id).Err(err).Msg("pending queue: dropping unreadable entry")
			_ = q.rdb.HDel(ctx, pendingOrdersKey, id).Err()
			continue
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// Len reports how many creations are still awaiting confirmation.
func (q *PendingQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.HLen(ctx, pendingOrdersKey).Result()
}
