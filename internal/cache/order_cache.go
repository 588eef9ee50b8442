// Package cache holds the in-memory order collection that backs reads when
// the store is unreachable and gives mutations a snapshot to roll back to.
// The store remains authoritative: realtime events replayed through Merge*
// are expected to confirm or overwrite whatever was applied optimistically.
package cache

import (
	"sync"

	"fixtrack/backend/internal/model"

	"github.com/google/uuid"
)

type OrderCache struct {
	mu        sync.RWMutex
	orders    []model.Order
	index     map[uuid.UUID]int
	connected bool
}

func NewOrderCache() *OrderCache {
	return &OrderCache{
		index:     make(map[uuid.UUID]int),
		connected: true,
	}
}

// SetBoard replaces the collection with a freshly fetched board. Orders are
// deduplicated by id, keeping the first occurrence.
func (c *OrderCache) SetBoard(orders []model.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.orders = c.orders[:0]
	c.index = make(map[uuid.UUID]int, len(orders))
	for _, o := range orders {
		if _, ok := c.index[o.ID]; ok {
			continue
		}
		c.index[o.ID] = len(c.orders)
		c.orders = append(c.orders, o)
	}
}

// Append adds orders to the end of the collection (closed-history pages),
// skipping ids already present.
func (c *OrderCache) Append(orders []model.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, o := range orders {
		if _, ok := c.index[o.ID]; ok {
			continue
		}
		c.index[o.ID] = len(c.orders)
		c.orders = append(c.orders, o)
	}
}

// Prepend inserts orders at the front, most relevant first, skipping ids
// already present. Used for search results and realtime inserts.
func (c *OrderCache) Prepend(orders []model.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var fresh []model.Order
	for _, o := range orders {
		if _, ok := c.index[o.ID]; ok {
			continue
		}
		fresh = append(fresh, o)
	}
	if len(fresh) == 0 {
		return
	}

	c.orders = append(fresh, c.orders...)
	c.reindex()
}

// Replace swaps the cached copy for the given id. Unknown ids are prepended:
// a realtime update can arrive for an order another client created.
func (c *OrderCache) Replace(order model.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i, ok := c.index[order.ID]; ok {
		c.orders[i] = order
		return
	}
	c.orders = append([]model.Order{order}, c.orders...)
	c.reindex()
}

// Remove drops the order with the given id, if present.
func (c *OrderCache) Remove(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[id]
	if !ok {
		return
	}
	c.orders = append(c.orders[:i], c.orders[i+1:]...)
	c.reindex()
}

// Get returns a copy of the cached order, if present.
func (c *OrderCache) Get(id uuid.UUID) (model.Order, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[id]
	if !ok {
		return model.Order{}, false
	}
	return c.orders[i], true
}

// List returns a copy of the whole collection in display order.
func (c *OrderCache) List() []model.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Order, len(c.orders))
	copy(out, c.orders)
	return out
}

func (c *OrderCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.orders)
}

// Snapshot captures the cached state of one order for rollback. The second
// return value is false when the order is not cached; Restore then simply
// removes the optimistic copy.
func (c *OrderCache) Snapshot(id uuid.UUID) (model.Order, bool) {
	return c.Get(id)
}

// Restore puts a snapshot back after a failed write.
func (c *OrderCache) Restore(snapshot model.Order, existed bool) {
	if !existed {
		c.Remove(snapshot.ID)
		return
	}
	c.Replace(snapshot)
}

// SetConnected flips the store-reachability flag.
func (c *OrderCache) SetConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = connected
}

// Connected reports whether the last store round-trip succeeded.
func (c *OrderCache) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// reindex rebuilds the id index; callers hold the write lock.
func (c *OrderCache) reindex() {
	c.index = make(map[uuid.UUID]int, len(c.orders))
	for i, o := range c.orders {
		c.index[o.ID] = i
	}
}
