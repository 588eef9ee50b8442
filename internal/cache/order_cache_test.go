package cache

import (
	"testing"

	"fixtrack/backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func order(readableID int) model.Order {
	return model.Order{ID: uuid.New(), ReadableID: readableID, Status: model.StatusPending}
}

func ids(orders []model.Order) []uuid.UUID {
	out := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}

func TestSetBoardDeduplicatesKeepingFirst(t *testing.T) {
	c := NewOrderCache()
	a, b := order(1), order(2)
	dup := a
	dup.Status = model.StatusCanceled

	c.SetBoard([]model.Order{a, b, dup})

	require.Equal(t, 2, c.Len())
	got, ok := c.Get(a.ID)
	require.True(t, ok)
	assert.Equal(t, model.StatusPending, got.Status)
}

func TestSetBoardReplacesPreviousContents(t *testing.T) {
	c := NewOrderCache()
	old := order(1)
	c.SetBoard([]model.Order{old})

	fresh := order(2)
	c.SetBoard([]model.Order{fresh})

	assert.Equal(t, 1, c.Len())
	_, ok := c.Get(old.ID)
	assert.False(t, ok)
}

func TestAppendSkipsExistingIDs(t *testing.T) {
	c := NewOrderCache()
	a, b := order(1), order(2)
	c.SetBoard([]model.Order{a})

	c.Append([]model.Order{a, b})

	require.Equal(t, 2, c.Len())
	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, ids(c.List()))
}

func TestPrependPutsFreshOrdersFirst(t *testing.T) {
	c := NewOrderCache()
	a, b, fresh := order(1), order(2), order(3)
	c.SetBoard([]model.Order{a, b})

	c.Prepend([]model.Order{fresh, a})

	require.Equal(t, 3, c.Len())
	assert.Equal(t, []uuid.UUID{fresh.ID, a.ID, b.ID}, ids(c.List()))
}

func TestReplaceUpdatesInPlace(t *testing.T) {
	c := NewOrderCache()
	a, b := order(1), order(2)
	c.SetBoard([]model.Order{a, b})

	updated := a
	updated.Status = model.StatusInRepair
	c.Replace(updated)

	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, ids(c.List()), "position is preserved")
	got, _ := c.Get(a.ID)
	assert.Equal(t, model.StatusInRepair, got.Status)
}

func TestReplaceUnknownIDPrepends(t *testing.T) {
	c := NewOrderCache()
	a := order(1)
	c.SetBoard([]model.Order{a})

	stranger := order(2)
	c.Replace(stranger)

	assert.Equal(t, []uuid.UUID{stranger.ID, a.ID}, ids(c.List()))
}

func TestRemoveReindexesRemainder(t *testing.T) {
	c := NewOrderCache()
	a, b, d := order(1), order(2), order(3)
	c.SetBoard([]model.Order{a, b, d})

	c.Remove(b.ID)

	assert.Equal(t, []uuid.UUID{a.ID, d.ID}, ids(c.List()))
	got, ok := c.Get(d.ID)
	require.True(t, ok)
	assert.Equal(t, d.ID, got.ID)

	c.Remove(b.ID) // repeat is a no-op
	assert.Equal(t, 2, c.Len())
}

func TestSnapshotRestoreRevertsAnEdit(t *testing.T) {
	c := NewOrderCache()
	a := order(1)
	c.SetBoard([]model.Order{a})

	snap, existed := c.Snapshot(a.ID)
	require.True(t, existed)

	edited := a
	edited.Status = model.StatusCanceled
	c.Replace(edited)

	c.Restore(snap, existed)
	got, _ := c.Get(a.ID)
	assert.Equal(t, model.StatusPending, got.Status)
}

func TestRestoreOfMissingSnapshotRemovesOptimisticCopy(t *testing.T) {
	c := NewOrderCache()
	a := order(1)

	snap, existed := c.Snapshot(a.ID)
	require.False(t, existed)

	c.Prepend([]model.Order{a})
	require.Equal(t, 1, c.Len())

	snap.ID = a.ID
	c.Restore(snap, existed)
	assert.Equal(t, 0, c.Len())
}

func TestConnectedFlag(t *testing.T) {
	c := NewOrderCache()
	assert.True(t, c.Connected())

	c.SetConnected(false)
	assert.False(t, c.Connected())

	c.SetConnected(true)
	assert.True(t, c.Connected())
}
