package service

import (
	"context"
	"testing"
	"time"

	"fixtrack/backend/internal/history"
	"fixtrack/backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAssignsSequentialReadableIDs(t *testing.T) {
	e := newEnv(t)
	svc := e.orderService()
	_, reception := e.seedUser(t, model.RoleReceptionist)

	first, err := svc.Create(context.Background(), reception, CreateOrderRequest{
		DeviceModel:  "iPhone 13",
		CustomerName: "Ana Gomez",
	})
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), reception, CreateOrderRequest{
		DeviceModel: "Pixel 8",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, first.ReadableID)
	assert.Equal(t, 2, second.ReadableID)
	assert.False(t, first.Unsynced)
	assert.Equal(t, model.StatusPending, first.Status)

	require.NotNil(t, first.Customer)
	assert.Equal(t, "Ana Gomez", first.Customer.Name)

	cats := e.historyCategories(t, first.ID)
	require.Len(t, cats, 1)
	assert.Equal(t, model.CategoryCreated, cats[0])
}

func TestBoardSplitsActiveAndClosed(t *testing.T) {
	e := newEnv(t)
	svc := e.orderService()

	active := e.seedOrder(t, 1, withStatus(model.StatusInRepair))
	closed := e.seedOrder(t, 2, withStatus(model.StatusReturned))
	canceled := e.seedOrder(t, 3, withStatus(model.StatusCanceled))

	board, err := svc.Board(context.Background())
	require.NoError(t, err)
	assert.True(t, board.Connected)
	assert.False(t, board.HasMore)
	require.Len(t, board.Orders, 3)

	ids := map[string]bool{}
	for _, o := range board.Orders {
		ids[o.ID.String()] = true
	}
	assert.True(t, ids[active.ID.String()])
	assert.True(t, ids[closed.ID.String()])
	assert.True(t, ids[canceled.ID.String()])
}

func TestSearchByReadableIDAndCustomerName(t *testing.T) {
	e := newEnv(t)
	svc := e.orderService()

	customer := &model.Customer{Name: "Maria Lopez", Phone: "555-0101"}
	require.NoError(t, e.customerRepo.Create(context.Background(), customer))

	match := e.seedOrder(t, 105)
	require.NoError(t, e.db.Model(&model.Order{}).Where("id = ?", match.ID).
		Update("customer_id", customer.ID).Error)
	e.seedOrder(t, 7)

	byNumber, err := svc.Search(context.Background(), "105")
	require.NoError(t, err)
	require.NotEmpty(t, byNumber)
	found := false
	for _, o := range byNumber {
		if o.ID == match.ID {
			found = true
		}
	}
	assert.True(t, found)

	byName, err := svc.Search(context.Background(), "lope")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, match.ID, byName[0].ID)
}

func TestSearchRejectsShortTerms(t *testing.T) {
	e := newEnv(t)
	svc := e.orderService()

	_, err := svc.Search(context.Background(), "ab")
	assert.ErrorIs(t, err, ErrSearchTooShort)
}

func TestUpdateFieldsWritesOneEntryPerChange(t *testing.T) {
	e := newEnv(t)
	svc := e.orderService()
	_, reception := e.seedUser(t, model.RoleReceptionist)
	order := e.seedOrder(t, 10)

	newIMEI := "990000862471854"
	newPriority := 2
	deadline := time.Now().Add(48 * time.Hour).Truncate(time.Second)

	updated, err := svc.UpdateFields(context.Background(), reception, order.ID, history.FieldPatch{
		IMEI:     &newIMEI,
		Priority: &newPriority,
		Deadline: &deadline,
		Reason:   "customer called with the correct IMEI",
	})
	require.NoError(t, err)

	assert.Equal(t, newIMEI, updated.IMEI)
	assert.Equal(t, newPriority, updated.Priority)

	cats := e.historyCategories(t, order.ID)
	assert.Contains(t, cats, model.CategoryIMEIChanged)
	assert.Contains(t, cats, model.CategoryPriorityChanged)
	assert.Contains(t, cats, model.CategoryDeadlineChanged)
	assert.Contains(t, cats, model.CategoryNote)
	assert.Len(t, cats, 4)
}

func TestUpdateFieldsSkipsUnchangedValues(t *testing.T) {
	e := newEnv(t)
	svc := e.orderService()
	_, reception := e.seedUser(t, model.RoleReceptionist)
	order := e.seedOrder(t, 11)

	sameIMEI := order.IMEI
	_, err := svc.UpdateFields(context.Background(), reception, order.ID, history.FieldPatch{
		IMEI: &sameIMEI,
	})
	require.NoError(t, err)

	// Setting a field to its current value is not a change.
	logs, err := e.historyRepo.ListByOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestUpdateStatusEnforcesTransitionGraph(t *testing.T) {
	e := newEnv(t)
	svc := e.orderService()
	_, admin := e.seedUser(t, model.RoleAdmin)
	order := e.seedOrder(t, 12)

	_, err := svc.UpdateStatus(context.Background(), admin, order.ID, model.StatusRepaired, "")
	assert.ErrorIs(t, err, ErrIllegalTransition, "PENDING cannot jump straight to REPAIRED")

	updated, err := svc.UpdateStatus(context.Background(), admin, order.ID, model.StatusDiagnosis, "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusDiagnosis, updated.Status)

	_, err = svc.UpdateStatus(context.Background(), admin, order.ID, model.StatusReturned, "")
	assert.ErrorIs(t, err, ErrIllegalTransition, "delivery owns the RETURNED transition")
}

func TestUpdateStatusRejectsUnassignedTechnician(t *testing.T) {
	e := newEnv(t)
	svc := e.orderService()
	_, tech := e.seedUser(t, model.RoleTechnician)
	order := e.seedOrder(t, 13)

	_, err := svc.UpdateStatus(context.Background(), tech, order.ID, model.StatusDiagnosis, "")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRecordLogAppendsWithoutTouchingFields(t *testing.T) {
	e := newEnv(t)
	svc := e.orderService()
	_, tech := e.seedUser(t, model.RoleTechnician)
	order := e.seedOrder(t, 14, withStatus(model.StatusInRepair))

	err := svc.RecordLog(context.Background(), tech, order.ID, "", "waiting on part delivery", nil)
	require.NoError(t, err)

	logs, err := e.historyRepo.ListByOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.CategoryNote, logs[0].Category)
	assert.Equal(t, model.StatusInRepair, logs[0].Status)

	reloaded, err := e.orderRepo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInRepair, reloaded.Status)
}

func TestDeleteRequiresAdmin(t *testing.T) {
	e := newEnv(t)
	svc := e.orderService()
	_, tech := e.seedUser(t, model.RoleTechnician)
	_, admin := e.seedUser(t, model.RoleAdmin)
	order := e.seedOrder(t, 15)

	err := svc.Delete(context.Background(), tech, order.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, svc.Delete(context.Background(), admin, order.ID))
	_, err = e.orderRepo.FindByID(context.Background(), order.ID)
	assert.Error(t, err)
}

func TestHistoryTimestampsAreMonotonic(t *testing.T) {
	e := newEnv(t)
	svc := e.orderService()
	_, admin := e.seedUser(t, model.RoleAdmin)
	order := e.seedOrder(t, 16)

	_, err := svc.UpdateStatus(context.Background(), admin, order.ID, model.StatusDiagnosis, "")
	require.NoError(t, err)
	err = svc.RecordLog(context.Background(), admin, order.ID, "", "left voicemail", nil)
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), admin, order.ID, model.StatusInRepair, "")
	require.NoError(t, err)

	logs, err := e.historyRepo.ListByOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	for i := 1; i < len(logs); i++ {
		assert.False(t, logs[i].CreatedAt.Before(logs[i-1].CreatedAt),
			"entries must come back in append order")
	}
}
