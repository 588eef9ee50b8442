package history

import (
	"encoding/json"
	"testing"
	"time"

	"fixtrack/backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrder() *model.Order {
	return &model.Order{
		ID:          uuid.New(),
		Status:      model.StatusDiagnosis,
		IMEI:        "356938035643809",
		DeviceModel: "Galaxy S21",
		Priority:    0,
	}
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestDiffEmitsOneEntryPerChangedField(t *testing.T) {
	order := testOrder()
	actor := Actor{Name: "ana"}

	deadline := time.Date(2026, 9, 4, 18, 0, 0, 0, time.UTC)
	entries := Diff(order, FieldPatch{
		IMEI:     strPtr("990000862471854"),
		Priority: intPtr(1),
		Deadline: &deadline,
	}, actor)

	require.Len(t, entries, 3)

	categories := map[string]bool{}
	for _, entry := range entries {
		categories[entry.Category] = true
		assert.Equal(t, order.ID, entry.OrderID)
		assert.Equal(t, model.StatusDiagnosis, entry.Status)
		assert.Equal(t, "ana", entry.ActorName)
		assert.Equal(t, model.SeverityInfo, entry.Severity)
	}
	assert.True(t, categories[model.CategoryIMEIChanged])
	assert.True(t, categories[model.CategoryPriorityChanged])
	assert.True(t, categories[model.CategoryDeadlineChanged])
}

func TestDiffIgnoresUnchangedFields(t *testing.T) {
	order := testOrder()

	entries := Diff(order, FieldPatch{
		IMEI:        strPtr(order.IMEI),
		DeviceModel: strPtr(order.DeviceModel),
		Priority:    intPtr(order.Priority),
	}, Actor{Name: "ana"})

	assert.Empty(t, entries)
}

func TestDiffRecordsBeforeAndAfterInMeta(t *testing.T) {
	order := testOrder()

	entries := Diff(order, FieldPatch{DeviceModel: strPtr("Galaxy S22")}, Actor{Name: "ana"})
	require.Len(t, entries, 1)

	var meta map[string]string
	require.NoError(t, json.Unmarshal([]byte(entries[0].Meta), &meta))
	assert.Equal(t, "Galaxy S21", meta["before"])
	assert.Equal(t, "Galaxy S22", meta["after"])
}

func TestDiffKeepsPasswordOutOfTrail(t *testing.T) {
	order := testOrder()
	order.DevicePassword = "1234"

	entries := Diff(order, FieldPatch{DevicePassword: strPtr("9876")}, Actor{Name: "ana"})
	require.Len(t, entries, 1)

	assert.Equal(t, model.CategoryPasswordChanged, entries[0].Category)
	assert.Empty(t, entries[0].Meta)
	assert.NotContains(t, entries[0].Note, "1234")
	assert.NotContains(t, entries[0].Note, "9876")
}

func TestDiffStatusChangeUsesNewStatus(t *testing.T) {
	order := testOrder()

	entries := Diff(order, FieldPatch{
		Status: strPtr(model.StatusInRepair),
		IMEI:   strPtr("990000862471854"),
	}, Actor{Name: "ana"})

	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, model.StatusInRepair, entry.Status,
			"entries written alongside a transition carry the new status")
	}
}

func TestDiffReasonBecomesNoteEntry(t *testing.T) {
	order := testOrder()

	entries := Diff(order, FieldPatch{Reason: "owner asked for priority"}, Actor{Name: "ana"})
	require.Len(t, entries, 1)
	assert.Equal(t, model.CategoryNote, entries[0].Category)
	assert.Equal(t, "owner asked for priority", entries[0].Note)
}

func TestFieldPatchColumns(t *testing.T) {
	patch := FieldPatch{
		IMEI:     strPtr("990000862471854"),
		Priority: intPtr(2),
		Reason:   "note only",
	}

	cols := patch.Columns()
	assert.Equal(t, "990000862471854", cols["imei"])
	assert.Equal(t, 2, cols["priority"])
	assert.NotContains(t, cols, "reason", "the reason is trail-only, never a column")
	assert.Len(t, cols, 2)
}

func TestFieldPatchIsEmpty(t *testing.T) {
	assert.True(t, FieldPatch{}.IsEmpty())
	assert.False(t, FieldPatch{Reason: "x"}.IsEmpty())
	assert.False(t, FieldPatch{Priority: intPtr(0)}.IsEmpty())
}
