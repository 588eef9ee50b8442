// Package history derives append-only audit entries from order mutations.
// The builder is pure: it compares the currently stored order against a
// tagged patch and emits one categorized entry per detected change, leaving
// persistence to the caller's transaction.
package history

import (
	"encoding/json"
	"fmt"
	"time"

	"fixtrack/backend/internal/model"

	"github.com/google/uuid"
)

// Actor identifies who performed a mutation. A nil ID marks a system entry.
type Actor struct {
	ID   *uuid.UUID
	Name string
}

// FieldPatch is the tagged command for the general-purpose field update path.
// Nil pointers mean "leave unchanged"; the patch never carries fields the
// caller did not explicitly set, so concurrent edits to other columns are
// preserved.
type FieldPatch struct {
	IMEI           *string
	DeviceModel    *string
	DevicePassword *string
	Accessories    *string
	Priority       *int
	Deadline       *time.Time
	Status         *string

	// Reason is the optional free-text audit note accompanying the update.
	Reason string
}

// IsEmpty reports whether the patch changes nothing and carries no reason.
func (p FieldPatch) IsEmpty() bool {
	return p.IMEI == nil && p.DeviceModel == nil && p.DevicePassword == nil &&
		p.Accessories == nil && p.Priority == nil && p.Deadline == nil &&
		p.Status == nil && p.Reason == ""
}

// Columns converts the patch into a targeted column map for a partial update.
func (p FieldPatch) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if p.IMEI != nil {
		cols["imei"] = *p.IMEI
	}
	if p.DeviceModel != nil {
		cols["device_model"] = *p.DeviceModel
	}
	if p.DevicePassword != nil {
		cols["device_password"] = *p.DevicePassword
	}
	if p.Accessories != nil {
		cols["accessories"] = *p.Accessories
	}
	if p.Priority != nil {
		cols["priority"] = *p.Priority
	}
	if p.Deadline != nil {
		cols["deadline"] = *p.Deadline
	}
	if p.Status != nil {
		cols["status"] = *p.Status
	}
	return cols
}

// Diff compares the stored order against the patch and returns one history
// entry per changed tracked field, plus one NOTE entry when an explicit
// reason accompanies the update. Unchanged fields produce nothing.
func Diff(current *model.Order, patch FieldPatch, actor Actor) []model.HistoryLog {
	status := current.Status
	if patch.Status != nil {
		status = *patch.Status
	}

	var entries []model.HistoryLog

	add := func(category, before, after string) {
		entries = append(entries, NewEntry(current.ID, status, category,
			fmt.Sprintf("%s: %q -> %q", label(category), before, after),
			actor, map[string]interface{}{"before": before, "after": after}))
	}

	if patch.IMEI != nil && *patch.IMEI != current.IMEI {
		add(model.CategoryIMEIChanged, current.IMEI, *patch.IMEI)
	}
	if patch.DeviceModel != nil && *patch.DeviceModel != current.DeviceModel {
		add(model.CategoryModelChanged, current.DeviceModel, *patch.DeviceModel)
	}
	if patch.DevicePassword != nil && *patch.DevicePassword != current.DevicePassword {
		// The password values themselves stay out of the trail.
		entries = append(entries, NewEntry(current.ID, status, model.CategoryPasswordChanged,
			"device password updated", actor, nil))
	}
	if patch.Accessories != nil && *patch.Accessories != current.Accessories {
		add(model.CategoryAccessoriesChanged, current.Accessories, *patch.Accessories)
	}
	if patch.Priority != nil && *patch.Priority != current.Priority {
		add(model.CategoryPriorityChanged,
			fmt.Sprintf("%d", current.Priority), fmt.Sprintf("%d", *patch.Priority))
	}
	if patch.Deadline != nil && !sameTime(current.Deadline, patch.Deadline) {
		add(model.CategoryDeadlineChanged, formatTime(current.Deadline), formatTime(patch.Deadline))
	}
	if patch.Status != nil && *patch.Status != current.Status {
		add(model.CategoryStatusChanged, current.Status, *patch.Status)
	}
	if patch.Reason != "" {
		entries = append(entries, NewEntry(current.ID, status, model.CategoryNote,
			patch.Reason, actor, nil))
	}

	return entries
}

// NewEntry builds a single history entry. meta is serialized to JSON; a nil
// meta leaves the column empty.
func NewEntry(orderID uuid.UUID, status, category, note string, actor Actor, meta map[string]interface{}) model.HistoryLog {
	entry := model.HistoryLog{
		OrderID:   orderID,
		Status:    status,
		Category:  category,
		Note:      note,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Severity:  model.SeverityInfo,
	}
	if meta != nil {
		if raw, err := json.Marshal(meta); err == nil {
			entry.Meta = string(raw)
		}
	}
	return entry
}

func label(category string) string {
	switch category {
	case model.CategoryIMEIChanged:
		return "IMEI changed"
	case model.CategoryModelChanged:
		return "device model changed"
	case model.CategoryAccessoriesChanged:
		return "accessories changed"
	case model.CategoryPriorityChanged:
		return "priority changed"
	case model.CategoryDeadlineChanged:
		return "deadline changed"
	case model.CategoryStatusChanged:
		return "status changed"
	default:
		return "changed"
	}
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
