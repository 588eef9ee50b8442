package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// History categories. Each mutation that changes a tracked field, and each
// workflow action, writes exactly one entry per change.
const (
	CategoryCreated            = "CREATED"
	CategoryStatusChanged      = "STATUS_CHANGED"
	CategoryIMEIChanged        = "IMEI_CHANGED"
	CategoryModelChanged       = "MODEL_CHANGED"
	CategoryPasswordChanged    = "PASSWORD_CHANGED"
	CategoryAccessoriesChanged = "ACCESSORIES_CHANGED"
	CategoryPriorityChanged    = "PRIORITY_CHANGED"
	CategoryDeadlineChanged    = "DEADLINE_CHANGED"
	CategoryExpenseAdded       = "EXPENSE_ADDED"
	CategoryExpenseRemoved     = "EXPENSE_REMOVED"
	CategoryNote               = "NOTE"
	CategoryAssigned           = "ASSIGNED"
	CategoryAssignRequested    = "ASSIGN_REQUESTED"
	CategoryAssignRejected     = "ASSIGN_REJECTED"
	CategoryTransfer           = "TRANSFER"
	CategoryPayment            = "PAYMENT"
	CategoryDelivered          = "DELIVERED"
	CategoryPointsRequested    = "POINTS_REQUESTED"
	CategoryPointsDecided      = "POINTS_DECIDED"
	CategoryProposal           = "PROPOSAL"
	CategoryProposalDecided    = "PROPOSAL_DECIDED"
	CategoryApprovalAck        = "APPROVAL_ACK"
	CategoryReturnRequested    = "RETURN_REQUESTED"
	CategoryReturnDecided      = "RETURN_DECIDED"
	CategoryExternalRepair     = "EXTERNAL_REPAIR"
	CategoryReopened           = "REOPENED"
)

// History severities
const (
	SeverityInfo    = "INFO"
	SeverityWarning = "WARNING"
)

// HistoryLog is one entry in an order's append-only audit trail. Entries are
// never updated or deleted, and are only written inside the same transaction
// as the change they describe.
type HistoryLog struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	Status    string    `gorm:"type:varchar(30)" json:"status"` // order status after the action
	Note      string    `gorm:"type:text" json:"note"`
	ActorID   *uuid.UUID `gorm:"type:uuid;index" json:"actor_id"` // nil for system entries
	Actor     *User      `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	ActorName string     `gorm:"type:varchar(255)" json:"actor_name"`
	Severity  string     `gorm:"type:varchar(10);not null;default:'INFO'" json:"severity"`
	Category  string     `gorm:"type:varchar(40);not null;index" json:"category"`
	Meta      string     `gorm:"type:jsonb" json:"meta,omitempty"` // structured before/after payload
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}

func (h *HistoryLog) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
