package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderType enum constants
const (
	OrderTypeClient   = "CLIENT"   // customer-owned device repair
	OrderTypeStock    = "STOCK"    // store-owned device bought for resale
	OrderTypeWarranty = "WARRANTY" // reentry of a previously delivered repair
)

// OrderStatus enum constants. Transitions between them are owned by the
// workflow service; writing status directly bypasses business rules.
const (
	StatusPending         = "PENDING"
	StatusDiagnosis       = "DIAGNOSIS"
	StatusWaitingApproval = "WAITING_APPROVAL"
	StatusInRepair        = "IN_REPAIR"
	StatusRepaired        = "REPAIRED"
	StatusReturned        = "RETURNED" // delivered to the customer, terminal
	StatusOnHold          = "ON_HOLD"
	StatusExternal        = "EXTERNAL" // sent to an outside workshop
	StatusCanceled        = "CANCELED" // terminal
)

// TransferStatus enum constants for branch-to-branch moves
const (
	TransferNone      = "NONE"
	TransferPending   = "PENDING"
	TransferCompleted = "COMPLETED"
)

// ProposalType enum constants for the WAITING_APPROVAL workflow
const (
	ProposalEstimate      = "ESTIMATE"      // monetary budget proposal
	ProposalAuthorization = "AUTHORIZATION" // non-monetary go-ahead request
)

// DefaultBranch is the main shop location new orders start at.
const DefaultBranch = "MAIN"

// Order is the central entity: one repair/stock/warranty job tracked from
// intake to delivery.
type Order struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ReadableID int       `gorm:"uniqueIndex;not null" json:"readable_id"` // dense sequential number for human lookup
	Type       string    `gorm:"type:varchar(20);not null;default:'CLIENT';index" json:"type"`
	Status     string    `gorm:"type:varchar(30);not null;default:'PENDING';index" json:"status"`
	Priority   int       `gorm:"not null;default:0" json:"priority"`

	CustomerID *uuid.UUID `gorm:"type:uuid;index" json:"customer_id"`
	Customer   *Customer  `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`

	// Device descriptor
	DeviceModel    string `gorm:"type:varchar(255)" json:"device_model"`
	Issue          string `gorm:"type:text" json:"issue"`
	Condition      string `gorm:"type:text" json:"condition"`
	IMEI           string `gorm:"type:varchar(50);index" json:"imei"`
	DevicePassword string `gorm:"type:varchar(100)" json:"device_password"`
	Accessories    string `gorm:"type:text" json:"accessories"`
	PhotoURL       string `gorm:"type:text" json:"photo_url"`

	Deadline    *time.Time `json:"deadline"`
	CompletedAt *time.Time `json:"completed_at"`

	// Assignment. At most one of AssignedTo / PendingAssignmentTo drives who
	// can act; acceptance clears the pending field and sets AssignedTo.
	AssignedTo          *uuid.UUID `gorm:"type:uuid;index" json:"assigned_to"`
	Technician          *User      `gorm:"foreignKey:AssignedTo" json:"technician,omitempty"`
	PendingAssignmentTo *uuid.UUID `gorm:"type:uuid" json:"pending_assignment_to"`

	CurrentBranch  string `gorm:"type:varchar(50);not null;default:'MAIN'" json:"current_branch"`
	TransferStatus string `gorm:"type:varchar(20);not null;default:'NONE'" json:"transfer_status"`
	TransferTarget string `gorm:"type:varchar(50)" json:"transfer_target"`

	// Financials
	EstimatedCost decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"estimated_cost"`
	FinalPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"final_price"`
	PurchaseCost  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"purchase_cost"` // STOCK orders only
	TargetPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"target_price"`  // STOCK orders only

	PointsAwarded int `gorm:"not null;default:0" json:"points_awarded"`

	// Proposal workflow state (WAITING_APPROVAL)
	ProposalType       string `gorm:"type:varchar(20)" json:"proposal_type"`
	ProposalNote       string `gorm:"type:text" json:"proposal_note"`
	ApprovalAckPending bool   `gorm:"not null;default:false" json:"approval_ack_pending"`

	TechNotes string `gorm:"type:text" json:"tech_notes"`

	// Unsynced marks an order that is visible locally but whose creation has
	// not yet been confirmed by the store. Never persisted.
	Unsynced bool `gorm:"-" json:"unsynced,omitempty"`

	History  []HistoryLog `gorm:"foreignKey:OrderID" json:"history,omitempty"`
	Payments []Payment    `gorm:"foreignKey:OrderID" json:"payments,omitempty"`
	Expenses []Expense    `gorm:"foreignKey:OrderID" json:"expenses,omitempty"`

	PointRequests   []PointRequest   `gorm:"foreignKey:OrderID" json:"point_requests,omitempty"`
	ReturnRequests  []ReturnRequest  `gorm:"foreignKey:OrderID" json:"return_requests,omitempty"`
	ExternalRepairs []ExternalRepair `gorm:"foreignKey:OrderID" json:"external_repairs,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns the UUID client-side so the order can be shown and
// queued before the store confirms it.
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// IsClosed reports whether the order is in a terminal state.
func (o *Order) IsClosed() bool {
	return o.Status == StatusReturned || o.Status == StatusCanceled
}

// ClosedStatuses is the terminal set excluded from the active board fetch.
var ClosedStatuses = []string{StatusReturned, StatusCanceled}
