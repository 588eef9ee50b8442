package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Workflow request status constants
const (
	RequestPending  = "PENDING"
	RequestApproved = "APPROVED"
	RequestRejected = "REJECTED"
	RequestReceived = "RECEIVED" // external repairs only: device back in shop
)

// PointRequest records a technician asking for repair points. Requests of 0
// or 1 point auto-approve; anything above needs a supervisor decision.
type PointRequest struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID         uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	RequestedBy     uuid.UUID `gorm:"type:uuid;not null;index" json:"requested_by"`
	Requester       *User     `gorm:"foreignKey:RequestedBy" json:"requester,omitempty"`
	RequestedPoints int       `gorm:"not null" json:"requested_points"`

	// Optional split proposal: shares must sum to RequestedPoints and are
	// only realized on approval.
	SplitWith  *uuid.UUID `gorm:"type:uuid" json:"split_with"`
	SplitShare int        `gorm:"not null;default:0" json:"split_share"` // points going to SplitWith

	Status          string     `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	DecidedBy       *uuid.UUID `gorm:"type:uuid" json:"decided_by"`
	DecidedAt       *time.Time `json:"decided_at"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (p *PointRequest) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ReturnRequest asks to hand the device back without repairing it, charging
// at most a diagnostic fee.
type ReturnRequest struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	RequestedBy   uuid.UUID       `gorm:"type:uuid;not null" json:"requested_by"`
	Requester     *User           `gorm:"foreignKey:RequestedBy" json:"requester,omitempty"`
	Reason        string          `gorm:"type:text;not null" json:"reason"`
	DiagnosticFee decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"diagnostic_fee"`

	Status          string     `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	DecidedBy       *uuid.UUID `gorm:"type:uuid" json:"decided_by"`
	DecidedAt       *time.Time `json:"decided_at"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (r *ReturnRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// ExternalRepair tracks a device sent to an outside workshop. Approval moves
// the order to EXTERNAL and removes it from the technician pool; receiving it
// back closes the record and resets the order to DIAGNOSIS at the main branch.
type ExternalRepair struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID     uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	RequestedBy uuid.UUID `gorm:"type:uuid;not null" json:"requested_by"`
	Workshop    string    `gorm:"type:varchar(255);not null" json:"workshop"`
	Reason      string    `gorm:"type:text;not null" json:"reason"`

	Status     string     `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	DecidedBy  *uuid.UUID `gorm:"type:uuid" json:"decided_by"`
	SentAt     *time.Time `json:"sent_at"`
	ReceivedAt *time.Time `json:"received_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (e *ExternalRepair) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
