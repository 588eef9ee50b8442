package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentMethod enum constants
const (
	MethodCash     = "CASH"
	MethodTransfer = "TRANSFER"
	MethodCard     = "CARD"
	MethodCredit   = "CREDIT"
)

// Payment is a ledger entry on an order. The ledger is append-only: entries
// are never deleted, refunds are recorded as negative entries, and no entry
// may be appended once the order is delivered.
type Payment struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_payments_order_ref,priority:1" json:"order_id"`
	// ClientRef is the caller-supplied idempotency key. Submitting the same
	// ref twice for one order is rejected before any write.
	ClientRef string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_payments_order_ref,priority:2" json:"client_ref"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"` // negative for refunds
	Method    string          `gorm:"type:varchar(20);not null" json:"method"`
	IsRefund  bool            `gorm:"not null;default:false" json:"is_refund"`

	CashierID *uuid.UUID `gorm:"type:uuid;index" json:"cashier_id"`
	Cashier   *User      `gorm:"foreignKey:CashierID" json:"cashier,omitempty"`

	// Reconciliation marker, stamped by a cash closing. Immutable afterwards.
	Reconciled bool       `gorm:"not null;default:false;index" json:"reconciled"`
	ClosingID  *uuid.UUID `gorm:"type:uuid;index" json:"closing_id"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// SignedAmount returns the amount with refund sign applied, so summing it
// over a ledger yields the net total paid.
func (p *Payment) SignedAmount() decimal.Decimal {
	if p.IsRefund && p.Amount.IsPositive() {
		return p.Amount.Neg()
	}
	return p.Amount
}

// CashClosing reconciles a cashier's expected vs. counted cash for a batch of
// payments. Immutable once created; stamping payments does not alter any
// order state.
type CashClosing struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CashierID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"cashier_id"`
	Cashier       *User           `gorm:"foreignKey:CashierID" json:"cashier,omitempty"`
	ExpectedTotal decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"expected_total"`
	CountedTotal  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"counted_total"`
	Difference    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"difference"`
	PaymentCount  int             `gorm:"not null" json:"payment_count"`
	Note          string          `gorm:"type:text" json:"note"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
}

func (c *CashClosing) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
