package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Shop roles. Role gating for order transitions lives in the workflow
// service, not in handlers.
const (
	RoleAdmin        = "admin"
	RoleMonitor      = "monitor" // supervisor: approves points, budgets, returns
	RoleTechnician   = "technician"
	RoleCashier      = "cashier"
	RoleReceptionist = "receptionist"
)

// ValidRole reports whether role is one of the fixed shop roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleMonitor, RoleTechnician, RoleCashier, RoleReceptionist:
		return true
	}
	return false
}

// User is a shop employee account.
type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Username  string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	Email     string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Phone     string         `gorm:"type:varchar(20)" json:"phone"`
	Password  string         `gorm:"type:varchar(255);not null" json:"-"`
	Role      string         `gorm:"type:varchar(50);not null" json:"role"`
	Branch    string         `gorm:"type:varchar(50);not null;default:'MAIN'" json:"branch"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// RefreshToken stores long-lived tokens allowing users to request new access
// tokens.
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Token     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"token"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (r *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
