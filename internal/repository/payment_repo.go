package repository

import (
	"context"

	"fixtrack/backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	CreateAll(ctx context.Context, payments []model.Payment) error
	ExistsClientRef(ctx context.Context, orderID uuid.UUID, clientRef string) (bool, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Payment, error)
	ListUnreconciledByCashier(ctx context.Context, cashierID uuid.UUID) ([]model.Payment, error)
	MarkReconciled(ctx context.Context, ids []uuid.UUID, closingID uuid.UUID) error
	CreateClosing(ctx context.Context, closing *model.CashClosing) error
	FindClosing(ctx context.Context, id uuid.UUID) (*model.CashClosing, error)
	ListClosings(ctx context.Context, page, limit int) ([]model.CashClosing, int64, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	return GetDB(ctx, r.db).Create(payment).Error
}

func (r *paymentRepository) CreateAll(ctx context.Context, payments []model.Payment) error {
	if len(payments) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&payments).Error
}

// ExistsClientRef backs the duplicate-submission guard: the check runs before
// any write so a retried network call cannot double-charge.
func (r *paymentRepository) ExistsClientRef(ctx context.Context, orderID uuid.UUID, clientRef string) (bool, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Payment{}).
		Where("order_id = ? AND client_ref = ?", orderID, clientRef).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *paymentRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Payment, error) {
	var payments []model.Payment
	if err := GetDB(ctx, r.db).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) ListUnreconciledByCashier(ctx context.Context, cashierID uuid.UUID) ([]model.Payment, error) {
	var payments []model.Payment
	if err := GetDB(ctx, r.db).
		Where("cashier_id = ? AND reconciled = ?", cashierID, false).
		Order("created_at ASC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) MarkReconciled(ctx context.Context, ids []uuid.UUID, closingID uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Model(&model.Payment{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{"reconciled": true, "closing_id": closingID}).Error
}

func (r *paymentRepository) CreateClosing(ctx context.Context, closing *model.CashClosing) error {
	return GetDB(ctx, r.db).Create(closing).Error
}

func (r *paymentRepository) FindClosing(ctx context.Context, id uuid.UUID) (*model.CashClosing, error) {
	var closing model.CashClosing
	if err := GetDB(ctx, r.db).First(&closing, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &closing, nil
}

func (r *paymentRepository) ListClosings(ctx context.Context, page, limit int) ([]model.CashClosing, int64, error) {
	var closings []model.CashClosing
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.CashClosing{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Cashier").Order("created_at desc").Offset(offset).Limit(limit).Find(&closings).Error; err != nil {
		return nil, 0, err
	}

	return closings, total, nil
}
