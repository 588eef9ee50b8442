package repository

import (
	"context"

	"fixtrack/backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ExpenseRepository interface {
	Create(ctx context.Context, expense *model.Expense) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Expense, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Expense, error)
	CountByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
}

type expenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) ExpenseRepository {
	return &expenseRepository{db: db}
}

func (r *expenseRepository) Create(ctx context.Context, expense *model.Expense) error {
	return GetDB(ctx, r.db).Create(expense).Error
}

func (r *expenseRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Expense, error) {
	var expense model.Expense
	if err := GetDB(ctx, r.db).First(&expense, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &expense, nil
}

func (r *expenseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Expense{}).Error
}

func (r *expenseRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Expense, error) {
	var expenses []model.Expense
	if err := GetDB(ctx, r.db).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&expenses).Error; err != nil {
		return nil, err
	}
	return expenses, nil
}

func (r *expenseRepository) CountByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Expense{}).Where("order_id = ?", orderID).Count(&count).Error
	return count, err
}

// PartRepository manages the spare-part inventory consumed by expenses.
type PartRepository interface {
	Create(ctx context.Context, part *model.Part) error
	Update(ctx context.Context, part *model.Part) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Part, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Part, error)
	UpdateStock(ctx context.Context, id uuid.UUID, stock int) error
	List(ctx context.Context, page, limit int, search string) ([]model.Part, int64, error)
}

type partRepository struct {
	db *gorm.DB
}

func NewPartRepository(db *gorm.DB) PartRepository {
	return &partRepository{db: db}
}

func (r *partRepository) Create(ctx context.Context, part *model.Part) error {
	return GetDB(ctx, r.db).Create(part).Error
}

func (r *partRepository) Update(ctx context.Context, part *model.Part) error {
	return GetDB(ctx, r.db).Save(part).Error
}

func (r *partRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Part, error) {
	var part model.Part
	if err := GetDB(ctx, r.db).First(&part, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &part, nil
}

func (r *partRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Part, error) {
	var part model.Part
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&part).Error; err != nil {
		return nil, err
	}
	return &part, nil
}

func (r *partRepository) UpdateStock(ctx context.Context, id uuid.UUID, stock int) error {
	return GetDB(ctx, r.db).Model(&model.Part{}).Where("id = ?", id).Update("stock", stock).Error
}

func (r *partRepository) List(ctx context.Context, page, limit int, search string) ([]model.Part, int64, error) {
	var parts []model.Part
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Part{})
	if search != "" {
		db = db.Where("LOWER(name) LIKE LOWER(?)", "%"+search+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&parts).Error; err != nil {
		return nil, 0, err
	}

	return parts, total, nil
}
