package repository

import (
	"context"
	"fmt"
	"strings"

	"fixtrack/backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListActive(ctx context.Context) ([]model.Order, error)
	ListClosed(ctx context.Context, page, limit int) ([]model.Order, int64, error)
	ListRecent(ctx context.Context, limit int) ([]model.Order, error)
	Search(ctx context.Context, term string, numeric bool) ([]model.Order, error)
	UpdateColumns(ctx context.Context, id uuid.UUID, cols map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
	NextReadableID(ctx context.Context) (int, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return GetDB(ctx, r.db).Create(order).Error
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).
		Preload("Customer").
		Preload("Technician").
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Expenses").
		Preload("PointRequests").
		Preload("ReturnRequests").
		Preload("ExternalRepairs").
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ListActive returns every order outside the terminal-closed set in one
// query, ordered by priority then recency.
func (r *orderRepository) ListActive(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	if err := GetDB(ctx, r.db).
		Preload("Customer").
		Preload("Technician").
		Where("status NOT IN ?", model.ClosedStatuses).
		Order("priority DESC").
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListClosed returns one page of terminal orders plus the total count, so the
// caller can expose hasMore/loadMore.
func (r *orderRepository) ListClosed(ctx context.Context, page, limit int) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Order{}).Where("status IN ?", model.ClosedStatuses).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.
		Preload("Customer").
		Preload("Technician").
		Where("status IN ?", model.ClosedStatuses).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// ListRecent is the degraded fallback when the filtered board queries fail:
// an unfiltered fetch of the newest orders.
func (r *orderRepository) ListRecent(ctx context.Context, limit int) ([]model.Order, error) {
	var orders []model.Order
	if err := GetDB(ctx, r.db).
		Preload("Customer").
		Order("created_at DESC").
		Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Search matches orders by readable id (exact) or id substring for numeric
// terms, otherwise case-insensitively against id, customer name, device
// model, and IMEI. LOWER(...) LIKE keeps the query portable across postgres
// and the sqlite test databases.
func (r *orderRepository) Search(ctx context.Context, term string, numeric bool) ([]model.Order, error) {
	var orders []model.Order
	db := GetDB(ctx, r.db).
		Preload("Customer").
		Preload("Technician").
		Joins("LEFT JOIN customers ON customers.id = orders.customer_id")

	like := "%" + strings.ToLower(term) + "%"
	if numeric {
		db = db.Where("orders.readable_id = ? OR LOWER(CAST(orders.id AS TEXT)) LIKE ?", term, like)
	} else {
		db = db.Where(
			"LOWER(CAST(orders.id AS TEXT)) LIKE ? OR LOWER(customers.name) LIKE ? OR LOWER(orders.device_model) LIKE ? OR LOWER(orders.imei) LIKE ?",
			like, like, like, like,
		)
	}

	if err := db.Order("orders.created_at DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateColumns applies a targeted partial update. Full-row saves are avoided
// on purpose: two actors editing different fields of the same order must not
// clobber each other.
func (r *orderRepository) UpdateColumns(ctx context.Context, id uuid.UUID, cols map[string]interface{}) error {
	return GetDB(ctx, r.db).Model(&model.Order{}).Where("id = ?", id).Updates(cols).Error
}

func (r *orderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Order{}).Error
}

// NextReadableID allocates the next dense human-facing sequence number. The
// advisory lock prevents two concurrent intakes from taking the same number;
// databases without advisory locks fall back to the unique index on
// readable_id, which turns a collision into a retriable error.
func (r *orderRepository) NextReadableID(ctx context.Context) (int, error) {
	db := GetDB(ctx, r.db)
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec("SELECT pg_advisory_xact_lock(hashtext('orders.readable_id'))").Error; err != nil {
			return 0, fmt.Errorf("failed to lock readable_id sequence: %w", err)
		}
	}

	var max int
	if err := db.Model(&model.Order{}).Select("COALESCE(MAX(readable_id), 0)").Scan(&max).Error; err != nil {
		return 0, err
	}
	return max + 1, nil
}
