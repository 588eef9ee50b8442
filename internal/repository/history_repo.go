package repository

import (
	"context"

	"fixtrack/backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HistoryRepository appends to and reads order audit trails. There is no
// update or delete: history is append-only by construction.
type HistoryRepository interface {
	Append(ctx context.Context, entry *model.HistoryLog) error
	AppendAll(ctx context.Context, entries []model.HistoryLog) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.HistoryLog, error)
	ListRecent(ctx context.Context, page, limit int) ([]model.HistoryLog, int64, error)
}

type historyRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Append(ctx context.Context, entry *model.HistoryLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *historyRepository) AppendAll(ctx context.Context, entries []model.HistoryLog) error {
	if len(entries) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&entries).Error
}

func (r *historyRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.HistoryLog, error) {
	var logs []model.HistoryLog
	if err := GetDB(ctx, r.db).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// ListRecent pages through the shop-wide activity feed, newest first.
func (r *historyRepository) ListRecent(ctx context.Context, page, limit int) ([]model.HistoryLog, int64, error) {
	var logs []model.HistoryLog
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.HistoryLog{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Actor").Order("created_at desc").Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
