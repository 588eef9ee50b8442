package repository

import (
	"context"
	"fmt"
	"time"

	"fixtrack/backend/internal/model"

	"gorm.io/gorm"
)

type StatisticsRepository interface {
	SumPayments(ctx context.Context, refunds bool, start, end time.Time) (string, error)
	CountOrdersByStatus(ctx context.Context, status string, start, end time.Time) (int, error)
	CountOpenOrders(ctx context.Context) (int, error)
	TechnicianRanking(ctx context.Context, start, end time.Time, limit int) ([]model.TechnicianRanking, error)
	TopDeviceModels(ctx context.Context, start, end time.Time, limit int) ([]model.DeviceModelCount, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) SumPayments(ctx context.Context, refunds bool, start, end time.Time) (string, error) {
	var result struct {
		Value string
	}
	err := GetDB(ctx, r.db).Table("payments").
		Select("COALESCE(CAST(SUM(amount) AS TEXT), '0') as value").
		Where("is_refund = ? AND created_at >= ? AND created_at <= ?", refunds, start, end).
		Scan(&result).Error
	if err != nil {
		return "0", fmt.Errorf("failed to sum payments: %w", err)
	}
	return result.Value, nil
}

func (r *statisticsRepository) CountOrdersByStatus(ctx context.Context, status string, start, end time.Time) (int, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Order{}).
		Where("status = ? AND created_at >= ? AND created_at <= ?", status, start, end).
		Count(&count).Error
	return int(count), err
}

func (r *statisticsRepository) CountOpenOrders(ctx context.Context) (int, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Order{}).
		Where("status NOT IN ?", model.ClosedStatuses).
		Count(&count).Error
	return int(count), err
}

func (r *statisticsRepository) TechnicianRanking(ctx context.Context, start, end time.Time, limit int) ([]model.TechnicianRanking, error) {
	var rankings []model.TechnicianRanking
	if err := GetDB(ctx, r.db).Table("orders").
		Select("users.id as technician_id, users.username as technician_name, SUM(orders.points_awarded) as total_points, COUNT(orders.id) as orders_repaired").
		Joins("JOIN users ON users.id = orders.assigned_to").
		Where("orders.points_awarded > 0 AND orders.completed_at >= ? AND orders.completed_at <= ?", start, end).
		Group("users.id, users.username").
		Order("total_points DESC").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query technician ranking: %w", err)
	}
	return rankings, nil
}

func (r *statisticsRepository) TopDeviceModels(ctx context.Context, start, end time.Time, limit int) ([]model.DeviceModelCount, error) {
	var counts []model.DeviceModelCount
	if err := GetDB(ctx, r.db).Table("orders").
		Select("device_model, COUNT(id) as order_count").
		Where("device_model <> '' AND created_at >= ? AND created_at <= ?", start, end).
		Group("device_model").
		Order("order_count DESC").
		Limit(limit).
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("failed to query top device models: %w", err)
	}
	return counts, nil
}
