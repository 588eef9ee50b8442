package service

import (
	"context"
	"fmt"
	"time"

	"fixtrack/backend/internal/model"
	"fixtrack/backend/internal/repository"
)

const rankingLimit = 10

type StatisticsService interface {
	ShopReport(ctx context.Context, start, end time.Time) (*model.ShopReport, error)
}

type statisticsService struct {
	statsRepo repository.StatisticsRepository
}

func NewStatisticsService(statsRepo repository.StatisticsRepository) StatisticsService {
	return &statisticsService{statsRepo: statsRepo}
}

// ShopReport aggregates revenue, workload, and rankings for a period. Revenue
// is read from the payment ledger, not from order prices, so deposits on
// still-open orders count the day they were taken.
func (s *statisticsService) ShopReport(ctx context.Context, start, end time.Time) (*model.ShopReport, error) {
	revenue, err := s.statsRepo.SumPayments(ctx, false, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}
	refunded, err := s.statsRepo.SumPayments(ctx, true, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to sum refunds: %w", err)
	}

	delivered, err := s.statsRepo.CountOrdersByStatus(ctx, model.StatusReturned, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to count delivered orders: %w", err)
	}
	canceled, err := s.statsRepo.CountOrdersByStatus(ctx, model.StatusCanceled, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to count canceled orders: %w", err)
	}
	open, err := s.statsRepo.CountOpenOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count open orders: %w", err)
	}

	ranking, err := s.statsRepo.TechnicianRanking(ctx, start, end, rankingLimit)
	if err != nil {
		return nil, err
	}
	topModels, err := s.statsRepo.TopDeviceModels(ctx, start, end, rankingLimit)
	if err != nil {
		return nil, err
	}

	return &model.ShopReport{
		TotalRevenue:       revenue,
		TotalRefunded:      refunded,
		DeliveredOrders:    delivered,
		CanceledOrders:     canceled,
		OpenOrders:         open,
		TechnicianRanking:  ranking,
		TopDeviceModels:    topModels,
		TimeRangeStartDate: start,
		TimeRangeEndDate:   end,
	}, nil
}
