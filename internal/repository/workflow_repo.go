package repository

import (
	"context"

	"fixtrack/backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WorkflowRepository persists the approval-style requests attached to orders:
// point requests, return requests, and external repairs. Decisions update the
// request row in place; the resulting order changes live in the same
// transaction.
type WorkflowRepository interface {
	CreatePointRequest(ctx context.Context, req *model.PointRequest) error
	FindPointRequest(ctx context.Context, id uuid.UUID) (*model.PointRequest, error)
	UpdatePointRequest(ctx context.Context, req *model.PointRequest) error
	ListPendingPointRequests(ctx context.Context) ([]model.PointRequest, error)

	CreateReturnRequest(ctx context.Context, req *model.ReturnRequest) error
	FindReturnRequest(ctx context.Context, id uuid.UUID) (*model.ReturnRequest, error)
	UpdateReturnRequest(ctx context.Context, req *model.ReturnRequest) error
	ListPendingReturnRequests(ctx context.Context) ([]model.ReturnRequest, error)

	CreateExternalRepair(ctx context.Context, rec *model.ExternalRepair) error
	FindExternalRepair(ctx context.Context, id uuid.UUID) (*model.ExternalRepair, error)
	UpdateExternalRepair(ctx context.Context, rec *model.ExternalRepair) error
	ListExternalRepairs(ctx context.Context, status string) ([]model.ExternalRepair, error)
}

type workflowRepository struct {
	db *gorm.DB
}

func NewWorkflowRepository(db *gorm.DB) WorkflowRepository {
	return &workflowRepository{db: db}
}

func (r *workflowRepository) CreatePointRequest(ctx context.Context, req *model.PointRequest) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *workflowRepository) FindPointRequest(ctx context.Context, id uuid.UUID) (*model.PointRequest, error) {
	var req model.PointRequest
	if err := GetDB(ctx, r.db).Preload("Requester").First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *workflowRepository) UpdatePointRequest(ctx context.Context, req *model.PointRequest) error {
	return GetDB(ctx, r.db).Save(req).Error
}

func (r *workflowRepository) ListPendingPointRequests(ctx context.Context) ([]model.PointRequest, error) {
	var reqs []model.PointRequest
	if err := GetDB(ctx, r.db).Preload("Requester").
		Where("status = ?", model.RequestPending).
		Order("created_at ASC").
		Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *workflowRepository) CreateReturnRequest(ctx context.Context, req *model.ReturnRequest) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *workflowRepository) FindReturnRequest(ctx context.Context, id uuid.UUID) (*model.ReturnRequest, error) {
	var req model.ReturnRequest
	if err := GetDB(ctx, r.db).Preload("Requester").First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *workflowRepository) UpdateReturnRequest(ctx context.Context, req *model.ReturnRequest) error {
	return GetDB(ctx, r.db).Save(req).Error
}

func (r *workflowRepository) ListPendingReturnRequests(ctx context.Context) ([]model.ReturnRequest, error) {
	var reqs []model.ReturnRequest
	if err := GetDB(ctx, r.db).Preload("Requester").
		Where("status = ?", model.RequestPending).
		Order("created_at ASC").
		Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *workflowRepository) CreateExternalRepair(ctx context.Context, rec *model.ExternalRepair) error {
	return GetDB(ctx, r.db).Create(rec).Error
}

func (r *workflowRepository) FindExternalRepair(ctx context.Context, id uuid.UUID) (*model.ExternalRepair, error) {
	var rec model.ExternalRepair
	if err := GetDB(ctx, r.db).First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *workflowRepository) UpdateExternalRepair(ctx context.Context, rec *model.ExternalRepair) error {
	return GetDB(ctx, r.db).Save(rec).Error
}

func (r *workflowRepository) ListExternalRepairs(ctx context.Context, status string) ([]model.ExternalRepair, error) {
	var recs []model.ExternalRepair
	db := GetDB(ctx, r.db)
	if status != "" {
		db = db.Where("status = ?", status)
	}
	if err := db.Order("created_at DESC").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}
