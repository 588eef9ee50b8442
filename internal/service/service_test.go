package service

import (
	"context"
	"fmt"
	"testing"

	"fixtrack/backend/internal/cache"
	"fixtrack/backend/internal/database"
	"fixtrack/backend/internal/model"
	"fixtrack/backend/internal/queue"
	"fixtrack/backend/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// env bundles everything the service constructors need against an in-memory
// database. The redis client points at a dead address: pending-queue failures
// are tolerated by design, so tests run without a broker.
type env struct {
	db *gorm.DB

	txManager    repository.TransactionManager
	orderRepo    repository.OrderRepository
	historyRepo  repository.HistoryRepository
	paymentRepo  repository.PaymentRepository
	customerRepo repository.CustomerRepository
	expenseRepo  repository.ExpenseRepository
	partRepo     repository.PartRepository
	workflowRepo repository.WorkflowRepository
	userRepo     repository.UserRepository

	cache   *cache.OrderCache
	pending *queue.PendingQueue
}

func newEnv(t *testing.T) *env {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})

	return &env{
		db:           db,
		txManager:    repository.NewTransactionManager(db),
		orderRepo:    repository.NewOrderRepository(db),
		historyRepo:  repository.NewHistoryRepository(db),
		paymentRepo:  repository.NewPaymentRepository(db),
		customerRepo: repository.NewCustomerRepository(db),
		expenseRepo:  repository.NewExpenseRepository(db),
		partRepo:     repository.NewPartRepository(db),
		workflowRepo: repository.NewWorkflowRepository(db),
		userRepo:     repository.NewUserRepository(db),
		cache:        cache.NewOrderCache(),
		pending:      queue.NewPendingQueue(rdb),
	}
}

func (e *env) orderService() OrderService {
	return NewOrderService(e.orderRepo, e.historyRepo, e.customerRepo, e.txManager, e.pending, e.cache, nil, nil)
}

func (e *env) workflowService() WorkflowService {
	return NewWorkflowService(e.orderRepo, e.historyRepo, e.workflowRepo, e.userRepo, e.txManager, e.cache, nil, nil)
}

func (e *env) financeService() FinanceService {
	return NewFinanceService(e.orderRepo, e.paymentRepo, e.historyRepo, e.expenseRepo, e.partRepo, e.txManager, e.cache, nil, nil)
}

func (e *env) seedUser(t *testing.T, role string) (*model.User, Actor) {
	t.Helper()
	user := &model.User{
		Username: fmt.Sprintf("%s-%s", role, uuid.NewString()[:8]),
		Email:    fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		Password: "hashed",
		Role:     role,
		Branch:   model.DefaultBranch,
	}
	require.NoError(t, e.userRepo.Create(context.Background(), user))
	return user, Actor{ID: user.ID, Name: user.Username, Role: role}
}

type orderOpt func(*model.Order)

func withStatus(status string) orderOpt {
	return func(o *model.Order) { o.Status = status }
}

func withAssignee(id uuid.UUID) orderOpt {
	return func(o *model.Order) { o.AssignedTo = &id }
}

func withEstimate(v string) orderOpt {
	return func(o *model.Order) { o.EstimatedCost = decimal.RequireFromString(v) }
}

func withFinalPrice(v string) orderOpt {
	return func(o *model.Order) { o.FinalPrice = decimal.RequireFromString(v) }
}

func withType(orderType string) orderOpt {
	return func(o *model.Order) { o.Type = orderType }
}

func (e *env) seedOrder(t *testing.T, readableID int, opts ...orderOpt) *model.Order {
	t.Helper()
	order := &model.Order{
		ID:             uuid.New(),
		ReadableID:     readableID,
		Type:           model.OrderTypeClient,
		Status:         model.StatusPending,
		DeviceModel:    "Galaxy S21",
		IMEI:           "356938035643809",
		CurrentBranch:  model.DefaultBranch,
		TransferStatus: model.TransferNone,
	}
	for _, opt := range opts {
		opt(order)
	}
	require.NoError(t, e.orderRepo.Create(context.Background(), order))
	return order
}

func (e *env) historyCategories(t *testing.T, orderID uuid.UUID) []string {
	t.Helper()
	logs, err := e.historyRepo.ListByOrder(context.Background(), orderID)
	require.NoError(t, err)
	cats := make([]string, len(logs))
	for i, l := range logs {
		cats[i] = l.Category
	}
	return cats
}
