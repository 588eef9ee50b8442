package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"fixtrack/backend/internal/cache"
	"fixtrack/backend/internal/history"
	"fixtrack/backend/internal/model"
	"fixtrack/backend/internal/notification"
	"fixtrack/backend/internal/queue"
	"fixtrack/backend/internal/realtime"
	"fixtrack/backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ClosedPageSize is the page size for the terminal-order history feed.
const ClosedPageSize = 50

// fallbackFetchSize limits the unfiltered fetch used when the board queries
// fail.
const fallbackFetchSize = 50

var numericTerm = regexp.MustCompile(`^[0-9]+$`)

// --- DTOs ---

type CreateOrderRequest struct {
	Type     string `json:"type" binding:"omitempty,oneof=CLIENT STOCK WARRANTY"`
	Priority int    `json:"priority"`

	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`

	DeviceModel    string `json:"device_model" binding:"required"`
	Issue          string `json:"issue"`
	Condition      string `json:"condition"`
	IMEI           string `json:"imei"`
	DevicePassword string `json:"device_password"`
	Accessories    string `json:"accessories"`
	PhotoURL       string `json:"photo_url"`

	Deadline      *time.Time `json:"deadline"`
	EstimatedCost string     `json:"estimated_cost"`
	PurchaseCost  string     `json:"purchase_cost"` // STOCK orders
	TargetPrice   string     `json:"target_price"`  // STOCK orders
}

// Board is the merged view of all active orders plus the first pages of the
// closed history.
type Board struct {
	Orders    []model.Order `json:"orders"`
	HasMore   bool          `json:"has_more"`
	Connected bool          `json:"connected"`
}

// --- Interface ---

type OrderService interface {
	Board(ctx context.Context) (Board, error)
	LoadMoreClosed(ctx context.Context) ([]model.Order, bool, error)
	Search(ctx context.Context, term string) ([]model.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Order, error)
	Create(ctx context.Context, actor Actor, req CreateOrderRequest) (*model.Order, error)
	UpdateFields(ctx context.Context, actor Actor, id uuid.UUID, patch history.FieldPatch) (*model.Order, error)
	UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, status, note string) (*model.Order, error)
	RecordLog(ctx context.Context, actor Actor, id uuid.UUID, category, message string, meta map[string]interface{}) error
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
	RetryPending(ctx context.Context)
	StartPendingRetry(ctx context.Context, interval time.Duration)
	Connected() bool
}

type orderService struct {
	broadcaster

	orderRepo    repository.OrderRepository
	historyRepo  repository.HistoryRepository
	customerRepo repository.CustomerRepository
	txManager    repository.TransactionManager
	pending      *queue.PendingQueue

	mu         sync.Mutex
	closedPage int
	hasMore    bool
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	historyRepo repository.HistoryRepository,
	customerRepo repository.CustomerRepository,
	txManager repository.TransactionManager,
	pending *queue.PendingQueue,
	orderCache *cache.OrderCache,
	hub *realtime.Hub,
	notifier notification.Notifier,
) OrderService {
	return &orderService{
		broadcaster:  broadcaster{cache: orderCache, hub: hub, notifier: notifier},
		orderRepo:    orderRepo,
		historyRepo:  historyRepo,
		customerRepo: customerRepo,
		txManager:    txManager,
		pending:      pending,
	}
}

// --- Reads ---

// Board fetches every non-terminal order plus the first page of closed ones,
// merged and deduplicated by id. On query failure it degrades to an
// unfiltered limited fetch, and finally to the in-memory collection with the
// connection flagged as down.
func (s *orderService) Board(ctx context.Context) (Board, error) {
	active, errActive := s.orderRepo.ListActive(ctx)
	closed, total, errClosed := s.orderRepo.ListClosed(ctx, 1, ClosedPageSize)

	if errActive != nil || errClosed != nil {
		log.Warn().AnErr("active_err", errActive).AnErr("closed_err", errClosed).
			Msg("board queries failed, falling back to unfiltered fetch")
		recent, err := s.orderRepo.ListRecent(ctx, fallbackFetchSize)
		if err != nil {
			s.cache.SetConnected(false)
			return Board{Orders: s.cache.List(), HasMore: false, Connected: false}, nil
		}
		s.cache.SetConnected(true)
		s.cache.SetBoard(recent)
		return Board{Orders: s.cache.List(), HasMore: false, Connected: true}, nil
	}

	merged := append(active, closed...)
	s.cache.SetConnected(true)
	s.cache.SetBoard(merged)
	s.markUnsynced(ctx)

	s.mu.Lock()
	s.closedPage = 1
	s.hasMore = total > int64(ClosedPageSize)
	hasMore := s.hasMore
	s.mu.Unlock()

	return Board{Orders: s.cache.List(), HasMore: hasMore, Connected: true}, nil
}

// LoadMoreClosed fetches the next page of terminal orders only.
func (s *orderService) LoadMoreClosed(ctx context.Context) ([]model.Order, bool, error) {
	s.mu.Lock()
	page := s.closedPage + 1
	s.mu.Unlock()

	orders, total, err := s.orderRepo.ListClosed(ctx, page, ClosedPageSize)
	if err != nil {
		s.cache.SetConnected(false)
		return nil, false, fmt.Errorf("failed to load closed orders: %w", err)
	}

	s.cache.SetConnected(true)
	s.cache.Append(orders)

	s.mu.Lock()
	s.closedPage = page
	s.hasMore = int64(page*ClosedPageSize) < total
	hasMore := s.hasMore
	s.mu.Unlock()

	return orders, hasMore, nil
}

// Search matches the human-readable id for numeric terms, otherwise id,
// customer name, device model, and IMEI substrings. Hits are prepended into
// the collection without duplicating entries already there.
func (s *orderService) Search(ctx context.Context, term string) ([]model.Order, error) {
	term = strings.TrimSpace(term)
	if len(term) < 3 {
		return nil, ErrSearchTooShort
	}

	orders, err := s.orderRepo.Search(ctx, term, numericTerm.MatchString(term))
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	s.cache.Prepend(orders)
	return orders, nil
}

func (s *orderService) Get(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		if cached, ok := s.cache.Get(id); ok {
			return &cached, nil
		}
		return nil, err
	}
	return order, nil
}

func (s *orderService) Connected() bool {
	return s.cache.Connected()
}

// --- Create ---

// Create shows the order locally and queues a durable pending copy before the
// store write. A failed write leaves the order visible, unsynced, and queued
// for the retry loop; it is not an error for the caller.
func (s *orderService) Create(ctx context.Context, actor Actor, req CreateOrderRequest) (*model.Order, error) {
	order, err := s.buildOrder(ctx, req)
	if err != nil {
		return nil, err
	}

	order.Unsynced = true
	s.cache.Prepend([]model.Order{*order})
	if err := s.pending.Put(ctx, order); err != nil {
		// Redis down: proceed without crash recovery rather than block intake.
		log.Warn().Err(err).Msg("failed to queue pending order")
	}

	if err := s.persistCreate(ctx, order, actor); err != nil {
		log.Warn().Err(err).Str("order_id", order.ID.String()).
			Msg("order creation not confirmed, kept in pending queue")
		s.cache.SetConnected(false)
		return order, nil
	}

	return s.confirmCreate(ctx, order)
}

func (s *orderService) buildOrder(ctx context.Context, req CreateOrderRequest) (*model.Order, error) {
	orderType := req.Type
	if orderType == "" {
		orderType = model.OrderTypeClient
	}

	order := &model.Order{
		ID:             uuid.New(),
		Type:           orderType,
		Status:         model.StatusPending,
		Priority:       req.Priority,
		DeviceModel:    req.DeviceModel,
		Issue:          req.Issue,
		Condition:      req.Condition,
		IMEI:           req.IMEI,
		DevicePassword: req.DevicePassword,
		Accessories:    req.Accessories,
		PhotoURL:       req.PhotoURL,
		Deadline:       req.Deadline,
		CurrentBranch:  model.DefaultBranch,
		TransferStatus: model.TransferNone,
		CreatedAt:      time.Now(),
	}

	for _, field := range []struct {
		raw  string
		dest *decimal.Decimal
	}{
		{req.EstimatedCost, &order.EstimatedCost},
		{req.PurchaseCost, &order.PurchaseCost},
		{req.TargetPrice, &order.TargetPrice},
	} {
		if field.raw == "" {
			continue
		}
		parsed, err := decimal.NewFromString(field.raw)
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q: %w", field.raw, err)
		}
		*field.dest = parsed
	}

	if req.CustomerID != "" {
		id, err := uuid.Parse(req.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("invalid customer_id: %w", err)
		}
		order.CustomerID = &id
	} else if req.CustomerName != "" {
		customer := &model.Customer{Name: req.CustomerName, Phone: req.CustomerPhone}
		if err := s.customerRepo.Create(ctx, customer); err != nil {
			return nil, fmt.Errorf("failed to create customer: %w", err)
		}
		order.CustomerID = &customer.ID
		order.Customer = customer
	}

	return order, nil
}

func (s *orderService) persistCreate(ctx context.Context, order *model.Order, actor Actor) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		readableID, err := s.orderRepo.NextReadableID(txCtx)
		if err != nil {
			return fmt.Errorf("failed to allocate readable id: %w", err)
		}
		order.ReadableID = readableID

		if err := s.orderRepo.Create(txCtx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		entry := history.NewEntry(order.ID, order.Status, model.CategoryCreated,
			fmt.Sprintf("order #%d received", order.ReadableID), actor.historyActor(), nil)
		if err := s.historyRepo.Append(txCtx, &entry); err != nil {
			return fmt.Errorf("failed to write creation log: %w", err)
		}
		return nil
	})
}

func (s *orderService) confirmCreate(ctx context.Context, order *model.Order) (*model.Order, error) {
	if err := s.pending.Remove(ctx, order.ID); err != nil {
		log.Warn().Err(err).Msg("failed to remove confirmed order from pending queue")
	}
	s.cache.SetConnected(true)

	canonical, err := s.orderRepo.FindByID(ctx, order.ID)
	if err != nil {
		canonical = order
		canonical.Unsynced = false
	}
	s.publishCreated(canonical)
	return canonical, nil
}

// markUnsynced re-flags cached orders that are still awaiting confirmation.
func (s *orderService) markUnsynced(ctx context.Context) {
	queued, err := s.pending.List(ctx)
	if err != nil {
		return
	}
	for _, o := range queued {
		if cached, ok := s.cache.Get(o.ID); ok {
			cached.Unsynced = true
			s.cache.Replace(cached)
		} else {
			o.Unsynced = true
			s.cache.Prepend([]model.Order{o})
		}
	}
}

// RetryPending attempts to persist every queued creation once.
func (s *orderService) RetryPending(ctx context.Context) {
	queued, err := s.pending.List(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("pending retry: queue unavailable")
		return
	}

	for i := range queued {
		order := queued[i]
		if err := s.persistCreate(ctx, &order, Actor{Name: "system"}); err != nil {
			log.Debug().Err(err).Str("order_id", order.ID.String()).Msg("pending retry failed")
			continue
		}
		if _, err := s.confirmCreate(ctx, &order); err == nil {
			log.Info().Str("order_id", order.ID.String()).Msg("pending order synced")
		}
	}
}

// StartPendingRetry runs the opportunistic retry loop until ctx is done.
func (s *orderService) StartPendingRetry(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RetryPending(ctx)
			}
		}
	}()
}

// --- Mutations ---

// UpdateFields applies a tagged partial update. Every detected change in a
// tracked field becomes one history entry; field columns and the new entries
// are persisted in a single transaction, with the in-memory copy rolled back
// from its snapshot if that write fails.
func (s *orderService) UpdateFields(ctx context.Context, actor Actor, id uuid.UUID, patch history.FieldPatch) (*model.Order, error) {
	if patch.IsEmpty() {
		return s.Get(ctx, id)
	}

	current, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("order not found: %w", err)
	}

	if patch.Status != nil && *patch.Status != current.Status && !legalSimpleTransition(current.Status, *patch.Status) {
		return nil, ErrIllegalTransition
	}

	entries := history.Diff(current, patch, actor.historyActor())
	cols := patch.Columns()
	if len(entries) == 0 && len(cols) == 0 {
		return current, nil
	}

	snapshot, existed := s.cache.Snapshot(id)
	optimistic := *current
	applyPatch(&optimistic, patch)
	s.cache.Replace(optimistic)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if len(cols) > 0 {
			if err := s.orderRepo.UpdateColumns(txCtx, id, cols); err != nil {
				return fmt.Errorf("failed to update order: %w", err)
			}
		}
		if err := s.historyRepo.AppendAll(txCtx, entries); err != nil {
			return fmt.Errorf("failed to append history: %w", err)
		}
		return nil
	})
	if err != nil {
		s.cache.Restore(snapshot, existed)
		return nil, err
	}

	return s.reloadAndPublish(ctx, id)
}

// UpdateStatus is the narrow path for simple transitions without side-effect
// fields. Workflow-owned transitions are rejected here.
func (s *orderService) UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, status, note string) (*model.Order, error) {
	current, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("order not found: %w", err)
	}
	if status == current.Status {
		return current, nil
	}
	if !legalSimpleTransition(current.Status, status) {
		return nil, ErrIllegalTransition
	}
	if !actor.isSupervisor() && !actor.isAssignee(current) && actor.Role != model.RoleReceptionist {
		return nil, ErrForbidden
	}

	snapshot, existed := s.cache.Snapshot(id)
	optimistic := *current
	optimistic.Status = status
	s.cache.Replace(optimistic)

	entryNote := note
	if entryNote == "" {
		entryNote = fmt.Sprintf("status changed: %q -> %q", current.Status, status)
	}
	entry := history.NewEntry(id, status, model.CategoryStatusChanged, entryNote,
		actor.historyActor(), map[string]interface{}{"before": current.Status, "after": status})

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.orderRepo.UpdateColumns(txCtx, id, map[string]interface{}{"status": status}); err != nil {
			return fmt.Errorf("failed to update status: %w", err)
		}
		return s.historyRepo.Append(txCtx, &entry)
	})
	if err != nil {
		s.cache.Restore(snapshot, existed)
		return nil, err
	}

	order, pubErr := s.reloadAndPublish(ctx, id)
	if pubErr == nil {
		s.notifyStatus(order, status)
	}
	return order, pubErr
}

// RecordLog appends one structured history entry without touching business
// fields.
func (s *orderService) RecordLog(ctx context.Context, actor Actor, id uuid.UUID, category, message string, meta map[string]interface{}) error {
	current, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("order not found: %w", err)
	}
	if category == "" {
		category = model.CategoryNote
	}

	entry := history.NewEntry(id, current.Status, category, message, actor.historyActor(), meta)
	if err := s.historyRepo.Append(ctx, &entry); err != nil {
		return fmt.Errorf("failed to append log entry: %w", err)
	}

	_, _ = s.reloadAndPublish(ctx, id)
	return nil
}

// Delete removes the order and its history for good. Admin only; there is no
// soft-delete.
func (s *orderService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if actor.Role != model.RoleAdmin {
		return ErrForbidden
	}

	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("order not found: %w", err)
	}

	if err := s.orderRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	_ = s.pending.Remove(ctx, id)
	s.publishDeleted(order)
	return nil
}

func (s *orderService) reloadAndPublish(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}
	s.publishUpdated(order)
	return order, nil
}

func applyPatch(order *model.Order, patch history.FieldPatch) {
	if patch.IMEI != nil {
		order.IMEI = *patch.IMEI
	}
	if patch.DeviceModel != nil {
		order.DeviceModel = *patch.DeviceModel
	}
	if patch.DevicePassword != nil {
		order.DevicePassword = *patch.DevicePassword
	}
	if patch.Accessories != nil {
		order.Accessories = *patch.Accessories
	}
	if patch.Priority != nil {
		order.Priority = *patch.Priority
	}
	if patch.Deadline != nil {
		order.Deadline = patch.Deadline
	}
	if patch.Status != nil {
		order.Status = *patch.Status
	}
}
