package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fixtrack/backend/internal/cache"
	"fixtrack/backend/internal/history"
	"fixtrack/backend/internal/model"
	"fixtrack/backend/internal/notification"
	"fixtrack/backend/internal/realtime"
	"fixtrack/backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// deliveryEpsilon absorbs rounding drift when checking that payment lines
// settle the remaining balance.
var deliveryEpsilon = decimal.NewFromFloat(0.01)

// PaymentLine is one caller-submitted ledger entry. ClientRef is the
// idempotency key: resubmitting the same ref for the same order is rejected
// before any write.
type PaymentLine struct {
	ClientRef string          `json:"client_ref" binding:"required"`
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Method    string          `json:"method" binding:"required,oneof=CASH TRANSFER CARD CREDIT"`
	IsRefund  bool            `json:"is_refund"`
}

// OrderBalance is the derived financial position of an order. Nothing here is
// stored; it is recomputed from the ledger on every read.
type OrderBalance struct {
	Charge    decimal.Decimal `json:"charge"`
	Paid      decimal.Decimal `json:"paid"`
	Remaining decimal.Decimal `json:"remaining"`

	// STOCK orders only
	Investment decimal.Decimal `json:"investment,omitempty"`
	Margin     decimal.Decimal `json:"margin,omitempty"`
}

type FinanceService interface {
	Balance(ctx context.Context, orderID uuid.UUID) (OrderBalance, error)
	RegisterDeposit(ctx context.Context, actor Actor, orderID uuid.UUID, line PaymentLine) (*model.Order, error)
	Deliver(ctx context.Context, actor Actor, orderID uuid.UUID, lines []PaymentLine) (*model.Order, error)

	CloseCash(ctx context.Context, actor Actor, countedTotal decimal.Decimal, note string) (*model.CashClosing, error)
	ListClosings(ctx context.Context, page, limit int) ([]model.CashClosing, int64, error)

	AddExpense(ctx context.Context, actor Actor, orderID uuid.UUID, description string, amount decimal.Decimal, partID *uuid.UUID) (*model.Order, error)
	RemoveExpense(ctx context.Context, actor Actor, expenseID uuid.UUID) (*model.Order, error)
}

type financeService struct {
	broadcaster

	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	historyRepo repository.HistoryRepository
	expenseRepo repository.ExpenseRepository
	partRepo    repository.PartRepository
	txManager   repository.TransactionManager
}

func NewFinanceService(
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	historyRepo repository.HistoryRepository,
	expenseRepo repository.ExpenseRepository,
	partRepo repository.PartRepository,
	txManager repository.TransactionManager,
	orderCache *cache.OrderCache,
	hub *realtime.Hub,
	notifier notification.Notifier,
) FinanceService {
	return &financeService{
		broadcaster: broadcaster{cache: orderCache, hub: hub, notifier: notifier},
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		historyRepo: historyRepo,
		expenseRepo: expenseRepo,
		partRepo:    partRepo,
		txManager:   txManager,
	}
}

// balanceOf derives the financial position from the order and its ledger.
// The charge is the final price once set, otherwise the estimate; paid is the
// refund-signed ledger sum.
func balanceOf(order *model.Order, payments []model.Payment) OrderBalance {
	charge := order.EstimatedCost
	if order.FinalPrice.IsPositive() {
		charge = order.FinalPrice
	}

	paid := decimal.Zero
	for i := range payments {
		paid = paid.Add(payments[i].SignedAmount())
	}

	b := OrderBalance{
		Charge:    charge,
		Paid:      paid,
		Remaining: charge.Sub(paid),
	}

	if order.Type == model.OrderTypeStock {
		investment := order.PurchaseCost
		for i := range order.Expenses {
			investment = investment.Add(order.Expenses[i].Amount)
		}
		b.Investment = investment
		b.Margin = order.TargetPrice.Sub(investment)
	}
	return b
}

func (s *financeService) Balance(ctx context.Context, orderID uuid.UUID) (OrderBalance, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return OrderBalance{}, fmt.Errorf("order not found: %w", err)
	}
	payments, err := s.paymentRepo.ListByOrder(ctx, orderID)
	if err != nil {
		return OrderBalance{}, fmt.Errorf("failed to load ledger: %w", err)
	}
	return balanceOf(order, payments), nil
}

// RegisterDeposit appends a single up-front payment to an open order's
// ledger. Refund entries net against earlier deposits, but the running total
// may never go negative.
func (s *financeService) RegisterDeposit(ctx context.Context, actor Actor, orderID uuid.UUID, line PaymentLine) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order not found: %w", err)
	}
	if order.IsClosed() {
		return nil, ErrAlreadyDelivered
	}
	if !line.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	exists, err := s.paymentRepo.ExistsClientRef(ctx, orderID, line.ClientRef)
	if err != nil {
		return nil, fmt.Errorf("failed to check payment reference: %w", err)
	}
	if exists {
		return nil, ErrDuplicatePayment
	}

	if line.IsRefund {
		payments, err := s.paymentRepo.ListByOrder(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("failed to load ledger: %w", err)
		}
		paid := decimal.Zero
		for i := range payments {
			paid = paid.Add(payments[i].SignedAmount())
		}
		if paid.Sub(line.Amount).IsNegative() {
			return nil, ErrInvalidAmount
		}
	}

	payment := s.newPayment(actor, orderID, line)
	verb := "deposit"
	if line.IsRefund {
		verb = "refund"
	}
	entry := history.NewEntry(orderID, order.Status, model.CategoryPayment,
		fmt.Sprintf("%s of %s recorded (%s)", verb, line.Amount.StringFixed(2), line.Method),
		actor.historyActor(),
		map[string]interface{}{"amount": line.Amount.String(), "method": line.Method, "refund": line.IsRefund})

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.paymentRepo.Create(txCtx, &payment); err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}
		return s.historyRepo.Append(txCtx, &entry)
	})
	if err != nil {
		return nil, err
	}

	return s.reloadAndPublish(ctx, orderID)
}

// Deliver settles and closes a repaired order in one transaction: the payment
// lines, their history entries, the delivery entry, and the RETURNED status
// either all commit or none do. The lines must balance the remaining amount
// exactly; only sub-cent rounding noise is tolerated, a full cent off is
// rejected.
func (s *financeService) Deliver(ctx context.Context, actor Actor, orderID uuid.UUID, lines []PaymentLine) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order not found: %w", err)
	}
	if order.IsClosed() {
		return nil, ErrAlreadyDelivered
	}
	if order.Status != model.StatusRepaired {
		return nil, ErrNotRepaired
	}

	payments, err := s.paymentRepo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	balance := balanceOf(order, payments)

	total := decimal.Zero
	seen := make(map[string]bool, len(lines))
	for _, line := range lines {
		ref := strings.TrimSpace(line.ClientRef)
		if ref == "" || seen[ref] {
			return nil, ErrDuplicatePayment
		}
		seen[ref] = true

		exists, err := s.paymentRepo.ExistsClientRef(ctx, orderID, ref)
		if err != nil {
			return nil, fmt.Errorf("failed to check payment reference: %w", err)
		}
		if exists {
			return nil, ErrDuplicatePayment
		}

		if line.IsRefund {
			total = total.Sub(line.Amount.Abs())
		} else {
			total = total.Add(line.Amount)
		}
	}

	if total.Sub(balance.Remaining).Abs().GreaterThanOrEqual(deliveryEpsilon) {
		return nil, ErrUnbalancedDelivery
	}

	batch := make([]model.Payment, 0, len(lines))
	entries := make([]model.HistoryLog, 0, len(lines)+1)
	for _, line := range lines {
		payment := s.newPayment(actor, orderID, line)
		batch = append(batch, payment)
		entries = append(entries, history.NewEntry(orderID, model.StatusReturned, model.CategoryPayment,
			fmt.Sprintf("payment of %s received (%s)", line.Amount.StringFixed(2), line.Method),
			actor.historyActor(),
			map[string]interface{}{"amount": line.Amount.String(), "method": line.Method, "refund": line.IsRefund}))
	}
	entries = append(entries, history.NewEntry(orderID, model.StatusReturned, model.CategoryDelivered,
		fmt.Sprintf("order #%d delivered, %s settled", order.ReadableID, total.StringFixed(2)),
		actor.historyActor(),
		map[string]interface{}{"settled": total.String(), "charge": balance.Charge.String()}))

	now := time.Now()
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.paymentRepo.CreateAll(txCtx, batch); err != nil {
			return fmt.Errorf("failed to record payments: %w", err)
		}
		if err := s.historyRepo.AppendAll(txCtx, entries); err != nil {
			return fmt.Errorf("failed to append history: %w", err)
		}
		cols := map[string]interface{}{
			"status":       model.StatusReturned,
			"completed_at": now,
		}
		if err := s.orderRepo.UpdateColumns(txCtx, orderID, cols); err != nil {
			return fmt.Errorf("failed to close order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.reloadAndPublish(ctx, orderID)
	if err == nil {
		s.notifyStatus(updated, model.StatusReturned)
	}
	return updated, err
}

func (s *financeService) newPayment(actor Actor, orderID uuid.UUID, line PaymentLine) model.Payment {
	cashierID := actor.ID
	return model.Payment{
		OrderID:   orderID,
		ClientRef: strings.TrimSpace(line.ClientRef),
		Amount:    line.Amount,
		Method:    line.Method,
		IsRefund:  line.IsRefund,
		CashierID: &cashierID,
	}
}

// CloseCash reconciles the actor's unreconciled payments against the counted
// drawer. The expected total covers cash entries only; card and transfer
// entries are stamped into the batch without affecting it. The closing is
// immutable and touches no order state.
func (s *financeService) CloseCash(ctx context.Context, actor Actor, countedTotal decimal.Decimal, note string) (*model.CashClosing, error) {
	if actor.Role != model.RoleCashier && !actor.isSupervisor() {
		return nil, ErrForbidden
	}

	payments, err := s.paymentRepo.ListUnreconciledByCashier(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load unreconciled payments: %w", err)
	}
	if len(payments) == 0 {
		return nil, ErrNoPayments
	}

	expected := decimal.Zero
	ids := make([]uuid.UUID, 0, len(payments))
	for i := range payments {
		ids = append(ids, payments[i].ID)
		if payments[i].Method == model.MethodCash {
			expected = expected.Add(payments[i].SignedAmount())
		}
	}

	closing := &model.CashClosing{
		CashierID:     actor.ID,
		ExpectedTotal: expected,
		CountedTotal:  countedTotal,
		Difference:    countedTotal.Sub(expected),
		PaymentCount:  len(payments),
		Note:          note,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.paymentRepo.CreateClosing(txCtx, closing); err != nil {
			return fmt.Errorf("failed to create closing: %w", err)
		}
		return s.paymentRepo.MarkReconciled(txCtx, ids, closing.ID)
	})
	if err != nil {
		return nil, err
	}
	return closing, nil
}

func (s *financeService) ListClosings(ctx context.Context, page, limit int) ([]model.CashClosing, int64, error) {
	return s.paymentRepo.ListClosings(ctx, page, limit)
}

// AddExpense books a cost against the order. Linking a part consumes one unit
// of its stock in the same transaction; the part row is locked so two
// concurrent expenses cannot both take the last unit.
func (s *financeService) AddExpense(ctx context.Context, actor Actor, orderID uuid.UUID, description string, amount decimal.Decimal, partID *uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order not found: %w", err)
	}
	if order.IsClosed() {
		return nil, ErrOrderClosed
	}
	if strings.TrimSpace(description) == "" {
		return nil, ErrMissingReason
	}
	if amount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	actorID := actor.ID
	expense := &model.Expense{
		OrderID:     orderID,
		Description: description,
		Amount:      amount,
		PartID:      partID,
		CreatedBy:   &actorID,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if partID != nil {
			part, err := s.partRepo.FindByIDForUpdate(txCtx, *partID)
			if err != nil {
				return fmt.Errorf("part not found: %w", err)
			}
			if part.Stock < 1 {
				return ErrOutOfStock
			}
			if err := s.partRepo.UpdateStock(txCtx, part.ID, part.Stock-1); err != nil {
				return fmt.Errorf("failed to decrement stock: %w", err)
			}
		}

		if err := s.expenseRepo.Create(txCtx, expense); err != nil {
			return fmt.Errorf("failed to create expense: %w", err)
		}

		entry := history.NewEntry(orderID, order.Status, model.CategoryExpenseAdded,
			fmt.Sprintf("expense added: %s (%s)", description, amount.StringFixed(2)),
			actor.historyActor(),
			map[string]interface{}{"amount": amount.String(), "description": description})
		return s.historyRepo.Append(txCtx, &entry)
	})
	if err != nil {
		return nil, err
	}

	return s.reloadAndPublish(ctx, orderID)
}

// RemoveExpense deletes a cost line and restocks its linked part.
func (s *financeService) RemoveExpense(ctx context.Context, actor Actor, expenseID uuid.UUID) (*model.Order, error) {
	expense, err := s.expenseRepo.FindByID(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("expense not found: %w", err)
	}

	order, err := s.orderRepo.FindByID(ctx, expense.OrderID)
	if err != nil {
		return nil, fmt.Errorf("order not found: %w", err)
	}
	if order.IsClosed() {
		return nil, ErrOrderClosed
	}
	if !actor.canActOnOrder(order) && actor.Role != model.RoleReceptionist {
		return nil, ErrForbidden
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if expense.PartID != nil {
			part, err := s.partRepo.FindByIDForUpdate(txCtx, *expense.PartID)
			if err != nil {
				return fmt.Errorf("part not found: %w", err)
			}
			if err := s.partRepo.UpdateStock(txCtx, part.ID, part.Stock+1); err != nil {
				return fmt.Errorf("failed to restock part: %w", err)
			}
		}

		if err := s.expenseRepo.Delete(txCtx, expense.ID); err != nil {
			return fmt.Errorf("failed to delete expense: %w", err)
		}

		entry := history.NewEntry(order.ID, order.Status, model.CategoryExpenseRemoved,
			fmt.Sprintf("expense removed: %s (%s)", expense.Description, expense.Amount.StringFixed(2)),
			actor.historyActor(),
			map[string]interface{}{"amount": expense.Amount.String(), "description": expense.Description})
		return s.historyRepo.Append(txCtx, &entry)
	})
	if err != nil {
		return nil, err
	}

	return s.reloadAndPublish(ctx, order.ID)
}

func (s *financeService) reloadAndPublish(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}
	s.publishUpdated(order)
	return order, nil
}
