package service

import (
	"context"
	"errors"
	"testing"

	"fixtrack/backend/internal/model"
	"fixtrack/backend/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestBalanceUsesFinalPriceWhenSet(t *testing.T) {
	e := newEnv(t)
	svc := e.financeService()
	order := e.seedOrder(t, 20, withEstimate("100"), withFinalPrice("150"))

	balance, err := svc.Balance(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, balance.Charge.Equal(dec("150")))
	assert.True(t, balance.Remaining.Equal(dec("150")))
}

func TestBalanceStockOrderInvestmentAndMargin(t *testing.T) {
	e := newEnv(t)
	svc := e.financeService()
	order := e.seedOrder(t, 21, withType(model.OrderTypeStock), withStatus(model.StatusDiagnosis))
	require.NoError(t, e.db.Model(&model.Order{}).Where("id = ?", order.ID).
		Updates(map[string]interface{}{"purchase_cost": "200", "target_price": "350"}).Error)

	_, admin := e.seedUser(t, model.RoleAdmin)
	_, err := svc.AddExpense(context.Background(), admin, order.ID, "replacement battery", dec("40"), nil)
	require.NoError(t, err)

	balance, err := svc.Balance(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, balance.Investment.Equal(dec("240")), "investment = purchase + expenses, got %s", balance.Investment)
	assert.True(t, balance.Margin.Equal(dec("110")))
}

func TestRegisterDepositAndRefundAccumulate(t *testing.T) {
	e := newEnv(t)
	svc := e.financeService()
	_, cashier := e.seedUser(t, model.RoleCashier)
	order := e.seedOrder(t, 22, withStatus(model.StatusDiagnosis), withEstimate("100"))

	_, err := svc.RegisterDeposit(context.Background(), cashier, order.ID,
		PaymentLine{ClientRef: "dep-1", Amount: dec("50"), Method: model.MethodCash})
	require.NoError(t, err)

	_, err = svc.RegisterDeposit(context.Background(), cashier, order.ID,
		PaymentLine{ClientRef: "ref-1", Amount: dec("20"), Method: model.MethodCash, IsRefund: true})
	require.NoError(t, err)

	balance, err := svc.Balance(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, balance.Paid.Equal(dec("30")))
	assert.True(t, balance.Remaining.Equal(dec("70")))
}

func TestRegisterDepositRejectsDuplicateRef(t *testing.T) {
	e := newEnv(t)
	svc := e.financeService()
	_, cashier := e.seedUser(t, model.RoleCashier)
	order := e.seedOrder(t, 23, withStatus(model.StatusDiagnosis), withEstimate("100"))

	line := PaymentLine{ClientRef: "dep-1", Amount: dec("50"), Method: model.MethodCash}
	_, err := svc.RegisterDeposit(context.Background(), cashier, order.ID, line)
	require.NoError(t, err)

	_, err = svc.RegisterDeposit(context.Background(), cashier, order.ID, line)
	assert.ErrorIs(t, err, ErrDuplicatePayment)
}

func TestRegisterDepositRejectsOverRefund(t *testing.T) {
	e := newEnv(t)
	svc := e.financeService()
	_, cashier := e.seedUser(t, model.RoleCashier)
	order := e.seedOrder(t, 24, withStatus(model.StatusDiagnosis), withEstimate("100"))

	_, err := svc.RegisterDeposit(context.Background(), cashier, order.ID,
		PaymentLine{ClientRef: "dep-1", Amount: dec("30"), Method: model.MethodCash})
	require.NoError(t, err)

	_, err = svc.RegisterDeposit(context.Background(), cashier, order.ID,
		PaymentLine{ClientRef: "ref-1", Amount: dec("40"), Method: model.MethodCash, IsRefund: true})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestDeliverSettlesWithinEpsilon(t *testing.T) {
	cases := []struct {
		name   string
		amount string
		ok     bool
	}{
		{"exact", "60", true},
		{"half cent under", "59.995", true},
		{"one cent under", "59.99", false},
		{"one cent over", "60.01", false},
		{"two cents off", "60.02", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t)
			svc := e.financeService()
			_, cashier := e.seedUser(t, model.RoleCashier)
			order := e.seedOrder(t, 25, withStatus(model.StatusRepaired), withFinalPrice("60"))

			_, err := svc.Deliver(context.Background(), cashier, order.ID,
				[]PaymentLine{{ClientRef: "pay-1", Amount: dec(tc.amount), Method: model.MethodCash}})
			if tc.ok {
				require.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrUnbalancedDelivery)
			}
		})
	}
}

func TestDeliverClosesOrderAndWritesTrail(t *testing.T) {
	e := newEnv(t)
	svc := e.financeService()
	_, cashier := e.seedUser(t, model.RoleCashier)
	order := e.seedOrder(t, 26, withStatus(model.StatusRepaired), withFinalPrice("100"))

	delivered, err := svc.Deliver(context.Background(), cashier, order.ID, []PaymentLine{
		{ClientRef: "pay-1", Amount: dec("60"), Method: model.MethodCash},
		{ClientRef: "pay-2", Amount: dec("40"), Method: model.MethodCard},
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusReturned, delivered.Status)
	assert.NotNil(t, delivered.CompletedAt)
	assert.Len(t, delivered.Payments, 2)

	cats := e.historyCategories(t, order.ID)
	assert.Contains(t, cats, model.CategoryPayment)
	assert.Contains(t, cats, model.CategoryDelivered)
}

func TestDeliverRejectsNonRepairedAndRepeatedDelivery(t *testing.T) {
	e := newEnv(t)
	svc := e.financeService()
	_, cashier := e.seedUser(t, model.RoleCashier)
	order := e.seedOrder(t, 27, withStatus(model.StatusInRepair), withFinalPrice("50"))

	_, err := svc.Deliver(context.Background(), cashier, order.ID,
		[]PaymentLine{{ClientRef: "pay-1", Amount: dec("50"), Method: model.MethodCash}})
	assert.ErrorIs(t, err, ErrNotRepaired)

	require.NoError(t, e.db.Model(&model.Order{}).Where("id = ?", order.ID).
		Update("status", model.StatusRepaired).Error)
	_, err = svc.Deliver(context.Background(), cashier, order.ID,
		[]PaymentLine{{ClientRef: "pay-1", Amount: dec("50"), Method: model.MethodCash}})
	require.NoError(t, err)

	_, err = svc.Deliver(context.Background(), cashier, order.ID,
		[]PaymentLine{{ClientRef: "pay-2", Amount: dec("50"), Method: model.MethodCash}})
	assert.ErrorIs(t, err, ErrAlreadyDelivered)
}

func TestDeliverRejectsDuplicateRefsInBatch(t *testing.T) {
	e := newEnv(t)
	svc := e.financeService()
	_, cashier := e.seedUser(t, model.RoleCashier)
	order := e.seedOrder(t, 28, withStatus(model.StatusRepaired), withFinalPrice("100"))

	_, err := svc.Deliver(context.Background(), cashier, order.ID, []PaymentLine{
		{ClientRef: "pay-1", Amount: dec("50"), Method: model.MethodCash},
		{ClientRef: "pay-1", Amount: dec("50"), Method: model.MethodCard},
	})
	assert.ErrorIs(t, err, ErrDuplicatePayment)
}

// failingHistoryRepo delegates reads but refuses batch writes, forcing the
// delivery transaction to roll back after the payments were inserted.
type failingHistoryRepo struct {
	repository.HistoryRepository
}

func (f failingHistoryRepo) AppendAll(ctx context.Context, entries []model.HistoryLog) error {
	return errors.New("history store unavailable")
}

func TestDeliverIsAtomic(t *testing.T) {
	e := newEnv(t)
	svc := NewFinanceService(e.orderRepo, e.paymentRepo, failingHistoryRepo{e.historyRepo},
		e.expenseRepo, e.partRepo, e.txManager, e.cache, nil, nil)
	_, cashier := e.seedUser(t, model.RoleCashier)
	order := e.seedOrder(t, 29, withStatus(model.StatusRepaired), withFinalPrice("80"))

	_, err := svc.Deliver(context.Background(), cashier, order.ID,
		[]PaymentLine{{ClientRef: "pay-1", Amount: dec("80"), Method: model.MethodCash}})
	require.Error(t, err)

	reloaded, err := e.orderRepo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRepaired, reloaded.Status, "status must not change when history write fails")
	assert.Nil(t, reloaded.CompletedAt)
	assert.Empty(t, reloaded.Payments, "no payment may survive the rolled-back delivery")
	assert.Empty(t, reloaded.History)
}

func TestCloseCashReconcilesCashOnly(t *testing.T) {
	e := newEnv(t)
	svc := e.financeService()
	_, cashier := e.seedUser(t, model.RoleCashier)
	order := e.seedOrder(t, 30, withStatus(model.StatusRepaired), withFinalPrice("100"))

	_, err := svc.Deliver(context.Background(), cashier, order.ID, []PaymentLine{
		{ClientRef: "pay-1", Amount: dec("60"), Method: model.MethodCash},
		{ClientRef: "pay-2", Amount: dec("40"), Method: model.MethodCard},
	})
	require.NoError(t, err)

	closing, err := svc.CloseCash(context.Background(), cashier, dec("58"), "two short")
	require.NoError(t, err)

	assert.True(t, closing.ExpectedTotal.Equal(dec("60")), "card payments stay out of the drawer total")
	assert.True(t, closing.Difference.Equal(dec("-2")))
	assert.Equal(t, 2, closing.PaymentCount, "the whole batch is stamped")

	remaining, err := e.paymentRepo.ListUnreconciledByCashier(context.Background(), cashier.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	_, err = svc.CloseCash(context.Background(), cashier, dec("0"), "")
	assert.ErrorIs(t, err, ErrNoPayments)
}

func TestAddExpenseConsumesPartStock(t *testing.T) {
	e := newEnv(t)
	svc := e.financeService()
	_, admin := e.seedUser(t, model.RoleAdmin)
	order := e.seedOrder(t, 31, withStatus(model.StatusInRepair))

	part := &model.Part{SKU: "SCR-S21", Name: "S21 screen", Stock: 1, UnitCost: dec("35")}
	require.NoError(t, e.partRepo.Create(context.Background(), part))

	updated, err := svc.AddExpense(context.Background(), admin, order.ID, "screen replacement", dec("35"), &part.ID)
	require.NoError(t, err)
	require.Len(t, updated.Expenses, 1)

	reloaded, err := e.partRepo.FindByID(context.Background(), part.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.Stock)

	_, err = svc.AddExpense(context.Background(), admin, order.ID, "second screen", dec("35"), &part.ID)
	assert.ErrorIs(t, err, ErrOutOfStock)
}

func TestRemoveExpenseRestocksPart(t *testing.T) {
	e := newEnv(t)
	svc := e.financeService()
	_, admin := e.seedUser(t, model.RoleAdmin)
	order := e.seedOrder(t, 32, withStatus(model.StatusInRepair))

	part := &model.Part{SKU: "BAT-S21", Name: "S21 battery", Stock: 3, UnitCost: dec("20")}
	require.NoError(t, e.partRepo.Create(context.Background(), part))

	updated, err := svc.AddExpense(context.Background(), admin, order.ID, "battery", dec("20"), &part.ID)
	require.NoError(t, err)
	require.Len(t, updated.Expenses, 1)

	_, err = svc.RemoveExpense(context.Background(), admin, updated.Expenses[0].ID)
	require.NoError(t, err)

	reloaded, err := e.partRepo.FindByID(context.Background(), part.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.Stock)

	cats := e.historyCategories(t, order.ID)
	assert.Contains(t, cats, model.CategoryExpenseAdded)
	assert.Contains(t, cats, model.CategoryExpenseRemoved)

	_, err = e.expenseRepo.FindByID(context.Background(), updated.Expenses[0].ID)
	assert.Error(t, err)
}
