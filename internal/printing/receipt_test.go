package printing

import (
	"strings"
	"testing"
	"time"

	"fixtrack/backend/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRenderReceiptShowsTotalsAndDue(t *testing.T) {
	order := &model.Order{
		ReadableID:  42,
		DeviceModel: "Galaxy S21",
		IMEI:        "356938035643809",
		Status:      model.StatusRepaired,
		Customer:    &model.Customer{Name: "Maria Lopez", Phone: "555-0101"},
	}
	printedAt := time.Date(2026, 8, 31, 14, 30, 0, 0, time.UTC)

	out := RenderReceipt(order, decimal.NewFromInt(120), decimal.NewFromInt(50), printedAt)

	assert.Contains(t, out, "Order #42")
	assert.Contains(t, out, "Maria Lopez")
	assert.Contains(t, out, "555-0101")
	assert.Contains(t, out, "120.00")
	assert.Contains(t, out, "50.00")
	assert.Contains(t, out, "70.00")
	assert.Contains(t, out, "2026-08-31 14:30")
}

func TestRenderReceiptOmitsEmptyFields(t *testing.T) {
	order := &model.Order{ReadableID: 7, DeviceModel: "Pixel 8", Status: model.StatusPending}

	out := RenderReceipt(order, decimal.Zero, decimal.Zero, time.Now())

	assert.NotContains(t, out, "IMEI")
	assert.NotContains(t, out, "Customer")
	assert.NotContains(t, out, "Accessories")
}

func TestRenderedLinesFitThePrinter(t *testing.T) {
	order := &model.Order{
		ReadableID:  9,
		DeviceModel: "Galaxy S21",
		Status:      model.StatusRepaired,
		Customer:    &model.Customer{Name: "Ana"},
	}

	out := RenderReceipt(order, decimal.NewFromInt(99), decimal.NewFromInt(99), time.Now())
	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, len(line), lineWidth)
	}
}

func TestRenderClosingReport(t *testing.T) {
	closing := &model.CashClosing{
		ExpectedTotal: decimal.NewFromInt(60),
		CountedTotal:  decimal.NewFromInt(58),
		Difference:    decimal.NewFromInt(-2),
		PaymentCount:  2,
		Note:          "short two",
		CreatedAt:     time.Date(2026, 8, 31, 20, 0, 0, 0, time.UTC),
	}

	out := RenderClosingReport(closing, "carla")

	assert.Contains(t, out, "CASH CLOSING")
	assert.Contains(t, out, "carla")
	assert.Contains(t, out, "60.00")
	assert.Contains(t, out, "58.00")
	assert.Contains(t, out, "-2.00")
	assert.Contains(t, out, "short two")
}
