// Package printing renders plain-text documents for the counter printer.
// Rendering is pure; the caller decides where the text goes.
package printing

import (
	"fmt"
	"strings"
	"time"

	"fixtrack/backend/internal/model"

	"github.com/shopspring/decimal"
)

const lineWidth = 42

// RenderReceipt produces the intake/delivery ticket for an order. The charge
// and paid totals come from the caller so the receipt always matches what was
// actually computed and persisted.
func RenderReceipt(order *model.Order, charge, paid decimal.Decimal, printedAt time.Time) string {
	var b strings.Builder

	center(&b, "FIXTRACK REPAIR SHOP")
	center(&b, fmt.Sprintf("Order #%d", order.ReadableID))
	rule(&b)

	row(&b, "Date", printedAt.Format("2006-01-02 15:04"))
	if order.Customer != nil {
		row(&b, "Customer", order.Customer.Name)
		if order.Customer.Phone != "" {
			row(&b, "Phone", order.Customer.Phone)
		}
	}
	row(&b, "Device", order.DeviceModel)
	if order.IMEI != "" {
		row(&b, "IMEI", order.IMEI)
	}
	if order.Issue != "" {
		row(&b, "Issue", order.Issue)
	}
	if order.Accessories != "" {
		row(&b, "Accessories", order.Accessories)
	}
	row(&b, "Status", order.Status)

	rule(&b)
	row(&b, "Charge", charge.StringFixed(2))
	row(&b, "Paid", paid.StringFixed(2))
	row(&b, "Due", charge.Sub(paid).StringFixed(2))
	rule(&b)

	center(&b, "Thank you for your visit")
	return b.String()
}

// RenderClosingReport formats a cash closing for the drawer envelope.
func RenderClosingReport(closing *model.CashClosing, cashierName string) string {
	var b strings.Builder

	center(&b, "CASH CLOSING")
	rule(&b)
	row(&b, "Cashier", cashierName)
	row(&b, "Date", closing.CreatedAt.Format("2006-01-02 15:04"))
	row(&b, "Payments", fmt.Sprintf("%d", closing.PaymentCount))
	rule(&b)
	row(&b, "Expected", closing.ExpectedTotal.StringFixed(2))
	row(&b, "Counted", closing.CountedTotal.StringFixed(2))
	row(&b, "Difference", closing.Difference.StringFixed(2))
	if closing.Note != "" {
		rule(&b)
		row(&b, "Note", closing.Note)
	}
	rule(&b)
	return b.String()
}

func center(b *strings.Builder, text string) {
	if len(text) >= lineWidth {
		b.WriteString(text + "\n")
		return
	}
	pad := (lineWidth - len(text)) / 2
	b.WriteString(strings.Repeat(" ", pad) + text + "\n")
}

func rule(b *strings.Builder) {
	b.WriteString(strings.Repeat("-", lineWidth) + "\n")
}

func row(b *strings.Builder, label, value string) {
	gap := lineWidth - len(label) - len(value)
	if gap < 1 {
		gap = 1
	}
	b.WriteString(label + strings.Repeat(" ", gap) + value + "\n")
}
