package service

import (
	"time"

	"github.com/fieldhive/opsledger/internal/invoice/domain"
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// CalcInput is everything the recalculation engine reads: the invoice's
// current non-deleted line items and payments plus its tax and discount
// configuration. Soft-deleted rows must be filtered out by the caller.
type CalcInput struct {
	TaxRate       decimal.Decimal
	DiscountType  domain.DiscountType
	DiscountValue decimal.Decimal
	LineItems     []domain.LineItem
	Payments      []domain.PaymentRecord
	DueAt         *time.Time
	Status        domain.Status
	Now           time.Time
}

// CalcResult carries the six persisted monetary fields and the derived
// lifecycle status.
type CalcResult struct {
	SubTotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal
	AmountPaid     decimal.Decimal
	BalanceDue     decimal.Decimal
	Status         domain.Status
}

// Calculate re-derives an invoice's totals and status. It is a pure
// function of its input, so recalculation is idempotent and safe to
// re-run at any time.
//
// Invariants on the result:
//
//	TotalAmount = (SubTotal - DiscountAmount) + TaxAmount
//	BalanceDue  = max(0, TotalAmount - AmountPaid)
func Calculate(in CalcInput) CalcResult {
	subTotal := decimal.Zero
	for _, item := range in.LineItems {
		subTotal = subTotal.Add(item.Quantity.Mul(item.UnitPrice))
	}
	subTotal = subTotal.Round(2)

	// The invoice-level tax rate applies uniformly to every line.
	taxAmount := subTotal.Mul(in.TaxRate).Round(2)

	var discountAmount decimal.Decimal
	switch in.DiscountType {
	case domain.DiscountTypePercentage:
		discountAmount = subTotal.Mul(in.DiscountValue.Div(oneHundred)).Round(2)
	case domain.DiscountTypeFixed:
		discountAmount = in.DiscountValue.Round(2)
	default:
		discountAmount = decimal.Zero
	}

	totalAmount := subTotal.Sub(discountAmount).Add(taxAmount)

	amountPaid := decimal.Zero
	for _, payment := range in.Payments {
		amountPaid = amountPaid.Add(payment.Amount)
	}
	amountPaid = amountPaid.Round(2)
	if amountPaid.IsNegative() {
		amountPaid = decimal.Zero
	}

	balanceDue := totalAmount.Sub(amountPaid)
	if balanceDue.IsNegative() {
		balanceDue = decimal.Zero
	}

	return CalcResult{
		SubTotal:       subTotal,
		TaxAmount:      taxAmount,
		DiscountAmount: discountAmount,
		TotalAmount:    totalAmount,
		AmountPaid:     amountPaid,
		BalanceDue:     balanceDue,
		Status:         deriveStatus(in, amountPaid, balanceDue),
	}
}

// deriveStatus returns the lifecycle status the ledger implies. Manual
// terminal overrides (void, cancelled) are never clobbered, and every
// derived transition still passes the state machine guards.
func deriveStatus(in CalcInput, amountPaid, balanceDue decimal.Decimal) domain.Status {
	current := in.Status
	if current.Terminal() {
		return current
	}

	candidate := current
	switch {
	case balanceDue.IsZero() && amountPaid.IsPositive():
		candidate = domain.StatusPaid
	case amountPaid.IsPositive() && balanceDue.IsPositive():
		candidate = domain.StatusPartial
	case balanceDue.IsPositive() && in.DueAt != nil && in.DueAt.Before(in.Now):
		candidate = domain.StatusOverdue
	}

	if candidate == current || !current.CanTransition(candidate) {
		return current
	}
	return candidate
}
