package service

import (
	"testing"
	"time"

	"github.com/fieldhive/opsledger/internal/invoice/domain"
	"github.com/shopspring/decimal"
)

func dec(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}

func items(pairs ...string) []domain.LineItem {
	out := make([]domain.LineItem, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, domain.LineItem{
			Quantity:  dec(pairs[i]),
			UnitPrice: dec(pairs[i+1]),
		})
	}
	return out
}

func payments(amounts ...string) []domain.PaymentRecord {
	out := make([]domain.PaymentRecord, 0, len(amounts))
	for _, amount := range amounts {
		out = append(out, domain.PaymentRecord{Amount: dec(amount)})
	}
	return out
}

func TestCalculateEmptyInvoice(t *testing.T) {
	result := Calculate(CalcInput{Status: domain.StatusDraft, Now: time.Now()})

	if !result.SubTotal.IsZero() || !result.TotalAmount.IsZero() || !result.BalanceDue.IsZero() {
		t.Fatalf("expected all-zero totals, got %+v", result)
	}
	if result.Status != domain.StatusDraft {
		t.Fatalf("expected draft, got %s", result.Status)
	}
}

func TestCalculateSimpleTaxedInvoice(t *testing.T) {
	result := Calculate(CalcInput{
		TaxRate:   dec("0.08"),
		LineItems: items("2", "50.00"),
		Status:    domain.StatusDraft,
		Now:       time.Now(),
	})

	if !result.SubTotal.Equal(dec("100.00")) ||
		!result.TaxAmount.Equal(dec("8.00")) ||
		!result.TotalAmount.Equal(dec("108.00")) ||
		!result.BalanceDue.Equal(dec("108.00")) {
		t.Fatalf("got sub=%s tax=%s total=%s balance=%s, want 100/8/108/108",
			result.SubTotal, result.TaxAmount, result.TotalAmount, result.BalanceDue)
	}
	if result.Status != domain.StatusDraft {
		t.Fatalf("status = %s, want draft", result.Status)
	}
}

func TestCalculateSubtotalAndTax(t *testing.T) {
	result := Calculate(CalcInput{
		TaxRate:   dec("0.10"),
		LineItems: items("2", "100.00", "1", "50.00"),
		Status:    domain.StatusDraft,
		Now:       time.Now(),
	})

	if !result.SubTotal.Equal(dec("250.00")) {
		t.Fatalf("subtotal = %s, want 250.00", result.SubTotal)
	}
	if !result.TaxAmount.Equal(dec("25.00")) {
		t.Fatalf("tax = %s, want 25.00", result.TaxAmount)
	}
	if !result.TotalAmount.Equal(dec("275.00")) {
		t.Fatalf("total = %s, want 275.00", result.TotalAmount)
	}
	if !result.BalanceDue.Equal(dec("275.00")) {
		t.Fatalf("balance = %s, want 275.00", result.BalanceDue)
	}
}

func TestCalculatePercentageDiscount(t *testing.T) {
	result := Calculate(CalcInput{
		TaxRate:       dec("0.10"),
		DiscountType:  domain.DiscountTypePercentage,
		DiscountValue: dec("20"),
		LineItems:     items("1", "100.00"),
		Status:        domain.StatusSent,
		Now:           time.Now(),
	})

	if !result.DiscountAmount.Equal(dec("20.00")) {
		t.Fatalf("discount = %s, want 20.00", result.DiscountAmount)
	}
	// (100 - 20) + 10 tax on the undiscounted subtotal.
	if !result.TotalAmount.Equal(dec("90.00")) {
		t.Fatalf("total = %s, want 90.00", result.TotalAmount)
	}
}

func TestCalculateFixedDiscount(t *testing.T) {
	result := Calculate(CalcInput{
		DiscountType:  domain.DiscountTypeFixed,
		DiscountValue: dec("15.50"),
		LineItems:     items("1", "100.00"),
		Status:        domain.StatusSent,
		Now:           time.Now(),
	})

	if !result.DiscountAmount.Equal(dec("15.50")) {
		t.Fatalf("discount = %s, want 15.50", result.DiscountAmount)
	}
	if !result.TotalAmount.Equal(dec("84.50")) {
		t.Fatalf("total = %s, want 84.50", result.TotalAmount)
	}
}

func TestCalculatePartialPayment(t *testing.T) {
	result := Calculate(CalcInput{
		LineItems: items("1", "200.00"),
		Payments:  payments("50.00"),
		Status:    domain.StatusSent,
		Now:       time.Now(),
	})

	if !result.AmountPaid.Equal(dec("50.00")) {
		t.Fatalf("paid = %s, want 50.00", result.AmountPaid)
	}
	if !result.BalanceDue.Equal(dec("150.00")) {
		t.Fatalf("balance = %s, want 150.00", result.BalanceDue)
	}
	if result.Status != domain.StatusPartial {
		t.Fatalf("status = %s, want partial", result.Status)
	}
}

func TestCalculateFullPayment(t *testing.T) {
	result := Calculate(CalcInput{
		LineItems: items("1", "200.00"),
		Payments:  payments("120.00", "80.00"),
		Status:    domain.StatusPartial,
		Now:       time.Now(),
	})

	if !result.BalanceDue.IsZero() {
		t.Fatalf("balance = %s, want 0", result.BalanceDue)
	}
	if result.Status != domain.StatusPaid {
		t.Fatalf("status = %s, want paid", result.Status)
	}
}

func TestCalculateOverpaymentClampsBalance(t *testing.T) {
	result := Calculate(CalcInput{
		LineItems: items("1", "100.00"),
		Payments:  payments("150.00"),
		Status:    domain.StatusSent,
		Now:       time.Now(),
	})

	if !result.BalanceDue.IsZero() {
		t.Fatalf("balance = %s, want 0", result.BalanceDue)
	}
	if !result.AmountPaid.Equal(dec("150.00")) {
		t.Fatalf("paid = %s, want 150.00", result.AmountPaid)
	}
	if result.Status != domain.StatusPaid {
		t.Fatalf("status = %s, want paid", result.Status)
	}
}

func TestCalculateOverdue(t *testing.T) {
	yesterday := time.Now().Add(-24 * time.Hour)
	result := Calculate(CalcInput{
		LineItems: items("1", "100.00"),
		DueAt:     &yesterday,
		Status:    domain.StatusSent,
		Now:       time.Now(),
	})

	if result.Status != domain.StatusOverdue {
		t.Fatalf("status = %s, want overdue", result.Status)
	}
}

func TestCalculateNotOverdueBeforeDue(t *testing.T) {
	tomorrow := time.Now().Add(24 * time.Hour)
	result := Calculate(CalcInput{
		LineItems: items("1", "100.00"),
		DueAt:     &tomorrow,
		Status:    domain.StatusSent,
		Now:       time.Now(),
	})

	if result.Status != domain.StatusSent {
		t.Fatalf("status = %s, want sent", result.Status)
	}
}

func TestCalculatePreservesTerminalStatus(t *testing.T) {
	result := Calculate(CalcInput{
		LineItems: items("1", "100.00"),
		Payments:  payments("100.00"),
		Status:    domain.StatusVoid,
		Now:       time.Now(),
	})

	if result.Status != domain.StatusVoid {
		t.Fatalf("status = %s, want void", result.Status)
	}
}

func TestCalculatePaidDoesNotRegressToPartial(t *testing.T) {
	// A paid invoice whose payment was later deleted shows a positive
	// balance again, but paid only transitions to void or cancelled.
	result := Calculate(CalcInput{
		LineItems: items("1", "100.00"),
		Payments:  payments("40.00"),
		Status:    domain.StatusPaid,
		Now:       time.Now(),
	})

	if result.Status != domain.StatusPaid {
		t.Fatalf("status = %s, want paid", result.Status)
	}
}

func TestCalculateNegativePaymentSumClampsToZero(t *testing.T) {
	result := Calculate(CalcInput{
		LineItems: items("1", "100.00"),
		Payments:  payments("-25.00"),
		Status:    domain.StatusSent,
		Now:       time.Now(),
	})

	if !result.AmountPaid.IsZero() {
		t.Fatalf("paid = %s, want 0", result.AmountPaid)
	}
	if result.Status != domain.StatusSent {
		t.Fatalf("status = %s, want sent", result.Status)
	}
}

func TestCalculateIsIdempotent(t *testing.T) {
	in := CalcInput{
		TaxRate:       dec("0.0875"),
		DiscountType:  domain.DiscountTypePercentage,
		DiscountValue: dec("10"),
		LineItems:     items("3", "19.99", "1.5", "80.00"),
		Payments:      payments("25.00"),
		Status:        domain.StatusSent,
		Now:           time.Now(),
	}

	first := Calculate(in)
	in.Status = first.Status
	second := Calculate(in)

	if !first.TotalAmount.Equal(second.TotalAmount) ||
		!first.BalanceDue.Equal(second.BalanceDue) ||
		first.Status != second.Status {
		t.Fatalf("recalculation drifted: first %+v second %+v", first, second)
	}
}

func TestCalculateInvariants(t *testing.T) {
	result := Calculate(CalcInput{
		TaxRate:       dec("0.05"),
		DiscountType:  domain.DiscountTypeFixed,
		DiscountValue: dec("12.34"),
		LineItems:     items("2", "99.99", "4", "0.25"),
		Payments:      payments("10.00", "20.00"),
		Status:        domain.StatusSent,
		Now:           time.Now(),
	})

	wantTotal := result.SubTotal.Sub(result.DiscountAmount).Add(result.TaxAmount)
	if !result.TotalAmount.Equal(wantTotal) {
		t.Fatalf("total %s != (sub - discount) + tax %s", result.TotalAmount, wantTotal)
	}

	wantBalance := result.TotalAmount.Sub(result.AmountPaid)
	if wantBalance.IsNegative() {
		wantBalance = decimal.Zero
	}
	if !result.BalanceDue.Equal(wantBalance) {
		t.Fatalf("balance %s != max(0, total - paid) %s", result.BalanceDue, wantBalance)
	}
}
