package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldhive/opsledger/internal/invoice/domain"
	"github.com/fieldhive/opsledger/internal/observability/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Recalculate re-derives the invoice's totals and status from its current
// line items and payments and persists them. It re-reads the full row set
// rather than adjusting totals incrementally, so it is idempotent and safe
// to re-run. It takes no row lock: two concurrent recalculations can
// interleave and the last writer wins, which is acceptable because both
// derive from the same source rows.
func (s *Service) Recalculate(ctx context.Context, orgID, invoiceID snowflake.ID) (*domain.Invoice, error) {
	var invoice *domain.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		invoice, err = s.recalculateTx(ctx, tx, orgID, invoiceID)
		return err
	})
	if err != nil {
		metrics.RecalculationTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.RecalculationTotal.WithLabelValues("ok").Inc()
	return invoice, nil
}

func (s *Service) recalculateTx(ctx context.Context, tx *gorm.DB, orgID, invoiceID snowflake.ID) (*domain.Invoice, error) {
	invoice, err := s.repo.FindInvoice(ctx, tx, orgID, invoiceID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListLineItems(ctx, tx, orgID, invoiceID)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, tx, orgID, invoiceID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	result := Calculate(CalcInput{
		TaxRate:       invoice.TaxRate,
		DiscountType:  invoice.DiscountType,
		DiscountValue: invoice.DiscountValue,
		LineItems:     items,
		Payments:      payments,
		DueAt:         invoice.DueAt,
		Status:        invoice.Status,
		Now:           now,
	})

	fields := map[string]any{
		"line_item_sub_total": result.SubTotal,
		"tax_amount":          result.TaxAmount,
		"discount_amount":     result.DiscountAmount,
		"total_amount":        result.TotalAmount,
		"amount_paid":         result.AmountPaid,
		"balance_due":         result.BalanceDue,
		"updated_at":          now,
	}

	// Status is written only when it actually changes, to avoid spurious
	// audit noise.
	if result.Status != invoice.Status {
		fields["status"] = result.Status
		if result.Status == domain.StatusPaid {
			fields["paid_at"] = now
		} else if invoice.Status == domain.StatusPaid {
			fields["paid_at"] = nil
		}
	}

	rows, err := s.repo.UpdateInvoiceFields(ctx, tx, orgID, invoiceID, fields)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, domain.ErrInvoiceNotFound
	}

	if result.Status != invoice.Status {
		if err := s.recordStatusChange(ctx, tx, invoice, result.Status, "status derived from ledger"); err != nil {
			return nil, err
		}
		s.log.Info("invoice status derived",
			zap.String("invoice_id", invoiceID.String()),
			zap.String("from", string(invoice.Status)),
			zap.String("to", string(result.Status)),
		)
	}

	return s.repo.FindInvoice(ctx, tx, orgID, invoiceID)
}
