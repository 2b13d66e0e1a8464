package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// CreateRequest records a payment against an invoice. The owning
// organization is derived through the invoice's job -> bid chain; an
// explicitly supplied organization must match the derived one.
type CreateRequest struct {
	OrgID     snowflake.ID
	InvoiceID snowflake.ID

	Amount          decimal.Decimal
	PaymentDate     *time.Time
	Method          string
	ReferenceNumber string
	Notes           string
}

// UpdateRequest merges supplied fields into a payment row.
type UpdateRequest struct {
	OrgID     snowflake.ID
	InvoiceID snowflake.ID
	PaymentID snowflake.ID

	Amount          *decimal.Decimal
	PaymentDate     *time.Time
	Method          *string
	ReferenceNumber *string
	Notes           *string
}

// DeleteRequest soft-deletes a payment.
type DeleteRequest struct {
	OrgID     snowflake.ID
	InvoiceID snowflake.ID
	PaymentID snowflake.ID
}

// Service owns payment records. Every mutation triggers recalculation of
// the parent invoice after the payment transaction commits: the payment
// number must be durably assigned before totals are recomputed.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Payment, error)
	Update(ctx context.Context, req UpdateRequest) (*Payment, error)
	Delete(ctx context.Context, req DeleteRequest) error
}

var (
	ErrPaymentNotFound = errors.New("payment_not_found")
	ErrInvalidAmount   = errors.New("invalid_amount")
)
