package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	historydomain "github.com/fieldhive/opsledger/internal/history/domain"
	"github.com/shopspring/decimal"
)

// CreateLineItemInput is one billable row supplied at invoice creation.
type CreateLineItemInput struct {
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	BillingPercent decimal.Decimal `json:"billing_percent"`
	BilledAmount   decimal.Decimal `json:"billed_amount"`
	SortOrder      int             `json:"sort_order"`
}

// CreateRequest creates an invoice. The owning organization is taken
// from OrgID when supplied, otherwise derived by following job -> bid ->
// organization. Monetary totals are accepted as given; they are not
// derived from line items at creation time. The first recalculation-
// triggering mutation re-derives all of them.
type CreateRequest struct {
	OrgID    snowflake.ID
	JobID    snowflake.ID
	BidID    snowflake.ID
	ClientID snowflake.ID

	IssuedAt *time.Time
	DueAt    *time.Time

	LineItemSubTotal decimal.Decimal
	TaxRate          decimal.Decimal
	TaxAmount        decimal.Decimal
	DiscountType     DiscountType
	DiscountValue    decimal.Decimal
	DiscountAmount   decimal.Decimal
	TotalAmount      decimal.Decimal

	BillingAddress string
	Terms          string

	LineItems []CreateLineItemInput
}

// CreateResult is the identity of the new invoice and its resolved owner.
type CreateResult struct {
	InvoiceID     snowflake.ID `json:"invoice_id"`
	InvoiceNumber string       `json:"invoice_number"`
	OrgID         snowflake.ID `json:"organization_id"`
}

// UpdateRequest merges only the supplied fields into the invoice row.
// Touching TaxRate, DiscountType or DiscountValue triggers recalculation.
type UpdateRequest struct {
	OrgID     snowflake.ID
	InvoiceID snowflake.ID

	IssuedAt       *time.Time
	DueAt          *time.Time
	TaxRate        *decimal.Decimal
	DiscountType   *DiscountType
	DiscountValue  *decimal.Decimal
	BillingAddress *string
	Terms          *string
	Status         *Status
}

// AddLineItemRequest appends a billable row to an invoice.
type AddLineItemRequest struct {
	OrgID     snowflake.ID
	InvoiceID snowflake.ID
	Item      CreateLineItemInput
}

// UpdateLineItemRequest merges supplied fields into a line item row.
type UpdateLineItemRequest struct {
	OrgID      snowflake.ID
	InvoiceID  snowflake.ID
	LineItemID snowflake.ID

	Title          *string
	Description    *string
	Quantity       *decimal.Decimal
	UnitPrice      *decimal.Decimal
	BillingPercent *decimal.Decimal
	SortOrder      *int
}

// DeleteLineItemRequest soft-deletes a line item.
type DeleteLineItemRequest struct {
	OrgID      snowflake.ID
	InvoiceID  snowflake.ID
	LineItemID snowflake.ID
}

// GetRequest composes an invoice with its children.
type GetRequest struct {
	OrgID     snowflake.ID
	InvoiceID snowflake.ID

	IncludeLineItems bool
	IncludePayments  bool
	IncludeDocuments bool
	IncludeHistory   bool
}

// View is the composed read model for one invoice.
type View struct {
	Invoice   Invoice               `json:"invoice"`
	LineItems []LineItem            `json:"line_items,omitempty"`
	Payments  []PaymentRecord       `json:"payments,omitempty"`
	Documents []Document            `json:"documents,omitempty"`
	History   []historydomain.Entry `json:"history,omitempty"`
}

// OverrideRequest is a manual terminal-leaning status override
// (mark paid / void) with an operator-supplied reason.
type OverrideRequest struct {
	OrgID     snowflake.ID
	InvoiceID snowflake.ID
	Reason    string
}

// BulkDeleteResult reports which invoices a bulk soft-delete touched.
type BulkDeleteResult struct {
	Deleted []snowflake.ID `json:"deleted"`
	Skipped []snowflake.ID `json:"skipped"`
}

// Service is the invoice aggregate: creation, mutation, composition and
// the recalculation engine.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*CreateResult, error)
	Update(ctx context.Context, req UpdateRequest) (*Invoice, error)
	Get(ctx context.Context, req GetRequest) (*View, error)
	Delete(ctx context.Context, orgID, invoiceID snowflake.ID) error
	BulkDelete(ctx context.Context, orgID snowflake.ID, invoiceIDs []snowflake.ID) (BulkDeleteResult, error)

	AddLineItem(ctx context.Context, req AddLineItemRequest) (*LineItem, error)
	UpdateLineItem(ctx context.Context, req UpdateLineItemRequest) (*LineItem, error)
	DeleteLineItem(ctx context.Context, req DeleteLineItemRequest) error

	MarkPaid(ctx context.Context, req OverrideRequest) (*Invoice, error)
	Void(ctx context.Context, req OverrideRequest) (*Invoice, error)

	// Recalculate re-derives totals and status from the invoice's current
	// line items and payments. Idempotent; safe to re-run.
	Recalculate(ctx context.Context, orgID, invoiceID snowflake.ID) (*Invoice, error)

	// ResolveOwner follows job -> bid -> organization. Used by invoice and
	// payment creation.
	ResolveOwner(ctx context.Context, jobID, bidID, orgID snowflake.ID) (Owner, error)
}

// ParseID parses a path or query identifier.
func ParseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

var (
	ErrInvalidID               = errors.New("invalid_id")
	ErrInvalidOrganization     = errors.New("invalid_organization")
	ErrInvoiceNotFound         = errors.New("invoice_not_found")
	ErrLineItemNotFound        = errors.New("line_item_not_found")
	ErrJobNotFound             = errors.New("job_not_found")
	ErrBidNotFound             = errors.New("bid_not_found")
	ErrMissingOwnerReference   = errors.New("missing_owner_reference")
	ErrInvalidOwner            = errors.New("invalid_owner")
	ErrInvalidStatus           = errors.New("invalid_status")
	ErrInvalidStatusTransition = errors.New("invalid_status_transition")
	ErrInvalidDiscountType     = errors.New("invalid_discount_type")
	ErrInvalidTaxRate          = errors.New("invalid_tax_rate")
	ErrInvalidQuantity         = errors.New("invalid_quantity")
	ErrInvalidUnitPrice        = errors.New("invalid_unit_price")
	ErrInvalidTitle            = errors.New("invalid_title")
	ErrDuplicateDocumentNumber = errors.New("duplicate_document_number")
)
