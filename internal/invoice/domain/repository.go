package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository owns row access for invoices and their children. All methods
// take the caller's db handle so they participate in its transaction.
// Finders exclude soft-deleted rows unless stated otherwise.
type Repository interface {
	InsertInvoice(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindInvoice(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID) (*Invoice, error)
	// FindInvoiceByID looks up without an organization scope; callers
	// must validate ownership afterwards.
	FindInvoiceByID(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) (*Invoice, error)
	UpdateInvoiceFields(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID, fields map[string]any) (int64, error)
	SoftDeleteInvoice(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID, deletedBy string, at time.Time) (int64, error)

	InsertLineItem(ctx context.Context, db *gorm.DB, item *LineItem) error
	FindLineItem(ctx context.Context, db *gorm.DB, orgID, invoiceID, lineItemID snowflake.ID) (*LineItem, error)
	UpdateLineItemFields(ctx context.Context, db *gorm.DB, orgID, invoiceID, lineItemID snowflake.ID, fields map[string]any) (int64, error)
	ListLineItems(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID) ([]LineItem, error)
	SoftDeleteLineItems(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID, at time.Time) (int64, error)

	ListDocuments(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID) ([]Document, error)
	SoftDeleteDocuments(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID, at time.Time) (int64, error)

	// ListPayments returns the non-deleted payments applied against an
	// invoice, the recalculation engine's second input.
	ListPayments(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID) ([]PaymentRecord, error)

	// FindJobOwner and FindBidOwner resolve owning organization/client
	// rows for the derivation chain.
	FindJobOwner(ctx context.Context, db *gorm.DB, jobID snowflake.ID) (*Owner, error)
	FindBidOwner(ctx context.Context, db *gorm.DB, bidID snowflake.ID) (*Owner, error)
}
