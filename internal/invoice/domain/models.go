package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Invoice is one billing event, uniquely numbered per organization.
// Monetary fields are re-derived from line items and payments by the
// recalculation engine; balance_due = max(0, total_amount - amount_paid)
// holds after every recalculation.
type Invoice struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID         snowflake.ID  `gorm:"not null;index;uniqueIndex:ux_invoices_org_number,priority:1" json:"organization_id"`
	JobID         *snowflake.ID `gorm:"index" json:"job_id,omitempty"`
	BidID         *snowflake.ID `gorm:"index" json:"bid_id,omitempty"`
	ClientID      *snowflake.ID `gorm:"index" json:"client_id,omitempty"`
	InvoiceNumber string        `gorm:"type:text;not null;uniqueIndex:ux_invoices_org_number,priority:2" json:"invoice_number"`
	Status        Status        `gorm:"type:text;not null;default:'draft'" json:"status"`

	IssuedAt *time.Time `gorm:"column:issued_at" json:"issued_at,omitempty"`
	DueAt    *time.Time `gorm:"column:due_at" json:"due_at,omitempty"`
	PaidAt   *time.Time `gorm:"column:paid_at" json:"paid_at,omitempty"`

	LineItemSubTotal decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"line_item_sub_total"`
	TaxRate          decimal.Decimal `gorm:"type:numeric(6,4);not null;default:0" json:"tax_rate"`
	TaxAmount        decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"tax_amount"`
	DiscountType     DiscountType    `gorm:"type:text;not null;default:'none'" json:"discount_type"`
	DiscountValue    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"discount_value"`
	DiscountAmount   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"discount_amount"`
	TotalAmount      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total_amount"`
	AmountPaid       decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"amount_paid"`
	BalanceDue       decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"balance_due"`

	BillingAddress string `gorm:"type:text;not null;default:''" json:"billing_address"`
	Terms          string `gorm:"type:text;not null;default:''" json:"terms"`

	IsDeleted bool       `gorm:"not null;default:false;index" json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	DeletedBy *string    `gorm:"type:text" json:"deleted_by,omitempty"`
	CreatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// LineItem is one billable row on an invoice. Deleting a line item is a
// soft delete so audit history survives; deleted rows are excluded from
// recalculation.
type LineItem struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceID      snowflake.ID    `gorm:"not null;index" json:"invoice_id"`
	OrgID          snowflake.ID    `gorm:"not null;index" json:"organization_id"`
	Title          string          `gorm:"type:text;not null" json:"title"`
	Description    string          `gorm:"type:text;not null;default:''" json:"description"`
	Quantity       decimal.Decimal `gorm:"type:numeric(12,4);not null;default:1" json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"unit_price"`
	BillingPercent decimal.Decimal `gorm:"type:numeric(6,2);not null;default:100" json:"billing_percent"`
	BilledAmount   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"billed_amount"`
	SortOrder      int             `gorm:"not null;default:0" json:"sort_order"`
	IsDeleted      bool            `gorm:"not null;default:false" json:"is_deleted"`
	DeletedAt      *time.Time      `json:"deleted_at,omitempty"`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (LineItem) TableName() string { return "invoice_line_items" }

// Document is a file reference attached to an invoice. Cascaded on
// invoice soft-delete and composed into reads.
type Document struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceID snowflake.ID `gorm:"not null;index" json:"invoice_id"`
	OrgID     snowflake.ID `gorm:"not null;index" json:"organization_id"`
	FileName  string       `gorm:"type:text;not null" json:"file_name"`
	FileURL   string       `gorm:"type:text;not null" json:"file_url"`
	IsDeleted bool         `gorm:"not null;default:false" json:"is_deleted"`
	DeletedAt *time.Time   `json:"deleted_at,omitempty"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Document) TableName() string { return "invoice_documents" }

// PaymentRecord is the read model the invoice side uses for composition
// and recalculation. The payment package owns the writable model.
type PaymentRecord struct {
	ID              snowflake.ID    `gorm:"column:id" json:"id"`
	PaymentNumber   string          `gorm:"column:payment_number" json:"payment_number"`
	Amount          decimal.Decimal `gorm:"column:amount" json:"amount"`
	PaymentDate     time.Time       `gorm:"column:payment_date" json:"payment_date"`
	Method          string          `gorm:"column:method" json:"method"`
	ReferenceNumber string          `gorm:"column:reference_number" json:"reference_number"`
	Notes           string          `gorm:"column:notes" json:"notes"`
	CreatedAt       time.Time       `gorm:"column:created_at" json:"created_at"`
}

// Owner is the resolved owning organization and client for an invoice
// or payment, derived by following job -> bid -> organization.
type Owner struct {
	OrgID    snowflake.ID
	ClientID *snowflake.ID
	JobID    *snowflake.ID
	BidID    *snowflake.ID
}
