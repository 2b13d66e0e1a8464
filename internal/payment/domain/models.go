package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Payment is a recorded amount applied against an invoice's balance,
// uniquely numbered per organization in a namespace independent from
// invoice numbers. Every non-deleted payment is treated as fully
// settled; there is no pending/cleared distinction.
type Payment struct {
	ID              snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceID       snowflake.ID    `gorm:"not null;index" json:"invoice_id"`
	OrgID           snowflake.ID    `gorm:"not null;index;uniqueIndex:ux_payments_org_number,priority:1" json:"organization_id"`
	PaymentNumber   string          `gorm:"type:text;not null;uniqueIndex:ux_payments_org_number,priority:2" json:"payment_number"`
	Amount          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	PaymentDate     time.Time       `gorm:"not null" json:"payment_date"`
	Method          string          `gorm:"type:text;not null;default:''" json:"method"`
	ReferenceNumber string          `gorm:"type:text;not null;default:''" json:"reference_number"`
	Notes           string          `gorm:"type:text;not null;default:''" json:"notes"`
	IsDeleted       bool            `gorm:"not null;default:false" json:"is_deleted"`
	DeletedAt       *time.Time      `json:"deleted_at,omitempty"`
	CreatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }
