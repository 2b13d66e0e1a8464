package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Action tags recorded against an invoice.
const (
	ActionCreated         = "created"
	ActionUpdated         = "updated"
	ActionDeleted         = "deleted"
	ActionMarkedPaid      = "marked_paid"
	ActionVoided          = "voided"
	ActionStatusChanged   = "status_changed"
	ActionLineItemAdded   = "line_item_added"
	ActionLineItemUpdated = "line_item_updated"
	ActionLineItemDeleted = "line_item_deleted"
	ActionPaymentRecorded = "payment_recorded"
	ActionPaymentUpdated  = "payment_updated"
	ActionPaymentDeleted  = "payment_deleted"
)

// Entry is an immutable, append-only record of a state-changing action
// against an invoice. Entries are never updated or deleted.
type Entry struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	InvoiceID   snowflake.ID      `gorm:"not null;index:ix_history_invoice"`
	OrgID       snowflake.ID      `gorm:"not null;index"`
	Action      string            `gorm:"type:text;not null"`
	OldValue    *string           `gorm:"type:text"`
	NewValue    *string           `gorm:"type:text"`
	Description string            `gorm:"type:text;not null;default:''"`
	ActorType   string            `gorm:"type:text;not null;default:'system'"`
	ActorID     *string           `gorm:"type:text"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index:ix_history_invoice"`
}

// TableName sets the database table name.
func (Entry) TableName() string { return "invoice_history" }
