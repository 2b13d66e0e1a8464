package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	Find(ctx context.Context, db *gorm.DB, orgID, invoiceID, paymentID snowflake.ID) (*Payment, error)
	UpdateFields(ctx context.Context, db *gorm.DB, orgID, invoiceID, paymentID snowflake.ID, fields map[string]any) (int64, error)
}
