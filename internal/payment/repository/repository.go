package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldhive/opsledger/internal/payment/domain"
	"gorm.io/gorm"
)

type repositoryImpl struct{}

// Provide constructs the payment repository.
func Provide() domain.Repository {
	return &repositoryImpl{}
}

func (r *repositoryImpl) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Create(payment).Error
}

func (r *repositoryImpl) Find(ctx context.Context, db *gorm.DB, orgID, invoiceID, paymentID snowflake.ID) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).
		Where("org_id = ? AND invoice_id = ? AND id = ? AND is_deleted = ?", orgID, invoiceID, paymentID, false).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repositoryImpl) UpdateFields(ctx context.Context, db *gorm.DB, orgID, invoiceID, paymentID snowflake.ID, fields map[string]any) (int64, error) {
	result := db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("org_id = ? AND invoice_id = ? AND id = ? AND is_deleted = ?", orgID, invoiceID, paymentID, false).
		Updates(fields)
	return result.RowsAffected, result.Error
}
