package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldhive/opsledger/internal/invoice/domain"
	"gorm.io/gorm"
)

type repositoryImpl struct{}

// Provide constructs the invoice repository.
func Provide() domain.Repository {
	return &repositoryImpl{}
}

func (r *repositoryImpl) InsertInvoice(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Create(invoice).Error
}

func (r *repositoryImpl) FindInvoice(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ? AND is_deleted = ?", orgID, invoiceID, false).
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repositoryImpl) FindInvoiceByID(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", invoiceID, false).
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repositoryImpl) UpdateInvoiceFields(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID, fields map[string]any) (int64, error) {
	result := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("org_id = ? AND id = ? AND is_deleted = ?", orgID, invoiceID, false).
		Updates(fields)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) SoftDeleteInvoice(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID, deletedBy string, at time.Time) (int64, error) {
	fields := map[string]any{
		"is_deleted": true,
		"deleted_at": at,
		"updated_at": at,
	}
	if deletedBy != "" {
		fields["deleted_by"] = deletedBy
	}
	result := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("org_id = ? AND id = ? AND is_deleted = ?", orgID, invoiceID, false).
		Updates(fields)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) InsertLineItem(ctx context.Context, db *gorm.DB, item *domain.LineItem) error {
	return db.WithContext(ctx).Create(item).Error
}

func (r *repositoryImpl) FindLineItem(ctx context.Context, db *gorm.DB, orgID, invoiceID, lineItemID snowflake.ID) (*domain.LineItem, error) {
	var item domain.LineItem
	err := db.WithContext(ctx).
		Where("org_id = ? AND invoice_id = ? AND id = ? AND is_deleted = ?", orgID, invoiceID, lineItemID, false).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLineItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *repositoryImpl) UpdateLineItemFields(ctx context.Context, db *gorm.DB, orgID, invoiceID, lineItemID snowflake.ID, fields map[string]any) (int64, error) {
	result := db.WithContext(ctx).
		Model(&domain.LineItem{}).
		Where("org_id = ? AND invoice_id = ? AND id = ? AND is_deleted = ?", orgID, invoiceID, lineItemID, false).
		Updates(fields)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) ListLineItems(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID) ([]domain.LineItem, error) {
	var items []domain.LineItem
	err := db.WithContext(ctx).
		Where("org_id = ? AND invoice_id = ? AND is_deleted = ?", orgID, invoiceID, false).
		Order("sort_order ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repositoryImpl) SoftDeleteLineItems(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID, at time.Time) (int64, error) {
	result := db.WithContext(ctx).
		Model(&domain.LineItem{}).
		Where("org_id = ? AND invoice_id = ? AND is_deleted = ?", orgID, invoiceID, false).
		Updates(map[string]any{
			"is_deleted": true,
			"deleted_at": at,
			"updated_at": at,
		})
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) ListDocuments(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID) ([]domain.Document, error) {
	var documents []domain.Document
	err := db.WithContext(ctx).
		Where("org_id = ? AND invoice_id = ? AND is_deleted = ?", orgID, invoiceID, false).
		Order("id ASC").
		Find(&documents).Error
	if err != nil {
		return nil, err
	}
	return documents, nil
}

func (r *repositoryImpl) SoftDeleteDocuments(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID, at time.Time) (int64, error) {
	result := db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("org_id = ? AND invoice_id = ? AND is_deleted = ?", orgID, invoiceID, false).
		Updates(map[string]any{
			"is_deleted": true,
			"deleted_at": at,
		})
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) ListPayments(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID) ([]domain.PaymentRecord, error) {
	var payments []domain.PaymentRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, payment_number, amount, payment_date, method, reference_number, notes, created_at
		 FROM payments
		 WHERE org_id = ? AND invoice_id = ? AND is_deleted = ?
		 ORDER BY payment_date ASC, id ASC`,
		orgID, invoiceID, false,
	).Scan(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repositoryImpl) FindJobOwner(ctx context.Context, db *gorm.DB, jobID snowflake.ID) (*domain.Owner, error) {
	var row struct {
		OrgID    snowflake.ID  `gorm:"column:org_id"`
		BidID    *snowflake.ID `gorm:"column:bid_id"`
		ClientID *snowflake.ID `gorm:"column:client_id"`
	}
	err := db.WithContext(ctx).Raw(
		`SELECT j.org_id, j.bid_id, b.client_id
		 FROM jobs j
		 LEFT JOIN bids b ON b.id = j.bid_id
		 WHERE j.id = ?
		 LIMIT 1`,
		jobID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.OrgID == 0 {
		return nil, domain.ErrJobNotFound
	}
	job := jobID
	return &domain.Owner{OrgID: row.OrgID, ClientID: row.ClientID, JobID: &job, BidID: row.BidID}, nil
}

func (r *repositoryImpl) FindBidOwner(ctx context.Context, db *gorm.DB, bidID snowflake.ID) (*domain.Owner, error) {
	var row struct {
		OrgID    snowflake.ID  `gorm:"column:org_id"`
		ClientID *snowflake.ID `gorm:"column:client_id"`
	}
	err := db.WithContext(ctx).Raw(
		`SELECT org_id, client_id FROM bids WHERE id = ? LIMIT 1`,
		bidID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.OrgID == 0 {
		return nil, domain.ErrBidNotFound
	}
	bid := bidID
	return &domain.Owner{OrgID: row.OrgID, ClientID: row.ClientID, BidID: &bid}, nil
}
