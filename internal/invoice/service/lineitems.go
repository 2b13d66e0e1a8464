package service

import (
	"context"
	"strings"
	"time"

	historydomain "github.com/fieldhive/opsledger/internal/history/domain"
	"github.com/fieldhive/opsledger/internal/invoice/domain"
	"gorm.io/gorm"
)

// AddLineItem inserts a billable row and recalculates. Line items are the
// only entity where every mutation mandates recalculation.
func (s *Service) AddLineItem(ctx context.Context, req domain.AddLineItemRequest) (*domain.LineItem, error) {
	invoice, err := s.repo.FindInvoice(ctx, s.db, req.OrgID, req.InvoiceID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Item.Title) == "" {
		return nil, domain.ErrInvalidTitle
	}
	if req.Item.Quantity.IsNegative() {
		return nil, domain.ErrInvalidQuantity
	}
	if req.Item.UnitPrice.IsNegative() {
		return nil, domain.ErrInvalidUnitPrice
	}

	now := time.Now().UTC()
	item := buildLineItem(s.genID.Generate(), invoice, req.Item, req.Item.SortOrder, now)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertLineItem(ctx, tx, item); err != nil {
			return err
		}
		if err := s.appendHistory(ctx, tx, req.OrgID, req.InvoiceID, historydomain.ActionLineItemAdded, nil, nil,
			"line item added: "+item.Title, nil); err != nil {
			return err
		}
		_, err := s.recalculateTx(ctx, tx, req.OrgID, req.InvoiceID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateLineItem merges supplied fields into the row and recalculates.
func (s *Service) UpdateLineItem(ctx context.Context, req domain.UpdateLineItemRequest) (*domain.LineItem, error) {
	if _, err := s.repo.FindInvoice(ctx, s.db, req.OrgID, req.InvoiceID); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindLineItem(ctx, s.db, req.OrgID, req.InvoiceID, req.LineItemID); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, domain.ErrInvalidTitle
		}
		fields["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		fields["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Quantity != nil {
		if req.Quantity.IsNegative() {
			return nil, domain.ErrInvalidQuantity
		}
		fields["quantity"] = *req.Quantity
	}
	if req.UnitPrice != nil {
		if req.UnitPrice.IsNegative() {
			return nil, domain.ErrInvalidUnitPrice
		}
		fields["unit_price"] = req.UnitPrice.Round(2)
	}
	if req.BillingPercent != nil {
		fields["billing_percent"] = *req.BillingPercent
	}
	if req.SortOrder != nil {
		fields["sort_order"] = *req.SortOrder
	}
	if len(fields) == 0 {
		return s.repo.FindLineItem(ctx, s.db, req.OrgID, req.InvoiceID, req.LineItemID)
	}
	fields["updated_at"] = time.Now().UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.repo.UpdateLineItemFields(ctx, tx, req.OrgID, req.InvoiceID, req.LineItemID, fields)
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrLineItemNotFound
		}
		if err := s.appendHistory(ctx, tx, req.OrgID, req.InvoiceID, historydomain.ActionLineItemUpdated, nil, nil,
			"line item updated", fieldNames(fields)); err != nil {
			return err
		}
		_, err = s.recalculateTx(ctx, tx, req.OrgID, req.InvoiceID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindLineItem(ctx, s.db, req.OrgID, req.InvoiceID, req.LineItemID)
}

// DeleteLineItem soft-deletes the row, keeping it for audit history, and
// recalculates so it no longer contributes to the subtotal.
func (s *Service) DeleteLineItem(ctx context.Context, req domain.DeleteLineItemRequest) error {
	if _, err := s.repo.FindInvoice(ctx, s.db, req.OrgID, req.InvoiceID); err != nil {
		return err
	}
	item, err := s.repo.FindLineItem(ctx, s.db, req.OrgID, req.InvoiceID, req.LineItemID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.repo.UpdateLineItemFields(ctx, tx, req.OrgID, req.InvoiceID, req.LineItemID, map[string]any{
			"is_deleted": true,
			"deleted_at": now,
			"updated_at": now,
		})
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrLineItemNotFound
		}
		if err := s.appendHistory(ctx, tx, req.OrgID, req.InvoiceID, historydomain.ActionLineItemDeleted, nil, nil,
			"line item deleted: "+item.Title, nil); err != nil {
			return err
		}
		_, err = s.recalculateTx(ctx, tx, req.OrgID, req.InvoiceID)
		return err
	})
}
