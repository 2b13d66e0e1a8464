package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldhive/opsledger/internal/actorcontext"
	"github.com/fieldhive/opsledger/internal/cache"
	"github.com/fieldhive/opsledger/internal/events"
	historydomain "github.com/fieldhive/opsledger/internal/history/domain"
	"github.com/fieldhive/opsledger/internal/invoice/domain"
	"github.com/fieldhive/opsledger/internal/observability/metrics"
	"github.com/fieldhive/opsledger/internal/sequence"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	HistoryRepo historydomain.Repository
	Seq         *sequence.Service
	Outbox      *events.Outbox
}

// Service is the invoice aggregate. Every command runs inside one
// transaction; line-item mutations always end with a recalculation.
type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	historyRepo historydomain.Repository
	seq         *sequence.Service
	outbox      *events.Outbox
	ownerCache  *cache.TTLCache[string, domain.Owner]
}

func NewService(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("invoice.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		historyRepo: p.HistoryRepo,
		seq:         p.Seq,
		outbox:      p.Outbox,
		ownerCache:  cache.NewTTLCache[string, domain.Owner](),
	}
}

// Create derives the owner, assigns the invoice number and inserts the
// invoice with its line items in one transaction. Monetary totals are
// accepted as supplied; no derivation happens at creation time.
func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.CreateResult, error) {
	owner, err := s.ResolveOwner(ctx, req.JobID, req.BidID, req.OrgID)
	if err != nil {
		return nil, err
	}
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	invoice := &domain.Invoice{
		ID:               s.genID.Generate(),
		OrgID:            owner.OrgID,
		JobID:            owner.JobID,
		BidID:            owner.BidID,
		ClientID:         owner.ClientID,
		Status:           domain.StatusDraft,
		IssuedAt:         req.IssuedAt,
		DueAt:            req.DueAt,
		LineItemSubTotal: req.LineItemSubTotal.Round(2),
		TaxRate:          req.TaxRate,
		TaxAmount:        req.TaxAmount.Round(2),
		DiscountType:     req.DiscountType,
		DiscountValue:    req.DiscountValue.Round(2),
		DiscountAmount:   req.DiscountAmount.Round(2),
		TotalAmount:      req.TotalAmount.Round(2),
		AmountPaid:       decimal.Zero,
		BalanceDue:       req.TotalAmount.Round(2),
		BillingAddress:   strings.TrimSpace(req.BillingAddress),
		Terms:            strings.TrimSpace(req.Terms),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if invoice.DiscountType == "" {
		invoice.DiscountType = domain.DiscountTypeNone
	}
	if req.ClientID != 0 {
		clientID := req.ClientID
		invoice.ClientID = &clientID
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := s.seq.NextDocumentNumber(ctx, tx, owner.OrgID, sequence.CounterInvoiceNumber)
		if err != nil {
			return err
		}
		invoice.InvoiceNumber = number

		if err := s.repo.InsertInvoice(ctx, tx, invoice); err != nil {
			return translateError(err)
		}

		for index, input := range req.LineItems {
			item := buildLineItem(s.genID.Generate(), invoice, input, index, now)
			if err := s.repo.InsertLineItem(ctx, tx, item); err != nil {
				return err
			}
		}

		if err := s.appendHistory(ctx, tx, invoice.OrgID, invoice.ID, historydomain.ActionCreated, nil, nil,
			"invoice "+invoice.InvoiceNumber+" created", nil); err != nil {
			return err
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			OrgID: invoice.OrgID,
			Type:  events.TypeInvoiceCreated,
			Payload: map[string]any{
				"invoice_id":     invoice.ID.String(),
				"invoice_number": invoice.InvoiceNumber,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	return &domain.CreateResult{
		InvoiceID:     invoice.ID,
		InvoiceNumber: invoice.InvoiceNumber,
		OrgID:         invoice.OrgID,
	}, nil
}

// Update merges only the supplied fields. Updates touching the tax rate
// or discount configuration trigger recalculation afterwards because
// those fields feed the recalculation engine.
func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Invoice, error) {
	invoice, err := s.repo.FindInvoice(ctx, s.db, req.OrgID, req.InvoiceID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	recalcNeeded := false

	if req.IssuedAt != nil {
		fields["issued_at"] = *req.IssuedAt
	}
	if req.DueAt != nil {
		fields["due_at"] = *req.DueAt
	}
	if req.TaxRate != nil {
		if req.TaxRate.IsNegative() {
			return nil, domain.ErrInvalidTaxRate
		}
		fields["tax_rate"] = *req.TaxRate
		recalcNeeded = true
	}
	if req.DiscountType != nil {
		if !req.DiscountType.Valid() {
			return nil, domain.ErrInvalidDiscountType
		}
		fields["discount_type"] = *req.DiscountType
		recalcNeeded = true
	}
	if req.DiscountValue != nil {
		if req.DiscountValue.IsNegative() {
			return nil, domain.ErrInvalidDiscountType
		}
		fields["discount_value"] = req.DiscountValue.Round(2)
		recalcNeeded = true
	}
	if req.BillingAddress != nil {
		fields["billing_address"] = strings.TrimSpace(*req.BillingAddress)
	}
	if req.Terms != nil {
		fields["terms"] = strings.TrimSpace(*req.Terms)
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, domain.ErrInvalidStatus
		}
		if !invoice.Status.CanTransition(*req.Status) {
			return nil, domain.ErrInvalidStatusTransition
		}
		fields["status"] = *req.Status
	}

	if len(fields) == 0 {
		return invoice, nil
	}
	fields["updated_at"] = time.Now().UTC()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.repo.UpdateInvoiceFields(ctx, tx, req.OrgID, req.InvoiceID, fields)
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrInvoiceNotFound
		}
		if req.Status != nil {
			if err := s.recordStatusChange(ctx, tx, invoice, *req.Status, "status set by operator"); err != nil {
				return err
			}
		}
		if err := s.appendHistory(ctx, tx, req.OrgID, req.InvoiceID, historydomain.ActionUpdated, nil, nil,
			"invoice updated", fieldNames(fields)); err != nil {
			return err
		}
		if recalcNeeded {
			if _, err := s.recalculateTx(ctx, tx, req.OrgID, req.InvoiceID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindInvoice(ctx, s.db, req.OrgID, req.InvoiceID)
}

// Get composes the invoice with its requested children.
func (s *Service) Get(ctx context.Context, req domain.GetRequest) (*domain.View, error) {
	invoice, err := s.repo.FindInvoice(ctx, s.db, req.OrgID, req.InvoiceID)
	if err != nil {
		return nil, err
	}

	view := &domain.View{Invoice: *invoice}
	if req.IncludeLineItems {
		if view.LineItems, err = s.repo.ListLineItems(ctx, s.db, req.OrgID, req.InvoiceID); err != nil {
			return nil, err
		}
	}
	if req.IncludePayments {
		if view.Payments, err = s.repo.ListPayments(ctx, s.db, req.OrgID, req.InvoiceID); err != nil {
			return nil, err
		}
	}
	if req.IncludeDocuments {
		if view.Documents, err = s.repo.ListDocuments(ctx, s.db, req.OrgID, req.InvoiceID); err != nil {
			return nil, err
		}
	}
	if req.IncludeHistory {
		if view.History, err = s.historyRepo.ListByInvoice(ctx, s.db, req.OrgID, req.InvoiceID); err != nil {
			return nil, err
		}
	}
	return view, nil
}

// Delete soft-deletes the invoice and cascades to line items and
// documents in order, inside one transaction. Payments are preserved:
// financial records outlive the invoices they settle.
func (s *Service) Delete(ctx context.Context, orgID, invoiceID snowflake.ID) error {
	_, actorID := actorcontext.ActorFromContext(ctx)
	now := time.Now().UTC()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.SoftDeleteLineItems(ctx, tx, orgID, invoiceID, now); err != nil {
			return err
		}
		if _, err := s.repo.SoftDeleteDocuments(ctx, tx, orgID, invoiceID, now); err != nil {
			return err
		}
		rows, err := s.repo.SoftDeleteInvoice(ctx, tx, orgID, invoiceID, actorID, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrInvoiceNotFound
		}
		if err := s.appendHistory(ctx, tx, orgID, invoiceID, historydomain.ActionDeleted, nil, nil,
			"invoice soft-deleted", nil); err != nil {
			return err
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			OrgID:   orgID,
			Type:    events.TypeInvoiceDeleted,
			Payload: map[string]any{"invoice_id": invoiceID.String()},
		})
	})
}

// BulkDelete soft-deletes each invoice in its own transaction. Missing
// or already-deleted invoices are skipped, not errors.
func (s *Service) BulkDelete(ctx context.Context, orgID snowflake.ID, invoiceIDs []snowflake.ID) (domain.BulkDeleteResult, error) {
	result := domain.BulkDeleteResult{
		Deleted: make([]snowflake.ID, 0, len(invoiceIDs)),
		Skipped: make([]snowflake.ID, 0),
	}
	for _, invoiceID := range invoiceIDs {
		err := s.Delete(ctx, orgID, invoiceID)
		switch {
		case err == nil:
			result.Deleted = append(result.Deleted, invoiceID)
		case err == domain.ErrInvoiceNotFound:
			result.Skipped = append(result.Skipped, invoiceID)
		default:
			return result, err
		}
	}
	return result, nil
}

// MarkPaid is a manual operator override. It goes through the same state
// machine guards as derived transitions but bypasses the recalculation
// engine's derivation.
func (s *Service) MarkPaid(ctx context.Context, req domain.OverrideRequest) (*domain.Invoice, error) {
	return s.override(ctx, req, domain.StatusPaid, historydomain.ActionMarkedPaid)
}

// Void terminally voids the invoice. The row and its numbering are
// retained for audit.
func (s *Service) Void(ctx context.Context, req domain.OverrideRequest) (*domain.Invoice, error) {
	return s.override(ctx, req, domain.StatusVoid, historydomain.ActionVoided)
}

func (s *Service) override(ctx context.Context, req domain.OverrideRequest, target domain.Status, action string) (*domain.Invoice, error) {
	invoice, err := s.repo.FindInvoice(ctx, s.db, req.OrgID, req.InvoiceID)
	if err != nil {
		return nil, err
	}
	if !invoice.Status.CanTransition(target) {
		return nil, domain.ErrInvalidStatusTransition
	}

	now := time.Now().UTC()
	fields := map[string]any{
		"status":     target,
		"updated_at": now,
	}
	if target == domain.StatusPaid {
		fields["paid_at"] = now
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.repo.UpdateInvoiceFields(ctx, tx, req.OrgID, req.InvoiceID, fields)
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrInvoiceNotFound
		}
		oldStatus := string(invoice.Status)
		newStatus := string(target)
		if err := s.appendHistory(ctx, tx, req.OrgID, req.InvoiceID, action, &oldStatus, &newStatus,
			strings.TrimSpace(req.Reason), nil); err != nil {
			return err
		}
		metrics.StatusTransitionTotal.WithLabelValues(oldStatus, newStatus).Inc()
		return s.outbox.PublishTx(ctx, tx, events.Event{
			OrgID: req.OrgID,
			Type:  events.TypeInvoiceStatusChanged,
			Payload: map[string]any{
				"invoice_id": req.InvoiceID.String(),
				"from":       oldStatus,
				"to":         newStatus,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindInvoice(ctx, s.db, req.OrgID, req.InvoiceID)
}

func (s *Service) appendHistory(ctx context.Context, tx *gorm.DB, orgID, invoiceID snowflake.ID, action string, oldValue, newValue *string, description string, metadata map[string]any) error {
	entry := &historydomain.Entry{
		InvoiceID:   invoiceID,
		OrgID:       orgID,
		Action:      action,
		OldValue:    oldValue,
		NewValue:    newValue,
		Description: description,
	}
	if metadata != nil {
		entry.Metadata = datatypes.JSONMap(metadata)
	}
	if requestID := actorcontext.RequestIDFromContext(ctx); requestID != "" {
		if entry.Metadata == nil {
			entry.Metadata = datatypes.JSONMap{}
		}
		entry.Metadata["request_id"] = requestID
	}
	return s.historyRepo.Insert(ctx, tx, entry)
}

func (s *Service) recordStatusChange(ctx context.Context, tx *gorm.DB, invoice *domain.Invoice, target domain.Status, description string) error {
	oldStatus := string(invoice.Status)
	newStatus := string(target)
	metrics.StatusTransitionTotal.WithLabelValues(oldStatus, newStatus).Inc()
	if err := s.appendHistory(ctx, tx, invoice.OrgID, invoice.ID, historydomain.ActionStatusChanged,
		&oldStatus, &newStatus, description, nil); err != nil {
		return err
	}
	return s.outbox.PublishTx(ctx, tx, events.Event{
		OrgID: invoice.OrgID,
		Type:  events.TypeInvoiceStatusChanged,
		Payload: map[string]any{
			"invoice_id": invoice.ID.String(),
			"from":       oldStatus,
			"to":         newStatus,
		},
	})
}

func validateCreate(req domain.CreateRequest) error {
	if req.TaxRate.IsNegative() {
		return domain.ErrInvalidTaxRate
	}
	if req.DiscountType != "" && !req.DiscountType.Valid() {
		return domain.ErrInvalidDiscountType
	}
	for _, item := range req.LineItems {
		if strings.TrimSpace(item.Title) == "" {
			return domain.ErrInvalidTitle
		}
		if item.Quantity.IsNegative() {
			return domain.ErrInvalidQuantity
		}
		if item.UnitPrice.IsNegative() {
			return domain.ErrInvalidUnitPrice
		}
	}
	return nil
}

func buildLineItem(id snowflake.ID, invoice *domain.Invoice, input domain.CreateLineItemInput, index int, now time.Time) *domain.LineItem {
	quantity := input.Quantity
	if quantity.IsZero() {
		quantity = decimal.NewFromInt(1)
	}
	billingPercent := input.BillingPercent
	if billingPercent.IsZero() {
		billingPercent = oneHundred
	}
	billedAmount := input.BilledAmount
	if billedAmount.IsZero() {
		billedAmount = quantity.Mul(input.UnitPrice).Mul(billingPercent.Div(oneHundred)).Round(2)
	}
	sortOrder := input.SortOrder
	if sortOrder == 0 {
		sortOrder = index
	}
	return &domain.LineItem{
		ID:             id,
		InvoiceID:      invoice.ID,
		OrgID:          invoice.OrgID,
		Title:          strings.TrimSpace(input.Title),
		Description:    strings.TrimSpace(input.Description),
		Quantity:       quantity,
		UnitPrice:      input.UnitPrice.Round(2),
		BillingPercent: billingPercent,
		BilledAmount:   billedAmount,
		SortOrder:      sortOrder,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func fieldNames(fields map[string]any) map[string]any {
	names := make([]string, 0, len(fields))
	for name := range fields {
		if name == "updated_at" {
			continue
		}
		names = append(names, name)
	}
	return map[string]any{"fields": names}
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	message := strings.ToLower(err.Error())
	if strings.Contains(message, "duplicate key") || strings.Contains(message, "unique constraint") {
		return domain.ErrDuplicateDocumentNumber
	}
	return err
}
