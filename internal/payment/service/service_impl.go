package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldhive/opsledger/internal/events"
	historydomain "github.com/fieldhive/opsledger/internal/history/domain"
	invoicedomain "github.com/fieldhive/opsledger/internal/invoice/domain"
	paymentdomain "github.com/fieldhive/opsledger/internal/payment/domain"
	"github.com/fieldhive/opsledger/internal/sequence"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        paymentdomain.Repository
	InvoiceRepo invoicedomain.Repository
	InvoiceSvc  invoicedomain.Service
	HistoryRepo historydomain.Repository
	Seq         *sequence.Service
	Outbox      *events.Outbox
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        paymentdomain.Repository
	invoiceRepo invoicedomain.Repository
	invoiceSvc  invoicedomain.Service
	historyRepo historydomain.Repository
	seq         *sequence.Service
	outbox      *events.Outbox
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payment.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		invoiceRepo: p.InvoiceRepo,
		invoiceSvc:  p.InvoiceSvc,
		historyRepo: p.HistoryRepo,
		seq:         p.Seq,
		outbox:      p.Outbox,
	}
}

// Create records a payment against an invoice. The payment transaction
// commits before recalculation runs so the payment number is durable even
// if recalculation fails; the reconciler retries stale invoices.
func (s *Service) Create(ctx context.Context, req paymentdomain.CreateRequest) (*paymentdomain.Payment, error) {
	if !req.Amount.IsPositive() {
		return nil, paymentdomain.ErrInvalidAmount
	}

	var invoice *invoicedomain.Invoice
	var err error
	if req.OrgID != 0 {
		invoice, err = s.invoiceRepo.FindInvoice(ctx, s.db, req.OrgID, req.InvoiceID)
	} else {
		invoice, err = s.invoiceRepo.FindInvoiceByID(ctx, s.db, req.InvoiceID)
	}
	if err != nil {
		return nil, err
	}

	owner, err := s.resolveOwner(ctx, invoice)
	if err != nil {
		return nil, err
	}
	if req.OrgID != 0 && req.OrgID != owner.OrgID {
		return nil, invoicedomain.ErrInvalidOwner
	}

	now := time.Now().UTC()
	paymentDate := now
	if req.PaymentDate != nil {
		paymentDate = req.PaymentDate.UTC()
	}

	payment := &paymentdomain.Payment{
		ID:              s.genID.Generate(),
		InvoiceID:       invoice.ID,
		OrgID:           owner.OrgID,
		Amount:          req.Amount.Round(2),
		PaymentDate:     paymentDate,
		Method:          strings.TrimSpace(req.Method),
		ReferenceNumber: strings.TrimSpace(req.ReferenceNumber),
		Notes:           strings.TrimSpace(req.Notes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := s.seq.NextDocumentNumber(ctx, tx, owner.OrgID, sequence.CounterPaymentNumber)
		if err != nil {
			return err
		}
		payment.PaymentNumber = number

		if err := s.repo.Insert(ctx, tx, payment); err != nil {
			return err
		}
		if err := s.historyRepo.Insert(ctx, tx, &historydomain.Entry{
			InvoiceID:   invoice.ID,
			OrgID:       owner.OrgID,
			Action:      historydomain.ActionPaymentRecorded,
			Description: "payment " + payment.PaymentNumber + " recorded",
		}); err != nil {
			return err
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			OrgID: owner.OrgID,
			Type:  events.TypePaymentRecorded,
			Payload: map[string]any{
				"invoice_id":     invoice.ID.String(),
				"payment_id":     payment.ID.String(),
				"payment_number": payment.PaymentNumber,
				"amount":         payment.Amount.String(),
			},
			DedupeKey: "payment_recorded:" + payment.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.recalculateParent(ctx, owner.OrgID, invoice.ID)
	return payment, nil
}

// Update merges supplied fields and recalculates the parent invoice
// after commit.
func (s *Service) Update(ctx context.Context, req paymentdomain.UpdateRequest) (*paymentdomain.Payment, error) {
	if _, err := s.repo.Find(ctx, s.db, req.OrgID, req.InvoiceID, req.PaymentID); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if req.Amount != nil {
		if !req.Amount.IsPositive() {
			return nil, paymentdomain.ErrInvalidAmount
		}
		fields["amount"] = req.Amount.Round(2)
	}
	if req.PaymentDate != nil {
		fields["payment_date"] = req.PaymentDate.UTC()
	}
	if req.Method != nil {
		fields["method"] = strings.TrimSpace(*req.Method)
	}
	if req.ReferenceNumber != nil {
		fields["reference_number"] = strings.TrimSpace(*req.ReferenceNumber)
	}
	if req.Notes != nil {
		fields["notes"] = strings.TrimSpace(*req.Notes)
	}
	if len(fields) == 0 {
		return s.repo.Find(ctx, s.db, req.OrgID, req.InvoiceID, req.PaymentID)
	}
	fields["updated_at"] = time.Now().UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.repo.UpdateFields(ctx, tx, req.OrgID, req.InvoiceID, req.PaymentID, fields)
		if err != nil {
			return err
		}
		if rows == 0 {
			return paymentdomain.ErrPaymentNotFound
		}
		return s.historyRepo.Insert(ctx, tx, &historydomain.Entry{
			InvoiceID:   req.InvoiceID,
			OrgID:       req.OrgID,
			Action:      historydomain.ActionPaymentUpdated,
			Description: "payment updated",
		})
	})
	if err != nil {
		return nil, err
	}

	s.recalculateParent(ctx, req.OrgID, req.InvoiceID)
	return s.repo.Find(ctx, s.db, req.OrgID, req.InvoiceID, req.PaymentID)
}

// Delete soft-deletes the payment and recalculates the parent invoice
// after commit. The row is retained for audit.
func (s *Service) Delete(ctx context.Context, req paymentdomain.DeleteRequest) error {
	payment, err := s.repo.Find(ctx, s.db, req.OrgID, req.InvoiceID, req.PaymentID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.repo.UpdateFields(ctx, tx, req.OrgID, req.InvoiceID, req.PaymentID, map[string]any{
			"is_deleted": true,
			"deleted_at": now,
			"updated_at": now,
		})
		if err != nil {
			return err
		}
		if rows == 0 {
			return paymentdomain.ErrPaymentNotFound
		}
		if err := s.historyRepo.Insert(ctx, tx, &historydomain.Entry{
			InvoiceID:   req.InvoiceID,
			OrgID:       req.OrgID,
			Action:      historydomain.ActionPaymentDeleted,
			Description: "payment " + payment.PaymentNumber + " deleted",
		}); err != nil {
			return err
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			OrgID: req.OrgID,
			Type:  events.TypePaymentDeleted,
			Payload: map[string]any{
				"invoice_id": req.InvoiceID.String(),
				"payment_id": req.PaymentID.String(),
			},
		})
	})
	if err != nil {
		return err
	}

	s.recalculateParent(ctx, req.OrgID, req.InvoiceID)
	return nil
}

// recalculateParent runs after the payment transaction committed. A
// failure here leaves the payment durable with stale invoice totals;
// the reconciler picks those invoices up on its next pass.
func (s *Service) recalculateParent(ctx context.Context, orgID, invoiceID snowflake.ID) {
	if _, err := s.invoiceSvc.Recalculate(ctx, orgID, invoiceID); err != nil {
		s.log.Error("post-commit recalculation failed",
			zap.String("invoice_id", invoiceID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) resolveOwner(ctx context.Context, invoice *invoicedomain.Invoice) (invoicedomain.Owner, error) {
	var jobID, bidID snowflake.ID
	if invoice.JobID != nil {
		jobID = *invoice.JobID
	}
	if invoice.BidID != nil {
		bidID = *invoice.BidID
	}
	if jobID == 0 && bidID == 0 {
		return invoicedomain.Owner{OrgID: invoice.OrgID}, nil
	}
	return s.invoiceSvc.ResolveOwner(ctx, jobID, bidID, 0)
}
