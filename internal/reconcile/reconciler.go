// Package reconcile sweeps invoices whose totals went stale because a
// post-commit recalculation failed after a payment mutation.
package reconcile

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldhive/opsledger/internal/config"
	invoicedomain "github.com/fieldhive/opsledger/internal/invoice/domain"
	"github.com/fieldhive/opsledger/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Config     config.Config
	DB         *gorm.DB
	Log        *zap.Logger
	InvoiceSvc invoicedomain.Service
}

// Reconciler finds invoices whose newest live payment was written after
// the invoice row was last updated and re-runs recalculation on them.
type Reconciler struct {
	db         *gorm.DB
	log        *zap.Logger
	invoiceSvc invoicedomain.Service
	interval   time.Duration
	batchSize  int

	stop chan struct{}
	done chan struct{}
}

func NewReconciler(p Params) *Reconciler {
	return &Reconciler{
		db:         p.DB,
		log:        p.Log.Named("reconcile"),
		invoiceSvc: p.InvoiceSvc,
		interval:   p.Config.ReconcileInterval,
		batchSize:  p.Config.ReconcileBatchSize,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

type staleInvoice struct {
	OrgID     snowflake.ID
	InvoiceID snowflake.ID
}

// RunOnce performs a single reconciliation pass and returns the number
// of invoices it recalculated.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	stale, err := r.findStale(ctx)
	if err != nil {
		metrics.ReconcileRunTotal.WithLabelValues("error").Inc()
		return 0, err
	}
	if len(stale) == 0 {
		metrics.ReconcileRunTotal.WithLabelValues("noop").Inc()
		return 0, nil
	}

	recalculated := 0
	for _, row := range stale {
		if _, err := r.invoiceSvc.Recalculate(ctx, row.OrgID, row.InvoiceID); err != nil {
			r.log.Warn("reconcile recalculation failed",
				zap.String("invoice_id", row.InvoiceID.String()),
				zap.Error(err),
			)
			continue
		}
		recalculated++
	}

	metrics.ReconcileRunTotal.WithLabelValues("ok").Inc()
	r.log.Info("reconcile pass complete",
		zap.Int("stale", len(stale)),
		zap.Int("recalculated", recalculated),
	)
	return recalculated, nil
}

func (r *Reconciler) findStale(ctx context.Context) ([]staleInvoice, error) {
	var rows []staleInvoice
	err := r.db.WithContext(ctx).Raw(
		`SELECT i.org_id, i.id AS invoice_id
		 FROM invoices i
		 WHERE i.is_deleted = FALSE
		   AND EXISTS (
		     SELECT 1 FROM payments p
		     WHERE p.invoice_id = i.id
		       AND p.is_deleted = FALSE
		       AND p.updated_at > i.updated_at
		   )
		 ORDER BY i.updated_at ASC
		 LIMIT ?`,
		r.batchSize,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Reconciler) loop() {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), r.interval)
			if _, err := r.RunOnce(ctx); err != nil {
				r.log.Error("reconcile pass failed", zap.Error(err))
			}
			cancel()
		}
	}
}

var Module = fx.Module("reconcile",
	fx.Provide(NewReconciler),
	fx.Invoke(func(lc fx.Lifecycle, r *Reconciler) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				go r.loop()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				close(r.stop)
				select {
				case <-r.done:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			},
		})
	}),
)
