// Package sequence assigns per-organization document numbers for invoices
// and payments. Each (organization, counter) pair is an independent,
// monotonically increasing namespace.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldhive/opsledger/internal/observability/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Counter names. Invoices and payments never share a namespace.
const (
	CounterInvoiceNumber = "invoice_number"
	CounterPaymentNumber = "payment_number"
)

var (
	ErrUnknownCounter = errors.New("unknown_counter")

	// DocumentNumberPattern is the persisted document number format.
	// It is fixed and must round-trip, e.g. INV-2025-00042.
	DocumentNumberPattern = regexp.MustCompile(`^[A-Z]{3}-\d{4}-\d{5}$`)
)

type counterSpec struct {
	prefix string
	table  string
	column string
}

var counters = map[string]counterSpec{
	CounterInvoiceNumber: {prefix: "INV", table: "invoices", column: "invoice_number"},
	CounterPaymentNumber: {prefix: "PAY", table: "payments", column: "payment_number"},
}

// Service hands out counter values and formats document numbers.
type Service struct {
	log *zap.Logger
}

func NewService(log *zap.Logger) *Service {
	return &Service{log: log.Named("sequence.service")}
}

// Next returns the next value for the given counter, scoped to the
// organization. The primary path is a single atomic increment-and-return
// against the counters table, which is collision-free under concurrent
// transactions. If the store rejects that statement the service falls back
// to scanning existing document numbers; that path has a race window
// between scan and insert and is best-effort only.
func (s *Service) Next(ctx context.Context, db *gorm.DB, orgID snowflake.ID, counterName string) (int64, error) {
	spec, ok := counters[counterName]
	if !ok {
		return 0, ErrUnknownCounter
	}

	var value int64
	err := db.WithContext(ctx).Raw(
		`INSERT INTO counters (org_id, name, value, updated_at)
		 VALUES (?, ?, 1, ?)
		 ON CONFLICT (org_id, name) DO UPDATE
		 SET value = counters.value + 1, updated_at = ?
		 RETURNING value`,
		orgID, counterName, time.Now().UTC(), time.Now().UTC(),
	).Scan(&value).Error
	if err == nil && value > 0 {
		return value, nil
	}
	if err != nil {
		s.log.Warn("atomic counter unavailable, using scan fallback",
			zap.String("counter", counterName),
			zap.Int64("org_id", int64(orgID)),
			zap.Error(err),
		)
	}

	metrics.SequenceFallbackTotal.Inc()
	return s.scanFallback(ctx, db, orgID, spec)
}

// NextDocumentNumber combines Next with the fixed document number format
// for the current year.
func (s *Service) NextDocumentNumber(ctx context.Context, db *gorm.DB, orgID snowflake.ID, counterName string) (string, error) {
	spec, ok := counters[counterName]
	if !ok {
		return "", ErrUnknownCounter
	}
	value, err := s.Next(ctx, db, orgID, counterName)
	if err != nil {
		return "", err
	}
	return FormatDocumentNumber(spec.prefix, time.Now().UTC().Year(), value), nil
}

// scanFallback derives the next value from the maximum numeric suffix of
// this year's document numbers. Not safe under true concurrency.
func (s *Service) scanFallback(ctx context.Context, db *gorm.DB, orgID snowflake.ID, spec counterSpec) (int64, error) {
	yearPrefix := fmt.Sprintf("%s-%04d-", spec.prefix, time.Now().UTC().Year())
	var numbers []string
	err := db.WithContext(ctx).Raw(
		fmt.Sprintf(`SELECT %s FROM %s WHERE org_id = ? AND %s LIKE ?`, spec.column, spec.table, spec.column),
		orgID, yearPrefix+"%",
	).Scan(&numbers).Error
	if err != nil {
		return 0, err
	}

	var max int64
	for _, number := range numbers {
		suffix := strings.TrimPrefix(number, yearPrefix)
		parsed, err := strconv.ParseInt(suffix, 10, 64)
		if err != nil {
			continue
		}
		if parsed > max {
			max = parsed
		}
	}
	return max + 1, nil
}

// FormatDocumentNumber renders PREFIX-YYYY-NNNNN with a zero-padded
// five digit sequence.
func FormatDocumentNumber(prefix string, year int, value int64) string {
	return fmt.Sprintf("%s-%04d-%05d", strings.ToUpper(prefix), year, value)
}
