package sequence

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fieldhive/opsledger/internal/migration"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSequenceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := migration.RunMigrations(sqlDB); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return db
}

func TestFormatDocumentNumber(t *testing.T) {
	number := FormatDocumentNumber("inv", 2025, 42)
	if number != "INV-2025-00042" {
		t.Fatalf("got %s, want INV-2025-00042", number)
	}
	if !DocumentNumberPattern.MatchString(number) {
		t.Fatalf("%s does not match the document number pattern", number)
	}
}

func TestDocumentNumberPattern(t *testing.T) {
	valid := []string{"INV-2025-00001", "PAY-1999-99999"}
	for _, number := range valid {
		if !DocumentNumberPattern.MatchString(number) {
			t.Errorf("%s should match", number)
		}
	}
	invalid := []string{
		"INV-2025-1",
		"INVOICE-2025-00001",
		"inv-2025-00001",
		"INV-25-00001",
		"INV-2025-000001",
		"INV-2025-00001 ",
	}
	for _, number := range invalid {
		if DocumentNumberPattern.MatchString(number) {
			t.Errorf("%s should not match", number)
		}
	}
}

func TestNextIsContiguousPerOrg(t *testing.T) {
	db := setupSequenceTestDB(t)
	svc := NewService(zap.NewNop())
	ctx := context.Background()

	for want := int64(1); want <= 5; want++ {
		got, err := svc.Next(ctx, db, 1, CounterInvoiceNumber)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if got != want {
			t.Fatalf("got %d, want %d", got, want)
		}
	}

	// A different organization starts from 1 again.
	got, err := svc.Next(ctx, db, 2, CounterInvoiceNumber)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if got != 1 {
		t.Fatalf("got %d, want 1", got)
	}
}

func TestNextCountersAreIndependent(t *testing.T) {
	db := setupSequenceTestDB(t)
	svc := NewService(zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Next(ctx, db, 1, CounterInvoiceNumber); err != nil {
			t.Fatalf("next invoice: %v", err)
		}
	}
	got, err := svc.Next(ctx, db, 1, CounterPaymentNumber)
	if err != nil {
		t.Fatalf("next payment: %v", err)
	}
	if got != 1 {
		t.Fatalf("payment counter = %d, want 1", got)
	}
}

func TestNextUnknownCounter(t *testing.T) {
	db := setupSequenceTestDB(t)
	svc := NewService(zap.NewNop())

	if _, err := svc.Next(context.Background(), db, 1, "order_number"); err != ErrUnknownCounter {
		t.Fatalf("got %v, want ErrUnknownCounter", err)
	}
}

func TestNextDocumentNumberFormat(t *testing.T) {
	db := setupSequenceTestDB(t)
	svc := NewService(zap.NewNop())

	number, err := svc.NextDocumentNumber(context.Background(), db, 1, CounterPaymentNumber)
	if err != nil {
		t.Fatalf("next document number: %v", err)
	}
	want := FormatDocumentNumber("PAY", time.Now().UTC().Year(), 1)
	if number != want {
		t.Fatalf("got %s, want %s", number, want)
	}
	if !DocumentNumberPattern.MatchString(number) {
		t.Fatalf("%s does not match the document number pattern", number)
	}
}

func TestNextConcurrentAssignmentsAreUnique(t *testing.T) {
	db := setupSequenceTestDB(t)
	svc := NewService(zap.NewNop())
	ctx := context.Background()

	const workers = 20
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		values = make(map[int64]bool, workers)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := svc.Next(ctx, db, 1, CounterInvoiceNumber)
			if err != nil {
				t.Errorf("next: %v", err)
				return
			}
			mu.Lock()
			if values[value] {
				t.Errorf("value %d assigned twice", value)
			}
			values[value] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(values) != workers {
		t.Fatalf("got %d distinct values, want %d", len(values), workers)
	}
	for value := int64(1); value <= workers; value++ {
		if !values[value] {
			t.Fatalf("value %d missing, assignments must be contiguous", value)
		}
	}
}

func TestScanFallback(t *testing.T) {
	db := setupSequenceTestDB(t)
	svc := NewService(zap.NewNop())
	ctx := context.Background()

	year := time.Now().UTC().Year()
	for i, value := range []int64{3, 7, 5} {
		number := FormatDocumentNumber("INV", year, value)
		if err := db.Exec(
			`INSERT INTO invoices (id, org_id, invoice_number, status) VALUES (?, 1, ?, 'draft')`,
			i+1, number,
		).Error; err != nil {
			t.Fatalf("insert invoice: %v", err)
		}
	}

	got, err := svc.scanFallback(ctx, db, 1, counters[CounterInvoiceNumber])
	if err != nil {
		t.Fatalf("scan fallback: %v", err)
	}
	if got != 8 {
		t.Fatalf("got %d, want 8", got)
	}
}
