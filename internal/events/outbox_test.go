package events

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldhive/opsledger/internal/migration"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupOutboxTest(t *testing.T) (*gorm.DB, *Outbox) {
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
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new snowflake node: %v", err)
	}
	return db, NewOutbox(db, node)
}

func countEvents(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	if err := db.Raw(`SELECT COUNT(*) FROM billing_events`).Scan(&count).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	return count
}

func TestPublishStoresEvent(t *testing.T) {
	db, outbox := setupOutboxTest(t)

	err := outbox.Publish(context.Background(), Event{
		OrgID:   1,
		Type:    TypeInvoiceCreated,
		Payload: map[string]any{"invoice_id": "42"},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := countEvents(t, db); got != 1 {
		t.Fatalf("events = %d, want 1", got)
	}
}

func TestPublishDedupeKeyIgnoresDuplicates(t *testing.T) {
	db, outbox := setupOutboxTest(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := outbox.Publish(ctx, Event{
			OrgID:     1,
			Type:      TypePaymentRecorded,
			DedupeKey: "payment_recorded:7",
		}); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}
	if got := countEvents(t, db); got != 1 {
		t.Fatalf("events = %d, want 1 after dedupe", got)
	}
}

func TestPublishRejectsMissingFields(t *testing.T) {
	_, outbox := setupOutboxTest(t)
	ctx := context.Background()

	if err := outbox.Publish(ctx, Event{Type: TypeInvoiceCreated}); err == nil {
		t.Fatal("expected error for missing org id")
	}
	if err := outbox.Publish(ctx, Event{OrgID: 1}); err == nil {
		t.Fatal("expected error for missing event type")
	}
}

func TestPublishTxRequiresTransaction(t *testing.T) {
	_, outbox := setupOutboxTest(t)

	if err := outbox.PublishTx(context.Background(), nil, Event{OrgID: 1, Type: TypeInvoiceCreated}); err == nil {
		t.Fatal("expected error for nil transaction")
	}
}
