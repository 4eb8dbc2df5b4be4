package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/PassportSoftware/paylink/internal/invoicesvc"
	"github.com/PassportSoftware/paylink/internal/models"
)

func TestLocalServiceGetInvoice(t *testing.T) {
	db := setupTestDB(t)
	seedRecord(t, db, "1", "123456")
	svc := NewLocalService(db)

	inv, err := svc.GetInvoice(context.Background(), "1", "123456")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if inv.ID != "1" {
		t.Fatalf("unexpected invoice: %#v", inv)
	}
	if !inv.AmountDue.Equal(decimal.RequireFromString("2500.00")) {
		t.Fatalf("amount mismatch: %s", inv.AmountDue)
	}
	if inv.Scheduled() {
		t.Fatal("fresh invoice must not be scheduled")
	}
}

func TestLocalServiceErrorMapping(t *testing.T) {
	db := setupTestDB(t)
	seedRecord(t, db, "1", "123456")
	svc := NewLocalService(db)

	if _, err := svc.GetInvoice(context.Background(), "1", "000000"); !errors.Is(err, invoicesvc.ErrInvalidPIN) {
		t.Fatalf("expected ErrInvalidPIN, got %v", err)
	}
	if _, err := svc.GetInvoice(context.Background(), "nope", "123456"); !errors.Is(err, invoicesvc.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLocalServiceUpdateIdempotent(t *testing.T) {
	db := setupTestDB(t)
	seedRecord(t, db, "1", "123456")
	svc := NewLocalService(db)

	patch := invoicesvc.UpdatePatch{
		PIN:           "123456",
		PaymentMethod: models.MethodCard,
		PaymentDate:   time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC),
		Status:        models.InvoiceStatusScheduled,
	}
	first, err := svc.UpdateInvoice(context.Background(), "1", patch)
	if err != nil {
		t.Fatalf("first update: %v", err)
	}
	if first.ControlNumber == "" {
		t.Fatal("expected control number")
	}
	if !first.Invoice.Scheduled() {
		t.Fatal("expected scheduled sub-state after update")
	}

	patch.PaymentMethod = models.MethodCheck
	second, err := svc.UpdateInvoice(context.Background(), "1", patch)
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if second.ControlNumber != first.ControlNumber {
		t.Fatalf("control number changed: %q vs %q", first.ControlNumber, second.ControlNumber)
	}
	if *second.Invoice.PaymentMethod != models.MethodCheck {
		t.Fatalf("method not overwritten: %v", *second.Invoice.PaymentMethod)
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	if err := Seed(db); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := Seed(db); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	var count int64
	if err := db.Model(&InvoiceRecord{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 seeded invoices, got %d", count)
	}
}
