// Package backend is the development and test stand-in for the production
// invoice store. It persists invoice records with gorm, keeps PINs as bcrypt
// hashes, and serves the same REST contract the real backend exposes, so the
// portal can run against either without code changes.
package backend

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/PassportSoftware/paylink/internal/invoicesvc"
	"github.com/PassportSoftware/paylink/internal/models"
)

// InvoiceRecord is the stored shape of an invoice. Amounts are decimal
// strings; binary floats never touch money.
type InvoiceRecord struct {
	ID        string `gorm:"primaryKey;size:64"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Customer string `gorm:"size:200;not null"`
	Number   string `gorm:"size:50;uniqueIndex"`

	IssueDate time.Time `gorm:"not null"`
	DueDate   time.Time `gorm:"not null"`

	AmountDue     string `gorm:"size:32;not null"`
	SurchargeRate string `gorm:"size:16"`

	Status string `gorm:"size:20;default:'open'"`

	// PINHash is the bcrypt hash of the 6-digit PIN. The plaintext PIN is
	// never stored.
	PINHash string `gorm:"size:100;not null"`

	PaymentMethod *string `gorm:"size:20"`
	PaymentDate   *time.Time

	CardEnabled      bool
	BankDebitEnabled bool

	// ControlNumber is assigned on the first scheduling and kept stable
	// across re-submissions.
	ControlNumber *string `gorm:"size:64"`
}

// PINMatches checks the candidate PIN against the stored hash.
func (r *InvoiceRecord) PINMatches(pin string) bool {
	return bcrypt.CompareHashAndPassword([]byte(r.PINHash), []byte(pin)) == nil
}

// Scheduled reports whether a payment is already recorded on the invoice.
func (r *InvoiceRecord) Scheduled() bool {
	return r.PaymentMethod != nil && r.PaymentDate != nil
}

// toDTO converts the record to the wire shape.
func (r *InvoiceRecord) toDTO() invoicesvc.InvoiceDTO {
	dto := invoicesvc.InvoiceDTO{
		ID:            r.ID,
		Customer:      r.Customer,
		Number:        r.Number,
		IssueDate:     r.IssueDate.Format(invoicesvc.DateLayout),
		DueDate:       r.DueDate.Format(invoicesvc.DateLayout),
		AmountDue:     r.AmountDue,
		SurchargeRate: r.SurchargeRate,
		Status:        r.Status,
		CardEnabled:   r.CardEnabled,
		BankEnabled:   r.BankDebitEnabled,
	}
	if r.PaymentMethod != nil {
		dto.PaymentMethod = *r.PaymentMethod
	}
	if r.PaymentDate != nil {
		dto.PaymentDate = r.PaymentDate.Format(invoicesvc.DateLayout)
	}
	if r.ControlNumber != nil {
		dto.ControlNumber = *r.ControlNumber
	}
	return dto
}

// applyPayment records (or overwrites) the scheduled payment. Re-submission
// overwrites method and date instead of creating a second payment record;
// the control number is issued once.
func (r *InvoiceRecord) applyPayment(method models.PaymentMethod, date time.Time, status models.InvoiceStatus, newControlNumber func() string) {
	m := string(method)
	d := date
	r.PaymentMethod = &m
	r.PaymentDate = &d
	r.Status = string(status)
	if r.ControlNumber == nil {
		cn := newControlNumber()
		r.ControlNumber = &cn
	}
}

// Open connects to the store. DSNs starting with postgres:// use the
// postgres driver, everything else is treated as a sqlite DSN.
func Open(dsn string, debug bool) (*gorm.DB, error) {
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return gorm.Open(postgres.Open(dsn), cfg)
	}
	return gorm.Open(sqlite.Open(dsn), cfg)
}

// Migrate creates or updates the invoice table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&InvoiceRecord{})
}

// Seed inserts demo invoices when the table is empty. PINs: 123456 for
// invoice 1, 654321 for invoice 2.
func Seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&InvoiceRecord{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash1, err := bcrypt.GenerateFromPassword([]byte("123456"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	hash2, err := bcrypt.GenerateFromPassword([]byte("654321"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Truncate(24 * time.Hour)
	records := []InvoiceRecord{
		{
			ID:               "1",
			Customer:         "ACME Corp",
			Number:           "INV-2026-0001",
			IssueDate:        now.AddDate(0, 0, -14),
			DueDate:          now.AddDate(0, 0, 16),
			AmountDue:        "2500.00",
			SurchargeRate:    "0.029",
			Status:           string(models.InvoiceStatusOpen),
			PINHash:          string(hash1),
			CardEnabled:      true,
			BankDebitEnabled: true,
		},
		{
			ID:               "2",
			Customer:         "Globex LLC",
			Number:           "INV-2026-0002",
			IssueDate:        now.AddDate(0, 0, -30),
			DueDate:          now.AddDate(0, 0, 5),
			AmountDue:        "815.40",
			Status:           string(models.InvoiceStatusOpen),
			PINHash:          string(hash2),
			CardEnabled:      false,
			BankDebitEnabled: true,
		},
	}
	return db.Create(&records).Error
}
