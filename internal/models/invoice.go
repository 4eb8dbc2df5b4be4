package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the payment status of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusOpen      InvoiceStatus = "open"
	InvoiceStatusScheduled InvoiceStatus = "scheduled"
	InvoiceStatusPaid      InvoiceStatus = "paid"
)

// Invoice is the customer-facing view of an outstanding invoice as returned
// by the invoice service. The backend is the source of truth for every field;
// the portal references an Invoice, it never mutates one.
type Invoice struct {
	// ID is the opaque identifier from the invoice link, stable for the
	// lifetime of a session.
	ID string `json:"id"`

	Customer string `json:"customer"`
	Number   string `json:"number"`

	IssueDate time.Time `json:"issue_date"`
	DueDate   time.Time `json:"due_date"`

	// AmountDue is the outstanding base amount, always >= 0.
	AmountDue decimal.Decimal `json:"amount_due"`

	// SurchargeRate is the per-invoice card processing rate supplied by the
	// backend (0.029 for 2.9%). Zero means the backend did not supply one
	// and the local fallback rate applies.
	SurchargeRate decimal.Decimal `json:"surcharge_rate"`

	Status InvoiceStatus `json:"status"`

	// PaymentMethod and PaymentDate are both set once a payment has been
	// scheduled against the invoice. Scheduled is not paid.
	PaymentMethod *PaymentMethod `json:"payment_method,omitempty"`
	PaymentDate   *time.Time     `json:"payment_date,omitempty"`

	// Capability flags: which methods this customer may use. Check is
	// always available and carries no flag.
	CardEnabled      bool `json:"cc_enabled"`
	BankDebitEnabled bool `json:"ach_enabled"`
}

// Scheduled reports whether the invoice already carries a scheduled payment
// (method and date both recorded).
func (i *Invoice) Scheduled() bool {
	return i.PaymentMethod != nil && i.PaymentDate != nil
}

// AccessCredential pairs an invoice identifier with the 6-digit PIN the
// customer received alongside the invoice link. A credential is only ever
// validated by the backend; the portal never compares PINs locally.
type AccessCredential struct {
	InvoiceID string
	PIN       string
}
