// Package invoicesvc defines the typed boundary to the invoice backend: two
// operations, GetInvoice and UpdateInvoice, each independently retryable by
// the caller. The workflow depends on this interface only; the HTTP client
// here and the in-process store service are interchangeable implementations.
package invoicesvc

import (
	"context"
	"errors"
	"time"

	"github.com/PassportSoftware/paylink/internal/models"
)

// Sentinel errors every implementation maps backend outcomes onto.
var (
	ErrInvalidPIN = errors.New("invoicesvc: invalid pin")
	ErrNotFound   = errors.New("invoicesvc: invoice not found")
	ErrBackend    = errors.New("invoicesvc: backend failure")
)

// UpdatePatch is the update shape sent on submission. The same shape covers
// first-time scheduling and re-scheduling; making the second idempotent is
// the backend's guarantee.
type UpdatePatch struct {
	PIN           string
	PaymentMethod models.PaymentMethod
	PaymentDate   time.Time
	Status        models.InvoiceStatus
}

// UpdateResult carries the server-echoed invoice after a successful update
// plus the control number the backend issued for the scheduled payment.
type UpdateResult struct {
	Invoice       models.Invoice
	ControlNumber string
}

// Service is the invoice backend contract. Implementations perform no
// implicit retries; every retry is a deliberate repeated caller action.
type Service interface {
	GetInvoice(ctx context.Context, id, pin string) (*models.Invoice, error)
	UpdateInvoice(ctx context.Context, id string, patch UpdatePatch) (*UpdateResult, error)
}
