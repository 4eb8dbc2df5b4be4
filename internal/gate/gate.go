// Package gate enforces that invoice data is only released after the backend
// has confirmed the invoice's PIN. The gate does no PIN comparison of its
// own beyond the 6-digit shape check: authorization correctness is entirely
// server-side, the gate only shapes the request and interprets the response.
package gate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/PassportSoftware/paylink/internal/invoicesvc"
	"github.com/PassportSoftware/paylink/internal/models"
)

// State is the gate's verification state. Verified is the only state from
// which invoice fields may be read or a payment submitted.
type State int

const (
	Unverified State = iota
	Verifying
	Verified
	Denied
)

func (s State) String() string {
	switch s {
	case Unverified:
		return "unverified"
	case Verifying:
		return "verifying"
	case Verified:
		return "verified"
	case Denied:
		return "denied"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Denial reasons surfaced to the caller.
var (
	ErrMalformedPIN = errors.New("gate: pin must be exactly 6 digits")
	ErrDenied       = errors.New("gate: access denied")
)

var pinPattern = regexp.MustCompile(`^\d{6}$`)

// ValidPIN reports whether pin has the required 6-digit shape. A failing
// shape check never reaches the network.
func ValidPIN(pin string) bool { return pinPattern.MatchString(pin) }

// Gate verifies one credential at a time against the invoice service and
// holds the resulting state. The PIN itself is never stored.
type Gate struct {
	svc invoicesvc.Service

	mu      sync.Mutex
	state   State
	invoice *models.Invoice
	reason  string
}

func New(svc invoicesvc.Service) *Gate {
	return &Gate{svc: svc, state: Unverified}
}

// State returns the current verification state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Invoice returns the verified invoice, or nil unless the gate is Verified.
func (g *Gate) Invoice() *models.Invoice {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != Verified {
		return nil
	}
	return g.invoice
}

// Reason returns the denial reason, empty unless the gate is Denied.
func (g *Gate) Reason() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != Denied {
		return ""
	}
	return g.reason
}

// Verify checks the credential against the backend. A malformed PIN fails
// closed without a network call. On a backend 401/404 the gate becomes
// Denied; only a backend 200 makes it Verified.
func (g *Gate) Verify(ctx context.Context, invoiceID, pin string) (*models.Invoice, error) {
	if !ValidPIN(pin) {
		g.deny("malformed pin")
		return nil, ErrMalformedPIN
	}

	g.mu.Lock()
	g.state = Verifying
	g.invoice = nil
	g.mu.Unlock()

	inv, err := g.svc.GetInvoice(ctx, invoiceID, pin)
	if err != nil {
		switch {
		case errors.Is(err, invoicesvc.ErrInvalidPIN):
			g.deny("invalid pin")
			return nil, fmt.Errorf("%w: invalid pin", ErrDenied)
		case errors.Is(err, invoicesvc.ErrNotFound):
			g.deny("unknown invoice")
			return nil, fmt.Errorf("%w: unknown invoice", ErrDenied)
		default:
			// Backend unreachable or misbehaving: fail closed.
			g.deny("verification unavailable")
			return nil, fmt.Errorf("%w: %v", ErrDenied, err)
		}
	}

	g.mu.Lock()
	g.state = Verified
	g.invoice = inv
	g.reason = ""
	g.mu.Unlock()
	return inv, nil
}

func (g *Gate) deny(reason string) {
	g.mu.Lock()
	g.state = Denied
	g.invoice = nil
	g.reason = reason
	g.mu.Unlock()
}
