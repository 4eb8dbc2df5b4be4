package gate

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/PassportSoftware/paylink/internal/invoicesvc"
	"github.com/PassportSoftware/paylink/internal/models"
)

// fakeService counts calls and returns a canned invoice or error.
type fakeService struct {
	calls   int
	invoice *models.Invoice
	err     error
}

func (f *fakeService) GetInvoice(_ context.Context, _, _ string) (*models.Invoice, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.invoice, nil
}

func (f *fakeService) UpdateInvoice(_ context.Context, _ string, _ invoicesvc.UpdatePatch) (*invoicesvc.UpdateResult, error) {
	return nil, invoicesvc.ErrBackend
}

func testInvoice() *models.Invoice {
	return &models.Invoice{
		ID:        "1",
		Customer:  "ACME Corp",
		Number:    "INV-2026-0001",
		AmountDue: decimal.RequireFromString("2500.00"),
	}
}

func TestVerifyMalformedPINFailsClosed(t *testing.T) {
	for _, pin := range []string{"", "12345", "1234567", "12345a", "abc def"} {
		svc := &fakeService{invoice: testInvoice()}
		g := New(svc)

		_, err := g.Verify(context.Background(), "1", pin)
		require.ErrorIs(t, err, ErrMalformedPIN, "pin %q", pin)
		require.Equal(t, Denied, g.State())
		require.Zero(t, svc.calls, "malformed pin %q must not reach the network", pin)
	}
}

func TestVerifySuccess(t *testing.T) {
	svc := &fakeService{invoice: testInvoice()}
	g := New(svc)

	inv, err := g.Verify(context.Background(), "1", "123456")
	require.NoError(t, err)
	require.Equal(t, Verified, g.State())
	require.NotNil(t, g.Invoice())
	require.Equal(t, "INV-2026-0001", inv.Number)
	require.Equal(t, 1, svc.calls)
}

func TestVerifyInvalidPINDenied(t *testing.T) {
	svc := &fakeService{err: invoicesvc.ErrInvalidPIN}
	g := New(svc)

	_, err := g.Verify(context.Background(), "1", "000000")
	require.ErrorIs(t, err, ErrDenied)
	require.Equal(t, Denied, g.State())
	require.Nil(t, g.Invoice(), "denied gate must not release invoice data")
	require.Equal(t, "invalid pin", g.Reason())
}

func TestVerifyUnknownInvoiceDenied(t *testing.T) {
	svc := &fakeService{err: invoicesvc.ErrNotFound}
	g := New(svc)

	_, err := g.Verify(context.Background(), "missing", "123456")
	require.ErrorIs(t, err, ErrDenied)
	require.Equal(t, Denied, g.State())
	require.Equal(t, "unknown invoice", g.Reason())
}

func TestVerifyBackendFailureFailsClosed(t *testing.T) {
	svc := &fakeService{err: invoicesvc.ErrBackend}
	g := New(svc)

	_, err := g.Verify(context.Background(), "1", "123456")
	require.ErrorIs(t, err, ErrDenied)
	require.Equal(t, Denied, g.State())
	require.Nil(t, g.Invoice())
}

func TestInvoiceOnlyReadableWhenVerified(t *testing.T) {
	g := New(&fakeService{invoice: testInvoice()})
	require.Nil(t, g.Invoice())
	require.Equal(t, Unverified, g.State())
}
