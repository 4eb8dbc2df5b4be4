// Package fees computes the processing surcharge and total for a payment.
// Pure computation, no I/O: it backs the live fee readout that updates on
// every option or method change.
package fees

import (
	"github.com/shopspring/decimal"

	"github.com/PassportSoftware/paylink/internal/models"
)

// DefaultCardRate is the fallback card surcharge rate (2.9%), used only when
// the backend does not supply a per-invoice rate.
var DefaultCardRate = decimal.NewFromFloat(0.029)

// Quote computes the surcharge and total for paying base via method. rate is
// the backend-supplied per-invoice card rate; pass zero when the backend sent
// none and the fallback applies. Card is the only method carrying a
// surcharge. Amounts are rounded to 2 decimal places, half up.
func Quote(base decimal.Decimal, method models.PaymentMethod, rate decimal.Decimal) models.PaymentQuote {
	surcharge := decimal.Zero
	if method == models.MethodCard {
		r := rate
		if r.IsZero() {
			r = DefaultCardRate
		}
		// Round rounds half away from zero, which is half up for the
		// non-negative amounts this system allows.
		surcharge = base.Mul(r).Round(2)
	}
	return models.PaymentQuote{
		Base:      base,
		Surcharge: surcharge,
		Total:     base.Add(surcharge).Round(2),
	}
}
