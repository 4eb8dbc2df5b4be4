// Package form derives the payment form's state from the current selection
// and the invoice's capability flags. The projection is recomputed fresh on
// every change rather than kept as incrementally mutated flags, so visibility
// can never go stale.
package form

import (
	"github.com/PassportSoftware/paylink/internal/models"
	"github.com/PassportSoftware/paylink/internal/validation"
)

// Field names the portal's form fields; values double as API field keys.
type Field string

const (
	FieldOption        Field = "payment_option"
	FieldPartialAmount Field = "partial_amount"
	FieldMethod        Field = "payment_method"
	FieldMessage       Field = "message"
)

// MaxMessageLen bounds the optional note to the biller.
const MaxMessageLen = 100

// Projection is the derived form state: which fields are currently required,
// which methods may be chosen, any active violations, and whether the form
// may be submitted.
type Projection struct {
	Required       []Field                `json:"required"`
	EnabledMethods []models.PaymentMethod `json:"enabled_methods"`
	Violations     validation.Violations  `json:"violations,omitempty"`
	Submittable    bool                   `json:"submittable"`
}

// EnabledMethods returns the methods the invoice's capability flags allow.
// Check is always available.
func EnabledMethods(inv *models.Invoice) []models.PaymentMethod {
	methods := make([]models.PaymentMethod, 0, 3)
	if inv.CardEnabled {
		methods = append(methods, models.MethodCard)
	}
	if inv.BankDebitEnabled {
		methods = append(methods, models.MethodBankDebit)
	}
	methods = append(methods, models.MethodCheck)
	return methods
}

// Evaluate computes the projection for the selection as currently filled.
// The method list stays empty until an option is chosen; a partial amount is
// only examined under the Partial option and ignored otherwise.
func Evaluate(sel models.PaymentSelection, inv *models.Invoice) Projection {
	p := Projection{
		Required:   []Field{FieldOption},
		Violations: validation.Violations{},
	}

	if sel.Option == "" {
		p.Violations[string(FieldOption)] = "required"
		return p
	}
	if !sel.Option.Valid() {
		p.Violations[string(FieldOption)] = "unknown_option"
		return p
	}

	// Option chosen: the method picker opens up.
	p.EnabledMethods = EnabledMethods(inv)
	p.Required = append(p.Required, FieldMethod)

	if sel.Option == models.OptionPartial {
		p.Required = append(p.Required, FieldPartialAmount)
		if sel.PartialAmount == nil {
			p.Violations[string(FieldPartialAmount)] = "required"
		} else {
			validation.PositiveDecimal(string(FieldPartialAmount), *sel.PartialAmount, p.Violations)
			validation.LessThanDecimal(string(FieldPartialAmount), *sel.PartialAmount, inv.AmountDue, p.Violations)
		}
	}

	if sel.Method != "" {
		if !methodEnabled(sel.Method, p.EnabledMethods) {
			p.Violations[string(FieldMethod)] = "method_not_available"
		}
	} else {
		p.Violations[string(FieldMethod)] = "required"
	}

	validation.MaxLen(string(FieldMessage), sel.Message, MaxMessageLen, p.Violations)

	p.Submittable = sel.Option != "" && sel.Method != "" && p.Violations.Empty()
	return p
}

func methodEnabled(m models.PaymentMethod, enabled []models.PaymentMethod) bool {
	for _, e := range enabled {
		if e == m {
			return true
		}
	}
	return false
}

// InitialSelection pre-fills the form for an invoice already carrying a
// scheduled payment: OnDueDate when the scheduled date is on or after the due
// date or the status says scheduled, Full otherwise. A UX default only, the
// constraints above still apply unchanged.
func InitialSelection(inv *models.Invoice) models.PaymentSelection {
	if !inv.Scheduled() {
		return models.PaymentSelection{}
	}
	sel := models.PaymentSelection{Option: models.OptionFull}
	if !inv.PaymentDate.Before(inv.DueDate) || inv.Status == models.InvoiceStatusScheduled {
		sel.Option = models.OptionOnDueDate
	}
	if methodEnabled(*inv.PaymentMethod, EnabledMethods(inv)) {
		sel.Method = *inv.PaymentMethod
	}
	return sel
}
