package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentOption is how much of the invoice the customer chooses to pay.
type PaymentOption string

const (
	OptionFull      PaymentOption = "full"
	OptionPartial   PaymentOption = "partial"
	OptionOnDueDate PaymentOption = "on_due_date"
)

// Valid reports whether the option is one of the three supported choices.
func (o PaymentOption) Valid() bool {
	switch o {
	case OptionFull, OptionPartial, OptionOnDueDate:
		return true
	}
	return false
}

// Label returns the human-readable form used on the confirmation screen.
func (o PaymentOption) Label() string {
	switch o {
	case OptionFull:
		return "Pay in full"
	case OptionPartial:
		return "Partial payment"
	case OptionOnDueDate:
		return "Pay on due date"
	}
	return string(o)
}

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	MethodCard      PaymentMethod = "card"
	MethodBankDebit PaymentMethod = "bank_debit"
	MethodCheck     PaymentMethod = "check"
)

// Valid reports whether the method is one of the three supported choices.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCard, MethodBankDebit, MethodCheck:
		return true
	}
	return false
}

// Label returns the human-readable form used on the confirmation screen.
func (m PaymentMethod) Label() string {
	switch m {
	case MethodCard:
		return "Credit card"
	case MethodBankDebit:
		return "Bank debit"
	case MethodCheck:
		return "Check"
	}
	return string(m)
}

// PaymentSelection is the customer's (possibly partial) input on the payment
// form. The workflow session owns exactly one selection at a time.
type PaymentSelection struct {
	// Option must be chosen before a method becomes selectable.
	Option PaymentOption `json:"payment_option"`

	// PartialAmount is required, positive and strictly below the amount due
	// when Option is Partial; it is ignored under any other option.
	PartialAmount *decimal.Decimal `json:"partial_amount,omitempty"`

	Method PaymentMethod `json:"payment_method"`

	// Message is an optional note to the biller, at most 100 characters.
	Message string `json:"message,omitempty"`
}

// PaymentQuote is derived, never stored: the live fee feedback for a given
// base amount and method.
type PaymentQuote struct {
	Base      decimal.Decimal `json:"base"`
	Surcharge decimal.Decimal `json:"surcharge"`
	Total     decimal.Decimal `json:"total"`
}

// PaymentResult is the server-confirmed outcome of a submission. Created only
// from a successful update response and never mutated afterwards; it exists
// solely for the confirmation stage.
type PaymentResult struct {
	InvoiceNumber string `json:"invoice_number"`
	Customer      string `json:"customer"`

	OptionLabel string `json:"payment_option"`
	MethodLabel string `json:"payment_method"`

	Amount decimal.Decimal `json:"amount"`
	Fee    decimal.Decimal `json:"fee"`
	Total  decimal.Decimal `json:"total"`

	TransactionDate time.Time `json:"transaction_date"`

	// TransactionID is the backend control number, when one was issued.
	TransactionID *string `json:"transaction_id,omitempty"`

	Success bool `json:"success"`
}
