package invoicesvc

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/PassportSoftware/paylink/internal/models"
)

// DateLayout is the wire format for invoice dates.
const DateLayout = "2006-01-02"

// InvoiceDTO is the JSON shape of an invoice record on the wire. Amounts and
// rates travel as decimal strings, never as binary floats.
type InvoiceDTO struct {
	ID            string `json:"id"`
	Customer      string `json:"customer"`
	Number        string `json:"number"`
	IssueDate     string `json:"issue_date"`
	DueDate       string `json:"due_date"`
	AmountDue     string `json:"amount_due"`
	SurchargeRate string `json:"surcharge_rate,omitempty"`
	Status        string `json:"status"`
	PaymentMethod string `json:"payment_method,omitempty"`
	PaymentDate   string `json:"payment_date,omitempty"`
	CardEnabled   bool   `json:"cc_enabled"`
	BankEnabled   bool   `json:"ach_enabled"`
	ControlNumber string `json:"control_number,omitempty"`
}

// UpdateRequest is the PUT body for scheduling (or re-scheduling) a payment.
type UpdateRequest struct {
	PIN           string `json:"pin"`
	PaymentMethod string `json:"payment_method"`
	PaymentDate   string `json:"payment_date"`
	Status        string `json:"status"`
}

// ToModel converts the wire shape into the domain Invoice.
func (d InvoiceDTO) ToModel() (*models.Invoice, error) {
	amount, err := decimal.NewFromString(d.AmountDue)
	if err != nil {
		return nil, fmt.Errorf("invoicesvc: bad amount_due %q: %w", d.AmountDue, err)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("invoicesvc: negative amount_due %q", d.AmountDue)
	}
	rate := decimal.Zero
	if d.SurchargeRate != "" {
		rate, err = decimal.NewFromString(d.SurchargeRate)
		if err != nil {
			return nil, fmt.Errorf("invoicesvc: bad surcharge_rate %q: %w", d.SurchargeRate, err)
		}
	}
	issue, err := time.Parse(DateLayout, d.IssueDate)
	if err != nil {
		return nil, fmt.Errorf("invoicesvc: bad issue_date %q: %w", d.IssueDate, err)
	}
	due, err := time.Parse(DateLayout, d.DueDate)
	if err != nil {
		return nil, fmt.Errorf("invoicesvc: bad due_date %q: %w", d.DueDate, err)
	}

	inv := &models.Invoice{
		ID:               d.ID,
		Customer:         d.Customer,
		Number:           d.Number,
		IssueDate:        issue,
		DueDate:          due,
		AmountDue:        amount,
		SurchargeRate:    rate,
		Status:           models.InvoiceStatus(d.Status),
		CardEnabled:      d.CardEnabled,
		BankDebitEnabled: d.BankEnabled,
	}
	if d.PaymentMethod != "" {
		m := models.PaymentMethod(d.PaymentMethod)
		inv.PaymentMethod = &m
	}
	if d.PaymentDate != "" {
		pd, err := time.Parse(DateLayout, d.PaymentDate)
		if err != nil {
			return nil, fmt.Errorf("invoicesvc: bad payment_date %q: %w", d.PaymentDate, err)
		}
		inv.PaymentDate = &pd
	}
	return inv, nil
}
