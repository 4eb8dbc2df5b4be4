package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/PassportSoftware/paylink/internal/form"
	"github.com/PassportSoftware/paylink/internal/httpx"
	"github.com/PassportSoftware/paylink/internal/invoicesvc"
	"github.com/PassportSoftware/paylink/internal/models"
	"github.com/PassportSoftware/paylink/internal/session"
	"github.com/PassportSoftware/paylink/internal/workflow"
)

// Portal handles the customer-facing payment flow. Each handler resolves the
// caller's workflow session from the signed cookie; a request arriving
// without the context its stage requires is silently redirected to PIN entry
// rather than shown an error.
type Portal struct {
	svc      invoicesvc.Service
	sessions *session.Store
	log      *zap.Logger
}

type reviewResponse struct {
	Stage      workflow.Stage          `json:"stage"`
	Invoice    *models.Invoice         `json:"invoice"`
	Selection  models.PaymentSelection `json:"selection"`
	Projection form.Projection         `json:"projection"`
	Quote      models.PaymentQuote     `json:"quote"`
}

// PinEntry returns the PIN entry context for an invoice link.
func (p *Portal) PinEntry(w http.ResponseWriter, r *http.Request, invoiceID string) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	payload := map[string]any{"stage": workflow.StagePinEntry}
	if invoiceID != "" {
		payload["invoice_id"] = invoiceID
	} else if sess, ok := p.sessions.Lookup(r); ok && sess.InvoiceID() != "" {
		// Returning via the back-edge: the invoice id stays in context.
		payload["invoice_id"] = sess.InvoiceID()
	}
	httpx.JSON(w, http.StatusOK, payload)
}

// Verify runs the access gate for the invoice and PIN. A session not at PIN
// entry is replaced: posting a PIN always restarts the flow.
func (p *Portal) Verify(w http.ResponseWriter, r *http.Request, invoiceID string) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	sess, ok := p.sessions.Lookup(r)
	if !ok || sess.Stage() != workflow.StagePinEntry {
		sess = workflow.NewSession(p.svc, p.log)
		p.sessions.Issue(w, sess)
	}

	if err := sess.VerifyPIN(r.Context(), invoiceID, req.PIN); err != nil {
		p.renderError(w, r, err)
		return
	}
	p.writeReview(w, sess)
}

// Review loads the invoice review screen, re-validating the credential.
func (p *Portal) Review(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	sess, ok := p.sessions.Lookup(r)
	if !ok {
		p.redirectPinEntry(w, r)
		return
	}
	if err := sess.EnterReview(r.Context()); err != nil {
		if sess.Stage() == workflow.StageCannotAccess {
			httpx.JSONError(w, http.StatusGone, "cannot_access", nil)
			return
		}
		p.renderError(w, r, err)
		return
	}
	p.writeReview(w, sess)
}

type selectionRequest struct {
	PaymentOption string `json:"payment_option"`
	PartialAmount string `json:"partial_amount"`
	PaymentMethod string `json:"payment_method"`
	Message       string `json:"message"`
}

// Selection stores the current form input and returns the derived projection
// and quote. Local only: validation failures never reach the backend.
func (p *Portal) Selection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	sess, ok := p.sessions.Lookup(r)
	if !ok {
		p.redirectPinEntry(w, r)
		return
	}
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	sel := models.PaymentSelection{
		Option:  models.PaymentOption(req.PaymentOption),
		Method:  models.PaymentMethod(req.PaymentMethod),
		Message: req.Message,
	}
	if req.PartialAmount != "" {
		amt, err := decimal.NewFromString(req.PartialAmount)
		if err != nil {
			httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed",
				map[string]string{string(form.FieldPartialAmount): "not_a_number"})
			return
		}
		sel.PartialAmount = &amt
	}

	proj, err := sess.UpdateSelection(sel)
	if err != nil {
		p.renderError(w, r, err)
		return
	}
	quote, err := sess.Quote()
	if err != nil {
		p.renderError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"projection": proj,
		"quote":      quote,
	})
}

// Submit sends the payment. On failure the review stage is unchanged and the
// response carries the banner error; retrying is the user's call.
func (p *Portal) Submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	sess, ok := p.sessions.Lookup(r)
	if !ok {
		p.redirectPinEntry(w, r)
		return
	}
	result, err := sess.Submit(r.Context())
	if err != nil {
		p.renderError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"stage":  workflow.StageConfirmation,
		"result": result,
	})
}

// Confirmation renders the read-only confirmation screen. Without a result
// in context it redirects to PIN entry instead of erroring.
func (p *Portal) Confirmation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	sess, ok := p.sessions.Lookup(r)
	if !ok {
		p.redirectPinEntry(w, r)
		return
	}
	result, err := sess.ConfirmationResult()
	if err != nil {
		p.renderError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"stage":  workflow.StageConfirmation,
		"result": result,
	})
}

// Back walks the designated back-edge from review to PIN entry.
func (p *Portal) Back(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	sess, ok := p.sessions.Lookup(r)
	if !ok {
		p.redirectPinEntry(w, r)
		return
	}
	if err := sess.Back(); err != nil {
		p.renderError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"stage":      workflow.StagePinEntry,
		"invoice_id": sess.InvoiceID(),
	})
}

func (p *Portal) writeReview(w http.ResponseWriter, sess *workflow.Session) {
	inv := sess.Invoice()
	sel := sess.Selection()
	quote, err := sess.Quote()
	if err != nil {
		quote = models.PaymentQuote{}
	}
	httpx.JSON(w, http.StatusOK, reviewResponse{
		Stage:      sess.Stage(),
		Invoice:    inv,
		Selection:  sel,
		Projection: form.Evaluate(sel, inv),
		Quote:      quote,
	})
}

func (p *Portal) redirectPinEntry(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/pay", http.StatusSeeOther)
}

// renderError converts a workflow error into its response shape. Navigation
// guard violations redirect silently; everything else renders the taxonomy
// member it belongs to.
func (p *Portal) renderError(w http.ResponseWriter, r *http.Request, err error) {
	var denied *workflow.AccessDeniedError
	var invalid *workflow.ValidationError
	var failed *workflow.SubmissionFailureError
	switch {
	case errors.Is(err, workflow.ErrNavigationGuard):
		p.redirectPinEntry(w, r)
	case errors.Is(err, workflow.ErrRequestInFlight):
		httpx.JSONError(w, http.StatusConflict, "request_in_flight", nil)
	case errors.As(err, &denied):
		httpx.JSONError(w, http.StatusUnauthorized, "access_denied",
			map[string]string{"reason": denied.Reason})
	case errors.As(err, &invalid):
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", invalid.Violations)
	case errors.As(err, &failed):
		httpx.JSONError(w, http.StatusBadGateway, "submission_failed", nil)
	default:
		p.log.Error("unhandled workflow error", zap.Error(err))
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}
