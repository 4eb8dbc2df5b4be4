// Package workflow drives the four-stage payment flow: PIN entry, invoice
// review, submission, confirmation. Forward-only transitions with one
// designated back-edge, expressed as an explicit transition chart plus guards
// for in-flight requests and stale responses.
package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/PassportSoftware/paylink/internal/fees"
	"github.com/PassportSoftware/paylink/internal/form"
	"github.com/PassportSoftware/paylink/internal/gate"
	"github.com/PassportSoftware/paylink/internal/invoicesvc"
	"github.com/PassportSoftware/paylink/internal/models"
)

// Stage is the workflow position of one session.
type Stage string

const (
	StagePinEntry      Stage = "pin_entry"
	StageInvoiceReview Stage = "invoice_review"
	StageConfirmation  Stage = "confirmation"

	// StageCannotAccess is the terminal view reached when re-validation of
	// an already-verified credential comes back 401/404, distinct from an
	// ordinary loading failure.
	StageCannotAccess Stage = "cannot_access"
)

type stageTransitionChart map[Stage][]Stage

var stageTransitions = stageTransitionChart{
	StagePinEntry:      {StagePinEntry, StageInvoiceReview},
	StageInvoiceReview: {StageInvoiceReview, StagePinEntry, StageConfirmation, StageCannotAccess},
	StageConfirmation:  {StagePinEntry, StageInvoiceReview},
	StageCannotAccess:  {StagePinEntry},
}

func (c stageTransitionChart) Allowed(from, to Stage) bool {
	for _, s := range c[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Session is one customer's transient workflow state. It exclusively owns the
// PaymentSelection and PaymentResult; the Invoice is the backend's and is
// referenced, never mutated. Sessions are in-memory only: a fresh visit
// always restarts at PIN entry.
type Session struct {
	svc invoicesvc.Service
	log *zap.Logger
	now func() time.Time

	mu        sync.Mutex
	stage     Stage
	epoch     uint64
	cred      models.AccessCredential
	invoice   *models.Invoice
	selection models.PaymentSelection
	result    *models.PaymentResult

	// At most one verification and one submission request may be in flight;
	// these flags are the whole concurrency guard.
	verifyInFlight bool
	submitInFlight bool
}

// NewSession starts a session at PIN entry.
func NewSession(svc invoicesvc.Service, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		svc:   svc,
		log:   log,
		now:   time.Now,
		stage: StagePinEntry,
	}
}

// Stage returns the session's current stage.
func (s *Session) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// Invoice returns the loaded invoice, nil outside review/confirmation.
func (s *Session) Invoice() *models.Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invoice
}

// InvoiceID returns the invoice identifier carried by the session, if any.
func (s *Session) InvoiceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cred.InvoiceID
}

// Selection returns the current form input.
func (s *Session) Selection() models.PaymentSelection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// transitionLocked moves the session along an allowed edge and bumps the
// epoch, invalidating any response still in flight for the previous state.
// Callers hold s.mu.
func (s *Session) transitionLocked(to Stage) {
	if !stageTransitions.Allowed(s.stage, to) {
		s.log.Warn("stage transition not allowed",
			zap.String("from", string(s.stage)), zap.String("to", string(to)))
		return
	}
	s.stage = to
	s.epoch++
}

// staleLocked reports whether a response that originated at (stage, epoch) is
// no longer applicable. Callers hold s.mu.
func (s *Session) staleLocked(stage Stage, epoch uint64) bool {
	return s.stage != stage || s.epoch != epoch
}

// VerifyPIN runs the access gate against the backend. On acceptance the
// session moves to invoice review with the credential carried along; on
// denial it stays at PIN entry and the error is shown inline.
func (s *Session) VerifyPIN(ctx context.Context, invoiceID, pin string) error {
	s.mu.Lock()
	if s.stage != StagePinEntry {
		s.mu.Unlock()
		return ErrNavigationGuard
	}
	if s.verifyInFlight {
		s.mu.Unlock()
		return ErrRequestInFlight
	}
	s.verifyInFlight = true
	g := gate.New(s.svc)
	originStage, originEpoch := s.stage, s.epoch
	s.mu.Unlock()

	inv, err := g.Verify(ctx, invoiceID, pin)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifyInFlight = false
	if s.staleLocked(originStage, originEpoch) {
		s.log.Debug("dropping stale verification response",
			zap.String("invoice_id", invoiceID))
		return ErrNavigationGuard
	}
	if err != nil {
		// Stay at PIN entry; the epoch bump invalidates the attempt.
		s.transitionLocked(StagePinEntry)
		reason := g.Reason()
		if errors.Is(err, gate.ErrMalformedPIN) {
			reason = "pin must be exactly 6 digits"
		}
		return &AccessDeniedError{Reason: reason, Err: err}
	}

	s.cred = models.AccessCredential{InvoiceID: invoiceID, PIN: pin}
	s.invoice = inv
	s.selection = form.InitialSelection(inv)
	s.result = nil
	s.transitionLocked(StageInvoiceReview)
	s.log.Info("pin accepted", zap.String("invoice_id", invoiceID))
	return nil
}

// EnterReview (re-)loads the invoice for the review stage, re-validating the
// credential with a fresh backend request. It also serves the confirmation
// screen's back-reference: a session at confirmation returns to review here
// without re-entering the PIN. A 401/404 on re-validation lands in the
// cannot-access terminal view.
func (s *Session) EnterReview(ctx context.Context) error {
	s.mu.Lock()
	switch s.stage {
	case StageInvoiceReview:
	case StageConfirmation:
		s.result = nil
		s.transitionLocked(StageInvoiceReview)
	default:
		s.mu.Unlock()
		return ErrNavigationGuard
	}
	if s.cred.InvoiceID == "" || s.cred.PIN == "" {
		s.transitionLocked(StagePinEntry)
		s.mu.Unlock()
		return ErrNavigationGuard
	}
	if s.verifyInFlight {
		s.mu.Unlock()
		return ErrRequestInFlight
	}
	s.verifyInFlight = true
	cred := s.cred
	originStage, originEpoch := s.stage, s.epoch
	s.mu.Unlock()

	inv, err := s.svc.GetInvoice(ctx, cred.InvoiceID, cred.PIN)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifyInFlight = false
	if s.staleLocked(originStage, originEpoch) {
		s.log.Debug("dropping stale review load", zap.String("invoice_id", cred.InvoiceID))
		return ErrNavigationGuard
	}
	if err != nil {
		if errors.Is(err, invoicesvc.ErrInvalidPIN) || errors.Is(err, invoicesvc.ErrNotFound) {
			s.transitionLocked(StageCannotAccess)
			return &AccessDeniedError{Reason: "invoice can no longer be accessed", Err: err}
		}
		// Loading hiccup, not a credential problem: stage unchanged, banner,
		// the user may retry.
		return &SubmissionFailureError{Err: err}
	}

	s.invoice = inv
	if s.selection == (models.PaymentSelection{}) {
		s.selection = form.InitialSelection(inv)
	}
	return nil
}

// Back is the designated back-edge from review to PIN entry. The credential
// stays on the session so the invoice identifier remains in context.
func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StageInvoiceReview {
		return ErrNavigationGuard
	}
	if s.cred.InvoiceID == "" || s.cred.PIN == "" {
		return ErrNavigationGuard
	}
	s.invoice = nil
	s.result = nil
	s.selection = models.PaymentSelection{}
	s.transitionLocked(StagePinEntry)
	return nil
}

// UpdateSelection replaces the form input and returns the freshly derived
// projection. Local only; nothing here reaches the network.
func (s *Session) UpdateSelection(sel models.PaymentSelection) (form.Projection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StageInvoiceReview || s.invoice == nil {
		return form.Projection{}, ErrNavigationGuard
	}
	s.selection = sel
	return form.Evaluate(sel, s.invoice), nil
}

// Quote computes the live fee feedback for the current selection. Pure,
// callable on every form change.
func (s *Session) Quote() (models.PaymentQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StageInvoiceReview || s.invoice == nil {
		return models.PaymentQuote{}, ErrNavigationGuard
	}
	return fees.Quote(s.baseAmountLocked(), s.selection.Method, s.invoice.SurchargeRate), nil
}

// baseAmountLocked returns the amount being paid: the partial amount under
// the Partial option when one is set and positive, the full amount due
// otherwise. Callers hold s.mu.
func (s *Session) baseAmountLocked() decimal.Decimal {
	if s.selection.Option == models.OptionPartial &&
		s.selection.PartialAmount != nil && s.selection.PartialAmount.Sign() > 0 {
		return *s.selection.PartialAmount
	}
	return s.invoice.AmountDue
}

// Submit sends the scheduled payment to the backend. The form is re-checked
// here even though the UI already disabled the button. The payment date is
// the submission date; the same update shape covers first-time scheduling and
// re-scheduling. On failure the session stays in review and nothing is
// retried automatically.
func (s *Session) Submit(ctx context.Context) (*models.PaymentResult, error) {
	s.mu.Lock()
	if s.stage != StageInvoiceReview || s.invoice == nil {
		s.mu.Unlock()
		return nil, ErrNavigationGuard
	}
	if s.submitInFlight {
		s.mu.Unlock()
		return nil, ErrRequestInFlight
	}
	proj := form.Evaluate(s.selection, s.invoice)
	if !proj.Submittable {
		s.mu.Unlock()
		return nil, &ValidationError{Violations: proj.Violations}
	}
	sel := s.selection
	cred := s.cred
	patch := invoicesvc.UpdatePatch{
		PIN:           cred.PIN,
		PaymentMethod: sel.Method,
		PaymentDate:   s.now(),
		Status:        models.InvoiceStatusScheduled,
	}
	s.submitInFlight = true
	originStage, originEpoch := s.stage, s.epoch
	s.mu.Unlock()

	res, err := s.svc.UpdateInvoice(ctx, cred.InvoiceID, patch)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitInFlight = false
	if s.staleLocked(originStage, originEpoch) {
		s.log.Debug("dropping stale submission response",
			zap.String("invoice_id", cred.InvoiceID))
		return nil, ErrNavigationGuard
	}
	if err != nil {
		s.log.Warn("payment submission failed",
			zap.String("invoice_id", cred.InvoiceID), zap.Error(err))
		return nil, &SubmissionFailureError{Err: err}
	}

	// Server-echoed fields win over anything computed locally.
	echoed := res.Invoice
	s.invoice = &echoed
	base := echoed.AmountDue
	if sel.Option == models.OptionPartial && sel.PartialAmount != nil {
		base = *sel.PartialAmount
	}
	q := fees.Quote(base, sel.Method, echoed.SurchargeRate)

	result := &models.PaymentResult{
		InvoiceNumber:   echoed.Number,
		Customer:        echoed.Customer,
		OptionLabel:     sel.Option.Label(),
		MethodLabel:     sel.Method.Label(),
		Amount:          q.Base,
		Fee:             q.Surcharge,
		Total:           q.Total,
		TransactionDate: patch.PaymentDate,
		Success:         true,
	}
	if res.ControlNumber != "" {
		cn := res.ControlNumber
		result.TransactionID = &cn
	}
	s.result = result
	s.transitionLocked(StageConfirmation)
	s.log.Info("payment scheduled",
		zap.String("invoice_id", cred.InvoiceID),
		zap.String("method", string(sel.Method)),
		zap.String("total", q.Total.String()))
	return result, nil
}

// ConfirmationResult returns the payment result for the confirmation screen.
// Reached without a result in context, it redirects to PIN entry instead of
// showing an error.
func (s *Session) ConfirmationResult() (*models.PaymentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StageConfirmation || s.result == nil {
		if s.stage == StageConfirmation {
			s.transitionLocked(StagePinEntry)
		}
		return nil, ErrNavigationGuard
	}
	return s.result, nil
}
