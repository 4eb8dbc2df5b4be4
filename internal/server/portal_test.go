package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/PassportSoftware/paylink/internal/backend"
	"github.com/PassportSoftware/paylink/internal/form"
	"github.com/PassportSoftware/paylink/internal/models"
	"github.com/PassportSoftware/paylink/internal/session"
	"github.com/PassportSoftware/paylink/internal/workflow"
)

func setupPortal(t *testing.T) http.Handler {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := backend.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("123456"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	rec := backend.InvoiceRecord{
		ID:               "1",
		Customer:         "ACME Corp",
		Number:           "INV-2026-0001",
		IssueDate:        time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		DueDate:          time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
		AmountDue:        "2500.00",
		SurchargeRate:    "0.029",
		Status:           "open",
		PINHash:          string(hash),
		CardEnabled:      true,
		BankDebitEnabled: true,
	}
	if err := db.Create(&rec).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	sessions := session.NewStore("testsecret", time.Hour)
	return New(backend.NewLocalService(db), sessions, nil)
}

// client carries cookies between requests the way a browser would.
type client struct {
	t       *testing.T
	handler http.Handler
	cookies []*http.Cookie
}

func (c *client) do(method, path, body string) *httptest.ResponseRecorder {
	c.t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	if set := w.Result().Cookies(); len(set) > 0 {
		c.cookies = set
	}
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func TestFullPaymentFlow(t *testing.T) {
	c := &client{t: t, handler: setupPortal(t)}

	// Wrong PIN: inline denial, stage unchanged.
	w := c.do(http.MethodPost, "/pay/1/verify", `{"pin":"000000"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong pin: expected 401 got %d body=%s", w.Code, w.Body.String())
	}

	// Correct PIN moves to review.
	w = c.do(http.MethodPost, "/pay/1/verify", `{"pin":"123456"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("verify: expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var review struct {
		Stage   workflow.Stage  `json:"stage"`
		Invoice *models.Invoice `json:"invoice"`
	}
	decode(t, w, &review)
	if review.Stage != workflow.StageInvoiceReview {
		t.Fatalf("expected invoice_review, got %s", review.Stage)
	}
	if review.Invoice == nil || review.Invoice.Number != "INV-2026-0001" {
		t.Fatalf("invoice missing from review: %#v", review.Invoice)
	}

	// Review reload re-validates and still works.
	w = c.do(http.MethodGet, "/pay/review", "")
	if w.Code != http.StatusOK {
		t.Fatalf("review: expected 200 got %d", w.Code)
	}

	// Selection: full via card, live quote.
	w = c.do(http.MethodPost, "/pay/selection", `{"payment_option":"full","payment_method":"card"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("selection: expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var selResp struct {
		Projection form.Projection     `json:"projection"`
		Quote      models.PaymentQuote `json:"quote"`
	}
	decode(t, w, &selResp)
	if !selResp.Projection.Submittable {
		t.Fatalf("expected submittable projection: %#v", selResp.Projection)
	}
	if !selResp.Quote.Total.Equal(decimal.RequireFromString("2572.50")) {
		t.Fatalf("quote total = %s", selResp.Quote.Total)
	}

	// Submit and confirm.
	w = c.do(http.MethodPost, "/pay/submit", "")
	if w.Code != http.StatusOK {
		t.Fatalf("submit: expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var submitResp struct {
		Result *models.PaymentResult `json:"result"`
	}
	decode(t, w, &submitResp)
	if submitResp.Result == nil || !submitResp.Result.Success {
		t.Fatalf("expected successful result: %#v", submitResp.Result)
	}
	if !submitResp.Result.Fee.Equal(decimal.RequireFromString("72.50")) {
		t.Fatalf("fee = %s", submitResp.Result.Fee)
	}
	if submitResp.Result.TransactionID == nil {
		t.Fatal("expected a transaction id from the backend")
	}

	w = c.do(http.MethodGet, "/pay/confirmation", "")
	if w.Code != http.StatusOK {
		t.Fatalf("confirmation: expected 200 got %d", w.Code)
	}
}

func TestPartialBelowZeroBlocksSubmission(t *testing.T) {
	c := &client{t: t, handler: setupPortal(t)}

	if w := c.do(http.MethodPost, "/pay/1/verify", `{"pin":"123456"}`); w.Code != http.StatusOK {
		t.Fatalf("verify: %d", w.Code)
	}

	w := c.do(http.MethodPost, "/pay/selection", `{"payment_option":"partial","partial_amount":"-5","payment_method":"check"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("selection: expected 200 got %d", w.Code)
	}
	var selResp struct {
		Projection form.Projection `json:"projection"`
	}
	decode(t, w, &selResp)
	if selResp.Projection.Submittable {
		t.Fatal("negative partial amount must not be submittable")
	}

	w = c.do(http.MethodPost, "/pay/submit", "")
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("submit: expected 422 got %d body=%s", w.Code, w.Body.String())
	}
}

func TestDeepLinksRedirectToPinEntry(t *testing.T) {
	handler := setupPortal(t)
	for _, path := range []string{"/pay/review", "/pay/confirmation"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusSeeOther {
			t.Fatalf("%s: expected 303 got %d", path, w.Code)
		}
		if loc := w.Header().Get("Location"); loc != "/pay" {
			t.Fatalf("%s: expected redirect to /pay, got %q", path, loc)
		}
	}
}

func TestConfirmationAfterBackRedirects(t *testing.T) {
	c := &client{t: t, handler: setupPortal(t)}

	if w := c.do(http.MethodPost, "/pay/1/verify", `{"pin":"123456"}`); w.Code != http.StatusOK {
		t.Fatalf("verify: %d", w.Code)
	}
	if w := c.do(http.MethodPost, "/pay/back", ""); w.Code != http.StatusOK {
		t.Fatalf("back: %d", w.Code)
	}
	// Back at PIN entry the invoice id stays in context.
	w := c.do(http.MethodGet, "/pay", "")
	var pinResp struct {
		InvoiceID string `json:"invoice_id"`
	}
	decode(t, w, &pinResp)
	if pinResp.InvoiceID != "1" {
		t.Fatalf("invoice id lost across back-edge: %q", pinResp.InvoiceID)
	}

	// Confirmation without a result silently redirects.
	w = c.do(http.MethodGet, "/pay/confirmation", "")
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 got %d", w.Code)
	}
}

func TestSelectionWithoutSessionRedirects(t *testing.T) {
	handler := setupPortal(t)
	req := httptest.NewRequest(http.MethodPost, "/pay/selection", strings.NewReader(`{"payment_option":"full"}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 got %d", w.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	handler := setupPortal(t)
	for _, path := range []string{"/health", "/healthz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, w.Code)
		}
	}
}
