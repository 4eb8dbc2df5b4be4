package invoicesvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/PassportSoftware/paylink/internal/models"
)

// HTTPClient talks to the invoice backend over its REST contract. It maps
// status codes onto the package sentinels and performs no retries or caching;
// those concerns live with the caller.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient returns a client rooted at baseURL. A nil httpClient falls
// back to http.DefaultClient.
func NewHTTPClient(baseURL string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{baseURL: baseURL, http: httpClient}
}

func (c *HTTPClient) invoiceURL(id string) string {
	return c.baseURL + "/invoices/" + url.PathEscape(id)
}

// GetInvoice fetches the invoice, authorizing with the PIN.
// GET /invoices/{id}?pin={pin}
func (c *HTTPClient) GetInvoice(ctx context.Context, id, pin string) (*models.Invoice, error) {
	u := c.invoiceURL(id) + "?pin=" + url.QueryEscape(pin)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		return nil, err
	}
	var dto InvoiceDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return nil, fmt.Errorf("%w: decode invoice: %v", ErrBackend, err)
	}
	return dto.ToModel()
}

// UpdateInvoice schedules (or re-schedules) a payment.
// PUT /invoices/{id} with {pin, payment_method, payment_date, status}
func (c *HTTPClient) UpdateInvoice(ctx context.Context, id string, patch UpdatePatch) (*UpdateResult, error) {
	body := UpdateRequest{
		PIN:           patch.PIN,
		PaymentMethod: string(patch.PaymentMethod),
		PaymentDate:   patch.PaymentDate.Format(DateLayout),
		Status:        string(patch.Status),
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: encode update: %v", ErrBackend, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.invoiceURL(id), bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		return nil, err
	}
	var dto InvoiceDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return nil, fmt.Errorf("%w: decode invoice: %v", ErrBackend, err)
	}
	inv, err := dto.ToModel()
	if err != nil {
		return nil, err
	}
	return &UpdateResult{Invoice: *inv, ControlNumber: dto.ControlNumber}, nil
}

func statusError(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusUnauthorized:
		return ErrInvalidPIN
	case code == http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("%w: unexpected status %d", ErrBackend, code)
	}
}
