package backend

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/PassportSoftware/paylink/internal/httpx"
	"github.com/PassportSoftware/paylink/internal/invoicesvc"
	"github.com/PassportSoftware/paylink/internal/models"
)

// Handler serves the backend REST contract:
//
//	GET /invoices/{id}?pin={pin}
//	PUT /invoices/{id}
type Handler struct {
	DB  *gorm.DB
	Log *zap.Logger
}

func NewHandler(db *gorm.DB, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{DB: db, Log: log}
}

// Register mounts the invoice routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("/invoices/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/invoices/")
		if id == "" || strings.Contains(id, "/") {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.Get(w, r, id)
		case http.MethodPut:
			h.Update(w, r, id)
		default:
			w.Header().Set("Allow", "GET,PUT")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	}))
}

// load fetches the record and checks the PIN, writing the error response
// itself when access fails.
func (h *Handler) load(w http.ResponseWriter, id, pin string) *InvoiceRecord {
	var rec InvoiceRecord
	if err := h.DB.First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		} else {
			h.Log.Error("invoice lookup failed", zap.String("id", id), zap.Error(err))
			httpx.JSONError(w, http.StatusInternalServerError, "storage_error", nil)
		}
		return nil
	}
	if !rec.PINMatches(pin) {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_pin", nil)
		return nil
	}
	return &rec
}

// Get returns the invoice record after a successful PIN check.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request, id string) {
	rec := h.load(w, id, r.URL.Query().Get("pin"))
	if rec == nil {
		return
	}
	httpx.JSON(w, http.StatusOK, rec.toDTO())
}

// Update schedules (or re-schedules) a payment and echoes the updated
// record. A repeated PUT overwrites method and date; it never duplicates the
// payment and the control number stays stable.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request, id string) {
	var req invoicesvc.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	method := models.PaymentMethod(req.PaymentMethod)
	if !method.Valid() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed",
			map[string]string{"payment_method": "unknown_method"})
		return
	}
	date, err := time.Parse(invoicesvc.DateLayout, req.PaymentDate)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed",
			map[string]string{"payment_date": "bad_date"})
		return
	}
	status := models.InvoiceStatus(req.Status)
	if status != models.InvoiceStatusScheduled {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed",
			map[string]string{"status": "unsupported_status"})
		return
	}

	rec := h.load(w, id, req.PIN)
	if rec == nil {
		return
	}
	rec.applyPayment(method, date, status, uuid.NewString)
	if err := h.DB.Save(rec).Error; err != nil {
		h.Log.Error("invoice update failed", zap.String("id", id), zap.Error(err))
		httpx.JSONError(w, http.StatusInternalServerError, "storage_error", nil)
		return
	}
	h.Log.Info("payment scheduled",
		zap.String("id", id),
		zap.String("method", req.PaymentMethod),
		zap.String("date", req.PaymentDate))
	httpx.JSON(w, http.StatusOK, rec.toDTO())
}
