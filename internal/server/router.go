// Package server wires the customer-facing portal routes: PIN entry, invoice
// review with live fee feedback, submission, and confirmation.
package server

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/PassportSoftware/paylink/internal/httpx"
	"github.com/PassportSoftware/paylink/internal/invoicesvc"
	"github.com/PassportSoftware/paylink/internal/session"
)

// New constructs the root http.Handler for the portal.
func New(svc invoicesvc.Service, sessions *session.Store, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Portal{svc: svc, sessions: sessions, log: log}

	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/pay", func(w http.ResponseWriter, r *http.Request) {
		p.PinEntry(w, r, "")
	})
	mux.Handle("/pay/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/pay/")
		segs := strings.Split(rest, "/")
		switch {
		case len(segs) == 1 && segs[0] == "review":
			p.Review(w, r)
		case len(segs) == 1 && segs[0] == "selection":
			p.Selection(w, r)
		case len(segs) == 1 && segs[0] == "submit":
			p.Submit(w, r)
		case len(segs) == 1 && segs[0] == "confirmation":
			p.Confirmation(w, r)
		case len(segs) == 1 && segs[0] == "back":
			p.Back(w, r)
		case len(segs) == 1 && segs[0] != "":
			p.PinEntry(w, r, segs[0])
		case len(segs) == 2 && segs[1] == "verify":
			p.Verify(w, r, segs[0])
		default:
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		}
	}))

	return withLogging(mux, log)
}

// withLogging adds request logging middleware.
func withLogging(next http.Handler, log *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		log.Debug("request", zap.String("method", r.Method), zap.String("path", r.URL.Path))
	})
}
