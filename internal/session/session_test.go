package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PassportSoftware/paylink/internal/workflow"
)

func issueAndCookie(t *testing.T, store *Store) (*workflow.Session, *http.Cookie) {
	t.Helper()
	sess := workflow.NewSession(nil, nil)
	w := httptest.NewRecorder()
	store.Issue(w, sess)
	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	return sess, cookies[0]
}

func TestIssueAndLookup(t *testing.T) {
	store := NewStore("testsecret", time.Hour)
	sess, cookie := issueAndCookie(t, store)

	r := httptest.NewRequest(http.MethodGet, "/pay/review", nil)
	r.AddCookie(cookie)
	got, ok := store.Lookup(r)
	if !ok {
		t.Fatal("expected lookup to succeed")
	}
	if got != sess {
		t.Fatal("lookup returned a different session")
	}
}

func TestLookupRejectsTamperedCookie(t *testing.T) {
	store := NewStore("testsecret", time.Hour)
	_, cookie := issueAndCookie(t, store)

	parts := strings.SplitN(cookie.Value, ".", 2)
	forged := *cookie
	forged.Value = parts[0] + ".AAAA" + parts[1][4:]

	r := httptest.NewRequest(http.MethodGet, "/pay/review", nil)
	r.AddCookie(&forged)
	if _, ok := store.Lookup(r); ok {
		t.Fatal("tampered cookie must not resolve a session")
	}
}

func TestLookupRejectsForeignSecret(t *testing.T) {
	store := NewStore("secret-a", time.Hour)
	other := NewStore("secret-b", time.Hour)
	_, cookie := issueAndCookie(t, other)

	r := httptest.NewRequest(http.MethodGet, "/pay/review", nil)
	r.AddCookie(cookie)
	if _, ok := store.Lookup(r); ok {
		t.Fatal("cookie signed with another secret must not resolve")
	}
}

func TestLookupExpiry(t *testing.T) {
	store := NewStore("testsecret", time.Minute)
	current := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	_, cookie := issueAndCookie(t, store)

	r := httptest.NewRequest(http.MethodGet, "/pay/review", nil)
	r.AddCookie(cookie)
	if _, ok := store.Lookup(r); !ok {
		t.Fatal("expected fresh session to resolve")
	}

	current = current.Add(2 * time.Minute)
	if _, ok := store.Lookup(r); ok {
		t.Fatal("expired session must not resolve")
	}
}

func TestLookupNoCookie(t *testing.T) {
	store := NewStore("testsecret", time.Hour)
	r := httptest.NewRequest(http.MethodGet, "/pay/review", nil)
	if _, ok := store.Lookup(r); ok {
		t.Fatal("request without cookie must not resolve")
	}
}
