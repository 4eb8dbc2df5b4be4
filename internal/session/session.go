// Package session keeps workflow sessions in memory and ties each to an
// HMAC-signed cookie carrying a random identifier. The PIN never enters the
// cookie; losing the cookie or restarting the server restarts the customer at
// PIN entry, which is the intended lifetime.
package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PassportSoftware/paylink/internal/workflow"
)

const cookieName = "paylink_session"

// Store is the in-memory session registry. Expired entries are dropped
// lazily on lookup; there is no background sweeper.
type Store struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	sess    *workflow.Session
	expires time.Time
}

func NewStore(secret string, ttl time.Duration) *Store {
	return &Store{
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// Issue registers sess under a fresh identifier and sets the signed cookie.
func (s *Store) Issue(w http.ResponseWriter, sess *workflow.Session) {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &entry{sess: sess, expires: s.now().Add(s.ttl)}
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id + "." + s.sign(id),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		// No Expires: the cookie dies with the browser session.
	})
}

// Lookup validates the request's cookie and returns the live session.
func (s *Store) Lookup(r *http.Request) (*workflow.Session, bool) {
	c, err := r.Cookie(cookieName)
	if err != nil || c.Value == "" {
		return nil, false
	}
	parts := strings.Split(c.Value, ".")
	if len(parts) != 2 {
		return nil, false
	}
	id, sig := parts[0], parts[1]
	if !hmac.Equal([]byte(sig), []byte(s.sign(id))) {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.now().After(e.expires) {
		delete(s.sessions, id)
		return nil, false
	}
	e.expires = s.now().Add(s.ttl)
	return e.sess, true
}

// Clear deletes the session cookie.
func (s *Store) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Store) sign(id string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
