package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/medhaus/clinicflow/pkg/config"
)

// SessionCookieName is the staff session cookie.
const SessionCookieName = "staff_session"

// StaffSessions issues and verifies HMAC-signed staff session cookies.
// Sessions are stateless: the cookie carries its own expiry, signed with
// the server secret, so no session store is needed.
type StaffSessions struct {
	secret []byte
	ttl    time.Duration
}

// NewStaffSessions creates a session signer from config.
func NewStaffSessions(cfg *config.StaffConfig) *StaffSessions {
	return &StaffSessions{
		secret: []byte(cfg.SecretKey),
		ttl:    cfg.SessionTTL,
	}
}

// TTL returns the configured session lifetime.
func (s *StaffSessions) TTL() time.Duration {
	return s.ttl
}

// Issue returns a signed session value valid for the configured TTL.
func (s *StaffSessions) Issue(now time.Time) string {
	expiry := strconv.FormatInt(now.Add(s.ttl).Unix(), 10)
	return expiry + "." + s.sign(expiry)
}

// Verify reports whether value is a validly signed, unexpired session.
func (s *StaffSessions) Verify(value string, now time.Time) bool {
	expiry, sig, found := strings.Cut(value, ".")
	if !found {
		return false
	}
	if !hmac.Equal([]byte(sig), []byte(s.sign(expiry))) {
		return false
	}
	exp, err := strconv.ParseInt(expiry, 10, 64)
	if err != nil {
		return false
	}
	return now.Unix() < exp
}

// Middleware rejects requests without a valid staff session cookie.
func (s *StaffSessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || !s.Verify(cookie.Value, time.Now()) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"staff session required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *StaffSessions) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
