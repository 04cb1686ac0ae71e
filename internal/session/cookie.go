package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/kollabhq/kollab/internal/apierr"
	"github.com/kollabhq/kollab/internal/store"
)

// CookieName is the session cookie.
const CookieName = "kollab_session"

// sign returns the cookie value for a session id: the id plus an HMAC tag
// keyed on the auth secret.
func (m *Manager) sign(id string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(id))
	return id + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// verify splits a cookie value and checks its tag in constant time,
// returning the embedded session id.
func (m *Manager) verify(value string) (string, error) {
	i := strings.LastIndexByte(value, '.')
	if i <= 0 {
		return "", apierr.Unauthenticated("malformed session cookie")
	}
	id, tag := value[:i], value[i+1:]

	want := hmac.New(sha256.New, m.secret)
	want.Write([]byte(id))
	got, err := base64.RawURLEncoding.DecodeString(tag)
	if err != nil || !hmac.Equal(got, want.Sum(nil)) {
		return "", apierr.Unauthenticated("invalid session cookie")
	}
	return id, nil
}

// IssueCookie sets the signed session cookie on the response.
func (m *Manager) IssueCookie(w http.ResponseWriter, sess *store.Session, production bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    m.sign(sess.ID),
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   production,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie blanks the session cookie on logout.
func (m *Manager) ClearCookie(w http.ResponseWriter, production bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   production,
		SameSite: http.SameSiteLaxMode,
	})
}

// ReadCookie extracts and verifies the session id from the request cookie.
// A missing cookie and a forged cookie are both unauthenticated failures.
func (m *Manager) ReadCookie(r *http.Request) (string, error) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return "", apierr.Unauthenticated("missing session")
	}
	return m.verify(c.Value)
}
