package auth

import (
	"net/http"
	"strings"
)

// CookieName carries the session token.
const CookieName = "auth-token"

// CookieValue returns the value of the named cookie from a raw Cookie header.
// Pairs are split on the first '='; pairs with an empty name or value are
// ignored.
func CookieValue(header, name string) (string, bool) {
	for _, part := range strings.Split(header, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		if key == name {
			return value, true
		}
	}
	return "", false
}

// SessionFromCookieHeader extracts and verifies the session token found in a
// raw Cookie header.
func (i *TokenIssuer) SessionFromCookieHeader(header string) (*Session, bool) {
	token, ok := CookieValue(header, CookieName)
	if !ok {
		return nil, false
	}
	return i.VerifyToken(token)
}

// SessionFromRequest is SessionFromCookieHeader applied to r's Cookie header.
func (i *TokenIssuer) SessionFromRequest(r *http.Request) (*Session, bool) {
	return i.SessionFromCookieHeader(r.Header.Get("Cookie"))
}

// SessionCookie builds the cookie set on login.
func SessionCookie(token string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearedCookie expires the session cookie (rendered as Max-Age=0).
func ClearedCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
