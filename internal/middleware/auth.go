package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
)

// AuthCookie holds the login token.
const AuthCookie = "authenticated"

// AuthToken derives the cookie value for password.
func AuthToken(password string) string {
	sum := sha256.Sum256([]byte("plantdoctor:" + password))
	return hex.EncodeToString(sum[:])
}

// Auth checks that the user is logged in. An empty password disables the gate.
func Auth(password string) Middleware {
	token := AuthToken(password)
	return func(next http.Handler) http.Handler {
		if password == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Login page and health probe stay public.
			if r.URL.Path == "/auth/login" || r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(AuthCookie)
			if err != nil || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(token)) != 1 {
				if strings.HasPrefix(r.URL.Path, "/api/") ||
					r.URL.Path == "/ws" ||
					r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
					r.Header.Get("Content-Type") == "application/json" {
					http.Error(w, "Unauthorized", http.StatusUnauthorized)
					return
				}
				http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
