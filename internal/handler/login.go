package handler

import (
	"crypto/subtle"
	"net/http"

	"plantdoctor/internal/config"
	"plantdoctor/internal/logger"
	"plantdoctor/internal/middleware"
)

type loginData struct {
	Error string
}

// LoginHandler serves the login form (GET) and validates the password (POST),
// issuing the auth cookie on success.
func LoginHandler(config *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			renderPage(w, logger, http.StatusOK, "login", loginData{})
			return
		case http.MethodPost:
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		password := r.FormValue("password")
		if config.Password == "" || subtle.ConstantTimeCompare([]byte(password), []byte(config.Password)) != 1 {
			logger.Warning("Failed login attempt from %s", r.RemoteAddr)
			renderPage(w, logger, http.StatusUnauthorized, "login", loginData{Error: "Invalid password"})
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     middleware.AuthCookie,
			Value:    middleware.AuthToken(config.Password),
			Path:     "/",
			MaxAge:   2592000, // 30 days
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// LogoutHandler clears the auth cookie.
func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}
