package user

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/marcopiovanello/yt-dlp-remote/server/config"
	middlewares "github.com/marcopiovanello/yt-dlp-remote/server/middleware"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func matches(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func Login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	auth := config.Instance().Authentication

	// empty credentials would match an empty request
	if auth.Username == "" || auth.Password == "" {
		http.Error(w, "login is not configured", http.StatusServiceUnavailable)
		return
	}

	if !matches(req.Username, auth.Username) || !matches(req.Password, auth.Password) {
		http.Error(w, "invalid username or password", http.StatusUnauthorized)
		return
	}

	now := time.Now()
	expiresAt := now.Add(middlewares.TOKEN_TTL)

	token, err := middlewares.IssueToken(req.Username, now)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middlewares.TOKEN_COOKIE_NAME,
		HttpOnly: true,
		Secure:   false,
		Expires:  expiresAt,
		Value:    token,
		Path:     "/",
	})

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(LoginResponse{Token: token, ExpiresAt: expiresAt}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middlewares.TOKEN_COOKIE_NAME,
		HttpOnly: true,
		Secure:   false,
		Expires:  time.Now(),
		Value:    "",
		Path:     "/",
	})
	w.WriteHeader(http.StatusNoContent)
}
