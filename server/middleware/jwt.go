package middlewares

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/marcopiovanello/yt-dlp-remote/server/config"
)

const (
	TOKEN_COOKIE_NAME = "jwt"
	TOKEN_TTL         = 24 * time.Hour
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSecret     = errors.New("authentication.jwt_secret is not set")
)

func secret() ([]byte, error) {
	s := config.Instance().Authentication.JWTSecret
	if s == "" {
		return nil, ErrNoSecret
	}
	return []byte(s), nil
}

// IssueToken signs a HS256 token for username valid for TOKEN_TTL.
func IssueToken(username string, now time.Time) (string, error) {
	key, err := secret()
	if err != nil {
		return "", err
	}

	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(TOKEN_TTL)),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString(key)
}

func ParseToken(tokenString string) (*jwt.RegisteredClaims, error) {
	// an empty HMAC key would let anyone forge tokens
	key, err := secret()
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// tokenFromRequest reads the Bearer header first, then the cookie.
// Browsers cannot set headers on websocket upgrades, hence the cookie.
func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if t, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(t)
		}
	}

	if c, err := r.Cookie(TOKEN_COOKIE_NAME); err == nil {
		return c.Value
	}

	return ""
}

func Authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := tokenFromRequest(r)
		if tokenString == "" {
			http.Error(w, "missing authentication token", http.StatusUnauthorized)
			return
		}

		if _, err := ParseToken(tokenString); err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
