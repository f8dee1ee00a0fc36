package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	SessionCookieName = "chat_session"
	sessionTTL        = 24 * time.Hour
)

// Sessions ties API calls to a page load: GET / issues a signed cookie and the
// chat endpoints require it. A nil *Sessions disables the check entirely.
type Sessions struct {
	Secret []byte
	secure bool
}

// NewSessions returns nil when secret is empty.
func NewSessions(secret string, secureCookie bool) *Sessions {
	if secret == "" {
		return nil
	}
	return &Sessions{Secret: []byte(secret), secure: secureCookie}
}

// GenerateToken creates a session JWT with a 24 hour expiry
func (s *Sessions) GenerateToken() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sid": uuid.NewString(),
		"exp": now.Add(sessionTTL).Unix(),
		"iat": now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.Secret)
}

// Issue sets a fresh session cookie on the response.
func (s *Sessions) Issue(w http.ResponseWriter) error {
	if s == nil {
		return nil
	}
	token, err := s.GenerateToken()
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

// Valid reports whether tokenStr is a session token signed with our secret.
func (s *Sessions) Valid(tokenStr string) bool {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return s.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return false
	}
	sid, _ := claims["sid"].(string)
	_, err = uuid.Parse(sid)
	return err == nil
}

// Middleware rejects requests without a valid session cookie.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	if s == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || !s.Valid(cookie.Value) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
