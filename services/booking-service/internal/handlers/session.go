package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/bookly/libs/auth"
	"github.com/md-rashed-zaman/bookly/libs/httpx"
)

const SessionCookie = "bookly_session"

type SessionConfig struct {
	Secret       string
	TTL          time.Duration
	SecureCookie bool
	Now          func() time.Time
}

// Sessions issues and verifies HS256 session tokens carried in a cookie or a Bearer header.
type Sessions struct {
	secret string
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewSessions(cfg SessionConfig) *Sessions {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Sessions{secret: cfg.Secret, ttl: cfg.TTL, secure: cfg.SecureCookie, now: cfg.Now}
}

// Issue sets the session cookie and returns the token for API clients.
func (s *Sessions) Issue(w http.ResponseWriter, userID, username, businessID string) (string, error) {
	now := s.now()
	token, err := auth.SignHS256(auth.NewClaims(userID, username, businessID, now, s.ttl), s.secret)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  now.Add(s.ttl),
		MaxAge:   int(s.ttl / time.Second),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Claims returns the verified session of r. The Authorization header wins over the cookie.
func (s *Sessions) Claims(r *http.Request) (*auth.Claims, error) {
	token, ok := auth.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		c, err := r.Cookie(SessionCookie)
		if err != nil || c.Value == "" {
			return nil, auth.ErrInvalidToken
		}
		token = c.Value
	}
	return auth.ParseAndVerifyHS256(token, s.secret, s.now())
}

type claimsKey struct{}

// RequireUser answers 401 unless the request carries a valid session.
func (s *Sessions) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.Claims(r)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, "sign in required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

func claimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey{}).(*auth.Claims)
	return c
}
