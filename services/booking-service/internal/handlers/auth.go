package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/bookly/libs/httpx"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/errs"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type AuthHandler struct {
	users    storage.UserQueries
	catalog  *catalog.Catalog
	sessions *Sessions
	logger   *slog.Logger
}

func NewAuthHandler(users storage.UserQueries, c *catalog.Catalog, sessions *Sessions, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, catalog: c, sessions: sessions, logger: logger}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User     userItem      `json:"user"`
	Business *businessItem `json:"business"`
	Token    string        `json:"token,omitempty"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	var v errs.ValidationError
	if !validUsername(req.Username) {
		v.Add("username", "must be 3-32 characters of letters, digits, '.', '_' or '-'")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		v.Add("email", "is not a valid email address")
	}
	if len(req.Password) < minPasswordLength {
		v.Add("password", "must be at least 8 characters")
	}
	if err := v.Err(); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	user := model.User{ID: uuid.NewString(), Username: req.Username, Email: req.Email, PasswordHash: hash}
	if err := h.users.CreateUser(r.Context(), &user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			httpx.WriteError(w, http.StatusConflict, "username or email already registered")
			return
		}
		writeError(w, r, h.logger, err)
		return
	}

	token, err := h.sessions.Issue(w, user.ID, user.Username, "")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Info("user registered", "user_id", user.ID)
	httpx.WriteJSON(w, http.StatusCreated, sessionResponse{User: toUser(user), Token: token})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	login := strings.ToLower(strings.TrimSpace(req.Login))
	if login == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "login and password required")
		return
	}

	user, err := h.users.GetUserByLogin(r.Context(), login)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if user == nil || verifyPassword(user.PasswordHash, req.Password) != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	biz, err := h.catalog.BusinessForOwner(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	businessID := ""
	if biz != nil {
		businessID = biz.ID
	}
	token, err := h.sessions.Issue(w, user.ID, user.Username, businessID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sessionResponse{User: toUser(*user), Business: optionalBusiness(biz), Token: token})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	h.sessions.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	user, err := h.users.GetUser(r.Context(), claims.Subject)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if user == nil {
		h.sessions.Clear(w)
		httpx.WriteError(w, http.StatusUnauthorized, "sign in required")
		return
	}
	biz, err := h.catalog.BusinessForOwner(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sessionResponse{User: toUser(*user), Business: optionalBusiness(biz)})
}

func optionalBusiness(b *model.Business) *businessItem {
	if b == nil {
		return nil
	}
	item := toBusiness(*b)
	return &item
}

func hashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

func verifyPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

func validUsername(s string) bool {
	if len(s) < 3 || len(s) > 32 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}
