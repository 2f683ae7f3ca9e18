package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/messagely/messagely/internal/auth"
	"github.com/messagely/messagely/internal/handler/dto"
	"github.com/messagely/messagely/internal/model"
	"github.com/messagely/messagely/internal/service"
)

// Accounts registers and logs in users. It is implemented by *service.UserService.
type Accounts interface {
	Register(ctx context.Context, input service.RegisterInput) (*model.User, error)
	Login(ctx context.Context, username, password string) (*model.UserDetail, error)
}

// TokenIssuer mints access tokens. It is implemented by *auth.TokenIssuer.
type TokenIssuer interface {
	Issue(username string) (string, *model.Session, error)
}

// SessionStore persists sessions. It is implemented by *cache.Cache.
type SessionStore interface {
	CreateSession(ctx context.Context, session *model.Session) error
	DeleteSession(ctx context.Context, id string) error
}

// AuthHandler handles registration, login and logout.
type AuthHandler struct {
	accounts Accounts
	tokens   TokenIssuer
	sessions SessionStore
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(accounts Accounts, tokens TokenIssuer, sessions SessionStore, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		tokens:   tokens,
		sessions: sessions,
		logger:   logger,
	}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.accounts.Register(r.Context(), service.RegisterInput{
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.respondWithToken(w, r, http.StatusCreated, user.Username)
}

// Login handles POST /auth/login.
// Unknown users and wrong passwords get the same response.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) || errors.Is(err, service.ErrUserNotFound) {
			writeError(w, http.StatusBadRequest, "INVALID_CREDENTIALS", "Invalid username or password")
			return
		}
		handleServiceError(w, h.logger, err)
		return
	}

	h.respondWithToken(w, r, http.StatusOK, user.Username)
}

// Logout handles POST /auth/logout. It revokes the caller's session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing token")
		return
	}

	if err := h.sessions.DeleteSession(r.Context(), identity.SessionID); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("session_revoked", "username", identity.Username, "session_id", identity.SessionID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, r *http.Request, status int, username string) {
	token, session, err := h.tokens.Issue(username)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if err := h.sessions.CreateSession(r.Context(), session); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("session_created", "username", username, "session_id", session.ID)
	writeJSON(w, status, dto.TokenResponse{Token: token})
}
