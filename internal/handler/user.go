package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/messagely/messagely/internal/auth"
	"github.com/messagely/messagely/internal/handler/dto"
	"github.com/messagely/messagely/internal/model"
)

// Directory looks up users. It is implemented by *service.UserService.
type Directory interface {
	ListAll(ctx context.Context) ([]model.UserSummary, error)
	GetAs(ctx context.Context, caller, username string) (*model.UserDetail, error)
}

// Mailboxes lists a user's messages. It is implemented by *service.MessageService.
type Mailboxes interface {
	OutgoingAs(ctx context.Context, caller, username string) ([]*model.OutgoingMessage, error)
	IncomingAs(ctx context.Context, caller, username string) ([]*model.IncomingMessage, error)
}

// UserHandler handles user profile and mailbox routes.
type UserHandler struct {
	users     Directory
	mailboxes Mailboxes
	logger    *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users Directory, mailboxes Mailboxes, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:     users,
		mailboxes: mailboxes,
		logger:    logger,
	}
}

// List handles GET /users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.UserListResponse{Users: users})
}

// Get handles GET /users/{username}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetAs(r.Context(), auth.UsernameFromContext(r.Context()), chi.URLParam(r, "username"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.UserResponse{User: user})
}

// Incoming handles GET /users/{username}/to.
func (h *UserHandler) Incoming(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.mailboxes.IncomingAs(r.Context(), auth.UsernameFromContext(r.Context()), chi.URLParam(r, "username"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageListResponse[*model.IncomingMessage]{Messages: msgs})
}

// Outgoing handles GET /users/{username}/from.
func (h *UserHandler) Outgoing(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.mailboxes.OutgoingAs(r.Context(), auth.UsernameFromContext(r.Context()), chi.URLParam(r, "username"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageListResponse[*model.OutgoingMessage]{Messages: msgs})
}
