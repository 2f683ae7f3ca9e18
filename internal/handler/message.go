package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/messagely/messagely/internal/auth"
	"github.com/messagely/messagely/internal/handler/dto"
	"github.com/messagely/messagely/internal/model"
)

// Messenger sends, shows and acknowledges messages on behalf of a caller.
// It is implemented by *service.MessageService.
type Messenger interface {
	Send(ctx context.Context, caller, to, body string) (*model.Message, error)
	ViewAs(ctx context.Context, caller string, id int64) (*model.MessageDetail, error)
	MarkReadAs(ctx context.Context, caller string, id int64) (*model.ReadReceipt, error)
}

// MessageHandler handles message routes.
type MessageHandler struct {
	messages Messenger
	logger   *slog.Logger
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(messages Messenger, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{
		messages: messages,
		logger:   logger,
	}
}

// Get handles GET /messages/{id}.
func (h *MessageHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := messageID(w, r)
	if !ok {
		return
	}

	msg, err := h.messages.ViewAs(r.Context(), auth.UsernameFromContext(r.Context()), id)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse[*model.MessageDetail]{Message: msg})
}

// Send handles POST /messages.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req dto.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.messages.Send(r.Context(), auth.UsernameFromContext(r.Context()), req.ToUsername, req.Body)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.MessageResponse[*model.Message]{Message: msg})
}

// MarkRead handles POST /messages/{id}/read.
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := messageID(w, r)
	if !ok {
		return
	}

	receipt, err := h.messages.MarkReadAs(r.Context(), auth.UsernameFromContext(r.Context()), id)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse[*model.ReadReceipt]{Message: receipt})
}

// messageID parses the {id} route parameter.
func messageID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Message ID must be a positive integer")
		return 0, false
	}
	return id, true
}
