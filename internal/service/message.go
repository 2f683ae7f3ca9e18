package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/messagely/messagely/internal/metrics"
	"github.com/messagely/messagely/internal/model"
	"github.com/messagely/messagely/internal/policy"
	"github.com/messagely/messagely/internal/repository"
)

// MessageService is the message store: creation, lookup, read
// acknowledgement and per-user listings.
//
// Create, Get, MarkRead, OutgoingFor and IncomingFor apply no access
// control. The *As variants check the access policy for an explicit caller
// before touching the store.
type MessageService struct {
	store   MessageStore
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewMessageService creates a new MessageService.
func NewMessageService(store MessageStore, recorder metrics.Recorder, logger *slog.Logger) *MessageService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &MessageService{
		store:   store,
		metrics: recorder,
		logger:  logger,
	}
}

// Create stores a new unread message from one user to another.
// Both users must exist; the error names the missing one.
func (s *MessageService) Create(ctx context.Context, from, to, body string) (*model.Message, error) {
	if from == "" || to == "" {
		return nil, fmt.Errorf("%w: sender and recipient are required", ErrInvalidInput)
	}

	msg, err := s.store.CreateMessage(ctx, from, to, body)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrUserNotFound, err)
		}
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	s.metrics.IncMessageSent()
	s.logger.Info("message_sent",
		"message_id", msg.ID,
		"from_username", msg.FromUsername,
		"to_username", msg.ToUsername,
	)

	return msg, nil
}

// Get returns a message with both parties freshly expanded.
func (s *MessageService) Get(ctx context.Context, id int64) (*model.MessageDetail, error) {
	msg, err := s.store.GetMessage(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return msg, nil
}

// MarkRead sets read_at on an unread message.
// A message that is already read yields ErrAlreadyRead and keeps its
// original read_at.
func (s *MessageService) MarkRead(ctx context.Context, id int64) (*model.ReadReceipt, error) {
	receipt, err := s.store.MarkMessageRead(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrMessageNotFound):
			return nil, ErrMessageNotFound
		case errors.Is(err, repository.ErrAlreadyRead):
			return nil, ErrAlreadyRead
		default:
			return nil, fmt.Errorf("failed to mark message read: %w", err)
		}
	}

	s.metrics.IncMessageRead()
	s.logger.Info("message_read", "message_id", receipt.ID)

	return receipt, nil
}

// OutgoingFor lazily lists the messages sent by username.
func (s *MessageService) OutgoingFor(ctx context.Context, username string) iter.Seq2[*model.OutgoingMessage, error] {
	return s.store.OutgoingMessages(ctx, username)
}

// IncomingFor lazily lists the messages received by username.
func (s *MessageService) IncomingFor(ctx context.Context, username string) iter.Seq2[*model.IncomingMessage, error] {
	return s.store.IncomingMessages(ctx, username)
}

// Send creates a message from caller. The sender is always the caller.
func (s *MessageService) Send(ctx context.Context, caller, to, body string) (*model.Message, error) {
	if caller == "" {
		return nil, ErrForbidden
	}
	return s.Create(ctx, caller, to, body)
}

// ViewAs returns a message if caller is one of its parties.
// A missing message is reported as ErrForbidden too, so callers cannot
// probe which ids exist.
func (s *MessageService) ViewAs(ctx context.Context, caller string, id int64) (*model.MessageDetail, error) {
	msg, err := s.authorized(ctx, caller, id, "view_message", policy.CanView)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// MarkReadAs acknowledges a message if caller is its recipient.
func (s *MessageService) MarkReadAs(ctx context.Context, caller string, id int64) (*model.ReadReceipt, error) {
	if _, err := s.authorized(ctx, caller, id, "mark_read", policy.CanMarkRead); err != nil {
		return nil, err
	}
	return s.MarkRead(ctx, id)
}

// OutgoingAs lists username's sent messages if caller may act as username.
func (s *MessageService) OutgoingAs(ctx context.Context, caller, username string) ([]*model.OutgoingMessage, error) {
	if !policy.CanActAsUser(caller, username) {
		s.denied(caller, "list_outgoing")
		return nil, ErrForbidden
	}
	return Collect(s.OutgoingFor(ctx, username))
}

// IncomingAs lists username's received messages if caller may act as username.
func (s *MessageService) IncomingAs(ctx context.Context, caller, username string) ([]*model.IncomingMessage, error) {
	if !policy.CanActAsUser(caller, username) {
		s.denied(caller, "list_incoming")
		return nil, ErrForbidden
	}
	return Collect(s.IncomingFor(ctx, username))
}

// authorized loads message id and applies allow for caller.
func (s *MessageService) authorized(
	ctx context.Context,
	caller string,
	id int64,
	action string,
	allow func(string, *model.MessageDetail) bool,
) (*model.MessageDetail, error) {
	msg, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrMessageNotFound) {
			s.denied(caller, action)
			return nil, ErrForbidden
		}
		return nil, err
	}

	if !allow(caller, msg) {
		s.denied(caller, action)
		return nil, ErrForbidden
	}

	return msg, nil
}

func (s *MessageService) denied(caller, action string) {
	s.metrics.IncAccessDenied(action)
	s.logger.Warn("access_denied", "caller", caller, "action", action)
}
