package service

import (
	"context"
	"iter"
	"time"

	"github.com/messagely/messagely/internal/model"
)

// UserStore is the persistence collaborator of the identity store.
// It is implemented by *repository.Repository.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, username string) (*model.User, error)
	GetPasswordHash(ctx context.Context, username string) (string, error)
	UpdateLastLogin(ctx context.Context, username string) (time.Time, error)
	ListUsers(ctx context.Context) ([]model.UserSummary, error)
}

// MessageStore is the persistence collaborator of the message store.
// It is implemented by *repository.Repository.
type MessageStore interface {
	CreateMessage(ctx context.Context, from, to, body string) (*model.Message, error)
	GetMessage(ctx context.Context, id int64) (*model.MessageDetail, error)
	MarkMessageRead(ctx context.Context, id int64) (*model.ReadReceipt, error)
	OutgoingMessages(ctx context.Context, username string) iter.Seq2[*model.OutgoingMessage, error]
	IncomingMessages(ctx context.Context, username string) iter.Seq2[*model.IncomingMessage, error]
}

// PasswordHasher computes and checks credential digests.
// It is implemented by *auth.PasswordHasher.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// Collect drains a lazy sequence into a slice, stopping at the first error.
// The result is never nil on success.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	out := make([]T, 0)
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
