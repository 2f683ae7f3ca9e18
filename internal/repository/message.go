package repository

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/jackc/pgx/v5"

	"github.com/messagely/messagely/internal/model"
)

// CreateMessage inserts a new unread message and returns the stored row.
func (r *Repository) CreateMessage(ctx context.Context, from, to, body string) (*model.Message, error) {
	query := `
		INSERT INTO messages (from_username, to_username, body, sent_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, from_username, to_username, body, sent_at, read_at
	`

	var m model.Message
	err := r.pool.QueryRow(ctx, query, from, to, body).Scan(
		&m.ID,
		&m.FromUsername,
		&m.ToUsername,
		&m.Body,
		&m.SentAt,
		&m.ReadAt,
	)

	if err != nil {
		if missing := missingMessageParty(err, from, to); missing != nil {
			return nil, missing
		}
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	return &m, nil
}

// GetMessage retrieves a message with both parties expanded.
func (r *Repository) GetMessage(ctx context.Context, id int64) (*model.MessageDetail, error) {
	query := `
		SELECT m.id, m.body, m.sent_at, m.read_at,
		       f.username, f.first_name, f.last_name, f.phone,
		       t.username, t.first_name, t.last_name, t.phone
		FROM messages AS m
		JOIN users AS f ON m.from_username = f.username
		JOIN users AS t ON m.to_username = t.username
		WHERE m.id = $1
	`

	var row messageDetailRow
	if err := r.pool.QueryRow(ctx, query, id).Scan(row.scanDest()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return row.compose(), nil
}

// MarkMessageRead sets read_at if the message is still unread.
// The check and the write are a single conditional update, so concurrent
// callers cannot both succeed.
func (r *Repository) MarkMessageRead(ctx context.Context, id int64) (*model.ReadReceipt, error) {
	query := `
		UPDATE messages
		SET read_at = GREATEST(sent_at, now())
		WHERE id = $1 AND read_at IS NULL
		RETURNING id, read_at
	`

	var receipt model.ReadReceipt
	err := r.pool.QueryRow(ctx, query, id).Scan(&receipt.ID, &receipt.ReadAt)
	if err == nil {
		return &receipt, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to mark message read: %w", err)
	}

	exists, err := r.MessageExists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrMessageNotFound
	}
	return nil, ErrAlreadyRead
}

// MessageExists checks if a message id exists.
func (r *Repository) MessageExists(ctx context.Context, id int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM messages WHERE id = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check message existence: %w", err)
	}

	return exists, nil
}

// OutgoingMessages streams messages sent by username, oldest first,
// with the recipient expanded.
func (r *Repository) OutgoingMessages(ctx context.Context, username string) iter.Seq2[*model.OutgoingMessage, error] {
	query := `
		SELECT m.id, u.username, u.first_name, u.last_name, u.phone, m.body, m.sent_at, m.read_at
		FROM messages AS m
		JOIN users AS u ON m.to_username = u.username
		WHERE m.from_username = $1
		ORDER BY m.sent_at, m.id
	`

	return queryPartyMessages(ctx, r, query, username, (*partyMessageRow).outgoing)
}

// IncomingMessages streams messages received by username, oldest first,
// with the sender expanded.
func (r *Repository) IncomingMessages(ctx context.Context, username string) iter.Seq2[*model.IncomingMessage, error] {
	query := `
		SELECT m.id, u.username, u.first_name, u.last_name, u.phone, m.body, m.sent_at, m.read_at
		FROM messages AS m
		JOIN users AS u ON m.from_username = u.username
		WHERE m.to_username = $1
		ORDER BY m.sent_at, m.id
	`

	return queryPartyMessages(ctx, r, query, username, (*partyMessageRow).incoming)
}

// queryPartyMessages runs query lazily: rows are only fetched while the
// consumer keeps ranging, and the row set is closed when it stops.
func queryPartyMessages[T any](ctx context.Context, r *Repository, query, username string, compose func(*partyMessageRow) T) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T

		rows, err := r.pool.Query(ctx, query, username)
		if err != nil {
			yield(zero, fmt.Errorf("failed to list messages: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var row partyMessageRow
			if err := rows.Scan(row.scanDest()...); err != nil {
				yield(zero, fmt.Errorf("failed to scan message: %w", err))
				return
			}
			if !yield(compose(&row), nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(zero, fmt.Errorf("error iterating messages: %w", err))
		}
	}
}
