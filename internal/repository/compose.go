package repository

import (
	"time"

	"github.com/messagely/messagely/internal/model"
)

// messageDetailRow is the flat shape of a message joined with both users.
type messageDetailRow struct {
	ID     int64
	Body   string
	SentAt time.Time
	ReadAt *time.Time
	From   model.UserSummary
	To     model.UserSummary
}

func (r *messageDetailRow) scanDest() []any {
	return []any{
		&r.ID,
		&r.Body,
		&r.SentAt,
		&r.ReadAt,
		&r.From.Username,
		&r.From.FirstName,
		&r.From.LastName,
		&r.From.Phone,
		&r.To.Username,
		&r.To.FirstName,
		&r.To.LastName,
		&r.To.Phone,
	}
}

// compose assembles the nested message detail from the joined row.
func (r *messageDetailRow) compose() *model.MessageDetail {
	return &model.MessageDetail{
		ID:       r.ID,
		Body:     r.Body,
		SentAt:   r.SentAt,
		ReadAt:   r.ReadAt,
		FromUser: r.From,
		ToUser:   r.To,
	}
}

// partyMessageRow is a message joined with one counterpart user: the
// recipient for outgoing lists, the sender for incoming lists.
type partyMessageRow struct {
	ID     int64
	Party  model.UserSummary
	Body   string
	SentAt time.Time
	ReadAt *time.Time
}

func (r *partyMessageRow) scanDest() []any {
	return []any{
		&r.ID,
		&r.Party.Username,
		&r.Party.FirstName,
		&r.Party.LastName,
		&r.Party.Phone,
		&r.Body,
		&r.SentAt,
		&r.ReadAt,
	}
}

func (r *partyMessageRow) outgoing() *model.OutgoingMessage {
	return &model.OutgoingMessage{
		ID:     r.ID,
		ToUser: r.Party,
		Body:   r.Body,
		SentAt: r.SentAt,
		ReadAt: r.ReadAt,
	}
}

func (r *partyMessageRow) incoming() *model.IncomingMessage {
	return &model.IncomingMessage{
		ID:       r.ID,
		FromUser: r.Party,
		Body:     r.Body,
		SentAt:   r.SentAt,
		ReadAt:   r.ReadAt,
	}
}
