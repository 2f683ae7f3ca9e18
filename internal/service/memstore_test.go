package service

import (
	"context"
	"errors"
	"iter"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/messagely/messagely/internal/auth"
	"github.com/messagely/messagely/internal/model"
	"github.com/messagely/messagely/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// memStore is an in-memory UserStore and MessageStore with the same
// error contract as the repository.
type memStore struct {
	mu       sync.Mutex
	users    map[string]*model.User
	messages []*model.Message
	clock    time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[string]*model.User),
		clock: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp.
func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) CreateUser(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Username]; ok {
		return repository.ErrUsernameExists
	}
	now := m.tick()
	user.JoinAt = now
	user.LastLoginAt = now
	stored := *user
	m.users[user.Username] = &stored
	return nil
}

func (m *memStore) GetUser(_ context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (m *memStore) GetPasswordHash(_ context.Context, username string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return "", repository.ErrUserNotFound
	}
	return u.PasswordHash, nil
}

func (m *memStore) UpdateLastLogin(_ context.Context, username string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return time.Time{}, repository.ErrUserNotFound
	}
	u.LastLoginAt = m.tick()
	return u.LastLoginAt, nil
}

func (m *memStore) ListUsers(_ context.Context) ([]model.UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.UserSummary, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *memStore) CreateMessage(_ context.Context, from, to, body string) (*model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[from]; !ok {
		return nil, &repository.MissingUserError{Username: from, Role: "sender"}
	}
	if _, ok := m.users[to]; !ok {
		return nil, &repository.MissingUserError{Username: to, Role: "recipient"}
	}
	msg := &model.Message{
		ID:           int64(len(m.messages) + 1),
		FromUsername: from,
		ToUsername:   to,
		Body:         body,
		SentAt:       m.tick(),
	}
	m.messages = append(m.messages, msg)
	out := *msg
	return &out, nil
}

func (m *memStore) find(id int64) *model.Message {
	if id < 1 || id > int64(len(m.messages)) {
		return nil
	}
	return m.messages[id-1]
}

func (m *memStore) GetMessage(_ context.Context, id int64) (*model.MessageDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := m.find(id)
	if msg == nil {
		return nil, repository.ErrMessageNotFound
	}
	return &model.MessageDetail{
		ID:       msg.ID,
		Body:     msg.Body,
		SentAt:   msg.SentAt,
		ReadAt:   msg.ReadAt,
		FromUser: m.users[msg.FromUsername].Summary(),
		ToUser:   m.users[msg.ToUsername].Summary(),
	}, nil
}

func (m *memStore) MarkMessageRead(_ context.Context, id int64) (*model.ReadReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := m.find(id)
	if msg == nil {
		return nil, repository.ErrMessageNotFound
	}
	if msg.ReadAt != nil {
		return nil, repository.ErrAlreadyRead
	}
	now := m.tick()
	msg.ReadAt = &now
	return &model.ReadReceipt{ID: msg.ID, ReadAt: now}, nil
}

func (m *memStore) OutgoingMessages(_ context.Context, username string) iter.Seq2[*model.OutgoingMessage, error] {
	return func(yield func(*model.OutgoingMessage, error) bool) {
		m.mu.Lock()
		var out []*model.OutgoingMessage
		for _, msg := range m.messages {
			if msg.FromUsername != username {
				continue
			}
			out = append(out, &model.OutgoingMessage{
				ID:     msg.ID,
				ToUser: m.users[msg.ToUsername].Summary(),
				Body:   msg.Body,
				SentAt: msg.SentAt,
				ReadAt: msg.ReadAt,
			})
		}
		m.mu.Unlock()
		for _, o := range out {
			if !yield(o, nil) {
				return
			}
		}
	}
}

func (m *memStore) IncomingMessages(_ context.Context, username string) iter.Seq2[*model.IncomingMessage, error] {
	return func(yield func(*model.IncomingMessage, error) bool) {
		m.mu.Lock()
		var out []*model.IncomingMessage
		for _, msg := range m.messages {
			if msg.ToUsername != username {
				continue
			}
			out = append(out, &model.IncomingMessage{
				ID:       msg.ID,
				FromUser: m.users[msg.FromUsername].Summary(),
				Body:     msg.Body,
				SentAt:   msg.SentAt,
				ReadAt:   msg.ReadAt,
			})
		}
		m.mu.Unlock()
		for _, in := range out {
			if !yield(in, nil) {
				return
			}
		}
	}
}

// renameUser changes profile fields in place, for freshness checks.
func (m *memStore) renameUser(username, first string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[username].FirstName = first
}

func newTestHasher(t *testing.T) *auth.PasswordHasher {
	t.Helper()
	h, err := auth.NewPasswordHasher(auth.AlgorithmBcrypt, bcrypt.MinCost, auth.DefaultArgon2Params())
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	return h
}

// tooLongHasher rejects every password the way bcrypt rejects long ones.
type tooLongHasher struct{}

func (tooLongHasher) Hash(string) (string, error)         { return "", auth.ErrPasswordTooLong }
func (tooLongHasher) Verify(string, string) (bool, error) { return false, nil }

// recordingHasher fails the first failHashes calls to Hash and records
// every digest passed to Verify.
type recordingHasher struct {
	mu         sync.Mutex
	failHashes int
	hashes     int
	verified   []string
}

func (h *recordingHasher) Hash(password string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hashes++
	if h.hashes <= h.failHashes {
		return "", errors.New("entropy source unavailable")
	}
	return "digest:" + password, nil
}

func (h *recordingHasher) Verify(password, encodedHash string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.verified = append(h.verified, encodedHash)
	return encodedHash == "digest:"+password, nil
}
