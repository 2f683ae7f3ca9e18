package handler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/messagely/messagely/internal/auth"
	"github.com/messagely/messagely/internal/cache"
	"github.com/messagely/messagely/internal/metrics"
	"github.com/messagely/messagely/internal/middleware"
	"github.com/messagely/messagely/internal/model"
	"github.com/messagely/messagely/internal/policy"
	"github.com/messagely/messagely/internal/service"
)

// fakeBackend implements every collaborator interface of the handlers
// with plain maps and the same error contract as the services.
type fakeBackend struct {
	mu        sync.Mutex
	passwords map[string]string
	users     map[string]*model.User
	messages  []*model.MessageDetail
	sessions  map[string]*model.Session

	failWith error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		passwords: make(map[string]string),
		users:     make(map[string]*model.User),
		sessions:  make(map[string]*model.Session),
	}
}

func (f *fakeBackend) Register(_ context.Context, in service.RegisterInput) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	if in.Username == "" || in.Password == "" {
		return nil, service.ErrInvalidInput
	}
	if len(in.Password) > service.MaxPasswordLength {
		return nil, fmt.Errorf("%w: password exceeds %d bytes", service.ErrInvalidInput, service.MaxPasswordLength)
	}
	if _, ok := f.users[in.Username]; ok {
		return nil, service.ErrDuplicateUsername
	}
	now := time.Now().UTC()
	u := &model.User{
		Username:    in.Username,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Phone:       in.Phone,
		JoinAt:      now,
		LastLoginAt: now,
	}
	f.users[in.Username] = u
	f.passwords[in.Username] = in.Password
	return u, nil
}

func (f *fakeBackend) Login(_ context.Context, username, password string) (*model.UserDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok {
		return nil, service.ErrUserNotFound
	}
	if f.passwords[username] != password {
		return nil, service.ErrInvalidCredentials
	}
	return u.Detail(), nil
}

func (f *fakeBackend) ListAll(context.Context) ([]model.UserSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := make([]model.UserSummary, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u.Summary())
	}
	return out, nil
}

func (f *fakeBackend) GetAs(_ context.Context, caller, username string) (*model.UserDetail, error) {
	if !policy.CanActAsUser(caller, username) {
		return nil, service.ErrForbidden
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok {
		return nil, service.ErrUserNotFound
	}
	return u.Detail(), nil
}

func (f *fakeBackend) OutgoingAs(_ context.Context, caller, username string) ([]*model.OutgoingMessage, error) {
	if !policy.CanActAsUser(caller, username) {
		return nil, service.ErrForbidden
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.OutgoingMessage, 0)
	for _, m := range f.messages {
		if m.FromUser.Username == username {
			out = append(out, &model.OutgoingMessage{ID: m.ID, ToUser: m.ToUser, Body: m.Body, SentAt: m.SentAt, ReadAt: m.ReadAt})
		}
	}
	return out, nil
}

func (f *fakeBackend) IncomingAs(_ context.Context, caller, username string) ([]*model.IncomingMessage, error) {
	if !policy.CanActAsUser(caller, username) {
		return nil, service.ErrForbidden
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.IncomingMessage, 0)
	for _, m := range f.messages {
		if m.ToUser.Username == username {
			out = append(out, &model.IncomingMessage{ID: m.ID, FromUser: m.FromUser, Body: m.Body, SentAt: m.SentAt, ReadAt: m.ReadAt})
		}
	}
	return out, nil
}

func (f *fakeBackend) Send(_ context.Context, caller, to, body string) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	from, ok := f.users[caller]
	if !ok {
		return nil, service.ErrForbidden
	}
	recipient, ok := f.users[to]
	if !ok {
		return nil, service.ErrUserNotFound
	}
	m := &model.MessageDetail{
		ID:       int64(len(f.messages) + 1),
		Body:     body,
		SentAt:   time.Now().UTC(),
		FromUser: from.Summary(),
		ToUser:   recipient.Summary(),
	}
	f.messages = append(f.messages, m)
	return &model.Message{ID: m.ID, FromUsername: caller, ToUsername: to, Body: body, SentAt: m.SentAt}, nil
}

func (f *fakeBackend) find(id int64) *model.MessageDetail {
	if id < 1 || id > int64(len(f.messages)) {
		return nil
	}
	return f.messages[id-1]
}

func (f *fakeBackend) ViewAs(_ context.Context, caller string, id int64) (*model.MessageDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.find(id)
	if !policy.CanView(caller, m) {
		return nil, service.ErrForbidden
	}
	return m, nil
}

func (f *fakeBackend) MarkReadAs(_ context.Context, caller string, id int64) (*model.ReadReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.find(id)
	if !policy.CanMarkRead(caller, m) {
		return nil, service.ErrForbidden
	}
	if m.ReadAt != nil {
		return nil, service.ErrAlreadyRead
	}
	now := time.Now().UTC()
	m.ReadAt = &now
	return &model.ReadReceipt{ID: m.ID, ReadAt: now}, nil
}

func (f *fakeBackend) CreateSession(_ context.Context, s *model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeBackend) GetSession(_ context.Context, id string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, cache.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeBackend) DeleteSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

func newTestRouter(t *testing.T, backend *fakeBackend) *chi.Mux {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	issuer := auth.NewTokenIssuer("handler-test-secret", time.Hour)

	return NewRouter(RouterConfig{
		Logger:   logger,
		Health:   NewHealthHandler(nil, nil, logger),
		Metrics:  NewMetricsHandler(metrics.NewInMemory()),
		Auth:     NewAuthHandler(backend, issuer, backend, logger),
		Users:    NewUserHandler(backend, backend, logger),
		Messages: NewMessageHandler(backend, logger),
		Authenticate: middleware.Auth(middleware.AuthConfig{
			Logger:      logger,
			Tokens:      issuer,
			Sessions:    backend,
			MinDuration: time.Millisecond,
		}),
		IsDevelopment:      true,
		MaxRequestBodySize: 1 << 10,
	})
}
