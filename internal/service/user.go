package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode"

	"github.com/messagely/messagely/internal/auth"
	"github.com/messagely/messagely/internal/metrics"
	"github.com/messagely/messagely/internal/model"
	"github.com/messagely/messagely/internal/policy"
	"github.com/messagely/messagely/internal/repository"
)

const maxUsernameLength = 64

// MaxPasswordLength is the longest password, in bytes, accepted at
// registration. It is bcrypt's input limit, applied to every algorithm so
// digests can be moved between algorithms later.
const MaxPasswordLength = 72

// UserService is the identity store: registration, credential
// verification, login timestamps and lookup.
type UserService struct {
	store   UserStore
	hasher  PasswordHasher
	metrics metrics.Recorder
	logger  *slog.Logger

	dummyMu     sync.Mutex
	dummyDigest string
}

// NewUserService creates a new UserService.
func NewUserService(store UserStore, hasher PasswordHasher, recorder metrics.Recorder, logger *slog.Logger) *UserService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &UserService{
		store:   store,
		hasher:  hasher,
		metrics: recorder,
		logger:  logger,
	}
}

// RegisterInput defines input for registering a user.
type RegisterInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

func (in RegisterInput) validate() error {
	switch {
	case in.Username == "":
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	case len(in.Username) > maxUsernameLength:
		return fmt.Errorf("%w: username exceeds %d characters", ErrInvalidInput, maxUsernameLength)
	case strings.IndexFunc(in.Username, unicode.IsSpace) >= 0:
		return fmt.Errorf("%w: username must not contain whitespace", ErrInvalidInput)
	case in.Password == "":
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	case len(in.Password) > MaxPasswordLength:
		return fmt.Errorf("%w: password exceeds %d bytes", ErrInvalidInput, MaxPasswordLength)
	}
	return nil
}

// Register creates a new user with a hashed password.
// join_at and last_login_at are both set to the registration time.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	digest, err := s.hasher.Hash(input.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: password too long", ErrInvalidInput)
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:     input.Username,
		PasswordHash: digest,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	s.metrics.IncUserRegistered()
	s.logger.Info("user_registered", "username", user.Username)

	return user, nil
}

// Authenticate reports whether password matches the stored digest.
// An unknown username is ErrUserNotFound, not false, so callers can tell a
// bad username from a bad password.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (bool, error) {
	digest, err := s.store.GetPasswordHash(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.equalizeTiming(password)
			return false, ErrUserNotFound
		}
		return false, fmt.Errorf("failed to load credentials: %w", err)
	}

	match, err := s.hasher.Verify(password, digest)
	if err != nil {
		return false, fmt.Errorf("failed to verify password: %w", err)
	}

	return match, nil
}

// RecordLogin advances last_login_at for username.
func (s *UserService) RecordLogin(ctx context.Context, username string) error {
	if _, err := s.store.UpdateLastLogin(ctx, username); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to record login: %w", err)
	}
	return nil
}

// Login authenticates and, on success, records the login.
// A wrong password is ErrInvalidCredentials; an unknown user stays
// ErrUserNotFound.
func (s *UserService) Login(ctx context.Context, username, password string) (*model.UserDetail, error) {
	ok, err := s.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.metrics.IncLogin(metrics.LoginUnknownUser)
			s.logger.Warn("login_failed", "reason", "unknown_user", "username", username)
		}
		return nil, err
	}
	if !ok {
		s.metrics.IncLogin(metrics.LoginBadPassword)
		s.logger.Warn("login_failed", "reason", "bad_password", "username", username)
		return nil, ErrInvalidCredentials
	}

	if err := s.RecordLogin(ctx, username); err != nil {
		return nil, err
	}

	s.metrics.IncLogin(metrics.LoginSuccess)
	s.logger.Info("login_succeeded", "username", username)

	return s.Get(ctx, username)
}

// Get returns the profile of username.
func (s *UserService) Get(ctx context.Context, username string) (*model.UserDetail, error) {
	user, err := s.store.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user.Detail(), nil
}

// GetAs returns the profile of username if caller may act as that user.
// Authorization is checked before existence.
func (s *UserService) GetAs(ctx context.Context, caller, username string) (*model.UserDetail, error) {
	if !policy.CanActAsUser(caller, username) {
		s.denied(caller, "view_user")
		return nil, ErrForbidden
	}
	return s.Get(ctx, username)
}

// ListAll returns the public attributes of every user.
func (s *UserService) ListAll(ctx context.Context) ([]model.UserSummary, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *UserService) denied(caller, action string) {
	s.metrics.IncAccessDenied(action)
	s.logger.Warn("access_denied", "caller", caller, "action", action)
}

// equalizeTiming spends the same hashing time on an unknown username as a
// real comparison would. Without a reference digest it hashes password
// instead, which costs the same as verifying it.
func (s *UserService) equalizeTiming(password string) {
	if digest := s.timingDigest(); digest != "" {
		_, _ = s.hasher.Verify(password, digest)
		return
	}
	_, _ = s.hasher.Hash(password)
}

// timingDigest returns the reference digest for unknown-user lookups.
// A failed computation is not cached, so the next lookup retries.
func (s *UserService) timingDigest() string {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()

	if s.dummyDigest == "" {
		digest, err := s.hasher.Hash("messagely-timing-equalizer")
		if err != nil {
			s.logger.Error("timing_digest_failed", "error", err)
			return ""
		}
		s.dummyDigest = digest
	}
	return s.dummyDigest
}
