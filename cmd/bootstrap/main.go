// Command bootstrap creates a Messagely user and prints an access token for it.
// It is meant for seeding development and test environments.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/messagely/messagely/internal/auth"
	"github.com/messagely/messagely/internal/cache"
	"github.com/messagely/messagely/internal/repository"
	"github.com/messagely/messagely/internal/service"
)

type output struct {
	Username  string    `json:"username"`
	Created   bool      `json:"created"`
	Token     string    `json:"token,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

type options struct {
	databaseURL string
	redisURL    string
	keyPrefix   string
	secretKey   string
	username    string
	password    string
	firstName   string
	lastName    string
	phone       string
	tokenTTL    time.Duration
	migrate     bool
	format      string
}

func main() {
	var opts options
	flag.StringVar(&opts.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	flag.StringVar(&opts.redisURL, "redis-url", os.Getenv("REDIS_URL"), "Redis connection string; no token is issued without it")
	flag.StringVar(&opts.keyPrefix, "session-key-prefix", envOr("SESSION_KEY_PREFIX", cache.DefaultKeyPrefix), "Redis key prefix for sessions")
	flag.StringVar(&opts.secretKey, "secret-key", os.Getenv("SECRET_KEY"), "Token signing key")
	flag.StringVar(&opts.username, "username", "", "Username to create")
	flag.StringVar(&opts.password, "password", os.Getenv("BOOTSTRAP_PASSWORD"), "Password for the user")
	flag.StringVar(&opts.firstName, "first-name", "", "First name")
	flag.StringVar(&opts.lastName, "last-name", "", "Last name")
	flag.StringVar(&opts.phone, "phone", "", "Phone")
	flag.DurationVar(&opts.tokenTTL, "token-ttl", 24*time.Hour, "Token lifetime")
	flag.BoolVar(&opts.migrate, "migrate", true, "Apply migrations first")
	flag.StringVar(&opts.format, "format", "plain", "Output format: plain or json")
	flag.Parse()

	if err := opts.validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	out, err := run(ctx, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	if err := write(os.Stdout, opts.format, out); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (o options) validate() error {
	switch {
	case o.databaseURL == "":
		return errors.New("DATABASE_URL is required")
	case o.username == "":
		return errors.New("-username is required")
	case o.password == "":
		return errors.New("-password or BOOTSTRAP_PASSWORD is required")
	case o.redisURL != "" && o.secretKey == "":
		return errors.New("SECRET_KEY is required to issue a token")
	}
	switch strings.ToLower(o.format) {
	case "plain", "json":
	default:
		return errors.New("invalid format; use plain or json")
	}
	return nil
}

func run(ctx context.Context, opts options) (*output, error) {
	repo, err := repository.New(ctx, opts.databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	defer repo.Close()

	if opts.migrate {
		if err := repo.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	hasher, err := auth.NewPasswordHasher(auth.AlgorithmBcrypt, 12, auth.DefaultArgon2Params())
	if err != nil {
		return nil, err
	}
	users := service.NewUserService(repo, hasher, nil, nil)

	out := &output{Username: opts.username}

	_, err = users.Register(ctx, service.RegisterInput{
		Username:  opts.username,
		Password:  opts.password,
		FirstName: opts.firstName,
		LastName:  opts.lastName,
		Phone:     opts.phone,
	})
	switch {
	case err == nil:
		out.Created = true
	case errors.Is(err, service.ErrDuplicateUsername):
		// Existing users must prove the password before getting a token.
		if _, err := users.Login(ctx, opts.username, opts.password); err != nil {
			return nil, fmt.Errorf("user %s exists: %w", opts.username, err)
		}
	default:
		return nil, fmt.Errorf("register %s: %w", opts.username, err)
	}

	if opts.redisURL == "" {
		return out, nil
	}

	sessions, err := cache.New(ctx, opts.redisURL, cache.Options{KeyPrefix: opts.keyPrefix})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	defer sessions.Close()

	token, session, err := auth.NewTokenIssuer(opts.secretKey, opts.tokenTTL).Issue(opts.username)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	if err := sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	out.Token = token
	out.SessionID = session.ID
	out.ExpiresAt = session.ExpiresAt
	return out, nil
}

func write(w io.Writer, format string, out *output) error {
	if strings.ToLower(format) == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if out.Token != "" {
		_, err := fmt.Fprintln(w, out.Token)
		return err
	}
	_, err := fmt.Fprintln(w, out.Username)
	return err
}
