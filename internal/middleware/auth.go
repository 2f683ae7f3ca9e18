package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/messagely/messagely/internal/auth"
	"github.com/messagely/messagely/internal/cache"
	"github.com/messagely/messagely/internal/model"
)

const (
	// minAuthDuration is the minimum time to spend on auth to prevent timing attacks.
	minAuthDuration = 200 * time.Millisecond
)

// TokenParser verifies access tokens. It is implemented by *auth.TokenIssuer.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// SessionLookup resolves live sessions. It is implemented by *cache.Cache.
// A missing session must be reported as cache.ErrSessionNotFound; any other
// error is treated as an outage.
type SessionLookup interface {
	GetSession(ctx context.Context, id string) (*model.Session, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger   *slog.Logger
	Tokens   TokenParser
	Sessions SessionLookup
	// MinDuration overrides minAuthDuration when positive.
	MinDuration time.Duration
}

// Auth returns a middleware that authenticates requests.
// It extracts the bearer token, verifies its signature and expiry,
// requires a live session for its id, and injects the caller identity
// into the request.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	floor := minAuthDuration
	if cfg.MinDuration > 0 {
		floor = cfg.MinDuration
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()
			identity, reason, err := authenticate(r, cfg)
			if err != nil {
				cfg.Logger.Error("session lookup failed",
					slog.String("error", err.Error()),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Authentication temporarily unavailable")
				return
			}

			// Failures all take at least floor, whatever step rejected them.
			if identity == nil {
				if elapsed := time.Since(startTime); elapsed < floor {
					time.Sleep(floor - elapsed)
				}
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", reason),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing token")
				return
			}

			setRequestUsername(r.Context(), identity.Username)

			ctx := auth.ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// authenticate resolves the caller. A rejected request returns a nil
// identity and the reason; err is set only when the session store fails.
func authenticate(r *http.Request, cfg AuthConfig) (*model.Identity, string, error) {
	token := extractBearerToken(r)
	if token == "" {
		return nil, "missing_token", nil
	}

	claims, err := cfg.Tokens.Parse(token)
	if err != nil {
		return nil, "invalid_token", nil
	}

	session, err := cfg.Sessions.GetSession(r.Context(), claims.ID)
	if err != nil {
		if errors.Is(err, cache.ErrSessionNotFound) {
			return nil, "session_not_found", nil
		}
		return nil, "", err
	}
	if session.Username != claims.Subject {
		return nil, "session_mismatch", nil
	}

	return &model.Identity{Username: session.Username, SessionID: session.ID}, "", nil
}

// extractBearerToken extracts the token from "Authorization: Bearer <token>".
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
