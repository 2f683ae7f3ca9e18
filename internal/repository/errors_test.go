package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	unique := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_pkey"}

	if !isUniqueViolation(unique) {
		t.Error("expected unique violation to be detected")
	}
	if !isUniqueViolation(fmt.Errorf("wrapped: %w", unique)) {
		t.Error("expected wrapped unique violation to be detected")
	}
	if isUniqueViolation(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}) {
		t.Error("foreign key violation is not a unique violation")
	}
	// Message text alone must not be mistaken for a constraint violation.
	if isUniqueViolation(errors.New("unique constraint something 23505")) {
		t.Error("plain errors should not be classified by message text")
	}
	if isUniqueViolation(nil) {
		t.Error("nil is not a violation")
	}
}

func TestMissingMessageParty(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantUser string
		wantRole string
	}{
		{
			name:     "missing sender",
			err:      &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: fkMessageFrom},
			wantUser: "alice",
			wantRole: "sender",
		},
		{
			name:     "missing recipient",
			err:      &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: fkMessageTo},
			wantUser: "bob",
			wantRole: "recipient",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := missingMessageParty(tt.err, "alice", "bob")

			var missing *MissingUserError
			if !errors.As(err, &missing) {
				t.Fatalf("expected MissingUserError, got %v", err)
			}
			if missing.Username != tt.wantUser || missing.Role != tt.wantRole {
				t.Errorf("got %s %q, want %s %q", missing.Role, missing.Username, tt.wantRole, tt.wantUser)
			}
			if !errors.Is(err, ErrUserNotFound) {
				t.Error("MissingUserError should unwrap to ErrUserNotFound")
			}
		})
	}
}

func TestMissingMessageParty_UnknownConstraint(t *testing.T) {
	err := missingMessageParty(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "other_fkey"}, "a", "b")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestMissingMessageParty_NotForeignKey(t *testing.T) {
	if err := missingMessageParty(errors.New("connection reset"), "a", "b"); err != nil {
		t.Fatalf("expected nil for non-FK errors, got %v", err)
	}
	if err := missingMessageParty(&pgconn.PgError{Code: pgerrcode.UniqueViolation}, "a", "b"); err != nil {
		t.Fatalf("expected nil for unique violation, got %v", err)
	}
}
