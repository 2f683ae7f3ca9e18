package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Common errors for repository operations.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUsernameExists  = errors.New("username already exists")
	ErrMessageNotFound = errors.New("message not found")
	ErrAlreadyRead     = errors.New("message already read")
)

// Foreign key constraints on messages, named in the schema.
const (
	fkMessageFrom = "messages_from_username_fkey"
	fkMessageTo   = "messages_to_username_fkey"
)

// MissingUserError reports which referenced user does not exist.
type MissingUserError struct {
	Username string
	Role     string // "sender" or "recipient"
}

func (e *MissingUserError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Role, e.Username, ErrUserNotFound)
}

// Unwrap makes errors.Is(err, ErrUserNotFound) hold.
func (e *MissingUserError) Unwrap() error {
	return ErrUserNotFound
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// foreignKeyViolation returns the violated constraint name, if err is a
// PostgreSQL foreign key violation.
func foreignKeyViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// missingMessageParty maps a foreign key violation on messages to the
// party that does not exist.
func missingMessageParty(err error, from, to string) error {
	constraint, ok := foreignKeyViolation(err)
	if !ok {
		return nil
	}

	switch constraint {
	case fkMessageFrom:
		return &MissingUserError{Username: from, Role: "sender"}
	case fkMessageTo:
		return &MissingUserError{Username: to, Role: "recipient"}
	default:
		return fmt.Errorf("%w: %s", ErrUserNotFound, constraint)
	}
}
