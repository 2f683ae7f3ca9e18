// Package policy decides whether an authenticated caller may act on a
// message or a user. Every function is pure: the caller identity is always
// an explicit argument and nothing is read from request state.
package policy

import (
	"errors"

	"github.com/messagely/messagely/internal/model"
)

// ErrForbidden is returned when a caller lacks permission for an action.
var ErrForbidden = errors.New("forbidden")

// CanView reports whether caller is the sender or the recipient of m.
func CanView(caller string, m *model.MessageDetail) bool {
	if caller == "" || m == nil {
		return false
	}
	return caller == m.FromUser.Username || caller == m.ToUser.Username
}

// CanMarkRead reports whether caller may acknowledge m.
// Only the recipient may; the sender never can.
func CanMarkRead(caller string, m *model.MessageDetail) bool {
	if caller == "" || m == nil {
		return false
	}
	return caller == m.ToUser.Username
}

// CanActAsUser reports whether caller may act on target's profile and
// mailboxes.
func CanActAsUser(caller, target string) bool {
	return caller != "" && caller == target
}
