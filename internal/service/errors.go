// Package service implements the identity store and the message store on
// top of a persistence collaborator, applying access policy to guarded
// operations.
package service

import (
	"errors"

	"github.com/messagely/messagely/internal/policy"
)

// Service errors.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrMessageNotFound    = errors.New("message not found")
	ErrAlreadyRead        = errors.New("message already read")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
	ErrForbidden          = policy.ErrForbidden
)
