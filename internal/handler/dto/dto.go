// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"github.com/messagely/messagely/internal/model"
)

// RegisterRequest represents the request body for POST /auth/register.
type RegisterRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// LoginRequest represents the request body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SendMessageRequest represents the request body for POST /messages.
// The sender is always the authenticated caller.
type SendMessageRequest struct {
	ToUsername string `json:"to_username"`
	Body       string `json:"body"`
}

// TokenResponse carries a freshly issued access token.
type TokenResponse struct {
	Token string `json:"token"`
}

// UserListResponse wraps GET /users.
type UserListResponse struct {
	Users []model.UserSummary `json:"users"`
}

// UserResponse wraps GET /users/{username}.
type UserResponse struct {
	User *model.UserDetail `json:"user"`
}

// MessageResponse wraps a single message in any of its shapes.
type MessageResponse[T any] struct {
	Message T `json:"message"`
}

// MessageListResponse wraps a mailbox listing.
type MessageListResponse[T any] struct {
	Messages []T `json:"messages"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
