package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrPasswordReused     = errors.New("new password cannot be the same as old password")
)

type User struct {
	ID            string
	Username      string
	Email         string
	PasswordHash  string
	EmailVerified bool
	IsAdmin       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ValidationError collects every problem found in one submission so they can
// be reported together.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}
