package domain

import (
	"errors"
	"time"
)

var (
	ErrOTPNotFound         = errors.New("no valid otp found")
	ErrOTPExpired          = errors.New("otp has expired")
	ErrOTPAttemptsExceeded = errors.New("maximum verification attempts exceeded")
	ErrOTPMismatch         = errors.New("invalid otp")
	ErrRateLimited         = errors.New("otp requested too soon")
	ErrDeliveryFailed      = errors.New("otp delivery failed")
	ErrInvalidPurpose      = errors.New("invalid otp purpose")
)

// Purpose is the flow an OTP belongs to. Codes never validate across purposes.
type Purpose string

const (
	PurposeSignup Purpose = "signup"
	PurposeLogin  Purpose = "login"
	PurposeReset  Purpose = "reset"
)

func ParsePurpose(s string) (Purpose, error) {
	switch p := Purpose(s); p {
	case PurposeSignup, PurposeLogin, PurposeReset:
		return p, nil
	default:
		return "", ErrInvalidPurpose
	}
}

func (p Purpose) String() string {
	return string(p)
}

// OTPRecord is one row of the OTP ledger. CodeHash is a salted one-way hash;
// the plaintext code is never stored.
type OTPRecord struct {
	ID        string
	Email     string
	Purpose   Purpose
	CodeHash  string
	ExpiresAt time.Time
	Attempts  int
	IsUsed    bool
	CreatedAt time.Time
}

// Expired reports whether now is past the record's expiry.
func (r *OTPRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Outcome is the result of a verification attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeNotFound
	OutcomeExpired
	OutcomeAttemptsExceeded
	OutcomeMismatch
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeExpired:
		return "expired"
	case OutcomeAttemptsExceeded:
		return "attempts_exceeded"
	case OutcomeMismatch:
		return "mismatch"
	default:
		return "unknown"
	}
}

// Err maps a non-success outcome to its user-facing error. It returns nil for
// OutcomeSuccess.
func (o Outcome) Err() error {
	switch o {
	case OutcomeSuccess:
		return nil
	case OutcomeExpired:
		return ErrOTPExpired
	case OutcomeAttemptsExceeded:
		return ErrOTPAttemptsExceeded
	case OutcomeMismatch:
		return ErrOTPMismatch
	default:
		return ErrOTPNotFound
	}
}
