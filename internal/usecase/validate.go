package usecase

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const minPasswordLength = 8

var (
	validate      = validator.New()
	usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{3,80}$`)
)

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func validEmail(s string) bool {
	return validate.Var(s, "required,email,max=254") == nil
}

func usernameProblem(s string) string {
	if usernameRegex.MatchString(s) {
		return ""
	}
	if len(s) < 3 || len(s) > 80 {
		return "Username must be between 3 and 80 characters"
	}
	return "Username can only contain letters, numbers, and underscores"
}

// passwordProblem returns the first strength rule s breaks, or "".
func passwordProblem(s string) string {
	if len(s) < minPasswordLength {
		return "Password must be at least 8 characters long"
	}

	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}

	switch {
	case !upper:
		return "Password must contain at least one uppercase letter"
	case !lower:
		return "Password must contain at least one lowercase letter"
	case !digit:
		return "Password must contain at least one number"
	}
	return ""
}
