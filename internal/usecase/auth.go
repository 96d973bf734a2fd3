package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ErlanBelekov/prompt-library/internal/clock"
	"github.com/ErlanBelekov/prompt-library/internal/domain"
	"github.com/ErlanBelekov/prompt-library/internal/hash"
	"github.com/ErlanBelekov/prompt-library/internal/repository"
	"github.com/golang-jwt/jwt/v5"
)

const defaultJWTTTL = 24 * time.Hour

// otpEngine is the subset of otp.Engine the auth flows drive.
type otpEngine interface {
	Issue(ctx context.Context, email string, purpose domain.Purpose) (string, error)
	Verify(ctx context.Context, email, code string, purpose domain.Purpose) (domain.Outcome, error)
	SweepExpired(ctx context.Context) (int64, error)
}

// notifier delivers a plaintext code out of band. It reports false when the
// provider rejected the message.
type notifier interface {
	Send(ctx context.Context, email, code string, purpose domain.Purpose) bool
}

type AuthUsecase struct {
	users  repository.UserRepository
	otps   otpEngine
	mailer notifier
	hasher hash.Hasher
	clock  clock.Clocker
	jwtKey []byte
	jwtTTL time.Duration
	logger *slog.Logger
}

func NewAuthUsecase(
	users repository.UserRepository,
	otps otpEngine,
	mailer notifier,
	hasher hash.Hasher,
	clk clock.Clocker,
	jwtKey []byte,
	jwtTTL time.Duration,
	logger *slog.Logger,
) *AuthUsecase {
	if jwtTTL <= 0 {
		jwtTTL = defaultJWTTTL
	}
	return &AuthUsecase{
		users:  users,
		otps:   otps,
		mailer: mailer,
		hasher: hasher,
		clock:  clk,
		jwtKey: jwtKey,
		jwtTTL: jwtTTL,
		logger: logger.With("component", "auth_usecase"),
	}
}

type SignupInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// PendingSignup is what survives between the register and verify steps.
// The password is already hashed.
type PendingSignup struct {
	Username     string
	Email        string
	PasswordHash string
}

// AuthResult is a signed bearer token plus the user it was issued for.
type AuthResult struct {
	Token string
	User  *domain.User
}

// PrepareSignup validates a registration form, checks that the email and
// username are free and hashes the password. It creates nothing.
func (u *AuthUsecase) PrepareSignup(ctx context.Context, in SignupInput) (*PendingSignup, error) {
	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)

	var problems []string
	if !validEmail(email) {
		problems = append(problems, "Invalid email format")
	}
	if p := usernameProblem(username); p != "" {
		problems = append(problems, p)
	}
	if in.Password != in.ConfirmPassword {
		problems = append(problems, "Passwords do not match")
	}
	if p := passwordProblem(in.Password); p != "" {
		problems = append(problems, p)
	}
	if len(problems) > 0 {
		return nil, &domain.ValidationError{Problems: problems}
	}

	taken, err := u.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, domain.ErrEmailTaken
	}

	taken, err = u.users.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return nil, domain.ErrUsernameTaken
	}

	passwordHash, err := u.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return &PendingSignup{Username: username, Email: email, PasswordHash: passwordHash}, nil
}

// SendCode sweeps expired codes, issues a fresh one for (email, purpose) and
// hands it to the mailer. A rejected delivery returns ErrDeliveryFailed; the
// issued record stays valid so a resend or a late email still works.
func (u *AuthUsecase) SendCode(ctx context.Context, email string, purpose domain.Purpose) error {
	email = normalizeEmail(email)

	if _, err := u.otps.SweepExpired(ctx); err != nil {
		return fmt.Errorf("sweep expired otps: %w", err)
	}

	code, err := u.otps.Issue(ctx, email, purpose)
	if err != nil {
		return fmt.Errorf("issue otp: %w", err)
	}

	if !u.mailer.Send(ctx, email, code, purpose) {
		return domain.ErrDeliveryFailed
	}
	return nil
}

// CompleteSignup verifies the signup code and creates the verified account.
func (u *AuthUsecase) CompleteSignup(ctx context.Context, pending PendingSignup, code string) (*AuthResult, error) {
	if err := u.verify(ctx, pending.Email, code, domain.PurposeSignup); err != nil {
		return nil, err
	}

	user, err := u.users.Create(ctx, &domain.User{
		Username:      pending.Username,
		Email:         pending.Email,
		PasswordHash:  pending.PasswordHash,
		EmailVerified: true,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) || errors.Is(err, domain.ErrUsernameTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	u.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return u.issueToken(user)
}

// CheckCredentials is the first login step. Unknown email and wrong password
// both return ErrInvalidCredentials.
func (u *AuthUsecase) CheckCredentials(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := u.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !u.hasher.Verify(user.PasswordHash, password) {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

// CompleteLogin verifies the login code and issues a token.
func (u *AuthUsecase) CompleteLogin(ctx context.Context, email, code string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if err := u.verify(ctx, email, code, domain.PurposeLogin); err != nil {
		return nil, err
	}

	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u.issueToken(user)
}

// AccountExists backs the forgot-password step, which must not reveal the
// answer to the caller.
func (u *AuthUsecase) AccountExists(ctx context.Context, email string) (bool, error) {
	exists, err := u.users.ExistsByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return exists, nil
}

func (u *AuthUsecase) VerifyReset(ctx context.Context, email, code string) error {
	return u.verify(ctx, normalizeEmail(email), code, domain.PurposeReset)
}

// ResetPassword sets a new password for an email whose reset code was
// already verified. The new password must differ from the current one.
func (u *AuthUsecase) ResetPassword(ctx context.Context, email, password, confirm string) error {
	if password != confirm {
		return domain.ErrPasswordMismatch
	}
	if p := passwordProblem(password); p != "" {
		return &domain.ValidationError{Problems: []string{p}}
	}

	user, err := u.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("find user: %w", err)
	}

	if u.hasher.Verify(user.PasswordHash, password) {
		return domain.ErrPasswordReused
	}

	passwordHash, err := u.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := u.users.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	u.logger.InfoContext(ctx, "password reset", "user_id", user.ID)
	return nil
}

func (u *AuthUsecase) Me(ctx context.Context, userID string) (*domain.User, error) {
	return u.users.FindByID(ctx, userID)
}

func (u *AuthUsecase) verify(ctx context.Context, email, code string, purpose domain.Purpose) error {
	outcome, err := u.otps.Verify(ctx, email, strings.TrimSpace(code), purpose)
	if err != nil {
		return fmt.Errorf("verify otp: %w", err)
	}
	return outcome.Err()
}

func (u *AuthUsecase) issueToken(user *domain.User) (*AuthResult, error) {
	now := u.clock.Now()
	claims := jwt.MapClaims{
		"sub":      user.ID,
		"email":    user.Email,
		"username": user.Username,
		"admin":    user.IsAdmin,
		"iat":      now.Unix(),
		"exp":      now.Add(u.jwtTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(u.jwtKey)
	if err != nil {
		return nil, fmt.Errorf("sign jwt: %w", err)
	}
	return &AuthResult{Token: signed, User: user}, nil
}
