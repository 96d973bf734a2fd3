package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ErlanBelekov/prompt-library/internal/domain"
	"github.com/ErlanBelekov/prompt-library/internal/session"
	"github.com/ErlanBelekov/prompt-library/internal/usecase"
	"github.com/gin-gonic/gin"
)

// Session keys for the multi-step flows.
const (
	keySignupUsername     = "signup_username"
	keySignupEmail        = "signup_email"
	keySignupPasswordHash = "signup_password_hash"
	keyLoginEmail         = "login_email"
	keyResetEmail         = "reset_email"
	keyResetVerified      = "reset_verified"
)

// authUsecaser is the subset of AuthUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type authUsecaser interface {
	PrepareSignup(ctx context.Context, in usecase.SignupInput) (*usecase.PendingSignup, error)
	SendCode(ctx context.Context, email string, purpose domain.Purpose) error
	CompleteSignup(ctx context.Context, pending usecase.PendingSignup, code string) (*usecase.AuthResult, error)
	CheckCredentials(ctx context.Context, email, password string) (*domain.User, error)
	CompleteLogin(ctx context.Context, email, code string) (*usecase.AuthResult, error)
	AccountExists(ctx context.Context, email string) (bool, error)
	VerifyReset(ctx context.Context, email, code string) error
	ResetPassword(ctx context.Context, email, password, confirm string) error
}

type AuthHandler struct {
	authUsecase authUsecaser
	limiter     LimiterFunc
	logger      *slog.Logger
}

func NewAuthHandler(authUsecase authUsecaser, limiter LimiterFunc, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authUsecase: authUsecase,
		limiter:     limiter,
		logger:      logger.With("component", "auth_handler"),
	}
}

type registerRequest struct {
	Username        string `json:"username"         binding:"required"`
	Email           string `json:"email"            binding:"required"`
	Password        string `json:"password"         binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type otpRequest struct {
	OTP string `json:"otp" binding:"required"`
}

type resetPasswordRequest struct {
	Password        string `json:"password"         binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

type userResponse struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	IsAdmin       bool      `json:"is_admin"`
	CreatedAt     time.Time `json:"created_at"`
}

type tokenResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		IsAdmin:       u.IsAdmin,
		CreatedAt:     u.CreatedAt,
	}
}

// POST /auth/register
// Validates the form, throttles, emails a signup code and stashes the pending
// account in the session. Nothing is persisted until the code is verified.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required"})
		return
	}

	ctx := c.Request.Context()
	pending, err := h.authUsecase.PrepareSignup(ctx, usecase.SignupInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		var ve *domain.ValidationError
		switch {
		case errors.As(err, &ve):
			c.JSON(http.StatusBadRequest, gin.H{"error": errValidation, "details": ve.Problems})
		case errors.Is(err, domain.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"error": errEmailTaken})
		case errors.Is(err, domain.ErrUsernameTaken):
			c.JSON(http.StatusConflict, gin.H{"error": errUsernameTaken})
		default:
			h.logger.ErrorContext(ctx, "prepare signup", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	sess := session.FromContext(c)
	if !h.sendCode(c, sess, pending.Email, domain.PurposeSignup) {
		return
	}

	sess.Set(keySignupUsername, pending.Username)
	sess.Set(keySignupEmail, pending.Email)
	sess.Set(keySignupPasswordHash, pending.PasswordHash)

	c.JSON(http.StatusOK, gin.H{"message": msgSignupCodeSent})
}

// POST /auth/register/verify
func (h *AuthHandler) VerifyRegister(c *gin.Context) {
	sess := session.FromContext(c)
	username, ok1 := sess.Get(keySignupUsername)
	email, ok2 := sess.Get(keySignupEmail)
	passwordHash, ok3 := sess.Get(keySignupPasswordHash)
	if !ok1 || !ok2 || !ok3 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errSignupExpired})
		return
	}

	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "OTP is required"})
		return
	}

	res, err := h.authUsecase.CompleteSignup(c.Request.Context(), usecase.PendingSignup{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
	}, req.OTP)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"error": errEmailTaken})
		case errors.Is(err, domain.ErrUsernameTaken):
			c.JSON(http.StatusConflict, gin.H{"error": errUsernameTaken})
		default:
			h.writeOTPError(c, "complete signup", err)
		}
		return
	}

	sess.Delete(keySignupUsername, keySignupEmail, keySignupPasswordHash)
	c.JSON(http.StatusCreated, tokenResponse{Token: res.Token, User: toUserResponse(res.User)})
}

// POST /auth/login
// First factor is the password; a code is emailed only when it matches.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.authUsecase.CheckCredentials(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": errInvalidCredentials})
			return
		}
		h.logger.ErrorContext(ctx, "check credentials", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	sess := session.FromContext(c)
	if !h.sendCode(c, sess, user.Email, domain.PurposeLogin) {
		return
	}

	sess.Set(keyLoginEmail, user.Email)
	c.JSON(http.StatusOK, gin.H{"message": msgLoginCodeSent})
}

// POST /auth/login/verify
func (h *AuthHandler) VerifyLogin(c *gin.Context) {
	sess := session.FromContext(c)
	email, ok := sess.Get(keyLoginEmail)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errLoginExpired})
		return
	}

	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "OTP is required"})
		return
	}

	res, err := h.authUsecase.CompleteLogin(c.Request.Context(), email, req.OTP)
	if err != nil {
		h.writeOTPError(c, "complete login", err)
		return
	}

	sess.Delete(keyLoginEmail)
	c.JSON(http.StatusOK, tokenResponse{Token: res.Token, User: toUserResponse(res.User)})
}

// POST /auth/password/forgot
// Unknown emails get the same 200 response and no code.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email format"})
		return
	}

	ctx := c.Request.Context()
	email := strings.ToLower(strings.TrimSpace(req.Email))
	exists, err := h.authUsecase.AccountExists(ctx, email)
	if err != nil {
		h.logger.ErrorContext(ctx, "account exists", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	if !exists {
		c.JSON(http.StatusOK, gin.H{"message": msgResetCodeSent})
		return
	}

	sess := session.FromContext(c)
	if !h.sendCode(c, sess, email, domain.PurposeReset) {
		return
	}

	sess.Set(keyResetEmail, email)
	sess.Delete(keyResetVerified)
	c.JSON(http.StatusOK, gin.H{"message": msgResetCodeSent})
}

// POST /auth/password/verify
func (h *AuthHandler) VerifyReset(c *gin.Context) {
	sess := session.FromContext(c)
	email, ok := sess.Get(keyResetEmail)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errSessionExpired})
		return
	}

	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "OTP is required"})
		return
	}

	if err := h.authUsecase.VerifyReset(c.Request.Context(), email, req.OTP); err != nil {
		h.writeOTPError(c, "verify reset", err)
		return
	}

	sess.Set(keyResetVerified, "true")
	c.JSON(http.StatusOK, gin.H{"message": msgResetVerified})
}

// POST /auth/password/reset
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	sess := session.FromContext(c)
	email, ok := sess.Get(keyResetEmail)
	verified, _ := sess.Get(keyResetVerified)
	if !ok || verified != "true" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errResetNotVerified})
		return
	}

	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required"})
		return
	}

	ctx := c.Request.Context()
	if err := h.authUsecase.ResetPassword(ctx, email, req.Password, req.ConfirmPassword); err != nil {
		var ve *domain.ValidationError
		switch {
		case errors.As(err, &ve):
			c.JSON(http.StatusBadRequest, gin.H{"error": errValidation, "details": ve.Problems})
		case errors.Is(err, domain.ErrPasswordMismatch):
			c.JSON(http.StatusBadRequest, gin.H{"error": errPasswordMismatch})
		case errors.Is(err, domain.ErrPasswordReused):
			c.JSON(http.StatusBadRequest, gin.H{"error": errPasswordReused})
		case errors.Is(err, domain.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": errUserNotFound})
		default:
			h.logger.ErrorContext(ctx, "reset password", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	sess.Delete(keyResetEmail, keyResetVerified)
	c.JSON(http.StatusOK, gin.H{"message": msgPasswordUpdated})
}

// POST /auth/otp/resend/:purpose
// Re-issues a code for the email the session is already waiting on.
func (h *AuthHandler) Resend(c *gin.Context) {
	purpose, err := domain.ParsePurpose(c.Param("purpose"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidRequest})
		return
	}

	sess := session.FromContext(c)
	email, ok := sess.Get(emailKey(purpose))
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errSessionExpired})
		return
	}

	if !h.sendCode(c, sess, email, purpose) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msgCodeResent})
}

// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	session.FromContext(c).Destroy()
	c.JSON(http.StatusOK, gin.H{"message": msgLoggedOut})
}

// GET /me
func (h *AuthHandler) Me(c *gin.Context) {
	v, ok := c.Get("user")
	user, _ := v.(*domain.User)
	if !ok || user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

func emailKey(p domain.Purpose) string {
	switch p {
	case domain.PurposeSignup:
		return keySignupEmail
	case domain.PurposeLogin:
		return keyLoginEmail
	default:
		return keyResetEmail
	}
}

// sendCode applies the cooldown and then issues and delivers a code. It
// writes the error response itself and reports whether the flow may advance.
func (h *AuthHandler) sendCode(c *gin.Context, sess *session.Session, email string, purpose domain.Purpose) bool {
	ctx := c.Request.Context()

	decision, err := h.limiter(sess).CheckAndRecord(ctx, email, purpose.String())
	if err != nil {
		h.logger.ErrorContext(ctx, "rate limit", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return false
	}
	if !decision.Allowed {
		secs := decision.SecondsRemaining()
		c.Header("Retry-After", strconv.Itoa(secs))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": decision.Message(), "retry_after": secs})
		return false
	}

	if err := h.authUsecase.SendCode(ctx, email, purpose); err != nil {
		if errors.Is(err, domain.ErrDeliveryFailed) {
			c.JSON(http.StatusBadGateway, gin.H{"error": errDeliveryFailed})
			return false
		}
		h.logger.ErrorContext(ctx, "send code", "purpose", purpose, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return false
	}
	return true
}

func (h *AuthHandler) writeOTPError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrOTPNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": errOTPNotFound})
	case errors.Is(err, domain.ErrOTPExpired):
		c.JSON(http.StatusBadRequest, gin.H{"error": errOTPExpired})
	case errors.Is(err, domain.ErrOTPAttemptsExceeded):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": errOTPAttemptsExceeded})
	case errors.Is(err, domain.ErrOTPMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": errOTPMismatch})
	default:
		h.logger.ErrorContext(c.Request.Context(), op, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
	}
}
