package handler

const (
	errInternalServer      = "Internal server error"
	errInvalidRequest      = "Invalid request"
	errValidation          = "Please correct the highlighted fields"
	errEmailTaken          = "Email already registered"
	errUsernameTaken       = "Username already taken"
	errInvalidCredentials  = "Invalid email or password"
	errDeliveryFailed      = "Failed to send OTP. Please try again."
	errSignupExpired       = "Session expired. Please register again."
	errLoginExpired        = "Session expired. Please login again."
	errSessionExpired      = "Session expired. Please try again."
	errResetNotVerified    = "Unauthorized access. Please verify OTP first."
	errPasswordMismatch    = "Passwords do not match"
	errPasswordReused      = "New password cannot be the same as old password"
	errUserNotFound        = "User not found"
	errOTPNotFound         = "No valid OTP found"
	errOTPExpired          = "OTP has expired"
	errOTPAttemptsExceeded = "Maximum verification attempts exceeded"
	errOTPMismatch         = "Invalid OTP"
)

const (
	msgSignupCodeSent  = "OTP sent to your email. Please verify to complete registration."
	msgLoginCodeSent   = "OTP sent to your email. Please verify to continue."
	msgResetCodeSent   = "If this email exists, an OTP has been sent."
	msgResetVerified   = "OTP verified. Please set your new password."
	msgPasswordUpdated = "Password reset successful! Please login with your new password."
	msgCodeResent      = "New OTP sent to your email"
	msgLoggedOut       = "You have been logged out"
)
