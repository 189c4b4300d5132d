package service

import "net/http"

// ErrorKind tags every client-resolvable fault the orchestrator can produce.
type ErrorKind string

const (
	KindConfiguration      ErrorKind = "configuration_error"
	KindValidation         ErrorKind = "validation_error"
	KindUserAlreadyExists  ErrorKind = "user_already_exists"
	KindUnverifiedUser     ErrorKind = "unverified_user"
	KindInvalidOTP         ErrorKind = "invalid_otp"
	KindOTPSendFailed      ErrorKind = "otp_send_failed"
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	KindAccountNotVerified ErrorKind = "account_not_verified"
	KindUnauthorized       ErrorKind = "unauthorized"
)

// AuthError is the tagged result every operation resolves faults into. One
// envelope writer maps it to its status code and message, so no call site
// shapes responses by hand.
type AuthError struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func newAuthError(kind ErrorKind, status int, message string) *AuthError {
	return &AuthError{Kind: kind, Status: status, Message: message}
}

// Predefined faults, message text matching the public API contract. A
// configuration fault never leaks which setting is broken.
var (
	errConfiguration      = newAuthError(KindConfiguration, http.StatusInternalServerError, "Internal server error")
	errUserAlreadyExists  = newAuthError(KindUserAlreadyExists, http.StatusConflict, "User already exists")
	errUnverifiedUser     = newAuthError(KindUnverifiedUser, http.StatusForbidden, "Unverified user")
	errInvalidOTP         = newAuthError(KindInvalidOTP, http.StatusBadRequest, "Invalid OTP provided")
	errOTPSendFailed      = newAuthError(KindOTPSendFailed, http.StatusInternalServerError, "Failed to send OTP")
	errInvalidCredentials = newAuthError(KindInvalidCredentials, http.StatusUnauthorized, "Invalid credentials provided")
	errAccountNotVerified = newAuthError(KindAccountNotVerified, http.StatusForbidden, "Account not verified")
	errUnauthorized       = newAuthError(KindUnauthorized, http.StatusUnauthorized, "Unauthorized access")
)

// NewValidationError tags a malformed-input fault with the schema message.
func NewValidationError(message string) *AuthError {
	return newAuthError(KindValidation, http.StatusUnprocessableEntity, message)
}
