package identity

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes shared with the Firebase client SDKs.
const (
	CodeUserNotFound       = "auth/user-not-found"
	CodeWrongPassword      = "auth/wrong-password"
	CodeEmailInUse         = "auth/email-already-in-use"
	CodeWeakPassword       = "auth/weak-password"
	CodeInvalidEmail       = "auth/invalid-email"
	CodeNetworkFailed      = "auth/network-request-failed"
	CodeTooManyRequests    = "auth/too-many-requests"
	CodePopupClosed        = "auth/popup-closed-by-user"
	CodeInvalidCredentials = "auth/invalid-credential"
	CodeTokenExpired       = "auth/user-token-expired"
)

const defaultMessage = "An error occurred. Please try again."

var messages = map[string]string{
	CodeUserNotFound:    "No user found with this email.",
	CodeWrongPassword:   "Incorrect password.",
	CodeEmailInUse:      "This email is already registered.",
	CodeWeakPassword:    "Password should be at least 6 characters.",
	CodeInvalidEmail:    "Invalid email address.",
	CodeNetworkFailed:   "Network error. Please check your connection.",
	CodeTooManyRequests: "Too many attempts. Please try again later.",
	CodePopupClosed:     "Sign-in popup was closed.",
}

// restCodes maps Identity Toolkit REST error messages onto SDK codes.
var restCodes = map[string]string{
	"EMAIL_NOT_FOUND":             CodeUserNotFound,
	"INVALID_PASSWORD":            CodeWrongPassword,
	"EMAIL_EXISTS":                CodeEmailInUse,
	"WEAK_PASSWORD":               CodeWeakPassword,
	"INVALID_EMAIL":               CodeInvalidEmail,
	"MISSING_EMAIL":               CodeInvalidEmail,
	"TOO_MANY_ATTEMPTS_TRY_LATER": CodeTooManyRequests,
	"INVALID_LOGIN_CREDENTIALS":   CodeInvalidCredentials,
	"INVALID_IDP_RESPONSE":        CodeInvalidCredentials,
	"TOKEN_EXPIRED":               CodeTokenExpired,
	"INVALID_REFRESH_TOKEN":       CodeTokenExpired,
	"USER_NOT_FOUND":              CodeUserNotFound,
}

// Error is an identity provider failure.
type Error struct {
	Code    string
	Message string // raw provider message
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return "identity: " + e.Code
	}

	return fmt.Sprintf("identity: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Display returns the user-facing message for e.
func (e *Error) Display() string {
	if msg, ok := messages[e.Code]; ok {
		return msg
	}
	if e.Message != "" {
		return e.Message
	}

	return defaultMessage
}

// Message returns the user-facing message for any error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Display()
	}
	if msg := err.Error(); msg != "" {
		return msg
	}

	return defaultMessage
}

// restError converts an Identity Toolkit error message such as
// "WEAK_PASSWORD : Password should be at least 6 characters".
func restError(raw string) *Error {
	key := raw
	detail := ""
	if i := strings.Index(raw, " : "); i >= 0 {
		key, detail = raw[:i], raw[i+3:]
	}
	key = strings.TrimSpace(key)

	if code, ok := restCodes[key]; ok {
		return &Error{Code: code, Message: detail}
	}
	if detail == "" {
		detail = raw
	}

	return &Error{Code: "auth/" + strings.ToLower(strings.ReplaceAll(key, "_", "-")), Message: detail}
}

func networkError(err error) *Error {
	return &Error{Code: CodeNetworkFailed, Message: err.Error(), Err: err}
}
