package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// TextCodeInvalidCreds labels any credential failure; the message is
	// uniform on purpose so callers cannot enumerate accounts.
	TextCodeInvalidCreds = "INVALID_CREDENTIALS"
	// TextCodeRoleNotConfigured labels the missing default role startup error
	TextCodeRoleNotConfigured = "ROLE_NOT_CONFIGURED"
	// TextCodeDuplicateEmail labels unique email conflicts
	TextCodeDuplicateEmail = "DUPLICATE_EMAIL"
	// TextCodeTokenNotFound labels unknown activation tokens
	TextCodeTokenNotFound = "ACTIVATION_TOKEN_NOT_FOUND"
	// TextCodeTokenExpired labels expired activation tokens
	TextCodeTokenExpired = "ACTIVATION_TOKEN_EXPIRED"
	// TextCodeTokenUsed labels already consumed activation tokens
	TextCodeTokenUsed = "ACTIVATION_TOKEN_USED"
	// TextCodeUserNotFound labels dangling user references
	TextCodeUserNotFound = "USER_NOT_FOUND"
	// TextCodeJWTExpired labels expired identity tokens
	TextCodeJWTExpired = "TOKEN_EXPIRED"
	// TextCodeJWTMalformed labels malformed identity tokens
	TextCodeJWTMalformed = "TOKEN_MALFORMED"
	// TextCodeEmptyPassword labels empty password input
	TextCodeEmptyPassword = "EMPTY_PASSWORD"
)

// ErrRoleNotConfigured means the default USER role is absent from role
// storage. This is a startup invariant, not a per request condition.
var ErrRoleNotConfigured = goerrors.New("default USER role was not initiated", goerrors.CategoryInternal).
	WithTextCode(TextCodeRoleNotConfigured)

// ErrDuplicateEmail is returned when a registration races an existing account
var ErrDuplicateEmail = goerrors.New("an account with this email already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(goerrors.CodeConflict)

// ErrActivationTokenNotFound is returned for unknown activation codes
var ErrActivationTokenNotFound = goerrors.New("invalid activation token", goerrors.CategoryNotFound).
	WithTextCode(TextCodeTokenNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrActivationTokenExpired signals that the presented code expired and that
// a fresh one was issued and sent to the same email address.
var ErrActivationTokenExpired = goerrors.New("activation token has expired, a new token has been sent to the same email address", goerrors.CategoryValidation).
	WithTextCode(TextCodeTokenExpired)

// ErrActivationTokenUsed is returned when a token was already consumed
var ErrActivationTokenUsed = goerrors.New("activation token has already been used", goerrors.CategoryConflict).
	WithTextCode(TextCodeTokenUsed)

// ErrUserNotFound means an activation token references a user that no longer
// exists. Should not occur under normal operation.
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryInternal).
	WithTextCode(TextCodeUserNotFound)

// ErrMismatchedHashAndPassword is the uniform credential failure
var ErrMismatchedHashAndPassword = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrNoEmptyString rejects empty passwords before hashing
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword)

// ErrTokenExpired is the identity token expiry error
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeJWTExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed covers signature and structural identity token failures
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeJWTMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnableToMapClaims unable to get claims from token
var ErrUnableToMapClaims = goerrors.New("unable to map claims", goerrors.CategoryAuth)

func hasTextCode(err error, code string) bool {
	for err != nil {
		var rich *goerrors.Error
		if !goerrors.As(err, &rich) {
			return false
		}
		if rich.TextCode == code {
			return true
		}
		err = rich.Source
	}
	return false
}

// IsInvalidCredentials reports whether err is the uniform credential failure
func IsInvalidCredentials(err error) bool {
	return hasTextCode(err, TextCodeInvalidCreds)
}

// IsRoleNotConfigured reports whether err is the missing role startup error
func IsRoleNotConfigured(err error) bool {
	return hasTextCode(err, TextCodeRoleNotConfigured)
}

// IsDuplicateEmail reports whether err is a unique email conflict
func IsDuplicateEmail(err error) bool {
	return hasTextCode(err, TextCodeDuplicateEmail)
}

// IsActivationTokenNotFound reports whether err is an unknown token failure
func IsActivationTokenNotFound(err error) bool {
	return hasTextCode(err, TextCodeTokenNotFound)
}

// IsActivationTokenExpired reports whether err signals an expired token with
// a re-issued replacement.
func IsActivationTokenExpired(err error) bool {
	return hasTextCode(err, TextCodeTokenExpired)
}

// IsActivationTokenUsed reports whether err is a consumed token failure
func IsActivationTokenUsed(err error) bool {
	return hasTextCode(err, TextCodeTokenUsed)
}

// IsTokenExpiredError will check for expired identity tokens, including
// legacy string-matched JWT errors.
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if hasTextCode(err, TextCodeJWTExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if hasTextCode(err, TextCodeJWTMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// isUniqueViolation matches driver level unique constraint failures across
// the sqlite and postgres wire messages.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key value")
}
