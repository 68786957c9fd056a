package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeMalformedCredential    = "MALFORMED_CREDENTIAL"
	textCodeCredentialExpired      = "CREDENTIAL_EXPIRED"
	textCodeAuthenticationRejected = "AUTHENTICATION_REJECTED"
	textCodeTransportFailure       = "AUTH_TRANSPORT_FAILURE"
	textCodeAccountInactive        = "ACCOUNT_INACTIVE"
	textCodeCodeMismatch           = "LOGIN_CODE_MISMATCH"
)

// ErrMalformedCredential is returned when a credential cannot be parsed into
// the expected three part structure. Treated as equivalent to an absent
// credential everywhere outside the login screen.
var ErrMalformedCredential = goerrors.New("malformed credential", goerrors.CategoryAuth).
	WithTextCode(textCodeMalformedCredential).
	WithCode(goerrors.CodeUnauthorized)

// ErrCredentialExpired is returned for structurally valid credentials whose
// embedded expiry is in the past.
var ErrCredentialExpired = goerrors.New("credential expired", goerrors.CategoryAuth).
	WithTextCode(textCodeCredentialExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrAuthenticationRejected is returned when the authentication endpoint
// declines a login attempt.
var ErrAuthenticationRejected = goerrors.New("authentication rejected", goerrors.CategoryAuth).
	WithTextCode(textCodeAuthenticationRejected).
	WithCode(goerrors.CodeUnauthorized)

// ErrTransportFailure is returned when the authentication endpoint is
// unreachable or answers outside the expected contract.
var ErrTransportFailure = goerrors.New("authentication transport failure", goerrors.CategoryInternal).
	WithTextCode(textCodeTransportFailure).
	WithCode(goerrors.CodeInternal)

// ErrAccountInactive is returned when an identity exists but its account
// status does not allow logins (suspended or disabled).
var ErrAccountInactive = goerrors.New("account is not active", goerrors.CategoryAuth).
	WithTextCode(textCodeAccountInactive).
	WithCode(goerrors.CodeUnauthorized)

// ErrLoginCodeMismatch is returned when a one time login code does not match
// the server issued code, or the code already expired.
var ErrLoginCodeMismatch = goerrors.New("login code invalid or expired", goerrors.CategoryAuth).
	WithTextCode(textCodeCodeMismatch).
	WithCode(goerrors.CodeUnauthorized)

// ErrIdentityNotFound is the error we return for not found identities.
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryAuth).
	WithTextCode("IDENTITY_NOT_FOUND").
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString rejects empty secrets before hashing.
var ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryBadInput).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned when a secret does not match its hash.
var ErrMismatchedHashAndPassword = goerrors.New("secret does not match", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// errWithMetadata attaches per-call metadata to a copy of the sentinel.
// The sentinels are shared package state, mutating them directly would leak
// one request's metadata into every other holder of the error.
func errWithMetadata(sentinel *goerrors.Error, meta map[string]any) error {
	clone := sentinel.Clone()
	if clone == nil {
		return sentinel
	}
	clone.Source = sentinel
	return clone.WithMetadata(meta)
}

// IsCredentialExpired checks whether err denotes an expired credential,
// either ours or the underlying JWT library's.
func IsCredentialExpired(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrCredentialExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedCredential checks whether err denotes a structural decode failure.
func IsMalformedCredential(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrMalformedCredential) {
		return true
	}
	return strings.Contains(err.Error(), "malformed credential") ||
		strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed")
}

// IsAuthenticationRejected checks whether err denotes a declined login.
func IsAuthenticationRejected(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrAuthenticationRejected) {
		return true
	}
	return strings.Contains(err.Error(), "authentication rejected")
}
