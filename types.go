package auth

import (
	"context"
	"fmt"
)

// Logger is the minimal logging surface the package depends on.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Credential is an opaque signed string issued by the server at login. It is
// replaced wholesale on re-login and deleted on logout or expiry detection.
type Credential = string

// LoginPayload carries a primary subject/secret login attempt.
type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
}

// AccessKeyPayload carries the secondary credential flow used by supplier
// company accounts (access key id + secret instead of a password).
type AccessKeyPayload interface {
	GetKeyID() string
	GetKeySecret() string
}

// CodePayload carries the one time code flow used by customer accounts.
type CodePayload interface {
	GetPhoneNumber() string
	GetCode() string
}

// LoginResult is what the authentication endpoint returns on success.
type LoginResult struct {
	Credential Credential
	Identity   Identity
}

// AuthClient is the contract of the external authentication endpoint. The
// session manager only depends on this interface; HTTPAuthClient talks to the
// backend over the wire and Auther satisfies it in-process for the reference
// server.
type AuthClient interface {
	Authenticate(ctx context.Context, payload LoginPayload) (*LoginResult, error)
	AuthenticateAccessKey(ctx context.Context, payload AccessKeyPayload) (*LoginResult, error)
	RequestLoginCode(ctx context.Context, phoneNumber string) error
	AuthenticateCode(ctx context.Context, payload CodePayload) (*LoginResult, error)
}

// IdentityProvider resolves and verifies accounts for the server side Auther.
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (*Account, error)
	VerifyAccessKey(ctx context.Context, keyID, keySecret string) (*Account, error)
	FindByPhoneNumber(ctx context.Context, phoneNumber string) (*Account, error)
	FindByIdentifier(ctx context.Context, identifier string) (*Account, error)
}

// Config holds auth options.
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetTokenExpiration() int
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
	GetRejectedRouteKey() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
