package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CredentialClaims is the payload embedded in every issued credential.
type CredentialClaims struct {
	jwt.RegisteredClaims
	UID         string         `json:"uid,omitempty"`
	UserRole    string         `json:"role,omitempty"`
	DisplayName string         `json:"name,omitempty"`
	Attributes  map[string]any `json:"attrs,omitempty"`
}

// SubjectID returns the stable account identifier carried by the credential.
func (c *CredentialClaims) SubjectID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Role returns the parsed dashboard role. Unknown values come back invalid so
// callers fall through to the login route, never to a broken dashboard.
func (c *CredentialClaims) Role() (Role, bool) {
	return ParseRole(c.UserRole)
}

// Expires returns the embedded expiry, zero when absent.
func (c *CredentialClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the embedded issue time, zero when absent.
func (c *CredentialClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// Identity converts the claims into the decoded identity surface consumed by
// the session manager and the route guard.
func (c *CredentialClaims) Identity() Identity {
	role, _ := c.Role()

	var attrs map[string]any
	if len(c.Attributes) > 0 {
		attrs = make(map[string]any, len(c.Attributes))
		for k, v := range c.Attributes {
			attrs[k] = v
		}
	}

	return Identity{
		SubjectID:   c.SubjectID(),
		DisplayName: c.DisplayName,
		Role:        role,
		Attributes:  attrs,
	}
}

// Identity is the user identifying payload decoded from a credential. It is
// derived data: never mutated, only recomputed by decoding a new credential.
type Identity struct {
	SubjectID   string         `json:"subject_id"`
	DisplayName string         `json:"display_name,omitempty"`
	Role        Role           `json:"role"`
	Attributes  map[string]any `json:"attributes,omitempty"`
}

// IsZero reports whether the identity carries no subject.
func (i Identity) IsZero() bool {
	return i.SubjectID == ""
}
