package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// Codec decodes opaque credentials into their embedded payload without
// contacting the server and without verifying the signature. Signature
// verification is the server's job on every protected request; the codec only
// extracts the payload so the session layer can derive identity and expiry.
//
// The codec is stateless and side effect free: it never consults the wall
// clock, expiry comparison belongs to the caller.
type Codec struct {
	parser *jwt.Parser
}

// NewCodec returns a structural credential decoder.
func NewCodec() *Codec {
	return &Codec{
		parser: jwt.NewParser(jwt.WithoutClaimsValidation()),
	}
}

// Decode extracts the identity payload from a credential. It fails with
// ErrMalformedCredential when the string cannot be parsed into the expected
// three part structure.
func (c *Codec) Decode(credential string) (Identity, error) {
	claims, err := c.claims(credential)
	if err != nil {
		return Identity{}, err
	}
	return claims.Identity(), nil
}

// Expiry extracts the embedded expiry timestamp. A credential without an exp
// claim is reported malformed: the platform never issues unbounded tokens.
func (c *Codec) Expiry(credential string) (time.Time, error) {
	claims, err := c.claims(credential)
	if err != nil {
		return time.Time{}, err
	}

	exp := claims.Expires()
	if exp.IsZero() {
		return time.Time{}, errWithMetadata(ErrMalformedCredential, map[string]any{
			"reason": "missing exp claim",
		})
	}

	return exp, nil
}

func (c *Codec) claims(credential string) (*CredentialClaims, error) {
	if credential == "" {
		return nil, ErrMalformedCredential
	}

	claims := &CredentialClaims{}
	if _, _, err := c.parser.ParseUnverified(credential, claims); err != nil {
		return nil, goerrors.Wrap(err, ErrMalformedCredential.Category, ErrMalformedCredential.Message).
			WithTextCode(ErrMalformedCredential.TextCode).
			WithCode(goerrors.CodeUnauthorized)
	}

	return claims, nil
}
