package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenService signs and fully validates credentials on the server side.
type TokenService interface {
	Generate(account *Account) (Credential, error)
	SignClaims(claims *CredentialClaims) (Credential, error)
	TokenValidator
}

// TokenServiceImpl implements TokenService with HMAC signing.
type TokenServiceImpl struct {
	signingKey      []byte
	tokenExpiration int
	issuer          string
	audience        jwt.ClaimStrings
	logger          Logger
}

// NewTokenService creates a new TokenService instance. tokenExpiration is in
// hours.
func NewTokenService(signingKey []byte, tokenExpiration int, issuer string, audience []string, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		signingKey:      signingKey,
		tokenExpiration: tokenExpiration,
		issuer:          issuer,
		audience:        audience,
		logger:          logger,
	}
}

// Generate creates a signed credential for the account.
func (ts *TokenServiceImpl) Generate(account *Account) (Credential, error) {
	if account == nil {
		return "", goerrors.New("account must not be nil", goerrors.CategoryInternal)
	}

	now := time.Now()

	var aud jwt.ClaimStrings
	if len(ts.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(ts.audience))
		copy(aud, ts.audience)
	}

	claims := &CredentialClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   account.ID.String(),
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ts.tokenExpiration) * time.Hour)),
			ID:        uuid.NewString(),
		},
		UID:         account.ID.String(),
		UserRole:    string(account.Role),
		DisplayName: account.DisplayName(),
		Attributes:  account.CredentialAttributes(),
	}

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary credential claims using the configured key.
func (ts *TokenServiceImpl) SignClaims(claims *CredentialClaims) (Credential, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign credential")
	}

	return signed, nil
}

// Validate parses and fully validates a credential, signature included.
func (ts *TokenServiceImpl) Validate(credential Credential) (*CredentialClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(credential, &CredentialClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token validate encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrCredentialExpired
		}
		return nil, goerrors.Wrap(err, ErrMalformedCredential.Category, ErrMalformedCredential.Message).
			WithTextCode(ErrMalformedCredential.TextCode)
	}

	if claims, ok := token.Claims.(*CredentialClaims); ok && token.Valid {
		if err := ts.checkAudience(claims); err != nil {
			return nil, err
		}
		return claims, nil
	}

	ts.logger.Error("token validate could not decode claims")
	return nil, ErrMalformedCredential
}

// checkAudience accepts the credential when any configured audience appears
// in the aud claim. The jwt parser option only matches a single audience, so
// the check lives here.
func (ts *TokenServiceImpl) checkAudience(claims *CredentialClaims) error {
	if len(ts.audience) == 0 {
		return nil
	}
	for _, want := range ts.audience {
		for _, got := range claims.Audience {
			if got == want {
				return nil
			}
		}
	}
	return goerrors.Wrap(jwt.ErrTokenInvalidAudience, ErrMalformedCredential.Category, ErrMalformedCredential.Message).
		WithTextCode(ErrMalformedCredential.TextCode)
}

var _ TokenService = (*TokenServiceImpl)(nil)
