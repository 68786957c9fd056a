package auth

import (
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// JWKSValidator validates credentials issued by an external identity service
// against one or more JWK Set endpoints. Combine it with the local
// TokenService through a MultiTokenValidator so both credential origins are
// accepted on protected routes.
type JWKSValidator struct {
	keyfunc jwt.Keyfunc
	issuer  string
	logger  Logger
}

// NewJWKSValidator builds a validator that keeps the JWK Sets refreshed in
// the background.
func NewJWKSValidator(urls []string, issuer string, logger Logger) (*JWKSValidator, error) {
	if logger == nil {
		logger = defLogger{}
	}
	if len(urls) == 0 {
		return nil, goerrors.New("at least one JWK Set URL is required", goerrors.CategoryBadInput)
	}

	opts := keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			logger.Error("failed to do a background refresh of JWK Set: %v", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	}

	m := make(map[string]keyfunc.Options, len(urls))
	for _, url := range urls {
		m[url] = opts
	}

	multi, err := keyfunc.GetMultiple(m, keyfunc.MultipleOptions{
		KeySelector: keyfunc.KeySelectorFirst,
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to fetch JWK Sets")
	}

	return &JWKSValidator{
		keyfunc: multi.Keyfunc,
		issuer:  issuer,
		logger:  logger,
	}, nil
}

// Validate satisfies the TokenValidator interface.
func (v *JWKSValidator) Validate(credential Credential) (*CredentialClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if v.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(credential, &CredentialClaims{}, v.keyfunc, parserOptions...)
	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrCredentialExpired
		}
		return nil, goerrors.Wrap(err, ErrMalformedCredential.Category, ErrMalformedCredential.Message).
			WithTextCode(ErrMalformedCredential.TextCode)
	}

	if claims, ok := token.Claims.(*CredentialClaims); ok && token.Valid {
		return claims, nil
	}

	v.logger.Error("JWKS validate could not decode claims")
	return nil, ErrMalformedCredential
}

var _ TokenValidator = (*JWKSValidator)(nil)
