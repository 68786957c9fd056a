package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/sethvargo/go-envconfig"
)

// EnvConfig is the environment backed Config implementation used by the
// reference server. Library consumers may supply their own Config.
type EnvConfig struct {
	SigningKey       string   `env:"AUTH_SIGNING_KEY"`
	SigningMethod    string   `env:"AUTH_SIGNING_METHOD, default=HS256"`
	ContextKey       string   `env:"AUTH_CONTEXT_KEY, default=session"`
	TokenExpiration  int      `env:"AUTH_TOKEN_EXPIRATION_HOURS, default=24"`
	TokenLookup      string   `env:"AUTH_TOKEN_LOOKUP, default=header:Authorization,cookie:session"`
	AuthScheme       string   `env:"AUTH_SCHEME, default=Bearer"`
	Issuer           string   `env:"AUTH_ISSUER, default=shopgrid"`
	Audience         []string `env:"AUTH_AUDIENCE"`
	RejectedRouteKey string   `env:"AUTH_REJECTED_ROUTE_KEY, default=rejected_route"`

	Port        string `env:"PORT, default=8080"`
	LogLevel    string `env:"LOG_LEVEL, default=info"`
	LogPretty   bool   `env:"LOG_PRETTY, default=false"`
	DatabaseDSN string `env:"DATABASE_DSN, default=file:shopgrid.db?cache=shared&mode=rwc"`
	RedisAddr   string `env:"REDIS_ADDR"`
	RedisDB     int    `env:"REDIS_DB, default=0"`
	CodeRegion  string `env:"AUTH_CODE_REGION, default=US"`
}

// LoadEnvConfig reads configuration from environment variables.
func LoadEnvConfig(ctx context.Context) (*EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load configuration")
	}
	if cfg.SigningKey == "" {
		return nil, goerrors.New("AUTH_SIGNING_KEY is required", goerrors.CategoryBadInput)
	}
	return &cfg, nil
}

func (c *EnvConfig) GetSigningKey() string       { return c.SigningKey }
func (c *EnvConfig) GetSigningMethod() string    { return c.SigningMethod }
func (c *EnvConfig) GetContextKey() string       { return c.ContextKey }
func (c *EnvConfig) GetTokenExpiration() int     { return c.TokenExpiration }
func (c *EnvConfig) GetTokenLookup() string      { return c.TokenLookup }
func (c *EnvConfig) GetAuthScheme() string       { return c.AuthScheme }
func (c *EnvConfig) GetIssuer() string           { return c.Issuer }
func (c *EnvConfig) GetAudience() []string       { return c.Audience }
func (c *EnvConfig) GetRejectedRouteKey() string { return c.RejectedRouteKey }

var _ Config = (*EnvConfig)(nil)
