// Package routeguard enforces the session access policy on fiber routes.
//
// The policy itself lives in the root package's Decide function; this
// middleware only resolves a session for the request and carries the
// decision out: render, redirect to login (capturing the rejected route), or
// fail soft to the identity's landing page.
package routeguard

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	auth "github.com/shopgrid/auth"
)

const (
	defaultContextKey       = "session"
	defaultTokenLookup      = "header:Authorization,cookie:session"
	defaultAuthScheme       = "Bearer"
	defaultRejectedRouteKey = "rejected_route"
)

// SessionResolver derives the session snapshot for one request.
type SessionResolver func(c *fiber.Ctx) auth.Session

// Config controls the guard middleware.
type Config struct {
	// Validator checks extracted credentials. Required unless a custom
	// Resolver is provided.
	Validator auth.TokenValidator
	// Resolver overrides how the session is derived. When a Manager drives
	// the process (single user shells, BFFs) use ManagerResolver to honor
	// the Loading state.
	Resolver SessionResolver
	// RequiredRoles is the route's role requirement; empty means any
	// authenticated identity qualifies.
	RequiredRoles []auth.Role
	// Filter skips the guard for matching requests (health checks, assets).
	Filter func(c *fiber.Ctx) bool

	ContextKey       string
	TokenLookup      string
	AuthScheme       string
	RejectedRouteKey string
	Logger           auth.Logger
}

// ManagerResolver derives sessions from a Manager, preserving the Loading
// state until startup resolution settles.
func ManagerResolver(manager *auth.Manager) SessionResolver {
	return func(*fiber.Ctx) auth.Session {
		return manager.Session()
	}
}

// New returns the guard middleware for the given config.
func New(config ...Config) fiber.Handler {
	cfg := defaults(config...)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		session := cfg.Resolver(c)
		decision := auth.Decide(session, auth.RequireRoles(cfg.RequiredRoles...))

		switch decision.Action {
		case auth.ActionWait:
			// Startup resolution has not settled; never redirect here.
			c.Set(fiber.HeaderRetryAfter, "1")
			return c.SendStatus(http.StatusServiceUnavailable)

		case auth.ActionRender:
			c.Locals(cfg.ContextKey, session)
			ctx := auth.WithIdentityContext(c.UserContext(), session.Identity)
			c.SetUserContext(ctx)
			return c.Next()

		case auth.ActionRedirectLogin:
			if decision.CaptureLocation {
				captureRejectedRoute(c, cfg)
			}
			return redirect(c, decision.Target)

		default: // ActionRedirectLanding
			cfg.Logger.Info("role %s not allowed on %s, redirecting to landing", session.Identity.Role, c.OriginalURL())
			return redirect(c, decision.Target)
		}
	}
}

func defaults(config ...Config) Config {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = defaultContextKey
	}
	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}
	if cfg.AuthScheme == "" {
		cfg.AuthScheme = defaultAuthScheme
	}
	if cfg.RejectedRouteKey == "" {
		cfg.RejectedRouteKey = defaultRejectedRouteKey
	}
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}
	if cfg.Resolver == nil {
		if cfg.Validator == nil {
			panic("routeguard: a Validator or a custom Resolver is required")
		}
		cfg.Resolver = validatorResolver(cfg)
	}

	return cfg
}

// validatorResolver builds a session from the request credential. A missing
// or invalid credential resolves to Unauthenticated; there is no Loading
// state because each request is self contained.
func validatorResolver(cfg Config) SessionResolver {
	extractors := buildExtractors(cfg.TokenLookup, cfg.AuthScheme)

	return func(c *fiber.Ctx) auth.Session {
		raw := extractCredential(c, extractors)
		if raw == "" {
			return auth.Session{Status: auth.StatusUnauthenticated}
		}

		claims, err := cfg.Validator.Validate(raw)
		if err != nil {
			if auth.IsCredentialExpired(err) {
				cfg.Logger.Info("expired credential on %s", c.OriginalURL())
			} else {
				cfg.Logger.Info("rejected credential on %s: %v", c.OriginalURL(), err)
			}
			return auth.Session{Status: auth.StatusUnauthenticated}
		}

		return auth.Session{
			Status:     auth.StatusAuthenticated,
			Identity:   claims.Identity(),
			Credential: raw,
			ExpiresAt:  claims.Expires(),
		}
	}
}

type extractor func(c *fiber.Ctx) string

// buildExtractors parses a lookup string of the form
// "header:Authorization,cookie:session,query:token".
func buildExtractors(tokenLookup, authScheme string) []extractor {
	var extractors []extractor

	for _, part := range strings.Split(tokenLookup, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(kv) != 2 {
			continue
		}
		source, name := strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1])

		switch source {
		case "header":
			extractors = append(extractors, fromHeader(name, authScheme))
		case "cookie":
			extractors = append(extractors, func(c *fiber.Ctx) string {
				return c.Cookies(name)
			})
		case "query":
			extractors = append(extractors, func(c *fiber.Ctx) string {
				return c.Query(name)
			})
		}
	}

	return extractors
}

func fromHeader(header, authScheme string) extractor {
	scheme := strings.TrimSpace(authScheme)
	return func(c *fiber.Ctx) string {
		value := c.Get(header)
		if scheme == "" {
			return strings.TrimSpace(value)
		}
		if len(value) > len(scheme)+1 && strings.EqualFold(value[:len(scheme)], scheme) && value[len(scheme)] == ' ' {
			return strings.TrimSpace(value[len(scheme)+1:])
		}
		return ""
	}
}

func extractCredential(c *fiber.Ctx, extractors []extractor) string {
	for _, extract := range extractors {
		if raw := extract(c); raw != "" {
			return raw
		}
	}
	return ""
}

// captureRejectedRoute remembers the originally requested location so the
// login flow can offer a way back. Best effort: the login flow may still
// send users to their fixed role landing page.
func captureRejectedRoute(c *fiber.Ctx, cfg Config) {
	c.Cookie(&fiber.Cookie{
		Name:     cfg.RejectedRouteKey,
		Value:    c.OriginalURL(),
		Expires:  time.Now().Add(5 * time.Minute),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func redirect(c *fiber.Ctx, target string) error {
	status := http.StatusSeeOther
	if c.Method() == fiber.MethodGet {
		status = http.StatusFound
	}
	return c.Redirect(target, status)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
