package routeguard_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/shopgrid/auth"
	"github.com/shopgrid/auth/middleware/routeguard"
)

const testSigningKey = "test-signing-key"

func newTokenService() *auth.TokenServiceImpl {
	return auth.NewTokenService([]byte(testSigningKey), 1, "shopgrid", nil, nil)
}

func mintCredential(t *testing.T, subject string, role auth.Role, expiresAt time.Time) string {
	t.Helper()

	credential, err := newTokenService().SignClaims(&auth.CredentialClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "shopgrid",
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UID:      subject,
		UserRole: string(role),
	})
	require.NoError(t, err)
	return credential
}

func newGuardedApp(roles ...auth.Role) *fiber.App {
	app := fiber.New()

	app.Get("/manager/reports", routeguard.New(routeguard.Config{
		Validator:     newTokenService(),
		RequiredRoles: roles,
	}), func(c *fiber.Ctx) error {
		identity, _ := auth.IdentityFromContext(c.UserContext())
		return c.JSON(fiber.Map{"subject": identity.SubjectID})
	})

	return app
}

func TestGuardRendersForMatchingRole(t *testing.T) {
	app := newGuardedApp(auth.RoleManager)
	credential := mintCredential(t, "acc-1", auth.RoleManager, time.Now().Add(time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/manager/reports", nil)
	req.Header.Set("Authorization", "Bearer "+credential)

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	res.Body.Close()
}

func TestGuardRedirectsAnonymousToLogin(t *testing.T) {
	app := newGuardedApp(auth.RoleManager)

	req := httptest.NewRequest(http.MethodGet, "/manager/reports?week=12", nil)

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, auth.LoginRoute, res.Header.Get("Location"))

	// The rejected route is captured so login can offer a way back.
	var captured bool
	for _, cookie := range res.Cookies() {
		if cookie.Name == "rejected_route" {
			captured = true
			assert.Contains(t, cookie.Value, "/manager/reports")
		}
	}
	assert.True(t, captured, "rejected_route cookie not set")
}

func TestGuardRequiresSpaceAfterAuthScheme(t *testing.T) {
	app := newGuardedApp(auth.RoleManager)
	credential := mintCredential(t, "acc-1", auth.RoleManager, time.Now().Add(time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/manager/reports", nil)
	// A valid credential glued to the scheme is not a bearer header.
	req.Header.Set("Authorization", "Bearer"+credential)

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, auth.LoginRoute, res.Header.Get("Location"))
	res.Body.Close()
}

func TestGuardRedirectsExpiredCredentialToLogin(t *testing.T) {
	app := newGuardedApp(auth.RoleManager)
	credential := mintCredential(t, "acc-1", auth.RoleManager, time.Now().Add(-time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/manager/reports", nil)
	req.Header.Set("Authorization", "Bearer "+credential)

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, auth.LoginRoute, res.Header.Get("Location"))
	res.Body.Close()
}

func TestGuardFailsSoftOnRoleMismatch(t *testing.T) {
	app := newGuardedApp(auth.RoleManager)
	credential := mintCredential(t, "acc-1", auth.RoleCustomer, time.Now().Add(time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/manager/reports", nil)
	req.Header.Set("Authorization", "Bearer "+credential)

	res, err := app.Test(req, -1)
	require.NoError(t, err)

	// Never a 403: the customer lands on their own dashboard.
	assert.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, "/shop", res.Header.Get("Location"))
	res.Body.Close()
}

func TestGuardAcceptsCookieCredential(t *testing.T) {
	app := newGuardedApp(auth.RoleManager)
	credential := mintCredential(t, "acc-1", auth.RoleManager, time.Now().Add(time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/manager/reports", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: credential})

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	res.Body.Close()
}

func TestGuardNoRequiredRolesAdmitsAnyIdentity(t *testing.T) {
	app := newGuardedApp()
	credential := mintCredential(t, "acc-1", auth.RoleSalesman, time.Now().Add(time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/manager/reports", nil)
	req.Header.Set("Authorization", "Bearer "+credential)

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	res.Body.Close()
}

func TestGuardManagerResolverWaitsWhileLoading(t *testing.T) {
	manager := auth.NewManager(auth.NewMemoryStore(), nil)

	app := fiber.New()
	app.Get("/owner/dashboard", routeguard.New(routeguard.Config{
		Resolver:      routeguard.ManagerResolver(manager),
		RequiredRoles: []auth.Role{auth.RoleOwner},
	}), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/owner/dashboard", nil)

	res, err := app.Test(req, -1)
	require.NoError(t, err)

	// Loading must never redirect; the client is told to retry.
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
	assert.Equal(t, "1", res.Header.Get("Retry-After"))
	res.Body.Close()
}

func TestGuardFilterSkipsGuard(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", routeguard.New(routeguard.Config{
		Validator: newTokenService(),
		Filter: func(c *fiber.Ctx) bool {
			return c.Path() == "/healthz"
		},
	}), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	res.Body.Close()
}
