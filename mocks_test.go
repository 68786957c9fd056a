package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auth "github.com/shopgrid/auth"
)

const testSigningKey = "test-signing-key"

// mintCredential signs a structurally valid credential for tests. The codec
// never verifies signatures, so the key only matters for TokenService tests.
func mintCredential(t *testing.T, subject string, role auth.Role, expiresAt time.Time) auth.Credential {
	t.Helper()

	claims := &auth.CredentialClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
		UID:         subject,
		UserRole:    string(role),
		DisplayName: "Pat Vega",
	}
	if !expiresAt.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(expiresAt)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSigningKey))
	require.NoError(t, err)
	return signed
}

// MockAuthClient implements auth.AuthClient
type MockAuthClient struct {
	mock.Mock
}

func (m *MockAuthClient) Authenticate(ctx context.Context, payload auth.LoginPayload) (*auth.LoginResult, error) {
	args := m.Called(ctx, payload)
	var result *auth.LoginResult
	if v := args.Get(0); v != nil {
		result = v.(*auth.LoginResult)
	}
	return result, args.Error(1)
}

func (m *MockAuthClient) AuthenticateAccessKey(ctx context.Context, payload auth.AccessKeyPayload) (*auth.LoginResult, error) {
	args := m.Called(ctx, payload)
	var result *auth.LoginResult
	if v := args.Get(0); v != nil {
		result = v.(*auth.LoginResult)
	}
	return result, args.Error(1)
}

func (m *MockAuthClient) RequestLoginCode(ctx context.Context, phoneNumber string) error {
	args := m.Called(ctx, phoneNumber)
	return args.Error(0)
}

func (m *MockAuthClient) AuthenticateCode(ctx context.Context, payload auth.CodePayload) (*auth.LoginResult, error) {
	args := m.Called(ctx, payload)
	var result *auth.LoginResult
	if v := args.Get(0); v != nil {
		result = v.(*auth.LoginResult)
	}
	return result, args.Error(1)
}

// MockCredentialStore implements auth.CredentialStore
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) Save(ctx context.Context, credential auth.Credential) error {
	args := m.Called(ctx, credential)
	return args.Error(0)
}

func (m *MockCredentialStore) Load(ctx context.Context) (auth.Credential, bool, error) {
	args := m.Called(ctx)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockCredentialStore) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockIdentityProvider implements auth.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, identifier, password string) (*auth.Account, error) {
	args := m.Called(ctx, identifier, password)
	var account *auth.Account
	if v := args.Get(0); v != nil {
		account = v.(*auth.Account)
	}
	return account, args.Error(1)
}

func (m *MockIdentityProvider) VerifyAccessKey(ctx context.Context, keyID, keySecret string) (*auth.Account, error) {
	args := m.Called(ctx, keyID, keySecret)
	var account *auth.Account
	if v := args.Get(0); v != nil {
		account = v.(*auth.Account)
	}
	return account, args.Error(1)
}

func (m *MockIdentityProvider) FindByPhoneNumber(ctx context.Context, phoneNumber string) (*auth.Account, error) {
	args := m.Called(ctx, phoneNumber)
	var account *auth.Account
	if v := args.Get(0); v != nil {
		account = v.(*auth.Account)
	}
	return account, args.Error(1)
}

func (m *MockIdentityProvider) FindByIdentifier(ctx context.Context, identifier string) (*auth.Account, error) {
	args := m.Called(ctx, identifier)
	var account *auth.Account
	if v := args.Get(0); v != nil {
		account = v.(*auth.Account)
	}
	return account, args.Error(1)
}

// recordingSink collects activity events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (r *recordingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) Events() []auth.ActivityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]auth.ActivityEvent, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recordingSink) EventTypes() []auth.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]auth.ActivityEventType, 0, len(r.events))
	for _, event := range r.events {
		types = append(types, event.EventType)
	}
	return types
}
