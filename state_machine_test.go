package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auth "github.com/shopgrid/auth"
)

func TestManagerStartsLoading(t *testing.T) {
	manager := auth.NewManager(auth.NewMemoryStore(), &MockAuthClient{})

	session := manager.Session()
	assert.Equal(t, auth.StatusLoading, session.Status)
	assert.False(t, session.Resolved())
	assert.False(t, session.Authenticated())
}

func TestManagerResolveAbsentCredential(t *testing.T) {
	store := &MockCredentialStore{}
	store.On("Load", mock.Anything).Return("", false, nil).Once()

	manager := auth.NewManager(store, &MockAuthClient{})
	session := manager.Resolve(context.Background())

	assert.Equal(t, auth.StatusUnauthenticated, session.Status)
	// An absent slot is a normal state, nothing to clear.
	store.AssertNotCalled(t, "Clear", mock.Anything)
}

func TestManagerResolveValidCredential(t *testing.T) {
	expiry := time.Now().Add(time.Hour)
	credential := mintCredential(t, "acc-7", auth.RoleOwner, expiry)

	store := auth.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), credential))

	sink := &recordingSink{}
	manager := auth.NewManager(store, &MockAuthClient{}, auth.WithManagerActivitySink(sink))

	session := manager.Resolve(context.Background())
	require.Equal(t, auth.StatusAuthenticated, session.Status)
	assert.Equal(t, "acc-7", session.Identity.SubjectID)
	assert.Equal(t, auth.RoleOwner, session.Identity.Role)
	assert.Equal(t, credential, session.Credential)
	assert.Contains(t, sink.EventTypes(), auth.ActivityEventSessionResolved)
}

func TestManagerResolveExpiredCredentialClearsStore(t *testing.T) {
	credential := mintCredential(t, "acc-7", auth.RoleOwner, time.Now().Add(-time.Minute))

	store := auth.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), credential))

	sink := &recordingSink{}
	manager := auth.NewManager(store, &MockAuthClient{}, auth.WithManagerActivitySink(sink))

	session := manager.Resolve(context.Background())
	assert.Equal(t, auth.StatusUnauthenticated, session.Status)
	assert.Contains(t, sink.EventTypes(), auth.ActivityEventCredentialExpired)

	_, present, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, present)
}

func TestManagerResolveUndecodableCredentialClearsStore(t *testing.T) {
	store := auth.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), "corrupted-blob"))

	manager := auth.NewManager(store, &MockAuthClient{})

	session := manager.Resolve(context.Background())
	assert.Equal(t, auth.StatusUnauthenticated, session.Status)

	_, present, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, present)
}

func TestManagerResolveRunsOnce(t *testing.T) {
	store := &MockCredentialStore{}
	store.On("Load", mock.Anything).Return("", false, nil).Once()

	manager := auth.NewManager(store, &MockAuthClient{})

	first := manager.Resolve(context.Background())
	second := manager.Resolve(context.Background())

	assert.Equal(t, first, second)
	store.AssertNumberOfCalls(t, "Load", 1)
}

func TestManagerResolveNeverReturnsToLoading(t *testing.T) {
	credential := mintCredential(t, "acc-7", auth.RoleOwner, time.Now().Add(time.Hour))

	store := auth.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), credential))

	manager := auth.NewManager(store, &MockAuthClient{})
	manager.Resolve(context.Background())
	manager.Logout(context.Background())

	// A second Resolve after logout must not reload the slot.
	session := manager.Resolve(context.Background())
	assert.Equal(t, auth.StatusUnauthenticated, session.Status)
}

func TestManagerLoginSuccessPersistsCredential(t *testing.T) {
	expiry := time.Now().Add(time.Hour)
	credential := mintCredential(t, "acc-9", auth.RoleSalesman, expiry)

	client := &MockAuthClient{}
	client.On("Authenticate", mock.Anything, mock.Anything).
		Return(&auth.LoginResult{Credential: credential}, nil).Once()

	store := auth.NewMemoryStore()
	sink := &recordingSink{}
	manager := auth.NewManager(store, client, auth.WithManagerActivitySink(sink))
	manager.Resolve(context.Background())

	session, err := manager.Login(context.Background(), auth.LoginRequest{
		Identifier: "pat@shopgrid.test",
		Password:   "secret",
	})
	require.NoError(t, err)

	assert.Equal(t, auth.StatusAuthenticated, session.Status)
	// Identity is recomputed from the credential when the endpoint omits it.
	assert.Equal(t, "acc-9", session.Identity.SubjectID)
	assert.Equal(t, auth.RoleSalesman, session.Identity.Role)

	stored, present, err := store.Load(context.Background())
	require.NoError(t, err)
	require.True(t, present)
	assert.Equal(t, credential, stored)

	assert.Contains(t, sink.EventTypes(), auth.ActivityEventLoginSuccess)
	client.AssertExpectations(t)
}

func TestManagerFailedLoginKeepsExistingSession(t *testing.T) {
	existing := mintCredential(t, "acc-1", auth.RoleOwner, time.Now().Add(time.Hour))

	store := auth.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), existing))

	client := &MockAuthClient{}
	client.On("Authenticate", mock.Anything, mock.Anything).
		Return(nil, auth.ErrAuthenticationRejected).Once()

	manager := auth.NewManager(store, client)
	manager.Resolve(context.Background())

	session, err := manager.Login(context.Background(), auth.LoginRequest{
		Identifier: "someone@else.test",
		Password:   "wrong",
	})
	require.Error(t, err)
	assert.True(t, auth.IsAuthenticationRejected(err))

	// The pre-call session survives untouched, store included.
	assert.Equal(t, auth.StatusAuthenticated, session.Status)
	assert.Equal(t, "acc-1", session.Identity.SubjectID)

	stored, present, loadErr := store.Load(context.Background())
	require.NoError(t, loadErr)
	require.True(t, present)
	assert.Equal(t, existing, stored)
}

func TestManagerLoginEmptyResultIsTransportFailure(t *testing.T) {
	client := &MockAuthClient{}
	client.On("Authenticate", mock.Anything, mock.Anything).
		Return(&auth.LoginResult{}, nil).Once()

	store := &MockCredentialStore{}
	store.On("Load", mock.Anything).Return("", false, nil).Once()

	manager := auth.NewManager(store, client)
	manager.Resolve(context.Background())

	session, err := manager.Login(context.Background(), auth.LoginRequest{
		Identifier: "pat@shopgrid.test",
		Password:   "secret",
	})
	require.Error(t, err)
	assert.Equal(t, auth.StatusUnauthenticated, session.Status)
	store.AssertNumberOfCalls(t, "Save", 0)
}

func TestManagerLoginWithAccessKey(t *testing.T) {
	credential := mintCredential(t, "acc-co", auth.RoleCompany, time.Now().Add(time.Hour))

	client := &MockAuthClient{}
	client.On("AuthenticateAccessKey", mock.Anything, mock.Anything).
		Return(&auth.LoginResult{Credential: credential}, nil).Once()

	manager := auth.NewManager(auth.NewMemoryStore(), client)
	manager.Resolve(context.Background())

	session, err := manager.LoginWithAccessKey(context.Background(), auth.AccessKeyRequest{
		KeyID:     "AK123",
		KeySecret: "shhh",
	})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleCompany, session.Identity.Role)
	assert.Equal(t, "/company/dashboard", session.Identity.Role.LandingRoute())
}

func TestManagerLoginWithCode(t *testing.T) {
	credential := mintCredential(t, "acc-cu", auth.RoleCustomer, time.Now().Add(time.Hour))

	client := &MockAuthClient{}
	client.On("RequestLoginCode", mock.Anything, "+15552345678").Return(nil).Once()
	client.On("AuthenticateCode", mock.Anything, mock.Anything).
		Return(&auth.LoginResult{Credential: credential}, nil).Once()

	manager := auth.NewManager(auth.NewMemoryStore(), client)
	manager.Resolve(context.Background())

	require.NoError(t, manager.RequestLoginCode(context.Background(), "+15552345678"))

	session, err := manager.LoginWithCode(context.Background(), auth.CodeVerifyRequest{
		PhoneNumber: "+15552345678",
		Code:        "123456",
	})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleCustomer, session.Identity.Role)
	client.AssertExpectations(t)
}

func TestManagerLogoutClearsEverything(t *testing.T) {
	credential := mintCredential(t, "acc-7", auth.RoleOwner, time.Now().Add(time.Hour))

	store := auth.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), credential))

	sink := &recordingSink{}
	manager := auth.NewManager(store, &MockAuthClient{}, auth.WithManagerActivitySink(sink))
	manager.Resolve(context.Background())

	session := manager.Logout(context.Background())
	assert.Equal(t, auth.StatusUnauthenticated, session.Status)
	assert.Empty(t, session.Credential)
	assert.True(t, session.Identity.IsZero())

	_, present, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, present)
	assert.Contains(t, sink.EventTypes(), auth.ActivityEventLogout)
}

func TestManagerLogoutIsIdempotent(t *testing.T) {
	store := auth.NewMemoryStore()
	manager := auth.NewManager(store, &MockAuthClient{})
	manager.Resolve(context.Background())

	first := manager.Logout(context.Background())
	second := manager.Logout(context.Background())

	assert.Equal(t, auth.StatusUnauthenticated, first.Status)
	assert.Equal(t, first, second)
}

func TestManagerExpireDropsAuthenticatedSession(t *testing.T) {
	credential := mintCredential(t, "acc-7", auth.RoleOwner, time.Now().Add(time.Hour))

	store := auth.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), credential))

	sink := &recordingSink{}
	manager := auth.NewManager(store, &MockAuthClient{}, auth.WithManagerActivitySink(sink))
	manager.Resolve(context.Background())

	session := manager.Expire(context.Background())
	assert.Equal(t, auth.StatusUnauthenticated, session.Status)

	_, present, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, present)
	assert.Contains(t, sink.EventTypes(), auth.ActivityEventCredentialExpired)
}

func TestManagerExpireIsNoopWhenUnauthenticated(t *testing.T) {
	store := &MockCredentialStore{}
	store.On("Load", mock.Anything).Return("", false, nil).Once()

	manager := auth.NewManager(store, &MockAuthClient{})
	manager.Resolve(context.Background())

	session := manager.Expire(context.Background())
	assert.Equal(t, auth.StatusUnauthenticated, session.Status)
	store.AssertNotCalled(t, "Clear", mock.Anything)
}

func TestManagerSubscribersObserveTransitions(t *testing.T) {
	credential := mintCredential(t, "acc-7", auth.RoleOwner, time.Now().Add(time.Hour))

	client := &MockAuthClient{}
	client.On("Authenticate", mock.Anything, mock.Anything).
		Return(&auth.LoginResult{Credential: credential}, nil).Once()

	manager := auth.NewManager(auth.NewMemoryStore(), client)

	var seen []auth.Status
	unsubscribe := manager.Subscribe(func(s auth.Session) {
		seen = append(seen, s.Status)
	})

	manager.Resolve(context.Background())
	_, err := manager.Login(context.Background(), auth.LoginRequest{
		Identifier: "pat@shopgrid.test",
		Password:   "secret",
	})
	require.NoError(t, err)

	unsubscribe()
	manager.Logout(context.Background())

	assert.Equal(t, []auth.Status{auth.StatusUnauthenticated, auth.StatusAuthenticated}, seen)
}

func TestManagerResolveWithFrozenClock(t *testing.T) {
	// A credential expiring one second after the frozen clock is still live.
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	credential := mintCredential(t, "acc-7", auth.RoleManager, now.Add(time.Second))

	store := auth.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), credential))

	manager := auth.NewManager(store, &MockAuthClient{},
		auth.WithManagerClock(func() time.Time { return now }))

	session := manager.Resolve(context.Background())
	assert.Equal(t, auth.StatusAuthenticated, session.Status)
}
