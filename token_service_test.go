package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/shopgrid/auth"
)

func testAccount(role auth.Role) *auth.Account {
	return &auth.Account{
		ID:        uuid.New(),
		Role:      role,
		Status:    auth.AccountStatusActive,
		FirstName: "Pat",
		LastName:  "Vega",
		Email:     "pat@shopgrid.test",
		BranchID:  "branch-3",
	}
}

func TestTokenServiceGenerateValidateRoundtrip(t *testing.T) {
	ts := auth.NewTokenService([]byte(testSigningKey), 24, "shopgrid", nil, nil)
	account := testAccount(auth.RoleManager)

	credential, err := ts.Generate(account)
	require.NoError(t, err)
	require.NotEmpty(t, credential)

	claims, err := ts.Validate(credential)
	require.NoError(t, err)

	assert.Equal(t, account.ID.String(), claims.SubjectID())
	role, ok := claims.Role()
	require.True(t, ok)
	assert.Equal(t, auth.RoleManager, role)
	assert.Equal(t, "Pat Vega", claims.DisplayName)
	assert.Equal(t, "branch-3", claims.Attributes["branch_id"])
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.Expires(), time.Minute)
}

func TestTokenServiceCompanyDisplayName(t *testing.T) {
	ts := auth.NewTokenService([]byte(testSigningKey), 1, "shopgrid", nil, nil)
	account := testAccount(auth.RoleCompany)
	account.CompanyName = "Acme Supplies"

	credential, err := ts.Generate(account)
	require.NoError(t, err)

	claims, err := ts.Validate(credential)
	require.NoError(t, err)
	assert.Equal(t, "Acme Supplies", claims.DisplayName)
}

func TestTokenServiceRejectsWrongKey(t *testing.T) {
	issuer := auth.NewTokenService([]byte("one-key"), 1, "shopgrid", nil, nil)
	verifier := auth.NewTokenService([]byte("other-key"), 1, "shopgrid", nil, nil)

	credential, err := issuer.Generate(testAccount(auth.RoleOwner))
	require.NoError(t, err)

	_, err = verifier.Validate(credential)
	require.Error(t, err)
	assert.True(t, auth.IsMalformedCredential(err))
}

func TestTokenServiceRejectsExpiredCredential(t *testing.T) {
	ts := auth.NewTokenService([]byte(testSigningKey), 1, "shopgrid", nil, nil)

	claims := &auth.CredentialClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "shopgrid",
			Subject:   "acc-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		UserRole: string(auth.RoleOwner),
	}

	credential, err := ts.SignClaims(claims)
	require.NoError(t, err)

	_, err = ts.Validate(credential)
	require.Error(t, err)
	assert.True(t, auth.IsCredentialExpired(err))
}

func TestTokenServiceEnforcesIssuerAndAudience(t *testing.T) {
	issuer := auth.NewTokenService([]byte(testSigningKey), 1, "someone-else", []string{"other-app"}, nil)
	verifier := auth.NewTokenService([]byte(testSigningKey), 1, "shopgrid", []string{"shopgrid-app"}, nil)

	credential, err := issuer.Generate(testAccount(auth.RoleOwner))
	require.NoError(t, err)

	_, err = verifier.Validate(credential)
	assert.Error(t, err)
}

func TestTokenServiceAcceptsAnyConfiguredAudience(t *testing.T) {
	issuer := auth.NewTokenService([]byte(testSigningKey), 1, "shopgrid", []string{"shopgrid-pos"}, nil)
	verifier := auth.NewTokenService([]byte(testSigningKey), 1, "shopgrid", []string{"shopgrid-app", "shopgrid-pos"}, nil)

	credential, err := issuer.Generate(testAccount(auth.RoleManager))
	require.NoError(t, err)

	claims, err := verifier.Validate(credential)
	require.NoError(t, err)
	assert.Contains(t, []string(claims.Audience), "shopgrid-pos")
}

func TestMultiTokenValidatorFallsThroughMalformed(t *testing.T) {
	primary := auth.NewTokenService([]byte("primary-key"), 1, "shopgrid", nil, nil)
	secondary := auth.NewTokenService([]byte("secondary-key"), 1, "shopgrid", nil, nil)

	credential, err := secondary.Generate(testAccount(auth.RoleSalesman))
	require.NoError(t, err)

	multi := auth.NewMultiTokenValidator(primary, secondary)
	claims, err := multi.Validate(credential)
	require.NoError(t, err)
	role, _ := claims.Role()
	assert.Equal(t, auth.RoleSalesman, role)
}

func TestMultiTokenValidatorShortCircuitsOnExpiry(t *testing.T) {
	primary := auth.NewTokenService([]byte(testSigningKey), 1, "shopgrid", nil, nil)

	expired := &auth.CredentialClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "shopgrid",
			Subject:   "acc-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	credential, err := primary.SignClaims(expired)
	require.NoError(t, err)

	var secondaryCalled bool
	secondary := auth.TokenValidatorFunc(func(auth.Credential) (*auth.CredentialClaims, error) {
		secondaryCalled = true
		return nil, auth.ErrMalformedCredential
	})

	multi := auth.NewMultiTokenValidator(primary, secondary)
	_, err = multi.Validate(credential)
	require.Error(t, err)
	assert.True(t, auth.IsCredentialExpired(err))
	assert.False(t, secondaryCalled)
}
