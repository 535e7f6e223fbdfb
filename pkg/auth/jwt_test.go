package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wipay/subscriber-api/internal/model"
)

func newTestJWTService() JWTService {
	return NewJWTService(Config{
		Secret:        "test-secret",
		RefreshSecret: "test-refresh-secret",
		Expiry:        time.Hour,
		RefreshExpiry: 24 * time.Hour,
	})
}

func TestAccessTokenCarriesClaims(t *testing.T) {
	svc := newTestJWTService()
	user := &model.User{
		ID:    uuid.New(),
		Name:  "Jane Deng",
		Email: "jane@example.com",
		Role:  model.UserRoleAdmin,
	}

	token, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "Jane Deng", claims.Name)
	assert.Equal(t, "jane@example.com", claims.Email)
	assert.Equal(t, model.UserRoleAdmin, claims.Role)
}

func TestRefreshTokenCarriesClaims(t *testing.T) {
	svc := newTestJWTService()
	user := &model.User{
		ID:    uuid.New(),
		Name:  "John Deng",
		Email: "john@example.com",
		Role:  model.UserRoleCustomer,
	}

	token, err := svc.GenerateRefreshToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "John Deng", claims.Name)
	assert.Equal(t, model.UserRoleCustomer, claims.Role)
}

func TestTokensSignedWithSeparateSecrets(t *testing.T) {
	svc := newTestJWTService()
	user := &model.User{ID: uuid.New(), Name: "Jane Deng", Email: "jane@example.com", Role: model.UserRoleAdmin}

	access, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)

	_, err = svc.ValidateRefreshToken(access)
	assert.Error(t, err)
}
