package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatvault/backend/internal/models"
)

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService("secret", 1)
	orgID := uuid.New()
	user := newTestUser(models.RoleAdmin, &orgID, true)

	token, err := svc.Generate(user)
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	require.NotNil(t, claims.OrganizationID)
	assert.Equal(t, orgID, *claims.OrganizationID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestJWTWrongSecret(t *testing.T) {
	orgID := uuid.New()
	user := newTestUser(models.RoleUser, &orgID, true)
	token, err := NewJWTService("one", 1).Generate(user)
	require.NoError(t, err)

	_, err = NewJWTService("two", 1).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTExpired(t *testing.T) {
	orgID := uuid.New()
	user := newTestUser(models.RoleUser, &orgID, true)
	token, err := NewJWTService("secret", -1).Generate(user)
	require.NoError(t, err)

	_, err = NewJWTService("secret", 1).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTGarbage(t *testing.T) {
	_, err := NewJWTService("secret", 1).Validate("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
