package tokens

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-jwt-secret")

func TestAccessToken_RoundTrip(t *testing.T) {
	t.Parallel()

	userID := uuid.NewString()
	exp := time.Now().Add(15 * time.Minute).UTC()

	token, err := NewAccessToken(userID, RoleAdmin, exp, secret)
	require.NoError(t, err)

	claims, err := AccessClaimsFromToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.WithinDuration(t, exp, claims.ExpiresAt.Time, time.Second)
}

func TestAccessClaimsFromToken_WrongSecret(t *testing.T) {
	t.Parallel()

	token, err := NewAccessToken(uuid.NewString(), "user", time.Now().Add(time.Minute), secret)
	require.NoError(t, err)

	claims, err := AccessClaimsFromToken(token, []byte("other"))
	require.Error(t, err)
	assert.Nil(t, claims)
}

func TestAccessClaimsFromToken_Expired(t *testing.T) {
	t.Parallel()

	token, err := NewAccessToken(uuid.NewString(), "user", time.Now().Add(-time.Minute), secret)
	require.NoError(t, err)

	_, err = AccessClaimsFromToken(token, secret)
	require.Error(t, err)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))
}
