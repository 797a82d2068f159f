package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/cache"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

func TestLogin(t *testing.T) {
	db := testhelpers.SetupSQLiteDB(t)
	user := testhelpers.CreateUser(t, db, "cook")
	auth := NewAuthService(db, "test-secret", time.Hour, nil)
	ctx := context.Background()

	token, err := auth.Login(ctx, "COOK@example.com", testhelpers.DefaultPassword)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "cook", claims.Username)
	assert.False(t, claims.IsStaff)
	assert.NotEmpty(t, claims.ID)

	_, err = auth.Login(ctx, "cook@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Login(ctx, "nobody@example.com", testhelpers.DefaultPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateTokenInvalid(t *testing.T) {
	auth := NewAuthService(nil, "test-secret", time.Hour, nil)
	ctx := context.Background()

	claims, err := auth.ValidateToken(ctx, "invalid.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, claims)

	other := NewAuthService(nil, "other-secret", time.Hour, nil)
	token, err := other.GenerateToken(&models.User{ID: 1, Username: "x"})
	require.NoError(t, err)
	_, err = auth.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenExpired(t *testing.T) {
	auth := NewAuthService(nil, "test-secret", time.Hour, nil)
	issued := time.Now().Add(-2 * time.Hour)
	auth.now = func() time.Time { return issued }

	token, err := auth.GenerateToken(&models.User{ID: 1, Username: "x"})
	require.NoError(t, err)

	auth.now = time.Now
	_, err = auth.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsNoneAlgorithm(t *testing.T) {
	auth := NewAuthService(nil, "test-secret", time.Hour, nil)
	claims := &types.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserID:           1,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = auth.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogoutRevokesToken(t *testing.T) {
	client, redisMock := redismock.NewClientMock()
	auth := NewAuthService(nil, "test-secret", time.Hour, cache.NewTokenDenyList(client))
	fixed := time.Now()
	auth.now = func() time.Time { return fixed }
	ctx := context.Background()

	token, err := auth.GenerateToken(&models.User{ID: 5, Username: "x"})
	require.NoError(t, err)

	claims := &types.TokenClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)

	redisMock.ExpectExists("token:denied:" + claims.ID).SetVal(0)
	_, err = auth.ValidateToken(ctx, token)
	require.NoError(t, err)

	redisMock.ExpectSet("token:denied:"+claims.ID, 1, claims.ExpiresAt.Time.Sub(fixed)).SetVal("OK")
	require.NoError(t, auth.Logout(ctx, claims))

	redisMock.ExpectExists("token:denied:" + claims.ID).SetVal(1)
	_, err = auth.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	assert.NoError(t, redisMock.ExpectationsWereMet())
}
