package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTConfig() JWTConfig {
	return JWTConfig{
		SigningMethod: "HS256",
		SecretKey:     "test-secret-key",
		Issuer:        "pantry-test",
		ExpiryTime:    time.Hour,
	}
}

func TestJWTGenerateAndValidate(t *testing.T) {
	cfg := testJWTConfig()

	generator, err := NewJWTGenerator(cfg)
	require.NoError(t, err)
	validator, err := NewJWTValidator(cfg)
	require.NoError(t, err)

	token, err := generator.GenerateToken("user-1", "cook@example.com", []string{RoleEditor})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := validator.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "cook@example.com", claims.Email)
	assert.True(t, claims.HasRole(RoleEditor))
	assert.False(t, claims.HasRole(RoleAdmin))
}

func TestNewJWTValidatorRequiresSecret(t *testing.T) {
	_, err := NewJWTValidator(JWTConfig{})
	assert.Error(t, err)

	_, err = NewJWTGenerator(JWTConfig{})
	assert.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	cfg := testJWTConfig()
	validator, err := NewJWTValidator(cfg)
	require.NoError(t, err)

	claims := &Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.SecretKey))
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	validator, err := NewJWTValidator(testJWTConfig())
	require.NoError(t, err)

	otherCfg := testJWTConfig()
	otherCfg.SecretKey = "a-different-secret"
	generator, err := NewJWTGenerator(otherCfg)
	require.NoError(t, err)

	token, err := generator.GenerateToken("user-1", "", nil)
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestValidateTokenMalformed(t *testing.T) {
	validator, err := NewJWTValidator(testJWTConfig())
	require.NoError(t, err)

	_, err = validator.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = validator.ValidateToken("")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestValidateTokenSubjectFallback(t *testing.T) {
	cfg := testJWTConfig()
	validator, err := NewJWTValidator(cfg)
	require.NoError(t, err)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-7",
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.SecretKey))
	require.NoError(t, err)

	parsed, err := validator.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-7", parsed.UserID)
}

func TestValidateTokenWrongIssuer(t *testing.T) {
	validator, err := NewJWTValidator(testJWTConfig())
	require.NoError(t, err)

	otherCfg := testJWTConfig()
	otherCfg.Issuer = "someone-else"
	generator, err := NewJWTGenerator(otherCfg)
	require.NoError(t, err)

	token, err := generator.GenerateToken("user-1", "", nil)
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestUserContextRoundTrip(t *testing.T) {
	user := &UserContext{
		UserID: "user-1",
		Email:  "cook@example.com",
		Roles:  []string{RoleEditor, RoleAdmin},
	}

	ctx := SetUserInContext(context.Background(), user)

	got, err := GetUserFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, user, got)
	assert.True(t, got.HasRole(RoleAdmin))

	_, err = GetUserFromContext(context.Background())
	assert.Error(t, err)
}
