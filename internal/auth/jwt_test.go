package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	token, err := GenerateJWT("secret", "alice@example.com")
	require.NoError(t, err)

	id, err := ValidateJWT("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", string(id))
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := GenerateJWT("secret", "alice@example.com")
	require.NoError(t, err)

	_, err = ValidateJWT("other", token)
	assert.Error(t, err)
}

func TestValidateRejectsExpired(t *testing.T) {
	claims := jwt.MapClaims{
		"sub": "alice@example.com",
		"exp": time.Now().Add(-time.Minute).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = ValidateJWT("secret", token)
	assert.Error(t, err)
}

func TestGenerateRequiresIdentity(t *testing.T) {
	_, err := GenerateJWT("secret", "")
	assert.Error(t, err)
}
