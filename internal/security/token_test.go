package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func TestTokenManager(t *testing.T) {
	manager := NewTokenManager("test-secret-key-at-least-32-chars!", 15)

	t.Run("GenerateAndValidateRoundTrip", func(t *testing.T) {
		token, err := manager.GenerateAccessToken(42, "ops@example.com")
		assert.NoError(t, err)
		assert.NotEmpty(t, token)

		claims, err := manager.ValidateToken(token)
		assert.NoError(t, err)
		assert.Equal(t, int64(42), claims.OwnerID)
		assert.Equal(t, "ops@example.com", claims.Email)
		assert.Equal(t, "42", claims.Subject)
	})

	t.Run("WrongSecretRejected", func(t *testing.T) {
		other := NewTokenManager("another-secret-key-with-32-chars!!", 15)
		token, err := other.GenerateAccessToken(42, "")
		assert.NoError(t, err)

		_, err = manager.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("ExpiredTokenRejected", func(t *testing.T) {
		claims := OwnerClaims{
			OwnerID: 42,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "42",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
				IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString([]byte("test-secret-key-at-least-32-chars!"))
		assert.NoError(t, err)

		_, err = manager.ValidateToken(signed)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("GarbageTokenRejected", func(t *testing.T) {
		_, err := manager.ValidateToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("OwnerIDFallsBackToSubject", func(t *testing.T) {
		claims := jwt.RegisteredClaims{
			Subject:   "77",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString([]byte("test-secret-key-at-least-32-chars!"))
		assert.NoError(t, err)

		got, err := manager.ValidateToken(signed)
		assert.NoError(t, err)
		assert.Equal(t, int64(77), got.OwnerID)
	})
}
