package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestParseValidToken(t *testing.T) {
	userID := uuid.New()
	companyID := uuid.New()
	token := signToken(t, testSecret, jwt.MapClaims{
		"user_id":    userID.String(),
		"company_id": companyID.String(),
		"role":       "CONTABILIDAD",
		"exp":        time.Now().Add(time.Hour).Unix(),
	})

	principal, err := NewParser(testSecret).Parse(token)
	require.NoError(t, err)
	assert.Equal(t, userID, principal.UserID)
	assert.Equal(t, companyID, principal.CompanyID)
	assert.Equal(t, "CONTABILIDAD", principal.Role)
	assert.True(t, principal.IsAccounting())
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token := signToken(t, "other-secret", jwt.MapClaims{
		"user_id":    uuid.New().String(),
		"company_id": uuid.New().String(),
		"role":       "ADMIN",
		"exp":        time.Now().Add(time.Hour).Unix(),
	})

	_, err := NewParser(testSecret).Parse(token)
	assert.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	token := signToken(t, testSecret, jwt.MapClaims{
		"user_id":    uuid.New().String(),
		"company_id": uuid.New().String(),
		"role":       "ADMIN",
		"exp":        time.Now().Add(-time.Hour).Unix(),
	})

	_, err := NewParser(testSecret).Parse(token)
	assert.Error(t, err)
}

func TestParseRejectsMalformedClaims(t *testing.T) {
	token := signToken(t, testSecret, jwt.MapClaims{
		"user_id":    "not-a-uuid",
		"company_id": uuid.New().String(),
		"role":       "ADMIN",
		"exp":        time.Now().Add(time.Hour).Unix(),
	})

	_, err := NewParser(testSecret).Parse(token)
	assert.Error(t, err)
}
