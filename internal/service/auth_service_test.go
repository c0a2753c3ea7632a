package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pilotaja-api/internal/models"
	appErrors "github.com/noah-isme/pilotaja-api/pkg/errors"
)

const testSecret = "booking-secret"

func signToken(t *testing.T, method jwt.SigningMethod, secret string, claims models.JWTClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func claimsFor(userID string, role models.UserRole, ttl time.Duration) models.JWTClaims {
	return models.JWTClaims{
		UserID: userID,
		Role:   role,
		Email:  "someone@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    "pilotaja",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestValidateToken(t *testing.T) {
	svc := NewAuthService(AuthConfig{AccessTokenSecret: testSecret, Issuer: "pilotaja"})

	claims, err := svc.ValidateToken(signToken(t, jwt.SigningMethodHS256, testSecret, claimsFor("inst-1", models.RoleInstructor, time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "inst-1", claims.UserID)
	assert.Equal(t, models.RoleInstructor, claims.Role)
}

func TestValidateTokenRejections(t *testing.T) {
	svc := NewAuthService(AuthConfig{AccessTokenSecret: testSecret, Issuer: "pilotaja"})

	wrongIssuer := claimsFor("stu-1", models.RoleStudent, time.Hour)
	wrongIssuer.Issuer = "elsewhere"

	cases := map[string]string{
		"wrong secret": signToken(t, jwt.SigningMethodHS256, "other", claimsFor("stu-1", models.RoleStudent, time.Hour)),
		"wrong method": signToken(t, jwt.SigningMethodHS512, testSecret, claimsFor("stu-1", models.RoleStudent, time.Hour)),
		"expired":      signToken(t, jwt.SigningMethodHS256, testSecret, claimsFor("stu-1", models.RoleStudent, -time.Minute)),
		"unknown role": signToken(t, jwt.SigningMethodHS256, testSecret, claimsFor("stu-1", models.UserRole("GUEST"), time.Hour)),
		"missing user": signToken(t, jwt.SigningMethodHS256, testSecret, claimsFor("", models.RoleAdmin, time.Hour)),
		"wrong issuer": signToken(t, jwt.SigningMethodHS256, testSecret, wrongIssuer),
		"malformed":    "not-a-token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			requireAppError(t, err, appErrors.ErrUnauthorized)
		})
	}
}
