package security

import (
	"TradeTalent/internal/api/config"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	Init(config.SecurityConfig{JWTSecret: "test-secret", JWTIssuer: "engagement-test", JWTTTL: 1})

	token, err := GenerateToken(42, []string{"SERVICE"})
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.EqualValues(t, 42, claims.UserID)
	assert.Equal(t, []string{"SERVICE"}, claims.Roles)
	assert.Equal(t, "engagement-test", claims.Issuer)

	sig, err := ExtractSignature(token)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(token, sig))

	JWTIssuer = "another-service"
	_, err = ValidateToken(token)
	assert.Error(t, err)
	JWTIssuer = "engagement-test"

	JWTSecret = "rotated"
	_, err = ValidateToken(token)
	assert.Error(t, err)

	_, err = ExtractSignature("not-a-token")
	assert.Error(t, err)
}
