package utils

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pushp314/commit-backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withSecret(t *testing.T) {
	t.Helper()
	prev := config.AppConfig
	config.AppConfig = &config.Config{JWTSecret: "utils-test-secret"}
	t.Cleanup(func() { config.AppConfig = prev })
}

func TestTokenRoundTrip(t *testing.T) {
	withSecret(t)

	token, err := GenerateToken("user-1", TokenTTL)
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.True(t, IsUUID(claims.GetJTI()))
	assert.WithinDuration(t, time.Now().Add(TokenTTL), claims.GetExpiresAt(), 5*time.Second)
}

func TestValidateToken_Rejects(t *testing.T) {
	withSecret(t)

	expired, err := GenerateToken("user-1", -time.Minute)
	require.NoError(t, err)
	_, err = ValidateToken(expired)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))

	token, err := GenerateToken("user-1", TokenTTL)
	require.NoError(t, err)
	config.AppConfig.JWTSecret = "rotated"
	_, err = ValidateToken(token)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestResetToken(t *testing.T) {
	raw, digest, err := GenerateResetToken()
	require.NoError(t, err)
	assert.Len(t, raw, 64)
	assert.Equal(t, digest, HashResetToken(raw))
	assert.NotEqual(t, raw, digest)
}

func TestGenerateInviteCode(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z0-9]{8}$`)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code, err := GenerateInviteCode()
		require.NoError(t, err)
		assert.Regexp(t, pattern, code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 95)
}

func TestSanitizers(t *testing.T) {
	assert.Equal(t, "hello", CleanText("  <b>hello</b> ", 100))
	assert.Equal(t, "abc", CleanText("abcdef", 3))
	assert.Equal(t, "alice@example.com", NormalizeEmail(" Alice@Example.COM "))
	assert.Equal(t, "alice", UsernameFromEmail("alice@example.com"))
	assert.True(t, ValidateUsername("alice_01"))
	assert.False(t, ValidateUsername("al"))
	assert.False(t, ValidateUsername("has space"))
}
