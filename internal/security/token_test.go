package security

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestTokens(ttl time.Duration) *TokenService {
	return NewTokenService(testSecret, "order-management-api", "order-management-client", ttl)
}

func TestTokenIssueAndParse(t *testing.T) {
	svc := newTestTokens(time.Hour)

	token, err := svc.Issue(42, "alice", "User")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "User", claims.Role)
	assert.Equal(t, "order-management-api", claims.Issuer)
	assert.True(t, svc.Validate(token))
}

func TestTokenExpired(t *testing.T) {
	svc := newTestTokens(-time.Minute)

	token, err := svc.Issue(1, "bob", "User")
	require.NoError(t, err)
	// 零时钟偏移容忍：刚过期即无效
	assert.False(t, svc.Validate(token))
}

func TestTokenWrongIssuerOrAudience(t *testing.T) {
	token, err := NewTokenService(testSecret, "other-issuer", "order-management-client", time.Hour).
		Issue(1, "bob", "User")
	require.NoError(t, err)
	assert.False(t, newTestTokens(time.Hour).Validate(token))

	token, err = NewTokenService(testSecret, "order-management-api", "other-audience", time.Hour).
		Issue(1, "bob", "User")
	require.NoError(t, err)
	assert.False(t, newTestTokens(time.Hour).Validate(token))
}

func TestTokenTampered(t *testing.T) {
	svc := newTestTokens(time.Hour)

	token, err := svc.Issue(1, "bob", "User")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	parts[1] = parts[1][:len(parts[1])-2] + "xx"
	assert.False(t, svc.Validate(strings.Join(parts, ".")))
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := NewTokenService("another-secret-another-secret-32", "order-management-api", "order-management-client", time.Hour).
		Issue(1, "bob", "User")
	require.NoError(t, err)
	assert.False(t, newTestTokens(time.Hour).Validate(token))
}

func TestValidateMalformedInput(t *testing.T) {
	svc := newTestTokens(time.Hour)

	// 任意垃圾输入都只返回 false，不 panic
	for _, garbage := range []string{"", "not.a.token", "a.b", "....", "\x00"} {
		assert.False(t, svc.Validate(garbage))
	}
}
