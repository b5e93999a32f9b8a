package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/revue-go/internal/store"
)

func testTokenConfig() TokenConfig {
	return TokenConfig{
		Secret: []byte("test-secret-key-for-token-tests-0001"),
		TTL:    time.Hour,
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	cfg := testTokenConfig()
	user := &store.User{ID: 42, Username: "reader", Role: store.RoleUser}

	signed, err := GenerateAccessToken(cfg, user)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := ParseToken(cfg, signed)
	require.NoError(t, err)
	assert.Equal(t, "reader", claims.Username)
	assert.Equal(t, store.RoleUser, claims.Role)
	assert.NotEmpty(t, claims.ID)

	id, err := UserIDFromClaims(claims)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestParseToken_WrongSecret(t *testing.T) {
	cfg := testTokenConfig()
	user := &store.User{ID: 1, Username: "reader", Role: store.RoleUser}

	signed, err := GenerateAccessToken(cfg, user)
	require.NoError(t, err)

	other := TokenConfig{Secret: []byte("another-secret-key-for-token-tests-X"), TTL: time.Hour}
	_, err = ParseToken(other, signed)
	assert.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	cfg := testTokenConfig()
	cfg.TTL = -time.Minute
	user := &store.User{ID: 1, Username: "reader", Role: store.RoleUser}

	signed, err := GenerateAccessToken(cfg, user)
	require.NoError(t, err)

	_, err = ParseToken(testTokenConfig(), signed)
	assert.Error(t, err)
}

func TestParseToken_Garbage(t *testing.T) {
	_, err := ParseToken(testTokenConfig(), "not.a.token")
	assert.Error(t, err)
}
