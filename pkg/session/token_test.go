package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourflorist/storefront/pkg/config"
)

func testConfig() config.SessionConfig {
	return config.SessionConfig{
		Secret:     "test-secret",
		Issuer:     "storefront-test",
		TTLMinutes: 60,
	}
}

func TestMintAndParseRoundTrip(t *testing.T) {
	cfg := testConfig()
	sessionID := NewSessionID()

	token, err := Mint(cfg, time.Now(), sessionID)
	require.NoError(t, err)

	claims, err := Parse(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, sessionID, claims.SessionID)
	assert.Equal(t, cfg.Issuer, claims.Issuer)
}

func TestMintRejectsIncompleteConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Secret = ""
	_, err := Mint(cfg, time.Now(), NewSessionID())
	assert.Error(t, err)

	cfg = testConfig()
	cfg.TTLMinutes = 0
	_, err = Mint(cfg, time.Now(), NewSessionID())
	assert.Error(t, err)

	_, err = Mint(testConfig(), time.Now(), "")
	assert.Error(t, err)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := Mint(testConfig(), time.Now(), NewSessionID())
	require.NoError(t, err)

	other := testConfig()
	other.Secret = "different-secret"
	_, err = Parse(other, token)
	assert.Error(t, err)
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	token, err := Mint(testConfig(), time.Now(), NewSessionID())
	require.NoError(t, err)

	other := testConfig()
	other.Issuer = "someone-else"
	_, err = Parse(other, token)
	assert.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	token, err := Mint(testConfig(), time.Now().Add(-2*time.Hour), NewSessionID())
	require.NoError(t, err)

	_, err = Parse(testConfig(), token)
	assert.Error(t, err)
}
