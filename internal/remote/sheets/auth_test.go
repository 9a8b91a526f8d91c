package sheets

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"tasksheet/internal/config"
)

func TestOAuthConfig(t *testing.T) {
	cfg := &config.Config{Dir: t.TempDir()}

	_, err := OAuthConfig(cfg)
	assert.ErrorContains(t, err, "failed to read oauth_client.json")

	require.NoError(t, os.WriteFile(cfg.OAuthClientPath(), []byte(`{"bogus":true}`), 0600))
	_, err = OAuthConfig(cfg)
	assert.ErrorContains(t, err, "invalid oauth_client.json")

	require.NoError(t, os.WriteFile(cfg.OAuthClientPath(),
		[]byte(`{"installed":{"client_id":"id","client_secret":"secret"}}`), 0600))
	oc, err := OAuthConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "id", oc.ClientID)
	assert.Equal(t, []string{Scope}, oc.Scopes)
}

func TestSaveLoadToken(t *testing.T) {
	cfg := &config.Config{Dir: t.TempDir()}
	expiry := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, SaveToken(cfg.TokenPath(), &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       expiry,
	}))

	info, err := os.Stat(cfg.TokenPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	tok, err := LoadToken(cfg.TokenPath())
	require.NoError(t, err)
	assert.Equal(t, "refresh", tok.RefreshToken)
	assert.True(t, tok.Expiry.Equal(expiry))
}

func TestCheckToken_Rejects(t *testing.T) {
	cfg := &config.Config{Dir: t.TempDir()}
	ctx := context.Background()

	assert.ErrorContains(t, CheckToken(ctx, cfg), "failed to read token.json")

	require.NoError(t, os.WriteFile(cfg.TokenPath(), []byte(`{`), 0600))
	assert.ErrorContains(t, CheckToken(ctx, cfg), "invalid token.json")

	require.NoError(t, SaveToken(cfg.TokenPath(), &oauth2.Token{AccessToken: "a"}))
	assert.ErrorIs(t, CheckToken(ctx, cfg), ErrNoRefreshToken)
}

func TestCheckToken_UnexpiredTokenSkipsRefresh(t *testing.T) {
	cfg := &config.Config{Dir: t.TempDir()}
	require.NoError(t, os.WriteFile(cfg.OAuthClientPath(),
		[]byte(`{"installed":{"client_id":"id","client_secret":"secret"}}`), 0600))
	require.NoError(t, SaveToken(cfg.TokenPath(), &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(time.Hour),
	}))

	assert.NoError(t, CheckToken(context.Background(), cfg))
}
