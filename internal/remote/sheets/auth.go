package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"tasksheet/internal/config"
)

// ErrNoRefreshToken is returned for a stored token that cannot be renewed.
var ErrNoRefreshToken = errors.New("token has no refresh token")

const tokenCheckTimeout = 10 * time.Second

// OAuthConfig reads oauth_client.json and returns a config for Scope.
// The redirect URL is left for the caller to set.
func OAuthConfig(cfg *config.Config) (*oauth2.Config, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth_client.json: %w", err)
	}
	oc, err := google.ConfigFromJSON(clientJSON, Scope)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth_client.json: %w", err)
	}
	return oc, nil
}

// LoadToken reads a token written by SaveToken.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token.json: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("invalid token.json: %w", err)
	}
	return &tok, nil
}

// SaveToken writes tok to path with mode 0600.
func SaveToken(path string, tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token.json: %w", err)
	}
	return nil
}

// CheckToken verifies that the stored token carries a refresh token and can
// produce an access token, refreshing it against Google if expired.
func CheckToken(ctx context.Context, cfg *config.Config) error {
	tok, err := LoadToken(cfg.TokenPath())
	if err != nil {
		return err
	}
	if tok.RefreshToken == "" {
		return ErrNoRefreshToken
	}
	oc, err := OAuthConfig(cfg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, tokenCheckTimeout)
	defer cancel()
	if _, err := oc.TokenSource(ctx, tok).Token(); err != nil {
		return fmt.Errorf("token refresh failed: %w", err)
	}
	return nil
}
