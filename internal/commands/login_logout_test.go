package commands_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tasksheet/internal/commands"
	"tasksheet/internal/config"
	"tasksheet/internal/exitcode"
)

const testOAuthClient = `{"installed":{"client_id":"test","client_secret":"test","redirect_uris":["http://localhost"]}}`

func writeCredentials(t *testing.T, dir, token string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, config.OAuthClientFile), []byte(testOAuthClient), 0600); err != nil {
		t.Fatalf("failed to write oauth_client.json: %v", err)
	}
	if token == "" {
		return
	}
	if err := os.WriteFile(filepath.Join(dir, config.TokenFile), []byte(token), 0600); err != nil {
		t.Fatalf("failed to write token.json: %v", err)
	}
}

func TestLoginCommand_NoOAuthClient(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{Dir: dir}

	var out, errOut bytes.Buffer
	code := (&commands.LoginCmd{}).Run(context.Background(), cfg, nil, nil, &out, &errOut)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if out.String() != "" {
		t.Errorf("expected no stdout, got %q", out.String())
	}
	if !strings.HasPrefix(errOut.String(), "error: oauth_client.json not found in "+dir) {
		t.Errorf("unexpected stderr: %q", errOut.String())
	}
	if !strings.Contains(errOut.String(), "Enable the Google Sheets API") {
		t.Error("expected setup instructions for the Sheets API")
	}
}

// A stored token that cannot be refreshed sends login into the browser
// flow; the cancelled context stops it at the callback wait.
func TestLoginCommand_StaleTokenStartsFlow(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"corrupt", `{not json`},
		{"no refresh token", `{"access_token":"test","token_type":"Bearer","expiry":"2020-01-01T00:00:00Z"}`},
		{"no token", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeCredentials(t, dir, tt.token)
			cfg := &config.Config{Dir: dir}

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			var out, errOut bytes.Buffer
			code := (&commands.LoginCmd{}).Run(ctx, cfg, nil, nil, &out, &errOut)

			if out.String() == "already logged in\n" {
				t.Error("should not report an existing login")
			}
			if code != exitcode.AuthError {
				t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
			}
			if !strings.Contains(errOut.String(), "Open this URL in your browser:") &&
				!strings.Contains(errOut.String(), "could not bind") {
				t.Errorf("expected the consent URL, got %q", errOut.String())
			}
		})
	}
}

func TestLogoutCommand(t *testing.T) {
	tests := []struct {
		name     string
		hasToken bool
		quiet    bool
		wantOut  string
	}{
		{"logged in", true, false, "ok\n"},
		{"logged in quiet", true, true, ""},
		{"not logged in", false, false, "not logged in\n"},
		{"not logged in quiet", false, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			token := ""
			if tt.hasToken {
				token = `{"access_token":"test","refresh_token":"test"}`
			}
			writeCredentials(t, dir, token)
			cfg := &config.Config{Dir: dir, Quiet: tt.quiet}

			var out, errOut bytes.Buffer
			code := (&commands.LogoutCmd{}).Run(context.Background(), cfg, nil, nil, &out, &errOut)

			if code != exitcode.Success {
				t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
			}
			if errOut.String() != "" {
				t.Errorf("expected no stderr, got %q", errOut.String())
			}
			if out.String() != tt.wantOut {
				t.Errorf("expected %q, got %q", tt.wantOut, out.String())
			}
			if cfg.HasToken() {
				t.Error("token.json should be gone")
			}
			if !cfg.HasOAuthClient() {
				t.Error("oauth_client.json should be kept")
			}
		})
	}
}
