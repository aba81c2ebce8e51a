package google

import (
	"context"
	"strings"
	"testing"
)

const testOAuthClient = `{"installed":{"client_id":"id","client_secret":"secret","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{
		"GOOGLE_SPREADSHEET_ID", "JOURNAL_SHEET_NAME",
		"GOOGLE_OAUTH_CLIENT_JSON", "GOOGLE_OAUTH_CLIENT_FILE",
		"GOOGLE_OAUTH_TOKEN_JSON", "GOOGLE_OAUTH_TOKEN_FILE",
		"GOOGLE_SERVICE_ACCOUNT_JSON", "GOOGLE_SERVICE_ACCOUNT_FILE",
		"GOOGLE_APPLICATION_CREDENTIALS",
	} {
		t.Setenv(v, "")
	}
}

func TestNewFromEnvMissingSpreadsheetID(t *testing.T) {
	clearCredentialEnv(t)

	_, err := NewFromEnv(context.Background())
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewFromEnvOAuthInvalidClient(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("GOOGLE_SPREADSHEET_ID", "test-id")
	t.Setenv("GOOGLE_OAUTH_CLIENT_JSON", `invalid-json`)
	t.Setenv("GOOGLE_OAUTH_TOKEN_JSON", `{"access_token":"test"}`)

	_, err := NewFromEnv(context.Background())
	if err == nil {
		t.Fatal("expected error with invalid JSON")
	}
	if !strings.Contains(err.Error(), "oauth config") {
		t.Errorf("expected oauth config error, got: %v", err)
	}
}

func TestNewFromEnvOAuthMissingToken(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("GOOGLE_SPREADSHEET_ID", "test-id")
	t.Setenv("GOOGLE_OAUTH_CLIENT_JSON", testOAuthClient)

	_, err := NewFromEnv(context.Background())
	if err == nil {
		t.Fatal("expected error for missing token")
	}
	if !strings.Contains(err.Error(), "GOOGLE_OAUTH_TOKEN_JSON") {
		t.Errorf("expected missing token error, got: %v", err)
	}
}

func TestNewFromEnvNoCredentials(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("GOOGLE_SPREADSHEET_ID", "test-id")

	_, err := NewFromEnv(context.Background())
	if err == nil {
		t.Fatal("expected error without any credentials")
	}
	if !strings.Contains(err.Error(), "missing credentials") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestYearSheetName(t *testing.T) {
	if got := yearSheetName("Journal", 2026); got != "2026 Journal" {
		t.Fatalf("yearSheetName = %q, want %q", got, "2026 Journal")
	}
}
