package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mekedron/otter-menusync/internal/domain"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string {
		return values[key]
	}
}

func TestSettingsDefaults(t *testing.T) {
	settings := SettingsFrom(envMap(nil))

	if settings.BaseURL != domain.DefaultBaseURL {
		t.Fatalf("expected default base url, got %q", settings.BaseURL)
	}
	if settings.SyncIntervalMinutes != 30 || settings.SyncInterval() != 30*time.Minute {
		t.Fatalf("expected 30 minute interval, got %d", settings.SyncIntervalMinutes)
	}
	if !settings.SyncEnabled || settings.SyncAllProfiles || settings.DryRun || settings.KeepProfileBaselines {
		t.Fatalf("unexpected flag defaults: %+v", settings)
	}
	if settings.HTTPMinInterval != defaultHTTPMinInterval {
		t.Fatalf("expected default request gap, got %s", settings.HTTPMinInterval)
	}
	if settings.DatabaseURL != defaultDatabaseURL || settings.LogLevel != "info" || settings.LogFormat != "text" {
		t.Fatalf("unexpected defaults: %+v", settings)
	}
}

func TestSettingsParsesEnvironment(t *testing.T) {
	settings := SettingsFrom(envMap(map[string]string{
		envActiveProfile:   " downtown ",
		envUsername:        "ops@example.com",
		envPassword:        "pa ss",
		envSyncInterval:    "5",
		envSyncEnabled:     "off",
		envSyncAllProfiles: "true",
		envDryRun:          "1",
		envKeepBaselines:   "yes",
		envHTTPMinInterval: "0",
		envAPITokens:       "abc:Owner, bad, def:staff",
		envCORSOrigins:     "http://a.test, http://b.test",
		envLogLevel:        "DEBUG",
	}))

	if settings.ActiveProfile != "downtown" {
		t.Fatalf("expected trimmed profile, got %q", settings.ActiveProfile)
	}
	if settings.Password != "pa ss" {
		t.Fatalf("expected password untouched, got %q", settings.Password)
	}
	if settings.SyncIntervalMinutes != 5 || settings.SyncEnabled || !settings.SyncAllProfiles || !settings.DryRun || !settings.KeepProfileBaselines {
		t.Fatalf("unexpected sync settings: %+v", settings)
	}
	if settings.HTTPMinInterval != 0 {
		t.Fatalf("expected zero request gap, got %s", settings.HTTPMinInterval)
	}
	if len(settings.APITokens) != 2 || settings.APITokens["abc"] != "owner" || settings.APITokens["def"] != "staff" {
		t.Fatalf("unexpected api tokens: %v", settings.APITokens)
	}
	if len(settings.CORSOrigins) != 2 || settings.CORSOrigins[1] != "http://b.test" {
		t.Fatalf("unexpected cors origins: %v", settings.CORSOrigins)
	}
	if settings.LogLevel != "debug" {
		t.Fatalf("expected lowercased log level, got %q", settings.LogLevel)
	}
	creds := settings.DefaultCredentials()
	if creds.Username != "ops@example.com" || creds.BaseURL != domain.DefaultBaseURL {
		t.Fatalf("unexpected default credentials: %+v", creds)
	}
}

func TestSettingsInvalidNumbersFallBack(t *testing.T) {
	settings := SettingsFrom(envMap(map[string]string{
		envSyncInterval:    "-3",
		envHTTPMinInterval: "abc",
		envSyncEnabled:     "maybe",
	}))
	if settings.SyncIntervalMinutes != defaultIntervalMinutes {
		t.Fatalf("expected fallback interval, got %d", settings.SyncIntervalMinutes)
	}
	if settings.HTTPMinInterval != defaultHTTPMinInterval {
		t.Fatalf("expected fallback request gap, got %s", settings.HTTPMinInterval)
	}
	if !settings.SyncEnabled {
		t.Fatal("expected unparseable bool to fall back to true")
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("MENUSYNC_TEST_DOTENV=loaded\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("MENUSYNC_TEST_DOTENV", "")
	if err := os.Unsetenv("MENUSYNC_TEST_DOTENV"); err != nil {
		t.Fatalf("unset env: %v", err)
	}
	LoadDotEnv(path)
	if got := os.Getenv("MENUSYNC_TEST_DOTENV"); got != "loaded" {
		t.Fatalf("expected dotenv value, got %q", got)
	}
}
