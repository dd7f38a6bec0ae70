package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mekedron/otter-menusync/internal/domain"
)

const (
	defaultLoginURL        = "https://app.tryotter.com/login"
	defaultDatabaseURL     = "sqlite://menusync.db"
	defaultIntervalMinutes = 30
	defaultHTTPMinInterval = 220 * time.Millisecond
	defaultLogLevel        = "info"
	defaultLogFormat       = "text"
	defaultServeAddr       = ":8080"
	defaultNATSSubjectRoot = "menusync.events"
	envActiveProfile       = "OTTER_PROFILE"
	envUsername            = "OTTER_USERNAME"
	envPassword            = "OTTER_PASSWORD"
	envBaseURL             = "OTTER_BASE_URL"
	envLoginURL            = "OTTER_LOGIN_URL"
	envHTTPMinInterval     = "OTTER_HTTP_MIN_INTERVAL_MS"
	envSyncInterval        = "MENU_SYNC_INTERVAL_MINUTES"
	envSyncEnabled         = "MENU_SYNC_ENABLED"
	envSyncAllProfiles     = "MENU_SYNC_ALL_PROFILES"
	envDryRun              = "MENU_SYNC_DRY_RUN"
	envKeepBaselines       = "MENU_SYNC_KEEP_PROFILE_BASELINES"
	envAPITokens           = "MENU_SYNC_API_TOKENS"
	envCORSOrigins         = "MENU_SYNC_CORS_ORIGINS"
	envServeAddr           = "MENU_SYNC_ADDR"
	envDatabaseURL         = "DATABASE_URL"
	envNATSURL             = "NATS_URL"
	envNATSSubject         = "NATS_SUBJECT"
	envLogLevel            = "LOG_LEVEL"
	envLogFormat           = "LOG_FORMAT"
	envLogFile             = "LOG_FILE"
)

// Settings holds process-wide options read from the environment.
type Settings struct {
	ActiveProfile        string
	Username             string
	Password             string
	BaseURL              string
	LoginURL             string
	HTTPMinInterval      time.Duration
	SyncIntervalMinutes  int
	SyncEnabled          bool
	SyncAllProfiles      bool
	DryRun               bool
	KeepProfileBaselines bool
	DatabaseURL          string
	NATSURL              string
	NATSSubject          string
	APITokens            map[string]string
	CORSOrigins          []string
	ServeAddr            string
	LogLevel             string
	LogFormat            string
	LogFile              string
}

// SyncInterval converts the configured minutes into a duration.
func (s Settings) SyncInterval() time.Duration {
	return time.Duration(s.SyncIntervalMinutes) * time.Minute
}

// DefaultCredentials returns the env-level credential fallback.
func (s Settings) DefaultCredentials() domain.Credentials {
	return domain.Credentials{
		Profile:  "default",
		Username: s.Username,
		Password: s.Password,
		BaseURL:  s.BaseURL,
	}
}

// LoadDotEnv loads variables from .env files; missing files are ignored.
func LoadDotEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// LoadSettings reads settings from the process environment.
func LoadSettings() Settings {
	return SettingsFrom(os.Getenv)
}

// SettingsFrom reads settings through the given lookup function.
func SettingsFrom(getenv func(string) string) Settings {
	get := func(key string) string {
		return strings.TrimSpace(getenv(key))
	}
	return Settings{
		ActiveProfile:        get(envActiveProfile),
		Username:             get(envUsername),
		Password:             getenv(envPassword),
		BaseURL:              stringOr(get(envBaseURL), domain.DefaultBaseURL),
		LoginURL:             stringOr(get(envLoginURL), defaultLoginURL),
		HTTPMinInterval:      millisOr(get(envHTTPMinInterval), defaultHTTPMinInterval),
		SyncIntervalMinutes:  positiveIntOr(get(envSyncInterval), defaultIntervalMinutes),
		SyncEnabled:          boolOr(get(envSyncEnabled), true),
		SyncAllProfiles:      boolOr(get(envSyncAllProfiles), false),
		DryRun:               boolOr(get(envDryRun), false),
		KeepProfileBaselines: boolOr(get(envKeepBaselines), false),
		DatabaseURL:          stringOr(get(envDatabaseURL), defaultDatabaseURL),
		NATSURL:              get(envNATSURL),
		NATSSubject:          stringOr(get(envNATSSubject), defaultNATSSubjectRoot),
		APITokens:            parseTokenRoles(get(envAPITokens)),
		CORSOrigins:          splitList(get(envCORSOrigins)),
		ServeAddr:            stringOr(get(envServeAddr), defaultServeAddr),
		LogLevel:             strings.ToLower(stringOr(get(envLogLevel), defaultLogLevel)),
		LogFormat:            strings.ToLower(stringOr(get(envLogFormat), defaultLogFormat)),
		LogFile:              get(envLogFile),
	}
}

func stringOr(raw, fallback string) string {
	if raw == "" {
		return fallback
	}
	return raw
}

func positiveIntOr(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func millisOr(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms < 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func boolOr(raw string, fallback bool) bool {
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(strings.ToLower(raw))
	if err != nil {
		switch strings.ToLower(raw) {
		case "yes", "on":
			return true
		case "no", "off":
			return false
		}
		return fallback
	}
	return value
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	out := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// parseTokenRoles parses "token:role,token2:role2" pairs.
func parseTokenRoles(raw string) map[string]string {
	out := map[string]string{}
	for _, pair := range splitList(raw) {
		token, role, ok := strings.Cut(pair, ":")
		token = strings.TrimSpace(token)
		role = strings.ToLower(strings.TrimSpace(role))
		if !ok || token == "" || role == "" {
			continue
		}
		out[token] = role
	}
	return out
}
