package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mekedron/otter-menusync/internal/domain"
)

const (
	defaultDirName  = ".menusync"
	defaultFileName = "profiles.json"
	envConfigPath   = "MENUSYNC_CONFIG_PATH"
)

var (
	// ErrConfigNotFound is returned when the profile file does not exist.
	ErrConfigNotFound = errors.New("profile file not found")
	// ErrInvalidConfig is returned when the profile payload is malformed.
	ErrInvalidConfig = errors.New("profile file is invalid")
)

// Store loads and writes the profile file.
type Store struct {
	path string
}

// NewStore creates a store using env overrides or defaults.
func NewStore() (*Store, error) {
	if cfg := os.Getenv(envConfigPath); cfg != "" {
		return &Store{path: cfg}, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	return &Store{path: filepath.Join(home, defaultDirName, defaultFileName)}, nil
}

// NewStoreAt creates a store bound to an explicit path.
func NewStoreAt(path string) *Store {
	return &Store{path: path}
}

// Path returns current profile file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads and validates the profile file.
func (s *Store) Load(_ context.Context) (domain.Config, error) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Config{}, ErrConfigNotFound
		}
		return domain.Config{}, fmt.Errorf("read profiles: %w", err)
	}

	var cfg domain.Config
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return domain.Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := validate(cfg); err != nil {
		return domain.Config{}, err
	}
	return cfg, nil
}

// Save writes the profile file with owner-only permissions.
func (s *Store) Save(_ context.Context, cfg domain.Config) error {
	if err := validate(cfg); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create profile directory: %w", err)
	}
	payload, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal profiles: %w", err)
	}
	if err := os.WriteFile(s.path, payload, 0o600); err != nil {
		return fmt.Errorf("write profiles: %w", err)
	}
	return nil
}

func validate(cfg domain.Config) error {
	seen := make(map[string]struct{}, len(cfg.Profiles))
	for _, profile := range cfg.Profiles {
		name := strings.ToLower(strings.TrimSpace(profile.Name))
		if name == "" {
			return fmt.Errorf("%w: profile name is empty", ErrInvalidConfig)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("%w: duplicate profile %q", ErrInvalidConfig, profile.Name)
		}
		seen[name] = struct{}{}
	}
	return nil
}
