package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mekedron/otter-menusync/internal/domain"
)

func TestNewStoreUsesEnvConfigPath(t *testing.T) {
	t.Setenv(envConfigPath, "/tmp/custom-menusync-profiles.json")
	store, err := NewStore()
	if err != nil {
		t.Fatalf("unexpected error creating store: %v", err)
	}
	if store.Path() != "/tmp/custom-menusync-profiles.json" {
		t.Fatalf("expected env path, got %q", store.Path())
	}
}

func TestStoreSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "profiles.json")
	store := NewStoreAt(path)

	input := domain.Config{
		Profiles: []domain.Profile{
			{Name: "downtown", IsDefault: true, Username: "ops@example.com", Password: "secret", RestaurantIDs: []string{"r1"}},
			{Name: "airport", Username: "air@example.com", Password: "secret2", BaseURL: "https://otter.test"},
		},
	}
	if err := store.Save(context.Background(), input); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat profile file: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 permissions, got %v", info.Mode().Perm())
	}

	output, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if len(output.Profiles) != 2 || output.Profiles[0].Name != "downtown" || output.Profiles[1].BaseURL != "https://otter.test" {
		t.Fatalf("unexpected roundtrip config: %+v", output)
	}
	if output.Profiles[0].Password != "secret" {
		t.Fatalf("expected password to persist, got %q", output.Profiles[0].Password)
	}
}

func TestStoreLoadMissingConfig(t *testing.T) {
	store := NewStoreAt(filepath.Join(t.TempDir(), "missing.json"))
	_, err := store.Load(context.Background())
	if !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("expected ErrConfigNotFound, got %v", err)
	}
}

func TestStoreLoadInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatalf("write invalid config: %v", err)
	}
	store := NewStoreAt(path)
	_, err := store.Load(context.Background())
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestStoreSaveRejectsDuplicateProfiles(t *testing.T) {
	store := NewStoreAt(filepath.Join(t.TempDir(), "profiles.json"))
	err := store.Save(context.Background(), domain.Config{Profiles: []domain.Profile{{Name: "a"}, {Name: "A"}}})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestStoreSaveAllowsEmptyProfileList(t *testing.T) {
	store := NewStoreAt(filepath.Join(t.TempDir(), "profiles.json"))
	if err := store.Save(context.Background(), domain.Config{}); err != nil {
		t.Fatalf("expected empty profile list to be saved, got %v", err)
	}
}
