package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mekedron/otter-menusync/internal/config"
	"github.com/mekedron/otter-menusync/internal/domain"
)

var (
	// ErrConfiguration indicates no usable credentials could be resolved.
	ErrConfiguration = errors.New("configuration error")
	// ErrDefaultProfileNotFound indicates config has no default profile.
	ErrDefaultProfileNotFound = errors.New("no default profile found")
	// ErrProfileNotFound indicates requested profile does not exist.
	ErrProfileNotFound = errors.New("profile not found")
)

// Loader provides config payloads.
type Loader interface {
	Load(ctx context.Context) (domain.Config, error)
}

// Resolver resolves profile names to Otter credentials.
type Resolver struct {
	loader   Loader
	settings config.Settings
}

// NewResolver creates a profile resolver.
func NewResolver(loader Loader, settings config.Settings) *Resolver {
	return &Resolver{loader: loader, settings: settings}
}

// Find resolves explicit profile names or the default profile.
func (r *Resolver) Find(ctx context.Context, profileName string) (domain.Profile, error) {
	profiles, err := r.profiles(ctx)
	if err != nil {
		return domain.Profile{}, err
	}
	if strings.TrimSpace(profileName) == "" {
		for _, profile := range profiles {
			if profile.IsDefault {
				return profile, nil
			}
		}
		for _, profile := range profiles {
			if strings.EqualFold(profile.Name, "default") {
				return profile, nil
			}
		}
		if len(profiles) == 1 {
			return profiles[0], nil
		}
		return domain.Profile{}, ErrDefaultProfileNotFound
	}

	want := strings.ToLower(strings.TrimSpace(profileName))
	for _, profile := range profiles {
		if strings.ToLower(profile.Name) == want {
			return profile, nil
		}
	}
	available := make([]string, 0, len(profiles))
	for _, profile := range profiles {
		available = append(available, profile.Name)
	}
	return domain.Profile{}, fmt.Errorf("%w: %s (available: %s)", ErrProfileNotFound, want, strings.Join(available, ", "))
}

// List returns configured profile names in file order.
func (r *Resolver) List(ctx context.Context) ([]string, error) {
	profiles, err := r.profiles(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(profiles))
	for _, profile := range profiles {
		names = append(names, profile.Name)
	}
	return names, nil
}

// Credentials resolves a (username, password, base URL) triple.
//
// A named profile must exist. Without a name the active profile from settings
// is tried first, then the environment-level default credentials.
func (r *Resolver) Credentials(ctx context.Context, profileName string) (domain.Credentials, error) {
	if name := strings.TrimSpace(profileName); name != "" {
		profile, err := r.Find(ctx, name)
		if err != nil {
			return domain.Credentials{}, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		return profile.Credentials(), nil
	}

	if active := r.settings.ActiveProfile; active != "" {
		if profile, err := r.Find(ctx, active); err == nil {
			return profile.Credentials(), nil
		}
	}

	creds := r.settings.DefaultCredentials()
	if strings.TrimSpace(creds.Username) == "" || creds.Password == "" {
		return domain.Credentials{}, fmt.Errorf("%w: no Otter credentials found; set OTTER_PROFILE or OTTER_USERNAME/OTTER_PASSWORD", ErrConfiguration)
	}
	if creds.BaseURL == "" {
		creds.BaseURL = domain.DefaultBaseURL
	}
	return creds, nil
}

// profiles loads the profile file. A missing file with env credentials
// yields a single synthetic "default" profile.
func (r *Resolver) profiles(ctx context.Context) ([]domain.Profile, error) {
	if r.loader != nil {
		cfg, err := r.loader.Load(ctx)
		if err == nil {
			return cfg.Profiles, nil
		}
		if !errors.Is(err, config.ErrConfigNotFound) {
			return nil, err
		}
	}
	if strings.TrimSpace(r.settings.Username) != "" && r.settings.Password != "" {
		return []domain.Profile{{
			Name:      "default",
			IsDefault: true,
			Username:  r.settings.Username,
			Password:  r.settings.Password,
			BaseURL:   r.settings.BaseURL,
		}}, nil
	}
	return nil, nil
}
