package otter

import (
	"context"

	"github.com/mekedron/otter-menusync/internal/domain"
)

// API describes the Otter operations used by the sync engine.
type API interface {
	// Authenticate logs in and stores a session token. It never returns an
	// error; failures are logged and reported as false.
	Authenticate(ctx context.Context) bool
	FetchMenuData(ctx context.Context, restaurantID string) (*domain.Menu, error)
	UpdateMenuItem(ctx context.Context, item domain.MenuItem) bool
	Close() error
}

// Authenticator obtains a session token for the given credentials.
type Authenticator interface {
	Login(ctx context.Context, creds domain.Credentials, loginURL string) (string, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, creds domain.Credentials, loginURL string) (string, error)

// Login calls f.
func (f AuthenticatorFunc) Login(ctx context.Context, creds domain.Credentials, loginURL string) (string, error) {
	return f(ctx, creds, loginURL)
}
