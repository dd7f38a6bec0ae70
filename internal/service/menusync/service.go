// Package menusync fetches Otter menus, diffs them against the last snapshot
// and reports each run.
package menusync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mekedron/otter-menusync/internal/domain"
	"github.com/mekedron/otter-menusync/internal/gateway/otter"
	"github.com/mekedron/otter-menusync/internal/logging"
	"github.com/mekedron/otter-menusync/internal/retry"
)

const (
	authFailedStatusMessage = "Authentication failed"
	authFailedResultMessage = "Failed to authenticate with Otter"
	fetchFailedMessage      = "Failed to fetch menu data"
)

// ClientFactory opens a fresh Otter session for one sync run.
type ClientFactory func(ctx context.Context) (otter.API, error)

// CredentialSource resolves credentials for a profile name.
type CredentialSource interface {
	Credentials(ctx context.Context, profileName string) (domain.Credentials, error)
}

// Reporter receives every finished sync result.
type Reporter interface {
	Report(ctx context.Context, result domain.SyncResult) error
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, result domain.SyncResult) error

// Report calls f.
func (f ReporterFunc) Report(ctx context.Context, result domain.SyncResult) error {
	return f(ctx, result)
}

// OtterClientFactory resolves credentials for profileName on every run and
// builds an Otter client from them.
func OtterClientFactory(source CredentialSource, profileName string, opts ...otter.Option) ClientFactory {
	return func(ctx context.Context) (otter.API, error) {
		creds, err := source.Credentials(ctx, profileName)
		if err != nil {
			return nil, err
		}
		return otter.NewClient(creds, opts...), nil
	}
}

// Service runs syncs for one profile and keeps the last accepted snapshot.
type Service struct {
	profile   string
	newClient ClientFactory
	policy    retry.Policy
	dryRun    bool
	logger    *slog.Logger
	reporters []Reporter
	newRunID  func() string

	runM      sync.Mutex
	snapshotM sync.RWMutex
	previous  *domain.Menu
}

// Option applies Service options.
type Option func(*Service)

// WithDryRun disables the write path to Otter.
func WithDryRun(dryRun bool) Option {
	return func(s *Service) {
		s.dryRun = dryRun
	}
}

// WithRetryPolicy replaces the fetch retry policy.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(s *Service) {
		s.policy = policy
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithReporters appends result reporters.
func WithReporters(reporters ...Reporter) Option {
	return func(s *Service) {
		for _, reporter := range reporters {
			if reporter != nil {
				s.reporters = append(s.reporters, reporter)
			}
		}
	}
}

// WithRunIDGenerator replaces uuid run ids.
func WithRunIDGenerator(newRunID func() string) Option {
	return func(s *Service) {
		if newRunID != nil {
			s.newRunID = newRunID
		}
	}
}

// NewService creates a sync service for profileName. An empty name means the
// active or default profile.
func NewService(profileName string, newClient ClientFactory, opts ...Option) *Service {
	s := &Service{
		profile:   profileName,
		newClient: newClient,
		policy:    retry.Default(),
		logger:    logging.Discard(),
		newRunID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.policy.Logger == nil {
		s.policy.Logger = s.logger
	}
	return s
}

// Profile returns the profile this service syncs.
func (s *Service) Profile() string {
	return s.profile
}

// DryRun reports whether writes to Otter are disabled.
func (s *Service) DryRun() bool {
	return s.dryRun
}

// Previous returns the last accepted snapshot, or nil before the first successful sync.
func (s *Service) Previous() *domain.Menu {
	s.snapshotM.RLock()
	defer s.snapshotM.RUnlock()
	return s.previous
}

// SetPrevious replaces the baseline snapshot.
func (s *Service) SetPrevious(menu *domain.Menu) {
	s.snapshotM.Lock()
	s.previous = menu
	s.snapshotM.Unlock()
}

// SyncMenu runs one sync. It never returns an error; failures are folded into
// an error result. Concurrent calls are serialized.
func (s *Service) SyncMenu(ctx context.Context, restaurantID string) domain.SyncResult {
	s.runM.Lock()
	defer s.runM.Unlock()

	status := domain.NewSyncStatus()
	status.Start()
	result := domain.SyncResult{
		RunID:        s.newRunID(),
		Profile:      s.profile,
		RestaurantID: restaurantID,
		DryRun:       s.dryRun,
		SyncStatus:   status,
	}

	logger := s.logger.With("run_id", result.RunID, "profile", s.profile)
	menu, resultErr, err := s.runGuarded(ctx, logger, restaurantID, status)
	switch {
	case err != nil:
		logger.Error("menu sync failed", "err", err)
		status.AddError(err.Error())
		result.Status = domain.ResultError
		result.Error = err.Error()
	case resultErr != "":
		result.Status = domain.ResultError
		result.Error = resultErr
	default:
		result.Status = domain.ResultSuccess
		result.Menu = menu
	}
	result.Timestamp = time.Now().UTC()

	s.report(ctx, logger, result)
	return result
}

// runGuarded converts a panic in the sync sequence into an error.
func (s *Service) runGuarded(
	ctx context.Context,
	logger *slog.Logger,
	restaurantID string,
	status *domain.SyncStatus,
) (menu *domain.Menu, resultErr string, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			menu = nil
			resultErr = ""
			err = fmt.Errorf("%v", recovered)
		}
	}()
	return s.run(ctx, logger, restaurantID, status)
}

func (s *Service) run(
	ctx context.Context,
	logger *slog.Logger,
	restaurantID string,
	status *domain.SyncStatus,
) (*domain.Menu, string, error) {
	if s.newClient == nil {
		return nil, "", errors.New("no otter client factory configured")
	}
	client, err := s.newClient(ctx)
	if err != nil {
		return nil, "", err
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("close otter client", "err", closeErr)
		}
	}()

	if !client.Authenticate(ctx) {
		status.AddError(authFailedStatusMessage)
		return nil, authFailedResultMessage, nil
	}

	logger.Info("fetching menu data from otter", "restaurant_id", restaurantID)
	newMenu, err := retry.Do(ctx, s.policy, "fetch menu data", func(ctx context.Context) (*domain.Menu, error) {
		return client.FetchMenuData(ctx, restaurantID)
	})
	if err != nil {
		return nil, "", err
	}
	if newMenu == nil {
		status.AddError(fetchFailedMessage)
		return nil, fetchFailedMessage, nil
	}

	if previous := s.Previous(); previous != nil {
		s.applyChanges(ctx, logger, client, Diff(previous, newMenu), status)
	} else {
		status.ItemsCreated = newMenu.TotalItems()
	}

	s.SetPrevious(newMenu)
	status.ItemsProcessed = newMenu.TotalItems()
	status.MarkCompleted()

	logger.Info("menu sync completed",
		"processed", status.ItemsProcessed,
		"created", status.ItemsCreated,
		"updated", status.ItemsUpdated,
		"deleted", status.ItemsDeleted,
	)
	return newMenu, "", nil
}

func (s *Service) applyChanges(
	ctx context.Context,
	logger *slog.Logger,
	client otter.API,
	diff domain.MenuDiff,
	status *domain.SyncStatus,
) {
	if !diff.HasChanges() {
		logger.Info("no menu changes detected")
		return
	}

	status.ItemsCreated = len(diff.AddedItems)
	status.ItemsUpdated = len(diff.UpdatedItems)
	status.ItemsDeleted = len(diff.DeletedItems)

	if len(diff.AddedItems) > 0 {
		logger.Info("added menu items", "count", len(diff.AddedItems))
	}
	if len(diff.UpdatedItems) > 0 {
		logger.Info("updated menu items", "count", len(diff.UpdatedItems))
	}
	if len(diff.DeletedItems) > 0 {
		logger.Info("deleted menu items", "count", len(diff.DeletedItems), "ids", diff.DeletedItems)
	}

	if s.dryRun {
		logger.Info("dry run mode, no changes applied")
		return
	}
	for _, item := range diff.UpdatedItems {
		if !client.UpdateMenuItem(ctx, item) {
			logger.Warn("menu item write failed", "item_id", item.ID)
		}
	}
}

func (s *Service) report(ctx context.Context, logger *slog.Logger, result domain.SyncResult) {
	for _, reporter := range s.reporters {
		if err := reporter.Report(ctx, result); err != nil {
			logger.Warn("sync result reporter failed", "err", err)
		}
	}
}
