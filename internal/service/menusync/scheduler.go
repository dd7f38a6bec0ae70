package menusync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mekedron/otter-menusync/internal/domain"
	"github.com/mekedron/otter-menusync/internal/logging"
)

// ErrNoProfiles is returned when all-profiles mode finds nothing to sync.
var ErrNoProfiles = errors.New("no profiles configured for sync")

// ProfileLister enumerates configured profile names.
type ProfileLister interface {
	List(ctx context.Context) ([]string, error)
}

// ServiceFactory builds a sync service for a profile; "" means the active profile.
type ServiceFactory func(profileName string) *Service

// SchedulerConfig controls the periodic loop.
type SchedulerConfig struct {
	Interval     time.Duration
	Enabled      func() bool
	AllProfiles  bool
	RestaurantID string
	// KeepProfileBaselines reuses one service per profile so every profile
	// diffs against its own previous snapshot.
	KeepProfileBaselines bool
}

// Scheduler runs syncs on a fixed interval.
type Scheduler struct {
	cfg        SchedulerConfig
	profiles   ProfileLister
	newService ServiceFactory
	logger     *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error

	single     *Service
	names      []string
	perProfile map[string]*Service
}

// NewScheduler creates a scheduler. profiles may be nil in single-profile mode.
func NewScheduler(cfg SchedulerConfig, profiles ProfileLister, newService ServiceFactory, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Discard()
	}
	if cfg.Enabled == nil {
		cfg.Enabled = func() bool { return true }
	}
	return &Scheduler{
		cfg:        cfg,
		profiles:   profiles,
		newService: newService,
		logger:     logger,
		sleep:      sleepContext,
		perProfile: map[string]*Service{},
	}
}

// Run loops until Enabled reports false or ctx is cancelled. Sync failures are
// logged and never stop the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting menu sync scheduler",
		"interval", s.cfg.Interval,
		"all_profiles", s.cfg.AllProfiles,
	)
	if s.cfg.AllProfiles {
		if _, err := s.profileNames(ctx); err != nil {
			s.logger.Error("cannot start scheduler", "err", err)
			return err
		}
	}

	for s.cfg.Enabled() {
		if _, err := s.Tick(ctx); err != nil {
			s.logger.Error("scheduled sync failed", "err", err)
		}
		if err := s.sleep(ctx, s.cfg.Interval); err != nil {
			s.logger.Info("menu sync scheduler stopped")
			return nil
		}
	}
	s.logger.Info("menu sync disabled, scheduler stopped")
	return nil
}

// Tick runs exactly one iteration and returns the results in run order.
func (s *Scheduler) Tick(ctx context.Context) ([]domain.SyncResult, error) {
	if !s.cfg.AllProfiles {
		s.logger.Info("starting scheduled menu sync")
		if s.single == nil {
			s.single = s.newService("")
		}
		result, err := s.syncOne(ctx, s.single)
		if err != nil {
			return nil, err
		}
		return []domain.SyncResult{result}, nil
	}

	names, err := s.profileNames(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("starting scheduled sync", "profiles", len(names))
	results := make([]domain.SyncResult, 0, len(names))
	for _, name := range names {
		s.logger.Info("syncing profile", "profile", name)
		result, err := s.syncOne(ctx, s.serviceFor(name))
		if err != nil {
			s.logger.Error("unexpected error syncing profile", "profile", name, "err", err)
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *Scheduler) serviceFor(name string) *Service {
	if !s.cfg.KeepProfileBaselines {
		return s.newService(name)
	}
	service, ok := s.perProfile[name]
	if !ok {
		service = s.newService(name)
		s.perProfile[name] = service
	}
	return service
}

func (s *Scheduler) syncOne(ctx context.Context, service *Service) (result domain.SyncResult, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("sync panicked: %v", recovered)
		}
	}()
	if service == nil {
		return domain.SyncResult{}, errors.New("no sync service available")
	}
	result = service.SyncMenu(ctx, s.cfg.RestaurantID)
	if !result.Succeeded() {
		s.logger.Error("sync failed", "profile", result.Profile, "err", result.Error)
	}
	return result, nil
}

// profileNames lists profiles once and caches the enumeration.
func (s *Scheduler) profileNames(ctx context.Context) ([]string, error) {
	if s.names != nil {
		return s.names, nil
	}
	if s.profiles == nil {
		return nil, ErrNoProfiles
	}
	names, err := s.profiles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	if len(names) == 0 {
		return nil, ErrNoProfiles
	}
	s.names = names
	return names, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
