package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mekedron/otter-menusync/internal/domain"
	"github.com/mekedron/otter-menusync/internal/events"
	"github.com/mekedron/otter-menusync/internal/gateway/otter"
	"github.com/mekedron/otter-menusync/internal/service/menusync"
	"github.com/mekedron/otter-menusync/internal/storage"
)

type engineOptions struct {
	Profile      string
	RestaurantID string
	DryRun       bool
	Baseline     bool
	Trace        io.Writer
	Publishers   []events.Publisher
}

// engine holds the history store and event sinks shared by the services of one command.
type engine struct {
	deps      Dependencies
	opts      engineOptions
	logger    *slog.Logger
	history   HistoryStore
	reporters []menusync.Reporter
	closers   []io.Closer
}

func openEngine(ctx context.Context, deps Dependencies, opts engineOptions) (*engine, error) {
	e := &engine{deps: deps, opts: opts, logger: deps.logger()}

	if deps.OpenHistory != nil {
		history, err := deps.OpenHistory(ctx)
		if err != nil {
			return nil, fmt.Errorf("open sync history: %w", err)
		}
		e.history = history
		e.closers = append(e.closers, history)
		e.reporters = append(e.reporters, history)
	}

	publishers := append([]events.Publisher{}, opts.Publishers...)
	if url := strings.TrimSpace(deps.Settings.NATSURL); url != "" && deps.ConnectNATS != nil {
		publisher, err := deps.ConnectNATS(url, deps.Settings.NATSSubject)
		if err != nil {
			_ = e.Close()
			return nil, err
		}
		e.closers = append(e.closers, publisher)
		publishers = append(publishers, publisher)
	}
	if len(publishers) > 0 {
		e.reporters = append(e.reporters, events.NewFanout(publishers...))
	}
	return e, nil
}

func (e *engine) otterOptions() []otter.Option {
	opts := append([]otter.Option{}, e.deps.Otter...)
	opts = append(opts, otter.WithLogger(e.logger))
	if e.opts.Trace != nil {
		opts = append(opts, otter.WithVerboseOutput(e.opts.Trace))
	}
	return opts
}

// newService builds a service for profileName; "" selects the command's --profile.
func (e *engine) newService(ctx context.Context, profileName string) *menusync.Service {
	if profileName == "" {
		profileName = strings.TrimSpace(e.opts.Profile)
	}
	service := menusync.NewService(
		profileName,
		menusync.OtterClientFactory(e.deps.Profiles, profileName, e.otterOptions()...),
		menusync.WithDryRun(e.opts.DryRun || e.deps.Settings.DryRun),
		menusync.WithLogger(e.logger.With("profile", resolveProfileLabel(profileName))),
		menusync.WithReporters(e.reporters...),
	)
	if e.opts.Baseline {
		e.seedBaseline(ctx, service)
	}
	return service
}

func (e *engine) seedBaseline(ctx context.Context, service *menusync.Service) {
	if e.history == nil {
		return
	}
	menu, err := e.history.LatestSnapshot(ctx, service.Profile(), e.opts.RestaurantID)
	switch {
	case err == nil:
		service.SetPrevious(menu)
		e.logger.Info("loaded stored menu baseline", "profile", service.Profile(), "menu_id", menu.ID)
	case errors.Is(err, storage.ErrSnapshotNotFound):
	default:
		e.logger.Warn("cannot load stored menu baseline", "profile", service.Profile(), "err", err)
	}
}

func (e *engine) scheduler(ctx context.Context, allProfiles bool, single *menusync.Service) *menusync.Scheduler {
	settings := e.deps.Settings
	return menusync.NewScheduler(
		menusync.SchedulerConfig{
			Interval:             settings.SyncInterval(),
			Enabled:              func() bool { return settings.SyncEnabled },
			AllProfiles:          allProfiles,
			RestaurantID:         e.opts.RestaurantID,
			KeepProfileBaselines: settings.KeepProfileBaselines,
		},
		e.deps.Profiles,
		func(profileName string) *menusync.Service {
			if profileName == "" && single != nil {
				return single
			}
			return e.newService(ctx, profileName)
		},
		e.logger,
	)
}

// Close releases the history store and event connections.
func (e *engine) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func anyFailed(results []domain.SyncResult) bool {
	for _, result := range results {
		if !result.Succeeded() {
			return true
		}
	}
	return false
}
