package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mekedron/otter-menusync/internal/cli"
	"github.com/mekedron/otter-menusync/internal/config"
	"github.com/mekedron/otter-menusync/internal/events"
	"github.com/mekedron/otter-menusync/internal/gateway/otter"
	"github.com/mekedron/otter-menusync/internal/logging"
	"github.com/mekedron/otter-menusync/internal/service/profile"
	"github.com/mekedron/otter-menusync/internal/storage"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	config.LoadDotEnv()
	settings := config.LoadSettings()

	logger, closeLog, err := logging.New(settings, os.Stderr)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer closeLog.Close()

	store, err := config.NewStore()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		return 1
	}

	deps := cli.Dependencies{
		Settings: settings,
		Config:   store,
		Profiles: profile.NewResolver(store, settings),
		Otter: []otter.Option{
			otter.WithEndpoints(otter.Endpoints{LoginURL: settings.LoginURL}),
			otter.WithRequestMinInterval(settings.HTTPMinInterval),
		},
		OpenHistory: func(ctx context.Context) (cli.HistoryStore, error) {
			history, err := storage.Open(ctx, settings.DatabaseURL, logger)
			if err != nil {
				return nil, err
			}
			return history, nil
		},
		ConnectNATS: func(url, subjectRoot string) (cli.EventPublisher, error) {
			publisher, err := events.NewNATSPublisher(url, subjectRoot)
			if err != nil {
				return nil, err
			}
			return publisher, nil
		},
		Logger:  logger,
		Version: version,
	}

	return cli.Execute(context.Background(), os.Args[1:], deps, os.Stdout, os.Stderr)
}
