package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"

	"github.com/mekedron/otter-menusync/internal/config"
	"github.com/mekedron/otter-menusync/internal/domain"
	"github.com/mekedron/otter-menusync/internal/events"
	"github.com/mekedron/otter-menusync/internal/gateway/otter"
	"github.com/mekedron/otter-menusync/internal/logging"
	"github.com/mekedron/otter-menusync/internal/storage"
)

var unknownCommandPattern = regexp.MustCompile(`unknown command "([^"]+)"`)

// ProfileResolver resolves profile selections and credentials.
type ProfileResolver interface {
	Find(ctx context.Context, profileName string) (domain.Profile, error)
	List(ctx context.Context) ([]string, error)
	Credentials(ctx context.Context, profileName string) (domain.Credentials, error)
}

// ConfigManager stores profile config payloads.
type ConfigManager interface {
	Path() string
	Load(ctx context.Context) (domain.Config, error)
	Save(ctx context.Context, cfg domain.Config) error
}

// HistoryStore records sync runs and the snapshots they accepted.
type HistoryStore interface {
	Report(ctx context.Context, result domain.SyncResult) error
	Recent(ctx context.Context, profile string, limit int) ([]storage.RunRecord, error)
	LatestSnapshot(ctx context.Context, profile, restaurantID string) (*domain.Menu, error)
	Close() error
}

// HistoryOpener opens the run history store.
type HistoryOpener func(ctx context.Context) (HistoryStore, error)

// EventPublisher is a closable sync event sink.
type EventPublisher interface {
	events.Publisher
	Close() error
}

// NATSConnector connects an event publisher to a NATS server.
type NATSConnector func(url, subjectRoot string) (EventPublisher, error)

// Dependencies wires runtime services.
type Dependencies struct {
	Settings    config.Settings
	Config      ConfigManager
	Profiles    ProfileResolver
	Otter       []otter.Option
	OpenHistory HistoryOpener
	ConnectNATS NATSConnector
	Logger      *slog.Logger
	Version     string
}

func (d Dependencies) logger() *slog.Logger {
	if d.Logger == nil {
		return logging.Discard()
	}
	return d.Logger
}

var errVersionShown = fmt.Errorf("version shown")

// Execute runs the CLI with injected dependencies.
func Execute(ctx context.Context, args []string, deps Dependencies, stdout io.Writer, stderr io.Writer) int {
	cmd := NewRootCommand(deps)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil || errors.Is(err, errVersionShown) {
		return 0
	}
	var controlled *exitError
	if errors.As(err, &controlled) {
		return controlled.code
	}

	if matches := unknownCommandPattern.FindStringSubmatch(err.Error()); len(matches) > 1 {
		_, _ = fmt.Fprintf(stderr, "No such command '%s'\n", matches[1])
		return 2
	}

	if msg := err.Error(); msg != "" {
		_, _ = fmt.Fprintln(stderr, msg)
	}
	return 1
}
