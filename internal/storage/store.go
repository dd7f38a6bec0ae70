// Package storage persists sync run history and the last accepted menu
// snapshot per profile.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/mekedron/otter-menusync/internal/domain"
	"github.com/mekedron/otter-menusync/internal/logging"
)

//go:embed schema.sql
var schemaFS embed.FS

// ErrSnapshotNotFound is returned when no snapshot was stored for a profile.
var ErrSnapshotNotFound = errors.New("menu snapshot not found")

const defaultRecentLimit = 20

// RunRecord is one stored sync run.
type RunRecord struct {
	RunID          string              `json:"run_id" yaml:"run_id"`
	Profile        string              `json:"profile" yaml:"profile"`
	RestaurantID   string              `json:"restaurant_id,omitempty" yaml:"restaurant_id,omitempty"`
	DryRun         bool                `json:"dry_run" yaml:"dry_run"`
	Status         domain.ResultStatus `json:"status" yaml:"status"`
	SyncState      domain.SyncState    `json:"sync_state" yaml:"sync_state"`
	ItemsProcessed int                 `json:"items_processed" yaml:"items_processed"`
	ItemsCreated   int                 `json:"items_created" yaml:"items_created"`
	ItemsUpdated   int                 `json:"items_updated" yaml:"items_updated"`
	ItemsDeleted   int                 `json:"items_deleted" yaml:"items_deleted"`
	Errors         []string            `json:"errors" yaml:"errors"`
	Error          string              `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt      time.Time           `json:"started_at" yaml:"started_at"`
	CompletedAt    *time.Time          `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	RecordedAt     time.Time           `json:"recorded_at" yaml:"recorded_at"`
}

// HistoryStore records sync results in SQLite or PostgreSQL.
type HistoryStore struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// Open connects to dsn and applies the schema. sqlite://path and
// postgres:// URLs are supported.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*HistoryStore, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	driver, source, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}
	if driver == driverSQLite {
		if err := ensureParentDir(source); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	store := &HistoryStore{db: db, driver: driver, logger: logger}

	if driver == driverSQLite {
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000"} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("error applying %q: %w", pragma, err)
			}
		}
	} else {
		db.SetMaxOpenConns(10)
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("error connecting to database: %w", err)
		}
	}

	if err := store.initializeSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Debug("history store ready", "driver", driver)
	return store, nil
}

func ensureParentDir(source string) error {
	if source == "" || strings.HasPrefix(source, ":memory:") || strings.HasPrefix(source, "file:") {
		return nil
	}
	dir := filepath.Dir(source)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}
	return nil
}

func (s *HistoryStore) initializeSchema(ctx context.Context) error {
	schemaBytes, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("error reading schema file: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, string(schemaBytes)); err != nil {
		return fmt.Errorf("error executing schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// Report records result and, for successful runs, stores the fetched menu as
// the profile snapshot.
func (s *HistoryStore) Report(ctx context.Context, result domain.SyncResult) error {
	if err := s.Record(ctx, result); err != nil {
		return err
	}
	if result.Succeeded() && result.Menu != nil {
		return s.SaveSnapshot(ctx, result.Profile, result.RestaurantID, result.RunID, result.Menu)
	}
	return nil
}

// Record inserts one sync result.
func (s *HistoryStore) Record(ctx context.Context, result domain.SyncResult) error {
	status := result.SyncStatus
	if status == nil {
		status = domain.NewSyncStatus()
	}
	errorsJSON, err := json.Marshal(nonNil(status.Errors))
	if err != nil {
		return fmt.Errorf("encode sync errors: %w", err)
	}
	completedAt := ""
	if status.CompletedAt != nil {
		completedAt = formatTime(*status.CompletedAt)
	}
	recordedAt := result.Timestamp
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO sync_runs (
			run_id, profile, restaurant_id, dry_run, status, sync_state,
			items_processed, items_created, items_updated, items_deleted,
			errors, error, started_at, completed_at, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, rebind(s.driver, query),
		result.RunID, result.Profile, result.RestaurantID, boolToInt(result.DryRun),
		string(result.Status), string(status.Status),
		status.ItemsProcessed, status.ItemsCreated, status.ItemsUpdated, status.ItemsDeleted,
		string(errorsJSON), result.Error,
		formatTime(status.StartedAt), completedAt, formatTime(recordedAt),
	)
	if err != nil {
		return fmt.Errorf("insert sync run: %w", err)
	}
	return nil
}

// Recent lists the latest runs, newest first. An empty profile lists all profiles.
func (s *HistoryStore) Recent(ctx context.Context, profile string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	query := `
		SELECT run_id, profile, restaurant_id, dry_run, status, sync_state,
			items_processed, items_created, items_updated, items_deleted,
			errors, error, started_at, completed_at, recorded_at
		FROM sync_runs
	`
	args := []any{}
	if profile != "" {
		query += " WHERE profile = ?"
		args = append(args, profile)
	}
	query += " ORDER BY recorded_at DESC, run_id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, rebind(s.driver, query), args...)
	if err != nil {
		return nil, fmt.Errorf("query sync runs: %w", err)
	}
	defer rows.Close()

	records := []RunRecord{}
	for rows.Next() {
		var (
			record                             RunRecord
			dryRun                             int
			status, state, errorsJSON          string
			startedAt, completedAt, recordedAt string
		)
		if err := rows.Scan(
			&record.RunID, &record.Profile, &record.RestaurantID, &dryRun, &status, &state,
			&record.ItemsProcessed, &record.ItemsCreated, &record.ItemsUpdated, &record.ItemsDeleted,
			&errorsJSON, &record.Error, &startedAt, &completedAt, &recordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan sync run: %w", err)
		}
		record.DryRun = dryRun != 0
		record.Status = domain.ResultStatus(status)
		record.SyncState = domain.SyncState(state)
		if err := json.Unmarshal([]byte(errorsJSON), &record.Errors); err != nil {
			s.logger.Warn("decode stored sync errors", "run_id", record.RunID, "err", err)
		}
		record.Errors = nonNil(record.Errors)
		record.StartedAt = parseTime(startedAt)
		record.RecordedAt = parseTime(recordedAt)
		if completedAt != "" {
			completed := parseTime(completedAt)
			record.CompletedAt = &completed
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sync runs: %w", err)
	}
	return records, nil
}

// SaveSnapshot upserts the accepted menu for profile and restaurantID.
func (s *HistoryStore) SaveSnapshot(ctx context.Context, profile, restaurantID, runID string, menu *domain.Menu) error {
	raw, err := json.Marshal(menu)
	if err != nil {
		return fmt.Errorf("encode menu snapshot: %w", err)
	}
	query := `
		INSERT INTO menu_snapshots (profile, restaurant_id, menu_id, run_id, menu, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (profile, restaurant_id) DO UPDATE SET
			menu_id = excluded.menu_id,
			run_id = excluded.run_id,
			menu = excluded.menu,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, rebind(s.driver, query),
		profile, restaurantID, menu.ID, runID, string(raw), formatTime(time.Now().UTC()),
	)
	if err != nil {
		return fmt.Errorf("upsert menu snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the stored menu for profile and restaurantID.
func (s *HistoryStore) LatestSnapshot(ctx context.Context, profile, restaurantID string) (*domain.Menu, error) {
	query := `SELECT menu FROM menu_snapshots WHERE profile = ? AND restaurant_id = ?`
	var raw string
	err := s.db.QueryRowContext(ctx, rebind(s.driver, query), profile, restaurantID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query menu snapshot: %w", err)
	}
	var menu domain.Menu
	if err := json.Unmarshal([]byte(raw), &menu); err != nil {
		return nil, fmt.Errorf("decode menu snapshot: %w", err)
	}
	return &menu, nil
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
