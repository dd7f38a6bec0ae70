package cli

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mekedron/otter-menusync/internal/domain"
)

type syncEnvelope struct {
	Data struct {
		Results []domain.SyncResult `json:"results"`
	} `json:"data"`
	Error map[string]any `json:"error"`
}

func decodeSync(t *testing.T, raw string) syncEnvelope {
	t.Helper()
	var env syncEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatalf("decode sync output %q: %v", raw, err)
	}
	return env
}

func TestSyncFirstRunCountsEveryItemAsCreated(t *testing.T) {
	env := newTestEnv(t, downtown())

	code, stdout, stderr := env.run(t, "sync", "--profile", "downtown", "--format", "json")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d stdout=%s stderr=%s", code, stdout, stderr)
	}
	results := decodeSync(t, stdout).Data.Results
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
	result := results[0]
	if result.Status != domain.ResultSuccess || result.Profile != "downtown" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.SyncStatus.ItemsCreated != 2 || result.SyncStatus.ItemsProcessed != 2 {
		t.Fatalf("expected 2 created/processed, got %+v", result.SyncStatus)
	}
	if result.Menu != nil {
		t.Fatal("expected menu payload to be omitted from sync output")
	}

	runs := env.runs(t)
	if len(runs) != 1 || runs[0].RunID != result.RunID {
		t.Fatalf("expected run to be recorded, got %+v", runs)
	}
}

func TestSyncBaselineDiffsAgainstStoredSnapshot(t *testing.T) {
	env := newTestEnv(t, downtown())
	if code, stdout, _ := env.run(t, "sync", "--profile", "downtown"); code != 0 {
		t.Fatalf("first sync failed: %s", stdout)
	}

	env.otter.setMenu(strings.Replace(burgerMenu, `"12.50"`, `"13.00"`, 1))
	code, stdout, _ := env.run(t, "sync", "--profile", "downtown", "--baseline", "--format", "json")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stdout)
	}
	status := decodeSync(t, stdout).Data.Results[0].SyncStatus
	if status.ItemsUpdated != 1 || status.ItemsCreated != 0 || status.ItemsDeleted != 0 {
		t.Fatalf("expected one update, got %+v", status)
	}
	if env.otter.putCount() != 1 {
		t.Fatalf("expected one item write, got %d", env.otter.putCount())
	}
}

func TestSyncDryRunSkipsWrites(t *testing.T) {
	env := newTestEnv(t, downtown())
	if code, _, _ := env.run(t, "sync", "--profile", "downtown"); code != 0 {
		t.Fatal("first sync failed")
	}

	env.otter.setMenu(strings.Replace(burgerMenu, `"Salad"`, `"Garden Salad"`, 1))
	code, stdout, stderr := env.run(t, "sync", "--profile", "downtown", "--baseline", "--dry-run")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stdout)
	}
	if !strings.Contains(stderr, "dry-run mode") {
		t.Fatalf("expected dry-run notice, got %q", stderr)
	}
	if !strings.Contains(stdout, "(dry run)") || !strings.Contains(stdout, "Items Updated") {
		t.Fatalf("unexpected table output %q", stdout)
	}
	if env.otter.putCount() != 0 {
		t.Fatalf("expected no writes in dry-run, got %d", env.otter.putCount())
	}
}

func TestSyncAuthenticationFailure(t *testing.T) {
	env := newTestEnv(t, downtown())
	env.otter.loginErr = errLoginRejected

	code, stdout, _ := env.run(t, "sync", "--profile", "downtown")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stdout, "Menu sync failed: Failed to authenticate with Otter") {
		t.Fatalf("unexpected output %q", stdout)
	}
	if !strings.Contains(stdout, "Authentication failed") {
		t.Fatalf("expected status error list, got %q", stdout)
	}
	if env.otter.fetches != 0 {
		t.Fatalf("expected no fetch after failed login, got %d", env.otter.fetches)
	}
	runs := env.runs(t)
	if len(runs) != 1 || runs[0].Status != domain.ResultError {
		t.Fatalf("expected failed run to be recorded, got %+v", runs)
	}
}

func TestSyncAllProfiles(t *testing.T) {
	env := newTestEnv(t, downtown(), uptown())

	code, stdout, _ := env.run(t, "sync", "--all-profiles", "--format", "json")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stdout)
	}
	results := decodeSync(t, stdout).Data.Results
	if len(results) != 2 || results[0].Profile != "downtown" || results[1].Profile != "uptown" {
		t.Fatalf("unexpected results %+v", results)
	}

	code, stdout, _ = env.run(t, "sync", "--all-profiles")
	if code != 0 || !strings.Contains(stdout, "Synced 2 profiles") || !strings.Contains(stdout, "Profile: uptown") {
		t.Fatalf("unexpected table output %d %q", code, stdout)
	}
}

func TestSyncAllProfilesWithoutProfiles(t *testing.T) {
	env := newTestEnv(t)

	code, stdout, _ := env.run(t, "sync", "--all-profiles", "--format", "json")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if got := decodeSync(t, stdout).Error["message"]; got != "No profiles configured" {
		t.Fatalf("unexpected error payload %q", stdout)
	}
}

func TestStartReturnsWhenSyncDisabled(t *testing.T) {
	env := newTestEnv(t, downtown())
	env.deps.Settings.SyncEnabled = false

	code, stdout, _ := env.run(t, "start")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.Contains(stdout, "Sync interval: 30 minutes") || !strings.Contains(stdout, "Menu sync service stopped") {
		t.Fatalf("unexpected output %q", stdout)
	}
	if env.otter.fetches != 0 {
		t.Fatalf("expected no sync while disabled, got %d fetches", env.otter.fetches)
	}
}

func TestServeShutsDownOnSignal(t *testing.T) {
	stopped := make(chan context.CancelFunc, 1)
	orig := signalContext
	t.Cleanup(func() { signalContext = orig })
	signalContext = func(parent context.Context) (context.Context, context.CancelFunc) {
		ctx, cancel := context.WithCancel(parent)
		stopped <- cancel
		return ctx, cancel
	}

	env := newTestEnv(t, downtown())
	env.deps.Settings.APITokens = map[string]string{"owner-token": "owner"}
	stdout := newWatchBuffer("Serving menu sync API on 127.0.0.1:0")
	stderr := newWatchBuffer("")
	done := make(chan int, 1)
	go func() {
		done <- Execute(context.Background(), []string{"serve", "--addr", "127.0.0.1:0", "--no-scheduler"}, env.deps, stdout, stderr)
	}()

	select {
	case <-stdout.seen:
	case code := <-done:
		t.Fatalf("serve exited early with %d stdout=%s stderr=%s", code, stdout, stderr)
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not start, stdout=%s stderr=%s", stdout, stderr)
	}
	(<-stopped)()

	select {
	case code := <-done:
		if code != 0 {
			t.Fatalf("expected clean shutdown, got %d stdout=%s stderr=%s", code, stdout, stderr)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop after cancellation")
	}
}

func TestServeRejectsInvalidTokenRoles(t *testing.T) {
	env := newTestEnv(t, downtown())
	env.deps.Settings.APITokens = map[string]string{"secret-token": "janitor"}

	code, _, stderr := env.run(t, "serve", "--no-scheduler")
	if code != 1 || !strings.Contains(stderr, "unknown role") {
		t.Fatalf("expected role error, got %d %q", code, stderr)
	}
	if strings.Contains(stderr, "secret-token") {
		t.Fatalf("expected token to be redacted, got %q", stderr)
	}
}

func TestExportCSV(t *testing.T) {
	env := newTestEnv(t, downtown())

	code, stdout, _ := env.run(t, "export", "--profile", "downtown", "--format", "csv")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stdout)
	}
	want := "Category,Item Name,Description,Price\n" +
		"Mains,Burger,\"Beef, cheese\",$12.50\n" +
		"Mains,Salad,,$8.00\n"
	if stdout != want {
		t.Fatalf("unexpected csv:\n%s\nwant:\n%s", stdout, want)
	}
}

func TestExportTableAndJSON(t *testing.T) {
	env := newTestEnv(t, downtown())

	code, stdout, _ := env.run(t, "export", "--profile", "downtown")
	if code != 0 || !strings.Contains(stdout, "Category: Mains") {
		t.Fatalf("unexpected table export %d %q", code, stdout)
	}

	code, stdout, _ = env.run(t, "export", "--profile", "downtown", "--format", "json")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	var payload struct {
		Data domain.Menu `json:"data"`
	}
	if err := json.Unmarshal([]byte(stdout), &payload); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if payload.Data.ID != "menu-1" || payload.Data.TotalItems() != 2 {
		t.Fatalf("unexpected menu %+v", payload.Data)
	}
}

func TestExportFailures(t *testing.T) {
	env := newTestEnv(t, downtown())
	env.otter.loginErr = errLoginRejected
	code, stdout, _ := env.run(t, "export", "--profile", "downtown")
	if code != 1 || !strings.Contains(stdout, "Authentication failed") {
		t.Fatalf("expected auth failure, got %d %q", code, stdout)
	}

	env = newTestEnv(t, downtown())
	env.otter.setMenu(`{"id": "menu-1"}`)
	code, stdout, _ = env.run(t, "export", "--profile", "downtown")
	if code != 1 || !strings.Contains(stdout, "Failed to fetch menu data") {
		t.Fatalf("expected fetch failure, got %d %q", code, stdout)
	}

	code, _, stderr := env.run(t, "export", "--format", "xml")
	if code != 1 || !strings.Contains(stderr, "unsupported format") {
		t.Fatalf("expected format error, got %d %q", code, stderr)
	}
}

func TestExportWithoutProfileOrEnvCredentials(t *testing.T) {
	env := newTestEnv(t, downtown())

	code, stdout, _ := env.run(t, "export", "--format", "json")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	var payload struct {
		Error map[string]any `json:"error"`
	}
	if err := json.Unmarshal([]byte(stdout), &payload); err != nil {
		t.Fatalf("decode error envelope: %v\n%s", err, stdout)
	}
	if payload.Error["code"] != "MENUSYNC_CONFIG_ERROR" {
		t.Fatalf("expected MENUSYNC_CONFIG_ERROR, got %v", payload.Error)
	}
	if env.otter.fetches != 0 {
		t.Fatalf("expected no fetch without credentials, got %d", env.otter.fetches)
	}
}

func TestExportVerboseTrace(t *testing.T) {
	env := newTestEnv(t, downtown())
	code, _, stderr := env.run(t, "export", "--profile", "downtown", "--verbose")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.Contains(stderr, "[verbose] http trace enabled") || !strings.Contains(stderr, "/api/v1/menus") {
		t.Fatalf("expected request trace on stderr, got %q", stderr)
	}
}

func TestStatusRedactsSecrets(t *testing.T) {
	env := newTestEnv(t)
	env.deps.Settings.Username = "chef@example.com"
	env.deps.Settings.DatabaseURL = "postgres://menusync:hunter2@db:5432/menusync"

	code, stdout, _ := env.run(t, "status")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	for _, want := range []string{"Menu Sync Configuration", "chef@example.com", "30 minutes", "Sync Enabled", "Yes"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("expected %q in status output:\n%s", want, stdout)
		}
	}
	if strings.Contains(stdout, "hunter2") {
		t.Fatalf("expected database password to be redacted:\n%s", stdout)
	}

	code, stdout, _ = env.run(t, "status", "--format", "yaml")
	if code != 0 || !strings.Contains(stdout, "sync_interval_minutes: 30") {
		t.Fatalf("unexpected yaml status %d %q", code, stdout)
	}
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t, downtown(), uptown())
	if code, _, _ := env.run(t, "sync", "--all-profiles"); code != 0 {
		t.Fatal("sync failed")
	}

	code, stdout, _ := env.run(t, "history", "--profile", "uptown", "--format", "json")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	var payload struct {
		Data struct {
			Runs []map[string]any `json:"runs"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(stdout), &payload); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(payload.Data.Runs) != 1 || payload.Data.Runs[0]["profile"] != "uptown" {
		t.Fatalf("unexpected runs %+v", payload.Data.Runs)
	}

	code, stdout, _ = env.run(t, "history", "--limit", "5")
	if code != 0 || !strings.Contains(stdout, "Sync History") || !strings.Contains(stdout, "downtown") {
		t.Fatalf("unexpected table %d %q", code, stdout)
	}

	if code, stdout, _ := env.run(t, "history", "--limit", "0"); code != 1 || !strings.Contains(stdout, "--limit") {
		t.Fatalf("expected limit validation, got %d %q", code, stdout)
	}
}

func TestHistoryWithoutStore(t *testing.T) {
	env := newTestEnv(t)
	env.deps.OpenHistory = nil
	code, stdout, _ := env.run(t, "history")
	if code != 1 || !strings.Contains(stdout, "not configured") {
		t.Fatalf("expected missing store error, got %d %q", code, stdout)
	}
}
