package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/mekedron/otter-menusync/internal/config"
	"github.com/mekedron/otter-menusync/internal/domain"
	"github.com/mekedron/otter-menusync/internal/gateway/otter"
	"github.com/mekedron/otter-menusync/internal/service/profile"
	"github.com/mekedron/otter-menusync/internal/storage"
)

const burgerMenu = `{
  "id": "menu-1",
  "restaurant_id": "rest-1",
  "name": "Lunch",
  "currency": "USD",
  "categories": [
    {"id": "cat-1", "name": "mains", "items": [
      {"id": "item-1", "name": "Burger", "description": "Beef, cheese", "price": "12.50"},
      {"id": "item-2", "name": "Salad", "price": "8"}
    ]}
  ]
}`

// fakeOtter answers menu reads with the current document and accepts item writes.
type fakeOtter struct {
	mu       sync.Mutex
	menu     string
	fetches  int
	writes   []string
	loginErr error
}

func (f *fakeOtter) setMenu(doc string) {
	f.mu.Lock()
	f.menu = doc
	f.mu.Unlock()
}

func (f *fakeOtter) Do(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body := "{}"
	switch req.Method {
	case http.MethodGet:
		f.fetches++
		body = f.menu
	case http.MethodPut:
		f.writes = append(f.writes, req.URL.Path)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

func (f *fakeOtter) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func (f *fakeOtter) login(context.Context, domain.Credentials, string) (string, error) {
	if f.loginErr != nil {
		return "", f.loginErr
	}
	return "session-token", nil
}

type testEnv struct {
	deps   Dependencies
	otter  *fakeOtter
	store  *config.Store
	dbPath string
}

func newTestEnv(t *testing.T, profiles ...domain.Profile) *testEnv {
	t.Helper()
	dir := t.TempDir()
	fake := &fakeOtter{menu: burgerMenu}
	store := config.NewStoreAt(filepath.Join(dir, "profiles.json"))
	if len(profiles) > 0 {
		if err := store.Save(context.Background(), domain.Config{Profiles: profiles}); err != nil {
			t.Fatalf("save profiles: %v", err)
		}
	}
	settings := config.SettingsFrom(func(string) string { return "" })
	dbPath := filepath.Join(dir, "history.db")

	env := &testEnv{otter: fake, store: store, dbPath: dbPath}
	env.deps = Dependencies{
		Settings: settings,
		Config:   store,
		Profiles: profile.NewResolver(store, settings),
		Otter: []otter.Option{
			otter.WithHTTPClient(fake),
			otter.WithAuthenticator(otter.AuthenticatorFunc(fake.login)),
		},
		OpenHistory: func(ctx context.Context) (HistoryStore, error) {
			return storage.Open(ctx, "sqlite://"+dbPath, nil)
		},
		Version: "test",
	}
	return env
}

func (e *testEnv) run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	code := Execute(context.Background(), args, e.deps, stdout, stderr)
	return code, stdout.String(), stderr.String()
}

func (e *testEnv) runs(t *testing.T) []storage.RunRecord {
	t.Helper()
	history, err := storage.Open(context.Background(), "sqlite://"+e.dbPath, nil)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer history.Close()
	runs, err := history.Recent(context.Background(), "", 50)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	return runs
}

func downtown() domain.Profile {
	return domain.Profile{Name: "downtown", IsDefault: true, Username: "chef@example.com", Password: "secret", BaseURL: "https://otter.test"}
}

func uptown() domain.Profile {
	return domain.Profile{Name: "uptown", Username: "sous@example.com", Password: "secret", BaseURL: "https://otter.test"}
}

var errLoginRejected = errors.New("login rejected")

// watchBuffer is a goroutine-safe writer that closes seen once want has been written.
type watchBuffer struct {
	mu   sync.Mutex
	buf  bytes.Buffer
	want string
	seen chan struct{}
	once sync.Once
}

func newWatchBuffer(want string) *watchBuffer {
	return &watchBuffer{want: want, seen: make(chan struct{})}
}

func (b *watchBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, err := b.buf.Write(p)
	if b.want != "" && strings.Contains(b.buf.String(), b.want) {
		b.once.Do(func() { close(b.seen) })
	}
	return n, err
}

func (b *watchBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
