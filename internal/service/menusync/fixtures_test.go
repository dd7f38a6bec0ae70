package menusync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mekedron/otter-menusync/internal/domain"
	"github.com/mekedron/otter-menusync/internal/gateway/otter"
	"github.com/mekedron/otter-menusync/internal/retry"
)

type fakeClient struct {
	mu          sync.Mutex
	authOK      bool
	menus       []*domain.Menu
	fetchErrs   []error
	panicFetch  bool
	fetchCalls  int
	updateCalls []domain.MenuItem
	authCalls   int
	closeCalls  int
}

func (f *fakeClient) Authenticate(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authCalls++
	return f.authOK
}

// FetchMenuData returns errors from fetchErrs first, then menus in order; the
// last menu repeats once exhausted.
func (f *fakeClient) FetchMenuData(context.Context, string) (*domain.Menu, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if f.panicFetch {
		panic("menu decoder exploded")
	}
	if len(f.fetchErrs) > 0 {
		err := f.fetchErrs[0]
		f.fetchErrs = f.fetchErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(f.menus) == 0 {
		return nil, nil
	}
	menu := f.menus[0]
	if len(f.menus) > 1 {
		f.menus = f.menus[1:]
	}
	return menu, nil
}

func (f *fakeClient) UpdateMenuItem(_ context.Context, item domain.MenuItem) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls = append(f.updateCalls, item)
	return true
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	return nil
}

func factoryFor(client *fakeClient) ClientFactory {
	return func(context.Context) (otter.API, error) {
		return client, nil
	}
}

func noSleepPolicy() retry.Policy {
	policy := retry.Default()
	policy.Sleep = func(context.Context, time.Duration) error { return nil }
	return policy
}

func newTestService(client *fakeClient, opts ...Option) *Service {
	base := []Option{WithRetryPolicy(noSleepPolicy())}
	return NewService("test", factoryFor(client), append(base, opts...)...)
}

func item(id, name, price, category string) domain.MenuItem {
	return domain.MenuItem{
		ID:        id,
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Category:  category,
		Available: true,
		Options:   []domain.MenuItemOption{},
		Images:    []string{},
		Tags:      []string{},
	}
}

// menuOf groups items into categories named after item.Category, in first-seen order.
func menuOf(items ...domain.MenuItem) *domain.Menu {
	menu := &domain.Menu{
		ID:           "menu-1",
		RestaurantID: "rest-1",
		Name:         "Main Menu",
		Currency:     "USD",
		Version:      1,
		Active:       true,
	}
	index := map[string]int{}
	for _, it := range items {
		pos, ok := index[it.Category]
		if !ok {
			pos = len(menu.Categories)
			index[it.Category] = pos
			menu.Categories = append(menu.Categories, domain.MenuCategory{
				ID:     "cat-" + it.Category,
				Name:   it.Category,
				Active: true,
			})
		}
		menu.Categories[pos].Items = append(menu.Categories[pos].Items, it)
	}
	return menu
}

var errTransient = errors.New("connection reset by peer")
