package otter

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
)

// routeHTTPClient serves fixture payloads by request path and answers 404 otherwise.
type routeHTTPClient struct {
	routes map[string][]byte
}

func (c *routeHTTPClient) Do(req *http.Request) (*http.Response, error) {
	payload, ok := c.routes[req.URL.Path]
	statusCode := http.StatusOK
	if !ok {
		payload = []byte(`{"error":"not found"}`)
		statusCode = http.StatusNotFound
	}
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(bytes.NewReader(payload)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

func readFixture(t *testing.T, filename string) []byte {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", filename))
	if err != nil {
		t.Fatalf("read fixture %s: %v", filename, err)
	}
	return raw
}

func TestFetchMenuFixture(t *testing.T) {
	httpClient := &routeHTTPClient{routes: map[string][]byte{
		"/api/v1/menus/rest-downtown": readFixture(t, "downtown_menu.json"),
	}}
	client := newTestClient(httpClient)
	if !client.Authenticate(context.Background()) {
		t.Fatal("expected authentication to succeed")
	}

	menu, err := client.FetchMenuData(context.Background(), "rest-downtown")
	if err != nil {
		t.Fatalf("fetch menu: %v", err)
	}
	if menu.Currency != "USD" || len(menu.Categories) != 3 || menu.TotalItems() != 5 {
		t.Fatalf("unexpected menu shape: currency=%s categories=%d items=%d", menu.Currency, len(menu.Categories), menu.TotalItems())
	}

	mains := menu.Categories[1]
	if mains.Name != "Rice Bowls" || mains.DisplayOrder != 2 {
		t.Fatalf("unexpected category %q order=%d", mains.Name, mains.DisplayOrder)
	}
	teriyaki := mains.Items[0]
	if teriyaki.Category != "Rice Bowls" || teriyaki.Price.String() != "13.46" {
		t.Fatalf("unexpected teriyaki item %+v", teriyaki)
	}
	if teriyaki.NutritionalInfo["calories"] != float64(720) {
		t.Fatalf("expected nutritional info to survive, got %v", teriyaki.NutritionalInfo)
	}
	if mains.Items[1].Available {
		t.Fatal("expected poke bowl to be unavailable")
	}

	wings := menu.Categories[0].Items[0]
	if len(wings.Options) != 2 || wings.Options[1].Available || wings.Options[1].Price.String() != "0.5" {
		t.Fatalf("unexpected wing options %+v", wings.Options)
	}
	if !menu.Categories[0].Items[1].Available || len(menu.Categories[0].Items[1].Tags) != 0 {
		t.Fatalf("expected fries defaults, got %+v", menu.Categories[0].Items[1])
	}
}

func TestFetchMenuFixtureUnknownRestaurant(t *testing.T) {
	client := newTestClient(&routeHTTPClient{routes: map[string][]byte{}})
	client.Authenticate(context.Background())

	_, err := client.FetchMenuData(context.Background(), "rest-missing")
	var upstream *UpstreamRequestError
	if !errors.As(err, &upstream) || upstream.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 upstream error, got %v", err)
	}
}
