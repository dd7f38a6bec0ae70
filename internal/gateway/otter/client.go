package otter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mekedron/otter-menusync/internal/domain"
	"github.com/mekedron/otter-menusync/internal/logging"
)

const (
	// DefaultLoginURL is the Otter web login page driven by the browser authenticator.
	DefaultLoginURL = "https://app.tryotter.com/login"

	defaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	defaultHTTPTimeout = 30 * time.Second
	menusPath          = "/api/v1/menus"
	menuItemsPath      = "/api/v1/menu-items/"
)

// HTTPClient is implemented by http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Endpoints stores upstream endpoint urls.
type Endpoints struct {
	BaseURL  string
	LoginURL string
}

// Client talks to the Otter menu API for a single set of credentials.
type Client struct {
	httpClient     HTTPClient
	endpoints      Endpoints
	creds          domain.Credentials
	authenticator  Authenticator
	logger         *slog.Logger
	sessionM       sync.RWMutex
	sessionToken   string
	minRequestGap  time.Duration
	requestWindowM sync.Mutex
	nextRequestAt  time.Time
	verboseOutput  io.Writer
	verboseOutputM sync.RWMutex
}

// Option applies Client options.
type Option func(*Client)

// WithHTTPClient replaces default HTTP client.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithEndpoints replaces the API root and login page. Empty fields keep their current value.
func WithEndpoints(endpoints Endpoints) Option {
	return func(c *Client) {
		if strings.TrimSpace(endpoints.BaseURL) != "" {
			c.endpoints.BaseURL = endpoints.BaseURL
		}
		if strings.TrimSpace(endpoints.LoginURL) != "" {
			c.endpoints.LoginURL = endpoints.LoginURL
		}
	}
}

// WithAuthenticator replaces the headless browser login.
func WithAuthenticator(authenticator Authenticator) Option {
	return func(c *Client) {
		c.authenticator = authenticator
	}
}

// WithRequestMinInterval limits request burst by enforcing minimum delay between upstream calls.
func WithRequestMinInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval < 0 {
			interval = 0
		}
		c.minRequestGap = interval
	}
}

// WithVerboseOutput enables per-request trace output for upstream HTTP calls.
func WithVerboseOutput(out io.Writer) Option {
	return func(c *Client) {
		c.SetVerboseOutput(out)
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates an unauthenticated Otter client for creds.
func NewClient(creds domain.Credentials, opts ...Option) *Client {
	baseURL := strings.TrimSpace(creds.BaseURL)
	if baseURL == "" {
		baseURL = domain.DefaultBaseURL
	}
	c := &Client{
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		endpoints: Endpoints{
			BaseURL:  baseURL,
			LoginURL: DefaultLoginURL,
		},
		creds:         creds,
		authenticator: NewBrowserAuthenticator(),
		logger:        logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.endpoints.BaseURL = strings.TrimRight(c.endpoints.BaseURL, "/")
	return c
}

// SetVerboseOutput updates the request trace writer. Nil disables tracing.
func (c *Client) SetVerboseOutput(out io.Writer) {
	c.verboseOutputM.Lock()
	c.verboseOutput = out
	c.verboseOutputM.Unlock()
}

// Authenticated reports whether a session token is held.
func (c *Client) Authenticated() bool {
	return c.token() != ""
}

// Authenticate logs in through the configured Authenticator.
func (c *Client) Authenticate(ctx context.Context) bool {
	c.logger.Info("starting otter authentication", "profile", c.creds.Profile, "login_url", c.endpoints.LoginURL)
	if c.authenticator == nil {
		c.logger.Error("authentication failed", "err", errors.New("no authenticator configured"))
		return false
	}
	token, err := c.authenticator.Login(ctx, c.creds, c.endpoints.LoginURL)
	if err != nil {
		c.logger.Error("authentication failed", "profile", c.creds.Profile, "err", err)
		return false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		c.logger.Error("session token not found", "profile", c.creds.Profile)
		return false
	}
	c.sessionM.Lock()
	c.sessionToken = token
	c.sessionM.Unlock()
	c.logger.Info("authentication successful", "profile", c.creds.Profile)
	return true
}

// FetchMenuData loads the menu of restaurantID, or the account default menu when empty.
func (c *Client) FetchMenuData(ctx context.Context, restaurantID string) (*domain.Menu, error) {
	token := c.token()
	if token == "" {
		c.logger.Error("fetch menu data without session")
		return nil, ErrNotAuthenticated
	}

	rawURL := c.endpoints.BaseURL + menusPath
	if id := strings.TrimSpace(restaurantID); id != "" {
		rawURL += "/" + url.PathEscape(id)
	}
	raw, err := c.doRequest(ctx, http.MethodGet, rawURL, nil, token)
	if err != nil {
		c.logger.Error("failed to fetch menu data", "restaurant_id", restaurantID, "err", err)
		return nil, err
	}

	menu, err := ParseMenuDocument(raw)
	if err != nil {
		upstreamErr := &UpstreamRequestError{
			Method:     http.MethodGet,
			URL:        rawURL,
			StatusCode: http.StatusOK,
			Body:       string(raw),
			Cause:      err,
		}
		c.logger.Error("failed to parse menu data", "restaurant_id", restaurantID, "err", err)
		return nil, upstreamErr
	}
	return menu, nil
}

// UpdateMenuItem pushes item to Otter and reports success.
func (c *Client) UpdateMenuItem(ctx context.Context, item domain.MenuItem) bool {
	token := c.token()
	if token == "" {
		c.logger.Error("update menu item without session", "item_id", item.ID)
		return false
	}
	rawURL := c.endpoints.BaseURL + menuItemsPath + url.PathEscape(item.ID)
	if _, err := c.doRequest(ctx, http.MethodPut, rawURL, newItemPayload(item), token); err != nil {
		c.logger.Error("failed to update menu item", "item_id", item.ID, "err", err)
		return false
	}
	c.logger.Info("updated menu item", "item_id", item.ID, "name", item.Name)
	return true
}

// Close drops the session and idle connections.
func (c *Client) Close() error {
	c.sessionM.Lock()
	c.sessionToken = ""
	c.sessionM.Unlock()
	if closer, ok := c.httpClient.(interface{ CloseIdleConnections() }); ok {
		closer.CloseIdleConnections()
	}
	return nil
}

func (c *Client) token() string {
	c.sessionM.RLock()
	defer c.sessionM.RUnlock()
	return c.sessionToken
}

func (c *Client) doRequest(ctx context.Context, method, rawURL string, body any, token string) ([]byte, error) {
	var bodyReader io.Reader
	bodyBytes := 0
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyBytes = len(payload)
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	if err := c.waitForRequestSlot(ctx); err != nil {
		return nil, err
	}

	startedAt := time.Now()
	c.traceRequestStart(method, rawURL, bodyBytes)

	res, err := c.httpClient.Do(req)
	if err != nil {
		upstreamErr := &UpstreamRequestError{Method: method, URL: rawURL, Cause: err}
		c.traceRequestDone(method, rawURL, 0, 0, startedAt, upstreamErr)
		return nil, upstreamErr
	}
	defer func() {
		_ = res.Body.Close()
	}()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		upstreamErr := &UpstreamRequestError{
			Method:     method,
			URL:        rawURL,
			StatusCode: res.StatusCode,
			Cause:      fmt.Errorf("read response body: %w", err),
		}
		c.traceRequestDone(method, rawURL, res.StatusCode, 0, startedAt, upstreamErr)
		return nil, upstreamErr
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		upstreamErr := &UpstreamRequestError{
			Method:     method,
			URL:        rawURL,
			StatusCode: res.StatusCode,
			Body:       string(raw),
		}
		c.traceRequestDone(method, rawURL, res.StatusCode, len(raw), startedAt, upstreamErr)
		return nil, upstreamErr
	}

	c.traceRequestDone(method, rawURL, res.StatusCode, len(raw), startedAt, nil)
	return raw, nil
}

func (c *Client) traceRequestStart(method, rawURL string, bodyBytes int) {
	if bodyBytes > 0 {
		c.tracef("[http] -> %s %s body_bytes=%d", method, rawURL, bodyBytes)
		return
	}
	c.tracef("[http] -> %s %s", method, rawURL)
}

func (c *Client) traceRequestDone(method, rawURL string, statusCode int, responseBytes int, startedAt time.Time, reqErr error) {
	duration := time.Since(startedAt).Round(time.Millisecond)
	if reqErr != nil {
		c.tracef("[http] <- %s %s error=%v duration=%s", method, rawURL, reqErr, duration)
		return
	}
	c.tracef("[http] <- %s %s status=%d duration=%s bytes=%d", method, rawURL, statusCode, duration, responseBytes)
}

func (c *Client) waitForRequestSlot(ctx context.Context) error {
	interval := c.minRequestGap
	if interval <= 0 {
		return nil
	}
	for {
		c.requestWindowM.Lock()
		wait := time.Until(c.nextRequestAt)
		if wait <= 0 {
			c.nextRequestAt = time.Now().Add(interval)
			c.requestWindowM.Unlock()
			return nil
		}
		c.requestWindowM.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) tracef(format string, args ...any) {
	c.verboseOutputM.RLock()
	out := c.verboseOutput
	c.verboseOutputM.RUnlock()
	if out == nil {
		return
	}
	_, _ = fmt.Fprintf(out, format+"\n", args...)
}
