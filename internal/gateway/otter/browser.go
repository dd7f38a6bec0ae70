package otter

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/mekedron/otter-menusync/internal/domain"
)

const (
	defaultLoginTimeout = 20 * time.Second
	sessionCookieName   = "session_token"

	emailFieldSelector    = `input[name="email"]`
	passwordFieldSelector = `input[name="password"]`
	submitButtonSelector  = `button[type='submit']`
	dashboardSelector     = `.dashboard`
)

// BrowserAuthenticator logs in through the Otter web app in headless Chrome
// and returns the session cookie.
type BrowserAuthenticator struct {
	Timeout time.Duration
	// ExecPath overrides the Chrome binary lookup.
	ExecPath string
}

// NewBrowserAuthenticator returns an authenticator with the default 20s wait.
func NewBrowserAuthenticator() *BrowserAuthenticator {
	return &BrowserAuthenticator{Timeout: defaultLoginTimeout}
}

// Login fills the login form, waits for the dashboard and reads the session cookie.
func (b *BrowserAuthenticator) Login(ctx context.Context, creds domain.Credentials, loginURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Headless,
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(defaultUserAgent),
	)
	if b.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	timeout := b.Timeout
	if timeout <= 0 {
		timeout = defaultLoginTimeout
	}
	runCtx, cancel := context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var cookies []*network.Cookie
	err := chromedp.Run(runCtx,
		chromedp.Navigate(loginURL),
		chromedp.WaitVisible(emailFieldSelector, chromedp.ByQuery),
		chromedp.SendKeys(emailFieldSelector, creds.Username, chromedp.ByQuery),
		chromedp.SendKeys(passwordFieldSelector, creds.Password, chromedp.ByQuery),
		chromedp.Click(submitButtonSelector, chromedp.ByQuery),
		chromedp.WaitReady(dashboardSelector, chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().Do(ctx)
			return err
		}),
	)
	if err != nil {
		return "", fmt.Errorf("%w: browser login: %w", ErrAuthentication, err)
	}
	return sessionTokenFrom(cookies)
}

func sessionTokenFrom(cookies []*network.Cookie) (string, error) {
	for _, cookie := range cookies {
		if cookie != nil && cookie.Name == sessionCookieName && cookie.Value != "" {
			return cookie.Value, nil
		}
	}
	return "", fmt.Errorf("%w: %s cookie not found", ErrAuthentication, sessionCookieName)
}
