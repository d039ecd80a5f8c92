// Package plantmark reads the partner nursery catalog, either by scraping the
// storefront or through the partner's product API.
package plantmark

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/plant-nursery-api/internal/config"
	"github.com/rs/zerolog"
)

const (
	userAgent = "plant-nursery-api/1.0 (+catalog import)"
	loginPath = "/customer/account/loginPost"
)

// ErrLoginFailed is returned when the partner rejects the configured credentials
var ErrLoginFailed = errors.New("plantmark: login failed")

// Client is the shared HTTP client for the partner site. Requests are spaced
// by the configured delay; a session login happens on first use when
// credentials are set.
type Client struct {
	http     *resty.Client
	username string
	password string
	delay    time.Duration
	log      zerolog.Logger

	mu       sync.Mutex
	loggedIn bool
	lastCall time.Time
}

// NewClient creates a partner client from config
func NewClient(cfg config.PlantmarkConfig, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && r.StatusCode() >= 500
		})

	return &Client{
		http:     httpClient,
		username: cfg.Username,
		password: cfg.Password,
		delay:    cfg.RequestDelay,
		log:      log.With().Str("component", "plantmark").Logger(),
	}
}

// pace blocks until the polite delay since the previous request has passed
func (c *Client) pace(ctx context.Context) error {
	c.mu.Lock()
	wait := c.delay - time.Since(c.lastCall)
	c.mu.Unlock()

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	c.mu.Lock()
	c.lastCall = time.Now()
	c.mu.Unlock()
	return nil
}

// login opens a customer session once; trade prices are only shown to
// logged-in accounts
func (c *Client) login(ctx context.Context) error {
	c.mu.Lock()
	done := c.loggedIn || c.username == ""
	c.mu.Unlock()
	if done {
		return nil
	}

	if err := c.pace(ctx); err != nil {
		return err
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"login[username]": c.username,
			"login[password]": c.password,
		}).
		Post(loginPath)
	if err != nil {
		return fmt.Errorf("plantmark: login request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: status %d", ErrLoginFailed, resp.StatusCode())
	}

	c.mu.Lock()
	c.loggedIn = true
	c.mu.Unlock()
	c.log.Info().Str("username", c.username).Msg("Logged in to partner site")
	return nil
}

// getPage fetches an HTML page relative to the base URL (or absolute).
// A 404 is reported as found=false rather than an error.
func (c *Client) getPage(ctx context.Context, path string, query map[string]string) (body []byte, found bool, err error) {
	if err := c.login(ctx); err != nil {
		return nil, false, err
	}
	if err := c.pace(ctx); err != nil {
		return nil, false, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetHeader("Accept", "text/html").
		Get(path)
	if err != nil {
		return nil, false, fmt.Errorf("plantmark: GET %s: %w", path, err)
	}
	if resp.StatusCode() == 404 {
		return nil, false, nil
	}
	if resp.IsError() {
		return nil, false, fmt.Errorf("plantmark: GET %s: status %d", path, resp.StatusCode())
	}

	c.log.Debug().Str("url", resp.Request.URL).Dur("took", resp.Time()).Msg("Fetched page")
	return resp.Body(), true, nil
}

// BaseURL returns the storefront root
func (c *Client) BaseURL() string {
	return c.http.BaseURL
}
