package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/temoto/robotstxt"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Page bodies above this size are truncated before extraction.
const maxResponseBytes = 4 << 20

type ClientConfig struct {
	HTTPClient    *http.Client
	UserAgent     string
	Timeout       time.Duration
	RespectRobots bool
	BrowserFetch  bool
}

type ClientOption func(*ClientConfig)

// Client is the scrape-side HTTP client shared by every source fetch. It
// pins a desktop user agent, bounds each request with the tier timeout and
// keeps a per-host robots.txt cache.
type Client struct {
	http          *http.Client
	userAgent     string
	timeout       time.Duration
	respectRobots bool
	browserFetch  bool

	mu     sync.Mutex
	robots map[string]*robotstxt.Group
}

func NewClient(opts ...ClientOption) *Client {
	cfg := ClientConfig{
		UserAgent:     defaultUserAgent,
		Timeout:       10 * time.Second,
		RespectRobots: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}

	return &Client{
		http:          cfg.HTTPClient,
		userAgent:     cfg.UserAgent,
		timeout:       cfg.Timeout,
		respectRobots: cfg.RespectRobots,
		browserFetch:  cfg.BrowserFetch,
		robots:        make(map[string]*robotstxt.Group),
	}
}

// FetchAPI issues a GET against a structured endpoint (JSON APIs, raw text
// lists). API endpoints are not subject to the robots gate.
func (c *Client) FetchAPI(ctx context.Context, rawURL string, headers map[string]string) (string, error) {
	return c.get(ctx, rawURL, headers)
}

// FetchPage retrieves an HTML page for scraping. The host's robots.txt is
// consulted first when the robots policy is on. With browser fetch enabled
// the page is rendered through headless Chrome; any browser failure falls
// back to the plain request.
func (c *Client) FetchPage(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	if c.respectRobots && !c.allowed(ctx, parsed) {
		return "", fmt.Errorf("robots.txt disallows %s", rawURL)
	}

	if c.browserFetch {
		html, err := renderPage(rawURL, c.timeout)
		if err == nil {
			return html, nil
		}
		log.Warn("Browser fetch failed, falling back to plain request", "url", rawURL, "error", err)
	}

	return c.get(ctx, rawURL, nil)
}

func (c *Client) get(ctx context.Context, rawURL string, headers map[string]string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%s responded with status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read response from %s: %w", rawURL, err)
	}
	return string(body), nil
}

func (c *Client) allowed(ctx context.Context, page *url.URL) bool {
	group := c.robotsGroup(ctx, page)
	if group == nil {
		return true
	}
	path := page.Path
	if path == "" {
		path = "/"
	}
	return group.Test(path)
}

func (c *Client) robotsGroup(ctx context.Context, page *url.URL) *robotstxt.Group {
	origin := page.Scheme + "://" + page.Host

	c.mu.Lock()
	group, ok := c.robots[origin]
	c.mu.Unlock()
	if ok {
		return group
	}

	group = c.loadRobots(ctx, origin)

	c.mu.Lock()
	c.robots[origin] = group
	c.mu.Unlock()
	return group
}

// loadRobots fetches and parses a host's robots.txt. A nil result means the
// host is unrestricted; unreachable or unparsable files allow everything,
// matching how FromStatusAndBytes treats 4xx responses.
func (c *Client) loadRobots(ctx context.Context, origin string) *robotstxt.Group {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		log.Debug("robots.txt unreachable", "origin", origin, "error", err)
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		log.Debug("robots.txt unparsable", "origin", origin, "error", err)
		return nil
	}
	return data.FindGroup(c.userAgent)
}
