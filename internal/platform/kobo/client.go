package kobo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Kailou1991/ahis-001-sub001/internal/domain"
	"github.com/Kailou1991/ahis-001-sub001/internal/pkg/httpx"
	"github.com/Kailou1991/ahis-001-sub001/internal/platform/envutil"
	"github.com/Kailou1991/ahis-001-sub001/internal/platform/logger"
)

// Fetcher lists the submissions of one form.
type Fetcher interface {
	Fetch(ctx context.Context, uid, token, baseURL string) ([]map[string]any, error)
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	MaxPages   int
	// InitialBackoff is the first retry delay; it doubles per attempt.
	InitialBackoff time.Duration
}

func ConfigFromEnv(log *logger.Logger) Config {
	return Config{
		BaseURL:        envutil.String("KOBO_BASE_URL", domain.DefaultBaseURL, log),
		Timeout:        envutil.Duration("KOBO_HTTP_TIMEOUT", 60*time.Second, log),
		MaxRetries:     envutil.Int("KOBO_MAX_RETRIES", 2, log),
		MaxPages:       envutil.Int("KOBO_MAX_PAGES", 100, log),
		InitialBackoff: time.Second,
	}
}

// HTTPError is a non-2xx answer from the survey service.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("kobo http %d: %s", e.StatusCode, e.Body)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

type Client struct {
	log        *logger.Logger
	httpClient *http.Client
	baseURL    string
	maxRetries int
	maxPages   int
	backoff    time.Duration
}

func NewClient(cfg Config, baseLog *logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 100
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = domain.DefaultBaseURL
	}
	return &Client{
		log:        baseLog.With("client", "KoboClient"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxRetries: cfg.MaxRetries,
		maxPages:   cfg.MaxPages,
		backoff:    cfg.InitialBackoff,
	}
}

type listing struct {
	Count   int               `json:"count"`
	Next    *string           `json:"next"`
	Results []json.RawMessage `json:"results"`
}

// Fetch returns every submission of form uid, following "next" links. An
// empty baseURL uses the client default. Numbers are kept as json.Number.
func (c *Client) Fetch(ctx context.Context, uid, token, baseURL string) ([]map[string]any, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, fmt.Errorf("kobo fetch: empty form uid")
	}
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = c.baseURL
	}
	next := fmt.Sprintf("%s/api/v2/assets/%s/data.json", base, url.PathEscape(uid))
	origin, err := url.Parse(next)
	if err != nil {
		return nil, fmt.Errorf("kobo fetch: invalid base url %q: %w", base, err)
	}

	var out []map[string]any
	for page := 0; next != ""; page++ {
		if page >= c.maxPages {
			c.log.Warn("pagination limit reached", "uid", uid, "max_pages", c.maxPages, "fetched", len(out))
			break
		}
		raw, err := c.get(ctx, next, token)
		if err != nil {
			return nil, err
		}
		var body listing
		if err := json.Unmarshal(raw, &body); err != nil {
			return nil, fmt.Errorf("kobo decode error: %w", err)
		}
		if body.Results == nil {
			return nil, fmt.Errorf("kobo decode error: listing has no results")
		}
		for i, item := range body.Results {
			dec := json.NewDecoder(bytes.NewReader(item))
			dec.UseNumber()
			var rec map[string]any
			if err := dec.Decode(&rec); err != nil {
				return nil, fmt.Errorf("kobo decode result %d: %w", i, err)
			}
			out = append(out, rec)
		}
		current := next
		next = ""
		if body.Next != nil && strings.TrimSpace(*body.Next) != "" {
			if next, err = sameOriginNext(origin, current, *body.Next); err != nil {
				return nil, err
			}
		}
	}
	c.log.Debug("form fetched", "uid", uid, "records", len(out))
	return out, nil
}

func (c *Client) doOnce(ctx context.Context, rawURL, token string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Token "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &HTTPError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 512)}
	}
	return resp, raw, nil
}

func (c *Client) get(ctx context.Context, rawURL, token string) ([]byte, error) {
	backoff := c.backoff
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		resp, raw, err := c.doOnce(ctx, rawURL, token)
		if err == nil {
			return raw, nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			return nil, err
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 30*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)
		c.log.Warn("Kobo request retrying",
			"url", rawURL,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return nil, err
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("unreachable retry loop")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// sameOriginNext resolves a "next" link against the page it came from. The
// token is only ever sent to the configured host.
func sameOriginNext(origin *url.URL, current, raw string) (string, error) {
	cur, err := url.Parse(current)
	if err != nil {
		return "", fmt.Errorf("kobo pagination: %w", err)
	}
	ref, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("kobo pagination: invalid next link %q: %w", raw, err)
	}
	next := cur.ResolveReference(ref)
	if !strings.EqualFold(next.Scheme, origin.Scheme) || !strings.EqualFold(next.Host, origin.Host) {
		return "", fmt.Errorf("kobo pagination: next link host %q differs from %q", next.Host, origin.Host)
	}
	return next.String(), nil
}
