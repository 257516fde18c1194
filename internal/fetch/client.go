package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sportsync/ingestion/internal/metrics"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 32 << 20

// Cache stores successful response bodies keyed by URL
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Options configures a Client
type Options struct {
	Timeout   time.Duration
	Delay     time.Duration
	UserAgent string
	Cache     Cache
	CacheTTL  time.Duration
}

// Result is a successful fetch. NotFound marks a 404, which callers treat as
// "no data" rather than a failure.
type Result struct {
	Body     json.RawMessage
	Status   int
	NotFound bool
	Retries  int
	Cached   bool
}

// Client performs throttled, retrying GET requests against the provider.
// A network failure is retried once and a 5xx response is retried once,
// independently of each other. Every attempt is followed by a fixed delay.
type Client struct {
	httpClient *http.Client
	delay      time.Duration
	userAgent  string
	cache      Cache
	cacheTTL   time.Duration
	sleep      func(ctx context.Context, d time.Duration)
}

// NewClient creates a new provider fetch client
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "sportsync-ingestion/1.0"
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		delay:     opts.Delay,
		userAgent: opts.UserAgent,
		cache:     opts.Cache,
		cacheTTL:  opts.CacheTTL,
		sleep:     sleepCtx,
	}
}

// Fetch GETs rawURL and returns its JSON body
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	if body, ok := c.cached(ctx, rawURL); ok {
		return &Result{Body: body, Status: http.StatusOK, Cached: true}, nil
	}

	endpoint := endpointLabel(rawURL)
	var networkRetried, serverRetried bool
	retries := 0

	for {
		start := time.Now()
		status, body, err := c.do(ctx, rawURL)
		c.sleep(ctx, c.delay)

		if err != nil {
			metrics.RecordAPICall(endpoint, "error", time.Since(start).Seconds())
			if ctx.Err() != nil {
				return nil, errors.Wrap(ctx.Err(), "fetch cancelled")
			}
			if !networkRetried {
				networkRetried = true
				retries++
				metrics.RecordAPIRetry(endpoint, "network")
				log.Warn().
					Err(err).
					Str("url", rawURL).
					Msg("Provider request failed, retrying once")
				continue
			}
			return nil, &Error{Kind: KindTransient, URL: rawURL, Err: err}
		}

		metrics.RecordAPICall(endpoint, strconv.Itoa(status), time.Since(start).Seconds())

		switch {
		case status >= 200 && status < 300:
			if !json.Valid(body) {
				return nil, &Error{Kind: KindDecode, URL: rawURL, Status: status, Err: errors.New("response body is not valid JSON")}
			}
			log.Debug().
				Str("url", rawURL).
				Int("status", status).
				Int("size", len(body)).
				Int("retries", retries).
				Msg("Provider request successful")
			c.store(ctx, rawURL, body)
			return &Result{Body: body, Status: status, Retries: retries}, nil

		case status == http.StatusNotFound:
			log.Debug().Str("url", rawURL).Msg("Provider returned 404, treating as no data")
			return &Result{Status: status, NotFound: true, Retries: retries}, nil

		case status >= 500:
			if !serverRetried {
				serverRetried = true
				retries++
				metrics.RecordAPIRetry(endpoint, "server")
				log.Warn().
					Str("url", rawURL).
					Int("status", status).
					Msg("Provider returned server error, retrying once")
				continue
			}
			return nil, &Error{Kind: KindTransient, URL: rawURL, Status: status, Err: errors.Newf("server error: %s", truncate(body, 200))}

		default:
			return nil, &Error{Kind: KindRequest, URL: rawURL, Status: status, Err: errors.Newf("unexpected status: %s", truncate(body, 200))}
		}
	}
}

// FetchJSON fetches rawURL and decodes it into v. found is false on a 404.
func (c *Client) FetchJSON(ctx context.Context, rawURL string, v interface{}) (bool, error) {
	res, err := c.Fetch(ctx, rawURL)
	if err != nil {
		return false, err
	}
	if res.NotFound {
		return false, nil
	}
	if err := json.Unmarshal(res.Body, v); err != nil {
		return false, &Error{Kind: KindDecode, URL: rawURL, Status: res.Status, Err: err}
	}
	return true, nil
}

func (c *Client) do(ctx context.Context, rawURL string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, errors.Wrap(err, "failed to read response body")
	}
	return resp.StatusCode, bytes.TrimSpace(body), nil
}

func (c *Client) cached(ctx context.Context, key string) ([]byte, bool) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return nil, false
	}
	body, found, err := c.cache.Get(ctx, cacheKey(key))
	if err != nil {
		log.Warn().Err(err).Str("url", key).Msg("Fetch cache read failed")
		return nil, false
	}
	if !found {
		metrics.RecordCacheMiss()
		return nil, false
	}
	metrics.RecordCacheHit()
	return body, true
}

func (c *Client) store(ctx context.Context, key string, body []byte) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return
	}
	if err := c.cache.Set(ctx, cacheKey(key), body, c.cacheTTL); err != nil {
		log.Warn().Err(err).Str("url", key).Msg("Fetch cache write failed")
	}
}

func cacheKey(rawURL string) string {
	return "sportsync:fetch:" + rawURL
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// endpointLabel collapses id-bearing path segments so metric cardinality
// stays bounded.
func endpointLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "invalid"
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, s := range segments {
		if strings.ContainsAny(s, "0123456789") {
			segments[i] = ":id"
		}
	}
	return u.Host + "/" + strings.Join(segments, "/")
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
