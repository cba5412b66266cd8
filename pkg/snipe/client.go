// Package snipe wraps the remote asset-of-record HTTP API. It layers
// response caching with write invalidation, reactive rate-limit backoff,
// client-side request pacing, transparent pagination and bounded retry on
// transport failure over plain HTTP calls.
//
// The client is synchronous and single-threaded by design: every call
// blocks, retries are blocking sleeps, and the response cache is
// unsynchronized. Parallelism across independent candidate records is the
// caller's concern, with one client per run.
package snipe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/ferrumhealth/assetsync/pkg/errors"
	"github.com/ferrumhealth/assetsync/pkg/logging"
)

// ExitConnectionFailure is the process exit code for a transport failure
// that persisted through the retry budget. A connection failure of that
// persistence is a whole-run infrastructure failure, not a per-record error.
const ExitConnectionFailure = 4

const (
	defaultPageSize       = 500
	defaultCacheTTL       = 24 * time.Hour
	defaultBackoffBase    = 30 * time.Second
	defaultConnRetries    = 3
	defaultConnRetryDelay = 10 * time.Second
	defaultHTTPTimeout    = 30 * time.Second
	defaultRequestRate    = rate.Limit(10) // requests per second
)

// endpointAliases maps singular endpoint spellings to the plural forms the
// remote API actually serves.
var endpointAliases = map[string]string{
	"category": "categories",
	"company":  "companies",
}

// Client is the gateway to the remote asset-of-record service.
type Client struct {
	baseURL  string
	token    string
	http     *http.Client
	cache    *responseCache
	limiter  *rate.Limiter
	pageSize int

	// backoff counts consecutive rate-limit responses; each 429 sleeps
	// backoff × backoffBase and each success decays the counter by one.
	backoff     int
	backoffBase time.Duration

	connRetries    int
	connRetryDelay time.Duration

	headers map[string]string

	// sleep and exit are process interactions, injectable for tests.
	sleep func(time.Duration)
	exit  func(int)
}

// Option configures a Client.
type Option func(*Client)

// WithPageSize sets the page size used for paginated searches.
func WithPageSize(size int) Option {
	return func(c *Client) { c.pageSize = size }
}

// WithCacheTTL sets the expiry for cached GET responses.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) { c.cache = newResponseCache(ttl) }
}

// WithBackoffBase sets the base delay multiplied by the backoff counter
// after a rate-limit response.
func WithBackoffBase(d time.Duration) Option {
	return func(c *Client) { c.backoffBase = d }
}

// WithConnRetries bounds the transport-failure retry count.
func WithConnRetries(n int) Option {
	return func(c *Client) { c.connRetries = n }
}

// WithConnRetryDelay sets the fixed delay between transport-failure retries.
func WithConnRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.connRetryDelay = d }
}

// WithRequestRate sets the client-side pacing limit in requests per second.
func WithRequestRate(perSecond float64) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1) }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithHeader adds an extra header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers[key] = value }
}

// WithSleepFunc replaces the blocking sleep used for backoff. Tests use this
// to avoid real delays.
func WithSleepFunc(f func(time.Duration)) Option {
	return func(c *Client) { c.sleep = f }
}

// WithExitFunc replaces the process-exit call used on fatal connection
// failure. Tests use this to observe the exit instead of dying.
func WithExitFunc(f func(int)) Option {
	return func(c *Client) { c.exit = f }
}

// New creates a client for the remote service at baseURL authenticating
// with the given API token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		token:          token,
		http:           &http.Client{Timeout: defaultHTTPTimeout},
		cache:          newResponseCache(defaultCacheTTL),
		limiter:        rate.NewLimiter(defaultRequestRate, 1),
		pageSize:       defaultPageSize,
		backoffBase:    defaultBackoffBase,
		connRetries:    defaultConnRetries,
		connRetryDelay: defaultConnRetryDelay,
		headers:        make(map[string]string),
		sleep:          time.Sleep,
		exit:           os.Exit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PageSize returns the configured search page size.
func (c *Client) PageSize() int {
	return c.pageSize
}

// Call performs one API call and returns the raw response body. GET
// payloads are encoded as query parameters; mutating payloads are sent as
// JSON bodies and invalidate cached reads under the target endpoint.
// Rate-limit responses are retried after a growing blocking backoff.
func (c *Client) Call(ctx context.Context, method, endpoint string, payload map[string]any) (json.RawMessage, error) {
	endpoint = aliasEndpoint(endpoint)
	apiURL := c.baseURL + "/api/v1/" + endpoint

	if method != http.MethodGet {
		// Invalidate from the collection root: a write to hardware/42 can
		// change what hardware, hardware/byserial/... and any hardware
		// search would return.
		root := endpoint
		if idx := strings.IndexByte(root, '/'); idx >= 0 {
			root = root[:idx]
		}
		c.cache.invalidatePrefix(c.baseURL + "/api/v1/" + root)
	}

	var body []byte
	if method == http.MethodGet {
		if len(payload) > 0 {
			apiURL += "?" + encodeQuery(payload)
		}
		if cached := c.cache.get(apiURL); cached != nil {
			logging.Ctx(ctx).Debug().Str("url", apiURL).Msg("Cache hit")
			return cached, nil
		}
	} else if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, errors.NewResourceError("encode", endpoint, "", err)
		}
	}

	for {
		raw, retry, err := c.do(ctx, method, endpoint, apiURL, body)
		if err != nil {
			return nil, err
		}
		if retry {
			continue
		}
		if method == http.MethodGet {
			c.cache.put(apiURL, raw)
		}
		return raw, nil
	}
}

// do performs a single HTTP exchange, handling transport retry and the
// rate-limit backoff bookkeeping. retry is true when the caller should
// re-issue the same call (after a 429 sleep).
func (c *Client) do(ctx context.Context, method, endpoint, apiURL string, body []byte) (raw json.RawMessage, retry bool, err error) {
	log := logging.Ctx(ctx)
	log.Debug().Str("method", method).Str("url", apiURL).Msg("Calling asset service")

	resp, err := c.exchange(ctx, method, apiURL, body)
	if err != nil {
		// Transport failure survived the bounded retries: fatal.
		log.Error().Err(err).Str("url", apiURL).Msg("Connection to asset service failed, aborting run")
		c.exit(ExitConnectionFailure)
		return nil, false, errors.NewConnectionError(endpoint, c.connRetries, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, errors.NewConnectionError(endpoint, 1, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		c.backoff++
		pause := time.Duration(c.backoff) * c.backoffBase
		log.Warn().Dur("pause", pause).Int("backoff", c.backoff).Msg("Rate limit exceeded, pausing")
		c.sleep(pause)
		log.Info().Msg("Finished waiting, retrying call")
		return nil, true, nil
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if c.backoff > 0 {
			c.backoff--
		}
		return data, false, nil
	}

	log.Error().Int("status", resp.StatusCode).Str("url", apiURL).Msg("Asset service responded with error")
	log.Debug().Str("body", string(data)).Msg("Error response body")
	return nil, false, errors.NewAPIError(endpoint, resp.StatusCode, strings.TrimSpace(string(data)))
}

// exchange sends one request, retrying transport failures with a fixed
// delay up to the configured bound.
func (c *Client) exchange(ctx context.Context, method, apiURL string, body []byte) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.connRetries; attempt++ {
		if attempt > 0 {
			logging.Ctx(ctx).Warn().
				Int("attempt", attempt).
				Err(lastErr).
				Msg("Transport failure, retrying")
			c.sleep(c.connRetryDelay)
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/json")
		for k, v := range c.headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// Page is the paginated search/list response shape.
type Page struct {
	Total int               `json:"total"`
	Rows  []json.RawMessage `json:"rows"`
}

// Search runs a paginated search against endpoint, requesting successive
// pages until all rows are collected. An empty query returns an empty page
// without a network call.
func (c *Client) Search(ctx context.Context, endpoint, query string) (*Page, error) {
	if query == "" {
		return &Page{}, nil
	}

	logging.Ctx(ctx).Debug().Str("query", query).Str("endpoint", endpoint).Msg("Searching")

	page := &Page{}
	for offset := 0; ; offset += c.pageSize {
		raw, err := c.Call(ctx, http.MethodGet, endpoint, map[string]any{
			"search": query,
			"limit":  c.pageSize,
			"offset": offset,
		})
		if err != nil {
			return nil, err
		}

		part, err := decodePage(endpoint, raw)
		if err != nil {
			return nil, err
		}

		page.Total = part.Total
		page.Rows = append(page.Rows, part.Rows...)

		if part.Total <= c.pageSize+offset {
			break
		}
	}

	logging.Ctx(ctx).Debug().Int("total", page.Total).Str("query", query).Msg("Search finished")
	return page, nil
}

// List fetches every row of a list endpoint (no search filter).
func (c *Client) List(ctx context.Context, endpoint string) (*Page, error) {
	raw, err := c.Call(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return decodePage(endpoint, raw)
}

// Envelope is the mutation response shape.
type Envelope struct {
	Status   string          `json:"status"`
	Messages json.RawMessage `json:"messages"`
	Payload  json.RawMessage `json:"payload"`
}

// Mutate performs a mutating call and unwraps the response envelope,
// returning the payload on success. A missing status key means the remote
// contract has changed and the run must stop.
func (c *Client) Mutate(ctx context.Context, method, endpoint string, payload map[string]any) (json.RawMessage, error) {
	raw, err := c.Call(ctx, method, endpoint, payload)
	if err != nil {
		return nil, err
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, errors.NewContractError(endpoint, "status", string(raw))
	}
	if _, ok := probe["status"]; !ok {
		return nil, errors.NewContractError(endpoint, "status", string(raw))
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.NewContractError(endpoint, "payload", string(raw))
	}
	if env.Status != "success" {
		return nil, errors.NewResourceError(strings.ToLower(method), endpoint, "",
			fmt.Errorf("remote status %q: %s", env.Status, string(env.Messages)))
	}
	return env.Payload, nil
}

// decodePage decodes a search/list page, enforcing the wire contract.
func decodePage(endpoint string, raw json.RawMessage) (*Page, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, errors.NewContractError(endpoint, "total", string(raw))
	}
	if _, ok := probe["total"]; !ok {
		return nil, errors.NewContractError(endpoint, "total", string(raw))
	}

	var page Page
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, errors.NewContractError(endpoint, "rows", string(raw))
	}
	return &page, nil
}

// aliasEndpoint rewrites singular endpoint fragments to the plural forms
// the remote API serves.
func aliasEndpoint(endpoint string) string {
	for from, to := range endpointAliases {
		if strings.Contains(endpoint, from) && !strings.Contains(endpoint, to) {
			endpoint = strings.Replace(endpoint, from, to, 1)
		}
	}
	return endpoint
}

// encodeQuery flattens a payload into a query string with stable key order.
func encodeQuery(payload map[string]any) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := url.Values{}
	for _, k := range keys {
		values.Set(k, fmt.Sprintf("%v", payload[k]))
	}
	return values.Encode()
}
