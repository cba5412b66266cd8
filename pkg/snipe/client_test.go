package snipe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferrumhealth/assetsync/pkg/errors"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	base := []Option{
		WithSleepFunc(func(time.Duration) {}),
		WithExitFunc(func(int) {}),
		WithRequestRate(10000),
		WithConnRetryDelay(0),
	}
	c := New(srv.URL, "test-token", append(base, opts...)...)
	return c, srv
}

func TestCallSendsAuthHeaders(t *testing.T) {
	var gotAuth, gotAccept string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(`{"total": 0, "rows": []}`))
	}))

	_, err := c.Call(context.Background(), http.MethodGet, "hardware", nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "application/json", gotAccept)
}

func TestCallGetPayloadBecomesQueryString(t *testing.T) {
	var gotQuery string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"total": 0, "rows": []}`))
	}))

	_, err := c.Call(context.Background(), http.MethodGet, "hardware", map[string]any{
		"search": "ABC123",
		"limit":  500,
	})
	require.NoError(t, err)
	assert.Equal(t, "limit=500&search=ABC123", gotQuery)
}

func TestCallCachesGetResponses(t *testing.T) {
	hits := 0
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{"total": 0, "rows": []}`))
	}))

	ctx := context.Background()
	_, err := c.Call(ctx, http.MethodGet, "hardware", nil)
	require.NoError(t, err)
	_, err = c.Call(ctx, http.MethodGet, "hardware", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, hits, "second GET should be served from cache")
}

func TestMutationInvalidatesCachedPrefix(t *testing.T) {
	hits := 0
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			hits++
		}
		w.Write([]byte(`{"status": "success", "total": 0, "rows": [], "payload": {}}`))
	}))

	ctx := context.Background()
	_, err := c.Call(ctx, http.MethodGet, "hardware/42", nil)
	require.NoError(t, err)

	// A write to the hardware endpoint must drop every cached hardware read.
	_, err = c.Call(ctx, http.MethodPatch, "hardware/42", map[string]any{"name": "X"})
	require.NoError(t, err)

	_, err = c.Call(ctx, http.MethodGet, "hardware/42", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, hits, "cached GET should be refetched after the write")
}

func TestMutationDoesNotInvalidateUnrelatedPrefix(t *testing.T) {
	hits := 0
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			hits++
		}
		w.Write([]byte(`{"status": "success", "total": 0, "rows": [], "payload": {}}`))
	}))

	ctx := context.Background()
	_, err := c.Call(ctx, http.MethodGet, "models", nil)
	require.NoError(t, err)

	_, err = c.Call(ctx, http.MethodPatch, "hardware/42", map[string]any{"name": "X"})
	require.NoError(t, err)

	_, err = c.Call(ctx, http.MethodGet, "models", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, hits, "models cache entry should survive a hardware write")
}

func TestRateLimitBackoffRetries(t *testing.T) {
	attempts := 0
	var slept []time.Duration
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"total": 0, "rows": []}`))
	}), WithBackoffBase(time.Second), WithSleepFunc(func(d time.Duration) {
		slept = append(slept, d)
	}))

	_, err := c.Call(context.Background(), http.MethodGet, "hardware", nil)
	require.NoError(t, err)

	assert.Equal(t, 3, attempts)
	// Counter grows 1, 2; the success decays it back to 1.
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, slept)
	assert.Equal(t, 1, c.backoff)
}

func TestConnectionFailureIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // all requests now fail at the transport level

	exitCode := -1
	c := New(srv.URL, "token",
		WithSleepFunc(func(time.Duration) {}),
		WithConnRetryDelay(0),
		WithConnRetries(2),
		WithRequestRate(10000),
		WithExitFunc(func(code int) { exitCode = code }),
	)

	_, err := c.Call(context.Background(), http.MethodGet, "hardware", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConnectionFailed))
	assert.Equal(t, ExitConnectionFailure, exitCode)
}

func TestSearchPaginates(t *testing.T) {
	var offsets []string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offsets = append(offsets, r.URL.Query().Get("offset"))
		switch r.URL.Query().Get("offset") {
		case "0":
			w.Write([]byte(`{"total": 3, "rows": [{"id": 1}, {"id": 2}]}`))
		default:
			w.Write([]byte(`{"total": 3, "rows": [{"id": 3}]}`))
		}
	}), WithPageSize(2))

	page, err := c.Search(context.Background(), "hardware", "LAB")
	require.NoError(t, err)

	assert.Equal(t, []string{"0", "2"}, offsets)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Rows, 3)
}

func TestSearchEmptyQueryShortCircuits(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for an empty query")
	}))

	page, err := c.Search(context.Background(), "hardware", "")
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
	assert.Empty(t, page.Rows)
}

func TestSearchMissingTotalIsContractError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rows": []}`))
	}))

	_, err := c.Search(context.Background(), "hardware", "LAB")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBadContract))
}

func TestMutateUnwrapsEnvelope(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "success", "payload": {"id": 7, "name": "WS-1"}}`))
	}))

	payload, err := c.Mutate(context.Background(), http.MethodPost, "hardware", map[string]any{"name": "WS-1"})
	require.NoError(t, err)

	var row map[string]any
	require.NoError(t, json.Unmarshal(payload, &row))
	assert.Equal(t, float64(7), row["id"])
}

func TestMutateErrorStatus(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "error", "messages": {"asset_tag": ["already taken"]}, "payload": null}`))
	}))

	_, err := c.Mutate(context.Background(), http.MethodPost, "hardware", map[string]any{"name": "WS-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already taken")
}

func TestMutateMissingStatusIsContractError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 7}`))
	}))

	_, err := c.Mutate(context.Background(), http.MethodPost, "hardware", map[string]any{"name": "WS-1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBadContract))
}

func TestAliasEndpoint(t *testing.T) {
	assert.Equal(t, "categories/3", aliasEndpoint("category/3"))
	assert.Equal(t, "companies", aliasEndpoint("company"))
	assert.Equal(t, "categories", aliasEndpoint("categories"))
	assert.Equal(t, "hardware/bytag/A1", aliasEndpoint("hardware/bytag/A1"))
}

func TestResponseCacheTTL(t *testing.T) {
	cache := newResponseCache(time.Minute)
	now := time.Unix(0, 0)
	cache.now = func() time.Time { return now }

	cache.put("u", []byte("body"))
	assert.Equal(t, []byte("body"), cache.get("u"))

	now = now.Add(2 * time.Minute)
	assert.Nil(t, cache.get("u"))
	assert.Equal(t, 0, cache.len())
}
