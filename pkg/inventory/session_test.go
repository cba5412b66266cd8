package inventory

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferrumhealth/assetsync/pkg/errors"
	"github.com/ferrumhealth/assetsync/pkg/snipe"
)

func newTestSession(t *testing.T, handler http.Handler) *Session {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	api := snipe.New(srv.URL, "test-token",
		snipe.WithSleepFunc(func(time.Duration) {}),
		snipe.WithExitFunc(func(int) {}),
		snipe.WithRequestRate(10000),
		snipe.WithConnRetryDelay(0),
	)
	return NewSession(api)
}

func TestSessionLoadCachesByID(t *testing.T) {
	hits := 0
	s := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{"id": 7, "name": "EliteBook 840", "manufacturer": {"id": 3, "name": "HP"}}`))
	}))

	ctx := context.Background()
	first, err := s.Model(ctx, 7)
	require.NoError(t, err)
	second, err := s.Model(ctx, 7)
	require.NoError(t, err)

	assert.Same(t, first, second, "repeat loads must return the cached instance")
	assert.Equal(t, 1, hits)
	assert.Equal(t, "EliteBook 840", first.Name)
}

func TestSessionLoadRejectsZeroID(t *testing.T) {
	s := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))

	_, err := s.Model(context.Background(), 0)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestUpsertIdempotent(t *testing.T) {
	patches := 0
	s := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPatch:
			patches++
			w.Write([]byte(`{"status": "success", "payload": {"id": 42, "name": "WS-2", "asset_tag": "A1", "status_label": {"id": 2}, "model": {"id": 7}}}`))
		default:
			w.Write([]byte(`{"id": 42, "name": "WS-1", "asset_tag": "A1", "status_label": {"id": 2}, "model": {"id": 7}}`))
		}
	}))

	ctx := context.Background()
	asset, err := s.Asset(ctx, 42)
	require.NoError(t, err)

	asset.Name = "WS-2"
	require.NoError(t, Upsert(ctx, s, asset))
	assert.Equal(t, 1, patches)

	// Populate from the write response re-snapshots, so replaying the same
	// upsert touches nothing.
	require.NoError(t, Upsert(ctx, s, asset))
	assert.Equal(t, 1, patches)
}

func TestUpsertSendsOnlyDiff(t *testing.T) {
	var body string
	s := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch {
			raw, _ := io.ReadAll(r.Body)
			body = string(raw)
			w.Write([]byte(`{"status": "success", "payload": {"id": 42, "name": "WS-1", "asset_tag": "A1", "status_label": {"id": 2}, "model": {"id": 7}, "notes": "re-imaged"}}`))
			return
		}
		w.Write([]byte(`{"id": 42, "name": "WS-1", "asset_tag": "A1", "status_label": {"id": 2}, "model": {"id": 7}}`))
	}))

	ctx := context.Background()
	asset, err := s.Asset(ctx, 42)
	require.NoError(t, err)

	asset.Notes = "re-imaged"
	require.NoError(t, Upsert(ctx, s, asset))

	assert.Contains(t, body, "notes")
	assert.NotContains(t, body, "asset_tag", "unchanged fields must not be written")
}

func TestCreateBindsID(t *testing.T) {
	s := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte(`{"status": "success", "payload": {"id": 99, "name": "WS-9", "asset_tag": "A9", "status_label": {"id": 1}, "model": {"id": 7}}}`))
	}))

	ctx := context.Background()
	asset := s.NewAsset()
	asset.Name = "WS-9"
	asset.AssetTag = "A9"
	asset.StatusID = 1
	asset.ModelID = 7

	require.NoError(t, Upsert(ctx, s, asset))
	assert.Equal(t, 99, asset.ID)
	assert.True(t, asset.Identified())
}

func TestFindAssetBySerial(t *testing.T) {
	s := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "NOPE"):
			w.Write([]byte(`{"total": 0, "rows": []}`))
		case strings.Contains(r.URL.Path, "DUPE"):
			w.Write([]byte(`{"total": 2, "rows": [{"id": 1}, {"id": 2}]}`))
		default:
			w.Write([]byte(`{"total": 1, "rows": [{"id": 42, "name": "WS-1", "serial": "5CD1", "asset_tag": "A1", "status_label": {"id": 2}, "model": {"id": 7}}]}`))
		}
	}))

	ctx := context.Background()

	asset, err := FindAssetBySerial(ctx, s, "5CD1")
	require.NoError(t, err)
	require.NotNil(t, asset)
	assert.Equal(t, 42, asset.ID)

	asset, err = FindAssetBySerial(ctx, s, "NOPE")
	require.NoError(t, err)
	assert.Nil(t, asset)

	_, err = FindAssetBySerial(ctx, s, "DUPE")
	require.Error(t, err)
	assert.True(t, errors.IsAmbiguous(err))

	asset, err = FindAssetBySerial(ctx, s, "")
	require.NoError(t, err)
	assert.Nil(t, asset)
}

func TestFindAssetByTagMissing(t *testing.T) {
	s := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "error", "messages": "Asset does not exist."}`))
	}))

	asset, err := FindAssetByTag(context.Background(), s, "A404")
	require.NoError(t, err)
	assert.Nil(t, asset)
}

func TestFindAssetByMACVerifiesSlots(t *testing.T) {
	s := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Search over-matches: one row holds the MAC in a slot, the other
		// only mentions it in notes.
		w.Write([]byte(`{"total": 2, "rows": [
			{"id": 1, "name": "WS-1", "asset_tag": "A1", "status_label": {"id": 2}, "model": {"id": 7},
			 "notes": "replaced NIC 00:1B:44:11:22:33"},
			{"id": 2, "name": "WS-2", "asset_tag": "A2", "status_label": {"id": 2}, "model": {"id": 7},
			 "custom_fields": {"MAC Address 1": {"field": "_snipeit_mac_address_1_1", "value": "00:1B:44:11:22:33", "field_format": "MAC"}}}
		]}`))
	}))

	asset, err := FindAssetByMAC(context.Background(), s, "00:1b:44:11:22:33")
	require.NoError(t, err)
	require.NotNil(t, asset)
	assert.Equal(t, 2, asset.ID)
}

func TestFindAssetByNameExactMatchOnly(t *testing.T) {
	s := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total": 2, "rows": [
			{"id": 1, "name": "LAB-WS-01-OLD", "asset_tag": "A1", "status_label": {"id": 2}, "model": {"id": 7}},
			{"id": 2, "name": "LAB-WS-01", "asset_tag": "A2", "status_label": {"id": 2}, "model": {"id": 7}}
		]}`))
	}))

	asset, err := FindAssetByName(context.Background(), s, "lab-ws-01")
	require.NoError(t, err)
	require.NotNil(t, asset)
	assert.Equal(t, 2, asset.ID)
}

func TestFindManufacturerNormalizesName(t *testing.T) {
	var query string
	s := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("search")
		w.Write([]byte(`{"total": 1, "rows": [{"id": 3, "name": "Hewlett-Packard"}]}`))
	}))

	m, err := FindManufacturerByName(context.Background(), s, "HP Inc.")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "Hewlett-Packard", query)
	assert.Equal(t, 3, m.ID)
}

func TestEnsureManufacturerCreatesWhenAbsent(t *testing.T) {
	s := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Write([]byte(`{"status": "success", "payload": {"id": 11, "name": "Lenovo"}}`))
			return
		}
		w.Write([]byte(`{"total": 0, "rows": []}`))
	}))

	ctx := context.Background()
	m, err := EnsureManufacturer(ctx, s, "LENOVO")
	require.NoError(t, err)
	assert.Equal(t, 11, m.ID)

	// Second resolve hits the warm name cache; the cached GET would also do.
	again, err := FindManufacturerByName(ctx, s, "Lenovo")
	require.NoError(t, err)
	assert.Same(t, m, again)
}

func TestFindUserByUsernameRejectsServiceAccounts(t *testing.T) {
	s := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("service accounts must not reach the API")
	}))

	u, err := FindUserByUsername(context.Background(), s, "Administrator")
	require.NoError(t, err)
	assert.Nil(t, u)
}
