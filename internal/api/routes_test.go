package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sectorwatch/internal/gw2api"
	"sectorwatch/internal/notify"
	"sectorwatch/internal/store"
	"sectorwatch/internal/tracker"
)

type source struct{ fail bool }

func (s source) Map(ctx context.Context, lang string, id int) (*gw2api.Map, error) {
	if s.fail {
		return nil, &gw2api.StatusError{Code: 503}
	}
	if id != 50 {
		return nil, &gw2api.StatusError{Code: 404}
	}
	return &gw2api.Map{
		ID: 50, Name: "Test Fields", RegionName: "Kryta", ContinentID: 1, RegionID: 4, Floors: []int{1},
		MapRect: [2][2]float64{{0, 0}, {100, 100}}, ContinentRect: [2][2]float64{{0, 0}, {100, 100}},
	}, nil
}

func (s source) Sectors(ctx context.Context, lang string, q gw2api.SectorQuery) ([]gw2api.Sector, error) {
	return []gw2api.Sector{
		{ID: 7, Name: "Plains", Bounds: [][2]float64{{0, 0}, {50, 0}, {50, 50}, {0, 50}}},
		{ID: 8, Name: "Hills (Squad)", Bounds: [][2]float64{{50, 0}, {100, 0}, {100, 50}, {50, 50}}},
	}, nil
}

type visits []store.Visit

func (v visits) Recent(ctx context.Context, limit int) ([]store.Visit, error) {
	if limit == 1 {
		return nil, errors.New("db down")
	}
	return v, nil
}

func newServer(t *testing.T, src gw2api.Source, d Deps) *httptest.Server {
	d.Core = tracker.New(src, notify.Func(func(context.Context, notify.Event) error { return nil }), tracker.DefaultOptions())
	srv := httptest.NewServer(NewRouter("/api", d))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestMapAndSectorRoutes(t *testing.T) {
	srv := newServer(t, source{}, Deps{})

	resp, body := do(t, http.MethodGet, srv.URL+"/api/maps/50", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Test Fields", body["name"])

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/maps/51", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// 大陆点 (75, 25)
	resp, body = do(t, http.MethodGet, srv.URL+"/api/maps/50/sector?x=1.905&y=0&z=1.905", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["found"])
	assert.Equal(t, "Hills", body["display"])
	sec := body["sector"].(map[string]any)
	assert.Equal(t, float64(8), sec["id"])

	resp, body = do(t, http.MethodGet, srv.URL+"/api/maps/50/sector?x=1.27&z=0.254", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["found"])

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/maps/50/sector?x=abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/maps/abc", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpstreamFailure(t *testing.T) {
	srv := newServer(t, source{fail: true}, Deps{})
	resp, body := do(t, http.MethodGet, srv.URL+"/api/maps/50", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body["error"], "503")
}

func TestLocaleStatusAndCache(t *testing.T) {
	var mu sync.Mutex
	var purged []int
	srv := newServer(t, source{}, Deps{Purgers: []Purge{func(ctx context.Context, lang string, id int) error {
		mu.Lock()
		defer mu.Unlock()
		purged = append(purged, id)
		return errors.New("redis down")
	}}})

	_, _ = do(t, http.MethodGet, srv.URL+"/api/maps/50", "")
	_, body := do(t, http.MethodGet, srv.URL+"/api/status", "")
	assert.Equal(t, "en", body["lang"])
	assert.Equal(t, float64(1), body["cached_maps"])

	resp, _ := do(t, http.MethodDelete, srv.URL+"/api/maps/50/cache", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	mu.Lock()
	assert.Equal(t, []int{50}, purged)
	mu.Unlock()
	_, body = do(t, http.MethodGet, srv.URL+"/api/status", "")
	assert.Equal(t, float64(0), body["cached_maps"])

	resp, _ = do(t, http.MethodPut, srv.URL+"/api/locale", `{"lang":"fr"}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_, body = do(t, http.MethodGet, srv.URL+"/api/status", "")
	assert.Equal(t, "fr", body["lang"])

	resp, _ = do(t, http.MethodPut, srv.URL+"/api/locale", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = do(t, http.MethodPost, srv.URL+"/api/locale", `{"lang":"de"}`)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestVisits(t *testing.T) {
	srv := newServer(t, source{}, Deps{})
	resp, _ := do(t, http.MethodGet, srv.URL+"/api/visits", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	v := visits{{EventID: "e1", Kind: notify.KindSectorChanged, MapID: 50, SectorID: 7, Text: "Plains", VisitedAt: time.Now()}}
	srv = newServer(t, source{}, Deps{Visits: v})
	resp, err := http.Get(srv.URL + "/api/visits")
	require.NoError(t, err)
	defer resp.Body.Close()
	var got []store.Visit
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "Plains", got[0].Text)

	resp2, _ := do(t, http.MethodGet, srv.URL+"/api/visits?limit=1", "")
	assert.Equal(t, http.StatusInternalServerError, resp2.StatusCode)
}

func TestMetricsRoute(t *testing.T) {
	srv := newServer(t, source{}, Deps{})
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMethodMismatchIs405(t *testing.T) {
	core := tracker.New(source{}, notify.Func(func(context.Context, notify.Event) error { return nil }), tracker.DefaultOptions())
	for _, base := range []string{"", "/", "/api/v1/"} {
		srv := httptest.NewServer(NewRouter(base, Deps{Core: core}))
		prefix := strings.TrimRight("/"+strings.Trim(base, "/"), "/")

		resp, _ := do(t, http.MethodGet, srv.URL+prefix+"/status", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode, base)
		resp, _ = do(t, http.MethodPost, srv.URL+prefix+"/status", "")
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, base)
		resp, _ = do(t, http.MethodGet, srv.URL+prefix+"/maps/50/cache", "")
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, base)
		srv.Close()
	}
}
