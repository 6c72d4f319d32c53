package weather

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/anidigital/harvest-hub/internal/config"
)

const readingJSON = `{"dt":1718000000,"weather":[{"main":"Rain","description":"light rain","icon":"10d"}],` +
	`"main":{"temp":300.15,"feels_like":302.15,"temp_min":299.15,"temp_max":301.15,"pressure":1008,"humidity":80},` +
	`"wind":{"speed":3.5,"deg":120},"clouds":{"all":75},"rain":{"3h":1.2}}`

type upstream struct {
	srv      *httptest.Server
	current  atomic.Int32
	forecast atomic.Int32
	polygons atomic.Int32
	created  map[string]any
	places   string
	status   int
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{places: `[{"lat":"16.4023","lon":"120.5960","display_name":"Baguio, Benguet"}]`}
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, body string) {
		w.Header().Set("Content-Type", "application/json")
		if u.status != 0 {
			w.WriteHeader(u.status)
		}
		_, _ = w.Write([]byte(body))
	}
	mux.HandleFunc("/weather", func(w http.ResponseWriter, r *http.Request) {
		u.current.Add(1)
		if r.URL.Query().Get("appid") != "k" {
			t.Errorf("appid = %q", r.URL.Query().Get("appid"))
		}
		writeJSON(w, readingJSON)
	})
	mux.HandleFunc("/weather/forecast", func(w http.ResponseWriter, r *http.Request) {
		u.forecast.Add(1)
		writeJSON(w, "["+readingJSON+","+readingJSON+"]")
	})
	mux.HandleFunc("/polygons", func(w http.ResponseWriter, r *http.Request) {
		u.polygons.Add(1)
		if r.Method == http.MethodPost {
			u.created = map[string]any{}
			_ = json.NewDecoder(r.Body).Decode(&u.created)
			writeJSON(w, `{"id":"poly1","name":"North field","center":[120.596,16.4023],"area":100.2,"created_at":1718000000}`)
			return
		}
		writeJSON(w, `[{"id":"poly1","name":"North field","center":[120.596,16.4023],"area":100.2,"created_at":1718000000}]`)
	})
	mux.HandleFunc("/polygons/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/polygons/poly1", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s", r.Method)
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "harvest-test" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		if r.URL.Query().Get("format") != "json" {
			t.Errorf("format = %q", r.URL.Query().Get("format"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(u.places))
	})
	u.srv = httptest.NewServer(mux)
	t.Cleanup(u.srv.Close)
	return u
}

func testConfig(u *upstream, apiKey string) config.WeatherConfig {
	return config.WeatherConfig{
		APIKey:       apiKey,
		BaseURL:      u.srv.URL,
		GeocodeURL:   u.srv.URL,
		UserAgent:    "harvest-test",
		Timeout:      5 * time.Second,
		CacheTTL:     time.Hour,
		CacheBackend: "memory",
		CacheSize:    16,
		PolygonKm:    1,
		UTCOffset:    8,
	}
}

func newTestClient(t *testing.T, u *upstream) *Client {
	t.Helper()
	cache, err := NewMemoryCache(16)
	if err != nil {
		t.Fatalf("NewMemoryCache: %v", err)
	}
	return New(testConfig(u, "k"), cache, zerolog.Nop())
}

var baguio = Point{Lat: 16.4023, Lon: 120.596}

func TestCurrent_ConvertsAndCaches(t *testing.T) {
	u := newUpstream(t)
	c := newTestClient(t, u)
	ctx := context.Background()

	got, err := c.Current(ctx, baguio)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if got.TempC != 27 || got.TempMaxC != 28 || got.Condition != "Rain" || got.RainMM != 1.2 || got.HumidityPct != 80 {
		t.Fatalf("conditions %+v", got)
	}
	if !got.Time.Equal(time.Unix(1718000000, 0)) {
		t.Fatalf("time = %v", got.Time)
	}

	// A nearby point rounds to the same cache entry.
	if _, err := c.Current(ctx, Point{Lat: 16.4011, Lon: 120.5988}); err != nil {
		t.Fatalf("Current cached: %v", err)
	}
	if n := u.current.Load(); n != 1 {
		t.Fatalf("upstream hits = %d; want 1", n)
	}
}

func TestCurrent_NoopCacheAlwaysFetches(t *testing.T) {
	u := newUpstream(t)
	c := New(testConfig(u, "k"), nil, zerolog.Nop())
	for i := 0; i < 2; i++ {
		if _, err := c.Current(context.Background(), baguio); err != nil {
			t.Fatalf("Current: %v", err)
		}
	}
	if n := u.current.Load(); n != 2 {
		t.Fatalf("upstream hits = %d; want 2", n)
	}
}

func TestClient_GuardsBeforeUpstream(t *testing.T) {
	u := newUpstream(t)
	disabled := New(testConfig(u, ""), nil, zerolog.Nop())
	ctx := context.Background()

	if disabled.Enabled() {
		t.Fatalf("client without key reports enabled")
	}
	if _, err := disabled.Current(ctx, baguio); !errors.Is(err, ErrDisabled) {
		t.Fatalf("Current disabled: %v", err)
	}
	if _, err := disabled.Polygons(ctx); !errors.Is(err, ErrDisabled) {
		t.Fatalf("Polygons disabled: %v", err)
	}
	c := newTestClient(t, u)
	if _, err := c.Forecast(ctx, Point{Lat: 91, Lon: 0}); !errors.Is(err, ErrInvalidCoordinates) {
		t.Fatalf("bad lat: %v", err)
	}
	if _, err := c.Current(ctx, Point{Lat: math.NaN(), Lon: 0}); !errors.Is(err, ErrInvalidCoordinates) {
		t.Fatalf("NaN lat: %v", err)
	}
	if u.current.Load() != 0 || u.forecast.Load() != 0 || u.polygons.Load() != 0 {
		t.Fatalf("upstream was called")
	}
}

func TestForecast_UpstreamError(t *testing.T) {
	u := newUpstream(t)
	u.status = http.StatusUnauthorized
	c := newTestClient(t, u)

	if _, err := c.Forecast(context.Background(), baguio); !errors.Is(err, ErrUpstream) {
		t.Fatalf("err = %v; want ErrUpstream", err)
	}
	// Failures are not cached.
	u.status = 0
	list, err := c.Forecast(context.Background(), baguio)
	if err != nil || len(list) != 2 {
		t.Fatalf("retry: %d err=%v", len(list), err)
	}
}

func TestDaily_UsesForecast(t *testing.T) {
	u := newUpstream(t)
	c := newTestClient(t, u)
	days, err := c.Daily(context.Background(), baguio)
	if err != nil {
		t.Fatalf("Daily: %v", err)
	}
	if len(days) != 1 || days[0].RainMM != 2.4 || days[0].Condition != "Rain" {
		t.Fatalf("days %+v", days)
	}
}

func TestCreatePolygon_GeocodesAndSendsSquare(t *testing.T) {
	u := newUpstream(t)
	c := newTestClient(t, u)
	ctx := context.Background()

	p, err := c.CreatePolygon(ctx, " North field ", "Baguio")
	if err != nil {
		t.Fatalf("CreatePolygon: %v", err)
	}
	if p.ID != "poly1" || p.Center.Lat != 16.4023 || p.AreaHa != 100.2 {
		t.Fatalf("polygon %+v", p)
	}
	if u.created["name"] != "North field" {
		t.Fatalf("sent name %v", u.created["name"])
	}
	geo := u.created["geo_json"].(map[string]any)["geometry"].(map[string]any)
	rings := geo["coordinates"].([]any)
	if geo["type"] != "Polygon" || len(rings) != 1 || len(rings[0].([]any)) != 5 {
		t.Fatalf("geometry %v", geo)
	}

	if _, err := c.CreatePolygon(ctx, "", "Baguio"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank name: %v", err)
	}
	u.places = `[]`
	if _, err := c.CreatePolygon(ctx, "South", "Atlantis"); !errors.Is(err, ErrLocationNotFound) {
		t.Fatalf("unknown place: %v", err)
	}
}

func TestPolygons_NotCached(t *testing.T) {
	u := newUpstream(t)
	c := newTestClient(t, u)
	for i := 0; i < 2; i++ {
		list, err := c.Polygons(context.Background())
		if err != nil || len(list) != 1 || list[0].Name != "North field" {
			t.Fatalf("Polygons: %+v err=%v", list, err)
		}
	}
	if n := u.polygons.Load(); n != 2 {
		t.Fatalf("upstream hits = %d; want 2", n)
	}
}

func TestDeletePolygon(t *testing.T) {
	u := newUpstream(t)
	c := newTestClient(t, u)
	if err := c.DeletePolygon(context.Background(), "poly1"); err != nil {
		t.Fatalf("DeletePolygon: %v", err)
	}
	if err := c.DeletePolygon(context.Background(), "missing"); !errors.Is(err, ErrPolygonNotFound) {
		t.Fatalf("missing: %v", err)
	}
}
