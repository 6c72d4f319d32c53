// Package weather is the Agromonitoring client behind the weather advisory
// endpoints. Readings are cached for the configured TTL; polygon listings
// and mutations always go upstream.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/anidigital/harvest-hub/internal/config"
	"github.com/anidigital/harvest-hub/internal/observability"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	providerAgro      = "agromonitoring"
	providerNominatim = "nominatim"
)

var (
	ErrDisabled           = errors.New("weather not configured")
	ErrUpstream           = errors.New("weather provider failed")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrInvalidInput       = errors.New("invalid input")
	ErrLocationNotFound   = errors.New("location not found")
	ErrPolygonNotFound    = errors.New("polygon not found")
)

// Conditions is one observed or forecast reading, in metric units.
type Conditions struct {
	Time        time.Time `json:"time"`
	Condition   string    `json:"condition"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	TempC       float64   `json:"temp_c"`
	FeelsLikeC  float64   `json:"feels_like_c"`
	TempMinC    float64   `json:"temp_min_c"`
	TempMaxC    float64   `json:"temp_max_c"`
	HumidityPct float64   `json:"humidity_pct"`
	PressureHPa float64   `json:"pressure_hpa"`
	WindSpeedMS float64   `json:"wind_speed_ms"`
	WindDeg     float64   `json:"wind_deg"`
	CloudsPct   float64   `json:"clouds_pct"`
	RainMM      float64   `json:"rain_mm"`
}

// Polygon is a tracked farm area.
type Polygon struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Center    Point     `json:"center"`
	AreaHa    float64   `json:"area_ha"`
	CreatedAt time.Time `json:"created_at"`
}

// Place is a geocoding result.
type Place struct {
	Point
	DisplayName string `json:"display_name"`
}

// Client talks to Agromonitoring and Nominatim.
type Client struct {
	agro      *resty.Client
	geo       *resty.Client
	apiKey    string
	cache     Cache
	ttl       time.Duration
	zone      *time.Location
	polygonKm float64
	log       zerolog.Logger
}

// New builds a client. A nil cache disables caching.
func New(cfg config.WeatherConfig, cache Cache, log zerolog.Logger) *Client {
	if cache == nil {
		cache = NoopCache{}
	}
	return &Client{
		agro: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetTimeout(cfg.Timeout).
			SetHeader("Accept", "application/json"),
		geo: resty.New().
			SetBaseURL(strings.TrimRight(cfg.GeocodeURL, "/")).
			SetTimeout(cfg.Timeout).
			SetHeader("User-Agent", cfg.UserAgent).
			SetHeader("Accept", "application/json"),
		apiKey:    strings.TrimSpace(cfg.APIKey),
		cache:     cache,
		ttl:       cfg.CacheTTL,
		zone:      time.FixedZone("local", cfg.UTCOffset*3600),
		polygonKm: cfg.PolygonKm,
		log:       log,
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool { return c.apiKey != "" }

// Current returns the latest observation at p.
func (c *Client) Current(ctx context.Context, p Point) (*Conditions, error) {
	tr := otel.Tracer("weather/Client")
	ctx, span := tr.Start(ctx, "Current", trace.WithAttributes(pointAttrs(p)...))
	defer span.End()

	if err := c.check(p); err != nil {
		return nil, err
	}
	var out Conditions
	err := c.cached(ctx, cacheKey("current", p), &out, func() (any, error) {
		var raw rawReading
		if err := c.get(ctx, "/weather", p, &raw); err != nil {
			return nil, err
		}
		return raw.conditions(), nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Forecast returns the hourly (3-hour step) forecast at p.
func (c *Client) Forecast(ctx context.Context, p Point) ([]Conditions, error) {
	tr := otel.Tracer("weather/Client")
	ctx, span := tr.Start(ctx, "Forecast", trace.WithAttributes(pointAttrs(p)...))
	defer span.End()

	if err := c.check(p); err != nil {
		return nil, err
	}
	var out []Conditions
	err := c.cached(ctx, cacheKey("forecast", p), &out, func() (any, error) {
		var raw []rawReading
		if err := c.get(ctx, "/weather/forecast", p, &raw); err != nil {
			return nil, err
		}
		list := make([]Conditions, 0, len(raw))
		for _, r := range raw {
			list = append(list, r.conditions())
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Daily aggregates the forecast at p into calendar days in the configured
// zone.
func (c *Client) Daily(ctx context.Context, p Point) ([]DailyForecast, error) {
	hourly, err := c.Forecast(ctx, p)
	if err != nil {
		return nil, err
	}
	return AggregateDaily(hourly, c.zone), nil
}

// Polygons lists the farm areas registered under the API key.
func (c *Client) Polygons(ctx context.Context) ([]Polygon, error) {
	tr := otel.Tracer("weather/Client")
	ctx, span := tr.Start(ctx, "Polygons")
	defer span.End()

	if !c.Enabled() {
		return nil, ErrDisabled
	}
	var raw []rawPolygon
	resp, err := c.agro.R().
		SetContext(ctx).
		SetQueryParam("appid", c.apiKey).
		SetResult(&raw).
		Get("/polygons")
	if err = upstreamErr(ctx, providerAgro, resp, err); err != nil {
		return nil, err
	}
	out := make([]Polygon, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.polygon())
	}
	return out, nil
}

// CreatePolygon geocodes location and registers a square farm area around
// the resulting point.
func (c *Client) CreatePolygon(ctx context.Context, name, location string) (*Polygon, error) {
	tr := otel.Tracer("weather/Client")
	ctx, span := tr.Start(ctx, "CreatePolygon", trace.WithAttributes(attribute.String("polygon.name", name)))
	defer span.End()

	if !c.Enabled() {
		return nil, ErrDisabled
	}
	name = strings.TrimSpace(name)
	if name == "" || strings.TrimSpace(location) == "" {
		return nil, ErrInvalidInput
	}
	place, err := c.Geocode(ctx, location)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"name": name,
		"geo_json": map[string]any{
			"type":       "Feature",
			"properties": map[string]any{},
			"geometry": map[string]any{
				"type":        "Polygon",
				"coordinates": [][][2]float64{SquareAround(place.Point, c.polygonKm)},
			},
		},
	}
	var raw rawPolygon
	resp, err := c.agro.R().
		SetContext(ctx).
		SetQueryParam("appid", c.apiKey).
		SetBody(body).
		SetResult(&raw).
		Post("/polygons")
	if err = upstreamErr(ctx, providerAgro, resp, err); err != nil {
		return nil, err
	}
	p := raw.polygon()
	c.log.Info().Str("polygon_id", p.ID).Str("place", place.DisplayName).Msg("weather polygon created")
	return &p, nil
}

// DeletePolygon removes a farm area.
func (c *Client) DeletePolygon(ctx context.Context, id string) error {
	tr := otel.Tracer("weather/Client")
	ctx, span := tr.Start(ctx, "DeletePolygon", trace.WithAttributes(attribute.String("polygon.id", id)))
	defer span.End()

	if !c.Enabled() {
		return ErrDisabled
	}
	if strings.TrimSpace(id) == "" {
		return ErrInvalidInput
	}
	resp, err := c.agro.R().
		SetContext(ctx).
		SetQueryParam("appid", c.apiKey).
		SetPathParam("id", id).
		Delete("/polygons/{id}")
	if err == nil && resp.StatusCode() == 404 {
		observability.ObserveExternal(providerAgro, nil)
		return ErrPolygonNotFound
	}
	return upstreamErr(ctx, providerAgro, resp, err)
}

// Geocode resolves a free-text location to its best match.
func (c *Client) Geocode(ctx context.Context, query string) (*Place, error) {
	tr := otel.Tracer("weather/Client")
	ctx, span := tr.Start(ctx, "Geocode")
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidInput
	}
	var raw []rawPlace
	resp, err := c.geo.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":      query,
			"format": "json",
			"limit":  "1",
		}).
		SetResult(&raw).
		Get("/search")
	if err = upstreamErr(ctx, providerNominatim, resp, err); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, ErrLocationNotFound
	}
	place, err := raw[0].place()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return place, nil
}

func (c *Client) check(p Point) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	if !p.Valid() {
		return ErrInvalidCoordinates
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, p Point, out any) error {
	resp, err := c.agro.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":   fmt.Sprintf("%.6f", p.Lat),
			"lon":   fmt.Sprintf("%.6f", p.Lon),
			"appid": c.apiKey,
		}).
		SetResult(out).
		Get(path)
	return upstreamErr(ctx, providerAgro, resp, err)
}

// cached decodes the entry under key into out, or runs fetch, stores its
// encoded result and decodes that.
func (c *Client) cached(ctx context.Context, key string, out any, fetch func() (any, error)) error {
	if b, ok := c.cache.Get(ctx, key); ok {
		if err := json.Unmarshal(b, out); err == nil {
			observability.WeatherCache.WithLabelValues("hit").Inc()
			return nil
		}
		c.log.Warn().Str("key", key).Msg("weather cache entry undecodable")
	}
	observability.WeatherCache.WithLabelValues("miss").Inc()

	v, err := fetch()
	if err != nil {
		return err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.cache.Set(ctx, key, b, c.ttl)
	return json.Unmarshal(b, out)
}

// cacheKey rounds to two decimals (about 1 km) so nearby lookups share an
// entry.
func cacheKey(kind string, p Point) string {
	return fmt.Sprintf("weather:%s:%.2f,%.2f", kind, p.Lat, p.Lon)
}

// upstreamErr classifies one outbound call and records the outcome on the
// metrics and the current span.
func upstreamErr(ctx context.Context, provider string, resp *resty.Response, err error) error {
	return observability.SpanError(trace.SpanFromContext(ctx), classify(provider, resp, err))
}

func classify(provider string, resp *resty.Response, err error) error {
	if err != nil {
		observability.ObserveExternal(provider, err)
		return fmt.Errorf("%w: %s: %w", ErrUpstream, provider, err)
	}
	if resp.IsError() {
		err = fmt.Errorf("%w: %s status %d: %s", ErrUpstream, provider, resp.StatusCode(), clip(resp.String(), 200))
		observability.ObserveExternal(provider, err)
		return err
	}
	observability.ObserveExternal(provider, nil)
	return nil
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func pointAttrs(p Point) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Float64("geo.lat", p.Lat),
		attribute.Float64("geo.lon", p.Lon),
	}
}
