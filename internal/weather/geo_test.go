package weather

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/anidigital/harvest-hub/internal/config"
)

func TestSquareAround(t *testing.T) {
	p := Point{Lat: 14.6, Lon: 121.0}
	ring := SquareAround(p, 1)
	if len(ring) != 5 || ring[0] != ring[4] {
		t.Fatalf("ring not closed: %v", ring)
	}
	sw, ne := ring[0], ring[2]
	if !(sw[1] < p.Lat && p.Lat < ne[1] && sw[0] < p.Lon && p.Lon < ne[0]) {
		t.Fatalf("point outside square: %v", ring)
	}
	if side := (ne[1] - sw[1]) * kmPerDegreeLat; math.Abs(side-1) > 0.01 {
		t.Fatalf("north-south side = %.4f km", side)
	}
	ewKm := (ne[0] - sw[0]) * kmPerDegreeLat * math.Cos(p.Lat*math.Pi/180)
	if math.Abs(ewKm-1) > 0.01 {
		t.Fatalf("east-west side = %.4f km", ewKm)
	}
}

func TestPointValid(t *testing.T) {
	cases := []struct {
		p    Point
		want bool
	}{
		{Point{0, 0}, true},
		{Point{-90, 180}, true},
		{Point{90.1, 0}, false},
		{Point{0, -180.5}, false},
		{Point{math.NaN(), 0}, false},
	}
	for _, tc := range cases {
		if got := tc.p.Valid(); got != tc.want {
			t.Errorf("%+v.Valid() = %v", tc.p, got)
		}
	}
}

func TestAggregateDaily(t *testing.T) {
	zone := time.FixedZone("PHT", 8*3600)
	at := func(s string) time.Time {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			t.Fatal(err)
		}
		return ts
	}
	readings := []Conditions{
		// 2024-06-10 23:00 local
		{Time: at("2024-06-10T15:00:00Z"), TempMinC: 20, TempMaxC: 22, HumidityPct: 90, RainMM: 1, Condition: "Rain", Icon: "10n"},
		// 2024-06-11 02:00 local
		{Time: at("2024-06-10T18:00:00Z"), TempMinC: 19, TempMaxC: 21, HumidityPct: 80, Condition: "Clouds", Icon: "04n"},
		{Time: at("2024-06-10T21:00:00Z"), TempMinC: 21, TempMaxC: 25, HumidityPct: 70, RainMM: 0.2, Condition: "Rain", Icon: "10d"},
		{Time: at("2024-06-11T00:00:00Z"), TempMinC: 24, TempMaxC: 30, HumidityPct: 60, RainMM: 0.4, Condition: "Rain", Icon: "10d"},
	}
	days := AggregateDaily(readings, zone)
	if len(days) != 2 || days[0].Date != "2024-06-10" || days[1].Date != "2024-06-11" {
		t.Fatalf("days %+v", days)
	}
	d := days[1]
	if d.TempMinC != 19 || d.TempMaxC != 30 || d.HumidityPct != 70 || d.RainMM != 0.6 {
		t.Fatalf("day %+v", d)
	}
	if d.Condition != "Rain" || d.Icon != "10d" {
		t.Fatalf("dominant condition %q icon %q", d.Condition, d.Icon)
	}
	if got := AggregateDaily(nil, nil); len(got) != 0 {
		t.Fatalf("empty input gave %v", got)
	}
}

func TestMemoryCache_Expires(t *testing.T) {
	c, err := NewMemoryCache(2)
	if err != nil {
		t.Fatalf("NewMemoryCache: %v", err)
	}
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.Set(ctx, "a", []byte("1"), time.Minute)
	if v, ok := c.Get(ctx, "a"); !ok || string(v) != "1" {
		t.Fatalf("fresh entry missing")
	}
	now = now.Add(time.Minute)
	if _, ok := c.Get(ctx, "a"); ok {
		t.Fatalf("entry should expire at its deadline")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not evicted")
	}

	c.Set(ctx, "x", nil, time.Hour)
	c.Set(ctx, "y", nil, time.Hour)
	c.Set(ctx, "z", nil, time.Hour)
	if _, ok := c.Get(ctx, "x"); ok {
		t.Fatalf("least recently used entry should be evicted")
	}
}

func TestNewCache(t *testing.T) {
	if c, err := NewCache(config.WeatherConfig{CacheBackend: "noop"}); err != nil {
		t.Fatalf("noop: %v", err)
	} else if _, ok := c.(NoopCache); !ok {
		t.Fatalf("noop backend gave %T", c)
	}
	if c, err := NewCache(config.WeatherConfig{CacheBackend: "memory", CacheSize: 4}); err != nil {
		t.Fatalf("memory: %v", err)
	} else if _, ok := c.(*MemoryCache); !ok {
		t.Fatalf("memory backend gave %T", c)
	}
	if _, err := NewCache(config.WeatherConfig{CacheBackend: "redis", RedisURL: "not a url"}); err == nil {
		t.Fatalf("bad redis url accepted")
	}
}
