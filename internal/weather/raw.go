package weather

import (
	"strconv"
	"time"
)

// Upstream payload shapes. Agromonitoring reports temperatures in Kelvin.

type rawReading struct {
	Dt      int64 `json:"dt"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Pressure  float64 `json:"pressure"`
		Humidity  float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
	Clouds struct {
		All float64 `json:"all"`
	} `json:"clouds"`
	Rain map[string]float64 `json:"rain"`
}

func (r rawReading) conditions() Conditions {
	c := Conditions{
		Time:        time.Unix(r.Dt, 0).UTC(),
		TempC:       kelvinToC(r.Main.Temp),
		FeelsLikeC:  kelvinToC(r.Main.FeelsLike),
		TempMinC:    kelvinToC(r.Main.TempMin),
		TempMaxC:    kelvinToC(r.Main.TempMax),
		HumidityPct: r.Main.Humidity,
		PressureHPa: r.Main.Pressure,
		WindSpeedMS: r.Wind.Speed,
		WindDeg:     r.Wind.Deg,
		CloudsPct:   r.Clouds.All,
	}
	if len(r.Weather) > 0 {
		c.Condition = r.Weather[0].Main
		c.Description = r.Weather[0].Description
		c.Icon = r.Weather[0].Icon
	}
	if v, ok := r.Rain["3h"]; ok {
		c.RainMM = v
	} else {
		c.RainMM = r.Rain["1h"]
	}
	return c
}

type rawPolygon struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Center    [2]float64 `json:"center"` // [lon, lat]
	Area      float64    `json:"area"`
	CreatedAt int64      `json:"created_at"`
}

func (r rawPolygon) polygon() Polygon {
	return Polygon{
		ID:        r.ID,
		Name:      r.Name,
		Center:    Point{Lat: r.Center[1], Lon: r.Center[0]},
		AreaHa:    r.Area,
		CreatedAt: time.Unix(r.CreatedAt, 0).UTC(),
	}
}

type rawPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (r rawPlace) place() (*Place, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return nil, err
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return nil, err
	}
	return &Place{Point: Point{Lat: lat, Lon: lon}, DisplayName: r.DisplayName}, nil
}
