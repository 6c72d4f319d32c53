package weather

import (
	"math"
)

const kmPerDegreeLat = 111.32

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether p is a finite coordinate on the globe.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// SquareAround returns a closed GeoJSON ring ([lon, lat] pairs,
// counterclockwise) of a square with side sideKm centred on p.
func SquareAround(p Point, sideKm float64) [][2]float64 {
	half := sideKm / 2
	dLat := half / kmPerDegreeLat
	dLon := half / (kmPerDegreeLat * math.Cos(p.Lat*math.Pi/180))

	s, n := round6(p.Lat-dLat), round6(p.Lat+dLat)
	w, e := round6(p.Lon-dLon), round6(p.Lon+dLon)
	return [][2]float64{{w, s}, {e, s}, {e, n}, {w, n}, {w, s}}
}

func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func kelvinToC(k float64) float64 { return round1(k - 273.15) }
