package weather

import (
	"math"
	"time"
)

// DailyForecast summarises one calendar day of readings.
type DailyForecast struct {
	Date        string  `json:"date"`
	TempMinC    float64 `json:"temp_min_c"`
	TempMaxC    float64 `json:"temp_max_c"`
	HumidityPct float64 `json:"humidity_pct"` // mean
	RainMM      float64 `json:"rain_mm"`      // total
	Condition   string  `json:"condition"`    // most frequent
	Icon        string  `json:"icon"`
}

// AggregateDaily groups readings by calendar day in zone. Days keep the
// order in which they first appear.
func AggregateDaily(readings []Conditions, zone *time.Location) []DailyForecast {
	if zone == nil {
		zone = time.UTC
	}
	type acc struct {
		day      DailyForecast
		humidity float64
		n        int
		counts   map[string]int
		icons    map[string]string
		order    []string
	}
	var days []*acc
	byDate := map[string]*acc{}

	for _, r := range readings {
		date := r.Time.In(zone).Format("2006-01-02")
		a, ok := byDate[date]
		if !ok {
			a = &acc{
				day:    DailyForecast{Date: date, TempMinC: math.Inf(1), TempMaxC: math.Inf(-1)},
				counts: map[string]int{},
				icons:  map[string]string{},
			}
			byDate[date] = a
			days = append(days, a)
		}
		a.day.TempMinC = math.Min(a.day.TempMinC, r.TempMinC)
		a.day.TempMaxC = math.Max(a.day.TempMaxC, r.TempMaxC)
		a.day.RainMM += r.RainMM
		a.humidity += r.HumidityPct
		a.n++
		if r.Condition != "" {
			if _, seen := a.counts[r.Condition]; !seen {
				a.order = append(a.order, r.Condition)
				a.icons[r.Condition] = r.Icon
			}
			a.counts[r.Condition]++
		}
	}

	out := make([]DailyForecast, 0, len(days))
	for _, a := range days {
		best := 0
		for _, cond := range a.order {
			if a.counts[cond] > best {
				best = a.counts[cond]
				a.day.Condition = cond
				a.day.Icon = a.icons[cond]
			}
		}
		a.day.HumidityPct = round1(a.humidity / float64(a.n))
		a.day.RainMM = round1(a.day.RainMM)
		out = append(out, a.day)
	}
	return out
}
