package performance

import (
	"sort"
	"time"
)

// MonthlyGrid holds month-end-to-month-end returns by year and month (1..12)
type MonthlyGrid map[int]map[time.Month]float64

// Years returns the years in ascending order
func (g MonthlyGrid) Years() []int {
	years := make([]int, 0, len(g))
	for y := range g {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// MonthlyReturns resamples points to month-end values and returns the change
// between consecutive month ends. The first month has no prior month and is omitted.
func MonthlyReturns(points []Point) MonthlyGrid {
	type monthKey struct {
		year  int
		month time.Month
	}

	var keys []monthKey
	last := map[monthKey]float64{}
	for _, p := range points {
		k := monthKey{p.Date.Year(), p.Date.Month()}
		if _, ok := last[k]; !ok {
			keys = append(keys, k)
		}
		last[k] = p.Value
	}

	grid := MonthlyGrid{}
	for i := 1; i < len(keys); i++ {
		prev := last[keys[i-1]]
		if prev == 0 {
			continue
		}
		k := keys[i]
		if grid[k.year] == nil {
			grid[k.year] = map[time.Month]float64{}
		}
		grid[k.year][k.month] = last[k]/prev - 1
	}
	return grid
}

// YearlyReturns returns the year-end-to-year-end return per calendar year.
// The first year is measured from the first point.
func YearlyReturns(points []Point) map[int]float64 {
	out := map[int]float64{}
	if len(points) == 0 {
		return out
	}
	start := points[0].Value
	year := points[0].Date.Year()
	prevClose := points[0].Value
	for i, p := range points {
		if p.Date.Year() != year {
			if start != 0 {
				out[year] = prevClose/start - 1
			}
			start, year = prevClose, p.Date.Year()
		}
		prevClose = p.Value
		if i == len(points)-1 && start != 0 {
			out[year] = prevClose/start - 1
		}
	}
	return out
}
