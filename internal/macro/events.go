package macro

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/stats"
)

// YoYLag is the number of monthly observations in a year
const YoYLag = 12

// Event tags
const (
	TagTightening  = "긴축"
	TagStagflation = "스태그플레이션"
	TagInflation   = "인플레 + 유가상승"
	TagNeutral     = "중립"
)

// YoYTable holds year-over-year changes; Rows[i][j] is indicator Names[j]
// at observation i
type YoYTable struct {
	Names []string    `json:"names"`
	Rows  [][]float64 `json:"rows"`
}

// Column returns the values of one indicator, or nil if unknown
func (t *YoYTable) Column(name string) []float64 {
	for j, n := range t.Names {
		if n != name {
			continue
		}
		col := make([]float64, len(t.Rows))
		for i, row := range t.Rows {
			col[i] = row[j]
		}
		return col
	}
	return nil
}

// YoYChanges converts equal-length monthly series into YoY percentage
// changes (pct_change over YoYLag). Names are sorted.
func YoYChanges(series map[string][]float64) (*YoYTable, error) {
	if len(series) == 0 {
		return nil, ErrInsufficientData
	}
	names := make([]string, 0, len(series))
	for n := range series {
		names = append(names, n)
	}
	sort.Strings(names)

	length := len(series[names[0]])
	for _, n := range names {
		if len(series[n]) != length {
			return nil, fmt.Errorf("series %s has %d values, want %d: %w", n, len(series[n]), length, ErrDimensionMismatch)
		}
	}
	if length <= YoYLag {
		return nil, fmt.Errorf("need more than %d observations: %w", YoYLag, ErrInsufficientData)
	}

	t := &YoYTable{Names: names, Rows: make([][]float64, 0, length-YoYLag)}
	for i := YoYLag; i < length; i++ {
		row := make([]float64, len(names))
		for j, n := range names {
			if prev := series[n][i-YoYLag]; prev != 0 {
				row[j] = series[n][i]/prev - 1
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// EventTag is the macro cluster and label of one YoY observation
type EventTag struct {
	Index   int    `json:"index"`
	Cluster int    `json:"cluster"`
	Tag     string `json:"tag"`
}

// TagEvents standardizes the YoY table, clusters it into k groups with
// k-means and names each cluster from its unscaled mean changes.
// Centroid seeding is random, so cluster numbers may differ between runs;
// the tags do not for well separated regimes.
func TagEvents(t *YoYTable, k int) ([]EventTag, error) {
	if t == nil || k <= 0 || len(t.Rows) < k {
		return nil, ErrInsufficientData
	}

	scaled := standardize(t.Rows)
	obs := make(clusters.Observations, len(scaled))
	for i, row := range scaled {
		obs[i] = clusters.Coordinates(row)
	}
	cc, err := kmeans.New().Partition(obs, k)
	if err != nil {
		return nil, fmt.Errorf("kmeans k=%d: %w", k, err)
	}
	assign := make([]int, len(obs))
	for i, o := range obs {
		assign[i] = cc.Nearest(o)
	}

	// 클러스터별 원본 평균
	p := len(t.Names)
	means := make([][]float64, k)
	counts := make([]int, k)
	for c := range means {
		means[c] = make([]float64, p)
	}
	for i, row := range t.Rows {
		counts[assign[i]]++
		for j, v := range row {
			means[assign[i]][j] += v
		}
	}
	labels := make([]string, k)
	for c := range means {
		if counts[c] > 0 {
			for j := range means[c] {
				means[c][j] /= float64(counts[c])
			}
		}
		labels[c] = nameCluster(t.Names, means[c])
	}

	out := make([]EventTag, len(assign))
	for i, c := range assign {
		out[i] = EventTag{Index: i, Cluster: c, Tag: labels[c]}
	}
	return out, nil
}

// nameCluster ⭐ SSOT: 클러스터 평균 YoY 로 이벤트 이름 결정
func nameCluster(names []string, mean []float64) string {
	get := func(name string) float64 {
		for j, n := range names {
			if n == name {
				return mean[j]
			}
		}
		return 0
	}
	cpi, rate := get("cpi"), get("interest_rate")
	switch {
	case cpi > 0.03 && rate > 0.03:
		return TagTightening
	case cpi < 0 && get("unemployment") > 0.02:
		return TagStagflation
	case get("oil") > 0.05:
		return TagInflation
	default:
		return TagNeutral
	}
}

func standardize(rows [][]float64) [][]float64 {
	p := len(rows[0])
	out := make([][]float64, len(rows))
	for i := range out {
		out[i] = make([]float64, p)
	}
	col := make([]float64, len(rows))
	for j := 0; j < p; j++ {
		for i, row := range rows {
			col[i] = row[j]
		}
		m, sd := stats.Mean(col), stats.PopStdDev(col)
		for i := range rows {
			if sd > 0 {
				out[i][j] = (col[i] - m) / sd
			}
		}
	}
	return out
}

// Recovery describes how deep a crisis went and how long it took to heal
type Recovery struct {
	MaxDrawdown  float64 `json:"max_drawdown"` // 음수
	TroughIndex  int     `json:"trough_index"`
	Recovered    bool    `json:"recovered"`
	RecoveryDays int     `json:"recovery_days"` // trough → 이전 고점 회복까지, 미복구면 0
}

// String renders the recovery in days, or 미복구
func (r Recovery) String() string {
	if !r.Recovered {
		return fmt.Sprintf("최대 하락 %.2f%%, 미복구", r.MaxDrawdown*100)
	}
	return fmt.Sprintf("최대 하락 %.2f%%, %d일 후 회복", r.MaxDrawdown*100, r.RecoveryDays)
}

// CrisisRecovery measures the deepest drawdown of prices from start onward
// and the number of bars from the trough until the prior peak is regained
func CrisisRecovery(prices []float64, start int) (Recovery, error) {
	return recovery(prices, start, len(prices))
}

// recovery looks for the trough inside [start,end) and for the recovery
// anywhere after it
func recovery(prices []float64, start, end int) (Recovery, error) {
	if start < 0 || end > len(prices) || end-start < 2 {
		return Recovery{}, ErrInsufficientData
	}

	r := Recovery{TroughIndex: start}
	peak, peakAtTrough := prices[start], prices[start]
	for i := start; i < end; i++ {
		peak = math.Max(peak, prices[i])
		if peak <= 0 {
			continue
		}
		if dd := prices[i]/peak - 1; dd < r.MaxDrawdown {
			r.MaxDrawdown = dd
			r.TroughIndex = i
			peakAtTrough = peak
		}
	}
	if r.MaxDrawdown == 0 {
		r.Recovered = true
		return r, nil
	}

	for i := r.TroughIndex + 1; i < len(prices); i++ {
		if prices[i] >= peakAtTrough {
			r.Recovered = true
			r.RecoveryDays = i - r.TroughIndex
			break
		}
	}
	return r, nil
}

// CrisisWindow is a named historical stress period
type CrisisWindow struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DefaultCrises are the stress periods replayed by CrisisImpacts
var DefaultCrises = []CrisisWindow{
	{"리먼", date(2008, 9, 1), date(2009, 3, 1)},
	{"코로나", date(2020, 2, 1), date(2020, 8, 1)},
	{"SVB", date(2023, 3, 1), date(2023, 6, 1)},
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CrisisImpact is the recovery measured inside one crisis window
type CrisisImpact struct {
	Crisis   string   `json:"crisis"`
	Recovery Recovery `json:"recovery"`
}

// CrisisImpacts measures recovery for each window the series covers.
// Windows with fewer than two bars are skipped. Recovery is searched
// through the rest of the series, not only inside the window.
func CrisisImpacts(s *contracts.Series, windows []CrisisWindow) []CrisisImpact {
	if s == nil {
		return nil
	}
	closes := s.Closes()
	var out []CrisisImpact
	for _, w := range windows {
		start, end := -1, -1
		for i, b := range s.Bars {
			if b.Date.Before(w.Start) || b.Date.After(w.End) {
				continue
			}
			if start < 0 {
				start = i
			}
			end = i
		}
		if start < 0 || end-start < 1 {
			continue
		}
		r, err := recovery(closes, start, end+1)
		if err != nil {
			continue
		}
		out = append(out, CrisisImpact{Crisis: w.Name, Recovery: r})
	}
	return out
}
