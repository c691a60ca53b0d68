package performance

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/wonny/quantlab/pkg/format"
)

// Summary explains Metrics in plain Korean
func Summary(m Metrics, yearly map[int]float64) string {
	var positive int
	for _, r := range yearly {
		if r > 0 {
			positive++
		}
	}
	risk := "위험 관리는 안정적이었습니다"
	if m.MaxDrawdown < -0.2 {
		risk = "낙폭이 커 위험 관리에 주의가 필요합니다"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "이 전략은 최근 %d년 중 %d년 동안 양의 수익을 기록했습니다.\n", len(yearly), positive)
	fmt.Fprintf(&b, "누적 수익률은 %s, 연환산 수익률은 %s입니다.\n",
		format.Percent(m.CumulativeReturn, 2), format.Percent(m.AnnualizedReturn, 2))
	fmt.Fprintf(&b, "최대 낙폭은 %s로 %s.\n", format.Percent(m.MaxDrawdown, 2), risk)
	fmt.Fprintf(&b, "Sharpe Ratio는 %.2f, Calmar Ratio는 %.2f입니다.", m.Sharpe, m.Calmar)
	return b.String()
}

// ReportInput is everything rendered into a strategy report
type ReportInput struct {
	Title        string
	Summary      string
	Radar        map[string]float64 // 수익성, 안정성, 유연성, 심리 적합도, 성장성 ...
	Metrics      Metrics
	Points       []Point
	SwitchPoints []time.Time
	GeneratedAt  time.Time
}

type reportView struct {
	ReportInput
	RadarRows   []radarRow
	CurveRows   []curveRow
	WorstDD     string
	HeatmapRows []string
	Switches    []string
}

type radarRow struct {
	Name  string
	Score float64
	Bar   string
}

type curveRow struct {
	Date     string
	Return   string
	Drawdown string
}

var reportTemplate = template.Must(template.New("report").Parse(`# {{.Title}}

생성: {{.GeneratedAt.Format "2006-01-02 15:04"}}

## 1. 전략 요약

{{.Summary}}

## 2. 전략 프로파일
{{range .RadarRows}}
- {{.Name}}: {{printf "%.0f" .Score}} {{.Bar}}{{end}}

## 3. 수익률 곡선

| 날짜 | 누적 수익률 | 드로우다운 |
|---|---|---|
{{range .CurveRows}}| {{.Date}} | {{.Return}} | {{.Drawdown}} |
{{end}}
## 4. 드로우다운 분석

최대 낙폭: {{.WorstDD}}

## 5. 전략 전환 시점
{{if .Switches}}{{range .Switches}}
- {{.}}{{end}}{{else}}
- 전환 없음{{end}}

## 6. 월간 수익률 히트맵 (%)

| 연도 | 1 | 2 | 3 | 4 | 5 | 6 | 7 | 8 | 9 | 10 | 11 | 12 |
|---|---|---|---|---|---|---|---|---|---|---|---|---|
{{range .HeatmapRows}}{{.}}
{{end}}`))

// curveSamples bounds the return-curve table length
const curveSamples = 12

// RenderReport renders a markdown strategy report
func RenderReport(in ReportInput) (string, error) {
	if in.GeneratedAt.IsZero() {
		in.GeneratedAt = time.Now()
	}
	view := reportView{ReportInput: in, WorstDD: format.Percent(in.Metrics.MaxDrawdown, 2)}

	names := make([]string, 0, len(in.Radar))
	for k := range in.Radar {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, n := range names {
		s := in.Radar[n]
		view.RadarRows = append(view.RadarRows, radarRow{Name: n, Score: s, Bar: strings.Repeat("█", int(s/10))})
	}

	values := Values(in.Points)
	dd := DrawdownSeries(values)
	if len(in.Points) > 0 {
		step := len(in.Points) / curveSamples
		if step == 0 {
			step = 1
		}
		for i := 0; i < len(in.Points); i += step {
			view.CurveRows = append(view.CurveRows, curveRow{
				Date:     in.Points[i].Date.Format("2006-01-02"),
				Return:   format.Signed(values[i]/values[0] - 1),
				Drawdown: format.Percent(dd[i], 2),
			})
		}
	}

	for _, s := range in.SwitchPoints {
		view.Switches = append(view.Switches, s.Format("2006-01-02"))
	}

	grid := MonthlyReturns(in.Points)
	for _, y := range grid.Years() {
		row := fmt.Sprintf("| %d |", y)
		for m := time.January; m <= time.December; m++ {
			if r, ok := grid[y][m]; ok {
				row += fmt.Sprintf(" %.1f |", r*100)
			} else {
				row += " |"
			}
		}
		view.HeatmapRows = append(view.HeatmapRows, row)
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}
