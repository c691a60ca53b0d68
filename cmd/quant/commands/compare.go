package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/quantlab/internal/backtest"
	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/performance"
	"github.com/wonny/quantlab/internal/scenario"
	"github.com/wonny/quantlab/internal/strategy"
	"github.com/wonny/quantlab/pkg/format"
)

// compareCmd represents the compare command
var compareCmd = &cobra.Command{
	Use:   "compare <code>",
	Short: "전략 비교 / 혼합 최적화",
	Long: `내장 전략(buy_and_hold, ma_cross, rsi)을 같은 구간에서 백테스트한 뒤
종합 점수, 사용자 성향 적합도, Pareto front, 최적 혼합 비중을 보여줍니다.

Bias:
  loss_aversion, overconfidence, herding

Example:
  go run ./cmd/quant compare 005930
  go run ./cmd/quant compare 005930 --years 5 --risk low --bias loss_aversion`,
	Args: cobra.ExactArgs(1),
	RunE: runCompare,
}

var (
	cmpYears int
	cmpRisk  string
	cmpBias  string
	cmpStep  float64
)

// compareStrategies are the names StrategyByName resolves
var compareStrategies = []string{"buy_and_hold", "ma_cross", "rsi"}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().IntVar(&cmpYears, "years", 3, "백테스트 기간 (년)")
	compareCmd.Flags().StringVar(&cmpRisk, "risk", "", "위험 성향 (low|mid|high)")
	compareCmd.Flags().StringVar(&cmpBias, "bias", "", "행동 편향 보정")
	compareCmd.Flags().Float64Var(&cmpStep, "step", scenario.DefaultGridStep, "혼합 비중 그리드 간격")
}

// compareOutput is the --json shape
type compareOutput struct {
	Code     string                      `json:"code"`
	Metrics  []contracts.StrategyMetrics `json:"metrics"`
	Ranking  []strategy.Ranked           `json:"ranking"`
	Fits     []strategy.Fit              `json:"fits"`
	Best     strategy.Fit                `json:"best"`
	Pareto   []string                    `json:"pareto"`
	Leader   string                      `json:"leader"`
	Mix      *scenario.MixResult         `json:"mix"`
	Warnings []string                    `json:"warnings,omitempty"`
}

func parseBias(s string) (strategy.Bias, error) {
	switch b := strategy.Bias(strings.ToLower(s)); b {
	case strategy.BiasNone, strategy.BiasLossAversion, strategy.BiasOverconfidence, strategy.BiasHerding:
		return b, nil
	default:
		return "", fmt.Errorf("unknown bias %q", s)
	}
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	code := strings.ToUpper(args[0])

	level, err := parseRiskLevel(cmpRisk)
	if err != nil {
		return err
	}
	bias, err := parseBias(cmpBias)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	out := compareOutput{Code: code}
	returns := make(map[string][]float64, len(compareStrategies))
	var cands []strategy.Candidate
	for _, name := range compareStrategies {
		res, err := a.brain.Backtest(ctx, code, name, cmpYears, level)
		if err != nil {
			return fmt.Errorf("backtest %s: %w", name, err)
		}
		m := res.Metrics
		sm := contracts.StrategyMetrics{
			Name:       res.Strategy,
			CAGR:       m.AnnualizedReturn,
			Volatility: m.Volatility,
			Sharpe:     m.Sharpe,
			Sortino:    m.Sortino,
			MDD:        m.MaxDrawdown,
			Calmar:     m.Calmar,
			WinRate:    m.WinRate,
		}
		out.Metrics = append(out.Metrics, sm)
		if note := strategy.Interpret(sm); note != "" {
			out.Warnings = append(out.Warnings, res.Strategy+": "+note)
		}
		cands = append(cands, strategy.Candidate{
			Name:             res.Strategy,
			CumulativeReturn: m.CumulativeReturn,
			MDD:              m.MaxDrawdown,
			Sharpe:           m.Sharpe,
			SentimentFit:     m.WinRate, // 심리 입력이 없으면 상승일 비율로 대체
			Stability:        backtest.Stability(m.Volatility, m.CumulativeReturn),
		})
		returns[res.Strategy] = dailyReturns(performance.Values(res.Equity))
	}

	out.Ranking = strategy.Compare(cands)
	out.Fits = strategy.BehavioralAdjust(strategy.ScoreByProfile(out.Metrics, level), bias)
	out.Best, _ = strategy.Best(out.Fits)
	out.Pareto = strategy.ParetoFront(out.Metrics)
	if leaders := strategy.RollingLeader(returns, 20); len(leaders) > 0 {
		out.Leader = leaders[len(leaders)-1]
	}

	mix, err := scenario.NewMixSimulator(returns)
	if err != nil {
		return fmt.Errorf("mix: %w", err)
	}
	if out.Mix, err = mix.Optimize(cmpStep); err != nil {
		return fmt.Errorf("optimize mix: %w", err)
	}

	if jsonOutput {
		return printJSON(out)
	}

	PrintHeader(fmt.Sprintf("⚖️ 전략 비교 %s", code), fmt.Sprintf("최근 %d년, %s", cmpYears, level.UserType()))

	PrintSection("📊", "지표")
	for _, m := range out.Metrics {
		fmt.Printf("  %-14s CAGR %8s  MDD %8s  Sharpe %5.2f  Calmar %5.2f\n",
			m.Name, format.Signed(m.CAGR), format.Percent(m.MDD, 1), m.Sharpe, m.Calmar)
	}
	PrintKV("Pareto front", strings.Join(out.Pareto, ", "))
	if out.Leader != "" {
		PrintKV("최근 20일 선두", out.Leader)
	}

	PrintSection("🏆", "종합 순위")
	for i, r := range out.Ranking {
		fmt.Printf("  %d. %-14s %.2f\n", i+1, r.Name, r.Composite)
	}
	if len(out.Ranking) > 0 {
		fmt.Println()
		fmt.Println(strategy.Explain(out.Ranking[0]))
	}

	PrintSection("🙋", "성향 적합도")
	for _, f := range out.Fits {
		fmt.Printf("  %-14s %.2f\n", f.Name, f.Score)
	}
	PrintKV("추천", strategy.ExplainComparison(out.Best))

	PrintSection("🧪", "최적 혼합")
	PrintMap(out.Mix.Weights, func(v float64) string { return format.Percent(v, 0) })
	PrintKV("Sharpe", fmt.Sprintf("%.2f", out.Mix.Metrics.Sharpe))
	PrintKV("MDD", format.Percent(out.Mix.Metrics.MaxDrawdown, 1))

	for _, w := range out.Warnings {
		PrintWarning(w)
	}
	fmt.Println()
	return nil
}

// dailyReturns converts equity values into simple period returns
func dailyReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, values[i]/values[i-1]-1)
	}
	return out
}
