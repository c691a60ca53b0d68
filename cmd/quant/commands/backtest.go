package commands

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/quantlab/internal/brain"
	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/performance"
	"github.com/wonny/quantlab/internal/risk"
	"github.com/wonny/quantlab/pkg/format"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "백테스트 실행",
	Long: `전략 백테스트를 실행합니다.

Subcommands:
  run      - 실제 가격으로 단일 백테스트
  massive  - 합성 경로 대량 시나리오 백테스트
  universe - 여러 종목 보유 전략 평균 성과

Strategies:
  buy_and_hold (기본전략), ma_cross (모멘텀), rsi (가치형)

Example:
  go run ./cmd/quant backtest run 005930 --strategy ma_cross --years 3
  go run ./cmd/quant backtest massive 005930 --scenarios 1000 --method gbm
  go run ./cmd/quant backtest universe 005930 000660 035420 --years 2`,
}

var (
	backtestRunCmd = &cobra.Command{
		Use:   "run <code>",
		Short: "단일 백테스트",
		Long: `최근 N년 가격으로 전략을 재생하고 성과 지표를 계산합니다.

--risk 는 손절/익절 한도를 고릅니다 (low, mid, high).
--report 를 주면 마크다운 리포트를 파일로 저장합니다.`,
		Args: cobra.ExactArgs(1),
		RunE: runBacktestRun,
	}

	backtestMassiveCmd = &cobra.Command{
		Use:   "massive <code>",
		Short: "대량 시나리오 백테스트",
		Long: `종목의 과거 일간 수익률로 합성 경로를 만들어 전략을 반복 실행합니다.

Methods:
  bootstrap  - 과거 수익률 복원 추출 (기본)
  gbm        - 기하 브라운 운동

DATABASE_URL 이 설정되어 있으면 결과가 저장됩니다.`,
		Args: cobra.ExactArgs(1),
		RunE: runBacktestMassive,
	}

	backtestUniverseCmd = &cobra.Command{
		Use:   "universe <code>...",
		Short: "종목군 평균 성과",
		Long: `종목마다 최근 N년 일간 수익률로 연환산 수익률(평균×252), 연환산 변동성(표준편차×√252),
MDD 를 구해 평균합니다. 불러오지 못한 종목은 건너뜁니다.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runBacktestUniverse,
	}
)

var (
	btStrategy  string
	btYears     int
	btRisk      string
	btScenarios int
	btSeed      int64
	btMethod    string
	btTop       int
	btTrades    int
	btReport    string
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestRunCmd)
	backtestCmd.AddCommand(backtestMassiveCmd)
	backtestCmd.AddCommand(backtestUniverseCmd)

	backtestCmd.PersistentFlags().StringVar(&btStrategy, "strategy", "buy_and_hold", "전략 이름")

	backtestRunCmd.Flags().IntVar(&btYears, "years", 3, "백테스트 기간 (년)")
	backtestRunCmd.Flags().StringVar(&btRisk, "risk", "", "위험 수준 (low|mid|high)")
	backtestRunCmd.Flags().IntVar(&btTrades, "trades", 10, "표시할 최근 거래 수")
	backtestRunCmd.Flags().StringVar(&btReport, "report", "", "마크다운 리포트 저장 경로")

	backtestUniverseCmd.Flags().IntVar(&btYears, "years", 3, "백테스트 기간 (년)")

	backtestMassiveCmd.Flags().IntVar(&btScenarios, "scenarios", 0, "시나리오 수 (기본: BACKTEST_SCENARIOS)")
	backtestMassiveCmd.Flags().Int64Var(&btSeed, "seed", 42, "난수 시드")
	backtestMassiveCmd.Flags().StringVar(&btMethod, "method", string(risk.MethodBootstrap), "경로 생성 방식 (bootstrap|gbm)")
	backtestMassiveCmd.Flags().IntVar(&btTop, "top", 10, "생존 시나리오 수")
}

func parseRiskLevel(s string) (contracts.RiskLevel, error) {
	switch l := contracts.RiskLevel(strings.ToLower(s)); l {
	case "", contracts.RiskLow, contracts.RiskMid, contracts.RiskHigh:
		return l, nil
	default:
		return "", fmt.Errorf("unknown risk level %q (low|mid|high)", s)
	}
}

func runBacktestRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	code := strings.ToUpper(args[0])

	level, err := parseRiskLevel(btRisk)
	if err != nil {
		return err
	}
	if btYears < 1 {
		return fmt.Errorf("--years must be positive, got %d", btYears)
	}

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.brain.Backtest(ctx, code, btStrategy, btYears, level)
	if err != nil {
		return fmt.Errorf("backtest %s: %w", code, err)
	}
	yearly := performance.YearlyReturns(res.Equity)
	summary := performance.Summary(res.Metrics, yearly)
	if btReport != "" {
		if err := writeBacktestReport(btReport, code, res.Strategy, summary, res.Metrics, res.Equity); err != nil {
			return err
		}
		a.log.WithField("path", btReport).Info("Report written")
	}
	if jsonOutput {
		return printJSON(res)
	}

	PrintHeader(fmt.Sprintf("🔁 백테스트 %s", code),
		fmt.Sprintf("전략: %s", res.Strategy),
		fmt.Sprintf("기간: %s ~ %s", res.StartDate.Format("2006-01-02"), res.EndDate.Format("2006-01-02")))

	m := res.Metrics
	PrintSection("📈", "성과")
	PrintKV("최종 자산", format.Won(res.FinalEquity))
	PrintKV("누적 수익률", format.Signed(m.CumulativeReturn))
	PrintKV("연환산 수익률", format.Signed(m.AnnualizedReturn))
	PrintKV("변동성", format.Percent(m.Volatility, 2))
	PrintKV("Sharpe", fmt.Sprintf("%.2f", m.Sharpe))
	PrintKV("Sortino", fmt.Sprintf("%.2f", m.Sortino))
	PrintKV("MDD", format.Signed(m.MaxDrawdown))
	PrintKV("Calmar", fmt.Sprintf("%.2f", m.Calmar))
	PrintKV("상승일 비율", format.Percent(m.WinRate, 1))

	if len(yearly) > 0 {
		PrintSection("📅", "연도별 수익률")
		years := make([]int, 0, len(yearly))
		for y := range yearly {
			years = append(years, y)
		}
		sort.Ints(years)
		for _, y := range years {
			PrintKV(fmt.Sprintf("%d", y), format.Signed(yearly[y]))
		}
	}

	PrintSection("📝", "요약")
	fmt.Println(summary)

	PrintSection("🧾", "거래")
	PrintKV("총 거래", res.Stats.TotalTrades)
	PrintKV("수익/손실", fmt.Sprintf("%d / %d", res.Stats.WinningTrades, res.Stats.LosingTrades))
	PrintKV("수수료", format.Won(res.Stats.TotalCommission))

	trades := res.Trades
	if len(trades) > btTrades {
		trades = trades[len(trades)-btTrades:]
	}
	for _, t := range trades {
		fmt.Printf("  %s %-4s %6d주 @ %s  %s\n",
			t.Date.Format("2006-01-02"), t.Side, t.Shares, format.Number(t.Price.InexactFloat64()), format.Signed(t.ReturnPct))
	}
	fmt.Println()
	return nil
}

func runBacktestMassive(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	code := strings.ToUpper(args[0])

	method := risk.PathMethod(strings.ToLower(btMethod))
	if method != risk.MethodBootstrap && method != risk.MethodGBM {
		return fmt.Errorf("unknown method %q (bootstrap|gbm)", btMethod)
	}
	if btScenarios < 0 || btScenarios > 10000 {
		return fmt.Errorf("--scenarios must be between 0 and 10000, got %d", btScenarios)
	}

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.store == nil {
		a.log.Warn("DATABASE_URL not set, run will not be saved")
	}

	run, err := a.brain.MassiveBacktest(ctx, brain.MassiveRequest{
		Code:      code,
		Strategy:  btStrategy,
		Scenarios: btScenarios,
		Seed:      btSeed,
		Method:    method,
		Top:       btTop,
	})
	if err != nil {
		return fmt.Errorf("massive backtest %s: %w", code, err)
	}
	if jsonOutput {
		return printJSON(run)
	}

	s := run.Summary
	PrintHeader(fmt.Sprintf("🎲 대량 시나리오 백테스트 %s", code),
		fmt.Sprintf("전략: %s  방식: %s  시드: %d", run.Strategy, method, btSeed),
		fmt.Sprintf("Run ID: %s", run.ID))

	PrintSection("📊", "요약")
	PrintKV("시나리오", fmt.Sprintf("%d (실패 %d)", s.Runs, s.Failed))
	PrintKV("평균 수익률", format.Signed(s.MeanReturn))
	PrintKV("중앙 수익률", format.Signed(s.MedianReturn))
	PrintKV("평균 MDD", format.Signed(s.MeanMDD))
	PrintKV("평균 변동성", format.Percent(s.MeanVolatility, 2))
	PrintKV("하위 5% 수익률", format.Signed(s.P5Return))
	PrintKV("CVaR", format.Percent(s.CVaR, 2))

	PrintSection("🏆", fmt.Sprintf("생존 시나리오 상위 %d", len(run.Survivors)))
	for i, r := range run.Survivors {
		fmt.Printf("  #%-3d %3d일 수익 %8s  MDD %8s  Sharpe %5.2f  안정성 %.2f\n",
			i+1, r.Scenario.Days, format.Signed(r.Return), format.Signed(r.MDD), r.Sharpe, r.Stability)
	}
	fmt.Println()
	return nil
}

func runBacktestUniverse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	codes := make([]string, len(args))
	for i, c := range args {
		codes[i] = strings.ToUpper(c)
	}
	if btYears < 1 {
		return fmt.Errorf("--years must be positive, got %d", btYears)
	}

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	sum, err := a.brain.Universe(ctx, btStrategy, codes, btYears)
	if err != nil {
		return fmt.Errorf("universe backtest: %w", err)
	}
	if jsonOutput {
		return printJSON(sum)
	}

	PrintHeader("🧺 종목군 백테스트",
		fmt.Sprintf("전략: %s", sum.Strategy),
		fmt.Sprintf("종목: %d/%d  기간: 최근 %d년", sum.Tickers, len(codes), btYears))
	PrintSection("📊", "평균 성과")
	PrintKV("연환산 수익률", format.Signed(sum.Return))
	PrintKV("연환산 변동성", format.Percent(sum.Volatility, 2))
	PrintKV("MDD", format.Signed(sum.MDD))
	fmt.Println()
	return nil
}

// writeBacktestReport renders the markdown strategy report to path
func writeBacktestReport(path, code, strategy, summary string, m performance.Metrics, equity []performance.Point) error {
	body, err := performance.RenderReport(performance.ReportInput{
		Title:   fmt.Sprintf("%s %s 백테스트 리포트", code, strategy),
		Summary: summary,
		Metrics: m,
		Points:  equity,
	})
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}
