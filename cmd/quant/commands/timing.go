package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/quantlab/internal/timing"
	"github.com/wonny/quantlab/pkg/format"
)

// timingCmd represents the timing command
var timingCmd = &cobra.Command{
	Use:   "timing <code>",
	Short: "진입/청산 타이밍 분석",
	Long: `기술적 지표와 패턴 학습으로 진입/청산 시점을 판단합니다.

출력:
- 최신 진입/청산 시그널과 과거 적중률
- VaR / CVaR / MDD 위험 예측
- 유사 패턴 (상위 3개)과 시장 국면별 지표 가중치
- k-NN 진입/청산 확률

Example:
  go run ./cmd/quant timing 005930
  go run ./cmd/quant timing 005930 --phase Bear`,
	Args: cobra.ExactArgs(1),
	RunE: runTiming,
}

var timingPhase string

func init() {
	rootCmd.AddCommand(timingCmd)

	timingCmd.Flags().StringVar(&timingPhase, "phase", "", "시장 국면 (Bull|Bear|Neutral, 기본: 자동)")
}

func runTiming(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	code := strings.ToUpper(args[0])

	phase := timing.Phase(timingPhase)
	switch phase {
	case "", timing.PhaseBull, timing.PhaseBear, timing.PhaseNeutral:
	default:
		return fmt.Errorf("unknown phase %q (Bull|Bear|Neutral)", timingPhase)
	}

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.brain.Timing(ctx, code, phase)
	if err != nil {
		return fmt.Errorf("timing %s: %w", code, err)
	}
	if jsonOutput {
		return printJSON(r)
	}

	PrintHeader(fmt.Sprintf("⏱ 타이밍 분석 %s", code))

	PrintSection("🚦", "최신 시그널")
	PrintKV("진입", signalMark(r.Latest.Entry))
	PrintKV("청산", signalMark(r.Latest.Exit))
	PrintBar("진입 적중률", r.Confidence.Entry/100)
	PrintBar("청산 적중률", r.Confidence.Exit/100)
	if r.Probability != nil {
		PrintBar("진입 확률", r.Probability.Entry)
		PrintBar("청산 확률", r.Probability.Exit)
	}

	PrintSection("⚠️", "위험 예측 (일간)")
	PrintKV("VaR 95%", fmt.Sprintf("%.2f%%", r.Risk.VaR95))
	PrintKV("CVaR 95%", fmt.Sprintf("%.2f%%", r.Risk.CVaR95))
	PrintKV("Parametric VaR 95%", fmt.Sprintf("%.2f%%", r.Risk.ParametricVaR95))
	if r.Risk.HoldingDays > 0 {
		PrintKV(fmt.Sprintf("%d일 Monte Carlo VaR 95%%", r.Risk.HoldingDays), fmt.Sprintf("%.2f%%", r.Risk.SimulatedVaR95))
		PrintKV(fmt.Sprintf("%d일 Monte Carlo CVaR 95%%", r.Risk.HoldingDays), fmt.Sprintf("%.2f%%", r.Risk.SimulatedCVaR95))
	}
	PrintKV("MDD", fmt.Sprintf("%.2f%%", r.Risk.MDD))

	if len(r.Matches) > 0 {
		PrintSection("🔍", "유사 패턴")
		for i, m := range r.Matches {
			PrintKV(fmt.Sprintf("#%d", i+1), fmt.Sprintf("start=%d similarity=%s", m.Start, format.Percent(m.Similarity, 1)))
		}
	}

	PrintSection("⚖️", "지표 가중치")
	PrintMap(r.Weights, func(v float64) string { return format.Percent(v, 0) })

	if r.Profile != nil {
		PrintSection("📈", "확률 상위 구간 성과")
		PrintKV("진입", fmt.Sprintf("%d회, 평균 %s, 성공 %s",
			r.Profile.Entry.Signals, format.Signed(r.Profile.Entry.MeanReturn), format.Percent(r.Profile.Entry.SuccessRate, 0)))
		PrintKV("청산", fmt.Sprintf("%d회, 평균 %s, 성공 %s",
			r.Profile.Exit.Signals, format.Signed(r.Profile.Exit.MeanReturn), format.Percent(r.Profile.Exit.SuccessRate, 0)))
	}
	fmt.Println()
	return nil
}

func signalMark(on bool) string {
	if on {
		return "✅"
	}
	return "—"
}
