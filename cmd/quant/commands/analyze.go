package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/quantlab/internal/profile"
	"github.com/wonny/quantlab/internal/signals"
	"github.com/wonny/quantlab/pkg/format"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <code>",
	Short: "종목 프로파일 + 통합 시그널",
	Long: `종목의 성격(유동성, 변동성, 섹터, 스타일)과 통합 투자 시그널을 보여줍니다.

출력:
- 프로파일: 시가총액 구간, 변동성 점수, 스타일 라벨, 추세
- 시그널: 밸류에이션 / 기술적 / 감성 점수와 최종 추천

Example:
  go run ./cmd/quant analyze 005930
  go run ./cmd/quant analyze 005930 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

type analyzeOutput struct {
	Profile *profile.Profile `json:"profile"`
	Signals *signals.Report  `json:"signals"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	code := strings.ToUpper(args[0])

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.brain.Profile(ctx, code)
	if err != nil {
		return fmt.Errorf("profile %s: %w", code, err)
	}
	sig, err := a.brain.Signals(ctx, code)
	if err != nil {
		return fmt.Errorf("signals %s: %w", code, err)
	}

	if jsonOutput {
		return printJSON(analyzeOutput{Profile: p, Signals: sig})
	}

	PrintHeader(fmt.Sprintf("📊 %s %s", p.Info.Name, code), p.Info.Market)

	PrintSection("🏷", "프로파일")
	PrintKV("시가총액", format.Won(p.Info.MarketCap))
	PrintKV("유동성", p.Liquidity)
	if p.Volatility != nil {
		PrintKV("변동성 점수", format.Percent(*p.Volatility, 1))
	} else {
		PrintKV("변동성 점수", "N/A")
	}
	PrintKV("섹터", p.Sector)
	PrintKV("스타일", strings.Join(p.StyleLabels, ", "))
	PrintKV("RSI", fmt.Sprintf("%.1f", p.Trend.RSI))
	PrintKV("추세", trendLabel(p.Trend.Uptrend))
	PrintBar("성장 신뢰도", p.Confidence.Score/100)

	PrintSection("🧭", "통합 시그널")
	PrintBar("밸류에이션", sig.ValuationScore/100)
	PrintBar("기술적", sig.TechnicalScore/100)
	PrintKV("감성", fmt.Sprintf("%+.2f", sig.Sentiment))
	PrintKV("총점", fmt.Sprintf("%.1f", sig.TotalScore))
	PrintKV("추천", sig.Recommendation)
	PrintKV("시나리오", sig.Scenario)

	PrintSection("💬", "요약")
	fmt.Printf("  초심자: %s\n", p.Beginner)
	fmt.Printf("  전문가: %s\n", p.Expert)
	fmt.Printf("  %s\n", sig.Summary())
	fmt.Println()
	return nil
}

func trendLabel(up bool) string {
	if up {
		return "상승 📈"
	}
	return "하락/횡보 📉"
}
