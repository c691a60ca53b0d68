package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/quantlab/pkg/format"
)

// fundamentalCmd represents the fundamental command
var fundamentalCmd = &cobra.Command{
	Use:   "fundamental <code>",
	Short: "재무 건전성 분석",
	Long: `DART 사업보고서 기반 재무 분석을 실행합니다.

지표:
- PER / PBR / ROE, 부채비율, 유동비율
- 매출 CAGR, 영업이익률 변화, PEG
- Altman Z-Score 와 안정성 점수

DART_API_KEY 와 DART_CORP_CODES 설정이 필요합니다.

Example:
  go run ./cmd/quant fundamental 005930
  go run ./cmd/quant fundamental 005930 --years 6`,
	Args: cobra.ExactArgs(1),
	RunE: runFundamental,
}

var fundamentalYears int

func init() {
	rootCmd.AddCommand(fundamentalCmd)

	fundamentalCmd.Flags().IntVar(&fundamentalYears, "years", 4, "분석 연수 (2-10)")
}

func runFundamental(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	code := strings.ToUpper(args[0])
	if fundamentalYears < 2 || fundamentalYears > 10 {
		return fmt.Errorf("--years must be between 2 and 10, got %d", fundamentalYears)
	}

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.brain.Fundamental(ctx, code, fundamentalYears)
	if err != nil {
		return fmt.Errorf("fundamental %s: %w", code, err)
	}
	if jsonOutput {
		return printJSON(r)
	}

	PrintHeader(fmt.Sprintf("🏦 재무 분석 %s", code), fmt.Sprintf("최근 %d년 사업보고서", fundamentalYears))

	PrintSection("📐", "밸류에이션")
	PrintKV("PER", fmt.Sprintf("%.2f", r.PER))
	PrintKV("PBR", fmt.Sprintf("%.2f", r.PBR))
	PrintKV("ROE", format.Percent(r.ROE, 1))
	if r.PEG != nil {
		PrintKV("PEG", fmt.Sprintf("%.2f", *r.PEG))
	}

	PrintSection("🛡", "안정성")
	PrintKV("부채비율", format.Percent(r.DebtRatio, 1))
	PrintKV("유동비율", format.Percent(r.CurrentRatio, 1))
	if r.AltmanZ != nil {
		PrintKV("Altman Z", fmt.Sprintf("%.2f (%s)", *r.AltmanZ, r.AltmanZone))
	}
	PrintBar("안정성", r.Stability/100)

	PrintSection("📈", "성장")
	if r.CAGR != nil {
		PrintKV("매출 CAGR", format.Signed(*r.CAGR))
	} else {
		PrintKV("매출 CAGR", "N/A")
	}
	if r.OperatingMarginChange != nil {
		PrintKV("영업이익률 Δ", format.Signed(*r.OperatingMarginChange))
	}
	PrintKV("성장 안정성", fmt.Sprintf("%.2f", r.GrowthStability))
	if len(r.Percentiles) > 0 {
		PrintSection("📊", "섹터 백분위")
		PrintMap(r.Percentiles, func(v float64) string { return fmt.Sprintf("%.0f", v) })
	}

	PrintSection("🤖", "AI 점수")
	PrintBar("AI Score", r.AIScore/100)
	for _, w := range r.Warnings {
		fmt.Printf("  ⚠️  %s\n", w)
	}
	fmt.Printf("\n  초심자: %s\n", r.Beginner)
	fmt.Printf("  전문가: %s\n\n", r.Expert)
	return nil
}
