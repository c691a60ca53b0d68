package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/macro"
	"github.com/wonny/quantlab/pkg/format"
)

// macroCmd represents the macro command
var macroCmd = &cobra.Command{
	Use:   "macro <snapshots.json>",
	Short: "매크로 국면 분석",
	Long: `금리, CPI, 유가, 환율 스냅샷으로 매크로 국면을 판단합니다.

입력 파일은 MacroSnapshot 배열(JSON)입니다:
  [{"date":"2024-01-31T00:00:00Z","rate":3.5,"cpi":113.2,"oil":75.8,"fx":1330}, ...]

출력:
- 지표별 상대 점수 (윈도우 내 위치)
- 시나리오 해석과 유사 과거 위기
- 추천 전략

--crisis <code> 를 주면 리먼, 코로나, SVB 구간의 낙폭과 회복 기간을 함께 보여줍니다.

Example:
  go run ./cmd/quant macro snapshots.json
  go run ./cmd/quant macro snapshots.json --crisis 005930
  go run ./cmd/quant macro snapshots.json --risk-aversion high --sensitivity inflation`,
	Args: cobra.ExactArgs(1),
	RunE: runMacro,
}

var (
	macroRiskAversion string
	macroSensitivity  string
	macroCrisisCode   string
)

// crisisHistoryStart covers every DefaultCrises window
var crisisHistoryStart = time.Date(2008, 1, 1, 0, 0, 0, 0, time.UTC)

// macroOutput is the --json shape
type macroOutput struct {
	*macro.Analysis
	Crises []macro.CrisisImpact `json:"crises,omitempty"`
}

func init() {
	rootCmd.AddCommand(macroCmd)

	macroCmd.Flags().StringVar(&macroRiskAversion, "risk-aversion", "", "위험 회피 성향 (high → 금리 가중)")
	macroCmd.Flags().StringVar(&macroSensitivity, "sensitivity", "", "민감 지표 (inflation → CPI 가중)")
	macroCmd.Flags().StringVar(&macroCrisisCode, "crisis", "", "과거 위기 회복을 측정할 종목 코드")
}

func runMacro(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read snapshots: %w", err)
	}
	var snaps []contracts.MacroSnapshot
	if err := json.Unmarshal(raw, &snaps); err != nil {
		return fmt.Errorf("parse snapshots %s: %w", args[0], err)
	}

	res, err := macro.Analyze(snaps, macro.Profile{
		RiskAversion: macroRiskAversion,
		Sensitivity:  macroSensitivity,
	})
	if err != nil {
		return err
	}

	out := macroOutput{Analysis: res}
	if macroCrisisCode != "" {
		ctx := cmd.Context()
		a, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.Close()

		code := strings.ToUpper(macroCrisisCode)
		s, err := a.prices.FetchSeries(ctx, code, crisisHistoryStart, time.Now())
		if err != nil {
			return fmt.Errorf("fetch prices %s: %w", code, err)
		}
		out.Crises = macro.CrisisImpacts(s, macro.DefaultCrises)
	}
	if jsonOutput {
		return printJSON(out)
	}

	PrintHeader("🌐 매크로 분석", fmt.Sprintf("스냅샷 %d개", len(snaps)))

	PrintSection("📏", "상대 점수")
	PrintBar("금리", res.Scores.Rate)
	PrintBar("CPI", res.Scores.CPI)
	PrintBar("유가", res.Scores.Oil)
	PrintBar("환율", res.Scores.FX)

	PrintSection("🧭", res.Scenario.Name)
	fmt.Printf("  %s\n", res.Scenario.Explanation)
	PrintKV("유사 위기", fmt.Sprintf("%s (%s)", res.SimilarCrisis.Name, format.Percent(res.SimilarCrisis.Similarity, 1)))

	if res.CurrentEvent != "" {
		PrintKV("최근 YoY 국면", res.CurrentEvent)
	}

	if len(out.Crises) > 0 {
		PrintSection("🩹", fmt.Sprintf("위기 회복 (%s)", strings.ToUpper(macroCrisisCode)))
		for _, c := range out.Crises {
			PrintKV(c.Crisis, c.Recovery.String())
		}
	}

	PrintSection("💡", "추천 전략")
	PrintKV("전략", res.Recommendation.Strategy)
	fmt.Printf("  %s\n\n", res.Recommendation.Comment)
	return nil
}
