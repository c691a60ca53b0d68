package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/quantlab/internal/brain"
	"github.com/wonny/quantlab/internal/portfolio"
	"github.com/wonny/quantlab/pkg/format"
)

// portfolioCmd represents the portfolio command
var portfolioCmd = &cobra.Command{
	Use:   "portfolio <code>...",
	Short: "포트폴리오 추천",
	Long: `후보 종목을 점수화해 모드에 맞는 바스켓과 비중을 추천합니다.

Modes:
  STABLE      - 리스크 낮은 종목 위주
  BALANCED    - 성과/리스크 균형 (기본)
  AGGRESSIVE  - 성장/성과 위주
  AI_OPT      - 성과·리스크·성장 종합 점수

Weighting:
  equal, score_risk (기본), correlation

Example:
  go run ./cmd/quant portfolio 005930 000660 035420 --mode stable
  go run ./cmd/quant portfolio 005930 000660 035420 051910 --mode ai_opt --weighting correlation
  go run ./cmd/quant portfolio 005930 000660 035420 --save`,
	Args: cobra.RangeArgs(1, 50),
	RunE: runPortfolio,
}

var (
	pfMode      string
	pfSize      int
	pfWeighting string
	pfSave      bool
)

func init() {
	rootCmd.AddCommand(portfolioCmd)

	portfolioCmd.Flags().StringVar(&pfMode, "mode", "", "포트폴리오 모드 (기본: PORTFOLIO_MODE)")
	portfolioCmd.Flags().IntVar(&pfSize, "size", 0, "종목 수 (기본: 모드별)")
	portfolioCmd.Flags().StringVar(&pfWeighting, "weighting", "", "비중 방식 (equal|score_risk|correlation)")
	portfolioCmd.Flags().BoolVar(&pfSave, "save", false, "목표 포트폴리오로 저장 (DATABASE_URL 필요)")
}

func runPortfolio(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	switch pfWeighting {
	case "", portfolio.WeightEqual, portfolio.WeightScoreRisk, portfolio.WeightCorrelation:
	default:
		return fmt.Errorf("unknown weighting %q", pfWeighting)
	}

	a, err := newApp(ctx, pfSave)
	if err != nil {
		return err
	}
	defer a.Close()

	modeName := pfMode
	if modeName == "" {
		modeName = a.cfg.Scheduler.PortfolioMode
	}
	mode, err := portfolio.ParseMode(modeName)
	if err != nil {
		return err
	}

	codes := make([]string, len(args))
	for i, c := range args {
		codes[i] = strings.ToUpper(c)
	}

	p, err := a.brain.RecommendPortfolio(ctx, brain.PortfolioRequest{
		Mode:      mode,
		Codes:     codes,
		Size:      pfSize,
		Weighting: pfWeighting,
	})
	if err != nil {
		return err
	}
	if pfSave {
		if err := a.store.Targets.Save(ctx, p); err != nil {
			return fmt.Errorf("save target: %w", err)
		}
		a.log.WithField("mode", string(p.Mode)).Info("Target portfolio saved")
	}
	if jsonOutput {
		return printJSON(p)
	}

	PrintHeader(fmt.Sprintf("💼 추천 포트폴리오 (%s)", p.Mode),
		fmt.Sprintf("후보 %d개 → 편입 %d개", len(codes), len(p.Positions)))

	PrintSection("📋", "구성")
	for _, pos := range p.Positions {
		fmt.Printf("  %-8s %-14s %7s  %s\n", pos.Code, pos.Name, format.Percent(pos.Weight, 1), pos.Reason)
	}
	PrintSeparator()
	PrintKV("현금", format.Percent(p.Cash, 1))
	fmt.Println()
	return nil
}
