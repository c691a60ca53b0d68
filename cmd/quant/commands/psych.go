package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/psychology"
	"github.com/wonny/quantlab/pkg/format"
)

// psychCmd represents the psych command
var psychCmd = &cobra.Command{
	Use:   "psych [user]",
	Short: "투자 행동 심리 분석",
	Long: `action_log 에 기록된 판단으로 투자 행동 패턴을 분석합니다.

출력:
- 과신 / 손실 회피 / 행동 빈도
- 요일 × 시간 성공률 히트맵 최고/최저 구간
- 감정별 평균 수익률과 투자자 유형
- 고스트 리플레이 (N일 전 판단을 계속 보유했다면?)

DATABASE_URL 이 필요합니다.

Example:
  go run ./cmd/quant psych
  go run ./cmd/quant psych u1 --days 180 --ghost-days 30`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPsych,
}

var (
	psychDays      int
	psychGhostDays int
)

func init() {
	rootCmd.AddCommand(psychCmd)

	psychCmd.Flags().IntVar(&psychDays, "days", 90, "분석 기간 (일)")
	psychCmd.Flags().IntVar(&psychGhostDays, "ghost-days", psychology.GhostDays, "고스트 리플레이 기준 (일)")
}

// psychOutput is the --json shape
type psychOutput struct {
	UserID         string                  `json:"user_id"`
	Actions        int                     `json:"actions"`
	Bias           psychology.Bias         `json:"bias"`
	InvestorType   string                  `json:"investor_type"`
	Emotion        psychology.EmotionStats `json:"emotion"`
	Recommendation string                  `json:"recommendation"`
	Heatmap        *psychology.Heatmap     `json:"heatmap"`
	Ghost          []psychology.GhostTrade `json:"ghost"`
	GhostSummary   string                  `json:"ghost_summary"`
}

func runPsych(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	userID := a.cfg.Scheduler.UserID
	if len(args) == 1 {
		userID = args[0]
	}

	now := time.Now()
	actions, err := a.store.Actions.Since(ctx, userID, now.AddDate(0, 0, -psychDays))
	if err != nil {
		return fmt.Errorf("load actions: %w", err)
	}
	if len(actions) == 0 {
		PrintWarning(fmt.Sprintf("%s 의 최근 %d일 행동 기록이 없습니다", userID, psychDays))
		return nil
	}

	bias := psychology.BiasMetrics(actions)
	out := psychOutput{
		UserID:         userID,
		Actions:        len(actions),
		Bias:           bias,
		InvestorType:   psychology.InvestorType(bias),
		Emotion:        psychology.EmotionCorrelation(actions),
		Recommendation: psychology.RecommendFromMistakes(actions),
		Heatmap:        psychology.BuildHeatmap(actions),
	}
	out.Ghost = psychology.GhostReplay(actions, now, psychGhostDays, a.latestCloses(ctx, actions))
	out.GhostSummary = psychology.GhostSummary(out.Ghost)

	if jsonOutput {
		return printJSON(out)
	}

	PrintHeader(fmt.Sprintf("🧠 행동 심리 분석 %s", userID), fmt.Sprintf("최근 %d일, 판단 %d건", psychDays, len(actions)))

	PrintSection("🎯", "편향 지표")
	PrintKV("과신", fmt.Sprintf("%.1f%%", bias.Overconfidence))
	PrintKV("손실 회피", fmt.Sprintf("%.1f%%", bias.LossAversion))
	PrintKV("하루 평균 행동", fmt.Sprintf("%.2f회", bias.Frequency))
	PrintKV("투자자 유형", out.InvestorType)

	PrintSection("🗓", "히트맵")
	best, worst := heatmapExtremes(out.Heatmap)
	if best != "" {
		PrintKV("최고 구간", best)
		PrintKV("최저 구간", worst)
	} else {
		fmt.Println("  결과가 확정된 판단이 없습니다")
	}

	PrintSection("💓", "감정")
	PrintKV("전략변경↔수익", fmt.Sprintf("%.2f", out.Emotion.ChangeReturnCorr))
	PrintMap(out.Emotion.ByEmotion, format.Signed)
	PrintKV("추천", out.Recommendation)

	PrintSection("👻", fmt.Sprintf("고스트 리플레이 (%d일 전)", psychGhostDays))
	for _, g := range out.Ghost {
		fmt.Printf("  %s %s %-4s 실제 %8s  보유 %8s  후회 %8s\n",
			g.Action.ActedAt.Format("01-02"), g.Action.Code, g.Action.Type,
			format.Signed(g.Actual), format.Signed(g.Held), format.Signed(g.Regret))
	}
	fmt.Printf("  %s\n\n", out.GhostSummary)
	return nil
}

// latestCloses looks up the last close of every traded code.
// 가격을 못 가져온 종목은 고스트 리플레이에서 제외된다.
func (a *app) latestCloses(ctx context.Context, actions []contracts.Action) map[string]float64 {
	out := make(map[string]float64)
	seen := make(map[string]bool)
	to := time.Now()
	for _, act := range actions {
		if seen[act.Code] || act.Code == "" {
			continue
		}
		seen[act.Code] = true
		s, err := a.prices.FetchSeries(ctx, act.Code, to.AddDate(0, 0, -14), to)
		if err != nil {
			a.log.WithError(err).WithField("code", act.Code).Warn("latest price unavailable")
			continue
		}
		bar, err := s.Last()
		if err != nil {
			continue
		}
		out[act.Code] = bar.Close
	}
	return out
}

var weekdays = [7]string{"일", "월", "화", "수", "목", "금", "토"}

func heatmapExtremes(h *psychology.Heatmap) (best, worst string) {
	bestRate, worstRate := -1.0, 2.0
	for d := time.Sunday; d <= time.Saturday; d++ {
		for hour := 0; hour < 24; hour++ {
			r, ok := h.Rate(d, hour)
			if !ok {
				continue
			}
			label := fmt.Sprintf("%s %02d시 (%s, %d건)", weekdays[d], hour, format.Percent(r, 0), h.Count[d][hour])
			if r > bestRate {
				bestRate, best = r, label
			}
			if r < worstRate {
				worstRate, worst = r, label
			}
		}
	}
	return best, worst
}
