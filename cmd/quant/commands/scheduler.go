package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/monitor"
	"github.com/wonny/quantlab/internal/portfolio"
	"github.com/wonny/quantlab/internal/scheduler"
	"github.com/wonny/quantlab/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/quant scheduler start
  go run ./cmd/quant scheduler list
  go run ./cmd/quant scheduler run price_collection`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업 (KST):
- price_collection: 평일 16:00 (시총 상위 종목 가격 캐시 갱신)
- monitor: 평일 9-15시 매시 정각 (헤지/이탈/자동제어 점검, DB 필요)
- rebalance: 평일 08:30 (리밸런싱 주기 도래 시 목표 비중 재계산)

알림은 alerts 테이블과 Telegram(설정 시)으로 전송됩니다.
스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== quantlab Scheduler ===")

	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := a.newScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	printJobs(sched.Stats())
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := a.newScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	if jsonOutput {
		return printJSON(sched.Stats())
	}
	printJobs(sched.Stats())
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := a.newScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	// 수동 실행은 재시도 없이 한 번만
	sched.WithRetry(0, 0)

	fmt.Printf("Running job: %s\n", jobName)
	res, err := sched.RunJob(jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}
	if jsonOutput {
		return printJSON(res)
	}
	if !res.Success {
		return fmt.Errorf("job %s failed after %d attempt(s): %s", jobName, res.Attempts, res.Error)
	}
	fmt.Printf("✅ %s completed in %s\n", jobName, res.Duration.Round(time.Millisecond))
	return nil
}

func printJobs(stats []scheduler.JobStats) {
	fmt.Println("\nRegistered jobs:")
	for _, st := range stats {
		line := fmt.Sprintf("  - %-18s %s", st.JobName, st.Schedule)
		if st.NextRun != nil {
			line += "  (next " + st.NextRun.Format("01-02 15:04") + ")"
		}
		fmt.Println(line)
	}
}

// newScheduler registers every job. extra notifiers (the websocket hub)
// receive monitor alerts next to the alert log and Telegram.
// ⭐ SSOT: 작업 등록은 여기서만
func (a *app) newScheduler(extra ...contracts.Notifier) (*scheduler.Scheduler, error) {
	sc := a.cfg.Scheduler
	sched := scheduler.New(a.metrics, a.log)

	collect := jobs.NewPriceCollectionJob(a.naver, a.prices, sc.Markets, sc.TopN, sc.Workers, a.log)
	if sc.MinQuality > 0 {
		qc := jobs.DefaultQualityConfig
		qc.MinScore = sc.MinQuality
		collect.WithQualityGate(jobs.NewQualityGate(qc))
	}
	if err := sched.AddJob(collect); err != nil {
		return nil, err
	}

	mode, err := portfolio.ParseMode(sc.PortfolioMode)
	if err != nil {
		return nil, err
	}
	rebalancer := monitor.NewRebalancer(true, monitor.DefaultRebalanceInterval)
	rebalance := jobs.NewRebalanceJob(a.brain, rebalancer, mode, a.universeCodes, a.log)
	if a.store != nil {
		rebalance.WithTargets(a.store.Targets)
	}
	if err := sched.AddJob(rebalance); err != nil {
		return nil, err
	}

	// 모니터는 user_history 가 있어야 의미가 있다
	if a.store == nil {
		a.log.Warn("DATABASE_URL not set, monitor job disabled")
		return sched, nil
	}
	notifiers, err := a.notifiers(extra...)
	if err != nil {
		return nil, err
	}
	m := monitor.New(monitor.Mode(sc.SummaryMode), rebalancer, a.metrics, a.log, notifiers...)
	if err := sched.AddJob(jobs.NewMonitorJob(a.brain, m, sc.UserID, a.log)); err != nil {
		return nil, err
	}
	return sched, nil
}

// universeCodes lists the top market-cap codes of every configured market
func (a *app) universeCodes(ctx context.Context) ([]string, error) {
	sc := a.cfg.Scheduler
	var codes []string
	for _, market := range sc.Markets {
		infos, err := a.naver.Universe(ctx, market, sc.TopN)
		if err != nil {
			return nil, fmt.Errorf("universe %s: %w", market, err)
		}
		for _, info := range infos {
			codes = append(codes, info.Code)
		}
	}
	return codes, nil
}
