package commands

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/cobra"

	"github.com/wonny/quantlab/pkg/database"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "시스템 / 연결 상태 점검",
	Long: `실행 환경과 외부 연결 상태를 점검합니다.

표시 정보:
- CPU 코어, CPU / 메모리 사용률
- 권장 워커 수 (BACKTEST_WORKERS, SCHEDULER_WORKERS)
- PostgreSQL 풀 상태
- Redis 연결 상태

Example:
  go run ./cmd/quant status
  go run ./cmd/quant status --json`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// systemStatus is the --json shape
type systemStatus struct {
	CPUCores         int                    `json:"cpu_cores"`
	CPUPercent       float64                `json:"cpu_percent"`
	MemoryTotalGB    float64                `json:"memory_total_gb"`
	MemoryPercent    float64                `json:"memory_percent"`
	Goroutines       int                    `json:"goroutines"`
	SuggestedWorkers int                    `json:"suggested_workers"`
	BacktestWorkers  int                    `json:"backtest_workers"`
	SchedulerWorkers int                    `json:"scheduler_workers"`
	Database         *database.HealthStatus `json:"database,omitempty"`
	RedisEnabled     bool                   `json:"redis_enabled"`
	RedisError       string                 `json:"redis_error,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	st := systemStatus{
		CPUCores:         runtime.NumCPU(),
		Goroutines:       runtime.NumGoroutine(),
		BacktestWorkers:  a.cfg.Backtest.Workers,
		SchedulerWorkers: a.cfg.Scheduler.Workers,
	}
	if pct, err := cpu.PercentWithContext(ctx, time.Second, false); err == nil && len(pct) > 0 {
		st.CPUPercent = pct[0]
	} else if err != nil {
		a.log.WithError(err).Warn("cpu usage unavailable")
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		st.MemoryTotalGB = float64(vm.Total) / (1 << 30)
		st.MemoryPercent = vm.UsedPercent
	} else {
		a.log.WithError(err).Warn("memory info unavailable")
	}
	st.SuggestedWorkers = suggestWorkers(st.CPUCores, st.MemoryTotalGB, st.CPUPercent)

	if a.db != nil {
		// 실패해도 상태는 그대로 보여준다
		st.Database, _ = a.db.HealthCheck(ctx)
	}
	st.RedisEnabled = a.redis.Enabled()
	if st.RedisEnabled {
		if err := a.redis.Redis().Ping(ctx).Err(); err != nil {
			st.RedisError = err.Error()
		}
	}

	if jsonOutput {
		return printJSON(st)
	}

	PrintHeader("🩺 quantlab Status", fmt.Sprintf("env: %s", a.cfg.Env))

	PrintSection("💻", "시스템")
	PrintKV("CPU", fmt.Sprintf("%d cores, %.1f%%", st.CPUCores, st.CPUPercent))
	PrintKV("메모리", fmt.Sprintf("%.1f GB, %.1f%%", st.MemoryTotalGB, st.MemoryPercent))
	PrintKV("Goroutines", st.Goroutines)
	PrintKV("권장 워커", st.SuggestedWorkers)
	PrintKV("백테스트 워커", st.BacktestWorkers)
	PrintKV("수집 워커", st.SchedulerWorkers)

	PrintSection("🗄", "PostgreSQL")
	switch {
	case st.Database == nil:
		PrintKV("상태", "미설정 (DATABASE_URL)")
	case st.Database.Healthy:
		PrintKV("상태", "✅ healthy")
		PrintKV("응답", st.Database.ResponseTime.Round(time.Microsecond))
		PrintKV("연결", fmt.Sprintf("%d/%d (idle %d)", st.Database.TotalConns, st.Database.MaxConns, st.Database.IdleConns))
	default:
		PrintKV("상태", "❌ "+st.Database.Error)
	}

	PrintSection("⚡", "Redis")
	switch {
	case !st.RedisEnabled:
		PrintKV("상태", "비활성 (캐시 없이 동작)")
	case st.RedisError != "":
		PrintKV("상태", "❌ "+st.RedisError)
	default:
		PrintKV("상태", "✅ connected")
	}

	if st.BacktestWorkers > st.SuggestedWorkers {
		PrintWarning(fmt.Sprintf("BACKTEST_WORKERS(%d) 가 권장값(%d)보다 큽니다", st.BacktestWorkers, st.SuggestedWorkers))
	}
	fmt.Println()
	return nil
}

// suggestWorkers scales 2×cores down on small-memory or busy hosts
func suggestWorkers(cores int, memGB, cpuPercent float64) int {
	n := float64(cores * 2)
	switch {
	case memGB > 0 && memGB < 4:
		n *= 0.5
	case memGB > 0 && memGB < 8:
		n *= 0.75
	}
	if cpuPercent > 80 {
		n *= 0.7
	}
	return max(int(n), 1)
}
