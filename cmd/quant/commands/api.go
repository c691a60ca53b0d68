package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/quantlab/internal/api"
	"github.com/wonny/quantlab/internal/api/handlers"
	"github.com/wonny/quantlab/internal/scheduler"
	"github.com/wonny/quantlab/pkg/metrics"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                       - Health check
  GET  /api/v1/profile/{code}        - 종목 프로파일
  GET  /api/v1/fundamental/{code}    - 재무 분석 (?years=4)
  GET  /api/v1/signals/{code}        - 통합 시그널
  GET  /api/v1/timing/{code}         - 타이밍 분석 (?phase=Bull)
  POST /api/v1/backtest/massive      - 대량 시나리오 백테스트
  POST /api/v1/macro/score           - 매크로 점수
  POST /api/v1/portfolio/recommend   - 포트폴리오 추천
  GET  /api/v1/strategies            - 사용자 전략 목록
  POST /api/v1/strategies            - 사용자 전략 저장 (YAML)
  GET  /api/v1/strategies/{name}     - 사용자 전략 조회
  GET  /api/v1/alerts/ws             - 실시간 알림 (WebSocket)

--scheduler 를 주면 스케줄러를 같은 프로세스에서 실행하고
모니터 알림을 WebSocket 으로도 보냅니다.

Example:
  go run ./cmd/quant api
  go run ./cmd/quant api --port 8080 --scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort      string
	apiScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
	apiCmd.Flags().BoolVar(&apiScheduler, "scheduler", false, "스케줄러 함께 실행")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== quantlab API Server ===")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg
	if apiPort != "" {
		cfg.Port = apiPort
	}
	log := a.log

	// 1. Alert hub
	hub := api.NewHub(cfg.CORSOrigins, log)
	go hub.Run(ctx)

	// 2. Handlers (DB 없으면 전략 저장소 비활성화)
	var strategies handlers.StrategyStore
	if a.store != nil {
		strategies = a.store.Strategies
	}
	h := handlers.New(a.brain, strategies, log)

	// 3. Router and server
	var reg *metrics.Registry
	if cfg.MetricsEnabled {
		reg = a.metrics
	}
	router := api.NewRouter(api.RouterDeps{
		Handler:     h,
		Hub:         hub,
		Metrics:     reg,
		MetricsPath: cfg.MetricsPath,
		Logger:      log,
	})
	server := api.New(cfg, log, router)

	// 4. Optional in-process scheduler
	var sched *scheduler.Scheduler
	if apiScheduler {
		sched, err = a.newScheduler(hub)
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.WithFields(map[string]interface{}{
		"port":      cfg.Port,
		"env":       cfg.Env,
		"database":  a.store != nil,
		"scheduler": apiScheduler,
	}).Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info("Shutting down server...")
	if sched != nil {
		sched.Stop()
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	cancel()

	log.Info("Server stopped")
	return nil
}
