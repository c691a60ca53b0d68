package commands

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
	jsonOutput bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "quantlab - 개인 투자자용 퀀트 분석 도구",
	Long: `quantlab Unified CLI

종목 분석부터 백테스트, 포트폴리오 구성, 실시간 모니터링까지.

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant analyze 005930
  go run ./cmd/quant backtest massive 005930 --scenarios 1000
  go run ./cmd/quant portfolio 005930 000660 035420 --mode stable
  go run ./cmd/quant api
  go run ./cmd/quant scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "JSON 출력")
}
