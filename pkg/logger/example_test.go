package logger_test

import (
	"github.com/wonny/quantlab/pkg/config"
	"github.com/wonny/quantlab/pkg/logger"
)

// Example_component shows the per-component logging used by long-running services
func Example_component() {
	log := logger.New(&config.Config{Env: "development", LogLevel: "info", LogFormat: "console"})

	log.WithComponent("scheduler").
		WithFields(map[string]interface{}{
			"job":      "price_collection",
			"duration": "1.2s",
		}).
		Info("job completed")
}
