package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"

	"github.com/wonny/quantlab/internal/brain"
	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/external/dart"
	"github.com/wonny/quantlab/internal/external/krx"
	"github.com/wonny/quantlab/internal/external/naver"
	"github.com/wonny/quantlab/internal/monitor"
	"github.com/wonny/quantlab/internal/store"
	"github.com/wonny/quantlab/pkg/config"
	"github.com/wonny/quantlab/pkg/database"
	"github.com/wonny/quantlab/pkg/httputil"
	"github.com/wonny/quantlab/pkg/logger"
	"github.com/wonny/quantlab/pkg/metrics"
	"github.com/wonny/quantlab/pkg/redis"
)

// app holds everything a command needs
// ⭐ SSOT: 의존성 조립은 newApp 에서만
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Registry
	db      *database.DB // nil without DATABASE_URL
	redis   *redis.Client
	store   *store.Store // nil without DATABASE_URL
	prices  *store.PriceCache
	naver   *naver.Client
	dart    *dart.Client
	krx     *krx.Client
	brain   *brain.Orchestrator
}

// newApp loads config and wires clients. requireDB fails fast for commands
// that persist data.
func newApp(ctx context.Context, requireDB bool) (*app, error) {
	// 1. Load config (--config 파일이 .env 보다 우선)
	if configFile != "" {
		if err := godotenv.Load(configFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", configFile, err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger and metrics
	log := logger.New(cfg)
	a := &app{cfg: cfg, log: log, metrics: metrics.New()}

	// 3. Connect to database
	if cfg.Database.URL != "" {
		db, err := database.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.db = db
		a.store = store.New(db.Pool)
		log.Debug("Connected to database")
	} else if requireDB {
		return nil, cfg.RequireDatabase()
	}

	// 4. Redis (실패 시 캐시 없이 진행)
	rc, err := redis.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, running without cache")
		rc = redis.Disabled()
	}
	a.redis = rc

	// 5. External clients
	limiter := redis.NewRateLimiter(rc, "quantlab")
	naverHTTP := httputil.New(log).
		WithUserAgent(naver.BrowserUserAgent).
		WithRateLimit(cfg.Naver.RateLimit, 1).
		WithDistributedLimiter(limiter, redis.RateLimitConfig{
			Key:    "naver",
			Limit:  max(int(cfg.Naver.RateLimit), 1),
			Window: time.Second,
		})
	a.naver = naver.NewClient(cfg.Naver, naverHTTP, a.metrics, log)
	a.krx = krx.NewClient(cfg.Naver, naverHTTP, a.metrics, log) // 지수도 같은 모바일 API
	a.dart = dart.NewClient(cfg.DART, a.metrics, log)
	for code, corp := range cfg.DART.CorpCodes {
		a.dart.RegisterCorpCode(code, corp)
	}

	// 6. Caches and orchestrator
	cache := redis.NewCache(rc, "quantlab")
	a.prices = store.NewPriceCache(a.naver, cache, cfg.Redis.CacheTTL, log)

	var financials contracts.FinancialSource
	if cfg.DART.APIKey != "" {
		financials = store.NewFinancialCache(a.dart, cache, log)
	}
	src := brain.Sources{
		Prices:     a.prices,
		Info:       a.naver,
		Flows:      a.naver,
		Financials: financials,
		Index:      a.krx,
	}
	if cfg.DART.APIKey != "" {
		src.Disclosures = a.dart
	}
	a.brain = brain.NewOrchestrator(src, a.store, cfg.Backtest, a.metrics, log)
	return a, nil
}

// notifiers builds the alert fan-out: alert log, Telegram, extra (hub)
func (a *app) notifiers(extra ...contracts.Notifier) ([]contracts.Notifier, error) {
	var out []contracts.Notifier
	if a.store != nil {
		out = append(out, a.store.Alerts)
	}
	if a.cfg.Telegram.Enabled {
		tg, err := monitor.NewTelegramNotifier(a.cfg.Telegram)
		if err != nil {
			return nil, fmt.Errorf("telegram: %w", err)
		}
		out = append(out, tg)
	}
	return append(out, extra...), nil
}

// Close releases pools
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
