package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrDatabaseURLRequired is returned by RequireDatabase when DATABASE_URL is empty.
var ErrDatabaseURLRequired = errors.New("DATABASE_URL is required")

// Config holds all configuration for quantlab
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port        string
	Env         string // development, staging, production
	CORSOrigins []string

	Database DatabaseConfig
	Redis    RedisConfig

	// External data sources
	DART  DARTConfig
	Naver NaverConfig

	Telegram  TelegramConfig
	Backtest  BacktestConfig
	Scheduler SchedulerConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	MetricsPath    string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	CacheTTL time.Duration
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

// DARTConfig holds DART (전자공시) API configuration
type DARTConfig struct {
	APIKey    string
	BaseURL   string
	CorpCodes map[string]string // 종목코드 → DART 고유번호
}

// NaverConfig holds Naver Finance configuration
type NaverConfig struct {
	BaseURL   string
	ChartURL  string
	MobileURL string  // 지수 시세 (KRX 데이터)
	RateLimit float64 // requests per second
}

// TelegramConfig holds alert delivery settings
type TelegramConfig struct {
	Enabled  bool
	BotToken string
	ChatID   int64
}

// BacktestConfig controls the massive scenario runner
type BacktestConfig struct {
	Workers        int // 0 = CPU 수
	Scenarios      int
	InitialCapital float64
	Commission     float64
	Slippage       float64
}

// SchedulerConfig drives the cron jobs of `quant scheduler`
type SchedulerConfig struct {
	UserID        string   // 모니터링 대상 사용자
	Markets       []string // 수집 대상 시장
	TopN          int      // 시장별 시가총액 상위 종목 수
	Workers       int
	PortfolioMode string  // STABLE, BALANCED, AGGRESSIVE, AI_OPT
	SummaryMode   string  // 초심자, 전문가
	MinQuality    float64 // 수집 품질 하한 (0 = 검증 안 함)
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port:        getEnv("PORT", "8089"),
		Env:         getEnv("ENV", "development"),
		CORSOrigins: getEnvAsList("CORS_ORIGINS", "http://localhost:3000"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			CacheTTL: getEnvAsDuration("REDIS_CACHE_TTL", "6h"),
		},

		DART: DARTConfig{
			APIKey:    getEnv("DART_API_KEY", ""),
			BaseURL:   getEnv("DART_BASE_URL", "https://opendart.fss.or.kr/api"),
			CorpCodes: getEnvAsMap("DART_CORP_CODES", "005930:00126380,000660:00164779"),
		},

		Naver: NaverConfig{
			BaseURL:   getEnv("NAVER_BASE_URL", "https://finance.naver.com"),
			ChartURL:  getEnv("NAVER_CHART_URL", "https://api.finance.naver.com"),
			MobileURL: getEnv("NAVER_MOBILE_URL", "https://m.stock.naver.com"),
			RateLimit: getEnvAsFloat("NAVER_RATE_LIMIT", 5),
		},

		Telegram: TelegramConfig{
			Enabled:  getEnvAsBool("TELEGRAM_ENABLED", false),
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   int64(getEnvAsInt("TELEGRAM_CHAT_ID", 0)),
		},

		Backtest: BacktestConfig{
			Workers:        getEnvAsInt("BACKTEST_WORKERS", 0),
			Scenarios:      getEnvAsInt("BACKTEST_SCENARIOS", 1000),
			InitialCapital: getEnvAsFloat("BACKTEST_INITIAL_CAPITAL", 10_000_000),
			Commission:     getEnvAsFloat("BACKTEST_COMMISSION", 0.00015),
			Slippage:       getEnvAsFloat("BACKTEST_SLIPPAGE", 0.001),
		},

		Scheduler: SchedulerConfig{
			UserID:        getEnv("SCHEDULER_USER_ID", "default"),
			Markets:       getEnvAsList("SCHEDULER_MARKETS", "KOSPI,KOSDAQ"),
			TopN:          getEnvAsInt("SCHEDULER_TOP_N", 50),
			Workers:       getEnvAsInt("SCHEDULER_WORKERS", 4),
			PortfolioMode: getEnv("PORTFOLIO_MODE", "BALANCED"),
			SummaryMode:   getEnv("SUMMARY_MODE", "초심자"),
			MinQuality:    getEnvAsFloat("SCHEDULER_MIN_QUALITY", 0.8),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		MetricsPath:    getEnv("METRICS_PATH", "/metrics"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks values that every command depends on.
// DB 필수 여부는 RequireDatabase 에서 명령별로 판단
func (c *Config) Validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == 0) {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are required when TELEGRAM_ENABLED")
	}

	if c.Backtest.Workers < 0 {
		return fmt.Errorf("BACKTEST_WORKERS must be >= 0")
	}

	if c.Scheduler.Workers < 1 {
		return fmt.Errorf("SCHEDULER_WORKERS must be >= 1")
	}

	if c.Scheduler.MinQuality < 0 || c.Scheduler.MinQuality > 1 {
		return fmt.Errorf("SCHEDULER_MIN_QUALITY must be between 0 and 1")
	}

	return nil
}

// RequireDatabase fails when a storage-backed command runs without DATABASE_URL
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return ErrDatabaseURLRequired
	}
	return nil
}

// IsProduction reports whether ENV is production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// loadEnvFile tries .env in the working directory, then next to the executable
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}

func getEnvAsList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnvAsMap parses "k1:v1,k2:v2"; malformed pairs are skipped
func getEnvAsMap(key, defaultValue string) map[string]string {
	out := make(map[string]string)
	for _, pair := range getEnvAsList(key, defaultValue) {
		k, v, ok := strings.Cut(pair, ":")
		if !ok || strings.TrimSpace(k) == "" {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}
