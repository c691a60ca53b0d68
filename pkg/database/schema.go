package database

// schema is applied in order by Migrate
var schema = []string{
	`CREATE SCHEMA IF NOT EXISTS quantlab`,

	// 성과 추적 이력 (최근 30건만 유지는 애플리케이션에서)
	`CREATE TABLE IF NOT EXISTS quantlab.user_history (
		id          BIGSERIAL PRIMARY KEY,
		user_id     TEXT        NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL,
		strategy    TEXT        NOT NULL,
		value       DOUBLE PRECISION NOT NULL,
		return_pct  DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_user_history_user ON quantlab.user_history (user_id, recorded_at DESC)`,

	`CREATE TABLE IF NOT EXISTS quantlab.action_log (
		id         BIGSERIAL PRIMARY KEY,
		user_id    TEXT        NOT NULL,
		acted_at   TIMESTAMPTZ NOT NULL,
		code       TEXT        NOT NULL,
		action     TEXT        NOT NULL,
		strategy   TEXT        NOT NULL DEFAULT '',
		price      DOUBLE PRECISION NOT NULL,
		quantity   INTEGER     NOT NULL,
		emotion    TEXT        NOT NULL DEFAULT '',
		return_pct DOUBLE PRECISION
	)`,
	`CREATE INDEX IF NOT EXISTS idx_action_log_user ON quantlab.action_log (user_id, acted_at)`,

	`CREATE TABLE IF NOT EXISTS quantlab.custom_strategies (
		name       TEXT PRIMARY KEY,
		owner      TEXT        NOT NULL,
		hash       TEXT        NOT NULL,
		definition TEXT        NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS quantlab.backtest_runs (
		run_id     UUID PRIMARY KEY,
		strategy   TEXT        NOT NULL,
		scenarios  INTEGER     NOT NULL,
		summary    JSONB       NOT NULL,
		survivors  JSONB       NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_backtest_runs_strategy ON quantlab.backtest_runs (strategy, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS quantlab.alerts (
		id         UUID PRIMARY KEY,
		fired_at   TIMESTAMPTZ NOT NULL,
		kind       TEXT        NOT NULL,
		level      TEXT        NOT NULL,
		message    TEXT        NOT NULL,
		details    JSONB       NOT NULL DEFAULT '{}'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_fired ON quantlab.alerts (fired_at DESC)`,

	`CREATE TABLE IF NOT EXISTS quantlab.target_positions (
		target_date DATE             NOT NULL,
		mode        TEXT             NOT NULL,
		code        TEXT             NOT NULL,
		name        TEXT             NOT NULL DEFAULT '',
		weight      DOUBLE PRECISION NOT NULL,
		reason      TEXT             NOT NULL DEFAULT '',
		PRIMARY KEY (target_date, mode, code)
	)`,
	`CREATE TABLE IF NOT EXISTS quantlab.portfolio_snapshots (
		snapshot_date   DATE             NOT NULL,
		mode            TEXT             NOT NULL,
		total_positions INTEGER          NOT NULL,
		total_weight    DOUBLE PRECISION NOT NULL,
		cash            DOUBLE PRECISION NOT NULL,
		created_at      TIMESTAMPTZ      NOT NULL DEFAULT now(),
		PRIMARY KEY (snapshot_date, mode)
	)`,
}
