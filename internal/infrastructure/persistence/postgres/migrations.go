package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: LEARNER STATISTICS
// ══════════════════════════════════════════════════════════════════════════════

// The statistics tables are written by the aggregator; the engine only reads.
const migration001Up = `
CREATE TABLE IF NOT EXISTS learner_stats (
    user_id VARCHAR(64) PRIMARY KEY,
    total_sessions INTEGER NOT NULL DEFAULT 0,
    completed_sessions INTEGER NOT NULL DEFAULT 0,
    overall_accuracy DOUBLE PRECISION NOT NULL DEFAULT 0,
    total_time_spent DOUBLE PRECISION NOT NULL DEFAULT 0,
    focus_triggered INTEGER NOT NULL DEFAULT 0,
    focus_success_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
    focus_effectiveness DOUBLE PRECISION NOT NULL DEFAULT 0,
    pronunciation_average DOUBLE PRECISION NOT NULL DEFAULT 0,
    pronunciation_assessments INTEGER NOT NULL DEFAULT 0,
    pronunciation_improvement DOUBLE PRECISION NOT NULL DEFAULT 0,
    rescue_triggered INTEGER NOT NULL DEFAULT 0,
    rescue_effectiveness DOUBLE PRECISION NOT NULL DEFAULT 0,
    srs_accuracy_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
    srs_reviews_today INTEGER NOT NULL DEFAULT 0,
    srs_cards_total INTEGER NOT NULL DEFAULT 0,
    srs_graduated_cards INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS learner_daily_stats (
    user_id VARCHAR(64) NOT NULL,
    day DATE NOT NULL,
    sessions INTEGER NOT NULL DEFAULT 0,
    completed_sessions INTEGER NOT NULL DEFAULT 0,
    accuracy DOUBLE PRECISION NOT NULL DEFAULT 0,
    time_spent DOUBLE PRECISION NOT NULL DEFAULT 0,
    focus_triggers INTEGER NOT NULL DEFAULT 0,
    rescue_triggers INTEGER NOT NULL DEFAULT 0,
    pronunciation_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    assessments INTEGER NOT NULL DEFAULT 0,
    reviews INTEGER NOT NULL DEFAULT 0,
    review_accuracy DOUBLE PRECISION NOT NULL DEFAULT 0,

    PRIMARY KEY (user_id, day)
);

CREATE INDEX IF NOT EXISTS idx_learner_stats_updated_at ON learner_stats(updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_learner_daily_stats_day ON learner_daily_stats(day DESC);
`

const migration001Down = `
DROP TABLE IF EXISTS learner_daily_stats;
DROP TABLE IF EXISTS learner_stats;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: ALERT ARCHIVE
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS alert_archive (
    id VARCHAR(64) PRIMARY KEY,
    user_id VARCHAR(64) NOT NULL,
    alert_type VARCHAR(20) NOT NULL,
    risk_type VARCHAR(40) NOT NULL,
    urgency DOUBLE PRECISION NOT NULL,
    body JSONB NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL,
    expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
    closed_at TIMESTAMP WITH TIME ZONE,
    close_reason VARCHAR(20),

    CONSTRAINT valid_alert_type CHECK (alert_type IN ('warning', 'critical', 'opportunity')),
    CONSTRAINT valid_close_reason CHECK (close_reason IS NULL OR close_reason IN ('dismissed', 'expired'))
);

CREATE INDEX IF NOT EXISTS idx_alert_archive_user ON alert_archive(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_alert_archive_open ON alert_archive(expires_at) WHERE closed_at IS NULL;
`

const migration002Down = `
DROP TABLE IF EXISTS alert_archive;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: INTERVENTION EXECUTIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE IF NOT EXISTS intervention_executions (
    id VARCHAR(64) PRIMARY KEY,
    strategy_id VARCHAR(64) NOT NULL,
    user_id VARCHAR(64) NOT NULL,
    status VARCHAR(20) NOT NULL,
    started_at TIMESTAMP WITH TIME ZONE NOT NULL,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
    completed_at TIMESTAMP WITH TIME ZONE,
    body JSONB NOT NULL,

    CONSTRAINT valid_execution_status CHECK (status IN ('planned', 'active', 'completed', 'cancelled', 'failed'))
);

CREATE INDEX IF NOT EXISTS idx_executions_user_status ON intervention_executions(user_id, status);
CREATE INDEX IF NOT EXISTS idx_executions_user_started ON intervention_executions(user_id, started_at DESC);
`

const migration003Down = `
DROP TABLE IF EXISTS intervention_executions;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: LEARNING PROFILES
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
CREATE TABLE IF NOT EXISTS learning_profiles (
    user_id VARCHAR(64) PRIMARY KEY,
    learning_style VARCHAR(20) NOT NULL,
    body JSONB NOT NULL,
    last_updated TIMESTAMP WITH TIME ZONE NOT NULL
);
`

const migration004Down = `
DROP TABLE IF EXISTS learning_profiles;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 005: ALERT CLOSURES
// Closures live apart from the archive so a dismissal written before its
// alert is kept.
// ══════════════════════════════════════════════════════════════════════════════

const migration005Up = `
CREATE TABLE IF NOT EXISTS alert_closures (
    alert_id VARCHAR(64) PRIMARY KEY,
    close_reason VARCHAR(20) NOT NULL,
    closed_at TIMESTAMP WITH TIME ZONE NOT NULL,

    CONSTRAINT valid_closure_reason CHECK (close_reason IN ('dismissed', 'expired'))
);

INSERT INTO alert_closures (alert_id, close_reason, closed_at)
SELECT id, close_reason, closed_at
FROM alert_archive
WHERE closed_at IS NOT NULL
ON CONFLICT (alert_id) DO NOTHING;
`

const migration005Down = `
DROP TABLE IF EXISTS alert_closures;
`

// ══════════════════════════════════════════════════════════════════════════════
// EMBEDDED MIGRATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetMigrations returns all embedded migrations in version order.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_learner_stats", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_alert_archive", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_intervention_executions", UpSQL: migration003Up, DownSQL: migration003Down},
		{Version: 4, Name: "create_learning_profiles", UpSQL: migration004Up, DownSQL: migration004Down},
		{Version: 5, Name: "create_alert_closures", UpSQL: migration005Up, DownSQL: migration005Down},
	}
}
