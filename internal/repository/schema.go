package repository

// Schema definitions for the motordiag database.
// Compatible with both SQLite and PostgreSQL.

const schemaSymptoms = `
CREATE TABLE IF NOT EXISTS symptoms (
    id INTEGER PRIMARY KEY,
    question TEXT NOT NULL,
    cf_expert REAL NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

// schemaRules keeps rule-base order in position; evaluation depends on it.
const schemaRules = `
CREATE TABLE IF NOT EXISTS rules (
    id TEXT PRIMARY KEY,
    position INTEGER NOT NULL,
    symptoms TEXT NOT NULL,
    operator TEXT NOT NULL,
    level TEXT NOT NULL,
    damage TEXT NOT NULL,
    solution TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rules_position ON rules(position);
`

const schemaSensorReadings = `
CREATE TABLE IF NOT EXISTS sensor_readings (
    motor_id TEXT NOT NULL,
    ts BIGINT NOT NULL,
    vibration_rms REAL NOT NULL,
    motor_temp REAL NOT NULL,
    payload TEXT NOT NULL,
    PRIMARY KEY (motor_id, ts)
);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaSymptoms,
		schemaRules,
		schemaSensorReadings,
	}
}
