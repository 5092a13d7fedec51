// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	db, err := open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 && cfg.SQLitePath != memoryPath {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveSymptom inserts or replaces a catalog symptom.
func (r *SQLRepository) SaveSymptom(ctx context.Context, symptom *domain.Symptom) error {
	return r.saveSymptom(ctx, r.db, symptom)
}

func (r *SQLRepository) saveSymptom(ctx context.Context, ex execer, symptom *domain.Symptom) error {
	if symptom == nil {
		return fmt.Errorf("%w: symptom is required", ErrInvalidInput)
	}
	if symptom.CFExpert < 0 || symptom.CFExpert > 1 {
		return fmt.Errorf("%w: cfExpert must be within [0,1]", ErrInvalidInput)
	}

	query := `
		INSERT INTO symptoms (id, question, cf_expert, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			question = excluded.question,
			cf_expert = excluded.cf_expert,
			updated_at = excluded.updated_at
	`

	_, err := ex.ExecContext(ctx, r.rebind(query),
		symptom.ID, symptom.Question, symptom.CFExpert, time.Now().UTC(),
	)
	return err
}

// ListSymptoms returns the catalog in id order.
func (r *SQLRepository) ListSymptoms(ctx context.Context) ([]*domain.Symptom, error) {
	query := `SELECT id, question, cf_expert FROM symptoms ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symptoms []*domain.Symptom
	for rows.Next() {
		var s domain.Symptom
		if err := rows.Scan(&s.ID, &s.Question, &s.CFExpert); err != nil {
			return nil, err
		}
		symptoms = append(symptoms, &s)
	}

	return symptoms, rows.Err()
}

// SaveRule inserts or replaces a rule at a position in the rule base.
func (r *SQLRepository) SaveRule(ctx context.Context, position int, rule *domain.Rule) error {
	return r.saveRule(ctx, r.db, position, rule)
}

func (r *SQLRepository) saveRule(ctx context.Context, ex execer, position int, rule *domain.Rule) error {
	if rule == nil || rule.ID == "" {
		return fmt.Errorf("%w: rule id is required", ErrInvalidInput)
	}

	symptoms, _ := json.Marshal(rule.Symptoms)

	query := `
		INSERT INTO rules (id, position, symptoms, operator, level, damage, solution, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			position = excluded.position,
			symptoms = excluded.symptoms,
			operator = excluded.operator,
			level = excluded.level,
			damage = excluded.damage,
			solution = excluded.solution,
			updated_at = excluded.updated_at
	`

	_, err := ex.ExecContext(ctx, r.rebind(query),
		rule.ID, position, string(symptoms),
		string(rule.Operator), string(rule.Level),
		rule.Damage, rule.Solution, time.Now().UTC(),
	)
	return err
}

// SaveKnowledge writes symptoms and rules in a single transaction, so a
// failure leaves the knowledge tables as they were.
func (r *SQLRepository) SaveKnowledge(ctx context.Context, symptoms []domain.Symptom, rules []domain.Rule) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range symptoms {
		if err := r.saveSymptom(ctx, tx, &symptoms[i]); err != nil {
			return fmt.Errorf("symptom %d: %w", symptoms[i].ID, err)
		}
	}
	for i := range rules {
		if err := r.saveRule(ctx, tx, i, &rules[i]); err != nil {
			return fmt.Errorf("rule %s: %w", rules[i].ID, err)
		}
	}

	return tx.Commit()
}

// GetRule retrieves a rule by ID.
func (r *SQLRepository) GetRule(ctx context.Context, ruleID string) (*domain.Rule, error) {
	query := `
		SELECT id, symptoms, operator, level, damage, solution
		FROM rules
		WHERE id = ?
	`

	rule, err := scanRule(r.db.QueryRowContext(ctx, r.rebind(query), ruleID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// ListRules returns the rule base in evaluation order.
func (r *SQLRepository) ListRules(ctx context.Context) ([]*domain.Rule, error) {
	query := `
		SELECT id, symptoms, operator, level, damage, solution
		FROM rules
		ORDER BY position, id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*domain.Rule, error) {
	var rule domain.Rule
	var symptoms, operator, level string

	if err := row.Scan(&rule.ID, &symptoms, &operator, &level, &rule.Damage, &rule.Solution); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(symptoms), &rule.Symptoms); err != nil {
		return nil, fmt.Errorf("rule %s: corrupt symptom list: %w", rule.ID, err)
	}
	rule.Operator = domain.Operator(operator)
	rule.Level = domain.Level(level)

	return &rule, nil
}

// SaveReading stores a sensor reading. A second reading with the same
// timestamp for the same motor replaces the first.
func (r *SQLRepository) SaveReading(ctx context.Context, motorID string, reading *domain.SensorReading) error {
	if motorID == "" {
		return fmt.Errorf("%w: motorID is required", ErrInvalidInput)
	}
	if reading == nil {
		return fmt.Errorf("%w: reading is required", ErrInvalidInput)
	}

	stored := *reading
	stored.MotorID = motorID
	payload, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to encode reading: %w", err)
	}

	query := `
		INSERT INTO sensor_readings (motor_id, ts, vibration_rms, motor_temp, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(motor_id, ts) DO UPDATE SET
			vibration_rms = excluded.vibration_rms,
			motor_temp = excluded.motor_temp,
			payload = excluded.payload
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		motorID, reading.Timestamp, reading.VibrationRMS, reading.MotorTemp, string(payload),
	)
	return err
}

// ListReadings returns a motor's readings at or after since, newest first.
// A limit of zero or less returns every matching reading.
func (r *SQLRepository) ListReadings(ctx context.Context, motorID string, since time.Time, limit int) ([]*domain.SensorReading, error) {
	if motorID == "" {
		return nil, fmt.Errorf("%w: motorID is required", ErrInvalidInput)
	}

	query := `
		SELECT payload
		FROM sensor_readings
		WHERE motor_id = ? AND ts >= ?
		ORDER BY ts DESC
	`
	args := []any{motorID, since.UnixMilli()}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []*domain.SensorReading
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}

		var reading domain.SensorReading
		if err := json.Unmarshal([]byte(payload), &reading); err != nil {
			return nil, fmt.Errorf("corrupt reading for motor %s: %w", motorID, err)
		}
		readings = append(readings, &reading)
	}

	return readings, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
