package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/uuid"

	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/domain"
)

// AlertRule is a threshold check over a single reading.
type AlertRule struct {
	ID         string `json:"id" yaml:"id"`
	Parameter  string `json:"parameter" yaml:"parameter"`
	Expression string `json:"expression" yaml:"expression"`
	Severity   string `json:"severity" yaml:"severity"`
	Message    string `json:"message" yaml:"message"`
}

// DefaultAlertRules returns the built-in limits for a small induction motor.
func DefaultAlertRules() []AlertRule {
	return []AlertRule{
		{
			ID:         "vibration-high",
			Parameter:  "vibration",
			Expression: "vibration > 7.1",
			Severity:   domain.SeverityHigh,
			Message:    "Vibration RMS above 7.1 mm/s",
		},
		{
			ID:         "motor-temp-high",
			Parameter:  "motor_temp",
			Expression: "motor_temp > 80.0",
			Severity:   domain.SeverityHigh,
			Message:    "Motor surface temperature above 80 °C",
		},
		{
			ID:         "bearing-temp-high",
			Parameter:  "bearing_temp",
			Expression: "bearing_temp > 90.0",
			Severity:   domain.SeverityHigh,
			Message:    "Bearing temperature above 90 °C",
		},
		{
			ID:         "voltage-out-of-range",
			Parameter:  "voltage",
			Expression: "voltage > 0.0 && (voltage < 198.0 || voltage > 242.0)",
			Severity:   domain.SeverityMedium,
			Message:    "Supply voltage outside 198-242 V",
		},
		{
			ID:         "power-factor-low",
			Parameter:  "pf",
			Expression: "pf > 0.0 && pf < 0.7",
			Severity:   domain.SeverityLow,
			Message:    "Power factor below 0.7",
		},
	}
}

// readingVariables are the names a rule expression can reference.
var readingVariables = []string{
	"voltage", "current", "power", "pf", "frequency", "energy",
	"vibration", "unbalance", "bearing_health",
	"motor_temp", "ambient_temp", "bearing_temp", "delta_temp",
	"dust", "soiling_loss",
}

// AlertEngine evaluates compiled alert rules against readings.
type AlertEngine struct {
	mu          sync.RWMutex
	env         *cel.Env
	rules       []*compiledAlertRule
	counters    domain.Cache
	cfg         domain.TelemetryConfig
	persistence int64
}

type compiledAlertRule struct {
	rule    AlertRule
	program cel.Program
}

// NewAlertEngine creates an engine. Firing counts are kept in counters.
func NewAlertEngine(counters domain.Cache, cfg domain.TelemetryConfig) (*AlertEngine, error) {
	opts := make([]cel.EnvOption, 0, len(readingVariables)+1)
	for _, name := range readingVariables {
		opts = append(opts, cel.Variable(name, cel.DoubleType))
	}
	opts = append(opts, cel.Variable("hotspot", cel.BoolType))

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	persistence := cfg.AlertPersistence
	if persistence <= 0 {
		persistence = 1
	}

	return &AlertEngine{
		env:         env,
		counters:    counters,
		cfg:         cfg,
		persistence: persistence,
	}, nil
}

// ValidateRule compiles a rule without loading it.
func (e *AlertEngine) ValidateRule(rule AlertRule) error {
	_, err := e.compile(rule)
	return err
}

// LoadRules replaces the loaded rules. Nothing changes if any rule fails to compile.
func (e *AlertEngine) LoadRules(rules []AlertRule) error {
	compiled := make([]*compiledAlertRule, 0, len(rules))
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if seen[r.ID] {
			return fmt.Errorf("duplicate alert rule %s", r.ID)
		}
		seen[r.ID] = true

		c, err := e.compile(r)
		if err != nil {
			return err
		}
		compiled = append(compiled, c)
	}

	e.mu.Lock()
	e.rules = compiled
	e.mu.Unlock()
	return nil
}

// Rules returns the loaded rules in load order.
func (e *AlertEngine) Rules() []AlertRule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]AlertRule, len(e.rules))
	for i, c := range e.rules {
		out[i] = c.rule
	}
	return out
}

// Evaluate runs every rule against the reading and returns the alerts that
// have fired on enough consecutive readings within the alert window to be active.
func (e *AlertEngine) Evaluate(ctx context.Context, motorID string, reading *domain.SensorReading) ([]domain.Alert, error) {
	e.mu.RLock()
	rules := e.rules
	e.mu.RUnlock()

	activation := readingActivation(reading)

	var firing []domain.Alert
	for _, c := range rules {
		out, _, err := c.program.Eval(activation)
		if err != nil {
			slog.Warn("alert rule evaluation failed",
				"rule_id", c.rule.ID,
				"motor_id", motorID,
				"error", err,
			)
			continue
		}
		counter := "alert:" + c.rule.ID
		if !fired(out) {
			// A clean reading breaks the streak.
			if err := e.counters.ResetCounter(ctx, motorID, counter); err != nil {
				return nil, fmt.Errorf("failed to reset alert %s: %w", c.rule.ID, err)
			}
			continue
		}

		count, err := e.counters.IncrementCounter(ctx, motorID, counter, e.cfg.AlertWindow)
		if err != nil {
			return nil, fmt.Errorf("failed to count alert %s: %w", c.rule.ID, err)
		}
		if count < e.persistence {
			continue
		}

		firing = append(firing, domain.Alert{
			ID:        uuid.New().String(),
			MotorID:   motorID,
			RuleID:    c.rule.ID,
			Severity:  c.rule.Severity,
			Message:   c.rule.Message,
			Parameter: c.rule.Parameter,
			Value:     parameterValue(activation, c.rule.Parameter),
			Status:    domain.AlertOpen,
			Timestamp: reading.Timestamp,
		})
	}
	return firing, nil
}

func (e *AlertEngine) compile(rule AlertRule) (*compiledAlertRule, error) {
	if rule.ID == "" {
		return nil, fmt.Errorf("alert rule id is required")
	}
	switch rule.Severity {
	case domain.SeverityLow, domain.SeverityMedium, domain.SeverityHigh:
	default:
		return nil, fmt.Errorf("alert rule %s: unknown severity %q", rule.ID, rule.Severity)
	}

	ast, issues := e.env.Compile(rule.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile alert rule %s: %w", rule.ID, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("alert rule %s: expression must return bool, got %s", rule.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for alert rule %s: %w", rule.ID, err)
	}
	return &compiledAlertRule{rule: rule, program: program}, nil
}

func readingActivation(r *domain.SensorReading) map[string]any {
	return map[string]any{
		"voltage":        r.Voltage,
		"current":        r.Current,
		"power":          r.Power,
		"pf":             r.PowerFactor,
		"frequency":      r.Frequency,
		"energy":         r.Energy,
		"vibration":      r.VibrationRMS,
		"unbalance":      r.Unbalance,
		"bearing_health": r.BearingHealth,
		"motor_temp":     r.MotorTemp,
		"ambient_temp":   r.AmbientTemp,
		"bearing_temp":   r.BearingTemp,
		"delta_temp":     r.DeltaTemp,
		"dust":           r.Dust,
		"soiling_loss":   r.SoilingLoss,
		"hotspot":        r.Hotspot,
	}
}

func parameterValue(activation map[string]any, name string) float64 {
	switch v := activation[name].(type) {
	case float64:
		return v
	case bool:
		if v {
			return 1
		}
	}
	return 0
}

func fired(val ref.Val) bool {
	b, ok := val.(types.Bool)
	return ok && bool(b)
}
