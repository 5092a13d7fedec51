package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/domain"
)

// ErrUnknownMotor is returned when no telemetry exists for a motor.
var ErrUnknownMotor = errors.New("no telemetry for motor")

// Pipeline applies ingested readings: persist, track, evaluate alerts and
// announce newly opened alerts on the bus.
type Pipeline struct {
	repo    domain.Repository
	tracker *Tracker
	alerts  *AlertEngine
	bus     domain.EventBus

	restoreMu sync.Mutex
}

// NewPipeline wires a pipeline. bus may be nil.
func NewPipeline(repo domain.Repository, tracker *Tracker, alerts *AlertEngine, bus domain.EventBus) *Pipeline {
	return &Pipeline{
		repo:    repo,
		tracker: tracker,
		alerts:  alerts,
		bus:     bus,
	}
}

// Tracker returns the pipeline's tracker.
func (p *Pipeline) Tracker() *Tracker {
	return p.tracker
}

// Ingest applies one reading and returns the alerts it opened.
func (p *Pipeline) Ingest(ctx context.Context, motorID string, reading *domain.SensorReading) ([]domain.Alert, error) {
	if motorID == "" {
		return nil, fmt.Errorf("motorID is required")
	}
	if reading.Timestamp == 0 {
		reading.Timestamp = p.tracker.now().UnixMilli()
	}
	reading.MotorID = motorID

	if err := p.ensureRestored(ctx, motorID); err != nil {
		return nil, err
	}

	if err := p.repo.SaveReading(ctx, motorID, reading); err != nil {
		return nil, fmt.Errorf("failed to save reading: %w", err)
	}
	p.tracker.Record(motorID, *reading)

	firing, err := p.alerts.Evaluate(ctx, motorID, reading)
	if err != nil {
		return nil, err
	}
	opened := p.tracker.ApplyAlerts(motorID, firing)

	for i := range opened {
		p.publishAlert(ctx, &opened[i])
	}
	return opened, nil
}

// Snapshot returns the motor's live view, restoring today's history from
// the repository the first time the motor is asked for.
func (p *Pipeline) Snapshot(ctx context.Context, motorID string) (domain.TelemetrySnapshot, error) {
	if err := p.ensureRestored(ctx, motorID); err != nil {
		return domain.TelemetrySnapshot{}, err
	}
	snap, ok := p.tracker.Snapshot(motorID)
	if !ok {
		return domain.TelemetrySnapshot{}, ErrUnknownMotor
	}
	return snap, nil
}

func (p *Pipeline) ensureRestored(ctx context.Context, motorID string) error {
	p.restoreMu.Lock()
	defer p.restoreMu.Unlock()
	if p.tracker.Known(motorID) {
		return nil
	}
	return Restore(ctx, p.repo, p.tracker, motorID)
}

func (p *Pipeline) publishAlert(ctx context.Context, alert *domain.Alert) {
	slog.Warn("telemetry alert opened",
		"motor_id", alert.MotorID,
		"rule_id", alert.RuleID,
		"severity", alert.Severity,
		"value", alert.Value,
	)
	if p.bus == nil {
		return
	}
	payload, err := json.Marshal(alert)
	if err != nil {
		slog.Error("failed to marshal alert", "error", err)
		return
	}
	if err := p.bus.Publish(ctx, alert.MotorID, domain.TopicTelemetryAlert, payload); err != nil {
		slog.Error("failed to publish alert",
			"motor_id", alert.MotorID,
			"rule_id", alert.RuleID,
			"error", err,
		)
	}
}
