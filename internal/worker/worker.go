// Package worker provides async telemetry processing for the Pro tier.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/domain"
	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/telemetry"
)

// Worker applies sensor readings published on the EventBus.
type Worker struct {
	bus      domain.EventBus
	pipeline *telemetry.Pipeline

	mu            sync.Mutex
	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc

	processed atomic.Int64
	failed    atomic.Int64
}

// Config holds worker configuration.
type Config struct {
	// MotorIDs is the list of motors to process (empty = all motors)
	MotorIDs []string
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, pipeline *telemetry.Pipeline) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:      bus,
		pipeline: pipeline,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins processing readings for the given motors.
func (w *Worker) Start(cfg Config) error {
	if len(cfg.MotorIDs) == 0 {
		return w.subscribe(domain.AllMotors)
	}

	for _, motorID := range cfg.MotorIDs {
		if err := w.subscribe(motorID); err != nil {
			slog.Error("failed to start worker for motor",
				"motor_id", motorID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"motor_count", len(cfg.MotorIDs),
	)

	return nil
}

func (w *Worker) subscribe(motorID string) error {
	sub, err := w.bus.Subscribe(w.ctx, motorID, domain.TopicTelemetryReading, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe %s: %w", motorID, err)
	}

	w.mu.Lock()
	w.subscriptions = append(w.subscriptions, sub)
	w.mu.Unlock()

	slog.Info("telemetry worker started",
		"motor_id", motorID,
		"topic", domain.TopicTelemetryReading,
	)
	return nil
}

// handleMessage handles one published reading.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	w.wg.Add(1)
	defer w.wg.Done()

	if err := w.processReading(ctx, msg); err != nil {
		w.failed.Add(1)
		return err
	}
	w.processed.Add(1)
	return nil
}

// processReading runs a reading through the telemetry pipeline.
func (w *Worker) processReading(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var reading domain.SensorReading
	if err := json.Unmarshal(msg.Payload, &reading); err != nil {
		slog.Error("failed to parse reading message",
			"message_id", msg.ID,
			"motor_id", msg.MotorID,
			"error", err,
		)
		return err
	}

	motorID := msg.MotorID
	if reading.MotorID != "" {
		motorID = reading.MotorID
	}

	opened, err := w.pipeline.Ingest(ctx, motorID, &reading)
	if err != nil {
		slog.Error("failed to ingest reading",
			"message_id", msg.ID,
			"motor_id", motorID,
			"error", err,
		)
		return err
	}

	slog.Debug("reading processed",
		"motor_id", motorID,
		"timestamp", reading.Timestamp,
		"alerts_opened", len(opened),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	w.mu.Lock()
	subs := w.subscriptions
	w.subscriptions = nil
	w.mu.Unlock()

	// Unsubscribe all
	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}

	w.wg.Wait()

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
	Processed         int64    `json:"processed"`
	Failed            int64    `json:"failed"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	w.mu.Unlock()

	return Stats{
		SubscriptionCount: len(topics),
		Topics:            topics,
		Processed:         w.processed.Load(),
		Failed:            w.failed.Load(),
	}
}
