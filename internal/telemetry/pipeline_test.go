package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/bus"
	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/domain"
	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/repository"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()
	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "telemetry.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestPipelineIngest(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	eventBus := bus.NewChannelBus(10)
	defer eventBus.Close()

	received := make(chan domain.Alert, 1)
	_, err := eventBus.Subscribe(ctx, domain.AllMotors, domain.TopicTelemetryAlert, func(ctx context.Context, msg *domain.Message) error {
		var a domain.Alert
		if err := json.Unmarshal(msg.Payload, &a); err != nil {
			return err
		}
		received <- a
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	now := time.Now()
	tracker := NewTracker(domain.TelemetryConfig{RecentReadings: 30}, WithClock(func() time.Time { return now }))
	p := NewPipeline(repo, tracker, newTestAlertEngine(t, 1), eventBus)

	opened, err := p.Ingest(ctx, "m1", &domain.SensorReading{
		Timestamp:    now.UnixMilli(),
		Voltage:      220,
		VibrationRMS: 9.5,
	})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if len(opened) != 1 || opened[0].RuleID != "vibration-high" {
		t.Fatalf("opened = %+v, want vibration-high", opened)
	}

	select {
	case a := <-received:
		if a.MotorID != "m1" || a.RuleID != "vibration-high" {
			t.Errorf("published alert = %+v", a)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("alert was not published")
	}

	// Still vibrating: the alert stays open and is not announced again.
	opened, err = p.Ingest(ctx, "m1", &domain.SensorReading{Timestamp: now.UnixMilli() + 1000, Voltage: 220, VibrationRMS: 9.8})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if len(opened) != 0 {
		t.Errorf("opened = %+v, want none", opened)
	}

	stored, err := repo.ListReadings(ctx, "m1", time.Time{}, 0)
	if err != nil {
		t.Fatalf("ListReadings failed: %v", err)
	}
	if len(stored) != 2 {
		t.Errorf("stored readings = %d, want 2", len(stored))
	}

	snap, err := p.Snapshot(ctx, "m1")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if !snap.Online || len(snap.ActiveAlerts) != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestPipelineDefaultsTimestamp(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	tracker := NewTracker(domain.TelemetryConfig{}, WithClock(func() time.Time { return now }), WithLocation(time.UTC))
	p := NewPipeline(newTestRepo(t), tracker, newTestAlertEngine(t, 1), nil)

	r := &domain.SensorReading{Voltage: 220}
	if _, err := p.Ingest(context.Background(), "m1", r); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if r.Timestamp != now.UnixMilli() {
		t.Errorf("Timestamp = %d, want %d", r.Timestamp, now.UnixMilli())
	}

	if _, err := p.Ingest(context.Background(), "", r); err == nil {
		t.Error("expected error for empty motorID")
	}
}

func TestPipelineSnapshotUnknownMotor(t *testing.T) {
	p := NewPipeline(newTestRepo(t), NewTracker(domain.TelemetryConfig{}), newTestAlertEngine(t, 1), nil)

	_, err := p.Snapshot(context.Background(), "ghost")
	if !errors.Is(err, ErrUnknownMotor) {
		t.Errorf("err = %v, want ErrUnknownMotor", err)
	}
}

func TestPipelineRestoresTodayFromRepository(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	base := time.Date(2026, 10, 18, 6, 0, 0, 0, time.UTC)

	// One reading yesterday, three today at 30 minute spacing.
	samples := []time.Time{
		base.Add(-12 * time.Hour),
		base,
		base.Add(30 * time.Minute),
		base.Add(time.Hour),
	}
	for _, at := range samples {
		r := &domain.SensorReading{Timestamp: at.UnixMilli(), Voltage: 200, Current: 5, PowerFactor: 1}
		if err := repo.SaveReading(ctx, "m1", r); err != nil {
			t.Fatalf("SaveReading failed: %v", err)
		}
	}

	now := base.Add(3 * time.Hour)
	tracker := NewTracker(domain.TelemetryConfig{RecentReadings: 30}, WithClock(func() time.Time { return now }), WithLocation(time.UTC))
	p := NewPipeline(repo, tracker, newTestAlertEngine(t, 1), nil)

	snap, err := p.Snapshot(ctx, "m1")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(snap.RecentReadings) != 4 {
		t.Errorf("RecentReadings = %d, want 4", len(snap.RecentReadings))
	}
	if snap.RecentReadings[0].Timestamp != samples[0].UnixMilli() {
		t.Error("history should be replayed oldest first")
	}
	if !approx(snap.OperatingHoursToday, 1) {
		t.Errorf("OperatingHoursToday = %v, want 1", snap.OperatingHoursToday)
	}
	if !approx(snap.DailyEnergyKwh, 1) {
		t.Errorf("DailyEnergyKwh = %v, want 1", snap.DailyEnergyKwh)
	}
}
