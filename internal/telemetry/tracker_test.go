package telemetry

import (
	"math"
	"testing"
	"time"

	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/domain"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Set(t time.Time) { c.t = t }

func newTestTracker(clock *fakeClock, recent int) *Tracker {
	return NewTracker(domain.TelemetryConfig{
		OnlineWindow:   20 * time.Second,
		RecentReadings: recent,
	}, WithClock(clock.Now), WithLocation(time.UTC))
}

func reading(at time.Time, voltage, current, pf float64) domain.SensorReading {
	return domain.SensorReading{
		Timestamp:   at.UnixMilli(),
		Voltage:     voltage,
		Current:     current,
		PowerFactor: pf,
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestTrackerEnergyAndHours(t *testing.T) {
	base := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: base}
	tr := newTestTracker(clock, 30)

	tr.Record("m1", reading(base, 220, 5, 0.9))
	clock.Set(base.Add(time.Hour))
	tr.Record("m1", reading(base.Add(time.Hour), 220, 5, 0.9))

	t.Run("OnlineExtrapolatesToNow", func(t *testing.T) {
		clock.Set(base.Add(time.Hour + 5*time.Second))
		snap, ok := tr.Snapshot("m1")
		if !ok {
			t.Fatal("expected motor to be known")
		}
		if !snap.Online {
			t.Fatal("expected motor to be online")
		}
		wantEnergy := 0.99 + 990*(5.0/3600)/1000
		if !approx(snap.DailyEnergyKwh, wantEnergy) {
			t.Errorf("DailyEnergyKwh = %v, want %v", snap.DailyEnergyKwh, wantEnergy)
		}
		wantHours := (time.Hour + 5*time.Second).Hours()
		if !approx(snap.OperatingHoursToday, wantHours) {
			t.Errorf("OperatingHoursToday = %v, want %v", snap.OperatingHoursToday, wantHours)
		}
	})

	t.Run("OfflineStopsAtLatestReading", func(t *testing.T) {
		clock.Set(base.Add(2 * time.Hour))
		snap, _ := tr.Snapshot("m1")
		if snap.Online {
			t.Fatal("expected motor to be offline")
		}
		if !approx(snap.DailyEnergyKwh, 0.99) {
			t.Errorf("DailyEnergyKwh = %v, want 0.99", snap.DailyEnergyKwh)
		}
		if !approx(snap.OperatingHoursToday, 1) {
			t.Errorf("OperatingHoursToday = %v, want 1", snap.OperatingHoursToday)
		}
	})

	t.Run("NewDayResets", func(t *testing.T) {
		clock.Set(base.Add(24 * time.Hour))
		snap, _ := tr.Snapshot("m1")
		if snap.DailyEnergyKwh != 0 || snap.OperatingHoursToday != 0 {
			t.Errorf("expected reset, got energy=%v hours=%v", snap.DailyEnergyKwh, snap.OperatingHoursToday)
		}
		if snap.LatestReading == nil {
			t.Error("latest reading should survive the day change")
		}
	})
}

func TestTrackerPowerFactorDefaultsToOne(t *testing.T) {
	base := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: base.Add(time.Hour)}
	tr := newTestTracker(clock, 30)

	tr.Record("m1", reading(base, 200, 2, 0))
	tr.Record("m1", reading(base.Add(30*time.Minute), 200, 2, 0))

	snap, _ := tr.Snapshot("m1")
	if !approx(snap.DailyEnergyKwh, 0.2) {
		t.Errorf("DailyEnergyKwh = %v, want 0.2", snap.DailyEnergyKwh)
	}
}

func TestTrackerSkipsOutOfOrderIntervals(t *testing.T) {
	base := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: base.Add(3 * time.Hour)}
	tr := newTestTracker(clock, 30)

	tr.Record("m1", reading(base.Add(time.Hour), 200, 1, 1))
	tr.Record("m1", reading(base, 200, 1, 1))

	snap, _ := tr.Snapshot("m1")
	if snap.DailyEnergyKwh != 0 {
		t.Errorf("DailyEnergyKwh = %v, want 0", snap.DailyEnergyKwh)
	}
}

func TestTrackerLateReadings(t *testing.T) {
	base := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: base.Add(3 * time.Hour)}
	tr := newTestTracker(clock, 30)

	// 1 kW throughout; the 10:15 reading arrives after 10:30.
	for _, m := range []time.Duration{0, 30, 15, 60} {
		tr.Record("m1", reading(base.Add(m*time.Minute), 1000, 1, 1))
	}

	snap, _ := tr.Snapshot("m1")
	if !approx(snap.DailyEnergyKwh, 1.0) {
		t.Errorf("DailyEnergyKwh = %v, want 1.0", snap.DailyEnergyKwh)
	}
	if !approx(snap.OperatingHoursToday, 1.0) {
		t.Errorf("OperatingHoursToday = %v, want 1.0", snap.OperatingHoursToday)
	}

	tr.Record("m1", reading(base.Add(15*time.Minute), 1000, 1, 1))

	snap, _ = tr.Snapshot("m1")
	if got, want := snap.LatestReading.Timestamp, base.Add(time.Hour).UnixMilli(); got != want {
		t.Errorf("LatestReading = %d, want the 11:00 reading %d", got, want)
	}
	if !approx(snap.DailyEnergyKwh, 1.0) {
		t.Errorf("DailyEnergyKwh after late reading = %v, want 1.0", snap.DailyEnergyKwh)
	}
	if len(snap.RecentReadings) != 5 {
		t.Errorf("RecentReadings = %d, want 5", len(snap.RecentReadings))
	}
}

func TestTrackerReadingsFromEarlierDays(t *testing.T) {
	base := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: base}
	tr := newTestTracker(clock, 30)

	yesterday := base.Add(-24 * time.Hour)
	tr.Record("m1", reading(yesterday, 220, 5, 1))
	tr.Record("m1", reading(yesterday.Add(time.Hour), 220, 5, 1))

	snap, _ := tr.Snapshot("m1")
	if snap.OperatingHoursToday != 0 || snap.DailyEnergyKwh != 0 {
		t.Errorf("earlier days must not count, got hours=%v energy=%v", snap.OperatingHoursToday, snap.DailyEnergyKwh)
	}
	if len(snap.RecentReadings) != 2 {
		t.Errorf("RecentReadings = %d, want 2", len(snap.RecentReadings))
	}
}

func TestTrackerRecentBuffer(t *testing.T) {
	base := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: base}
	tr := newTestTracker(clock, 3)

	for i := range 5 {
		tr.Record("m1", reading(base.Add(time.Duration(i)*time.Second), 220, 1, 1))
	}

	recent := tr.Recent("m1")
	if len(recent) != 3 {
		t.Fatalf("Recent = %d readings, want 3", len(recent))
	}
	if recent[0].Timestamp != base.Add(2*time.Second).UnixMilli() {
		t.Errorf("oldest kept reading = %d, want the third one", recent[0].Timestamp)
	}
	if recent[2].MotorID != "m1" {
		t.Errorf("MotorID = %q, want m1", recent[2].MotorID)
	}
}

func TestTrackerUnknownMotor(t *testing.T) {
	tr := newTestTracker(&fakeClock{t: time.Now()}, 30)

	if _, ok := tr.Snapshot("nope"); ok {
		t.Error("expected unknown motor")
	}
	if tr.Known("nope") {
		t.Error("Known should be false")
	}
	if tr.Recent("nope") != nil {
		t.Error("Recent should be nil")
	}
}

func TestTrackerApplyAlerts(t *testing.T) {
	tr := newTestTracker(&fakeClock{t: time.Now()}, 30)

	first := []domain.Alert{{ID: "a1", RuleID: "vibration-high", Timestamp: 100}}
	opened := tr.ApplyAlerts("m1", first)
	if len(opened) != 1 {
		t.Fatalf("opened = %d, want 1", len(opened))
	}

	again := []domain.Alert{
		{ID: "a2", RuleID: "vibration-high", Timestamp: 200, Value: 9},
		{ID: "a3", RuleID: "pf-low", Timestamp: 200},
	}
	opened = tr.ApplyAlerts("m1", again)
	if len(opened) != 1 || opened[0].RuleID != "pf-low" {
		t.Fatalf("opened = %+v, want only pf-low", opened)
	}

	tr.Record("m1", domain.SensorReading{Timestamp: 200})
	snap, _ := tr.Snapshot("m1")
	if len(snap.ActiveAlerts) != 2 {
		t.Fatalf("ActiveAlerts = %d, want 2", len(snap.ActiveAlerts))
	}
	if snap.ActiveAlerts[0].ID != "a1" || snap.ActiveAlerts[0].Value != 9 {
		t.Errorf("continuing alert = %+v, want original id with the new value", snap.ActiveAlerts[0])
	}

	tr.ApplyAlerts("m1", nil)
	snap, _ = tr.Snapshot("m1")
	if len(snap.ActiveAlerts) != 0 {
		t.Errorf("ActiveAlerts = %d after clearing, want 0", len(snap.ActiveAlerts))
	}
}

func TestTrackerMotors(t *testing.T) {
	tr := newTestTracker(&fakeClock{t: time.Now()}, 30)
	tr.Record("b", domain.SensorReading{Timestamp: 1})
	tr.Record("a", domain.SensorReading{Timestamp: 1})

	got := tr.Motors()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Motors = %v, want [a b]", got)
	}
}
