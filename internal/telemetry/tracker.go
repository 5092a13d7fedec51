// Package telemetry keeps the live view of each motor: latest reading,
// a short history, online state, operating hours and energy for the day,
// and the active threshold alerts.
package telemetry

import (
	"sort"
	"sync"
	"time"

	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/domain"
)

const msPerHour = float64(time.Hour / time.Millisecond)

// Tracker holds per-motor telemetry state. Safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	cfg    domain.TelemetryConfig
	loc    *time.Location
	now    func() time.Time
	motors map[string]*motorState
}

type motorState struct {
	latest *domain.SensorReading
	recent []domain.SensorReading

	// day is the local calendar date the accumulators belong to.
	day        string
	firstToday int64 // unix ms, 0 when no reading today
	energyKwh  float64
	lastPower  float64 // watts
	lastPowerT int64   // unix ms, 0 when unset

	alerts map[string]domain.Alert // by rule id
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLocation sets the time zone that defines "today".
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) { t.loc = loc }
}

// NewTracker creates a tracker.
func NewTracker(cfg domain.TelemetryConfig, opts ...Option) *Tracker {
	if cfg.OnlineWindow <= 0 {
		cfg.OnlineWindow = 20 * time.Second
	}
	if cfg.RecentReadings <= 0 {
		cfg.RecentReadings = 30
	}
	t := &Tracker{
		cfg:    cfg,
		loc:    time.Local,
		now:    time.Now,
		motors: make(map[string]*motorState),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Record applies a reading to the motor's state. A reading older than the
// last one applied only joins the history buffer; it never moves the latest
// reading or the energy integration backwards.
func (t *Tracker) Record(motorID string, reading domain.SensorReading) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now().In(t.loc)
	st := t.state(motorID)
	t.rollDay(st, now)
	todayStart := startOfDay(now).UnixMilli()

	reading.MotorID = motorID
	ts := reading.Timestamp

	late := st.latest != nil && ts < st.latest.Timestamp

	if st.firstToday == 0 && ts >= todayStart && !late {
		st.firstToday = ts
	}

	// A power sample from before today cannot be integrated into today's energy.
	if st.lastPowerT != 0 && st.lastPowerT < todayStart {
		st.lastPower = 0
		st.lastPowerT = 0
	}

	if ts >= todayStart && ts >= st.lastPowerT && !late {
		power := instantPower(&reading)
		if st.lastPowerT != 0 {
			dh := float64(ts-st.lastPowerT) / msPerHour
			if dh > 0 && dh < 24 {
				st.energyKwh += (st.lastPower + power) / 2 * dh / 1000
			}
		}
		st.lastPower = power
		st.lastPowerT = ts
	}

	if !late {
		latest := reading
		st.latest = &latest
	}
	st.recent = append(st.recent, reading)
	if over := len(st.recent) - t.cfg.RecentReadings; over > 0 {
		st.recent = append(st.recent[:0:0], st.recent[over:]...)
	}
}

// Snapshot returns the motor's current view. ok is false for an unknown motor.
func (t *Tracker) Snapshot(motorID string) (snap domain.TelemetrySnapshot, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.motors[motorID]
	if !ok {
		return domain.TelemetrySnapshot{}, false
	}

	now := t.now().In(t.loc)
	t.rollDay(st, now)
	nowMs := now.UnixMilli()

	snap = domain.TelemetrySnapshot{
		MotorID:        motorID,
		RecentReadings: append([]domain.SensorReading{}, st.recent...),
		ActiveAlerts:   sortedAlerts(st.alerts),
		Timestamp:      now,
	}
	if st.latest == nil {
		return snap, true
	}

	latest := *st.latest
	snap.LatestReading = &latest
	snap.Online = nowMs-latest.Timestamp < t.cfg.OnlineWindow.Milliseconds()

	if st.firstToday != 0 {
		end := latest.Timestamp
		if snap.Online {
			end = nowMs
		}
		snap.OperatingHoursToday = max(0, float64(end-st.firstToday)/msPerHour)
	}

	energy := st.energyKwh
	if snap.Online && st.lastPowerT != 0 {
		dh := float64(nowMs-st.lastPowerT) / msPerHour
		if dh > 0 {
			energy += st.lastPower * dh / 1000
		}
	}
	snap.DailyEnergyKwh = max(0, energy)

	return snap, true
}

// DayStart returns local midnight of the tracker's current day.
func (t *Tracker) DayStart() time.Time {
	return startOfDay(t.now().In(t.loc))
}

// Recent returns a copy of the motor's history buffer, oldest first.
func (t *Tracker) Recent(motorID string) []domain.SensorReading {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.motors[motorID]
	if !ok {
		return nil
	}
	return append([]domain.SensorReading(nil), st.recent...)
}

// Known reports whether the tracker has seen the motor.
func (t *Tracker) Known(motorID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.motors[motorID]
	return ok
}

// Motors returns the tracked motor ids in sorted order.
func (t *Tracker) Motors() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.motors))
	for id := range t.motors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ApplyAlerts replaces the motor's active alerts with the firing set and
// returns the alerts that were not active before.
func (t *Tracker) ApplyAlerts(motorID string, firing []domain.Alert) []domain.Alert {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.state(motorID)
	next := make(map[string]domain.Alert, len(firing))
	var opened []domain.Alert
	for _, a := range firing {
		if prev, ok := st.alerts[a.RuleID]; ok {
			// Keep the identity of an alert that stays open.
			a.ID = prev.ID
			a.Timestamp = prev.Timestamp
		} else {
			opened = append(opened, a)
		}
		next[a.RuleID] = a
	}
	st.alerts = next
	return opened
}

func (t *Tracker) state(motorID string) *motorState {
	st, ok := t.motors[motorID]
	if !ok {
		st = &motorState{alerts: make(map[string]domain.Alert)}
		t.motors[motorID] = st
	}
	return st
}

func (t *Tracker) rollDay(st *motorState, now time.Time) {
	day := now.Format(time.DateOnly)
	if st.day == day {
		return
	}
	st.day = day
	st.firstToday = 0
	st.energyKwh = 0
	st.lastPower = 0
	st.lastPowerT = 0
}

func instantPower(r *domain.SensorReading) float64 {
	pf := r.PowerFactor
	if pf == 0 {
		pf = 1
	}
	return r.Voltage * r.Current * pf
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sortedAlerts(alerts map[string]domain.Alert) []domain.Alert {
	out := make([]domain.Alert, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].RuleID < out[j].RuleID
	})
	return out
}
