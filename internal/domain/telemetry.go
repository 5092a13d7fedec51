package domain

import "time"

// SensorReading is one sample pushed by the motor's sensor node.
// JSON names follow the device payload.
type SensorReading struct {
	MotorID   string `json:"motorId,omitempty"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds

	// Electrical
	Voltage     float64 `json:"voltage"`
	Current     float64 `json:"current"`
	Power       float64 `json:"power"`
	PowerFactor float64 `json:"pf"`
	Frequency   float64 `json:"frequency"`
	Energy      float64 `json:"energy"`

	// Mechanical
	VibrationRMS  float64 `json:"vibration_rms_mm_s"`
	Unbalance     float64 `json:"unbalance"`
	BearingHealth float64 `json:"bearing_health"`

	// Thermal
	MotorTemp   float64 `json:"motor_temp"`
	AmbientTemp float64 `json:"ambient_temp"`
	BearingTemp float64 `json:"bearing_temp"`
	DeltaTemp   float64 `json:"delta_temp"`
	Hotspot     bool    `json:"hotspot"`

	// Environmental
	Dust        float64 `json:"dust"`
	SoilingLoss float64 `json:"soiling_loss"`

	// HealthIndex is the device-side formula score, if any.
	HealthIndex float64 `json:"health_index,omitempty"`
}

// Time returns the reading timestamp.
func (r *SensorReading) Time() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// Alert severities.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Alert is a telemetry threshold violation.
type Alert struct {
	ID        string  `json:"id"`
	MotorID   string  `json:"motorId"`
	RuleID    string  `json:"ruleId"`
	Severity  string  `json:"severity"`
	Message   string  `json:"message"`
	Parameter string  `json:"parameter"`
	Value     float64 `json:"value"`
	Status    string  `json:"status"` // OPEN, CLOSED
	Timestamp int64   `json:"timestamp"`
}

// Alert statuses.
const (
	AlertOpen   = "OPEN"
	AlertClosed = "CLOSED"
)

// TelemetrySnapshot is the presentation view of a motor's live data.
type TelemetrySnapshot struct {
	MotorID             string          `json:"motorId"`
	LatestReading       *SensorReading  `json:"latestReading"`
	RecentReadings      []SensorReading `json:"recentReadings"`
	Online              bool            `json:"online"`
	OperatingHoursToday float64         `json:"operatingHoursToday"`
	DailyEnergyKwh      float64         `json:"dailyEnergyKwh"`
	ActiveAlerts        []Alert         `json:"activeAlerts"`
	Timestamp           time.Time       `json:"timestamp"`
}
