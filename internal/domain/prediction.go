package domain

import "context"

// HealthPrediction is returned by the statistical health-prediction service.
type HealthPrediction struct {
	HealthScore    float64  `json:"healthScore"`
	HealthCategory string   `json:"healthCategory"`
	TopFeatures    []string `json:"topFeatures"`
	Timestamp      string   `json:"timestamp"` // ISO-8601
}

// Predictor produces health predictions for a motor.
type Predictor interface {
	Predict(ctx context.Context, motorID string, readings []SensorReading) (*HealthPrediction, error)
}
