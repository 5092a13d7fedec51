// Package prediction talks to the external health-prediction service.
package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
	"golang.org/x/time/rate"

	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/domain"
)

// FeatureWindow is how many of the newest vibration samples feed the features.
const FeatureWindow = 10

var (
	// ErrNoReadings is returned when there is nothing to predict from.
	ErrNoReadings = errors.New("no readings to predict from")

	// ErrUpstream wraps failures of the prediction service.
	ErrUpstream = errors.New("prediction service failed")
)

// Features are the vibration statistics the model is trained on.
type Features struct {
	Mean float64 `json:"mean_bearing_1"`
	Std  float64 `json:"std_bearing_1"`
	Max  float64 `json:"max_bearing_1"`
	Min  float64 `json:"min_bearing_1"`
}

type vibrationSample struct {
	VibrationRMS float64 `json:"vibration_rms"`
	Timestamp    int64   `json:"timestamp,omitempty"`
}

type predictRequest struct {
	MotorID  string            `json:"motorId"`
	Readings []vibrationSample `json:"readings"`
	Features Features          `json:"features"`
}

// Client calls the prediction service with rate limiting and caches
// answers per motor.
type Client struct {
	httpClient *http.Client
	url        string
	limiter    *rate.Limiter
	cache      domain.Cache
	ttl        time.Duration
}

// NewClient creates a client. cache may be nil to disable caching.
func NewClient(cfg domain.PredictionConfig, cache domain.Cache) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        strings.TrimRight(cfg.BaseURL, "/") + cfg.Path,
		limiter:    rate.NewLimiter(limit, burst),
		cache:      cache,
		ttl:        cfg.CacheTTL,
	}
}

// Predict returns the motor's health prediction, from cache when fresh.
// readings are expected oldest first.
func (c *Client) Predict(ctx context.Context, motorID string, readings []domain.SensorReading) (*domain.HealthPrediction, error) {
	if c.cache != nil {
		cached, err := c.cache.GetPrediction(ctx, motorID)
		if err != nil {
			slog.Warn("prediction cache read failed", "motor_id", motorID, "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	if len(readings) == 0 {
		return nil, ErrNoReadings
	}
	if len(readings) > FeatureWindow {
		readings = readings[len(readings)-FeatureWindow:]
	}

	features, err := VibrationFeatures(readings)
	if err != nil {
		return nil, err
	}

	req := predictRequest{
		MotorID:  motorID,
		Readings: make([]vibrationSample, len(readings)),
		Features: features,
	}
	for i, r := range readings {
		req.Readings[i] = vibrationSample{VibrationRMS: r.VibrationRMS, Timestamp: r.Timestamp}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	prediction, err := c.post(ctx, &req)
	if err != nil {
		return nil, err
	}

	if c.cache != nil && c.ttl > 0 {
		if err := c.cache.SetPrediction(ctx, motorID, prediction, c.ttl); err != nil {
			slog.Warn("prediction cache write failed", "motor_id", motorID, "error", err)
		}
	}
	return prediction, nil
}

func (c *Client) post(ctx context.Context, body *predictRequest) (*domain.HealthPrediction, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var prediction domain.HealthPrediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return nil, fmt.Errorf("%w: invalid response: %v", ErrUpstream, err)
	}
	return &prediction, nil
}

// VibrationFeatures computes mean, population standard deviation, max and
// min of the readings' vibration RMS. Std is 0 for a single sample.
func VibrationFeatures(readings []domain.SensorReading) (Features, error) {
	if len(readings) == 0 {
		return Features{}, ErrNoReadings
	}

	data := make(stats.Float64Data, len(readings))
	for i, r := range readings {
		data[i] = r.VibrationRMS
	}

	var f Features
	var err error
	if f.Mean, err = stats.Mean(data); err != nil {
		return Features{}, fmt.Errorf("mean: %w", err)
	}
	if len(data) > 1 {
		if f.Std, err = stats.StandardDeviationPopulation(data); err != nil {
			return Features{}, fmt.Errorf("std: %w", err)
		}
	}
	if f.Max, err = stats.Max(data); err != nil {
		return Features{}, fmt.Errorf("max: %w", err)
	}
	if f.Min, err = stats.Min(data); err != nil {
		return Features{}, fmt.Errorf("min: %w", err)
	}
	return f, nil
}
