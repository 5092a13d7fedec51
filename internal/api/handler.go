package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/diagnosis"
	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/domain"
	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/knowledge"
	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/prediction"
	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/telemetry"
)

const maxBodyBytes = 1 << 20

// Dependencies are the collaborators the handlers serve from.
// Repo, Cache, Bus, Pipeline, Alerts and Predictor may be nil.
type Dependencies struct {
	Knowledge *knowledge.Base
	Processor *diagnosis.Processor
	Repo      domain.Repository
	Cache     domain.Cache
	Bus       domain.EventBus
	Pipeline  *telemetry.Pipeline
	Alerts    *telemetry.AlertEngine
	Predictor domain.Predictor

	// AsyncIngest publishes readings on the bus instead of applying them inline.
	AsyncIngest bool
	Version     string
}

// Handler holds dependencies for API handlers.
type Handler struct {
	deps Dependencies
}

// NewHandler creates a new API handler.
func NewHandler(deps Dependencies) *Handler {
	return &Handler{deps: deps}
}

// DiagnoseRequest is the request body for POST /diagnose.
type DiagnoseRequest struct {
	Mode    domain.Mode       `json:"mode"`
	Answers map[string]string `json:"answers"`
}

// DiagnoseResponse is the response for POST /diagnose.
type DiagnoseResponse struct {
	*domain.Diagnosis
	Solutions []string `json:"solutions"`
}

// Diagnose handles POST /diagnose requests.
func (h *Handler) Diagnose(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	var req DiagnoseRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	answers, err := diagnosis.ParseAnswers(req.Answers)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := h.deps.Processor.Process(ctx, &diagnosis.Request{
		Mode:      req.Mode,
		Answers:   answers,
		TraceID:   GetTraceID(ctx),
		StartTime: start,
	})
	if err != nil {
		if errors.Is(err, diagnosis.ErrInvalidMode) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("diagnosis failed", "error", err)
		writeError(w, http.StatusInternalServerError, "diagnosis failed")
		return
	}

	solutions := diagnosis.Solutions(d)
	if solutions == nil {
		solutions = []string{}
	}

	attrs := []any{
		"diagnosis_id", d.ID,
		"mode", d.Mode,
		"results", len(d.Results),
		"duration_ms", d.Metadata.TotalMs,
	}
	if d.Summary != nil {
		attrs = append(attrs, "damage", d.Summary.DamageType, "label", d.Summary.Label)
	}
	slog.Info("diagnosis completed", attrs...)

	writeJSON(w, http.StatusOK, DiagnoseResponse{Diagnosis: d, Solutions: solutions})
}

// ListSymptoms handles GET /symptoms.
func (h *Handler) ListSymptoms(w http.ResponseWriter, r *http.Request) {
	symptoms := h.deps.Knowledge.Symptoms()
	writeJSON(w, http.StatusOK, map[string]any{
		"symptoms": symptoms,
		"count":    len(symptoms),
	})
}

// ListRules handles GET /rules.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules := h.deps.Knowledge.Rules()
	writeJSON(w, http.StatusOK, map[string]any{
		"rules": rules,
		"count": len(rules),
	})
}

// GetRule handles GET /rules/{id}.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rule, ok := h.deps.Knowledge.Rule(id)
	if !ok {
		writeError(w, http.StatusNotFound, "rule not found")
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// ExportKnowledge handles GET /knowledge/export.
func (h *Handler) ExportKnowledge(w http.ResponseWriter, r *http.Request) {
	data, err := h.deps.Knowledge.Export()
	if err != nil {
		slog.Error("knowledge export failed", "error", err)
		writeError(w, http.StatusInternalServerError, "knowledge export failed")
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Disposition", `attachment; filename="knowledge.yaml"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ListAlertRules handles GET /alerts/rules.
func (h *Handler) ListAlertRules(w http.ResponseWriter, r *http.Request) {
	if h.deps.Alerts == nil {
		writeError(w, http.StatusServiceUnavailable, "telemetry not configured")
		return
	}
	rules := h.deps.Alerts.Rules()
	writeJSON(w, http.StatusOK, map[string]any{
		"rules": rules,
		"count": len(rules),
	})
}

// ListMotors handles GET /motors.
func (h *Handler) ListMotors(w http.ResponseWriter, r *http.Request) {
	if h.deps.Pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "telemetry not configured")
		return
	}
	motors := h.deps.Pipeline.Tracker().Motors()
	writeJSON(w, http.StatusOK, map[string]any{
		"motors": motors,
		"count":  len(motors),
	})
}

// IngestReading handles POST /motors/{motorID}/readings.
func (h *Handler) IngestReading(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	motorID := chi.URLParam(r, "motorID")

	var reading domain.SensorReading
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&reading); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}
	if reading.Timestamp < 0 {
		writeError(w, http.StatusBadRequest, "timestamp must not be negative")
		return
	}
	reading.MotorID = motorID

	if h.deps.AsyncIngest && h.deps.Bus != nil {
		if reading.Timestamp == 0 {
			reading.Timestamp = time.Now().UnixMilli()
		}
		payload, err := json.Marshal(reading)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to encode reading")
			return
		}
		if err := h.deps.Bus.Publish(ctx, motorID, domain.TopicTelemetryReading, payload); err != nil {
			slog.Error("failed to publish reading",
				"motor_id", motorID,
				"error", err,
			)
			writeError(w, http.StatusServiceUnavailable, "event bus unavailable")
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{
			"motorId":   motorID,
			"timestamp": reading.Timestamp,
			"status":    "queued",
		})
		return
	}

	if h.deps.Pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "telemetry not configured")
		return
	}

	opened, err := h.deps.Pipeline.Ingest(ctx, motorID, &reading)
	if err != nil {
		slog.Error("failed to ingest reading",
			"motor_id", motorID,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "failed to ingest reading")
		return
	}
	if opened == nil {
		opened = []domain.Alert{}
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"motorId":      motorID,
		"timestamp":    reading.Timestamp,
		"status":       "applied",
		"alertsOpened": opened,
	})
}

// GetTelemetry handles GET /motors/{motorID}/telemetry.
func (h *Handler) GetTelemetry(w http.ResponseWriter, r *http.Request) {
	if h.deps.Pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "telemetry not configured")
		return
	}
	motorID := chi.URLParam(r, "motorID")

	snap, err := h.deps.Pipeline.Snapshot(r.Context(), motorID)
	if err != nil {
		if errors.Is(err, telemetry.ErrUnknownMotor) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		slog.Error("failed to load telemetry",
			"motor_id", motorID,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "failed to load telemetry")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GetPrediction handles GET /motors/{motorID}/prediction.
func (h *Handler) GetPrediction(w http.ResponseWriter, r *http.Request) {
	if h.deps.Predictor == nil || h.deps.Pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "prediction not configured")
		return
	}
	ctx := r.Context()
	motorID := chi.URLParam(r, "motorID")

	snap, err := h.deps.Pipeline.Snapshot(ctx, motorID)
	if err != nil && !errors.Is(err, telemetry.ErrUnknownMotor) {
		writeError(w, http.StatusInternalServerError, "failed to load telemetry")
		return
	}

	p, err := h.deps.Predictor.Predict(ctx, motorID, snap.RecentReadings)
	if err != nil {
		if errors.Is(err, prediction.ErrNoReadings) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		slog.Warn("prediction failed",
			"motor_id", motorID,
			"error", err,
		)
		writeError(w, http.StatusBadGateway, "prediction service unavailable")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Health handles GET /health requests.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	checks := map[string]string{}

	// Check repository health
	if h.deps.Repo != nil {
		checks["repository"] = pingStatus(h.deps.Repo.Ping(r.Context()))
	}

	// Check cache health
	if h.deps.Cache != nil {
		checks["cache"] = pingStatus(h.deps.Cache.Ping(r.Context()))
	}

	// Check bus health
	if h.deps.Bus != nil {
		checks["eventBus"] = pingStatus(h.deps.Bus.Ping(r.Context()))
	}

	for _, c := range checks {
		if c != "ok" {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"version": h.deps.Version,
		"checks":  checks,
	})
}

// Ready handles GET /ready requests.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.deps.Knowledge == nil || h.deps.Processor == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"ready": "false",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func pingStatus(err error) string {
	if err != nil {
		return "down"
	}
	return "ok"
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
