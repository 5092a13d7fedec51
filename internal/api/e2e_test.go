package api

// End-to-end tests over a fully wired service: SQLite repository seeded
// with the built-in knowledge base, in-process cache, channel bus, telemetry
// pipeline, async worker and a stub prediction service.
//
//	reading -> bus -> worker -> repository + tracker + alerts -> bus
//	answers -> evidence -> rules -> summary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/bus"
	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/cache"
	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/diagnosis"
	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/domain"
	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/knowledge"
	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/prediction"
	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/repository"
	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/rules"
	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/telemetry"
	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/worker"
)

type stack struct {
	server *Server
	bus    *bus.ChannelBus
	worker *worker.Worker
}

func newStack(t *testing.T, async bool, predictionURL string) *stack {
	t.Helper()
	ctx := context.Background()

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "e2e.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	if _, err := repository.SeedKnowledge(ctx, repo, knowledge.Default()); err != nil {
		t.Fatalf("SeedKnowledge failed: %v", err)
	}
	kb, err := repository.LoadKnowledge(ctx, repo)
	if err != nil {
		t.Fatalf("LoadKnowledge failed: %v", err)
	}

	memCache := cache.NewMemoryCache(time.Minute, time.Minute)
	t.Cleanup(func() { memCache.Close() })

	eventBus := bus.NewChannelBus(100)
	t.Cleanup(func() { eventBus.Close() })

	telemetryCfg := domain.TelemetryConfig{
		OnlineWindow:     20 * time.Second,
		RecentReadings:   30,
		AlertWindow:      time.Minute,
		AlertPersistence: 2,
	}
	alerts, err := telemetry.NewAlertEngine(memCache, telemetryCfg)
	if err != nil {
		t.Fatalf("NewAlertEngine failed: %v", err)
	}
	if err := alerts.LoadRules(telemetry.DefaultAlertRules()); err != nil {
		t.Fatalf("LoadRules failed: %v", err)
	}
	pipeline := telemetry.NewPipeline(repo, telemetry.NewTracker(telemetryCfg), alerts, eventBus)

	s := &stack{bus: eventBus}
	if async {
		s.worker = worker.NewWorker(eventBus, pipeline)
		if err := s.worker.Start(worker.Config{}); err != nil {
			t.Fatalf("worker Start failed: %v", err)
		}
		t.Cleanup(func() { s.worker.Stop() })
	}

	var predictor domain.Predictor
	if predictionURL != "" {
		predictor = prediction.NewClient(domain.PredictionConfig{
			BaseURL:  predictionURL,
			Path:     "/predict/health",
			Timeout:  time.Second,
			CacheTTL: time.Minute,
		}, memCache)
	}

	s.server = NewServer(domain.ServerConfig{}, Dependencies{
		Knowledge:   kb,
		Processor:   diagnosis.NewProcessor(rules.NewEngine(kb), domain.ModeForward),
		Repo:        repo,
		Cache:       memCache,
		Bus:         eventBus,
		Pipeline:    pipeline,
		Alerts:      alerts,
		Predictor:   predictor,
		AsyncIngest: async,
		Version:     "e2e",
	})
	return s
}

func TestEndToEndDiagnosisFromSeededKnowledge(t *testing.T) {
	s := newStack(t, false, "")

	scenarios := []struct {
		name    string
		mode    domain.Mode
		answers map[string]string
		damage  string
		label   string
	}{
		{
			name:    "SingleWeakSymptom",
			answers: map[string]string{"3": "Sometimes"},
			damage:  "Supply voltage drop",
			label:   domain.LabelLight,
		},
		{
			name:    "BurningSmell",
			answers: map[string]string{"5": "Yes"},
			damage:  "Burnt stator winding",
			label:   domain.LabelSevere,
		},
		{
			name:    "CapacitorFuzzy",
			mode:    domain.ModeFuzzy,
			answers: map[string]string{"2": "Yes", "9": "Yes", "10": "Yes"},
			damage:  "Start capacitor failure",
			label:   domain.LabelSevere,
		},
	}

	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			rr := doRequest(t, s.server, http.MethodPost, "/diagnose", DiagnoseRequest{Mode: sc.mode, Answers: sc.answers})
			if rr.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
			}
			var resp struct {
				Summary *domain.DiagnosisSummary `json:"summary"`
			}
			json.Unmarshal(rr.Body.Bytes(), &resp)
			if resp.Summary == nil {
				t.Fatal("expected a summary")
			}
			if resp.Summary.DamageType != sc.damage {
				t.Errorf("damage = %s, want %s", resp.Summary.DamageType, sc.damage)
			}
			if resp.Summary.Label != sc.label {
				t.Errorf("label = %s (%.1f%%), want %s", resp.Summary.Label, resp.Summary.Percent, sc.label)
			}
		})
	}

	t.Run("HealthReportsEveryDependency", func(t *testing.T) {
		rr := doRequest(t, s.server, http.MethodGet, "/health", nil)
		var resp struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}
		json.Unmarshal(rr.Body.Bytes(), &resp)
		if resp.Status != "healthy" || len(resp.Checks) != 3 {
			t.Errorf("health = %+v", resp)
		}
	})
}

func TestEndToEndSyncTelemetry(t *testing.T) {
	s := newStack(t, false, "")
	now := time.Now().UnixMilli()

	hot := domain.SensorReading{Timestamp: now - 2000, Voltage: 228, Current: 4, PowerFactor: 0.8, MotorTemp: 88}
	rr := doRequest(t, s.server, http.MethodPost, "/motors/pump-1/readings", hot)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}

	hot.Timestamp = now - 1000
	rr = doRequest(t, s.server, http.MethodPost, "/motors/pump-1/readings", hot)
	var ingest struct {
		AlertsOpened []domain.Alert `json:"alertsOpened"`
	}
	json.Unmarshal(rr.Body.Bytes(), &ingest)
	if len(ingest.AlertsOpened) != 1 || ingest.AlertsOpened[0].RuleID != "motor-temp-high" {
		t.Fatalf("second hot reading should open motor-temp-high, got %+v", ingest.AlertsOpened)
	}

	rr = doRequest(t, s.server, http.MethodGet, "/motors/pump-1/telemetry", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var snap domain.TelemetrySnapshot
	json.Unmarshal(rr.Body.Bytes(), &snap)
	if !snap.Online || len(snap.RecentReadings) != 2 || len(snap.ActiveAlerts) != 1 {
		t.Errorf("snapshot = %+v", snap)
	}

	rr = doRequest(t, s.server, http.MethodGet, "/motors", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	rr = doRequest(t, s.server, http.MethodGet, "/motors/unknown/telemetry", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}

	rr = doRequest(t, s.server, http.MethodPost, "/motors/pump-1/readings", "{broken")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}

	rr = doRequest(t, s.server, http.MethodGet, "/alerts/rules", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
}

func TestEndToEndAsyncTelemetry(t *testing.T) {
	s := newStack(t, true, "")

	alertCh := make(chan domain.Alert, 4)
	sub, err := s.bus.Subscribe(context.Background(), "fan-2", domain.TopicTelemetryAlert, func(ctx context.Context, msg *domain.Message) error {
		var a domain.Alert
		json.Unmarshal(msg.Payload, &a)
		alertCh <- a
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	now := time.Now().UnixMilli()
	for i := range 2 {
		r := domain.SensorReading{Timestamp: now - int64(2-i)*1000, Voltage: 230, VibrationRMS: 11}
		rr := doRequest(t, s.server, http.MethodPost, "/motors/fan-2/readings", r)
		if rr.Code != http.StatusAccepted {
			t.Fatalf("expected status 202, got %d: %s", rr.Code, rr.Body.String())
		}
	}

	select {
	case a := <-alertCh:
		if a.RuleID != "vibration-high" {
			t.Errorf("alert = %+v, want vibration-high", a)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected a vibration alert from the worker")
	}

	deadline := time.Now().Add(2 * time.Second)
	for s.worker.GetStats().Processed < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	rr := doRequest(t, s.server, http.MethodGet, "/motors/fan-2/telemetry", nil)
	var snap domain.TelemetrySnapshot
	json.Unmarshal(rr.Body.Bytes(), &snap)
	if len(snap.RecentReadings) != 2 {
		t.Errorf("RecentReadings = %d, want 2", len(snap.RecentReadings))
	}
}

func TestEndToEndPrediction(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(domain.HealthPrediction{
			HealthScore:    41,
			HealthCategory: "Critical",
			TopFeatures:    []string{"max_bearing_1"},
			Timestamp:      time.Now().UTC().Format(time.RFC3339),
		})
	}))
	defer upstream.Close()

	s := newStack(t, false, upstream.URL)

	rr := doRequest(t, s.server, http.MethodGet, "/motors/m9/prediction", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("prediction without readings: expected status 404, got %d", rr.Code)
	}

	doRequest(t, s.server, http.MethodPost, "/motors/m9/readings", domain.SensorReading{Voltage: 220, VibrationRMS: 6.2})

	rr = doRequest(t, s.server, http.MethodGet, "/motors/m9/prediction", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var p domain.HealthPrediction
	json.Unmarshal(rr.Body.Bytes(), &p)
	if p.HealthCategory != "Critical" {
		t.Errorf("prediction = %+v", p)
	}

	t.Run("UpstreamDown", func(t *testing.T) {
		down := newStack(t, false, "http://127.0.0.1:1")
		doRequest(t, down.server, http.MethodPost, "/motors/m9/readings", domain.SensorReading{Voltage: 220, VibrationRMS: 1})
		rr := doRequest(t, down.server, http.MethodGet, "/motors/m9/prediction", nil)
		if rr.Code != http.StatusBadGateway {
			t.Errorf("expected status 502, got %d", rr.Code)
		}
	})
}
