package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/api"
	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/bus"
	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/cache"
	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/diagnosis"
	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/domain"
	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/prediction"
	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/repository"
	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/rules"
	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/telemetry"
	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/worker"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var motors []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(opts.v)
			if err != nil {
				return err
			}
			slog.SetDefault(newLogger(cfg.Logging, os.Stdout))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, opts.info, motors)
		},
	}
	cmd.Flags().StringSliceVar(&motors, "motor", nil, "motor ids the async worker subscribes to (default: all)")
	return cmd
}

func serve(ctx context.Context, cfg *domain.Config, info BuildInfo, motors []string) error {
	slog.Info("starting motordiag",
		"version", info.Version,
		"commit", info.Commit,
		"build_date", info.BuildDate,
	)
	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"mode", cfg.Mode,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		return fmt.Errorf("failed to initialize event bus: %w", err)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Seed the knowledge base on first start, then serve what is stored
	seedKB, err := loadKnowledgeFile(cfg.Knowledge.Path)
	if err != nil {
		return err
	}
	seeded, err := repository.SeedKnowledge(ctx, repo, seedKB)
	if err != nil {
		return fmt.Errorf("failed to seed knowledge base: %w", err)
	}
	kb, err := repository.LoadKnowledge(ctx, repo)
	if err != nil {
		return fmt.Errorf("failed to load knowledge base: %w", err)
	}
	if unresolved := kb.UnresolvedSymptoms(); len(unresolved) > 0 {
		slog.Warn("rules reference unknown symptoms", "rules", unresolved)
	}
	slog.Info("knowledge base loaded",
		"seeded", seeded,
		"symptoms", len(kb.Symptoms()),
		"rules", len(kb.Rules()),
	)

	engine := rules.NewEngine(kb)
	processor := diagnosis.NewProcessor(engine, cfg.Mode)

	// Telemetry
	alerts, err := telemetry.NewAlertEngine(cacheImpl, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize alert engine: %w", err)
	}
	if err := alerts.LoadRules(telemetry.DefaultAlertRules()); err != nil {
		return fmt.Errorf("failed to load alert rules: %w", err)
	}
	tracker := telemetry.NewTracker(cfg.Telemetry)
	pipeline := telemetry.NewPipeline(repo, tracker, alerts, busImpl)
	slog.Info("telemetry initialized", "alert_rules", len(alerts.Rules()))

	var predictor domain.Predictor
	if cfg.Prediction.Enabled {
		predictor = prediction.NewClient(cfg.Prediction, cacheImpl)
		slog.Info("prediction client initialized", "url", cfg.Prediction.BaseURL+cfg.Prediction.Path)
	}

	// Initialize async Worker (Pro tier)
	var asyncWorker *worker.Worker
	if cfg.Telemetry.AsyncWorker {
		asyncWorker = worker.NewWorker(busImpl, pipeline)
		if err := asyncWorker.Start(worker.Config{MotorIDs: motors}); err != nil {
			return fmt.Errorf("failed to start async worker: %w", err)
		}
		slog.Info("async worker started", "motor_count", len(motors))
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, api.Dependencies{
		Knowledge:   kb,
		Processor:   processor,
		Repo:        repo,
		Cache:       cacheImpl,
		Bus:         busImpl,
		Pipeline:    pipeline,
		Alerts:      alerts,
		Predictor:   predictor,
		AsyncIngest: asyncWorker != nil,
		Version:     info.Version,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	slog.Info("motordiag is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	// Wait for shutdown signal
	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	// Stop async worker first
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("motordiag shutdown complete")
	return nil
}
