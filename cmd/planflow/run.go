package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/planflow/agent"
	"github.com/BaSui01/planflow/config"
	"github.com/BaSui01/planflow/internal/metrics"
	"github.com/BaSui01/planflow/internal/server"
	"github.com/BaSui01/planflow/internal/telemetry"
	"github.com/BaSui01/planflow/store"
	"github.com/BaSui01/planflow/task"
	"github.com/BaSui01/planflow/workflow"
)

// =============================================================================
// 🖥️ run 命令
// =============================================================================

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the planning agent",
	Long: `Start a planning agent: load the workflow definitions listed in
planner.workflows, restore their persisted aggregates and run planning
cycles until interrupted.

Metrics and health checks are served on metrics.listen_addr when
metrics.enabled is set. Planner pacing, aggregator policy and cascade
modes are reloaded when the config file changes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		logger := initLogger(cfg.Log)
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runAgent(ctx, cfg, configPath, logger)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// runAgent 组装并运行一个规划 agent，直到 ctx 结束
func runAgent(ctx context.Context, cfg *config.Config, path string, logger *zap.Logger) error {
	logger.Info("starting PlanFlow",
		zap.String("version", version()),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.String("store", cfg.Store.Driver))

	providers, err := telemetry.Init(ctx, cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	results, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open result store: %w", err)
	}
	defer func() {
		if err := results.Close(); err != nil {
			logger.Warn("result store close failed", zap.Error(err))
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(cfg.Metrics.Namespace, registry, logger)

	planner, err := newPlanner(cfg, results, collector, logger)
	if err != nil {
		return err
	}
	if _, err := planner.Restore(ctx); err != nil {
		logger.Warn("failed to restore aggregates", zap.Error(err))
	}

	runner, err := agent.NewRunner(agent.RunnerConfigFrom(cfg.Planner), logger)
	if err != nil {
		return err
	}
	if err := runner.Add(planner); err != nil {
		return err
	}
	if sqlStore, ok := results.(*store.SQLStore); ok {
		runner.OnCycle(func(*agent.Planner, *agent.CycleReport, error) {
			stats := sqlStore.Stats()
			collector.RecordDBConnections(cfg.Database.Driver, stats.OpenConnections, stats.Idle)
		})
	}

	reloader := config.NewReloader(cfg, path, config.WithReloaderLogger(logger))
	runner.Watch(reloader)
	if err := reloader.Start(ctx); err != nil {
		logger.Warn("config hot reload disabled", zap.Error(err))
	}
	defer func() { _ = reloader.Stop() }()

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Metrics.Enabled {
		srv := newMetricsServer(cfg, registry, collector, results, logger)
		if err := srv.Start(); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer func() { _ = srv.Shutdown(context.Background()) }()
		g.Go(func() error {
			select {
			case err := <-srv.Errors():
				return err
			case <-gctx.Done():
				return nil
			}
		})
	}
	g.Go(func() error { return runner.Run(gctx) })

	err = g.Wait()
	logger.Info("PlanFlow stopped", zap.Uint64("cycles", planner.Cycles()))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// newPlanner 按配置创建 Planner 并加载工作流定义
func newPlanner(cfg *config.Config, results store.ResultStore, collector *metrics.Collector, logger *zap.Logger) (*agent.Planner, error) {
	policy, err := workflow.ParsePolicy(cfg.Planner.Aggregator)
	if err != nil {
		return nil, err
	}
	planner, err := agent.NewPlanner(cfg.Planner.AgentID, task.NewBoard(logger),
		agent.WithStore(results, cfg.Store.Driver),
		agent.WithMetrics(collector),
		agent.WithLogger(logger),
		agent.WithAggregatorPolicy(policy, cfg.Planner.Epsilon),
		agent.WithPropagation(cfg.Planner.PropagateToSubtasks, cfg.Planner.PropagateCompositions),
	)
	if err != nil {
		return nil, err
	}

	for _, file := range cfg.Planner.Workflows {
		def, err := workflow.LoadDefinitionFile(file)
		if err != nil {
			return nil, fmt.Errorf("load workflow %s: %w", file, err)
		}
		if _, err := planner.LoadDefinition(def); err != nil {
			return nil, fmt.Errorf("build workflow %s: %w", file, err)
		}
	}
	logger.Info("planner ready",
		zap.String("agent_id", planner.ID()),
		zap.Int("workflows", len(planner.Workflows())))
	return planner, nil
}

func newMetricsServer(cfg *config.Config, registry *prometheus.Registry, collector *metrics.Collector,
	results store.ResultStore, logger *zap.Logger) *server.Manager {
	handler := server.NewHandler(server.HandlerOptions{
		Gatherer:  registry,
		Checks:    map[string]server.HealthCheck{"store": results.Ping},
		Collector: collector,
		Logger:    logger,
	})
	serverCfg := server.DefaultConfig()
	if cfg.Metrics.ListenAddr != "" {
		serverCfg.Addr = cfg.Metrics.ListenAddr
	}
	return server.NewManager(handler, serverCfg, logger)
}
