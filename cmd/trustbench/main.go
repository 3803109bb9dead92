// Command trustbench is the CLI entrypoint: serve runs the HTTP API
// and job worker pool, evaluate runs one profile end-to-end from the
// command line. Grounded on the teacher's cmd/main/main.go rootCmd +
// cobra.OnInitialize wiring, trimmed to this engine's two verbs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"trustbench/internal/agents"
	"trustbench/internal/api"
	"trustbench/internal/config"
	"trustbench/internal/jobs"
	"trustbench/internal/logging"
	"trustbench/internal/orchestrator"
	"trustbench/internal/provider"
	"trustbench/internal/runstore"
	"trustbench/internal/telemetry"
	"trustbench/internal/tools"
	"trustbench/pkg/models"
)

var rootCmd = &cobra.Command{
	Use:   "trustbench",
	Short: "TrustBench - AI system evaluation harness",
	Long:  "TrustBench runs task-fidelity, performance, security, and ethics evaluators against a target AI system and synthesizes a pass/warn/fail verdict.",
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(evaluateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and job worker pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logging.Initialize(cfg.LogLevel == "debug", logging.ParseFormat(cfg.LogFormat))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		shutdown, err := telemetry.Init(ctx, cfg.OTLPEndpoint)
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		defer shutdown(ctx)

		fs := afero.NewOsFs()
		jobStore := jobs.NewStore(fs, cfg.JobsRoot)
		jobManager := jobs.NewManager(jobStore)
		runStore := runstore.NewStore(fs, cfg.RunsRoot)

		bridge := tools.Bridge(tools.NewFakeBridge())
		if !cfg.FakeProvider && cfg.ToolBridgeURL != "" {
			bridge = tools.NewHTTPBridge(cfg.ToolBridgeURL, cfg.ToolBridgeKey, 0)
		}

		worker := &jobs.Worker{
			Store:  jobStore,
			Bridge: bridge,
			LoadProfile: func(name string) (*models.Profile, error) {
				return config.LoadProfile(fs, name)
			},
			LoadDatasets: func(profile *models.Profile) (map[string][]models.DatasetRecord, error) {
				return config.LoadDatasets(fs, profile)
			},
			BuildOrchestrator: func(profile *models.Profile, workdir string) (*orchestrator.Orchestrator, error) {
				return buildOrchestrator(cfg, profile, bridge, workdir)
			},
			RunStore: runStore,
			Config:   cfg,
		}
		pool := jobs.NewPool(ctx, worker, cfg.MaxParallelPillars)
		defer pool.Stop()

		handlers := &api.Handlers{
			JobManager: jobManager,
			JobStore:   jobStore,
			JobPool:    pool,
			RunStore:   runStore,
			Manifest:   api.DefaultManifest(),
		}
		router := gin.New()
		router.Use(gin.Recovery())
		api.NewHandlers(router, handlers)

		logging.Info("trustbench serving", "addr", cfg.HTTPAddr)
		srvErr := make(chan error, 1)
		go func() { srvErr <- router.Run(cfg.HTTPAddr) }()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-srvErr:
			return err
		case <-sig:
			logging.Info("shutting down")
			return nil
		}
	},
}

var (
	evaluateProfilePath string
	evaluateWorkdir     string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run one profile end-to-end and print the verdict",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logging.Initialize(cfg.LogLevel == "debug", logging.ParseFormat(cfg.LogFormat))

		if evaluateProfilePath == "" {
			return fmt.Errorf("evaluate: --profile is required")
		}
		if evaluateWorkdir == "" {
			evaluateWorkdir = "."
		}

		fs := afero.NewOsFs()
		profile, err := config.LoadProfile(fs, evaluateProfilePath)
		if err != nil {
			return err
		}
		datasets, err := config.LoadDatasets(fs, profile)
		if err != nil {
			return err
		}

		bridge := tools.Bridge(tools.NewFakeBridge())
		if !cfg.FakeProvider && cfg.ToolBridgeURL != "" {
			bridge = tools.NewHTTPBridge(cfg.ToolBridgeURL, cfg.ToolBridgeKey, 0)
		}

		orc, err := buildOrchestrator(cfg, profile, bridge, evaluateWorkdir)
		if err != nil {
			return err
		}

		ctx := context.Background()
		result, err := orc.Run(ctx, profile, datasets)
		if err != nil {
			return fmt.Errorf("evaluate: %w", err)
		}

		runStore := runstore.NewStore(fs, cfg.RunsRoot)
		runID, err := runStore.Write(ctx, profile, result, cfg.FakeProvider)
		if err != nil {
			return fmt.Errorf("evaluate: write run artifacts: %w", err)
		}

		fmt.Printf("run %s: decision=%s composite=%.3f\n", runID, result.Verdict.Decision, result.Verdict.Composite)
		failed := result.Verdict.Decision == "fail"
		for _, p := range result.Verdict.Pillars {
			if !p.Pass {
				failed = true
			}
		}
		if failed {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	evaluateCmd.Flags().StringVar(&evaluateProfilePath, "profile", "", "path to the profile document (required)")
	evaluateCmd.Flags().StringVar(&evaluateWorkdir, "workdir", "", "target system checkout directory (default: current directory)")
}

// buildOrchestrator wires the four pillar agents for profile, sharing
// one provider router and tool bridge the way evaluate_all.py builds
// its agent list from a single ProviderConfig.
func buildOrchestrator(cfg *config.Config, profile *models.Profile, bridge tools.Bridge, workdir string) (*orchestrator.Orchestrator, error) {
	primaryProvider, router, err := provider.Build(cfg, profile.Provider, profile.FallbackProvider, profile.Model)
	if err != nil {
		return nil, err
	}

	pillarAgents := []agents.Agent{
		agents.NewTaskFidelityAgent(router, nil, profile.EnableJudgeScorer),
		agents.NewSystemPerfAgent(primaryProvider),
		agents.NewSecurityEvalAgent(bridge, workdir),
		agents.NewEthicsRefusalAgent(primaryProvider, primaryProvider),
	}

	return orchestrator.New(pillarAgents, cfg.MaxParallelPillars), nil
}
