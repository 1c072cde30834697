package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	beacon "github.com/telhawk-systems/telhawk-beacon"
	"github.com/telhawk-systems/telhawk-beacon/config"
	"github.com/telhawk-systems/telhawk-beacon/internal/emitter"
	"github.com/telhawk-systems/telhawk-beacon/internal/logging"
)

var (
	cfgFile      string
	scenarioFile string
	endpointURL  string
	seed         uint64
)

var rootCmd = &cobra.Command{
	Use:   "beacon-emitter",
	Short: "Beacon traffic emitter",
	Long: `beacon-emitter drives a beacon pipeline with synthetic telemetry.

It plays a scenario file (or a built-in default) against a collector
endpoint, exercising queueing, batching, retry and persistence exactly
as an embedding application would.`,
	Version: "0.1.0",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario",
	Long: `Load a scenario and play it through the pipeline.

Examples:
  # Built-in default scenario against a local collector
  beacon-emitter run --endpoint http://localhost:8090

  # Custom scenario and seed
  beacon-emitter run --scenario ./burst.yaml --seed 42`,
	RunE: runScenario,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a scenario file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if scenarioFile == "" {
			return fmt.Errorf("--scenario is required")
		}
		sc, err := emitter.LoadScenario(scenarioFile)
		if err != nil {
			return fmt.Errorf("scenario validation failed: %w", err)
		}

		fmt.Println("Scenario is valid:")
		fmt.Printf("  Version: %s\n", sc.Version)
		fmt.Printf("  Seed: %d\n", sc.Seed)
		fmt.Printf("  Phases: %d\n", len(sc.Phases))
		total := 0
		for _, p := range sc.Phases {
			fmt.Printf("    - %s: %d x %s every %v\n", p.Name, p.Count, p.Collection, p.Interval)
			total += p.Count
		}
		fmt.Printf("  Total events: %d\n", total)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./beacon.yaml)")
	rootCmd.PersistentFlags().StringVar(&scenarioFile, "scenario", "", "scenario file (default: built-in)")

	runCmd.Flags().StringVar(&endpointURL, "endpoint", "", "collector base URL (overrides config)")
	runCmd.Flags().Uint64Var(&seed, "seed", 0, "generator seed (overrides scenario)")
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load config: %v\n", err)
		cfg = config.Default()
	}
	if cmd.Flags().Changed("endpoint") {
		cfg.Endpoint.URL = endpointURL
	}
	if cfg.Endpoint.URL == "" {
		return fmt.Errorf("collector endpoint is required (use --endpoint or set endpoint.url in config)")
	}

	var sc *emitter.Scenario
	if scenarioFile != "" {
		sc, err = emitter.LoadScenario(scenarioFile)
		if err != nil {
			return fmt.Errorf("failed to load scenario: %w", err)
		}
	} else {
		sc = emitter.DefaultScenario()
	}
	if cmd.Flags().Changed("seed") {
		sc.Seed = seed
	}

	log := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	gen := emitter.NewGenerator(sc.Seed)

	p, err := beacon.New(cfg,
		beacon.WithContextProvider(gen),
	)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := p.Boot(ctx); err != nil {
		return fmt.Errorf("failed to boot pipeline: %w", err)
	}

	log.Info("emitter starting",
		logging.SessionID(p.SessionID()),
		"endpoint", cfg.Endpoint.URL,
		"phases", len(sc.Phases),
		"seed", sc.Seed,
	)

	runErr := emitter.Run(ctx, p, sc, gen, log)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p.Flush(shutdownCtx)
	if err := p.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown incomplete", logging.Error(err))
	}

	stats := p.Stats()
	log.Info("emitter finished",
		"delivered", stats.Delivered,
		"dropped", stats.Dropped,
		"pending", stats.Pending,
	)

	if runErr != nil && runErr != context.Canceled {
		return runErr
	}
	return nil
}
