package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bee-swarm/swarm-sim/sim/eventlog"
	"github.com/bee-swarm/swarm-sim/sim/workflow"
)

var (
	configPath string  // Scenario YAML layered over the defaults
	seed       int64   // Master seed, overrides the scenario
	horizon    float64 // Simulated hours, overrides the scenario
	logLevel   string  // Log verbosity level
	eventsPath string  // Where to write the event log as JSON lines ("-" for stdout)
	format     string  // Output format: table or json
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "swarmsim",
	Short: "Discrete-event simulator for a multi-role software delivery team",
}

// runCmd executes one scenario using the config file and CLI overrides
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one team simulation",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		cfg, err := loadScenario(configPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		// Flags only override the scenario when given explicitly.
		if cmd.Flags().Changed("seed") {
			cfg.Seed = seed
		}
		if cmd.Flags().Changed("horizon") {
			cfg.Horizon = horizon
		}

		res, err := workflow.Run(cfg)
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		if eventsPath != "" {
			if err := writeEvents(eventsPath, res.Entries); err != nil {
				logrus.Fatalf("Writing event log: %v", err)
			}
		}
		if err := printResult(os.Stdout, res, format); err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Info("Simulation complete.")
	},
}

func setupLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// loadScenario returns the defaults, or the scenario at path layered over them.
func loadScenario(path string) (*workflow.SimulationConfig, error) {
	if path == "" {
		return workflow.DefaultConfig(), nil
	}
	return workflow.LoadConfig(path)
}

// writeEvents writes entries as JSON lines to path, or to stdout for "-".
func writeEvents(path string, entries []eventlog.Entry) error {
	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := eventlog.WriteJSONL(w, entries); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	logrus.Infof("Wrote %d events to %s", len(entries), path)
	return nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format (table, json)")

	runCmd.Flags().StringVar(&configPath, "config", "", "Scenario YAML file layered over the built-in defaults")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Master seed for every random stream")
	runCmd.Flags().Float64Var(&horizon, "horizon", 100, "Simulation horizon (in hours)")
	runCmd.Flags().StringVar(&eventsPath, "events", "", "Write the event log as JSON lines to this file (- for stdout)")

	rootCmd.AddCommand(runCmd)
}
