package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bee-swarm/swarm-sim/sim/workflow"
)

var compareConfigs []string // Scenario files to compare, in order

// compareCmd runs several scenarios and prints one row per scenario
var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Run several scenarios and compare their metrics",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		if len(compareConfigs) == 0 {
			logrus.Fatalf("compare needs at least one --config")
		}

		scenarios := make([]workflow.Scenario, 0, len(compareConfigs))
		for _, path := range compareConfigs {
			cfg, err := workflow.LoadConfig(path)
			if err != nil {
				logrus.Fatalf("%s: %v", path, err)
			}
			scenarios = append(scenarios, workflow.Scenario{Name: scenarioName(path), Config: cfg})
		}
		rows, err := workflow.Compare(scenarios)
		if err != nil {
			logrus.Fatalf("Comparison failed: %v", err)
		}
		if err := printComparison(os.Stdout, rows, format); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// scenarioName is the file name without directory or extension.
func scenarioName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func init() {
	compareCmd.Flags().StringArrayVar(&compareConfigs, "config", nil, "Scenario YAML file (repeat for each scenario)")
	rootCmd.AddCommand(compareCmd)
}
