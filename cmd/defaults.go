package cmd

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bee-swarm/swarm-sim/sim/workflow"
)

// defaultsCmd prints the built-in scenario, a starting point for --config files
var defaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Print the built-in scenario as YAML",
	Run: func(cmd *cobra.Command, args []string) {
		if err := writeDefaults(os.Stdout); err != nil {
			logrus.Fatalf("Encoding defaults: %v", err)
		}
	},
}

func writeDefaults(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(workflow.DefaultConfig()); err != nil {
		return err
	}
	return enc.Close()
}

func init() {
	rootCmd.AddCommand(defaultsCmd)
}
