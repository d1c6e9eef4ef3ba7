package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "fortisim",
		Short: "Fortisim - food fortification micro-simulation",
		Long: `fortisim simulates early-childhood nutritional deficiency risk and
large-scale food fortification interventions.

It runs an individual-based cohort with common random numbers, so a
baseline and a fortification run under the same seed and draw differ by
exactly the intervention effect. Results are stratified population
metrics written to a SQLite database.`,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newValidateCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
