package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fortisim/fortisim/internal/scenario"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config.yaml>",
		Short: "Validate a scenario file without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s: ok (%s, %s, %d-%d, population %d)\n",
				args[0], cfg.Location, cfg.Scenario, cfg.StartYear, cfg.EndYear, cfg.PopulationSize)
			return nil
		},
	}
}
