package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/madison-studio/madison-connect/internal/config"
	"github.com/madison-studio/madison-connect/internal/core/services"
)

func newCleanupStatesCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup-states",
		Short: "Delete expired OAuth states once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*envFile)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			removed, err := a.newJanitor(services.NopMetrics{}).SweepOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired oauth states\n", removed)
			return nil
		},
	}
}
