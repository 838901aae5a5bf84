package main

import "github.com/spf13/cobra"

func newCycleCommand(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "cycle",
		Short: "Run a single review/claim/work/report/summary cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := env.build()
			if err != nil {
				return err
			}
			defer app.Close()
			app.Workflow.RunCycle(cmd.Context())
			return nil
		},
	}
}
