package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jaakkos/orchestrator/internal/vibecheck"
)

func newVibeCheckCommand(env *cliEnv) *cobra.Command {
	var author string
	cmd := &cobra.Command{
		Use:   "vibe-check <path>",
		Short: "Run the vibe check static analyzer over a file or directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := env.build()
			if err != nil {
				return err
			}
			defer app.Close()

			info, err := os.Stat(args[0])
			if err != nil {
				return fmt.Errorf("misuse: %w", err)
			}
			var report vibecheck.Report
			if info.IsDir() {
				report = app.Vibe.CheckDirectory(args[0], author)
			} else {
				report = app.Vibe.CheckFile(args[0], author)
			}
			if err := printJSON(report); err != nil {
				return err
			}
			if report.Result == vibecheck.ResultFail {
				return logicFailure(fmt.Errorf("vibe check failed with %d violation(s)", len(report.Violations)))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&author, "author", "", "agent author attribution for the report")
	return cmd
}
