package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jaakkos/orchestrator/internal/domain"
)

func newPRCommand(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pr",
		Short: "Submit and review pull requests",
	}
	cmd.AddCommand(newPRSubmitCommand(env), newPRStartReviewCommand(env), newPRReviewCommand(env), newPRListCommand(env))
	return cmd
}

func newPRSubmitCommand(env *cliEnv) *cobra.Command {
	var author, title, description, priority, reviewer, changesPath string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Create a PR, optionally with an explicit reviewer",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := env.build()
			if err != nil {
				return err
			}
			defer app.Close()

			var changes []domain.CodeChange
			if changesPath != "" {
				data, err := os.ReadFile(changesPath)
				if err != nil {
					return fmt.Errorf("misuse: reading changes file: %w", err)
				}
				if err := json.Unmarshal(data, &changes); err != nil {
					return fmt.Errorf("misuse: parsing changes file: %w", err)
				}
			}
			p := domain.TaskPriority(priority)
			if p == "" {
				p = domain.TaskPriorityNormal
			}
			pr, err := app.PR.Create(author, title, description, changes, p, reviewer)
			if err != nil {
				return logicFailure(err)
			}
			return printJSON(pr)
		},
	}
	cmd.Flags().StringVar(&author, "author", "", "PR author agent id")
	cmd.Flags().StringVar(&title, "title", "", "PR title")
	cmd.Flags().StringVar(&description, "description", "", "PR description")
	cmd.Flags().StringVar(&priority, "priority", "normal", "low|normal|high|critical")
	cmd.Flags().StringVar(&reviewer, "reviewer", "", "explicit reviewer (default: auto-assigned)")
	cmd.Flags().StringVar(&changesPath, "changes", "", "path to a JSON array of CodeChange")
	return cmd
}

func newPRStartReviewCommand(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "start-review <pr_id> <reviewer>",
		Short: "Mark a PR in_review",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := env.build()
			if err != nil {
				return err
			}
			defer app.Close()
			ok, err := app.PR.StartReview(args[0], args[1])
			if err != nil {
				return logicFailure(err)
			}
			return printJSON(map[string]bool{"started": ok})
		},
	}
}

func newPRReviewCommand(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "review <pr_id> <reviewer>",
		Short: "Run the full review pass (duplication, vibe check, design compliance, error handling, documentation)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := env.build()
			if err != nil {
				return err
			}
			defer app.Close()
			result, err := app.PR.Review(args[0], args[1])
			if err != nil {
				return logicFailure(err)
			}
			if err := printJSON(result); err != nil {
				return err
			}
			if !result.Approved {
				return logicFailure(fmt.Errorf("pr %s: needs_changes", args[0]))
			}
			return nil
		},
	}
}

func newPRListCommand(env *cliEnv) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pull requests, optionally filtered by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := env.build()
			if err != nil {
				return err
			}
			defer app.Close()
			return printJSON(app.PR.List(domain.PRStatus(status)))
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "pending|in_review|approved|needs_changes|rejected")
	return cmd
}
