package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jaakkos/orchestrator/internal/domain"
)

func newFSMCommand(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fsm",
		Short: "Inspect and drive the Task FSM",
	}
	cmd.AddCommand(newFSMListCommand(env), newFSMShowCommand(env), newFSMCreateCommand(env), newFSMClaimCommand(env))
	return cmd
}

func newFSMListCommand(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every task",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := env.build()
			if err != nil {
				return err
			}
			defer app.Close()
			tasks, errs := app.Engine.List()
			for _, e := range errs {
				app.Logger.Warnw("fsm list: persistence error", "error", e)
			}
			return printJSON(tasks)
		},
	}
}

func newFSMShowCommand(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task_id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := env.build()
			if err != nil {
				return err
			}
			defer app.Close()
			t, err := app.Engine.Get(args[0])
			if err != nil {
				return logicFailure(err)
			}
			return printJSON(t)
		},
	}
}

func newFSMCreateCommand(env *cliEnv) *cobra.Command {
	var title, description, priority string
	var deps []string
	var contract bool
	var claimableBy []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task, optionally as a claimable Contract",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := env.build()
			if err != nil {
				return err
			}
			defer app.Close()

			p := domain.TaskPriority(priority)
			if p == "" {
				p = domain.TaskPriorityNormal
			}
			var t *domain.Task
			if contract {
				t, err = app.Engine.NewContract(title, description, p, deps, claimableBy, nil, time.Time{})
			} else {
				t, err = app.Engine.CreateTask(title, description, p, deps)
			}
			if err != nil {
				return logicFailure(err)
			}
			return printJSON(t)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "task title")
	cmd.Flags().StringVar(&description, "description", "", "task description")
	cmd.Flags().StringVar(&priority, "priority", "normal", "low|normal|high|critical")
	cmd.Flags().StringSliceVar(&deps, "depends-on", nil, "dependency task ids")
	cmd.Flags().BoolVar(&contract, "contract", false, "publish as a claimable Contract")
	cmd.Flags().StringSliceVar(&claimableBy, "claimable-by", nil, "agent ids allowed to claim (or \"*\")")
	return cmd
}

func newFSMClaimCommand(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "claim <task_id> <agent>",
		Short: "Claim a task for an agent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := env.build()
			if err != nil {
				return err
			}
			defer app.Close()
			t, err := app.Engine.Claim(args[0], args[1])
			if err != nil {
				return logicFailure(err)
			}
			return printJSON(t)
		},
	}
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
