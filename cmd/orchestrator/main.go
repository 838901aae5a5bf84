// Command orchestrator is the core single-invocation CLI surface: start the
// dispatcher and bridge, run one review/claim/work cycle, submit or review a
// PR, inspect the inbox or FSM, and run the vibe check over a path.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	exitSuccess      = 0
	exitLogicFailure = 1
	exitMisuse       = 2
	exitConfigError  = 3
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		code := exitFromError(err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(code)
	}
}

// exitErr carries the exit code a command wants, distinguishing a logic
// failure (e.g. PR needs_changes) from misuse or a configuration error
// (spec §6).
type exitErr struct {
	code int
	err  error
}

func (e *exitErr) Error() string { return e.err.Error() }
func (e *exitErr) Unwrap() error { return e.err }

func exitFromError(err error) int {
	var ee *exitErr
	if as, ok := err.(*exitErr); ok {
		ee = as
	}
	if ee != nil {
		return ee.code
	}
	return exitMisuse
}

func logicFailure(err error) error { return &exitErr{code: exitLogicFailure, err: err} }
func configFailure(err error) error { return &exitErr{code: exitConfigError, err: err} }

func newRootCommand() *cobra.Command {
	var configPath string
	var dataRoot string
	var mode string
	var workers int

	root := &cobra.Command{
		Use:           "orchestrator",
		Short:         "Multi-agent orchestration substrate: dispatcher, FSM, bridge, PR review, vibe check",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&dataRoot, "data-root", "", "override the data root directory (ORCHESTRATOR_DATA_ROOT)")
	root.PersistentFlags().StringVar(&mode, "mode", "", "override the active mode (ORCHESTRATOR_MODE)")
	root.PersistentFlags().IntVar(&workers, "workers", 0, "override the dispatcher worker count (ORCHESTRATOR_WORKERS)")

	env := &cliEnv{configPathFn: func() string { return configPath }, dataRootFn: func() string { return dataRoot }, modeFn: func() string { return mode }, workersFn: func() int { return workers }}

	root.AddCommand(
		newServeCommand(env),
		newCycleCommand(env),
		newPRCommand(env),
		newInboxCommand(env),
		newFSMCommand(env),
		newVibeCheckCommand(env),
	)
	return root
}
