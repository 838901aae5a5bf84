package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jaakkos/orchestrator/internal/inbox"
)

func newInboxCommand(env *cliEnv) *cobra.Command {
	var unreadOnly bool
	var limit int

	cmd := &cobra.Command{
		Use:   "inbox <agent>",
		Short: "List an agent's inbox entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := env.build()
			if err != nil {
				return err
			}
			defer app.Close()

			entries, err := app.Inbox.List(args[0], inbox.Filter{UnreadOnly: unreadOnly, Limit: limit})
			if err != nil {
				return logicFailure(err)
			}
			out, err := json.MarshalIndent(entries, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().BoolVar(&unreadOnly, "unread-only", false, "only show unread entries")
	cmd.Flags().IntVar(&limit, "limit", 0, "limit to the most recent N entries (0 = all)")
	return cmd
}
