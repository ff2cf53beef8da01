package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"airtrack/internal/ipc"
)

func newPublishCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <take-id>",
		Short: "Push a take to the playout system",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			takeID, err := parsePositiveID(args[0], "take")
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Publish(takeID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Take %d pushed to playout\n", takeID)
				return nil
			})
		},
	}
}
