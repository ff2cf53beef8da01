package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"airtrack/internal/ipc"
)

func newPresenceCommand(ctx *commandContext) *cobra.Command {
	presenceCmd := &cobra.Command{
		Use:   "presence",
		Short: "Inspect the collaboration channel",
	}

	presenceCmd.AddCommand(newPresenceStatusCommand(ctx))
	presenceCmd.AddCommand(newPresenceReconnectCommand(ctx))

	return presenceCmd
}

func newPresenceStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connection state and collaborators",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Channel: %s\n", statusLabel(status.Presence))
				if len(status.Collaborators) == 0 {
					fmt.Fprintln(stdout, "No collaborators online")
					return nil
				}
				rows := make([][]string, 0, len(status.Collaborators))
				for _, collaborator := range status.Collaborators {
					rows = append(rows, []string{collaborator.UserID, collaborator.Username})
				}
				table := renderTable(
					[]column{col("User ID"), col("Username")},
					rows,
				)
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}
}

func newPresenceReconnectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reconnect",
		Short: "Force an immediate reconnect attempt",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.PresenceReconnect()
				if err != nil {
					return err
				}
				if !resp.Connected {
					return fmt.Errorf("reconnect: %s", resp.Message)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Presence channel connected")
				return nil
			})
		},
	}
}
