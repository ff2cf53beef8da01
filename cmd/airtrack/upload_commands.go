package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"airtrack/internal/ipc"
)

func newUploadsCommand(ctx *commandContext) *cobra.Command {
	uploadsCmd := &cobra.Command{
		Use:   "uploads",
		Short: "Inspect and retry staged uploads",
	}

	uploadsCmd.AddCommand(newUploadsListCommand(ctx))
	uploadsCmd.AddCommand(newUploadsRetryCommand(ctx))

	return uploadsCmd
}

func newUploadsListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recordings staged for upload",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.UploadList(listStatuses)
				if err != nil {
					return err
				}
				if len(resp.Recordings) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No staged recordings")
					return nil
				}
				rows := make([][]string, 0, len(resp.Recordings))
				for _, recording := range resp.Recordings {
					target := "standalone"
					if recording.BreakID > 0 {
						target = fmt.Sprintf("break %d", recording.BreakID)
					}
					rows = append(rows, []string{
						recording.ID,
						target,
						statusLabel(recording.Status),
						formatSeconds(recording.DurationSeconds),
						strconv.Itoa(recording.Attempts),
						recording.ErrorMessage,
					})
				}
				table := renderTable(
					[]column{col("ID"), col("Target"), col("Status"), numCol("Length"), numCol("Attempts"), col("Last Error")},
					rows,
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by staged status (repeatable)")
	return cmd
}

func newUploadsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Retry failed uploads (all failed uploads when no IDs are given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.UploadRetry(args)
				if err != nil {
					return err
				}
				if resp.Updated == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No failed uploads to retry")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %d upload(s) for retry\n", resp.Updated)
				return nil
			})
		},
	}
}
