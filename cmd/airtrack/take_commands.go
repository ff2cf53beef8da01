package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"airtrack/internal/ipc"
)

func newTakesCommand(ctx *commandContext) *cobra.Command {
	takesCmd := &cobra.Command{
		Use:   "takes",
		Short: "Inspect and manage voice takes",
	}

	takesCmd.AddCommand(newTakesListCommand(ctx))
	takesCmd.AddCommand(newTakesSelectCommand(ctx))
	takesCmd.AddCommand(newTakesDeleteCommand(ctx))

	return takesCmd
}

func newTakesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <break-id>",
		Short: "List takes recorded for a break",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			breakID, err := parsePositiveID(args[0], "break")
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TakeList(breakID)
				if err != nil {
					return err
				}
				if len(resp.Takes) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No takes recorded for break %d\n", breakID)
					return nil
				}
				rows := make([][]string, 0, len(resp.Takes))
				for _, take := range resp.Takes {
					selected := ""
					if take.IsSelected {
						selected = "*"
					}
					rows = append(rows, []string{
						strconv.FormatInt(take.ID, 10),
						fmt.Sprintf("Take %d", take.TakeNumber),
						formatSeconds(take.DurationSeconds),
						selected,
						take.Filename,
					})
				}
				table := renderTable(
					[]column{numCol("ID"), numCol("Take"), numCol("Length"), col("Selected"), col("File")},
					rows,
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newTakesSelectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "select <take-id>",
		Short: "Make a take the one aired for its break",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			takeID, err := parsePositiveID(args[0], "take")
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.TakeSelect(takeID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Take %d selected\n", takeID)
				return nil
			})
		},
	}
}

func newTakesDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <take-id>",
		Short: "Delete a take",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			takeID, err := parsePositiveID(args[0], "take")
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.TakeDelete(takeID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Take %d deleted\n", takeID)
				return nil
			})
		},
	}
}

func parsePositiveID(arg, label string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", label, arg)
	}
	return id, nil
}
