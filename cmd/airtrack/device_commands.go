package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"airtrack/internal/ipc"
)

func newDevicesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List available capture devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.DeviceList()
				if err != nil {
					return err
				}
				if len(resp.Devices) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No capture devices found")
					return nil
				}
				rows := make([][]string, 0, len(resp.Devices))
				for _, device := range resp.Devices {
					rows = append(rows, []string{device.ID, device.Label})
				}
				table := renderTable(
					[]column{col("ID"), col("Label")},
					rows,
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}
