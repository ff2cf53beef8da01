package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"airtrack/internal/ipc"
)

func newRecordCommand(ctx *commandContext) *cobra.Command {
	recordCmd := &cobra.Command{
		Use:   "record",
		Short: "Control the capture session",
	}

	recordCmd.AddCommand(newRecordStartCommand(ctx))
	recordCmd.AddCommand(newRecordPauseCommand(ctx))
	recordCmd.AddCommand(newRecordResumeCommand(ctx))
	recordCmd.AddCommand(newRecordStopCommand(ctx))
	recordCmd.AddCommand(newRecordTrimCommand(ctx))
	recordCmd.AddCommand(newRecordSaveCommand(ctx))
	recordCmd.AddCommand(newRecordResetCommand(ctx))

	return recordCmd
}

func newRecordStartCommand(ctx *commandContext) *cobra.Command {
	var device string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start recording",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.RecordStart(device)
				if err != nil {
					return err
				}
				if !resp.Started {
					return fmt.Errorf("start recording: %s", resp.Message)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Recording started")
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&device, "device", "d", "", "Capture device ID (defaults to the remembered device)")
	return cmd
}

func newRecordPauseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause the running recording",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.RecordPause(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Recording paused")
				return nil
			})
		},
	}
}

func newRecordResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume a paused recording",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.RecordResume(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Recording resumed")
				return nil
			})
		},
	}
}

func newRecordStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop recording and keep the audio for review",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.RecordStop()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recording stopped (%s captured)\n", formatSeconds(resp.DurationSeconds))
				return nil
			})
		},
	}
}

func newRecordTrimCommand(ctx *commandContext) *cobra.Command {
	var clear bool

	cmd := &cobra.Command{
		Use:   "trim [start] [end]",
		Short: "Trim the captured audio without touching the original",
		Long: "Trim sets the playback window on the captured audio, for example\n" +
			"`airtrack record trim 1.5s 12s`. The original recording is kept, so a\n" +
			"new trim replaces the previous one and --clear restores the full take.",
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if clear {
				if len(args) != 0 {
					return fmt.Errorf("--clear does not take bounds")
				}
				return ctx.withClient(func(client *ipc.Client) error {
					resp, err := client.RecordTrim(ipc.RecordTrimRequest{Clear: true})
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Trim cleared (full length %s)\n", formatSeconds(resp.DurationSeconds))
					return nil
				})
			}

			if len(args) != 2 {
				return fmt.Errorf("trim requires start and end bounds (or --clear)")
			}
			start, err := time.ParseDuration(args[0])
			if err != nil {
				return fmt.Errorf("parse start %q: %w", args[0], err)
			}
			end, err := time.ParseDuration(args[1])
			if err != nil {
				return fmt.Errorf("parse end %q: %w", args[1], err)
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.RecordTrim(ipc.RecordTrimRequest{
					StartMillis: start.Milliseconds(),
					EndMillis:   end.Milliseconds(),
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Trim applied (%s remaining)\n", formatSeconds(resp.DurationSeconds))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clear, "clear", false, "Remove the trim and restore the full recording")
	return cmd
}

func newRecordSaveCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save [break-id]",
		Short: "Upload the captured audio as a take",
		Long: "Save uploads the captured (and trimmed) audio to the traffic backend\n" +
			"as a new take for the given break. Without a break ID the recording is\n" +
			"saved to the standalone library instead.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var breakID int64
			if len(args) == 1 {
				parsed, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil || parsed <= 0 {
					return fmt.Errorf("invalid break id %q", args[0])
				}
				breakID = parsed
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.RecordSave(breakID)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if resp.Staged {
					fmt.Fprintln(stdout, "Upload failed; the recording was kept and staged for retry")
					fmt.Fprintf(stdout, "Reason: %s\n", resp.Detail)
					return nil
				}
				if breakID > 0 {
					fmt.Fprintf(stdout, "Saved take %d for break %d\n", resp.Take.TakeNumber, breakID)
				} else {
					fmt.Fprintln(stdout, "Saved standalone recording")
				}
				return nil
			})
		},
	}
	return cmd
}

func newRecordResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Discard the captured audio and return to idle",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.RecordReset(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Recording discarded")
				return nil
			})
		},
	}
}
