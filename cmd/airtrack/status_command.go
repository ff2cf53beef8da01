package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"airtrack/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, recorder, and upload status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)

				for _, line := range renderSectionHeader("Daemon", colorize) {
					fmt.Fprintln(stdout, line)
				}
				runningKind := statusWarn
				runningDetail := "stopped"
				if status.Running {
					runningKind = statusOK
					runningDetail = fmt.Sprintf("pid %d", status.PID)
				}
				fmt.Fprintln(stdout, renderStatusLine("Running", runningKind, runningDetail, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Take database", statusInfo, status.TakeDBPath, colorize))
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Recorder", colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout, renderStatusLine("State", recorderStateKind(status.RecorderState), statusLabel(status.RecorderState), colorize))
				device := status.Device
				if device == "" {
					device = "not selected"
				}
				fmt.Fprintln(stdout, renderStatusLine("Device", statusInfo, device, colorize))
				if status.RecorderState == "recording" || status.RecorderState == "paused" {
					fmt.Fprintln(stdout, renderStatusLine("Elapsed", statusInfo, formatElapsed(status.ElapsedSeconds), colorize))
				}
				fmt.Fprintln(stdout, renderStatusLine("Unsaved audio", statusInfo, yesNo(status.HasCandidate), colorize))
				if status.HasCandidate {
					fmt.Fprintln(stdout, renderStatusLine("Trim applied", statusInfo, yesNo(status.TrimApplied), colorize))
				}
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Presence", colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout, renderStatusLine("Channel", presenceKind(status.Presence), statusLabel(status.Presence), colorize))
				if len(status.Collaborators) > 0 {
					names := make([]string, 0, len(status.Collaborators))
					for _, collaborator := range status.Collaborators {
						names = append(names, collaborator.Username)
					}
					fmt.Fprintln(stdout, renderStatusLine("On air with", statusInfo, strings.Join(names, ", "), colorize))
				}
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Uploads", colorize) {
					fmt.Fprintln(stdout, line)
				}
				pendingKind := statusOK
				if status.StagedPending > 0 {
					pendingKind = statusInfo
				}
				fmt.Fprintln(stdout, renderStatusLine("Pending", pendingKind, fmt.Sprintf("%d", status.StagedPending), colorize))
				failedKind := statusOK
				if status.StagedFailed > 0 {
					failedKind = statusWarn
				}
				fmt.Fprintln(stdout, renderStatusLine("Failed", failedKind, fmt.Sprintf("%d", status.StagedFailed), colorize))
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Dependencies", colorize) {
					fmt.Fprintln(stdout, line)
				}
				for _, line := range dependencyLines(status.Dependencies, colorize) {
					fmt.Fprintln(stdout, line)
				}
				return nil
			})
		},
	}
}

func recorderStateKind(state string) statusKind {
	switch state {
	case "recording":
		return statusLive
	case "paused":
		return statusWarn
	case "stopped":
		return statusOK
	default:
		return statusInfo
	}
}

func presenceKind(status string) statusKind {
	switch status {
	case "connected":
		return statusOK
	case "connecting":
		return statusWarn
	default:
		return statusError
	}
}

func dependencyLines(deps []ipc.DependencyStatus, colorize bool) []string {
	lines := make([]string, 0, len(deps))
	missing := make([]string, 0)
	for _, dep := range deps {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}

		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		missing = append(missing, dep.Name)
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusWarn, strings.Join(missing, ", "), colorize))
	}
	return lines
}
