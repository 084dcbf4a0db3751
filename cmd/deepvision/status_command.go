package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/minhduonq/deep-vision/internal/api"
	"github.com/minhduonq/deep-vision/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and environment status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			client := newAPIClient(ctx.apiAddr(), cfg.Paths.APIToken)
			var daemonStatus *api.DaemonStatus
			if client != nil && client.reachable() {
				status, err := client.Status(cmd.Context())
				if err != nil {
					return err
				}
				daemonStatus = &status
			}

			results := preflight.RunAll(cmd.Context(), cfg)

			if jsonFlag {
				payload := map[string]any{
					"daemon": daemonStatus,
					"checks": results,
				}
				return writeJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(out, line)
			}
			if daemonStatus == nil {
				fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, "not running", colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d)", daemonStatus.PID), colorize))
				fmt.Fprintln(out, renderStatusLine("Mode", statusInfo, daemonStatus.Engine.Mode, colorize))
				if daemonStatus.Engine.LastError != "" {
					fmt.Fprintln(out, renderStatusLine("Last error", statusError, daemonStatus.Engine.LastError, colorize))
				}
				for _, health := range daemonStatus.Engine.StageHealth {
					kind := statusOK
					detail := "ready"
					if !health.Ready {
						kind = statusError
						detail = health.Detail
					}
					fmt.Fprintln(out, renderStatusLine(statusLabel(health.Name)+" stage", kind, detail, colorize))
				}
				if stats := summarizeQueueStats(daemonStatus.Engine.QueueStats); stats != "" {
					fmt.Fprintln(out, renderStatusLine("Queue", statusInfo, stats, colorize))
				}
			}

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Environment", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit JSON output")
	return cmd
}

func summarizeQueueStats(stats map[string]int) string {
	rows := buildStatsRows(stats)
	parts := make([]string, 0, len(rows))
	for _, row := range rows {
		parts = append(parts, fmt.Sprintf("%s %s", row[1], strings.ToLower(row[0])))
	}
	return strings.Join(parts, ", ")
}
