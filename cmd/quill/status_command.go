package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"quill/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and channel status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()

			statusResp := offlineStatus(ctx)
			var channelsResp *ipc.ChannelListResponse
			if err := ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}
				statusResp = resp
				channelsResp, err = client.ChannelList()
				return err
			}); err != nil && statusResp.Running {
				return err
			}

			if ctx.jsonOutput() {
				payload := struct {
					Status   *ipc.StatusResponse  `json:"status"`
					Channels []ipc.ChannelSummary `json:"channels"`
				}{Status: statusResp}
				if channelsResp != nil {
					payload.Channels = channelsResp.Channels
				}
				return writeJSON(cmd, payload)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if statusResp.Running {
				fmt.Fprintln(stdout, renderStatusLine("Quilld", statusOK, fmt.Sprintf("Running (pid %d)", statusResp.PID), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Socket", statusOK, statusResp.SocketPath, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Journal", statusOK, statusResp.JournalPath, colorize))
			} else {
				fmt.Fprintln(stdout, renderStatusLine("Quilld", statusWarn, "Not running (start quilld)", colorize))
			}
			if cfg != nil {
				if strings.TrimSpace(cfg.Notifications.WebhookURL) != "" {
					fmt.Fprintln(stdout, renderStatusLine("Notifications", statusOK, "Configured", colorize))
				} else {
					fmt.Fprintln(stdout, renderStatusLine("Notifications", statusInfo, "Not configured", colorize))
				}
				if cfg.Relay.Enabled {
					fmt.Fprintln(stdout, renderStatusLine("Relay", statusOK, fmt.Sprintf("Redis %s", cfg.Relay.Addr), colorize))
				} else {
					fmt.Fprintln(stdout, renderStatusLine("Relay", statusInfo, "Disabled", colorize))
				}
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Channels", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if channelsResp == nil || len(channelsResp.Channels) == 0 {
				fmt.Fprintln(stdout, "No live channels")
				return nil
			}
			fmt.Fprintln(stdout, renderTable(
				[]string{"Channel", "Participants", "Subscribers"},
				channelRows(channelsResp.Channels),
				[]columnAlignment{alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
}

// offlineStatus builds a not-running status snapshot so the command still
// renders when the daemon socket is unreachable.
func offlineStatus(ctx *commandContext) *ipc.StatusResponse {
	resp := &ipc.StatusResponse{}
	if cfg := ctx.configValue(); cfg != nil {
		resp.JournalPath = cfg.JournalPath()
		resp.SocketPath = cfg.SocketPath()
	}
	return resp
}

func channelRows(channels []ipc.ChannelSummary) [][]string {
	rows := make([][]string, 0, len(channels))
	for _, ch := range channels {
		rows = append(rows, []string{
			ch.ID,
			strconv.Itoa(ch.Participants),
			strconv.Itoa(ch.Subscribers),
		})
	}
	return rows
}
