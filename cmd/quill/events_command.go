package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"quill/internal/ipc"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var channelID string
	var limit int

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent journal events, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.RecentEvents(channelID, limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Events) == 0 {
					fmt.Fprintln(stdout, "No journal events")
					return nil
				}
				rows := make([][]string, 0, len(resp.Events))
				for _, entry := range resp.Events {
					rows = append(rows, []string{
						entry.CreatedAt,
						entry.ChannelID,
						entry.ParticipantID,
						entry.Kind,
						entry.Detail,
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"Time", "Channel", "Participant", "Kind", "Detail"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&channelID, "channel", "", "Limit events to one channel")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of events to show")
	return cmd
}
