package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"quill/internal/ipc"
)

func newChannelsCommand(ctx *commandContext) *cobra.Command {
	channelsCmd := &cobra.Command{
		Use:   "channels",
		Short: "Inspect live channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChannelList(cmd, ctx)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List live channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChannelList(cmd, ctx)
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <channel-id>",
		Short: "Show one channel's roster and sequence heads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChannelShow(cmd, ctx, args[0])
		},
	}

	channelsCmd.AddCommand(listCmd)
	channelsCmd.AddCommand(showCmd)
	return channelsCmd
}

func runChannelList(cmd *cobra.Command, ctx *commandContext) error {
	return ctx.withClient(func(client *ipc.Client) error {
		resp, err := client.ChannelList()
		if err != nil {
			return err
		}
		if ctx.jsonOutput() {
			return writeJSON(cmd, resp)
		}
		stdout := cmd.OutOrStdout()
		if len(resp.Channels) == 0 {
			fmt.Fprintln(stdout, "No live channels")
			return nil
		}
		fmt.Fprintln(stdout, renderTable(
			[]string{"Channel", "Participants", "Subscribers", "Empty Since"},
			channelListRows(resp.Channels),
			[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
		))
		return nil
	})
}

func runChannelShow(cmd *cobra.Command, ctx *commandContext, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("channel id is required")
	}
	return ctx.withClient(func(client *ipc.Client) error {
		resp, err := client.ChannelDescribe(id)
		if err != nil {
			return err
		}
		if ctx.jsonOutput() {
			return writeJSON(cmd, resp)
		}
		stdout := cmd.OutOrStdout()
		colorize := shouldColorize(stdout)
		detail := resp.Channel

		for _, line := range renderSectionHeader("Channel "+detail.ID, colorize) {
			fmt.Fprintln(stdout, line)
		}
		if len(detail.Presences) == 0 {
			fmt.Fprintln(stdout, "No participants")
		} else {
			rows := make([][]string, 0, len(detail.Presences))
			for _, p := range detail.Presences {
				cursor := ""
				if p.Cursor != nil {
					cursor = fmt.Sprintf("%s@%d", p.Cursor.ElementID, p.Cursor.Offset)
				}
				rows = append(rows, []string{p.ParticipantID, p.DisplayName, p.Color, cursor, p.LastHeartbeat})
			}
			fmt.Fprintln(stdout, renderTable(
				[]string{"Participant", "Name", "Color", "Cursor", "Last Heartbeat"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
		}

		if len(detail.SequenceHeads) > 0 {
			fmt.Fprintln(stdout)
			for _, line := range renderSectionHeader("Sequence Heads", colorize) {
				fmt.Fprintln(stdout, line)
			}
			elements := make([]string, 0, len(detail.SequenceHeads))
			for element := range detail.SequenceHeads {
				elements = append(elements, element)
			}
			sort.Strings(elements)
			rows := make([][]string, 0, len(elements))
			for _, element := range elements {
				rows = append(rows, []string{element, strconv.FormatUint(detail.SequenceHeads[element], 10)})
			}
			fmt.Fprintln(stdout, renderTable(
				[]string{"Element", "Seq"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
		}
		return nil
	})
}

func channelListRows(channels []ipc.ChannelSummary) [][]string {
	rows := make([][]string, 0, len(channels))
	for _, ch := range channels {
		rows = append(rows, []string{
			ch.ID,
			strconv.Itoa(ch.Participants),
			strconv.Itoa(ch.Subscribers),
			ch.EmptySince,
		})
	}
	return rows
}
