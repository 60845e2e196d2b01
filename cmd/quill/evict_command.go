package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"quill/internal/ipc"
)

func newEvictCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "evict <channel-id> <participant-id>",
		Short: "Remove a participant from a channel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.EvictParticipant(args[0], args[1])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				stdout := cmd.OutOrStdout()
				if resp.Evicted {
					fmt.Fprintf(stdout, "Evicted %s from %s\n", args[1], args[0])
				} else {
					fmt.Fprintf(stdout, "Participant %s not present in %s\n", args[1], args[0])
				}
				return nil
			})
		},
	}
}
