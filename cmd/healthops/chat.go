package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/randalmurphal/healthops/pkg/healthops/agent"
)

func newChatCmd(v *viper.Viper) *cobra.Command {
	var threadID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Long:  "chat reads one question per line until EOF or \"exit\". \"/reset\" clears the thread.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, v)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")
				if !scanner.Scan() {
					fmt.Fprintln(out)
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				switch line {
				case "":
					continue
				case "exit", "quit":
					return nil
				case "/reset":
					if threadID != "" {
						if _, err := a.agent.ResetConversation(cmd.Context(), threadID); err != nil {
							return err
						}
					}
					fmt.Fprintln(out, "conversation reset")
					continue
				}

				resp, err := a.agent.Process(cmd.Context(), agent.Request{ThreadID: threadID, Input: line})
				if err != nil {
					// A failed turn leaves the thread as it was; keep chatting.
					fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
					continue
				}
				threadID = resp.ThreadID
				if err := writeResponse(out, resp); err != nil {
					return err
				}
			}
		},
	}

	cmd.Flags().StringVar(&threadID, "thread", "", "conversation thread id (empty starts a new thread)")
	return cmd
}
