package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var errThreadRequired = errors.New("--thread is required")

func newHistoryCmd(v *viper.Viper) *cobra.Command {
	var (
		threadID string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the messages of a thread",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if threadID == "" {
				return errThreadRequired
			}
			a, err := openApp(cmd, v)
			if err != nil {
				return err
			}
			defer a.Close()

			messages, err := a.agent.GetConversationHistory(cmd.Context(), threadID)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), messages)
			}
			if len(messages) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "no messages")
				return err
			}
			for _, m := range messages {
				speaker := string(m.Role)
				if m.Name != "" {
					speaker += " (" + m.Name + ")"
				}
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s:\n%s\n\n",
					m.Timestamp.Format("15:04:05"), speaker, m.Content); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&threadID, "thread", "", "conversation thread id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print messages as JSON")
	return cmd
}

func newResetCmd(v *viper.Viper) *cobra.Command {
	var threadID string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear a thread's conversation and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if threadID == "" {
				return errThreadRequired
			}
			a, err := openApp(cmd, v)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.agent.ResetConversation(cmd.Context(), threadID); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "thread %s reset\n", threadID)
			return err
		},
	}

	cmd.Flags().StringVar(&threadID, "thread", "", "conversation thread id")
	return cmd
}

func newThreadsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "threads",
		Short: "List stored threads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, v)
			if err != nil {
				return err
			}
			defer a.Close()

			ids, err := a.agent.Threads(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), id); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
