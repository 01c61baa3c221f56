package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// newSessionsCmd creates the "pathwayctl sessions" subcommand.
func newSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List every session the store has seen",
		RunE: func(cmd *cobra.Command, args []string) error {
			es, err := openStore(cmd)
			if err != nil {
				return fmt.Errorf("sessions: %w", err)
			}
			defer es.Close()

			summaries, err := es.ListSessions(cmd.Context())
			if err != nil {
				return fmt.Errorf("sessions: %w", err)
			}

			return json.NewEncoder(cmd.OutOrStdout()).Encode(summaries)
		},
	}
}
