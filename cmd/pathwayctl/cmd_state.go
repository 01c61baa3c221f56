package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pathwaylab/pathway-core/internal/session"
)

// newStateCmd creates the "pathwayctl state" subcommand.
func newStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state <session_id>",
		Short: "Print a session's composed state",
		Long:  "Folds a session's event log through the journey, learned, and artifact reducers and prints the composed SessionState as JSON.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID := args[0]

			es, err := openStore(cmd)
			if err != nil {
				return fmt.Errorf("state: %w", err)
			}
			defer es.Close()

			composer := session.NewComposer(es)
			state, warnings, err := composer.GetSessionStateWithWarnings(cmd.Context(), sessionID)
			if err != nil {
				return fmt.Errorf("state: %w", err)
			}

			for _, w := range warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w.Error())
			}

			return json.NewEncoder(cmd.OutOrStdout()).Encode(state)
		},
	}
}
