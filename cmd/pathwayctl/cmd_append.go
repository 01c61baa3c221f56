package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pathwaylab/pathway-core/internal/event"
)

// newAppendCmd creates the "pathwayctl append" subcommand.
func newAppendCmd() *cobra.Command {
	var fromFile string

	cmd := &cobra.Command{
		Use:   "append",
		Short: "Append a candidate event to the store",
		Long:  "Reads a candidate event as JSON (an event.NewEnvelope) from --file or stdin and appends it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if fromFile != "" && fromFile != "-" {
				f, err := os.Open(fromFile)
				if err != nil {
					return fmt.Errorf("append: %w", err)
				}
				defer f.Close()
				r = f
			}

			var candidate event.NewEnvelope
			if err := json.NewDecoder(r).Decode(&candidate); err != nil {
				return fmt.Errorf("append: invalid JSON candidate: %w", err)
			}

			es, err := openStore(cmd)
			if err != nil {
				return fmt.Errorf("append: %w", err)
			}
			defer es.Close()

			stored, err := es.Append(cmd.Context(), candidate)
			if err != nil {
				return fmt.Errorf("append: %w", err)
			}

			return json.NewEncoder(cmd.OutOrStdout()).Encode(stored)
		},
	}

	cmd.Flags().StringVar(&fromFile, "file", "", "Path to a JSON file containing the candidate event (default: stdin)")

	return cmd
}
