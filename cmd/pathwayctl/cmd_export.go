package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pathwaylab/pathway-core/internal/transport/jsonl"
)

// newExportCmd creates the "pathwayctl export" subcommand.
func newExportCmd() *cobra.Command {
	var toFile string

	cmd := &cobra.Command{
		Use:   "export <session_id>",
		Short: "Export a session's event log as newline-delimited JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID := args[0]

			es, err := openStore(cmd)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			defer es.Close()

			var w io.Writer = cmd.OutOrStdout()
			if toFile != "" && toFile != "-" {
				f, err := os.Create(toFile)
				if err != nil {
					return fmt.Errorf("export: %w", err)
				}
				defer f.Close()
				w = f
			}

			count, err := jsonl.Export(cmd.Context(), es, sessionID, w)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "exported %d events\n", count)
			return nil
		},
	}

	cmd.Flags().StringVar(&toFile, "file", "", "Path to write the exported JSONL (default: stdout)")

	return cmd
}
