package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pathwaylab/pathway-core/internal/transport/jsonl"
)

// newImportCmd creates the "pathwayctl import" subcommand.
func newImportCmd() *cobra.Command {
	var (
		fromFile          string
		sessionIDOverride string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a newline-delimited JSON event log",
		Long:  "Reads events from --file or stdin and re-appends them, optionally rewriting session_id via --session-id.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if fromFile != "" && fromFile != "-" {
				f, err := os.Open(fromFile)
				if err != nil {
					return fmt.Errorf("import: %w", err)
				}
				defer f.Close()
				r = f
			}

			es, err := openStore(cmd)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			defer es.Close()

			count, err := jsonl.Import(cmd.Context(), es, r, jsonl.ImportOptions{SessionIDOverride: sessionIDOverride})
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "imported %d events\n", count)
			return nil
		},
	}

	cmd.Flags().StringVar(&fromFile, "file", "", "Path to a JSONL file to import (default: stdin)")
	cmd.Flags().StringVar(&sessionIDOverride, "session-id", "", "Rewrite every imported event's session_id to this value")

	return cmd
}
