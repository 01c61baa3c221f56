package main

import (
	"github.com/spf13/cobra"

	"github.com/pathwaylab/pathway-core/internal/store/sqlite"
)

// openStore opens the sqlite adapter named by the --db persistent flag.
// Callers are responsible for closing the returned adapter.
func openStore(cmd *cobra.Command) (*sqlite.Adapter, error) {
	dbPath, err := cmd.Flags().GetString("db")
	if err != nil {
		return nil, err
	}
	return sqlite.NewAdapter(dbPath, shapeLimits())
}
