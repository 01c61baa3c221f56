// Package main implements pathwayctl, a thin cobra CLI over the core Go
// API: every subcommand opens a store and calls straight into
// internal/store, internal/session, or internal/transport/jsonl with no
// business logic of its own.
package main

import (
	"github.com/spf13/cobra"

	"github.com/pathwaylab/pathway-core/internal/event"
)

// newRootCmd creates the root pathwayctl command with all subcommands
// attached.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pathwayctl",
		Short:         "Pathway Core command-line client",
		Long:          "pathwayctl is a thin CLI wrapper over Pathway Core's event store and session composer.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("db", "pathway.db", "Path to the sqlite event store (use :memory: for a scratch store)")

	cmd.AddCommand(
		newAppendCmd(),
		newStateCmd(),
		newEventsCmd(),
		newExportCmd(),
		newImportCmd(),
		newSessionsCmd(),
	)

	return cmd
}

func shapeLimits() event.ShapeLimits {
	return event.DefaultShapeLimits()
}
