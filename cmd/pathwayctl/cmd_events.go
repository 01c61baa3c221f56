package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pathwaylab/pathway-core/internal/event"
	"github.com/pathwaylab/pathway-core/internal/store"
)

// newEventsCmd creates the "pathwayctl events" subcommand.
func newEventsCmd() *cobra.Command {
	var (
		kind    string
		headID  string
		seqMin  int64
		seqMax  int64
		limit   int
		offset  int
		order   string
	)

	cmd := &cobra.Command{
		Use:   "events <session_id>",
		Short: "List a session's events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID := args[0]

			es, err := openStore(cmd)
			if err != nil {
				return fmt.Errorf("events: %w", err)
			}
			defer es.Close()

			filter := store.EventFilter{
				Type:   event.Kind(kind),
				HeadID: headID,
				SeqMin: seqMin,
				SeqMax: seqMax,
				Limit:  limit,
				Offset: offset,
				Order:  store.Order(order),
			}

			events, err := es.GetEvents(cmd.Context(), sessionID, filter)
			if err != nil {
				return fmt.Errorf("events: %w", err)
			}

			return json.NewEncoder(cmd.OutOrStdout()).Encode(events)
		},
	}

	cmd.Flags().StringVar(&kind, "type", "", "Filter by event kind")
	cmd.Flags().StringVar(&headID, "head-id", "", "Filter by branch head id")
	cmd.Flags().Int64Var(&seqMin, "seq-min", 0, "Minimum seq (inclusive)")
	cmd.Flags().Int64Var(&seqMax, "seq-max", 0, "Maximum seq (inclusive)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of events to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of events to skip")
	cmd.Flags().StringVar(&order, "order", string(store.Asc), "Sort order: asc or desc")

	return cmd
}
