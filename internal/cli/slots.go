package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/repository"
	"github.com/Freeeeeet/slot_booking/internal/timefmt"
)

type slotsOptions struct {
	providerID int64
	from, to   string
}

func newSlotsCommand(rootOpts *RootOptions, open OpenFunc) *cobra.Command {
	opts := &slotsOptions{}

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "List slots, optionally for one provider and date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var from, to time.Time
			if opts.from != "" {
				var err error
				if from, to, err = timefmt.ParseRange(opts.from, opts.to, rootOpts.loc); err != nil {
					return fmt.Errorf("--from/--to: %w", err)
				}
			}

			var providerID *int64
			if opts.providerID > 0 {
				providerID = &opts.providerID
			}

			return withStore(cmd.Context(), open, func(store repository.Store) error {
				slots, err := store.Slots().List(cmd.Context(), providerID, from, to)
				if err != nil {
					return err
				}
				return writeSlots(cmd.OutOrStdout(), rootOpts, slots)
			})
		},
	}

	cmd.Flags().Int64Var(&opts.providerID, "provider", 0, "provider id (all providers when omitted)")
	cmd.Flags().StringVar(&opts.from, "from", "", "range start, date or date-time")
	cmd.Flags().StringVar(&opts.to, "to", "", "range end; a bare date means the end of that day")

	return cmd
}

func writeSlots(w io.Writer, opts *RootOptions, slots []*model.Slot) error {
	if opts.Format == "json" {
		if slots == nil {
			slots = []*model.Slot{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(slots)
	}

	if len(slots) == 0 {
		_, err := fmt.Fprintln(w, "No slots")
		return err
	}
	for _, s := range slots {
		status := "free"
		if s.Booked {
			status = "booked"
		}
		if _, err := fmt.Fprintf(w, "#%d provider %d %s %s\n",
			s.ID, s.ProviderID,
			timefmt.FormatTimeRange(s.Start.In(opts.loc), s.End.In(opts.loc)),
			status,
		); err != nil {
			return err
		}
	}
	return nil
}
