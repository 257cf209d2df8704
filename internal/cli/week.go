package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Freeeeeet/slot_booking/internal/render"
	"github.com/Freeeeeet/slot_booking/internal/repository"
	"github.com/Freeeeeet/slot_booking/internal/timefmt"
)

type weekOptions struct {
	providerID int64
	date       string
	out        string
}

func newWeekCommand(rootOpts *RootOptions, open OpenFunc) *cobra.Command {
	opts := &weekOptions{}

	cmd := &cobra.Command{
		Use:   "week",
		Short: "Render a provider's week as a PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.providerID <= 0 {
				return fmt.Errorf("--provider is required")
			}
			now := time.Now().In(rootOpts.loc)
			day := now
			if opts.date != "" {
				var err error
				if day, _, err = timefmt.ParseInstant(opts.date, rootOpts.loc); err != nil {
					return fmt.Errorf("--date: %w", err)
				}
			}

			return withStore(cmd.Context(), open, func(store repository.Store) error {
				provider, err := store.Providers().GetByID(cmd.Context(), opts.providerID)
				if err != nil {
					return err
				}
				if provider == nil {
					return fmt.Errorf("provider %d not found", opts.providerID)
				}

				from := render.WeekStart(day.In(rootOpts.loc))
				slots, err := store.Slots().List(cmd.Context(), &provider.ID, from, from.AddDate(0, 0, 7).Add(-time.Nanosecond))
				if err != nil {
					return err
				}

				image, err := render.Week(from, slots, now, rootOpts.loc)
				if err != nil {
					return fmt.Errorf("render week: %w", err)
				}
				if err := os.WriteFile(opts.out, image, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", opts.out, err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Week of %s for provider %d: %d slots, saved to %s\n",
					from.Format(timefmt.DateLayout), provider.ID, len(slots), opts.out)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&opts.providerID, "provider", 0, "provider id")
	cmd.Flags().StringVar(&opts.date, "date", "", "any day of the week to render (default today)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "week.png", "output file")

	return cmd
}
