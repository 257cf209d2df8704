// Package cli is the operator command line for the booking storage.
package cli

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/Freeeeeet/slot_booking/internal/repository"
)

// OpenFunc opens the configured store with its schema migrated.
type OpenFunc func(ctx context.Context) (repository.Store, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format   string // "json" | "text"
	TimeZone string

	loc *time.Location
}

var validFormats = []string{"text", "json"}

// NewRootCommand creates the bookingctl root command.
func NewRootCommand(open OpenFunc) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "bookingctl",
		Short: "Operate the slot booking storage",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			loc, err := time.LoadLocation(opts.TimeZone)
			if err != nil {
				return fmt.Errorf("invalid time zone %q: %w", opts.TimeZone, err)
			}
			opts.loc = loc
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.TimeZone, "tz", "UTC", "display time zone")

	cmd.AddCommand(newMigrateCommand(open))
	cmd.AddCommand(newSlotsCommand(opts, open))
	cmd.AddCommand(newWeekCommand(opts, open))

	return cmd
}

// withStore opens the store for one command run.
func withStore(ctx context.Context, open OpenFunc, fn func(repository.Store) error) error {
	store, err := open(ctx)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()
	return fn(store)
}
