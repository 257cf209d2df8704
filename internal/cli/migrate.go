package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Freeeeeet/slot_booking/internal/repository"
)

func newMigrateCommand(open OpenFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// миграции применяются при открытии
			return withStore(cmd.Context(), open, func(repository.Store) error {
				fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
				return nil
			})
		},
	}
}
