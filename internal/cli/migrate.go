package cli

import (
	"github.com/spf13/cobra"

	"channel-service/internal/db"
)

// NewMigrateCommand applies the schema and exits.
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := db.Connect(opts.viper.GetString("DB_DSN"))
			if err != nil {
				return err
			}
			return database.Close()
		},
	}
}
