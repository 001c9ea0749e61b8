package cli

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"channel-service/internal/config"
	"channel-service/internal/identity"
)

// NewSignCommand prints the identity signature for a user id.
func NewSignCommand(opts *RootOptions) *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "sign <user-id>",
		Short: "Print the X-User-Signature value for a user id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				keys := config.SigningKeys(opts.viper)
				if len(keys) == 0 {
					return errors.New("no signing key: set SIGNING_KEYS or --key")
				}
				key = keys[0]
			}
			fmt.Fprintln(cmd.OutOrStdout(), identity.Sign(args[0], key))
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "signing key (defaults to the first of SIGNING_KEYS)")
	return cmd
}
