// Package cli wires the channel-service commands.
package cli

import (
	"log"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"

	"channel-service/internal/config"
)

// RootOptions holds state shared by every command.
type RootOptions struct {
	EnvFile string
	viper   *viper.Viper
}

// NewRootCommand creates the channel-service root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{viper: viper.New()}
	config.SetDefaults(opts.viper)

	cmd := &cobra.Command{
		Use:           "channel-service",
		Short:         "Realtime channel messaging service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(opts.EnvFile); err != nil {
				return err
			}
			return SetLogLevel(opts.viper.GetString("LOG_LEVEL"))
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug|info|warn|error)")
	_ = opts.viper.BindPFlag("LOG_LEVEL", cmd.PersistentFlags().Lookup("log-level"))

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSignCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

// Execute runs the root command and logs a failure.
func Execute() error {
	err := NewRootCommand().Execute()
	if err != nil {
		jww.ERROR.Printf("%v", err)
	}
	return err
}

// SetLogLevel applies a textual level to jww's stdout threshold.
func SetLogLevel(level string) error {
	var threshold jww.Threshold
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		threshold = jww.LevelDebug
		jww.SetFlags(log.LstdFlags | log.Lmicroseconds)
	case "", "info":
		threshold = jww.LevelInfo
	case "warn", "warning":
		threshold = jww.LevelWarn
	case "error":
		threshold = jww.LevelError
	default:
		return errors.Errorf("unknown log level %q", level)
	}
	jww.SetStdoutThreshold(threshold)
	jww.SetLogThreshold(threshold)
	return nil
}
