// Package cli implements the tournox command line interface.
package cli

import (
	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"

	"github.com/tournox/tournox/pkg/errors"
	"github.com/tournox/tournox/pkg/log"
)

// RootOptions holds flags shared by every command. Environment
// variables provide the defaults, flags override them.
type RootOptions struct {
	Store    string `env:"TOURNOX_STORE" envDefault:"tournox.db"`
	LogLevel string `env:"TOURNOX_LOG_LEVEL" envDefault:"info"`
}

// NewRootCommand creates the tournox root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	if err := env.Parse(opts); err != nil {
		// 環境変数が壊れている場合はデフォルトにフォールバックする
		*opts = RootOptions{Store: "tournox.db", LogLevel: "info"}
	}

	cmd := &cobra.Command{
		Use:   "tournox",
		Short: "Manage tournament data, splits and prediction ledgers",
		Long: `Tournox loads tabular tournament datasets, walks models through
era-aware splits and scores the resulting prediction ledgers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log.SetupLogger(opts.LogLevel)
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.Store, "store", opts.Store, "path to the SQLite store")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "log level (debug, info, warn, error)")

	cmd.AddCommand(
		NewConvertCommand(opts),
		NewInfoCommand(opts),
		NewHashCommand(opts),
		NewReportCommand(opts),
	)
	return cmd
}

func requireStore(opts *RootOptions) error {
	if opts.Store == "" {
		return errors.NewValueError("cli", "a store path is required (--store or TOURNOX_STORE)")
	}
	return nil
}
