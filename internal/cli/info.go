package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tournox/tournox/store"
)

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Summarize the rows held by the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireStore(rootOpts); err != nil {
				return err
			}
			s, err := store.Open(rootOpts.Store)
			if err != nil {
				return err
			}
			defer s.Close()
			d, err := s.LoadData(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), d)
			return nil
		},
	}
}

// NewHashCommand creates the hash command.
func NewHashCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hash",
		Short: "Print content hashes of the stored rows and ledger",
		Long: `Hash prints a content hash of the stored rows and of the stored
prediction ledger. Equal hashes mean equal content, so two stores can
be compared without dumping them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireStore(rootOpts); err != nil {
				return err
			}
			s, err := store.Open(rootOpts.Store)
			if err != nil {
				return err
			}
			defer s.Close()
			d, err := s.LoadData(cmd.Context())
			if err != nil {
				return err
			}
			p, err := s.LoadPrediction(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rows        %016x\n", d.Hash())
			fmt.Fprintf(cmd.OutOrStdout(), "predictions %016x\n", p.Hash())
			return nil
		},
	}
}
