package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tournox/tournox/data"
	"github.com/tournox/tournox/store"
)

// ConvertOptions holds flags for the convert command.
type ConvertOptions struct {
	*RootOptions
	Compress bool
}

// NewConvertCommand creates the convert command.
func NewConvertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConvertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "convert <dataset.zip>",
		Short: "Convert a zipped CSV dataset into a SQLite store",
		Long: `Convert reads the training and tournament CSV files from a dataset
archive and writes every row into the SQLite store, replacing whatever
the store held before.

Example:
  tournox convert --store ./tournox.db numerai_dataset.zip
  tournox convert --store ./tournox.db --compress numerai_dataset.zip`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, opts, args[0])
		},
	}
	cmd.Flags().BoolVar(&opts.Compress, "compress", false, "zstd-compress feature rows")
	return cmd
}

func runConvert(cmd *cobra.Command, opts *ConvertOptions, zipPath string) error {
	if err := requireStore(opts.RootOptions); err != nil {
		return err
	}
	d, err := data.LoadZip(zipPath)
	if err != nil {
		return err
	}
	s, err := store.Open(opts.Store)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.SaveData(cmd.Context(), d, opts.Compress); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "saved %d rows to %s\n", d.Len(), opts.Store)
	return nil
}
