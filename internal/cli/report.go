package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tournox/tournox/predict"
	"github.com/tournox/tournox/store"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	SortBy string
	Plot   string
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report [submission.csv...]",
		Short: "Score prediction ledgers against the stored rows",
		Long: `Report loads the ledger from the store, merges in any submission CSV
files given as arguments and prints per-model performance against the
stored ground truth.

Example:
  tournox report --store ./tournox.db
  tournox report --store ./tournox.db --sort-by sharpe --plot perf.png mysub.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, opts, args)
		},
	}
	cmd.Flags().StringVar(&opts.SortBy, "sort-by", "logloss", "metric to sort by (logloss, corr, rankcorr, acc, auc, ystd, sharpe, consis)")
	cmd.Flags().StringVar(&opts.Plot, "plot", "", "write a per-era correlation plot to this file")
	return cmd
}

func runReport(cmd *cobra.Command, opts *ReportOptions, csvPaths []string) error {
	if err := requireStore(opts.RootOptions); err != nil {
		return err
	}
	s, err := store.Open(opts.Store)
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
	for _, path := range csvPaths {
		loaded, err := predict.LoadCSV(path)
		if err != nil {
			return err
		}
		p, err = p.Merge(loaded)
		if err != nil {
			return err
		}
	}
	t, err := p.Performance(d, opts.SortBy)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), t)
	if opts.Plot != "" {
		if err := p.PerformancePlot(d, opts.Plot); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", opts.Plot)
	}
	return nil
}
