package tournox

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/tournox/tournox/data"
	"github.com/tournox/tournox/model"
	"github.com/tournox/tournox/pkg/errors"
	"github.com/tournox/tournox/pkg/log"
	"github.com/tournox/tournox/predict"
	"github.com/tournox/tournox/split"
)

// Verbosity levels for the run drivers.
const (
	// Silent produces no output beyond structured logs at error level.
	Silent = 0
	// Final prints a summary table once the run completes.
	Final = 1
	// PerFold additionally prints an interim report after every
	// fit/predict pair.
	PerFold = 2
	// Debug additionally prints the data slices handed to the model.
	Debug = 3
)

// Run walks a model through every fit/predict pair of a splitter and
// collects the output in a single-column prediction ledger. The
// prediction slice's targets are hidden before the model sees them.
// Any model or merge error aborts the run immediately.
func Run(m model.Model, s split.Splitter, name string, verbosity int) (*predict.Prediction, error) {
	if name == "" {
		name = m.Name()
	}
	runID := uuid.NewString()
	logger := slog.Default().With(
		slog.String(log.RunIDKey, runID),
		slog.String(log.ModelNameKey, name),
		slog.String(log.SplitterKey, fmt.Sprint(s)),
	)
	logger.Info("run started")
	start := time.Now()

	p := predict.NewPrediction()
	var scored *data.Data
	s.Reset()
	fold := 0
	for {
		dFit, dPredict, ok := s.Next()
		if !ok {
			break
		}
		if verbosity >= Debug {
			fmt.Fprintf(os.Stdout, "fold %d\nfit:\n%s\npredict:\n%s\n", fold, dFit, dPredict)
		}
		foldStart := time.Now()
		ids, yhat, err := m.FitPredict(dFit, dPredict.YToNaN())
		if err != nil {
			logger.Error("model failed", slog.Int(log.FoldKey, fold), log.ErrAttr(err))
			return nil, errors.Wrapf(err, "run %s: fold %d", name, fold)
		}
		if len(ids) != dPredict.Len() || len(yhat) != dPredict.Len() {
			err := errors.NewShapeError("Run", dPredict.Len(), len(yhat), 0)
			logger.Error("model returned wrong number of rows", slog.Int(log.FoldKey, fold), log.ErrAttr(err))
			return nil, err
		}
		p, err = p.MergeArrays(ids, yhat, name)
		if err != nil {
			return nil, errors.Wrapf(err, "run %s: fold %d", name, fold)
		}
		logger.Info("fold done",
			slog.Int(log.FoldKey, fold),
			slog.Int(log.RowsKey, dPredict.Len()),
			slog.Int64(log.DurationMsKey, time.Since(foldStart).Milliseconds()))
		if verbosity >= PerFold {
			held := dPredict.RegionsNotIn(data.Test, data.Live)
			switch {
			case scored == nil || scored.Len() == 0:
				scored = held
			case held.Len() > 0:
				scored, err = scored.Concat(held)
				if err != nil {
					return nil, errors.Wrapf(err, "run %s: fold %d", name, fold)
				}
			}
			if scored.Len() > 0 {
				fmt.Fprint(os.Stdout, interim(p, scored, fold))
			}
		}
		fold++
	}

	logger.Info("run finished",
		slog.Int(log.RowsKey, p.Len()),
		slog.Int64(log.DurationMsKey, time.Since(start).Milliseconds()))
	return p, nil
}

// interim scores the ledger so far against every row predicted so
// far, test and live rows excluded since their targets are hidden.
func interim(p *predict.Prediction, scored *data.Data, fold int) string {
	t, err := p.Performance(scored, "")
	if err != nil {
		return ""
	}
	return fmt.Sprintf("fold %d\n%s", fold, t)
}

// Production fits on the train region and predicts every tournament
// row, the shape of a real submission run.
func Production(m model.Model, d *data.Data, name string, verbosity int) (*predict.Prediction, error) {
	p, err := Run(m, split.NewTournament(d), name, verbosity)
	if err != nil {
		return nil, err
	}
	if verbosity >= Final {
		fmt.Fprint(os.Stdout, p.Summary(d))
	}
	return p, nil
}

// Backtest runs era-aware cross-validation over the train region,
// giving an out-of-sample prediction for every train row.
func Backtest(m model.Model, d *data.Data, name string, kfold int, seed uint64, verbosity int) (*predict.Prediction, error) {
	s, err := split.NewCV(d, kfold, seed, true)
	if err != nil {
		return nil, err
	}
	p, err := Run(m, s, name, verbosity)
	if err != nil {
		return nil, err
	}
	if verbosity >= Final {
		fmt.Fprint(os.Stdout, p.Summary(d))
	}
	return p, nil
}
