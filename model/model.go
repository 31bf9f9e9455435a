// Package model holds the built-in example models and the interface a
// model must satisfy to be driven through a splitter run.
package model

import (
	"math"

	"github.com/tournox/tournox/data"
	"github.com/tournox/tournox/pkg/errors"
)

// Model is fit on one slice of a store and asked for predictions on
// another. The returned ids must be exactly the prediction slice's
// identities, aligned index for index with yhat. Implementations must
// not look at the prediction slice's target, which the run driver
// hides anyway.
type Model interface {
	FitPredict(fit, predict *data.Data) (ids []string, yhat []float64, err error)
	Name() string
}

// fitRows extracts the feature rows of fit whose target is present.
func fitRows(op string, fit *data.Data) (x []float64, y []float64, ncols int, err error) {
	if fit.Len() == 0 {
		return nil, nil, 0, errors.NewEmptyOperationError(op)
	}
	_, ncols = fit.XShape()
	if ncols == 0 {
		return nil, nil, 0, errors.NewValueError(op, "store has no feature columns")
	}
	xm := fit.X()
	ys := fit.Y()
	for i := 0; i < fit.Len(); i++ {
		if math.IsNaN(ys[i]) {
			continue
		}
		for k := 0; k < ncols; k++ {
			x = append(x, xm.At(i, k))
		}
		y = append(y, ys[i])
	}
	if len(y) == 0 {
		return nil, nil, 0, errors.NewValueError(op, "no rows with a target to fit on")
	}
	return x, y, ncols, nil
}

// Mean predicts the mean of the training targets for every row. It is
// the baseline every real model has to beat.
type Mean struct{}

func (Mean) Name() string { return "mean" }

func (Mean) FitPredict(fit, predict *data.Data) ([]string, []float64, error) {
	_, y, _, err := fitRows("Mean.FitPredict", fit)
	if err != nil {
		return nil, nil, err
	}
	var sum float64
	for _, v := range y {
		sum += v
	}
	mean := sum / float64(len(y))
	yhat := make([]float64, predict.Len())
	for i := range yhat {
		yhat[i] = mean
	}
	return predict.IDs(), yhat, nil
}
