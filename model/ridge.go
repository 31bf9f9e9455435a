package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/tournox/tournox/data"
	"github.com/tournox/tournox/internal/parallel"
	"github.com/tournox/tournox/pkg/errors"
)

// parallelThreshold is the row count below which the fill and predict
// loops run sequentially.
const parallelThreshold = 1000

// Ridge is L2-regularized linear regression solved with the normal
// equations, w = (X^T X + alpha I)^(-1) X^T y. The intercept column is
// not penalized.
type Ridge struct {
	Alpha float64
}

// NewRidge returns a ridge model with the given regularization
// strength. Alpha zero degenerates to plain least squares.
func NewRidge(alpha float64) Ridge { return Ridge{Alpha: alpha} }

func (m Ridge) Name() string { return fmt.Sprintf("ridge_%g", m.Alpha) }

func (m Ridge) FitPredict(fit, predict *data.Data) ([]string, []float64, error) {
	x, y, ncols, err := fitRows("Ridge.FitPredict", fit)
	if err != nil {
		return nil, nil, err
	}
	if m.Alpha < 0 {
		return nil, nil, errors.NewValueError("Ridge.FitPredict", "alpha must be non-negative")
	}
	n := len(y)

	// X に切片項の 1 の列を前置する
	xi := mat.NewDense(n, ncols+1, nil)
	parallel.RowsWithThreshold(n, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			xi.Set(i, 0, 1.0)
			for k := 0; k < ncols; k++ {
				xi.Set(i, k+1, x[i*ncols+k])
			}
		}
	})

	var xt mat.Dense
	xt.CloneFrom(xi.T())

	var xtx mat.Dense
	xtx.Mul(&xt, xi)
	for k := 1; k <= ncols; k++ {
		xtx.Set(k, k, xtx.At(k, k)+m.Alpha)
	}

	var inv mat.Dense
	if err := inv.Inverse(&xtx); err != nil {
		return nil, nil, errors.Wrap(err, "Ridge.FitPredict: singular normal equations")
	}

	var xty mat.VecDense
	xty.MulVec(&xt, mat.NewVecDense(n, y))

	w := mat.NewVecDense(ncols+1, nil)
	w.MulVec(&inv, &xty)

	yhat := make([]float64, predict.Len())
	if predict.Len() > 0 {
		px := predict.X()
		parallel.RowsWithThreshold(len(yhat), parallelThreshold, func(start, end int) {
			for i := start; i < end; i++ {
				v := w.AtVec(0)
				for k := 0; k < ncols; k++ {
					v += px.At(i, k) * w.AtVec(k+1)
				}
				yhat[i] = v
			}
		})
	}
	return predict.IDs(), yhat, nil
}

// RidgePCA projects the features onto their leading principal
// components, fit on the training slice only, before running ridge.
type RidgePCA struct {
	Alpha   float64
	NFactor float64 // fraction (0,1] or absolute count of components
}

func NewRidgePCA(alpha, nfactor float64) RidgePCA {
	return RidgePCA{Alpha: alpha, NFactor: nfactor}
}

func (m RidgePCA) Name() string { return fmt.Sprintf("ridgepca_%g_%g", m.Alpha, m.NFactor) }

func (m RidgePCA) FitPredict(fit, predict *data.Data) ([]string, []float64, error) {
	fitP, err := fit.PCA(m.NFactor, fit)
	if err != nil {
		return nil, nil, err
	}
	predictP, err := predict.PCA(m.NFactor, fit)
	if err != nil {
		return nil, nil, err
	}
	return Ridge{Alpha: m.Alpha}.FitPredict(fitP, predictP)
}
