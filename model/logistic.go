package model

import (
	"fmt"
	"math"

	"github.com/tournox/tournox/data"
	"github.com/tournox/tournox/pkg/errors"
)

// Logistic is logistic regression trained with full-batch gradient
// descent. InverseL2 plays the role of sklearn's C parameter: smaller
// values regularize harder.
type Logistic struct {
	InverseL2    float64
	LearningRate float64
	Epochs       int
}

// NewLogistic returns a logistic model with sensible training
// defaults for feature matrices scaled to [0, 1].
func NewLogistic(inverseL2 float64) Logistic {
	return Logistic{InverseL2: inverseL2, LearningRate: 0.1, Epochs: 200}
}

func (m Logistic) Name() string { return fmt.Sprintf("logistic_%g", m.InverseL2) }

func sigmoid(z float64) float64 { return 1.0 / (1.0 + math.Exp(-z)) }

func (m Logistic) FitPredict(fit, predict *data.Data) ([]string, []float64, error) {
	x, y, ncols, err := fitRows("Logistic.FitPredict", fit)
	if err != nil {
		return nil, nil, err
	}
	if m.InverseL2 <= 0 {
		return nil, nil, errors.NewValueError("Logistic.FitPredict", "inverse L2 must be positive")
	}
	epochs := m.Epochs
	if epochs <= 0 {
		epochs = 200
	}
	lr := m.LearningRate
	if lr <= 0 {
		lr = 0.1
	}
	lambda := 1.0 / m.InverseL2
	n := len(y)

	w := make([]float64, ncols)
	var bias float64
	grad := make([]float64, ncols)
	for epoch := 0; epoch < epochs; epoch++ {
		for k := range grad {
			grad[k] = 0
		}
		var gradBias float64
		for i := 0; i < n; i++ {
			z := bias
			for k := 0; k < ncols; k++ {
				z += x[i*ncols+k] * w[k]
			}
			residual := sigmoid(z) - y[i]
			gradBias += residual
			for k := 0; k < ncols; k++ {
				grad[k] += residual * x[i*ncols+k]
			}
		}
		bias -= lr * gradBias / float64(n)
		for k := 0; k < ncols; k++ {
			w[k] -= lr * (grad[k]/float64(n) + lambda*w[k]/float64(n))
		}
	}

	yhat := make([]float64, predict.Len())
	if predict.Len() > 0 {
		px := predict.X()
		for i := range yhat {
			z := bias
			for k := 0; k < ncols; k++ {
				z += px.At(i, k) * w[k]
			}
			yhat[i] = sigmoid(z)
		}
	}
	return predict.IDs(), yhat, nil
}
