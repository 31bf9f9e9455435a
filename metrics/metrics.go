// Package metrics implements the evaluation metrics used by prediction
// reporting: correlation, rank correlation, accuracy, AUC, log loss,
// and the per-era aggregates (sharpe, consistency).
//
// All metrics silently drop pairs where either value is NaN and return
// NaN when no valid pairs remain; shape mismatches are errors.
package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/tournox/tournox/pkg/errors"
)

// dropNaN returns the pairs where both values are defined.
func dropNaN(yTrue, yPred []float64) ([]float64, []float64) {
	t := make([]float64, 0, len(yTrue))
	p := make([]float64, 0, len(yPred))
	for i := range yTrue {
		if math.IsNaN(yTrue[i]) || math.IsNaN(yPred[i]) {
			continue
		}
		t = append(t, yTrue[i])
		p = append(p, yPred[i])
	}
	return t, p
}

func checkLen(op string, yTrue, yPred []float64) error {
	if len(yTrue) == 0 {
		return errors.NewValueError(op, "empty input")
	}
	if len(yPred) != len(yTrue) {
		return errors.NewShapeError(op, len(yTrue), len(yPred), 0)
	}
	return nil
}

// Corr computes the Pearson correlation between targets and predictions.
func Corr(yTrue, yPred []float64) (float64, error) {
	if err := checkLen("Corr", yTrue, yPred); err != nil {
		return 0, err
	}
	t, p := dropNaN(yTrue, yPred)
	if len(t) < 2 {
		return math.NaN(), nil
	}
	return stat.Correlation(t, p, nil), nil
}

// ranks returns average ranks (ties share the mean rank).
func ranks(v []float64) []float64 {
	n := len(v)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return v[idx[a]] < v[idx[b]] })
	out := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && v[idx[j+1]] == v[idx[i]] {
			j++
		}
		r := float64(i+j) / 2
		for k := i; k <= j; k++ {
			out[idx[k]] = r
		}
		i = j + 1
	}
	return out
}

// RankCorr computes the Spearman rank correlation.
func RankCorr(yTrue, yPred []float64) (float64, error) {
	if err := checkLen("RankCorr", yTrue, yPred); err != nil {
		return 0, err
	}
	t, p := dropNaN(yTrue, yPred)
	if len(t) < 2 {
		return math.NaN(), nil
	}
	return stat.Correlation(ranks(t), ranks(p), nil), nil
}

// Accuracy computes the fraction of rows where the thresholded
// prediction (cutoff 0.5) matches the binary target.
func Accuracy(yTrue, yPred []float64) (float64, error) {
	if err := checkLen("Accuracy", yTrue, yPred); err != nil {
		return 0, err
	}
	t, p := dropNaN(yTrue, yPred)
	if len(t) == 0 {
		return math.NaN(), nil
	}
	hits := 0
	for i := range t {
		if (p[i] > 0.5) == (t[i] > 0.5) {
			hits++
		}
	}
	return float64(hits) / float64(len(t)), nil
}

// AUC computes the area under the ROC curve with the rank statistic
// (equivalent to the Mann-Whitney U normalization).
func AUC(yTrue, yPred []float64) (float64, error) {
	if err := checkLen("AUC", yTrue, yPred); err != nil {
		return 0, err
	}
	t, p := dropNaN(yTrue, yPred)
	if len(t) == 0 {
		return math.NaN(), nil
	}
	r := ranks(p)
	var posRankSum float64
	var npos, nneg int
	for i := range t {
		if t[i] > 0.5 {
			npos++
			posRankSum += r[i] + 1 // ranks() is zero-based
		} else {
			nneg++
		}
	}
	if npos == 0 || nneg == 0 {
		return math.NaN(), nil
	}
	u := posRankSum - float64(npos)*float64(npos+1)/2
	return u / (float64(npos) * float64(nneg)), nil
}

// LogLoss computes the binary cross entropy with predictions clipped
// away from 0 and 1.
func LogLoss(yTrue, yPred []float64) (float64, error) {
	if err := checkLen("LogLoss", yTrue, yPred); err != nil {
		return 0, err
	}
	t, p := dropNaN(yTrue, yPred)
	if len(t) == 0 {
		return math.NaN(), nil
	}
	const eps = 1e-15
	var sum float64
	for i := range t {
		v := math.Min(math.Max(p[i], eps), 1-eps)
		if t[i] > 0.5 {
			sum -= math.Log(v)
		} else {
			sum -= math.Log(1 - v)
		}
	}
	return sum / float64(len(t)), nil
}

// YStd is the standard deviation of the predictions, ignoring NaNs.
func YStd(yPred []float64) float64 {
	v := make([]float64, 0, len(yPred))
	for _, p := range yPred {
		if !math.IsNaN(p) {
			v = append(v, p)
		}
	}
	if len(v) < 2 {
		return math.NaN()
	}
	return stat.StdDev(v, nil)
}

// Sharpe is the mean over standard deviation of a per-era metric
// series, NaN entries excluded.
func Sharpe(perEra []float64) float64 {
	v := make([]float64, 0, len(perEra))
	for _, e := range perEra {
		if !math.IsNaN(e) {
			v = append(v, e)
		}
	}
	if len(v) < 2 {
		return math.NaN()
	}
	sd := stat.StdDev(v, nil)
	if sd == 0 {
		return math.NaN()
	}
	return stat.Mean(v, nil) / sd
}

// LnTwo is the log loss of an uninformative coin-flip prediction; an
// era beats chance when its log loss is below this.
var LnTwo = math.Log(2)

// Consistency is the fraction of eras whose per-era log loss beats
// chance, NaN entries excluded.
func Consistency(perEraLogLoss []float64) float64 {
	n, below := 0, 0
	for _, e := range perEraLogLoss {
		if math.IsNaN(e) {
			continue
		}
		n++
		if e < LnTwo {
			below++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return float64(below) / float64(n)
}
