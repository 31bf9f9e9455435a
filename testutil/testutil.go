// Package testutil provides small deterministic fixtures for tests.
package testutil

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/tournox/tournox/data"
	"github.com/tournox/tournox/predict"
)

// MicroData returns a ten-row store touching every region and several
// eras. Test and live rows have no target.
func MicroData() *data.Data {
	ids := make([]string, 10)
	for i := range ids {
		ids[i] = fmt.Sprintf("index%d", i)
	}
	eras := []data.Era{1, 1, 1, 2, 2, 2, 3, 3, data.EraX, data.EraX}
	regions := []data.Region{
		data.Train, data.Train, data.Train, data.Train,
		data.Validation, data.Validation, data.Validation,
		data.Test, data.Live, data.Live,
	}
	x := mat.NewDense(10, 2, []float64{
		0.00, 0.01,
		0.10, 0.11,
		0.20, 0.21,
		0.30, 0.31,
		0.40, 0.41,
		0.50, 0.51,
		0.60, 0.61,
		0.70, 0.71,
		0.80, 0.81,
		0.90, 0.91,
	})
	y := []float64{0, 1, 0, 1, 0, 1, 0, math.NaN(), math.NaN(), math.NaN()}
	d, err := data.New(ids, eras, regions, x, y)
	if err != nil {
		panic(err)
	}
	return d
}

// MicroPrediction returns a ledger covering MicroData's identities
// with two model columns.
func MicroPrediction() *predict.Prediction {
	d := MicroData()
	ids := d.IDs()
	alpha := make([]float64, len(ids))
	beta := make([]float64, len(ids))
	for i := range ids {
		alpha[i] = 0.4 + 0.02*float64(i)
		beta[i] = 0.6 - 0.02*float64(i)
	}
	p := predict.NewPrediction()
	p, err := p.MergeArrays(ids, alpha, "alpha")
	if err != nil {
		panic(err)
	}
	p, err = p.MergeArrays(ids, beta, "beta")
	if err != nil {
		panic(err)
	}
	return p
}

// PlayData returns a seeded store with nrowsPerEra rows in each of
// nera eras, spread over all regions the way a real dataset is: early
// eras are train, then validation, then test, with the last era live.
// Targets correlate weakly with the first feature so models have
// something to find.
func PlayData(nera, nrowsPerEra, nfeatures int, seed uint64) *data.Data {
	rng := rand.New(rand.NewPCG(seed, seed))
	n := nera * nrowsPerEra
	ids := make([]string, 0, n)
	eras := make([]data.Era, 0, n)
	regions := make([]data.Region, 0, n)
	xdata := make([]float64, 0, n*nfeatures)
	y := make([]float64, 0, n)
	for e := 0; e < nera; e++ {
		era := data.Era(e + 1)
		region := data.Train
		switch {
		case e == nera-1:
			era, region = data.EraX, data.Live
		case e >= (3*nera)/4:
			region = data.Test
		case e >= nera/2:
			region = data.Validation
		}
		for i := 0; i < nrowsPerEra; i++ {
			ids = append(ids, fmt.Sprintf("id_%d_%d", e, i))
			eras = append(eras, era)
			regions = append(regions, region)
			var x0 float64
			for k := 0; k < nfeatures; k++ {
				v := rng.Float64()
				if k == 0 {
					x0 = v
				}
				xdata = append(xdata, v)
			}
			if region == data.Live {
				y = append(y, math.NaN())
				continue
			}
			if x0+0.2*rng.NormFloat64() > 0.5 {
				y = append(y, 1)
			} else {
				y = append(y, 0)
			}
		}
	}
	d, err := data.New(ids, eras, regions, mat.NewDense(n, nfeatures, xdata), y)
	if err != nil {
		panic(err)
	}
	return d
}
