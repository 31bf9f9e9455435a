package data

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/tournox/tournox/internal/parallel"
)

// RegionComparison summarizes how closely one region of a dataset
// matches the same region of another dataset.
type RegionComparison struct {
	Region      Region
	XDistance   float64 // mean distance to the nearest-neighbor row
	YAccuracy   float64 // fraction of rows whose NN shares the target
	EraAccuracy float64 // fraction of rows whose NN shares the era
	RowDelta    int     // rows in first minus rows in second
}

// Compare relates two datasets region by region, e.g. two weekly
// downloads. Each row of the second dataset is matched to its nearest
// neighbor (by feature distance) in the first; the summary reports
// the mean distance and how often target and era agree. A region with
// no rows on either side yields NaN metrics rather than an error.
func Compare(d1, d2 *Data, regions []Region) []RegionComparison {
	if regions == nil {
		regions = []Region{Train, Validation, Test, Live}
	}
	out := make([]RegionComparison, 0, len(regions))
	for _, region := range regions {
		s1 := d1.RegionsIn(region)
		s2 := d2.RegionsIn(region)
		rc := RegionComparison{
			Region:      region,
			XDistance:   math.NaN(),
			YAccuracy:   math.NaN(),
			EraAccuracy: math.NaN(),
			RowDelta:    s1.Len() - s2.Len(),
		}
		if s1.Len() == 0 || s2.Len() == 0 || s1.ncols != s2.ncols {
			out = append(out, rc)
			continue
		}
		c := s1.ncols
		nearest := make([]int, s2.Len())
		dists := make([]float64, s2.Len())
		parallel.Rows(s2.Len(), func(start, end int) {
			for j := start; j < end; j++ {
				rowj := s2.xdata[j*c : (j+1)*c]
				best := 0
				bestDist := math.Inf(1)
				for i := 0; i < s1.Len(); i++ {
					dist := floats.Distance(s1.xdata[i*c:(i+1)*c], rowj, 2)
					if dist < bestDist {
						bestDist = dist
						best = i
					}
				}
				nearest[j] = best
				dists[j] = bestDist
			}
		})
		var distSum float64
		eraHits := 0
		yHits := 0
		yDefined := true
		for j, best := range nearest {
			distSum += dists[j]
			if s1.eras[best] == s2.eras[j] {
				eraHits++
			}
			if math.IsNaN(s1.y[best]) || math.IsNaN(s2.y[j]) {
				yDefined = false
			} else if s1.y[best] == s2.y[j] {
				yHits++
			}
		}
		n := float64(s2.Len())
		rc.XDistance = distSum / n
		rc.EraAccuracy = float64(eraHits) / n
		if yDefined {
			rc.YAccuracy = float64(yHits) / n
		}
		out = append(out, rc)
	}
	return out
}
