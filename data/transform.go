package data

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/tournox/tournox/pkg/errors"
)

// XNew returns a copy of the store with the feature matrix replaced.
// The replacement must have the same number of rows.
func (d *Data) XNew(x *mat.Dense) (*Data, error) {
	r, c := x.Dims()
	if r != d.Len() {
		return nil, errors.NewShapeError("Data.XNew", d.Len(), r, 0)
	}
	xdata := make([]float64, r*c)
	for i := 0; i < r; i++ {
		copy(xdata[i*c:(i+1)*c], x.RawRowView(i))
	}
	out := d.Copy()
	out.xdata = xdata
	out.ncols = c
	return out, nil
}

// YToNaN returns a copy with every target replaced by the missing
// marker. The run driver applies this to predict subsets so a model
// can never see the ground truth it is asked to predict.
func (d *Data) YToNaN() *Data {
	out := d.Copy()
	for i := range out.y {
		out.y[i] = math.NaN()
	}
	return out
}

// Copy returns a deep copy of the store.
func (d *Data) Copy() *Data {
	ids := make([]string, len(d.ids))
	copy(ids, d.ids)
	eras := make([]Era, len(d.eras))
	copy(eras, d.eras)
	regions := make([]Region, len(d.regions))
	copy(regions, d.regions)
	xdata := make([]float64, len(d.xdata))
	copy(xdata, d.xdata)
	y := make([]float64, len(d.y))
	copy(y, d.y)
	return &Data{ids: ids, eras: eras, regions: regions, xdata: xdata, ncols: d.ncols, y: y}
}

// Balance returns a copy where, era by era, rows are randomly removed
// until the count of positive targets (y==1) equals the count of
// negative targets. With trainOnly the balancing is limited to eras
// that appear in the train region. Eras containing a missing target
// are left untouched. Removal is deterministic for a given seed.
func (d *Data) Balance(trainOnly bool, seed uint64) *Data {
	var eras []Era
	if trainOnly {
		eras = d.RegionsIn(Train).UniqueEras()
	} else {
		eras = d.UniqueEras()
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	remove := make(map[int]struct{})
	for _, e := range eras {
		var ones, zeros []int
		hasNaN := false
		for i, ei := range d.eras {
			if ei != e {
				continue
			}
			switch {
			case math.IsNaN(d.y[i]):
				hasNaN = true
			case d.y[i] == 1:
				ones = append(ones, i)
			default:
				zeros = append(zeros, i)
			}
		}
		if hasNaN {
			continue
		}
		var excess []int
		var k int
		switch {
		case len(ones) > len(zeros):
			excess, k = ones, len(ones)-len(zeros)
		case len(zeros) > len(ones):
			excess, k = zeros, len(zeros)-len(ones)
		default:
			continue
		}
		for _, p := range rng.Perm(len(excess))[:k] {
			remove[excess[p]] = struct{}{}
		}
	}
	if len(remove) == 0 {
		return d.Copy()
	}
	idx := make([]int, 0, d.Len()-len(remove))
	for i := range d.ids {
		if _, drop := remove[i]; !drop {
			idx = append(idx, i)
		}
	}
	return d.take(idx)
}

// Subsample randomly keeps fraction of each era's rows (seeded),
// preserving the original row order within each era, then optionally
// rebalances targets with the same seed.
func (d *Data) Subsample(fraction float64, balance bool, seed uint64) (*Data, error) {
	if fraction <= 0 || fraction > 1 {
		return nil, errors.NewValueError("Data.Subsample", "fraction must be in (0, 1]")
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	var idx []int
	for _, e := range d.UniqueEras() {
		var eraIdx []int
		for i, ei := range d.eras {
			if ei == e {
				eraIdx = append(eraIdx, i)
			}
		}
		n := int(fraction * float64(len(eraIdx)))
		picked := rng.Perm(len(eraIdx))[:n]
		sort.Ints(picked)
		for _, p := range picked {
			idx = append(idx, eraIdx[p])
		}
	}
	out := d.take(idx)
	if balance {
		out = out.Balance(false, seed)
	}
	return out, nil
}

// PCA projects the features onto principal components computed from
// fitOn (the receiver when fitOn is nil). nfactor selects components:
// zero or negative keeps all, a value below one keeps enough
// components to explain that fraction of variance, and a value of one
// or more keeps that many components.
func (d *Data) PCA(nfactor float64, fitOn *Data) (*Data, error) {
	if fitOn == nil {
		fitOn = d
	}
	if fitOn.ncols != d.ncols {
		return nil, errors.NewShapeError("Data.PCA", d.ncols, fitOn.ncols, 1)
	}
	if fitOn.Len() == 0 || d.Len() == 0 || d.ncols == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "Data.PCA")
	}
	var pc stat.PC
	if ok := pc.PrincipalComponents(fitOn.X(), nil); !ok {
		return nil, errors.NewValueError("Data.PCA", "principal component decomposition failed")
	}
	vars := pc.VarsTo(nil)
	k := d.ncols
	switch {
	case nfactor <= 0:
		// keep all
	case nfactor < 1:
		var total float64
		for _, v := range vars {
			total += v
		}
		var cum float64
		for i, v := range vars {
			cum += v
			if cum/total >= nfactor {
				k = i + 1
				break
			}
		}
	default:
		k = int(nfactor)
		if k > d.ncols {
			k = d.ncols
		}
	}
	var vec mat.Dense
	pc.VectorsTo(&vec)
	var projected mat.Dense
	projected.Mul(d.X(), vec.Slice(0, d.ncols, 0, k))
	return d.XNew(&projected)
}
