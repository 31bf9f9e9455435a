// Package data implements the tagged Row Store for tournament datasets.
//
// A Data value holds rows keyed by a unique string id, each tagged with
// an era and a region, carrying a fixed-width feature vector and a
// nullable target (NaN marks a missing target). Data is immutable after
// construction: every transform returns a new value.
package data

import (
	"encoding/binary"
	"fmt"
	"hash/maphash"
	"iter"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/tournox/tournox/pkg/errors"
)

// Data is the Row Store: era/region tagged rows with features and target.
type Data struct {
	ids     []string
	eras    []Era
	regions []Region
	xdata   []float64 // row-major, len(ids) x ncols
	ncols   int
	y       []float64 // NaN means missing
}

// New constructs a Data from parallel slices and a feature matrix.
// All slices and the matrix must agree on row count, ids must be
// unique, and every era/region must be a member of its enumeration.
func New(ids []string, eras []Era, regions []Region, x *mat.Dense, y []float64) (*Data, error) {
	n := len(ids)
	var xdata []float64
	ncols := 0
	if x != nil {
		r, c := x.Dims()
		if r != n {
			return nil, errors.NewShapeError("data.New", n, r, 0)
		}
		ncols = c
		xdata = make([]float64, n*c)
		for i := 0; i < r; i++ {
			copy(xdata[i*c:(i+1)*c], x.RawRowView(i))
		}
	} else if n > 0 {
		return nil, errors.NewShapeError("data.New", n, 0, 0)
	}
	return newChecked(ids, eras, regions, xdata, ncols, y)
}

func newChecked(ids []string, eras []Era, regions []Region, xdata []float64, ncols int, y []float64) (*Data, error) {
	n := len(ids)
	if len(eras) != n {
		return nil, errors.NewShapeError("data.New", n, len(eras), 0)
	}
	if len(regions) != n {
		return nil, errors.NewShapeError("data.New", n, len(regions), 0)
	}
	if len(y) != n {
		return nil, errors.NewShapeError("data.New", n, len(y), 0)
	}
	if ncols > 0 && len(xdata) != n*ncols {
		return nil, errors.NewShapeError("data.New", n*ncols, len(xdata), 0)
	}
	seen := make(map[string]struct{}, n)
	var dup []string
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			dup = append(dup, id)
		}
		seen[id] = struct{}{}
	}
	if len(dup) > 0 {
		return nil, errors.NewIdentityCollisionError("data.New", dup)
	}
	for i, e := range eras {
		if !e.Valid() {
			return nil, errors.NewValueError("data.New", fmt.Sprintf("invalid era %d at row %d", int(e), i))
		}
	}
	for i, rg := range regions {
		if !rg.Valid() {
			return nil, errors.NewValueError("data.New", fmt.Sprintf("invalid region %d at row %d", int(rg), i))
		}
	}
	return &Data{ids: ids, eras: eras, regions: regions, xdata: xdata, ncols: ncols, y: y}, nil
}

// at reads one feature value.
func (d *Data) at(i, k int) float64 {
	return d.xdata[i*d.ncols+k]
}

// Len returns the number of rows.
func (d *Data) Len() int {
	return len(d.ids)
}

// IDs returns a copy of the row ids.
func (d *Data) IDs() []string {
	out := make([]string, len(d.ids))
	copy(out, d.ids)
	return out
}

// Eras returns a copy of the era tags.
func (d *Data) Eras() []Era {
	out := make([]Era, len(d.eras))
	copy(out, d.eras)
	return out
}

// EraStrings returns the era tags as canonical names.
func (d *Data) EraStrings() []string {
	out := make([]string, len(d.eras))
	for i, e := range d.eras {
		out[i] = e.String()
	}
	return out
}

// Regions returns a copy of the region tags.
func (d *Data) Regions() []Region {
	out := make([]Region, len(d.regions))
	copy(out, d.regions)
	return out
}

// RegionStrings returns the region tags as canonical names.
func (d *Data) RegionStrings() []string {
	out := make([]string, len(d.regions))
	for i, r := range d.regions {
		out[i] = r.String()
	}
	return out
}

// UniqueEras returns the distinct eras in first-appearance order.
func (d *Data) UniqueEras() []Era {
	seen := make(map[Era]struct{})
	var out []Era
	for _, e := range d.eras {
		if _, ok := seen[e]; !ok {
			seen[e] = struct{}{}
			out = append(out, e)
		}
	}
	return out
}

// UniqueRegions returns the distinct regions in first-appearance order.
func (d *Data) UniqueRegions() []Region {
	seen := make(map[Region]struct{})
	var out []Region
	for _, r := range d.regions {
		if _, ok := seen[r]; !ok {
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}

// X returns the feature matrix as a view over the store's backing
// memory; callers must not mutate it. Nil when the store has no rows
// or no feature columns. Use XNew to derive a store with different
// features.
func (d *Data) X() *mat.Dense {
	if len(d.ids) == 0 || d.ncols == 0 {
		return nil
	}
	return mat.NewDense(len(d.ids), d.ncols, d.xdata)
}

// Y returns the target vector. The returned slice aliases the store's
// backing memory; callers must not mutate it. Missing targets are NaN.
func (d *Data) Y() []float64 {
	return d.y
}

// XShape returns (rows, features) without materializing the matrix.
func (d *Data) XShape() (int, int) {
	return len(d.ids), d.ncols
}

// EraIter yields each distinct era (first-appearance order) with a
// boolean mask selecting its rows. The sequence is recomputed on every
// call, so it is restartable and consumes no cursor state.
func (d *Data) EraIter() iter.Seq2[Era, []bool] {
	return func(yield func(Era, []bool) bool) {
		for _, e := range d.UniqueEras() {
			mask := make([]bool, len(d.eras))
			for i, ei := range d.eras {
				mask[i] = ei == e
			}
			if !yield(e, mask) {
				return
			}
		}
	}
}

// RegionIter yields each distinct region with a boolean row mask.
// Restartable, like EraIter.
func (d *Data) RegionIter() iter.Seq2[Region, []bool] {
	return func(yield func(Region, []bool) bool) {
		for _, r := range d.UniqueRegions() {
			mask := make([]bool, len(d.regions))
			for i, ri := range d.regions {
				mask[i] = ri == r
			}
			if !yield(r, mask) {
				return
			}
		}
	}
}

// take builds a new Data from the rows at the given positions.
// Duplicate positions are the caller's responsibility.
func (d *Data) take(idx []int) *Data {
	n := len(idx)
	c := d.ncols
	ids := make([]string, n)
	eras := make([]Era, n)
	regions := make([]Region, n)
	y := make([]float64, n)
	xdata := make([]float64, n*c)
	for i, j := range idx {
		ids[i] = d.ids[j]
		eras[i] = d.eras[j]
		regions[i] = d.regions[j]
		y[i] = d.y[j]
		copy(xdata[i*c:(i+1)*c], d.xdata[j*c:(j+1)*c])
	}
	return &Data{ids: ids, eras: eras, regions: regions, xdata: xdata, ncols: c, y: y}
}

// Filter returns a new store with only the rows where mask is true.
func (d *Data) Filter(mask []bool) (*Data, error) {
	if len(mask) != len(d.ids) {
		return nil, errors.NewShapeError("Data.Filter", len(d.ids), len(mask), 0)
	}
	var idx []int
	for i, keep := range mask {
		if keep {
			idx = append(idx, i)
		}
	}
	return d.take(idx), nil
}

// ErasIn returns the rows whose era is in the given set.
func (d *Data) ErasIn(eras ...Era) *Data {
	in := make(map[Era]struct{}, len(eras))
	for _, e := range eras {
		in[e] = struct{}{}
	}
	var idx []int
	for i, e := range d.eras {
		if _, ok := in[e]; ok {
			idx = append(idx, i)
		}
	}
	return d.take(idx)
}

// ErasNotIn returns the rows whose era is not in the given set.
func (d *Data) ErasNotIn(eras ...Era) *Data {
	in := make(map[Era]struct{}, len(eras))
	for _, e := range eras {
		in[e] = struct{}{}
	}
	var idx []int
	for i, e := range d.eras {
		if _, ok := in[e]; !ok {
			idx = append(idx, i)
		}
	}
	return d.take(idx)
}

// RegionsIn returns the rows whose region is in the given set.
func (d *Data) RegionsIn(regions ...Region) *Data {
	in := make(map[Region]struct{}, len(regions))
	for _, r := range regions {
		in[r] = struct{}{}
	}
	var idx []int
	for i, r := range d.regions {
		if _, ok := in[r]; ok {
			idx = append(idx, i)
		}
	}
	return d.take(idx)
}

// RegionsNotIn returns the rows whose region is not in the given set.
func (d *Data) RegionsNotIn(regions ...Region) *Data {
	in := make(map[Region]struct{}, len(regions))
	for _, r := range regions {
		in[r] = struct{}{}
	}
	var idx []int
	for i, r := range d.regions {
		if _, ok := in[r]; !ok {
			idx = append(idx, i)
		}
	}
	return d.take(idx)
}

// Get selects rows by a string label: an era name ("era12", "eraX"),
// a region name, or "tournament" for all non-train regions. Any other
// label is an IndexKindError.
func (d *Data) Get(label string) (*Data, error) {
	if strings.HasPrefix(label, "era") {
		if len(label) < 4 {
			return nil, errors.NewIndexKindError("Data.Get", label)
		}
		era, err := ParseEra(label)
		if err != nil {
			return nil, errors.NewIndexKindError("Data.Get", label)
		}
		return d.ErasIn(era), nil
	}
	if label == "tournament" {
		return d.RegionsIn(TournamentRegions...), nil
	}
	if region, err := ParseRegion(label); err == nil {
		return d.RegionsIn(region), nil
	}
	return nil, errors.NewIndexKindError("Data.Get", label)
}

// Loc returns the rows with the given ids, in the requested order.
// Duplicated ids yield duplicated rows. A missing id is a ValueError.
func (d *Data) Loc(ids []string) (*Data, error) {
	pos := make(map[string]int, len(d.ids))
	for i, id := range d.ids {
		pos[id] = i
	}
	idx := make([]int, len(ids))
	for i, id := range ids {
		j, ok := pos[id]
		if !ok {
			return nil, errors.NewValueError("Data.Loc", "id not found: "+id)
		}
		idx[i] = j
	}
	return d.take(idx), nil
}

// Concat joins two stores. Any id present in both is an
// IdentityCollisionError; differing feature widths are a ShapeError.
func (d *Data) Concat(other *Data) (*Data, error) {
	return ConcatData(d, other)
}

// ConcatData concatenates stores in order. Ids must not overlap.
func ConcatData(datas ...*Data) (*Data, error) {
	if len(datas) == 0 {
		return nil, errors.NewValueError("data.ConcatData", "nothing to concatenate")
	}
	cols := datas[0].ncols
	total := 0
	seen := make(map[string]struct{})
	var overlap []string
	for _, d := range datas {
		if d.ncols != cols {
			return nil, errors.NewShapeError("data.ConcatData", cols, d.ncols, 1)
		}
		for _, id := range d.ids {
			if _, ok := seen[id]; ok {
				overlap = append(overlap, id)
			}
			seen[id] = struct{}{}
		}
		total += d.Len()
	}
	if len(overlap) > 0 {
		return nil, errors.NewIdentityCollisionError("data.ConcatData", overlap)
	}
	ids := make([]string, 0, total)
	eras := make([]Era, 0, total)
	regions := make([]Region, 0, total)
	y := make([]float64, 0, total)
	xdata := make([]float64, 0, total*cols)
	for _, d := range datas {
		ids = append(ids, d.ids...)
		eras = append(eras, d.eras...)
		regions = append(regions, d.regions...)
		y = append(y, d.y...)
		xdata = append(xdata, d.xdata...)
	}
	return &Data{ids: ids, eras: eras, regions: regions, xdata: xdata, ncols: cols, y: y}, nil
}

// Equal reports row-order-sensitive equality of two stores.
// Missing targets compare equal to each other.
func (d *Data) Equal(other *Data) bool {
	if other == nil || d.Len() != other.Len() || d.ncols != other.ncols {
		return false
	}
	for i := range d.ids {
		if d.ids[i] != other.ids[i] || d.eras[i] != other.eras[i] || d.regions[i] != other.regions[i] {
			return false
		}
		if d.y[i] != other.y[i] && !(math.IsNaN(d.y[i]) && math.IsNaN(other.y[i])) {
			return false
		}
	}
	for i, v := range d.xdata {
		if v != other.xdata[i] {
			return false
		}
	}
	return true
}

var hashSeed = maphash.MakeSeed()

// Hash returns a digest of the row content. The digest is stable
// within one process only; use it for cheap equality and debugging,
// not for persistence.
func (d *Data) Hash() uint64 {
	var h maphash.Hash
	h.SetSeed(hashSeed)
	var buf [8]byte
	for i := range d.ids {
		h.WriteString(d.ids[i])
		binary.LittleEndian.PutUint64(buf[:], uint64(d.eras[i]))
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(d.regions[i]))
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(d.y[i]))
		h.Write(buf[:])
	}
	for _, v := range d.xdata {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	return h.Sum64()
}

// String renders a short multi-line summary of the store.
func (d *Data) String() string {
	if d.Len() == 0 {
		return ""
	}
	var b strings.Builder
	regions := d.UniqueRegions()
	names := make([]string, len(regions))
	for i, r := range regions {
		names[i] = r.String()
	}
	fmt.Fprintf(&b, "%-10s%s\n", "region", strings.Join(names, ", "))
	fmt.Fprintf(&b, "%-10s%d\n", "rows", d.Len())
	eras := d.UniqueEras()
	fmt.Fprintf(&b, "%-10s%d, [%s, %s]\n", "era", len(eras), eras[0], eras[len(eras)-1])
	xmin, xmax := math.Inf(1), math.Inf(-1)
	var xsum float64
	for _, v := range d.xdata {
		xmin = math.Min(xmin, v)
		xmax = math.Max(xmax, v)
		xsum += v
	}
	xmean := math.NaN()
	if len(d.xdata) > 0 {
		xmean = xsum / float64(len(d.xdata))
	}
	fmt.Fprintf(&b, "%-10s%d, min %.4f, mean %.4f, max %.4f\n", "x", d.ncols, xmin, xmean, xmax)
	var ysum float64
	var missing, present int
	for _, v := range d.y {
		if math.IsNaN(v) {
			missing++
		} else {
			ysum += v
			present++
		}
	}
	ymean := math.NaN()
	if present > 0 {
		ymean = ysum / float64(present)
	}
	fmt.Fprintf(&b, "%-10smean %.6f, fraction missing %.4f", "y", ymean, float64(missing)/float64(d.Len()))
	return b.String()
}
