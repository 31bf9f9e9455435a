// Package predict implements the Prediction Ledger: an identity-keyed
// table of named model outputs with merge, selection and reporting.
//
// A Prediction is immutable through its public API; merge, rename,
// drop and friends return a new ledger. A missing value (an identity
// a model never predicted) is NaN.
package predict

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

// Prediction is the ledger: one numeric column per named model, all
// columns sharing one identity index.
type Prediction struct {
	ids   []string
	index map[string]int // id -> row position
	names []string
	cols  [][]float64 // column-major, aligned to ids
}

// NewPrediction returns an empty ledger.
func NewPrediction() *Prediction {
	return &Prediction{index: map[string]int{}}
}

// Len returns the number of rows.
func (p *Prediction) Len() int {
	return len(p.ids)
}

// Shape returns (rows, model columns).
func (p *Prediction) Shape() (int, int) {
	return len(p.ids), len(p.names)
}

// Size returns rows times columns.
func (p *Prediction) Size() int {
	return len(p.ids) * len(p.names)
}

// Names returns a copy of the model column names, in column order.
func (p *Prediction) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// IDs returns a copy of the row ids in row order.
func (p *Prediction) IDs() []string {
	out := make([]string, len(p.ids))
	copy(out, p.ids)
	return out
}

// Y returns the values as a rows x columns matrix copy. Nil when the
// ledger is empty.
func (p *Prediction) Y() *mat.Dense {
	if len(p.ids) == 0 || len(p.names) == 0 {
		return nil
	}
	out := mat.NewDense(len(p.ids), len(p.names), nil)
	for j, col := range p.cols {
		for i, v := range col {
			out.Set(i, j, v)
		}
	}
	return out
}

// Column returns a copy of one model's values aligned to row order.
func (p *Prediction) Column(name string) ([]float64, error) {
	j := p.colIndex(name)
	if j < 0 {
		return nil, errors.NewUnknownColumnError("Prediction.Column", name, p.names)
	}
	out := make([]float64, len(p.cols[j]))
	copy(out, p.cols[j])
	return out, nil
}

func (p *Prediction) colIndex(name string) int {
	for j, n := range p.names {
		if n == name {
			return j
		}
	}
	return -1
}

// Copy returns a deep copy of the ledger.
func (p *Prediction) Copy() *Prediction {
	out := &Prediction{
		ids:   make([]string, len(p.ids)),
		index: make(map[string]int, len(p.index)),
		names: make([]string, len(p.names)),
		cols:  make([][]float64, len(p.cols)),
	}
	copy(out.ids, p.ids)
	for id, i := range p.index {
		out.index[id] = i
	}
	copy(out.names, p.names)
	for j, col := range p.cols {
		out.cols[j] = make([]float64, len(col))
		copy(out.cols[j], col)
	}
	return out
}

// Equal reports row-order-sensitive equality; NaNs compare equal.
func (p *Prediction) Equal(other *Prediction) bool {
	if other == nil || len(p.ids) != len(other.ids) || len(p.names) != len(other.names) {
		return false
	}
	for i := range p.ids {
		if p.ids[i] != other.ids[i] {
			return false
		}
	}
	for j := range p.names {
		if p.names[j] != other.names[j] {
			return false
		}
		for i := range p.cols[j] {
			a, b := p.cols[j][i], other.cols[j][i]
			if a != b && !(math.IsNaN(a) && math.IsNaN(b)) {
				return false
			}
		}
	}
	return true
}

// String renders a short multi-line summary of the ledger: the row
// count, then one line per model column with its filled-cell count and
// value range.
func (p *Prediction) String() string {
	if len(p.ids) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s%d\n", "rows", len(p.ids))
	for j, name := range p.names {
		vmin, vmax := math.Inf(1), math.Inf(-1)
		var sum float64
		var filled int
		for _, v := range p.cols[j] {
			if math.IsNaN(v) {
				continue
			}
			vmin = math.Min(vmin, v)
			vmax = math.Max(vmax, v)
			sum += v
			filled++
		}
		mean := math.NaN()
		if filled > 0 {
			mean = sum / float64(filled)
		}
		fmt.Fprintf(&b, "%-10s%d, min %.4f, mean %.4f, max %.4f\n", name, filled, vmin, mean, vmax)
	}
	return b.String()
}

var hashSeed = maphash.MakeSeed()

// Hash returns a per-process digest of the ledger content.
func (p *Prediction) Hash() uint64 {
	var h maphash.Hash
	h.SetSeed(hashSeed)
	var buf [8]byte
	for _, id := range p.ids {
		h.WriteString(id)
	}
	for j, name := range p.names {
		h.WriteString(name)
		for _, v := range p.cols[j] {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			h.Write(buf[:])
		}
	}
	return h.Sum64()
}

// MergeArrays inserts or overwrites one named column for the given
// identities. Outer-join semantics on identity: existing rows of an
// existing column outside ids keep their values, matching rows are
// overwritten, unseen identities are appended as new rows (NaN in the
// other columns). The ids batch itself must be free of duplicates.
func (p *Prediction) MergeArrays(ids []string, yhat []float64, name string) (*Prediction, error) {
	if len(ids) != len(yhat) {
		return nil, errors.NewShapeError("Prediction.MergeArrays", len(ids), len(yhat), 0)
	}
	seen := make(map[string]struct{}, len(ids))
	var dup []string
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			dup = append(dup, id)
		}
		seen[id] = struct{}{}
	}
	if len(dup) > 0 {
		return nil, errors.NewIdentityCollisionError("Prediction.MergeArrays", dup)
	}

	out := p.Copy()
	for _, id := range ids {
		if _, ok := out.index[id]; !ok {
			out.index[id] = len(out.ids)
			out.ids = append(out.ids, id)
			for j := range out.cols {
				out.cols[j] = append(out.cols[j], math.NaN())
			}
		}
	}
	j := out.colIndex(name)
	if j < 0 {
		col := make([]float64, len(out.ids))
		for i := range col {
			col[i] = math.NaN()
		}
		out.names = append(out.names, name)
		out.cols = append(out.cols, col)
		j = len(out.cols) - 1
	}
	for i, id := range ids {
		out.cols[j][out.index[id]] = yhat[i]
	}
	return out, nil
}

// Merge applies MergeArrays for every column of the other ledger, in
// its column order. Only rows the other ledger actually holds a value
// for (non-NaN) take part, so merging never blanks existing entries.
func (p *Prediction) Merge(other *Prediction) (*Prediction, error) {
	out := p
	for j, name := range other.names {
		var ids []string
		var yhat []float64
		for i, v := range other.cols[j] {
			if math.IsNaN(v) {
				continue
			}
			ids = append(ids, other.ids[i])
			yhat = append(yhat, v)
		}
		var err error
		out, err = out.MergeArrays(ids, yhat, name)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// MergePredictions merges a list of ledgers into one. Unlike Add, the
// identity sets may overlap only where values do not conflict per
// column; later ledgers overwrite earlier ones row by row.
func MergePredictions(predictions ...*Prediction) (*Prediction, error) {
	if len(predictions) == 0 {
		return nil, errors.NewValueError("predict.MergePredictions", "nothing to merge")
	}
	out := NewPrediction()
	for _, q := range predictions {
		var err error
		out, err = out.Merge(q)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Rename renames the single model column. It is an error on an empty
// ledger and on a ledger holding more than one column.
func (p *Prediction) Rename(name string) (*Prediction, error) {
	if len(p.names) == 0 {
		return nil, errors.NewEmptyOperationError("Prediction.Rename")
	}
	if len(p.names) > 1 {
		return nil, errors.NewValueError("Prediction.Rename", "ledger has multiple columns; use RenameColumns")
	}
	out := p.Copy()
	out.names[0] = name
	return out, nil
}

// RenameColumns renames model columns through a mapping. Every key
// must name an existing column and the result must stay free of
// duplicate names.
func (p *Prediction) RenameColumns(mapping map[string]string) (*Prediction, error) {
	if len(p.names) == 0 {
		return nil, errors.NewEmptyOperationError("Prediction.RenameColumns")
	}
	for from := range mapping {
		if p.colIndex(from) < 0 {
			return nil, errors.NewUnknownColumnError("Prediction.RenameColumns", from, p.names)
		}
	}
	out := p.Copy()
	for j, n := range out.names {
		if to, ok := mapping[n]; ok {
			out.names[j] = to
		}
	}
	seen := make(map[string]struct{}, len(out.names))
	for _, n := range out.names {
		if _, ok := seen[n]; ok {
			return nil, errors.NewValueError("Prediction.RenameColumns", "rename produces duplicate column name: "+n)
		}
		seen[n] = struct{}{}
	}
	return out, nil
}

// Drop removes the named columns. Dropping the last column leaves a
// ledger with rows and no columns, which is valid.
func (p *Prediction) Drop(names ...string) (*Prediction, error) {
	if len(p.names) == 0 {
		return nil, errors.NewEmptyOperationError("Prediction.Drop")
	}
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		if p.colIndex(n) < 0 {
			return nil, errors.NewUnknownColumnError("Prediction.Drop", n, p.names)
		}
		drop[n] = struct{}{}
	}
	out := &Prediction{ids: p.IDs(), index: make(map[string]int, len(p.index))}
	for id, i := range p.index {
		out.index[id] = i
	}
	for j, n := range p.names {
		if _, gone := drop[n]; gone {
			continue
		}
		col := make([]float64, len(p.cols[j]))
		copy(col, p.cols[j])
		out.names = append(out.names, n)
		out.cols = append(out.cols, col)
	}
	return out, nil
}

// Select returns a ledger holding only the requested columns, in the
// requested order, preserving row order.
func (p *Prediction) Select(names ...string) (*Prediction, error) {
	out := &Prediction{ids: p.IDs(), index: make(map[string]int, len(p.index))}
	for id, i := range p.index {
		out.index[id] = i
	}
	for _, n := range names {
		j := p.colIndex(n)
		if j < 0 {
			return nil, errors.NewUnknownColumnError("Prediction.Select", n, p.names)
		}
		col := make([]float64, len(p.cols[j]))
		copy(col, p.cols[j])
		out.names = append(out.names, n)
		out.cols = append(out.cols, col)
	}
	return out, nil
}

// Loc returns a ledger restricted to the requested identities, in the
// requested order. Duplicated identities produce duplicated rows; a
// missing identity is a ValueError.
func (p *Prediction) Loc(ids []string) (*Prediction, error) {
	idx := make([]int, len(ids))
	for i, id := range ids {
		j, ok := p.index[id]
		if !ok {
			return nil, errors.NewValueError("Prediction.Loc", "id not found: "+id)
		}
		idx[i] = j
	}
	out := &Prediction{
		ids:   make([]string, len(ids)),
		index: make(map[string]int, len(ids)),
		names: p.Names(),
		cols:  make([][]float64, len(p.cols)),
	}
	copy(out.ids, ids)
	for i, id := range ids {
		out.index[id] = i
	}
	for j := range p.cols {
		col := make([]float64, len(ids))
		for i, src := range idx {
			col[i] = p.cols[j][src]
		}
		out.cols[j] = col
	}
	return out, nil
}

// Add concatenates two ledgers. The identity sets must be fully
// disjoint and the column name sets must match exactly; row order is
// the concatenation of the operand orders, column order follows the
// receiver.
func (p *Prediction) Add(other *Prediction) (*Prediction, error) {
	if len(p.names) != len(other.names) {
		return nil, errors.NewValueError("Prediction.Add", "column name sets differ")
	}
	for _, n := range p.names {
		if other.colIndex(n) < 0 {
			return nil, errors.NewValueError("Prediction.Add", "column name sets differ")
		}
	}
	var overlap []string
	for _, id := range other.ids {
		if _, ok := p.index[id]; ok {
			overlap = append(overlap, id)
		}
	}
	if len(overlap) > 0 {
		return nil, errors.NewIdentityCollisionError("Prediction.Add", overlap)
	}
	out := p.Copy()
	for _, id := range other.ids {
		out.index[id] = len(out.ids)
		out.ids = append(out.ids, id)
	}
	for j, n := range out.names {
		oj := other.colIndex(n)
		out.cols[j] = append(out.cols[j], other.cols[oj]...)
	}
	return out, nil
}

// YNew returns a ledger with identical identities and columns but
// replacement values. The matrix shape must match exactly.
func (p *Prediction) YNew(values *mat.Dense) (*Prediction, error) {
	r, c := values.Dims()
	if r != len(p.ids) {
		return nil, errors.NewShapeError("Prediction.YNew", len(p.ids), r, 0)
	}
	if c != len(p.names) {
		return nil, errors.NewShapeError("Prediction.YNew", len(p.names), c, 1)
	}
	out := p.Copy()
	for j := range out.cols {
		for i := range out.cols[j] {
			out.cols[j][i] = values.At(i, j)
		}
	}
	return out, nil
}

// Iter yields a single-column ledger per model, in column order.
func (p *Prediction) Iter() iter.Seq[*Prediction] {
	return func(yield func(*Prediction) bool) {
		for _, n := range p.names {
			single, err := p.Select(n)
			if err != nil {
				return
			}
			if !yield(single) {
				return
			}
		}
	}
}
