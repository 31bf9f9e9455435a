package predict

import (
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/tournox/tournox/pkg/errors"
)

func mustMerge(t *testing.T, p *Prediction, ids []string, yhat []float64, name string) *Prediction {
	t.Helper()
	out, err := p.MergeArrays(ids, yhat, name)
	if err != nil {
		t.Fatalf("MergeArrays(%s) error = %v", name, err)
	}
	return out
}

func TestMergeArrays(t *testing.T) {
	p := NewPrediction()
	p = mustMerge(t, p, []string{"a", "b"}, []float64{0.1, 0.2}, "m1")
	if rows, cols := p.Shape(); rows != 2 || cols != 1 {
		t.Fatalf("Shape() = (%d, %d), want (2, 1)", rows, cols)
	}

	// 既存列の部分上書きと新しい行の外部結合
	p = mustMerge(t, p, []string{"b", "c"}, []float64{0.9, 0.3}, "m1")
	col, err := p.Column("m1")
	if err != nil {
		t.Fatalf("Column() error = %v", err)
	}
	want := []float64{0.1, 0.9, 0.3}
	for i := range want {
		if col[i] != want[i] {
			t.Errorf("m1 = %v, want %v", col, want)
			break
		}
	}

	// 新しい列は既存の行に NaN を持つ
	p = mustMerge(t, p, []string{"c"}, []float64{0.5}, "m2")
	col2, err := p.Column("m2")
	if err != nil {
		t.Fatalf("Column() error = %v", err)
	}
	if !math.IsNaN(col2[0]) || !math.IsNaN(col2[1]) || col2[2] != 0.5 {
		t.Errorf("m2 = %v, want [NaN NaN 0.5]", col2)
	}
}

func TestMergeArraysValidation(t *testing.T) {
	p := NewPrediction()
	if _, err := p.MergeArrays([]string{"a"}, []float64{0.1, 0.2}, "m"); err == nil {
		t.Errorf("length mismatch expected an error")
	}
	_, err := p.MergeArrays([]string{"a", "a"}, []float64{0.1, 0.2}, "m")
	var collision *errors.IdentityCollisionError
	if !errors.As(err, &collision) {
		t.Errorf("duplicate batch ids: error = %v, want IdentityCollisionError", err)
	}
}

func TestMergeArraysDoesNotMutateReceiver(t *testing.T) {
	p := mustMerge(t, NewPrediction(), []string{"a"}, []float64{0.1}, "m")
	q := mustMerge(t, p, []string{"a"}, []float64{0.9}, "m")
	col, _ := p.Column("m")
	if col[0] != 0.1 {
		t.Errorf("receiver mutated: %v", col)
	}
	qcol, _ := q.Column("m")
	if qcol[0] != 0.9 {
		t.Errorf("result not updated: %v", qcol)
	}
}

func TestMergeKeepsExistingValues(t *testing.T) {
	p := mustMerge(t, NewPrediction(), []string{"a", "b"}, []float64{0.1, 0.2}, "m")
	other := mustMerge(t, NewPrediction(), []string{"b"}, []float64{math.NaN()}, "m")
	merged, err := p.Merge(other)
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	col, _ := merged.Column("m")
	// NaN セルはマージに参加しないので 0.2 が残る
	if col[1] != 0.2 {
		t.Errorf("Merge() overwrote with a missing value: %v", col)
	}
}

func TestMergePredictions(t *testing.T) {
	a := mustMerge(t, NewPrediction(), []string{"a", "b"}, []float64{0.1, 0.2}, "m1")
	b := mustMerge(t, NewPrediction(), []string{"b", "c"}, []float64{0.3, 0.4}, "m2")
	merged, err := MergePredictions(a, b)
	if err != nil {
		t.Fatalf("MergePredictions() error = %v", err)
	}
	if rows, cols := merged.Shape(); rows != 3 || cols != 2 {
		t.Errorf("Shape() = (%d, %d), want (3, 2)", rows, cols)
	}
	if _, err := MergePredictions(); err == nil {
		t.Errorf("MergePredictions() with no arguments expected an error")
	}
}

func TestRename(t *testing.T) {
	p := mustMerge(t, NewPrediction(), []string{"a"}, []float64{0.1}, "old")
	renamed, err := p.Rename("new")
	if err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if renamed.Names()[0] != "new" {
		t.Errorf("Names() = %v, want [new]", renamed.Names())
	}

	if _, err := NewPrediction().Rename("x"); err == nil {
		t.Errorf("Rename() on an empty ledger expected an error")
	}
	two := mustMerge(t, p, []string{"a"}, []float64{0.2}, "other")
	if _, err := two.Rename("x"); err == nil {
		t.Errorf("Rename() on a multi-column ledger expected an error")
	}
}

func TestRenameColumns(t *testing.T) {
	p := mustMerge(t, NewPrediction(), []string{"a"}, []float64{0.1}, "m1")
	p = mustMerge(t, p, []string{"a"}, []float64{0.2}, "m2")

	renamed, err := p.RenameColumns(map[string]string{"m1": "first"})
	if err != nil {
		t.Fatalf("RenameColumns() error = %v", err)
	}
	if renamed.Names()[0] != "first" || renamed.Names()[1] != "m2" {
		t.Errorf("Names() = %v", renamed.Names())
	}

	_, err = p.RenameColumns(map[string]string{"nope": "x"})
	var unknown *errors.UnknownColumnError
	if !errors.As(err, &unknown) {
		t.Errorf("unknown key: error = %v, want UnknownColumnError", err)
	}
	if _, err := p.RenameColumns(map[string]string{"m1": "m2"}); err == nil {
		t.Errorf("rename onto an existing name expected an error")
	}
}

func TestDrop(t *testing.T) {
	p := mustMerge(t, NewPrediction(), []string{"a"}, []float64{0.1}, "m1")
	p = mustMerge(t, p, []string{"a"}, []float64{0.2}, "m2")

	dropped, err := p.Drop("m1")
	if err != nil {
		t.Fatalf("Drop() error = %v", err)
	}
	if len(dropped.Names()) != 1 || dropped.Names()[0] != "m2" {
		t.Errorf("Names() = %v, want [m2]", dropped.Names())
	}

	// 最後の列を落としても行は残る
	empty, err := dropped.Drop("m2")
	if err != nil {
		t.Fatalf("Drop() error = %v", err)
	}
	if empty.Len() != 1 || len(empty.Names()) != 0 {
		t.Errorf("Len() = %d, Names() = %v, want rows without columns", empty.Len(), empty.Names())
	}

	if _, err := p.Drop("nope"); err == nil {
		t.Errorf("Drop() of an unknown column expected an error")
	}
}

func TestSelect(t *testing.T) {
	p := mustMerge(t, NewPrediction(), []string{"a"}, []float64{0.1}, "m1")
	p = mustMerge(t, p, []string{"a"}, []float64{0.2}, "m2")

	sel, err := p.Select("m2", "m1")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if sel.Names()[0] != "m2" || sel.Names()[1] != "m1" {
		t.Errorf("Select() order = %v, want [m2 m1]", sel.Names())
	}
	if _, err := p.Select("nope"); err == nil {
		t.Errorf("Select() of an unknown column expected an error")
	}
}

func TestLoc(t *testing.T) {
	p := mustMerge(t, NewPrediction(), []string{"a", "b", "c"}, []float64{0.1, 0.2, 0.3}, "m")
	sub, err := p.Loc([]string{"c", "a", "a"})
	if err != nil {
		t.Fatalf("Loc() error = %v", err)
	}
	col, _ := sub.Column("m")
	want := []float64{0.3, 0.1, 0.1}
	for i := range want {
		if col[i] != want[i] {
			t.Errorf("Loc() values = %v, want %v", col, want)
			break
		}
	}
	if _, err := p.Loc([]string{"nope"}); err == nil {
		t.Errorf("Loc() with a missing id expected an error")
	}
}

func TestAdd(t *testing.T) {
	a := mustMerge(t, NewPrediction(), []string{"a", "b"}, []float64{0.1, 0.2}, "m")
	b := mustMerge(t, NewPrediction(), []string{"c"}, []float64{0.3}, "m")
	joined, err := a.Add(b)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if joined.Len() != 3 {
		t.Errorf("Add() rows = %d, want 3", joined.Len())
	}

	_, err = a.Add(a)
	var collision *errors.IdentityCollisionError
	if !errors.As(err, &collision) {
		t.Errorf("overlapping ids: error = %v, want IdentityCollisionError", err)
	}

	other := mustMerge(t, NewPrediction(), []string{"c"}, []float64{0.3}, "different")
	if _, err := a.Add(other); err == nil {
		t.Errorf("differing column sets expected an error")
	}
}

func TestYNew(t *testing.T) {
	p := mustMerge(t, NewPrediction(), []string{"a", "b"}, []float64{0.1, 0.2}, "m")
	out, err := p.YNew(mat.NewDense(2, 1, []float64{0.7, 0.8}))
	if err != nil {
		t.Fatalf("YNew() error = %v", err)
	}
	col, _ := out.Column("m")
	if col[0] != 0.7 || col[1] != 0.8 {
		t.Errorf("YNew() values = %v", col)
	}
	if _, err := p.YNew(mat.NewDense(3, 1, nil)); err == nil {
		t.Errorf("YNew() row mismatch expected an error")
	}
	if _, err := p.YNew(mat.NewDense(2, 2, nil)); err == nil {
		t.Errorf("YNew() column mismatch expected an error")
	}
}

func TestIter(t *testing.T) {
	p := mustMerge(t, NewPrediction(), []string{"a"}, []float64{0.1}, "m1")
	p = mustMerge(t, p, []string{"a"}, []float64{0.2}, "m2")
	var names []string
	for single := range p.Iter() {
		if len(single.Names()) != 1 {
			t.Fatalf("Iter() yielded %d columns", len(single.Names()))
		}
		names = append(names, single.Names()[0])
	}
	if len(names) != 2 || names[0] != "m1" || names[1] != "m2" {
		t.Errorf("Iter() names = %v, want [m1 m2]", names)
	}
}

func TestEqualAndHash(t *testing.T) {
	p := mustMerge(t, NewPrediction(), []string{"a", "b"}, []float64{0.1, math.NaN()}, "m")
	q := mustMerge(t, NewPrediction(), []string{"a", "b"}, []float64{0.1, math.NaN()}, "m")
	if !p.Equal(q) {
		t.Errorf("identically built ledgers should compare equal")
	}
	if p.Hash() != q.Hash() {
		t.Errorf("equal ledgers should hash equal")
	}
	r := mustMerge(t, NewPrediction(), []string{"a", "b"}, []float64{0.1, 0.5}, "m")
	if p.Equal(r) {
		t.Errorf("different ledgers should not compare equal")
	}
}

func TestString(t *testing.T) {
	if got := NewPrediction().String(); got != "" {
		t.Errorf("String() on an empty ledger = %q, want empty", got)
	}
	p := mustMerge(t, NewPrediction(), []string{"a", "b", "c"}, []float64{0.1, 0.5, math.NaN()}, "m1")
	got := p.String()
	if !strings.Contains(got, "rows") || !strings.Contains(got, "3") {
		t.Errorf("String() = %q, want the row count", got)
	}
	// NaN セルは集計から除外される
	if !strings.Contains(got, "m1        2, min 0.1000, mean 0.3000, max 0.5000") {
		t.Errorf("String() = %q, want the m1 column summary", got)
	}
}
