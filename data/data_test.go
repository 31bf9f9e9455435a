package data

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/tournox/tournox/pkg/errors"
)

// fixture builds a small store covering every region and three eras.
func fixture(t *testing.T) *Data {
	t.Helper()
	ids := []string{"a", "b", "c", "d", "e", "f"}
	eras := []Era{1, 1, 2, 2, 3, EraX}
	regions := []Region{Train, Train, Train, Validation, Test, Live}
	x := mat.NewDense(6, 2, []float64{
		0.1, 0.2,
		0.3, 0.4,
		0.5, 0.6,
		0.7, 0.8,
		0.9, 1.0,
		1.1, 1.2,
	})
	y := []float64{0, 1, 0, 1, math.NaN(), math.NaN()}
	d, err := New(ids, eras, regions, x, y)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return d
}

func TestNewValidation(t *testing.T) {
	x := mat.NewDense(2, 1, []float64{1, 2})
	tests := []struct {
		name    string
		ids     []string
		eras    []Era
		regions []Region
		y       []float64
	}{
		{
			name:    "duplicate ids",
			ids:     []string{"a", "a"},
			eras:    []Era{1, 1},
			regions: []Region{Train, Train},
			y:       []float64{0, 1},
		},
		{
			name:    "era out of range",
			ids:     []string{"a", "b"},
			eras:    []Era{1, 500},
			regions: []Region{Train, Train},
			y:       []float64{0, 1},
		},
		{
			name:    "unknown region",
			ids:     []string{"a", "b"},
			eras:    []Era{1, 1},
			regions: []Region{Train, Region(9)},
			y:       []float64{0, 1},
		},
		{
			name:    "y length mismatch",
			ids:     []string{"a", "b"},
			eras:    []Era{1, 1},
			regions: []Region{Train, Train},
			y:       []float64{0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.ids, tt.eras, tt.regions, x, tt.y); err == nil {
				t.Errorf("New() expected an error")
			}
		})
	}
}

func TestEmptyStore(t *testing.T) {
	d, err := New(nil, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if d.Len() != 0 {
		t.Errorf("Len() = %d, want 0", d.Len())
	}
	if d.X() != nil {
		t.Errorf("X() on an empty store should be nil")
	}
}

func TestRegionFilters(t *testing.T) {
	d := fixture(t)
	train := d.RegionsIn(Train)
	if train.Len() != 3 {
		t.Errorf("train rows = %d, want 3", train.Len())
	}
	tournament := d.RegionsNotIn(Train)
	if tournament.Len() != 3 {
		t.Errorf("tournament rows = %d, want 3", tournament.Len())
	}
	for _, r := range tournament.Regions() {
		if r == Train {
			t.Errorf("tournament subset still contains a train row")
		}
	}
}

func TestEraFilters(t *testing.T) {
	d := fixture(t)
	e1 := d.ErasIn(1)
	if e1.Len() != 2 {
		t.Errorf("era1 rows = %d, want 2", e1.Len())
	}
	rest := d.ErasNotIn(1)
	if rest.Len() != 4 {
		t.Errorf("rows outside era1 = %d, want 4", rest.Len())
	}
	if got := d.ErasIn(42).Len(); got != 0 {
		t.Errorf("absent era rows = %d, want 0", got)
	}
}

func TestGet(t *testing.T) {
	d := fixture(t)
	tests := []struct {
		name    string
		label   string
		want    int
		wantErr bool
	}{
		{name: "era label", label: "era2", want: 2},
		{name: "sentinel era", label: "eraX", want: 1},
		{name: "region label", label: "train", want: 3},
		{name: "tournament", label: "tournament", want: 3},
		{name: "unknown", label: "holdout", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.Get(tt.label)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Get(%q) error = %v, wantErr %v", tt.label, err, tt.wantErr)
			}
			if tt.wantErr {
				var kindErr *errors.IndexKindError
				if !errors.As(err, &kindErr) {
					t.Errorf("Get(%q) error = %T, want IndexKindError", tt.label, err)
				}
				return
			}
			if got.Len() != tt.want {
				t.Errorf("Get(%q).Len() = %d, want %d", tt.label, got.Len(), tt.want)
			}
		})
	}
}

func TestLoc(t *testing.T) {
	d := fixture(t)
	sub, err := d.Loc([]string{"d", "a", "a"})
	if err != nil {
		t.Fatalf("Loc() error = %v", err)
	}
	want := []string{"d", "a", "a"}
	got := sub.IDs()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Loc() ids = %v, want %v", got, want)
			break
		}
	}
	if _, err := d.Loc([]string{"nope"}); err == nil {
		t.Errorf("Loc() with a missing id expected an error")
	}
}

func TestConcat(t *testing.T) {
	d := fixture(t)
	train := d.RegionsIn(Train)
	rest := d.RegionsNotIn(Train)
	joined, err := train.Concat(rest)
	if err != nil {
		t.Fatalf("Concat() error = %v", err)
	}
	if joined.Len() != d.Len() {
		t.Errorf("Concat() rows = %d, want %d", joined.Len(), d.Len())
	}
}

func TestConcatSelfCollision(t *testing.T) {
	d := fixture(t)
	_, err := d.Concat(d)
	var collision *errors.IdentityCollisionError
	if !errors.As(err, &collision) {
		t.Fatalf("Concat() with itself error = %v, want IdentityCollisionError", err)
	}
}

func TestEqualAndHash(t *testing.T) {
	d := fixture(t)
	cp := d.Copy()
	if !d.Equal(cp) {
		t.Errorf("a deep copy should compare equal")
	}
	if d.Hash() != cp.Hash() {
		t.Errorf("equal stores should hash equal")
	}
	other := d.ErasIn(1)
	if d.Equal(other) {
		t.Errorf("different stores should not compare equal")
	}
	if d.Hash() == other.Hash() {
		t.Errorf("different stores should hash differently")
	}
}

func TestUniqueErasOrder(t *testing.T) {
	d := fixture(t)
	got := d.UniqueEras()
	want := []Era{1, 2, 3, EraX}
	if len(got) != len(want) {
		t.Fatalf("UniqueEras() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("UniqueEras() = %v, want %v", got, want)
			break
		}
	}
}

func TestEraIter(t *testing.T) {
	d := fixture(t)
	counts := map[Era]int{}
	for era, mask := range d.EraIter() {
		for _, hit := range mask {
			if hit {
				counts[era]++
			}
		}
	}
	if counts[1] != 2 || counts[2] != 2 || counts[3] != 1 || counts[EraX] != 1 {
		t.Errorf("EraIter() counts = %v", counts)
	}
}

func TestXAliasesStore(t *testing.T) {
	d := fixture(t)
	if got := d.X().At(1, 1); got != 0.4 {
		t.Errorf("X().At(1,1) = %v, want 0.4", got)
	}
	rows, cols := d.XShape()
	if rows != 6 || cols != 2 {
		t.Errorf("XShape() = (%d, %d), want (6, 2)", rows, cols)
	}
}
