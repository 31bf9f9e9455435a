package split

import (
	"fmt"
	"testing"

	"github.com/tournox/tournox/data"
	"github.com/tournox/tournox/testutil"
)

// drain collects all pairs of one pass.
func drain(t *testing.T, s Splitter) (fits, predicts []*data.Data) {
	t.Helper()
	for fit, predict := range Pairs(s) {
		fits = append(fits, fit)
		predicts = append(predicts, predict)
	}
	return fits, predicts
}

// assertNoDoublePredict fails when any id appears in two predict
// subsets of one pass.
func assertNoDoublePredict(t *testing.T, predicts []*data.Data) {
	t.Helper()
	seen := make(map[string]int)
	for fold, p := range predicts {
		for _, id := range p.IDs() {
			if prev, ok := seen[id]; ok {
				t.Fatalf("id %s predicted in folds %d and %d", id, prev, fold)
			}
			seen[id] = fold
		}
	}
}

// assertResetReplays fails when a second pass differs from the first.
func assertResetReplays(t *testing.T, s Splitter) {
	t.Helper()
	s.Reset()
	var first []uint64
	for fit, predict := range Pairs(s) {
		first = append(first, fit.Hash(), predict.Hash())
	}
	s.Reset()
	var second []uint64
	for fit, predict := range Pairs(s) {
		second = append(second, fit.Hash(), predict.Hash())
	}
	if len(first) != len(second) {
		t.Fatalf("replay yielded %d hashes, want %d", len(second), len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("replay pair %d differs from the first pass", i/2)
		}
	}
}

func playData(t *testing.T) *data.Data {
	t.Helper()
	return testutil.PlayData(12, 8, 3, 42)
}

func TestTournament(t *testing.T) {
	d := playData(t)
	s := NewTournament(d)
	fits, predicts := drain(t, s)
	if len(fits) != 1 {
		t.Fatalf("pairs = %d, want 1", len(fits))
	}
	for _, r := range fits[0].UniqueRegions() {
		if r != data.Train {
			t.Errorf("fit subset contains region %v", r)
		}
	}
	for _, r := range predicts[0].UniqueRegions() {
		if r == data.Train {
			t.Errorf("predict subset contains a train row")
		}
	}
	assertResetReplays(t, s)
}

func TestValidation(t *testing.T) {
	d := playData(t)
	_, predicts := drain(t, NewValidation(d))
	for _, r := range predicts[0].UniqueRegions() {
		if r != data.Validation {
			t.Errorf("predict subset contains region %v", r)
		}
	}
}

func TestCheat(t *testing.T) {
	d := playData(t)
	fits, predicts := drain(t, NewCheat(d))
	for _, r := range fits[0].UniqueRegions() {
		if r == data.Live {
			t.Errorf("cheat fit subset contains a live row")
		}
	}
	for _, r := range predicts[0].UniqueRegions() {
		if r != data.Live {
			t.Errorf("cheat predict subset contains region %v", r)
		}
	}
}

func TestCV(t *testing.T) {
	d := playData(t)
	s, err := NewCV(d, 3, 0, true)
	if err != nil {
		t.Fatalf("NewCV() error = %v", err)
	}
	fits, predicts := drain(t, s)
	if len(fits) != 3 {
		t.Fatalf("pairs = %d, want 3", len(fits))
	}
	assertNoDoublePredict(t, predicts)
	// 各フォールドの fit と predict の時代は互いに素
	for fold := range fits {
		fitEras := make(map[data.Era]struct{})
		for _, e := range fits[fold].UniqueEras() {
			fitEras[e] = struct{}{}
		}
		for _, e := range predicts[fold].UniqueEras() {
			if _, ok := fitEras[e]; ok {
				t.Errorf("fold %d holds era %v in both fit and predict", fold, e)
			}
		}
	}
	// 全 train 行がちょうど一度ずつ predict される
	total := 0
	for _, p := range predicts {
		total += p.Len()
	}
	if want := d.RegionsIn(data.Train).Len(); total != want {
		t.Errorf("predicted rows = %d, want %d", total, want)
	}
	assertResetReplays(t, s)
}

func TestCVAllRegions(t *testing.T) {
	d := playData(t)
	s, err := NewCV(d, 3, 0, false)
	if err != nil {
		t.Fatalf("NewCV() error = %v", err)
	}
	fits, predicts := drain(t, s)
	assertNoDoublePredict(t, predicts)
	for fold := range fits {
		for _, r := range fits[fold].UniqueRegions() {
			if r != data.Train {
				t.Errorf("fold %d fits on region %v", fold, r)
			}
		}
	}
}

func TestCVValidation(t *testing.T) {
	d := playData(t)
	if _, err := NewCV(d, 1, 0, true); err == nil {
		t.Errorf("NewCV() with kfold 1 expected an error")
	}
	if _, err := NewCV(d, 100, 0, true); err == nil {
		t.Errorf("NewCV() with more folds than eras expected an error")
	}
}

func TestCVSeedsDiffer(t *testing.T) {
	d := playData(t)
	distinct := make(map[uint64]struct{})
	for seed := uint64(1); seed <= 5; seed++ {
		s, err := NewCV(d, 3, seed, true)
		if err != nil {
			t.Fatalf("NewCV() error = %v", err)
		}
		_, predicts := drain(t, s)
		distinct[predicts[0].Hash()] = struct{}{}
	}
	if len(distinct) < 2 {
		t.Errorf("five seeds all produced identical first folds")
	}
}

func TestIgnoreEraCV(t *testing.T) {
	d := playData(t)
	s, err := NewIgnoreEraCV(d, 4, 0)
	if err != nil {
		t.Fatalf("NewIgnoreEraCV() error = %v", err)
	}
	fits, predicts := drain(t, s)
	if len(fits) != 4 {
		t.Fatalf("pairs = %d, want 4", len(fits))
	}
	assertNoDoublePredict(t, predicts)
	total := 0
	for _, p := range predicts {
		total += p.Len()
	}
	if want := d.RegionsIn(data.Train).Len(); total != want {
		t.Errorf("predicted rows = %d, want %d", total, want)
	}
	assertResetReplays(t, s)
}

func TestSingleSplit(t *testing.T) {
	d := playData(t)
	s, err := NewSplit(d, 0.75, 0)
	if err != nil {
		t.Fatalf("NewSplit() error = %v", err)
	}
	fits, predicts := drain(t, s)
	if len(fits) != 1 {
		t.Fatalf("pairs = %d, want 1", len(fits))
	}
	train := d.RegionsIn(data.Train).Len()
	if got := fits[0].Len(); got != int(0.75*float64(train)) {
		t.Errorf("fit rows = %d, want %d", got, int(0.75*float64(train)))
	}
	if fits[0].Len()+predicts[0].Len() != train {
		t.Errorf("fit+predict = %d, want %d", fits[0].Len()+predicts[0].Len(), train)
	}
	assertResetReplays(t, s)

	if _, err := NewSplit(d, 1.0, 0); err == nil {
		t.Errorf("NewSplit() with fraction 1 expected an error")
	}
}

func TestRoll(t *testing.T) {
	d := playData(t)
	s, err := NewRoll(d, 3, 2, 2)
	if err != nil {
		t.Fatalf("NewRoll() error = %v", err)
	}
	fits, predicts := drain(t, s)
	if len(fits) == 0 {
		t.Fatalf("no pairs produced")
	}
	assertNoDoublePredict(t, predicts)
	for fold := range fits {
		// fit の時代はすべて predict の時代より前
		var maxFit, minPredict data.Era = -1, data.EraX
		for _, e := range fits[fold].UniqueEras() {
			if e > maxFit {
				maxFit = e
			}
		}
		for _, e := range predicts[fold].UniqueEras() {
			if e < minPredict {
				minPredict = e
			}
			if e == data.EraX {
				t.Errorf("fold %d predicts an eraX row", fold)
			}
		}
		if maxFit >= minPredict {
			t.Errorf("fold %d fit era %v not before predict era %v", fold, maxFit, minPredict)
		}
	}
	assertResetReplays(t, s)
}

func TestRollValidation(t *testing.T) {
	d := playData(t)
	if _, err := NewRoll(d, 3, 2, 1); err == nil {
		t.Errorf("NewRoll() with step below predictWindow expected an error")
	}
	if _, err := NewRoll(d, 0, 2, 2); err == nil {
		t.Errorf("NewRoll() with an empty fit window expected an error")
	}
}

func TestStrings(t *testing.T) {
	d := playData(t)
	cv, err := NewCV(d, 3, 0, true)
	if err != nil {
		t.Fatalf("NewCV() error = %v", err)
	}
	for _, tt := range []struct {
		s    Splitter
		want string
	}{
		{NewTournament(d), "Tournament"},
		{NewValidation(d), "Validation"},
		{NewCheat(d), "Cheat"},
		{cv, "CV"},
	} {
		if got := fmt.Sprint(tt.s); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
