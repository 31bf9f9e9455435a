package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/tournox/tournox/pkg/errors"
	"github.com/tournox/tournox/predict"
	"github.com/tournox/tournox/testutil"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenValidation(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Errorf("Open() with an empty path expected an error")
	}
}

func TestDataRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		compress bool
	}{
		{name: "raw"},
		{name: "compressed", compress: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := openStore(t)
			ctx := context.Background()
			d := testutil.MicroData()
			if err := s.SaveData(ctx, d, tt.compress); err != nil {
				t.Fatalf("SaveData() error = %v", err)
			}
			back, err := s.LoadData(ctx)
			if err != nil {
				t.Fatalf("LoadData() error = %v", err)
			}
			if !d.Equal(back) {
				t.Errorf("round trip changed the store")
			}
		})
	}
}

func TestSaveDataReplaces(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	d := testutil.MicroData()
	if err := s.SaveData(ctx, d, false); err != nil {
		t.Fatalf("SaveData() error = %v", err)
	}
	sub, err := d.Loc(d.IDs()[:3])
	if err != nil {
		t.Fatalf("Loc() error = %v", err)
	}
	if err := s.SaveData(ctx, sub, false); err != nil {
		t.Fatalf("SaveData() error = %v", err)
	}
	back, err := s.LoadData(ctx)
	if err != nil {
		t.Fatalf("LoadData() error = %v", err)
	}
	if back.Len() != 3 {
		t.Errorf("rows after replace = %d, want 3", back.Len())
	}
}

func TestPredictionRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	p := testutil.MicroPrediction()
	if err := s.SavePrediction(ctx, p, false); err != nil {
		t.Fatalf("SavePrediction() error = %v", err)
	}
	back, err := s.LoadPrediction(ctx)
	if err != nil {
		t.Fatalf("LoadPrediction() error = %v", err)
	}
	if !p.Equal(back) {
		t.Errorf("round trip changed the ledger")
	}
}

func TestPredictionRoundTripInterleavedMerges(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	// 行順は列をまたいだ初出順になる
	p, err := predict.NewPrediction().MergeArrays([]string{"a"}, []float64{0.1}, "alpha")
	if err != nil {
		t.Fatalf("MergeArrays() error = %v", err)
	}
	p, err = p.MergeArrays([]string{"b1", "b2"}, []float64{0.2, 0.3}, "beta")
	if err != nil {
		t.Fatalf("MergeArrays() error = %v", err)
	}
	p, err = p.MergeArrays([]string{"b2"}, []float64{0.4}, "alpha")
	if err != nil {
		t.Fatalf("MergeArrays() error = %v", err)
	}
	if err := s.SavePrediction(ctx, p, false); err != nil {
		t.Fatalf("SavePrediction() error = %v", err)
	}
	back, err := s.LoadPrediction(ctx)
	if err != nil {
		t.Fatalf("LoadPrediction() error = %v", err)
	}
	want := []string{"a", "b1", "b2"}
	got := back.IDs()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("loaded ids = %v, want %v", got, want)
		}
	}
	if !p.Equal(back) {
		t.Errorf("round trip changed the ledger")
	}
}

func TestSavePredictionEmptyLedger(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	p := testutil.MicroPrediction()
	if err := s.SavePrediction(ctx, p, false); err != nil {
		t.Fatalf("SavePrediction() error = %v", err)
	}
	err := s.SavePrediction(ctx, predict.NewPrediction(), false)
	var emptyErr *errors.EmptyOperationError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("SavePrediction() with an empty ledger error = %v, want EmptyOperationError", err)
	}
	back, err := s.LoadPrediction(ctx)
	if err != nil {
		t.Fatalf("LoadPrediction() error = %v", err)
	}
	if !p.Equal(back) {
		t.Errorf("rejected empty save modified the stored ledger")
	}
}

func TestSavePredictionAppendConflict(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	p := testutil.MicroPrediction()
	if err := s.SavePrediction(ctx, p, true); err != nil {
		t.Fatalf("SavePrediction() error = %v", err)
	}
	err := s.SavePrediction(ctx, p, true)
	if !errors.Is(err, errors.ErrColumnExists) {
		t.Fatalf("SavePrediction() append conflict error = %v, want ErrColumnExists", err)
	}
	// 衝突時には何も書き込まれない
	back, err := s.LoadPrediction(ctx)
	if err != nil {
		t.Fatalf("LoadPrediction() error = %v", err)
	}
	if !p.Equal(back) {
		t.Errorf("failed append modified the stored ledger")
	}
}

func TestSavePredictionAppendNewColumn(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	p := testutil.MicroPrediction()
	first, err := p.Select("alpha")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	second, err := p.Select("beta")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if err := s.SavePrediction(ctx, first, true); err != nil {
		t.Fatalf("SavePrediction() error = %v", err)
	}
	if err := s.SavePrediction(ctx, second, true); err != nil {
		t.Fatalf("SavePrediction() error = %v", err)
	}
	back, err := s.LoadPrediction(ctx)
	if err != nil {
		t.Fatalf("LoadPrediction() error = %v", err)
	}
	if len(back.Names()) != 2 {
		t.Errorf("columns after append = %v, want both models", back.Names())
	}
}

func TestLoadEmpty(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	d, err := s.LoadData(ctx)
	if err != nil {
		t.Fatalf("LoadData() on an empty store error = %v", err)
	}
	if d.Len() != 0 {
		t.Errorf("rows = %d, want 0", d.Len())
	}
	p, err := s.LoadPrediction(ctx)
	if err != nil {
		t.Fatalf("LoadPrediction() on an empty store error = %v", err)
	}
	if p.Len() != 0 {
		t.Errorf("ledger rows = %d, want 0", p.Len())
	}
}

func TestCancelledContext(t *testing.T) {
	s := openStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.SaveData(ctx, testutil.MicroData(), false); err == nil {
		t.Errorf("SaveData() with a cancelled context expected an error")
	}
}
