package errors

import (
	"strings"
	"testing"
)

func TestShapeError(t *testing.T) {
	err := NewShapeError("Data.XNew", 10, 7, 0)
	var shape *ShapeError
	if !As(err, &shape) {
		t.Fatalf("As() failed for ShapeError: %v", err)
	}
	if shape.Expected != 10 || shape.Got != 7 || shape.Axis != 0 {
		t.Errorf("fields = %+v", shape)
	}
	if !strings.Contains(err.Error(), "rows") {
		t.Errorf("Error() = %q, want axis 0 described as rows", err.Error())
	}
}

func TestIdentityCollisionErrorSampleCap(t *testing.T) {
	overlap := []string{"a", "b", "c", "d", "e", "f", "g"}
	err := NewIdentityCollisionError("Data.Concat", overlap)
	var collision *IdentityCollisionError
	if !As(err, &collision) {
		t.Fatalf("As() failed: %v", err)
	}
	if collision.Count != 7 {
		t.Errorf("Count = %d, want 7", collision.Count)
	}
	if len(collision.Sample) != 5 {
		t.Errorf("Sample = %v, want at most 5 entries", collision.Sample)
	}
}

func TestUnknownColumnError(t *testing.T) {
	err := NewUnknownColumnError("Prediction.Drop", "nope", []string{"m1", "m2"})
	if !strings.Contains(err.Error(), "nope") || !strings.Contains(err.Error(), "m1") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestWrapPreservesSentinel(t *testing.T) {
	err := Wrapf(ErrColumnExists, "store.SavePrediction: %s", "m1")
	if !Is(err, ErrColumnExists) {
		t.Errorf("wrapped sentinel should still match with Is")
	}
}

func TestWarnHandler(t *testing.T) {
	var got error
	prev := func(w error) {}
	SetWarningHandler(func(w error) { got = w })
	defer SetWarningHandler(prev)

	w := NewUndefinedMetricWarning("corr", "m1", "empty overlap")
	Warn(w)
	if got == nil || !strings.Contains(got.Error(), "corr") {
		t.Errorf("warning handler received %v", got)
	}
}

func TestUndefinedMetricWarningMessage(t *testing.T) {
	w := NewUndefinedMetricWarning("logloss", "m1", "empty overlap with ground truth")
	want := "'logloss' is undefined for model 'm1' and set to NaN due to empty overlap with ground truth"
	if w.Error() != want {
		t.Errorf("Error() = %q, want %q", w.Error(), want)
	}
}
