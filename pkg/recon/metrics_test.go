package recon

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// TestCorrColumnsIdentical verifies that identical inputs score 1.0 at every
// location.
func TestCorrColumnsIdentical(t *testing.T) {
	x := mat.NewDense(20, 3, nil)
	for i := 0; i < 20; i++ {
		x.Set(i, 0, float64(i))
		x.Set(i, 1, math.Sin(float64(i)))
		x.Set(i, 2, float64(i*i)-3)
	}

	coeffs, err := CorrColumns(x, x)
	if err != nil {
		t.Fatalf("CorrColumns failed: %v", err)
	}
	if len(coeffs) != 3 {
		t.Fatalf("Expected 3 coefficients, got %d", len(coeffs))
	}
	for j, c := range coeffs {
		if math.Abs(c-1) > 1e-12 {
			t.Errorf("Column %d: expected correlation 1.0, got %g", j, c)
		}
	}
}

// TestCorrColumnsAnticorrelated verifies sign handling.
func TestCorrColumnsAnticorrelated(t *testing.T) {
	x := mat.NewDense(10, 1, nil)
	y := mat.NewDense(10, 1, nil)
	for i := 0; i < 10; i++ {
		x.Set(i, 0, float64(i))
		y.Set(i, 0, -float64(i))
	}

	coeffs, err := CorrColumns(x, y)
	if err != nil {
		t.Fatalf("CorrColumns failed: %v", err)
	}
	if math.Abs(coeffs[0]+1) > 1e-12 {
		t.Errorf("Expected correlation -1.0, got %g", coeffs[0])
	}
}

// TestCorrColumnsShapeMismatch verifies the dimension check.
func TestCorrColumnsShapeMismatch(t *testing.T) {
	x := mat.NewDense(10, 2, nil)
	y := mat.NewDense(10, 3, nil)

	_, err := CorrColumns(x, y)
	if err == nil {
		t.Fatal("Expected error for mismatched shapes")
	}
	var dim *DimensionMismatchError
	if !errors.As(err, &dim) {
		t.Errorf("Expected DimensionMismatchError, got %T: %v", err, err)
	}
}
