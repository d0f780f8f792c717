package simulate

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"brainrecon/pkg/locations"
)

// TestToeplitzCorr verifies the triangular correlation structure.
func TestToeplitzCorr(t *testing.T) {
	r := ToeplitzCorr(5)

	if got := r.At(0, 0); got != 1 {
		t.Errorf("Diagonal: expected 1, got %g", got)
	}
	if got := r.At(0, 1); math.Abs(got-0.75) > 1e-12 {
		t.Errorf("Lag 1: expected 0.75, got %g", got)
	}
	if got := r.At(0, 4); got != 0 {
		t.Errorf("Max lag: expected 0, got %g", got)
	}
	if got := r.At(3, 1); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("Lag 2: expected 0.5, got %g", got)
	}
}

// TestDistanceCorr verifies the distance-derived structure: unit diagonal,
// zero at the farthest pair, monotone with proximity.
func TestDistanceCorr(t *testing.T) {
	locs := locations.Set{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 10, Y: 0, Z: 0}}
	r := DistanceCorr(locs)

	for i := 0; i < 3; i++ {
		if r.At(i, i) != 1 {
			t.Errorf("Diagonal (%d,%d): expected 1, got %g", i, i, r.At(i, i))
		}
	}
	if got := r.At(0, 2); got != 0 {
		t.Errorf("Farthest pair: expected 0, got %g", got)
	}
	if r.At(0, 1) <= r.At(1, 2) {
		t.Errorf("Expected closer pair to correlate more: %g vs %g", r.At(0, 1), r.At(1, 2))
	}
	if got := r.At(0, 1); math.Abs(got-0.9) > 1e-12 {
		t.Errorf("Expected 0.9 for distance 1 of max 10, got %g", got)
	}
}

// TestSampleDeterministic verifies shape and seed reproducibility.
func TestSampleDeterministic(t *testing.T) {
	corr := ToeplitzCorr(4)

	first, err := Sample(rand.New(rand.NewSource(5)), corr, 30)
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	second, err := Sample(rand.New(rand.NewSource(5)), corr, 30)
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}

	r, c := first.Dims()
	if r != 30 || c != 4 {
		t.Fatalf("Expected 30x4 samples, got %dx%d", r, c)
	}
	if !mat.Equal(first, second) {
		t.Error("Same seed should reproduce the same samples")
	}

	third, err := Sample(rand.New(rand.NewSource(6)), corr, 30)
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	if mat.Equal(first, third) {
		t.Error("Different seeds should produce different samples")
	}
}

// TestSampleCorrelatedStructure draws a long series and checks the empirical
// correlation roughly matches the target.
func TestSampleCorrelatedStructure(t *testing.T) {
	corr := ToeplitzCorr(3) // lag-1 correlation 0.5

	data, err := Sample(rand.New(rand.NewSource(9)), corr, 5000)
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}

	col0 := mat.Col(nil, 0, data)
	col1 := mat.Col(nil, 1, data)
	got := pearson(col0, col1)
	if math.Abs(got-0.5) > 0.1 {
		t.Errorf("Empirical lag-1 correlation %g, expected near 0.5", got)
	}
}

// TestSubjectAndCohort verifies recording construction over a location set.
func TestSubjectAndCohort(t *testing.T) {
	locs := locations.Grid(2, 2, 1, 10)
	corr := DistanceCorr(locs)

	rng := rand.New(rand.NewSource(1))
	cohort, err := Cohort(rng, locs, corr, 3, 40, 250)
	if err != nil {
		t.Fatalf("Cohort failed: %v", err)
	}
	if len(cohort) != 3 {
		t.Fatalf("Expected 3 subjects, got %d", len(cohort))
	}
	for i, bo := range cohort {
		if bo.Samples() != 40 || bo.Channels() != 4 {
			t.Errorf("Subject %d: expected 40x4, got %dx%d", i, bo.Samples(), bo.Channels())
		}
		if bo.SampleRate != 250 {
			t.Errorf("Subject %d: expected sample rate 250, got %g", i, bo.SampleRate)
		}
	}

	// Dimension mismatch between correlation and locations.
	if _, err := Subject(rng, locs[:3], corr, 40, 250); err == nil {
		t.Error("Expected error for correlation/location size mismatch")
	}
}

// TestSubsample verifies ascending distinct indices and the range check.
func TestSubsample(t *testing.T) {
	locs := locations.Grid(6, 1, 1, 10)
	corr := ToeplitzCorr(6)
	rng := rand.New(rand.NewSource(2))

	bo, err := Subject(rng, locs, corr, 20, 250)
	if err != nil {
		t.Fatalf("Subject failed: %v", err)
	}

	sub, chosen, err := Subsample(rng, bo, 3)
	if err != nil {
		t.Fatalf("Subsample failed: %v", err)
	}
	if sub.Channels() != 3 || len(chosen) != 3 {
		t.Fatalf("Expected 3 channels, got %d (indices %v)", sub.Channels(), chosen)
	}
	for i := 1; i < len(chosen); i++ {
		if chosen[i] <= chosen[i-1] {
			t.Fatalf("Indices not strictly ascending: %v", chosen)
		}
	}
	for j, idx := range chosen {
		if sub.Locs[j] != bo.Locs[idx] {
			t.Errorf("Channel %d location mismatch", j)
		}
	}

	if _, _, err := Subsample(rng, bo, 7); err == nil {
		t.Error("Expected error subsampling more channels than available")
	}
	if _, _, err := Subsample(rng, bo, 0); err == nil {
		t.Error("Expected error subsampling zero channels")
	}
}

// TestComplement verifies the ascending complement helper.
func TestComplement(t *testing.T) {
	got := Complement([]int{1, 3}, 5)
	want := []int{0, 2, 4}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
}

func pearson(a, b []float64) float64 {
	n := float64(len(a))
	var ma, mb float64
	for i := range a {
		ma += a[i]
		mb += b[i]
	}
	ma /= n
	mb /= n
	var num, da, db float64
	for i := range a {
		x, y := a[i]-ma, b[i]-mb
		num += x * y
		da += x * x
		db += y * y
	}
	return num / math.Sqrt(da*db)
}
