// Package simulate builds synthetic cohorts with a known correlational
// structure, used to validate that the model and reconstruction engine can
// recover that structure from sparse observations.
package simulate

import (
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"brainrecon/pkg/brain"
	"brainrecon/pkg/locations"
)

// ToeplitzCorr returns the n×n triangular Toeplitz correlation matrix
// R[i][j] = 1 − |i−j|/(n−1). Correlation decays linearly with index
// separation, which makes recovered structure easy to inspect.
func ToeplitzCorr(n int) *mat.SymDense {
	r := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		r.SetSym(i, i, 1)
		for j := i + 1; j < n; j++ {
			r.SetSym(i, j, 1-float64(j-i)/float64(n-1))
		}
	}
	return r
}

// DistanceCorr derives a correlation matrix from the pairwise distances of a
// location set: nearby locations correlate strongly, distant ones weakly.
// R = (max(D) − D) rescaled to [0, 1], diagonal 1.
func DistanceCorr(locs locations.Set) *mat.SymDense {
	d := locs.Distances()
	n := d.SymmetricDim()

	maxD := 0.0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if v := d.At(i, j); v > maxD {
				maxD = v
			}
		}
	}

	r := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		r.SetSym(i, i, 1)
		for j := i + 1; j < n; j++ {
			if maxD == 0 {
				r.SetSym(i, j, 1)
				continue
			}
			r.SetSym(i, j, (maxD-d.At(i, j))/maxD)
		}
	}
	return r
}

// Sample draws nSamples time points from a zero-mean Gaussian with the given
// correlation structure by colouring i.i.d. standard normals with the upper
// Cholesky factor: data = Z·U where R = UᵀU. Correlation matrices derived
// from distances are not always strictly positive definite, so factorization
// is retried with escalating diagonal jitter before giving up.
func Sample(rng *rand.Rand, corr mat.Symmetric, nSamples int) (*mat.Dense, error) {
	n := corr.SymmetricDim()

	sym := mat.NewSymDense(n, nil)
	sym.CopySym(corr)

	var chol mat.Cholesky
	jitter := 1e-10
	for attempt := 0; ; attempt++ {
		if chol.Factorize(sym) {
			break
		}
		if attempt >= 12 {
			return nil, fmt.Errorf("simulate: correlation matrix is not positive definite (jitter reached %.1e)", jitter)
		}
		for i := 0; i < n; i++ {
			sym.SetSym(i, i, sym.At(i, i)+jitter)
		}
		jitter *= 10
	}

	var u mat.TriDense
	chol.UTo(&u)

	z := mat.NewDense(nSamples, n, nil)
	for i := 0; i < nSamples; i++ {
		for j := 0; j < n; j++ {
			z.Set(i, j, rng.NormFloat64())
		}
	}

	data := mat.NewDense(nSamples, n, nil)
	data.Mul(z, &u)
	return data, nil
}

// Subject simulates a full-coverage recording: activity at every reference
// location, drawn under the given correlation structure.
func Subject(rng *rand.Rand, locs locations.Set, corr mat.Symmetric, nSamples int, sampleRate float64) (*brain.Brain, error) {
	if corr.SymmetricDim() != len(locs) {
		return nil, fmt.Errorf("simulate: correlation is %d×%d but there are %d locations",
			corr.SymmetricDim(), corr.SymmetricDim(), len(locs))
	}
	data, err := Sample(rng, corr, nSamples)
	if err != nil {
		return nil, err
	}
	return brain.New(data, append(locations.Set(nil), locs...), sampleRate)
}

// Cohort simulates nSubjects independent full-coverage recordings under a
// shared correlation structure.
func Cohort(rng *rand.Rand, locs locations.Set, corr mat.Symmetric, nSubjects, nSamples int, sampleRate float64) ([]*brain.Brain, error) {
	cohort := make([]*brain.Brain, nSubjects)
	for i := range cohort {
		bo, err := Subject(rng, locs, corr, nSamples, sampleRate)
		if err != nil {
			return nil, err
		}
		cohort[i] = bo
	}
	return cohort, nil
}

// Subsample restricts a full-coverage recording to n randomly chosen
// electrode locations, mimicking a real patient's sparse coverage. The chosen
// indices are returned in ascending order alongside the reduced recording.
func Subsample(rng *rand.Rand, bo *brain.Brain, n int) (*brain.Brain, []int, error) {
	k := bo.Channels()
	if n < 1 || n > k {
		return nil, nil, fmt.Errorf("simulate: cannot subsample %d of %d channels", n, k)
	}
	perm := rng.Perm(k)
	chosen := append([]int(nil), perm[:n]...)
	sort.Ints(chosen)

	sub, err := bo.GetSlice(nil, chosen)
	if err != nil {
		return nil, nil, err
	}
	return sub, chosen, nil
}

// Complement returns the ascending indices in [0, n) not present in chosen.
// chosen must be sorted.
func Complement(chosen []int, n int) []int {
	out := make([]int, 0, n-len(chosen))
	next := 0
	for i := 0; i < n; i++ {
		if next < len(chosen) && chosen[next] == i {
			next++
			continue
		}
		out = append(out, i)
	}
	return out
}
