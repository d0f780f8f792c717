// Package recon implements the spatial reconstruction engine: estimation of
// activity at unrecorded brain locations, conditioned on recordings at a
// subset of locations, through a pairwise correlation kernel.
//
// The engine is a pure function of its inputs and retains no state between
// calls. A correlation matrix may be shared read-only across concurrent calls
// without synchronization.
package recon

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Reconstruct estimates activity at the model locations that were not
// recorded.
//
// corr is the L×L correlation model: symmetric with unit diagonal, already in
// correlation form rather than raw sufficient statistics. obs is the T×K
// observation matrix (T time samples at K recorded locations) and observed
// holds the K model indices the columns of obs correspond to. The observation
// is standardized columnwise before conditioning, so callers may pass raw or
// z-scored data interchangeably.
//
// The estimate at the unknown locations is Kba·pinv(Kaa)·Yᵀ, returned as a
// T×(L−K) matrix whose columns follow the returned unknown indices in
// ascending order. The pseudo-inverse tolerates rank-deficient observed
// blocks; correlation entries that are non-finite (location pairs the model
// never co-observed) contribute zero weight.
//
// When every model location is observed, the unknown set is empty and the
// returned estimate is nil.
func Reconstruct(corr mat.Matrix, obs mat.Matrix, observed []int) (*mat.Dense, []int, error) {
	l, lc := corr.Dims()
	if l != lc {
		return nil, nil, dimErrf("correlation model must be square, got %dx%d", l, lc)
	}
	t, k := obs.Dims()
	if k != len(observed) {
		return nil, nil, dimErrf("observation has %d columns but %d observed indices", k, len(observed))
	}
	if k == 0 {
		return nil, nil, dimErrf("need at least one observed location")
	}

	seen := make(map[int]bool, k)
	for _, idx := range observed {
		if idx < 0 || idx >= l {
			return nil, nil, dimErrf("observed index %d out of range [0, %d)", idx, l)
		}
		if seen[idx] {
			return nil, nil, dimErrf("observed index %d appears more than once", idx)
		}
		seen[idx] = true
	}

	unknown := make([]int, 0, l-k)
	for i := 0; i < l; i++ {
		if !seen[i] {
			unknown = append(unknown, i)
		}
	}
	sort.Ints(unknown)
	if len(unknown) == 0 {
		return nil, []int{}, nil
	}

	// Kaa is the observed-observed block, Kba the unknown-observed block.
	kaa := mat.NewDense(k, k, nil)
	finite := 0
	for i, a := range observed {
		for j, b := range observed {
			v := corr.At(a, b)
			if isFinite(v) {
				finite++
			} else {
				v = 0
			}
			kaa.Set(i, j, v)
		}
	}
	if finite == 0 {
		return nil, nil, &DegenerateModelError{Observed: append([]int(nil), observed...)}
	}

	kba := mat.NewDense(len(unknown), k, nil)
	for i, u := range unknown {
		for j, a := range observed {
			v := corr.At(u, a)
			if !isFinite(v) {
				v = 0
			}
			kba.Set(i, j, v)
		}
	}

	pinv, err := PseudoInverse(kaa)
	if err != nil {
		return nil, nil, err
	}

	y := Standardize(obs)

	// est = Y·(Kba·pinv(Kaa))ᵀ gives the T×(L−K) layout directly.
	var weights mat.Dense
	weights.Mul(kba, pinv)

	est := mat.NewDense(t, len(unknown), nil)
	est.Mul(y, weights.T())
	return est, unknown, nil
}

// Standardize returns a copy of m with each column shifted to zero mean and
// scaled to unit variance. Columns with zero or non-finite variance are set
// to zero rather than NaN, so a constant channel reconstructs as silence
// instead of poisoning the estimate.
func Standardize(m mat.Matrix) *mat.Dense {
	t, k := m.Dims()
	out := mat.NewDense(t, k, nil)
	col := make([]float64, t)
	for j := 0; j < k; j++ {
		mat.Col(col, j, m)

		mean := floats.Sum(col) / float64(t)

		var ss float64
		for _, v := range col {
			d := v - mean
			ss += d * d
		}
		sigma := math.Sqrt(ss / float64(t))

		if sigma == 0 || !isFinite(sigma) {
			for i := 0; i < t; i++ {
				out.Set(i, j, 0)
			}
			continue
		}
		for i, v := range col {
			out.Set(i, j, (v-mean)/sigma)
		}
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
