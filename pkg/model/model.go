// Package model maintains a correlation model over a fixed set of reference
// brain locations. The model is kept in sufficient-statistics form: a
// numerator of summed Fisher z-transformed correlations and a denominator of
// per-entry observation counts, so new subjects can be folded in
// incrementally without refitting.
package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"brainrecon/pkg/brain"
	"brainrecon/pkg/locations"
	"brainrecon/pkg/recon"
)

// Model accumulates pairwise correlation evidence across subjects.
type Model struct {
	// Locs defines the index space: entry (i, j) of the statistics refers to
	// the correlation between Locs[i] and Locs[j].
	Locs locations.Set

	// Numerator is the L×L sum of Fisher z-transformed subject correlations.
	Numerator *mat.Dense

	// Denominator is the L×L count of subjects contributing to each entry.
	Denominator *mat.Dense

	// Subjects is the number of recordings folded into the model.
	Subjects int
}

// New creates an empty model over the reference locations and folds in the
// given recordings, if any.
func New(locs locations.Set, recordings ...*brain.Brain) (*Model, error) {
	if len(locs) == 0 {
		return nil, fmt.Errorf("model: empty location set")
	}
	l := len(locs)
	m := &Model{
		Locs:        locs,
		Numerator:   mat.NewDense(l, l, nil),
		Denominator: mat.NewDense(l, l, nil),
	}
	if err := m.Update(recordings...); err != nil {
		return nil, err
	}
	return m, nil
}

// Update folds additional subject recordings into the sufficient statistics.
// Each recording's channels are matched to their nearest model locations; the
// subject's pairwise correlations are z-transformed and accumulated at those
// index pairs only. Correlations that saturate to ±1 carry no finite z-score
// and are skipped.
func (m *Model) Update(recordings ...*brain.Brain) error {
	for _, bo := range recordings {
		indices, err := m.Locs.NearestIndices(bo.Locs)
		if err != nil {
			return fmt.Errorf("model: matching recording locations: %w", err)
		}
		seen := make(map[int]bool, len(indices))
		for _, idx := range indices {
			if seen[idx] {
				return fmt.Errorf("model: two channels map to the same model location %d", idx)
			}
			seen[idx] = true
		}

		corr := subjectCorrelation(bo.Data)
		k := len(indices)
		for a := 0; a < k; a++ {
			for b := 0; b < k; b++ {
				if a == b {
					continue
				}
				z := R2Z(corr.At(a, b))
				if math.IsNaN(z) || math.IsInf(z, 0) {
					continue
				}
				i, j := indices[a], indices[b]
				m.Numerator.Set(i, j, m.Numerator.At(i, j)+z)
				m.Denominator.Set(i, j, m.Denominator.At(i, j)+1)
			}
		}
		m.Subjects++
	}
	return nil
}

// Correlation materializes the model into correlation form: averaged z-scores
// mapped back through the inverse Fisher transform, with the diagonal fixed
// at exactly 1. Off-diagonal entries no subject ever co-observed are NaN.
//
// The returned matrix is a fresh copy; it may be shared read-only across
// concurrent reconstruction calls.
func (m *Model) Correlation() *mat.Dense {
	l := len(m.Locs)
	out := mat.NewDense(l, l, nil)
	for i := 0; i < l; i++ {
		for j := 0; j < l; j++ {
			if i == j {
				out.Set(i, j, 1)
				continue
			}
			den := m.Denominator.At(i, j)
			if den == 0 {
				out.Set(i, j, math.NaN())
				continue
			}
			out.Set(i, j, Z2R(m.Numerator.At(i, j)/den))
		}
	}
	return out
}

// Predict reconstructs the recording at every model location. Observed
// channels pass through standardized; unobserved locations receive the
// conditional Gaussian estimate. The result covers all L model locations in
// model order.
func (m *Model) Predict(bo *brain.Brain) (*brain.Brain, error) {
	observed, err := m.Locs.NearestIndices(bo.Locs)
	if err != nil {
		return nil, fmt.Errorf("model: matching recording locations: %w", err)
	}

	est, unknown, err := recon.Reconstruct(m.Correlation(), bo.Data, observed)
	if err != nil {
		return nil, err
	}

	t := bo.Samples()
	l := len(m.Locs)
	full := mat.NewDense(t, l, nil)

	z := recon.Standardize(bo.Data)
	for col, idx := range observed {
		for i := 0; i < t; i++ {
			full.Set(i, idx, z.At(i, col))
		}
	}
	for col, idx := range unknown {
		for i := 0; i < t; i++ {
			full.Set(i, idx, est.At(i, col))
		}
	}

	return brain.New(full, append(locations.Set(nil), m.Locs...), bo.SampleRate)
}

// subjectCorrelation computes the K×K Pearson correlation matrix across the
// columns of a T×K recording.
func subjectCorrelation(data *mat.Dense) *mat.Dense {
	t, k := data.Dims()
	cols := make([][]float64, k)
	for j := 0; j < k; j++ {
		cols[j] = make([]float64, t)
		mat.Col(cols[j], j, data)
	}
	out := mat.NewDense(k, k, nil)
	for i := 0; i < k; i++ {
		out.Set(i, i, 1)
		for j := i + 1; j < k; j++ {
			c := stat.Correlation(cols[i], cols[j], nil)
			out.Set(i, j, c)
			out.Set(j, i, c)
		}
	}
	return out
}
