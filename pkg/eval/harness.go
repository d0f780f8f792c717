// Package eval runs batch reconstruction studies over simulated cohorts: for
// each combination of model size and electrode count, every cohort subject is
// reconstructed from a sparse subsample of its own channels and scored
// against its full-coverage ground truth. The model is fit on the whole
// cohort, scored subject included.
//
// Iterations are independent, so the grid is fanned out across a bounded
// worker pool and results are collected unordered, tagged with their cell
// coordinates. A failed iteration records a NaN sentinel and the run
// continues.
package eval

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"brainrecon/pkg/brain"
	"brainrecon/pkg/locations"
	"brainrecon/pkg/model"
	"brainrecon/pkg/recon"
	"brainrecon/pkg/simulate"
)

// Study describes a reconstruction sweep.
type Study struct {
	// ModelSubjects are the cohort sizes to fit models with.
	ModelSubjects []int

	// ElectrodeCounts are the per-subject coverage levels to reconstruct from.
	ElectrodeCounts []int

	// Samples is the number of time points per simulated recording.
	Samples int

	// SampleRate is the simulated acquisition rate in Hz.
	SampleRate float64

	// Workers bounds the number of concurrent iterations. Zero or negative
	// means no limit.
	Workers int

	// Seed makes the simulated cohort and subsampling reproducible.
	Seed int64

	// KurtosisThreshold, when positive, drops heavy-tailed channels from each
	// recording before fitting and scoring.
	KurtosisThreshold float64

	// Log receives per-iteration diagnostics. Nil disables logging.
	Log *zap.Logger
}

// Result is one cell of the study grid.
type Result struct {
	// ModelSubjects and Electrodes identify the sweep cell.
	ModelSubjects int
	Electrodes    int

	// Subject is the cohort member this row scored.
	Subject int

	// Correlation is the mean per-location Pearson coefficient between the
	// reconstruction and the ground truth at the unknown locations. NaN marks
	// a failed iteration.
	Correlation float64

	// Err carries the failure for NaN rows, nil otherwise.
	Err error
}

// Run executes the study over the given reference locations, simulating a
// cohort under a distance-derived correlation structure and reconstructing
// each subject in turn. The returned results are unordered; every grid cell
// is present exactly once.
func (s *Study) Run(ctx context.Context, locs locations.Set) ([]Result, error) {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}

	truth := simulate.DistanceCorr(locs)

	maxSubjects := 0
	for _, m := range s.ModelSubjects {
		if m > maxSubjects {
			maxSubjects = m
		}
	}

	rng := rand.New(rand.NewSource(s.Seed))
	cohort, err := simulate.Cohort(rng, locs, truth, maxSubjects, s.Samples, s.SampleRate)
	if err != nil {
		return nil, err
	}
	// Ground truth keeps full coverage; fitting and observation use the
	// filtered recordings.
	fitCohort := cohort
	if s.KurtosisThreshold > 0 {
		fitCohort = make([]*brain.Brain, len(cohort))
		for i, bo := range cohort {
			filtered, kept, err := bo.RemoveKurtotic(s.KurtosisThreshold)
			if err != nil {
				return nil, err
			}
			if len(kept) < bo.Channels() {
				log.Info("rejected kurtotic channels",
					zap.Int("subject", i),
					zap.Int("dropped", bo.Channels()-len(kept)))
			}
			fitCohort[i] = filtered
		}
	}
	log.Info("simulated cohort",
		zap.Int("subjects", maxSubjects),
		zap.Int("locations", len(locs)),
		zap.Int("samples", s.Samples))

	var (
		mu      sync.Mutex
		results []Result
	)

	g, ctx := errgroup.WithContext(ctx)
	if s.Workers > 0 {
		g.SetLimit(s.Workers)
	}

	for _, m := range s.ModelSubjects {
		fitted, err := model.New(locs, fitCohort[:m]...)
		if err != nil {
			return nil, err
		}
		// One read-only correlation matrix shared by all iterations of this
		// cohort size.
		corr := fitted.Correlation()

		for _, n := range s.ElectrodeCounts {
			for i := 0; i < m; i++ {
				m, n, i := m, n, i
				seed := s.Seed ^ int64(m)<<40 ^ int64(n)<<20 ^ int64(i)
				g.Go(func() error {
					select {
					case <-ctx.Done():
						return ctx.Err()
					default:
					}

					res := scoreSubject(corr, locs, fitCohort[i], cohort[i], n, seed)
					res.ModelSubjects = m
					res.Electrodes = n
					res.Subject = i
					if res.Err != nil {
						log.Warn("iteration failed",
							zap.Int("modelSubjects", m),
							zap.Int("electrodes", n),
							zap.Int("subject", i),
							zap.Error(res.Err))
					} else {
						log.Debug("iteration scored",
							zap.Int("modelSubjects", m),
							zap.Int("electrodes", n),
							zap.Int("subject", i),
							zap.Float64("correlation", res.Correlation))
					}

					mu.Lock()
					results = append(results, res)
					mu.Unlock()
					return nil
				})
			}
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// scoreSubject reconstructs one subject from n of its recorded channels and
// scores the estimate at the remaining model locations against the
// full-coverage ground truth. Channel positions in fit need not line up with
// model indices once filtering has dropped channels, so the subsampled
// channels are matched to model indices by nearest location before
// conditioning.
func scoreSubject(corr *mat.Dense, locs locations.Set, fit, truth *brain.Brain, n int, seed int64) Result {
	rng := rand.New(rand.NewSource(seed))

	sub, _, err := simulate.Subsample(rng, fit, n)
	if err != nil {
		return Result{Correlation: math.NaN(), Err: err}
	}
	observed, err := locs.NearestIndices(sub.Locs)
	if err != nil {
		return Result{Correlation: math.NaN(), Err: err}
	}

	est, unknown, err := recon.Reconstruct(corr, sub.Data, observed)
	if err != nil {
		return Result{Correlation: math.NaN(), Err: err}
	}
	if len(unknown) == 0 {
		return Result{Correlation: math.NaN(), Err: nil}
	}

	held, err := truth.GetSlice(nil, unknown)
	if err != nil {
		return Result{Correlation: math.NaN(), Err: err}
	}

	coeffs, err := recon.CorrColumns(recon.Standardize(held.Data), est)
	if err != nil {
		return Result{Correlation: math.NaN(), Err: err}
	}
	return Result{Correlation: meanFinite(coeffs)}
}

// meanFinite averages the finite entries of coeffs; all-NaN input yields NaN.
func meanFinite(coeffs []float64) float64 {
	finite := coeffs[:0:0]
	for _, c := range coeffs {
		if !math.IsNaN(c) && !math.IsInf(c, 0) {
			finite = append(finite, c)
		}
	}
	if len(finite) == 0 {
		return math.NaN()
	}
	return stat.Mean(finite, nil)
}

// Summary aggregates results into mean correlation per (modelSubjects,
// electrodes) cell, skipping NaN sentinels.
func Summary(results []Result) map[[2]int]float64 {
	sums := make(map[[2]int]float64)
	counts := make(map[[2]int]int)
	for _, r := range results {
		if math.IsNaN(r.Correlation) {
			continue
		}
		key := [2]int{r.ModelSubjects, r.Electrodes}
		sums[key] += r.Correlation
		counts[key]++
	}
	out := make(map[[2]int]float64, len(sums))
	for key, sum := range sums {
		out[key] = sum / float64(counts[key])
	}
	return out
}
