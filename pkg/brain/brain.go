// Package brain holds recording objects: multichannel time series paired with
// the electrode locations they were recorded at.
package brain

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"brainrecon/pkg/locations"
	"brainrecon/pkg/recon"
)

// Brain is a single subject's recording: T time samples at K electrode
// locations. Data columns follow the order of Locs.
type Brain struct {
	// Data is the T×K sample matrix (rows: time, cols: electrodes).
	Data *mat.Dense

	// Locs are the electrode coordinates, one per data column.
	Locs locations.Set

	// SampleRate is the acquisition rate in Hz.
	SampleRate float64
}

// New builds a recording and validates that the data column count matches the
// number of electrode locations.
func New(data *mat.Dense, locs locations.Set, sampleRate float64) (*Brain, error) {
	_, k := data.Dims()
	if k != len(locs) {
		return nil, fmt.Errorf("brain: data has %d columns but %d locations", k, len(locs))
	}
	return &Brain{Data: data, Locs: locs, SampleRate: sampleRate}, nil
}

// Samples returns the number of time samples T.
func (b *Brain) Samples() int {
	t, _ := b.Data.Dims()
	return t
}

// Channels returns the number of recorded locations K.
func (b *Brain) Channels() int {
	_, k := b.Data.Dims()
	return k
}

// Info returns a human-readable summary of the recording.
func (b *Brain) Info() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "samples:     %d\n", b.Samples())
	fmt.Fprintf(&sb, "channels:    %d\n", b.Channels())
	fmt.Fprintf(&sb, "sample rate: %g Hz\n", b.SampleRate)
	if b.SampleRate > 0 {
		fmt.Fprintf(&sb, "duration:    %.3f s\n", float64(b.Samples())/b.SampleRate)
	}
	return sb.String()
}

// GetSlice returns a new recording restricted to the given time sample
// indices and/or location indices. A nil slice selects everything along that
// axis. Indices are taken in the order given.
func (b *Brain) GetSlice(times, locs []int) (*Brain, error) {
	t, k := b.Data.Dims()
	if times == nil {
		times = make([]int, t)
		for i := range times {
			times[i] = i
		}
	}
	if locs == nil {
		locs = make([]int, k)
		for i := range locs {
			locs[i] = i
		}
	}
	for _, ti := range times {
		if ti < 0 || ti >= t {
			return nil, fmt.Errorf("brain: time index %d out of range [0, %d)", ti, t)
		}
	}
	subLocs, err := b.Locs.Subset(locs)
	if err != nil {
		return nil, fmt.Errorf("brain: %w", err)
	}

	data := mat.NewDense(len(times), len(locs), nil)
	for i, ti := range times {
		for j, li := range locs {
			data.Set(i, j, b.Data.At(ti, li))
		}
	}
	return &Brain{Data: data, Locs: subLocs, SampleRate: b.SampleRate}, nil
}

// Zscore returns a copy of the recording with each channel standardized to
// zero mean and unit variance.
func (b *Brain) Zscore() *Brain {
	return &Brain{
		Data:       recon.Standardize(b.Data),
		Locs:       append(locations.Set(nil), b.Locs...),
		SampleRate: b.SampleRate,
	}
}

// RemoveKurtotic drops channels whose excess kurtosis exceeds the threshold.
// Electrodes near epileptogenic tissue or with acquisition artifacts show
// heavy-tailed amplitude distributions; rejecting them before model fitting
// is standard practice. Returns the filtered recording and the indices of the
// channels kept. Channels with undefined kurtosis (zero variance) are
// dropped.
func (b *Brain) RemoveKurtotic(threshold float64) (*Brain, []int, error) {
	t, k := b.Data.Dims()
	col := make([]float64, t)
	keep := make([]int, 0, k)
	for j := 0; j < k; j++ {
		mat.Col(col, j, b.Data)
		if kur := excessKurtosis(col); kur <= threshold {
			keep = append(keep, j)
		}
	}
	if len(keep) == 0 {
		return nil, nil, fmt.Errorf("brain: kurtosis threshold %g rejected all %d channels", threshold, k)
	}
	filtered, err := b.GetSlice(nil, keep)
	if err != nil {
		return nil, nil, err
	}
	return filtered, keep, nil
}

// excessKurtosis computes the population excess kurtosis m4/m2² − 3. Zero
// variance yields +Inf so that dead channels are rejected by any threshold.
func excessKurtosis(x []float64) float64 {
	m2 := stat.Moment(2, x, nil)
	if m2 == 0 {
		return math.Inf(1)
	}
	m4 := stat.Moment(4, x, nil)
	return m4/(m2*m2) - 3
}
