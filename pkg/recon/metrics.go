package recon

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// CorrColumns computes the Pearson correlation between corresponding columns
// of x and y across the time axis, one coefficient per location. It is the
// offline evaluation metric for comparing a reconstruction against ground
// truth (or against another reconstruction) over the same location/time grid.
//
// A column pair with zero variance yields NaN, which batch harnesses treat as
// a missing-value sentinel.
func CorrColumns(x, y mat.Matrix) ([]float64, error) {
	xr, xc := x.Dims()
	yr, yc := y.Dims()
	if xr != yr || xc != yc {
		return nil, dimErrf("correlating %dx%d against %dx%d", xr, xc, yr, yc)
	}

	coeffs := make([]float64, xc)
	xcol := make([]float64, xr)
	ycol := make([]float64, yr)
	for j := 0; j < xc; j++ {
		mat.Col(xcol, j, x)
		mat.Col(ycol, j, y)
		coeffs[j] = stat.Correlation(xcol, ycol, nil)
	}
	return coeffs, nil
}
