package recon

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// PseudoInverse computes the Moore-Penrose pseudo-inverse of a by truncated
// SVD. Singular values below max(m,n)·eps·σmax are treated as zero, so
// rank-deficient and near-singular inputs yield the least-norm solution
// instead of an error. The truncation threshold is fixed, which keeps the
// result deterministic for identical inputs.
func PseudoInverse(a mat.Matrix) (*mat.Dense, error) {
	m, n := a.Dims()

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, fmt.Errorf("recon: SVD factorization failed for %dx%d matrix", m, n)
	}

	s := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	tol := float64(max(m, n)) * eps * s[0]

	// Scale the columns of V by the inverted non-negligible singular values,
	// then A⁺ = V·Σ⁺·Uᵀ.
	k := len(s)
	scaled := mat.NewDense(n, k, nil)
	for j := 0; j < k; j++ {
		if s[j] <= tol {
			continue
		}
		inv := 1 / s[j]
		for i := 0; i < n; i++ {
			scaled.Set(i, j, v.At(i, j)*inv)
		}
	}

	pinv := mat.NewDense(n, m, nil)
	pinv.Mul(scaled, u.T())
	return pinv, nil
}

// eps is the double precision machine epsilon.
var eps = math.Nextafter(1, 2) - 1
