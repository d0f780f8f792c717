package recon

import "fmt"

// DimensionMismatchError reports a shape or index inconsistency between the
// correlation model and an observation. It is a caller error: the engine
// never retries, the failure propagates synchronously.
type DimensionMismatchError struct {
	Detail string
}

func (e *DimensionMismatchError) Error() string {
	return "recon: dimension mismatch: " + e.Detail
}

func dimErrf(format string, args ...interface{}) error {
	return &DimensionMismatchError{Detail: fmt.Sprintf(format, args...)}
}

// DegenerateModelError reports that the observed-observed correlation block is
// entirely non-finite, meaning the model carries no information about the
// observed locations. Observed holds the offending model indices so callers
// running aggregate studies can decide what to drop.
type DegenerateModelError struct {
	Observed []int
}

func (e *DegenerateModelError) Error() string {
	return fmt.Sprintf("recon: correlation block for observed locations %v is entirely non-finite", e.Observed)
}
