// SPDX-License-Identifier: MIT

package perturb

import (
	"errors"
	"fmt"
)

var (
	// ErrLengthMismatch indicates len(theta) != len(pert).
	ErrLengthMismatch = errors.New("perturb: theta and pert lengths differ")

	// ErrBoundsMismatch indicates bounds were given but not one pair per dimension,
	// or a pair has lower > upper.
	ErrBoundsMismatch = errors.New("perturb: bounds must hold one ordered (lower, upper) pair per dimension")

	// ErrMultiplier indicates a walker multiplier below 2.
	ErrMultiplier = errors.New("perturb: walker multiplier must be at least 2")

	// ErrInvalidEstimate indicates an empty estimate, a NaN/Inf in theta, pert or
	// bounds, or a bounded dimension with |pert| ≥ 1.
	ErrInvalidEstimate = errors.New("perturb: estimate must be non-empty and finite")

	// ErrDegenerate is wrapped by *DegenerateError.
	ErrDegenerate = errors.New("perturb: walker cloud is degenerate")
)

// DegenerateError reports a walker cloud that stayed ill-conditioned for the
// whole retry budget.
type DegenerateError struct {
	Attempts int     // draws performed
	Cond     float64 // condition number of the last draw
	// ZeroDims lists dimensions whose perturbation magnitude |θ·pert| is zero
	// after clipping, or whose bound has zero width.
	ZeroDims []int
}

func (e *DegenerateError) Error() string {
	if len(e.ZeroDims) == 0 {
		return fmt.Sprintf("%v after %d attempts (cond=%g)", ErrDegenerate, e.Attempts, e.Cond)
	}

	return fmt.Sprintf("%v after %d attempts (cond=%g); zero perturbation in dimensions %v: check for zero-valued estimates or bounds",
		ErrDegenerate, e.Attempts, e.Cond, e.ZeroDims)
}

// Unwrap makes errors.Is(err, ErrDegenerate) hold.
func (e *DegenerateError) Unwrap() error { return ErrDegenerate }

// perturbErrorf wraps err with the operation name.
func perturbErrorf(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
