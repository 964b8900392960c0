// SPDX-License-Identifier: MIT

package chain

import (
	"fmt"

	"github.com/katalvlaran/lvmcmc/matrix"
)

// Step is one sampler iteration as handed to a backend.
type Step struct {
	Positions *matrix.Dense // W×D
	LogProb   []float64     // len W
	Accepted  []bool        // len W
}

// Validate checks the record against an ensemble shape.
func (s Step) Validate(walkers, dims int) error {
	if err := matrix.ValidateNotNil(s.Positions); err != nil {
		return fmt.Errorf("Step: %w", err)
	}
	if s.Positions.Rows() != walkers || s.Positions.Cols() != dims ||
		len(s.LogProb) != walkers || len(s.Accepted) != walkers {
		return fmt.Errorf("Step: positions %dx%d, %d log-probs, %d flags for %dx%d: %w",
			s.Positions.Rows(), s.Positions.Cols(), len(s.LogProb), len(s.Accepted), walkers, dims, ErrShape)
	}

	return nil
}
