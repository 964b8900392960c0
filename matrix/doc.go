// SPDX-License-Identifier: MIT

// Package matrix provides the dense storage and conditioning check used to
// build and vet walker position matrices.
//
// The matrix package provides:
//
//   - Dense, a row-major float64 matrix with bounds-checked At/Set.
//   - Validators for nil and non-finite input.
//   - Cond, the 2-norm condition number σmax/σmin from an SVD, used to reject rank-deficient
//     walker clouds before an ensemble sampler starts.
//
// All functions validate their inputs and return sentinel errors (see errors.go)
// wrapped as "<Op>: <sentinel>" so callers can match with errors.Is.
package matrix
