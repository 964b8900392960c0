// SPDX-License-Identifier: MIT

// Package autocorr estimates the integrated autocorrelation time of an
// ensemble chain.
//
// For each dimension the normalized autocorrelation function of every walker
// is computed with a zero-padded FFT (length 2·nextpow2(N)), averaged across
// walkers, and summed into τ(M) = 2·Σ_{k<M} ρ(k) − 1. The window M is the first
// lag with M ≥ c·τ(M) (Sokal's self-consistent window, c = 5), or the last lag
// when no such M exists.
//
// The estimate is only trusted when the chain is longer than tol·τ for every
// dimension (tol = 50). Shorter chains produce an *Error that still carries
// the estimate; callers decide whether to fall back or to fail. A constant
// series has an undefined estimate (NaN) and is reported the same way.
package autocorr
