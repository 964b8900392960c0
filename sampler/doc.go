// SPDX-License-Identifier: MIT

// Package sampler implements an affine-invariant ensemble sampler.
//
// Every iteration picks one proposal move at random (by weight) and applies it
// to the ensemble in two halves: walkers are shuffled into a red and a blue
// set, the red set proposes against the blue one, then the roles swap using
// the freshly updated red positions. Log-probabilities of each half are
// evaluated through a pool.Pool, acceptance is Metropolis–Hastings with the
// move's log proposal factor, and the completed iteration is appended to the
// backend before Step returns.
//
// Moves:
//   - StretchMove: z ~ g(z) ∝ 1/√z on [1/a, a], factor (D−1)·log z.
//   - DEMove: differential evolution, q = s + γ·(c_j − c_k) + σ·N(0,1).
//
// A Sampler is driven by a single goroutine.
package sampler
