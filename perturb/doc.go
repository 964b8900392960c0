// SPDX-License-Identifier: MIT

// Package perturb builds the initial walker cloud for an ensemble sampler.
//
// Each walker row is θ + θ·pert·U(−1,1), drawn elementwise. The cloud is
// accepted only when it is numerically non-degenerate: every dimension has
// non-zero spread and the condition number of the (W×D) position matrix is
// finite. Otherwise the draw is repeated, up to a fixed retry budget (20 by
// default), after which a *DegenerateError lists the dimensions whose
// perturbation magnitude is identically zero, the usual culprit being a zero
// estimate or a zero-width bound.
//
// Optional bounds clip θ once, before the first draw, into
// [lower/(1−pert), upper/(1+pert)] so that perturbed values stay inside the
// caller's bounds in expectation. With bounds, every pert must lie in (−1, 1).
//
// Theta is stateless: all randomness comes from Options.Rand or Options.Seed.
package perturb
