// SPDX-License-Identifier: MIT

// Package lvmcmc drives ensemble MCMC calibration sessions: it spreads a
// walker ensemble around a point estimate, runs an affine-invariant ensemble
// sampler until the chain converges or the iteration budget runs out, and
// turns the flat chain back into named, shaped parameter samples.
//
// 🚀 What is in the box?
//
//	• Walker initialization: relative perturbation with bound clipping and
//	  condition-number checks against a degenerate ensemble
//	• Sampling: red/blue ensemble updates with differential-evolution and
//	  stretch moves, log-probabilities evaluated on a worker pool
//	• Convergence: integrated autocorrelation time, checked every period
//	  (τ·50 < iterations and relative drift < 3%)
//	• Storage: in-memory or SQLite backends, resumable from the last step
//	• Output: settings/samples JSON files and SVG autocorrelation/trace plots
//
// Packages:
//
//	shape/        — ordered parameter-name → shape table
//	perturb/      — walker initialization (Theta, Condition)
//	autocorr/     — integrated autocorrelation time (FFT based)
//	convergence/  — dual-threshold convergence monitor
//	sampler/      — ensemble sampler and moves
//	backend/      — chain storage (memory, sqlite)
//	driver/       — session loop (Run)
//	diagnostics/  — τ trajectory and trace plots
//	reassemble/   — flat chain → named samples (FromBackend, AutoThin)
//	settings/     — settings document and run file store
//	config/       — YAML run files
//	cmd/lvmcmc/   — command-line front end
//
// Session flow:
//
//	theta, pert ──► perturb.Theta ──► W×D positions
//	                                      │
//	                                      ▼
//	         ┌──────────── driver.Run ───────────────┐
//	         │ step ► step ► … every period:          │
//	         │   diagnostics τ ► convergence.Check    │
//	         └───────────────┬───────────────────────┘
//	                         ▼
//	        backend ──► reassemble.FromBackend ──► {name: samples}
//
//	go install github.com/katalvlaran/lvmcmc/cmd/lvmcmc@latest
package lvmcmc
