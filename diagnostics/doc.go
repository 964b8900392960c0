// SPDX-License-Identifier: MIT

// Package diagnostics renders the periodic artifacts of a sampling session
// and hands the current autocorrelation-time estimate back to the driver.
//
// Renderer is the capability the driver calls once per diagnostic period.
// Two implementations are provided:
//
//   - SVG estimates τ on growing prefixes of the chain (step ⌈N/100⌉, no
//     reliability check), writes an autocorrelation plot of τ against n with
//     the n/50 reference line, and a traceplot with one panel per parameter
//     label and every walker overlaid. The last estimate is returned.
//   - Estimator returns the full-chain estimate without writing anything.
//
// Output files follow the run naming convention:
//
//	<fig>/autocorrelation/<id>_AUTOCORR_<date>.svg
//	<fig>/traceplots/<id>_TRACE_<date>.svg
package diagnostics
