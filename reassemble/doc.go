// SPDX-License-Identifier: MIT

// Package reassemble turns the flat sample matrix of a finished session into
// named, shape-aware parameter series.
//
// Columns are consumed in shape-table order with a running offset: a
// parameter of shape [1] becomes one series, any other shape becomes
// product(shape) component series. Settings fields other than the shape
// table are merged into the result.
//
// When no thinning stride is given, AutoThin picks max(1, round(τmax/2)) from
// the stored chain. If τ cannot be estimated reliably (chain shorter than 50τ)
// it falls back to a stride of 1, logs a warning and marks the result
// unreliable. This is never an error.
package reassemble
