// SPDX-License-Identifier: MIT

// Package shape defines Table, the ordered name → shape mapping that ties the
// flat parameter vector used by an ensemble sampler to named, possibly
// multi-dimensional model parameters.
//
// Insertion order is significant: it fixes the column offset of every
// parameter block in the flat vector. Table therefore keeps its own order and
// serializes to JSON objects whose key order is the insertion order, so a
// table written by one run decodes identically in the next.
//
//	t := shape.New()
//	_ = t.Add("beta", 1)     // columns [0]
//	_ = t.Add("f_h", 2)      // columns [1, 2]
//	t.Dim()                  // 3
//	t.Labels()               // [beta f_h_0 f_h_1]
package shape
