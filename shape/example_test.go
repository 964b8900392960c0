// SPDX-License-Identifier: MIT

package shape_test

import (
	"encoding/json"
	"fmt"

	"github.com/katalvlaran/lvmcmc/shape"
)

// ExampleTable lays out a scalar and a 2×2 block over five flat columns.
func ExampleTable() {
	t := shape.New()
	_ = t.Add("a", 1)
	_ = t.Add("b", 2, 2)

	off, _ := t.Offset("b")
	raw, _ := json.Marshal(t)
	fmt.Println(t.Dim(), off)
	fmt.Println(t.Labels())
	fmt.Println(string(raw))
	// Output:
	// 5 1
	// [a b_0 b_1 b_2 b_3]
	// {"a":[1],"b":[2,2]}
}
