// SPDX-License-Identifier: MIT

package shape

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrEmptyName is returned when a parameter name is empty.
	ErrEmptyName = errors.New("shape: empty parameter name")

	// ErrDuplicateName is returned when a parameter is added twice.
	ErrDuplicateName = errors.New("shape: duplicate parameter name")

	// ErrBadShape is returned for an empty shape or a non-positive extent.
	ErrBadShape = errors.New("shape: shape must be non-empty with positive extents")

	// ErrDimMismatch is returned when the table's total size differs from the
	// flat dimensionality it is checked against.
	ErrDimMismatch = errors.New("shape: table size does not match dimension count")

	// ErrMalformedJSON is returned when a serialized table is not a JSON object
	// of name → []int.
	ErrMalformedJSON = errors.New("shape: malformed table document")
)

// Table is an ordered mapping from parameter name to shape.
// The zero value is an empty, usable table.
type Table struct {
	names  []string
	shapes map[string][]int
}

// New returns an empty Table.
func New() *Table {
	return &Table{shapes: make(map[string][]int)}
}

// Add appends a parameter with the given shape. A scalar parameter is Add(name, 1).
func (t *Table) Add(name string, shape ...int) error {
	if name == "" {
		return ErrEmptyName
	}
	if len(shape) == 0 {
		return fmt.Errorf("%q: %w", name, ErrBadShape)
	}
	for _, n := range shape {
		if n <= 0 {
			return fmt.Errorf("%q %v: %w", name, shape, ErrBadShape)
		}
	}
	if t.shapes == nil {
		t.shapes = make(map[string][]int)
	}
	if _, ok := t.shapes[name]; ok {
		return fmt.Errorf("%q: %w", name, ErrDuplicateName)
	}
	t.names = append(t.names, name)
	t.shapes[name] = append([]int(nil), shape...)

	return nil
}

// Len returns the number of parameters.
func (t *Table) Len() int { return len(t.names) }

// Names returns parameter names in insertion order.
func (t *Table) Names() []string {
	return append([]string(nil), t.names...)
}

// Shape returns a copy of the shape registered for name.
func (t *Table) Shape(name string) ([]int, bool) {
	s, ok := t.shapes[name]
	if !ok {
		return nil, false
	}

	return append([]int(nil), s...), true
}

// Size returns the number of scalar elements in shape (the product of extents).
func Size(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}

	return n
}

// IsScalar reports whether shape is exactly [1]. Any other shape, including
// [1 1], is reassembled as a list of component series.
func IsScalar(shape []int) bool {
	return len(shape) == 1 && shape[0] == 1
}

// Dim returns the flat dimensionality: the sum of Size over all parameters.
func (t *Table) Dim() int {
	d := 0
	for _, name := range t.names {
		d += Size(t.shapes[name])
	}

	return d
}

// Offset returns the first flat column of name's block.
func (t *Table) Offset(name string) (int, bool) {
	off := 0
	for _, n := range t.names {
		if n == name {
			return off, true
		}
		off += Size(t.shapes[n])
	}

	return 0, false
}

// Each calls fn for every parameter in order with its running column offset.
// Iteration stops at the first non-nil error, which is returned.
func (t *Table) Each(fn func(name string, shape []int, offset int) error) error {
	off := 0
	for _, name := range t.names {
		s := t.shapes[name]
		if err := fn(name, s, off); err != nil {
			return err
		}
		off += Size(s)
	}

	return nil
}

// Labels expands the table into one label per flat column: scalar parameters
// keep their name, others get a _<k> suffix over their flattened elements.
func (t *Table) Labels() []string {
	out := make([]string, 0, t.Dim())
	_ = t.Each(func(name string, s []int, _ int) error {
		if IsScalar(s) {
			out = append(out, name)
			return nil
		}
		for k := 0; k < Size(s); k++ {
			out = append(out, name+"_"+strconv.Itoa(k))
		}
		return nil
	})

	return out
}

// Validate checks that the table covers exactly ndim flat columns.
func (t *Table) Validate(ndim int) error {
	if d := t.Dim(); d != ndim {
		return fmt.Errorf("table size %d, ndim %d: %w", d, ndim, ErrDimMismatch)
	}

	return nil
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	c := New()
	for _, name := range t.names {
		_ = c.Add(name, t.shapes[name]...) // already validated on the way in
	}

	return c
}

// MarshalJSON writes the table as a JSON object in insertion order.
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range t.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(t.shapes[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of name → []int, keeping document order.
func (t *Table) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("%w: expected object", ErrMalformedJSON)
	}

	fresh := New()
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("%w: expected key", ErrMalformedJSON)
		}
		var s []int
		if err = dec.Decode(&s); err != nil {
			return fmt.Errorf("%w: %q: %v", ErrMalformedJSON, name, err)
		}
		if err = fresh.Add(name, s...); err != nil {
			return err
		}
	}
	if _, err = dec.Token(); err != nil { // closing '}'
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	*t = *fresh

	return nil
}
