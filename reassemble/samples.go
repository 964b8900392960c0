// SPDX-License-Identifier: MIT

package reassemble

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/katalvlaran/lvmcmc/matrix"
	"github.com/katalvlaran/lvmcmc/shape"
)

var (
	// ErrNoShapes indicates a missing shape table.
	ErrNoShapes = errors.New("reassemble: no shape table")

	// ErrKeyCollision indicates a settings field named like a parameter.
	ErrKeyCollision = errors.New("reassemble: settings field collides with a parameter name")
)

// Param is one reassembled parameter. Series holds one series per flattened
// component; scalar parameters have exactly one.
type Param struct {
	Name   string
	Shape  []int
	Series [][]float64
}

// Scalar reports whether the parameter has shape [1].
func (p Param) Scalar() bool { return shape.IsScalar(p.Shape) }

// Samples is the structured result, in shape-table order.
type Samples struct {
	params   []Param
	index    map[string]int
	draws    int
	settings map[string]any
}

// Flat reassembles a (draws × D) matrix using table, with D == table.Dim().
func Flat(flat matrix.Matrix, table *shape.Table) (*Samples, error) {
	if table == nil {
		return nil, fmt.Errorf("Flat: %w", ErrNoShapes)
	}
	if err := matrix.ValidateNotNil(flat); err != nil {
		return nil, fmt.Errorf("Flat: %w", err)
	}
	if err := table.Validate(flat.Cols()); err != nil {
		return nil, fmt.Errorf("Flat: %w", err)
	}

	n := flat.Rows()
	out := &Samples{index: make(map[string]int, table.Len()), draws: n, settings: map[string]any{}}
	err := table.Each(func(name string, s []int, offset int) error {
		p := Param{Name: name, Shape: append([]int(nil), s...), Series: make([][]float64, shape.Size(s))}
		for k := range p.Series {
			col := make([]float64, n)
			for r := 0; r < n; r++ {
				v, err := flat.At(r, offset+k)
				if err != nil {
					return err
				}
				col[r] = v
			}
			p.Series[k] = col
		}
		out.index[name] = len(out.params)
		out.params = append(out.params, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Flat: %w", err)
	}

	return out, nil
}

// empty returns zero-draw samples for every parameter in table.
func empty(table *shape.Table) *Samples {
	out := &Samples{index: make(map[string]int, table.Len()), settings: map[string]any{}}
	_ = table.Each(func(name string, s []int, _ int) error {
		p := Param{Name: name, Shape: append([]int(nil), s...), Series: make([][]float64, shape.Size(s))}
		for k := range p.Series {
			p.Series[k] = []float64{}
		}
		out.index[name] = len(out.params)
		out.params = append(out.params, p)
		return nil
	})

	return out
}

// Merge adds settings fields. A field named like a parameter is rejected.
func (s *Samples) Merge(fields map[string]any) error {
	for k := range fields {
		if _, ok := s.index[k]; ok {
			return fmt.Errorf("Merge(%q): %w", k, ErrKeyCollision)
		}
	}
	for k, v := range fields {
		s.settings[k] = v
	}

	return nil
}

// Names returns parameter names in shape-table order.
func (s *Samples) Names() []string {
	out := make([]string, len(s.params))
	for i, p := range s.params {
		out[i] = p.Name
	}

	return out
}

// Len returns the number of retained draws per series.
func (s *Samples) Len() int { return s.draws }

// Param returns a parameter by name.
func (s *Samples) Param(name string) (Param, bool) {
	i, ok := s.index[name]
	if !ok {
		return Param{}, false
	}

	return s.params[i], true
}

// Scalar returns the series of a shape-[1] parameter.
func (s *Samples) Scalar(name string) ([]float64, bool) {
	p, ok := s.Param(name)
	if !ok || !p.Scalar() {
		return nil, false
	}

	return p.Series[0], true
}

// Components returns the component series of a non-scalar parameter.
func (s *Samples) Components(name string) ([][]float64, bool) {
	p, ok := s.Param(name)
	if !ok || p.Scalar() {
		return nil, false
	}

	return p.Series, true
}

// Settings returns the merged settings fields.
func (s *Samples) Settings() map[string]any { return s.settings }

// Map returns the plain mapping: name → []float64 for scalars, name → [][]float64
// otherwise, plus the settings fields.
func (s *Samples) Map() map[string]any {
	out := make(map[string]any, len(s.params)+len(s.settings))
	for _, p := range s.params {
		if p.Scalar() {
			out[p.Name] = p.Series[0]
		} else {
			out[p.Name] = p.Series
		}
	}
	for k, v := range s.settings {
		out[k] = v
	}

	return out
}

// MarshalJSON writes parameters in shape-table order followed by settings
// fields in lexical order.
func (s *Samples) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(k string, v any) error {
		key, err := json.Marshal(k)
		if err != nil {
			return err
		}
		val, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("%q: %w", k, err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
		return nil
	}
	for _, p := range s.params {
		var v any = p.Series
		if p.Scalar() {
			v = p.Series[0]
		}
		if err := write(p.Name, v); err != nil {
			return nil, err
		}
	}
	keys := make([]string, 0, len(s.settings))
	for k := range s.settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := write(k, s.settings[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}
