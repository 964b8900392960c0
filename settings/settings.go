// SPDX-License-Identifier: MIT

// Package settings holds the per-session settings document and the file
// store that persists it next to the chain backend and the final samples.
//
// A Document is a JSON object of free-form fields plus the shape table under
// the reserved key "calibrated_parameters_shapes". Every session builds its
// own Document with New; documents are never shared between sessions.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/katalvlaran/lvmcmc/shape"
)

// ShapesKey is the reserved key holding the shape table.
const ShapesKey = "calibrated_parameters_shapes"

var (
	// ErrReservedKey indicates Set with ShapesKey; use SetShapes instead.
	ErrReservedKey = errors.New("settings: key is reserved for the shape table")

	// ErrEmptyKey indicates Set with an empty key.
	ErrEmptyKey = errors.New("settings: empty key")
)

// Document is a settings object.
type Document struct {
	fields map[string]any
	shapes *shape.Table
}

// New returns an empty document.
func New() *Document {
	return &Document{fields: make(map[string]any)}
}

// Set stores a JSON-encodable value.
func (d *Document) Set(key string, v any) error {
	switch key {
	case "":
		return ErrEmptyKey
	case ShapesKey:
		return fmt.Errorf("Set(%q): %w", key, ErrReservedKey)
	}
	if d.fields == nil {
		d.fields = make(map[string]any)
	}
	d.fields[key] = v

	return nil
}

// Get returns a field value.
func (d *Document) Get(key string) (any, bool) {
	v, ok := d.fields[key]
	return v, ok
}

// SetShapes stores a copy of t under ShapesKey.
func (d *Document) SetShapes(t *shape.Table) {
	if t == nil {
		d.shapes = nil
		return
	}
	d.shapes = t.Clone()
}

// Shapes returns the stored shape table, or nil.
func (d *Document) Shapes() *shape.Table { return d.shapes }

// Fields returns a copy of every field except the shape table.
func (d *Document) Fields() map[string]any {
	out := make(map[string]any, len(d.fields))
	for k, v := range d.fields {
		out[k] = v
	}

	return out
}

// Keys returns field keys in lexical order, excluding ShapesKey.
func (d *Document) Keys() []string {
	keys := make([]string, 0, len(d.fields))
	for k := range d.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

// MarshalJSON writes the fields and, when set, the shape table.
func (d *Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.fields)+1)
	for k, v := range d.fields {
		out[k] = v
	}
	if d.shapes != nil {
		out[ShapesKey] = d.shapes
	}

	return json.Marshal(out)
}

// UnmarshalJSON replaces the document with the decoded object.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("settings: decode: %w", err)
	}
	fresh := New()
	for k, v := range raw {
		if k == ShapesKey {
			t := shape.New()
			if err := json.Unmarshal(v, t); err != nil {
				return fmt.Errorf("settings: %s: %w", ShapesKey, err)
			}
			fresh.shapes = t
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return fmt.Errorf("settings: %q: %w", k, err)
		}
		fresh.fields[k] = val
	}
	*d = *fresh

	return nil
}
