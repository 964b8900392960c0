// SPDX-License-Identifier: MIT

package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore names and stores run artifacts in Dir:
//
//	<id>_SETTINGS_<date>.json
//	<id>_BACKEND_<date>.db
//	<id>_SAMPLES_<date>.json
type FileStore struct {
	Dir string
}

// SettingsPath returns the settings file for a run.
func (s FileStore) SettingsPath(id, date string) string {
	return filepath.Join(s.Dir, id+"_SETTINGS_"+date+".json")
}

// BackendPath returns the chain database for a run.
func (s FileStore) BackendPath(id, date string) string {
	return filepath.Join(s.Dir, id+"_BACKEND_"+date+".db")
}

// SamplesPath returns the structured samples file for a run.
func (s FileStore) SamplesPath(id, date string) string {
	return filepath.Join(s.Dir, id+"_SAMPLES_"+date+".json")
}

// SaveSettings writes doc, creating Dir if needed.
func (s FileStore) SaveSettings(id, date string, doc *Document) error {
	return s.writeJSON(s.SettingsPath(id, date), doc)
}

// LoadSettings reads a settings document.
func (s FileStore) LoadSettings(id, date string) (*Document, error) {
	raw, err := os.ReadFile(s.SettingsPath(id, date))
	if err != nil {
		return nil, fmt.Errorf("settings: read: %w", err)
	}
	doc := New()
	if err = json.Unmarshal(raw, doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// RemoveSettings deletes the settings file. A missing file is not an error.
func (s FileStore) RemoveSettings(id, date string) error {
	err := os.Remove(s.SettingsPath(id, date))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("settings: remove: %w", err)
	}

	return nil
}

// SaveSamples writes any JSON-encodable samples value.
func (s FileStore) SaveSamples(id, date string, v any) error {
	return s.writeJSON(s.SamplesPath(id, date), v)
}

// LoadSamples decodes the samples file into v.
func (s FileStore) LoadSamples(id, date string, v any) error {
	raw, err := os.ReadFile(s.SamplesPath(id, date))
	if err != nil {
		return fmt.Errorf("settings: read: %w", err)
	}
	if err = json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("settings: decode samples: %w", err)
	}

	return nil
}

func (s FileStore) writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("settings: create dir: %w", err)
	}
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	if err = os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("settings: write: %w", err)
	}

	return nil
}
