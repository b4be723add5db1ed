package state

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/grovetools/traceport/pkg/paths"
	"github.com/grovetools/traceport/pkg/trace"
	"gopkg.in/yaml.v3"
)

// Prefs are the session settings remembered between runs.
type Prefs struct {
	Mode      trace.Mode   `yaml:"mode"`
	CoreCount int          `yaml:"core_count"`
	Format    trace.Format `yaml:"format"`
}

// DefaultPrefs matches a fresh session with hex input.
func DefaultPrefs() Prefs {
	return Prefs{Mode: trace.ModeFreeRTOS, CoreCount: 1, Format: trace.FormatHex}
}

// PrefsPath returns the location of prefs.yml.
// The file lives in the traceport state directory.
func PrefsPath() string {
	return filepath.Join(paths.StateDir(), "prefs.yml")
}

// LoadPrefs reads preferences from path.
// Returns DefaultPrefs if the file doesn't exist.
func LoadPrefs(path string) (Prefs, error) {
	prefs := DefaultPrefs()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return prefs, nil
		}
		return prefs, fmt.Errorf("read prefs file: %w", err)
	}

	if err := yaml.Unmarshal(data, &prefs); err != nil {
		return DefaultPrefs(), fmt.Errorf("parse prefs file: %w", err)
	}
	if prefs.CoreCount < 1 {
		prefs.CoreCount = 1
	}

	return prefs, nil
}

// SavePrefs writes preferences to path, creating its directory.
func SavePrefs(path string, prefs Prefs) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := yaml.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write prefs file: %w", err)
	}

	return nil
}

// Apply configures s from the preferences. Pieces are untouched, so a core
// count below an existing piece's core is rejected as usual.
func (p Prefs) Apply(s *Session) error {
	if err := s.SetMode(p.Mode); err != nil {
		return err
	}
	return s.SetCoreCount(p.CoreCount)
}

// PrefsFrom captures the settings of s, plus the input format in use.
func PrefsFrom(s *Session, format trace.Format) Prefs {
	snap := s.Snapshot()
	return Prefs{Mode: snap.Mode, CoreCount: snap.CoreCount, Format: format}
}
