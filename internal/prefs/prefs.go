// Package prefs provides JSON-based application preferences.
package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

const prefsFile = "preferences.json"

// Keys understood by Settings.
const (
	KeyUnit      = "unit"
	KeyPrecision = "precision"
	KeyRounding  = "rounding"
	KeyBackend   = "backend"
	KeyMaxPoints = "max_points"
)

// Measurement backends.
const (
	BackendShoelace = "shoelace"
	BackendOpenCV   = "opencv"
)

// Prefs stores application preferences as a key-value map.
type Prefs struct {
	mu     sync.RWMutex
	values map[string]interface{}
	path   string
}

// Load reads preferences from ~/.config/micromeasure/preferences.json.
// Returns a Prefs with defaults if the file doesn't exist.
func Load() *Prefs {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return LoadFrom(filepath.Join(configDir, "micromeasure", prefsFile))
}

// LoadFrom reads preferences from path. A missing or unreadable file
// yields empty preferences that will be saved to path.
func LoadFrom(path string) *Prefs {
	p := &Prefs{
		values: make(map[string]interface{}),
		path:   path,
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return p
	}
	_ = json.Unmarshal(data, &p.values)
	return p
}

// Path returns the file the preferences are saved to.
func (p *Prefs) Path() string {
	return p.path
}

// Save writes preferences to disk.
func (p *Prefs) Save() error {
	p.mu.RLock()
	data, err := json.MarshalIndent(p.values, "", "  ")
	p.mu.RUnlock()
	if err != nil {
		return err
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0o644)
}

// FloatWithFallback returns a float64 preference, or fallback if not set.
func (p *Prefs) FloatWithFallback(key string, fallback float64) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.values[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return fallback
}

// SetFloat stores a float64 preference.
func (p *Prefs) SetFloat(key string, val float64) {
	p.mu.Lock()
	p.values[key] = val
	p.mu.Unlock()
}

// StringWithFallback returns a string preference, or fallback if not set.
func (p *Prefs) StringWithFallback(key, fallback string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}

// SetString stores a string preference.
func (p *Prefs) SetString(key string, val string) {
	p.mu.Lock()
	p.values[key] = val
	p.mu.Unlock()
}

// Settings is the typed view of the measurement preferences.
type Settings struct {
	Unit      string // physical unit shown in labels
	Precision int    // decimals in labels
	Rounding  string // "pixel" or "subpixel"
	Backend   string // BackendShoelace or BackendOpenCV
	MaxPoints int    // 0 means unlimited
}

// DefaultSettings returns the settings used when nothing is stored.
func DefaultSettings() Settings {
	return Settings{
		Unit:      "cm",
		Precision: 2,
		Rounding:  "pixel",
		Backend:   BackendShoelace,
		MaxPoints: 0,
	}
}

// Validate clamps/normalizes values to safe ranges.
func (s *Settings) Validate() {
	d := DefaultSettings()
	if s.Unit == "" {
		s.Unit = d.Unit
	}
	if s.Precision < 0 || s.Precision > 10 {
		s.Precision = d.Precision
	}
	if s.Rounding != "pixel" && s.Rounding != "subpixel" {
		s.Rounding = d.Rounding
	}
	if s.Backend != BackendShoelace && s.Backend != BackendOpenCV {
		s.Backend = d.Backend
	}
	if s.MaxPoints < 0 {
		s.MaxPoints = 0
	}
}

// Settings returns the validated measurement settings.
func (p *Prefs) Settings() Settings {
	d := DefaultSettings()
	s := Settings{
		Unit:      p.StringWithFallback(KeyUnit, d.Unit),
		Precision: int(p.FloatWithFallback(KeyPrecision, float64(d.Precision))),
		Rounding:  p.StringWithFallback(KeyRounding, d.Rounding),
		Backend:   p.StringWithFallback(KeyBackend, d.Backend),
		MaxPoints: int(p.FloatWithFallback(KeyMaxPoints, float64(d.MaxPoints))),
	}
	s.Validate()
	return s
}

// SetSettings stores s after validating it.
func (p *Prefs) SetSettings(s Settings) {
	s.Validate()
	p.SetString(KeyUnit, s.Unit)
	p.SetFloat(KeyPrecision, float64(s.Precision))
	p.SetString(KeyRounding, s.Rounding)
	p.SetString(KeyBackend, s.Backend)
	p.SetFloat(KeyMaxPoints, float64(s.MaxPoints))
}
