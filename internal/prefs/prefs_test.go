package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingFileGivesDefaults(t *testing.T) {
	p := LoadFrom(filepath.Join(t.TempDir(), "none", prefsFile))
	assert.Equal(t, DefaultSettings(), p.Settings())
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", prefsFile)
	p := LoadFrom(path)
	p.SetSettings(Settings{Unit: "µm", Precision: 3, Rounding: "subpixel", Backend: BackendOpenCV, MaxPoints: 64})
	require.NoError(t, p.Save())

	loaded := LoadFrom(path)
	assert.Equal(t, Settings{Unit: "µm", Precision: 3, Rounding: "subpixel", Backend: BackendOpenCV, MaxPoints: 64}, loaded.Settings())
	assert.Equal(t, path, loaded.Path())
}

func TestInvalidValuesAreClamped(t *testing.T) {
	path := filepath.Join(t.TempDir(), prefsFile)
	data := `{"unit": "", "precision": 42, "rounding": "fuzzy", "backend": "gpu", "max_points": -3}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	assert.Equal(t, DefaultSettings(), LoadFrom(path).Settings())
}

func TestCorruptFileIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), prefsFile)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	p := LoadFrom(path)
	assert.Equal(t, DefaultSettings(), p.Settings())
	assert.Equal(t, 7.5, p.FloatWithFallback("missing", 7.5))
	assert.Equal(t, "x", p.StringWithFallback("missing", "x"))
}
