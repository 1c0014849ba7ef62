package scalebar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		text string
		want Label
	}{
		{"100 µm", Label{100, "µm"}},
		{"100 μm", Label{100, "µm"}},
		{"50um", Label{50, "µm"}},
		{"0.5mm", Label{0.5, "mm"}},
		{"1,5 MM", Label{1.5, "mm"}},
		{"Scale: 2 cm", Label{2, "cm"}},
		{"200 nm\n", Label{200, "nm"}},
		{"10 mil", Label{10, "mil"}},
		{"1 m", Label{1, "m"}},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := Parse(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRejects(t *testing.T) {
	for _, text := range []string{"", "scale bar", "0 µm", "10 minutes", "42"} {
		_, err := Parse(text)
		assert.ErrorIs(t, err, ErrNoLength, "text %q", text)
	}
}

func TestConvert(t *testing.T) {
	l := Label{Value: 500, Unit: "µm"}

	cm, err := l.Convert("cm")
	require.NoError(t, err)
	assert.InDelta(t, 0.05, cm, 1e-12)

	mm, err := l.Convert("MM")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, mm, 1e-12)

	_, err = l.Convert("furlong")
	assert.Error(t, err)
	assert.Equal(t, "500 µm", l.String())
}

func TestConvertNormalizesLabelUnit(t *testing.T) {
	for _, unit := range []string{"um", "μm", "UM"} {
		got, err := Label{Value: 1000, Unit: unit}.Convert("mm")
		require.NoError(t, err, "unit %q", unit)
		assert.InDelta(t, 1.0, got, 1e-12, "unit %q", unit)
	}

	_, err := Label{Value: 1, Unit: "parsec"}.Convert("mm")
	assert.Error(t, err)
	_, err = Label{Value: 1}.Convert("mm")
	assert.Error(t, err)
}
