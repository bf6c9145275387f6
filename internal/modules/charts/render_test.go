package charts

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G'}

func TestRender_AllKindsPNG(t *testing.T) {
	views := BuildViews(sequence(500), DefaultHistogramBins)

	for _, kind := range Kinds {
		t.Run(string(kind), func(t *testing.T) {
			data, err := Render(views[kind], FormatPNG, 640, 320)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(data, pngSignature))
		})
	}
}

func TestRender_SVG(t *testing.T) {
	v := LossSequence(sequence(300), SequenceMaxPoints)

	data, err := Render(v, FormatSVG, 0, 0)

	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")
}

func TestRender_EmptyView(t *testing.T) {
	_, err := Render(CDF(nil, CDFMaxPoints), FormatPNG, 0, 0)
	assert.True(t, errors.Is(err, ErrEmptyView))
}

func TestRender_DegenerateInputs(t *testing.T) {
	testCases := []struct {
		name string
		view View
	}{
		{"single point line", LossSequence([]float64{42}, SequenceMaxPoints)},
		{"flat cdf", CDF([]float64{7, 7, 7, 7}, CDFMaxPoints)},
		{"all zero cumulative", CumulativeLosses([]float64{0, 0, 0}, SequenceMaxPoints)},
		{"single value histogram", Histogram([]float64{3}, DefaultHistogramBins)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := Render(tc.view, FormatPNG, 400, 200)
			require.NoError(t, err)
			assert.NotEmpty(t, data)
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("svg")
	require.NoError(t, err)
	assert.Equal(t, FormatSVG, f)
	assert.Equal(t, "image/svg+xml", f.ContentType())
	assert.Equal(t, "image/png", FormatPNG.ContentType())

	_, err = ParseFormat("gif")
	assert.Error(t, err)
}

func TestPaddedRange(t *testing.T) {
	assert.Nil(t, paddedRange([]float64{1, 2, 3}))

	r := paddedRange([]float64{100, 100})
	require.NotNil(t, r)
	assert.Less(t, r.GetMin(), 100.0)
	assert.Greater(t, r.GetMax(), 100.0)
}

func TestTickFormatters(t *testing.T) {
	assert.Equal(t, "$1.5K", currencyTicks(1500.0))
	assert.Equal(t, "50%", percentTicks(50.0))
	assert.Equal(t, "12", indexTicks(12.2))
	assert.Equal(t, "", currencyTicks("x"))
}
