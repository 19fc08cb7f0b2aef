package preproc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexdsp/specest"
	"github.com/cortexdsp/specest/taper"
)

func timeVector(n int, fsample float64) []float64 {
	tim := make([]float64, n)
	for i := range tim {
		tim[i] = float64(i) / fsample
	}
	return tim
}

func TestDemeanSkipsNaN(t *testing.T) {
	row := []float64{1, 2, math.NaN(), 3}
	Demean(row)

	assert.True(t, math.IsNaN(row[2]))
	sum := row[0] + row[1] + row[3]
	assert.InDelta(t, 0, sum, 1e-12)
}

func TestDetrendRemovesRamp(t *testing.T) {
	row := make([]float64, 16)
	for i := range row {
		row[i] = 3 + 0.5*float64(i)
	}
	row[7] = math.NaN()

	Detrend(row)

	for i, v := range row {
		if i == 7 {
			assert.True(t, math.IsNaN(v))
			continue
		}
		assert.InDelta(t, 0, v, 1e-9, "sample %d", i)
	}
}

func TestPipelineDCBlockAttenuatesOffset(t *testing.T) {
	n := 512
	tim := timeVector(n, 1000)
	row := make([]float64, n)
	for i := range row {
		row[i] = 5 + math.Sin(2*math.Pi*50*tim[i])
	}

	p := New(&Config{DCBlockCutoff: 10})
	out, err := p.Run([][]float64{row}, tim)
	require.NoError(t, err)

	mean := 0.0
	for _, v := range out[0][n/2:] { // skip the filter transient
		mean += v
	}
	mean /= float64(n / 2)
	assert.Less(t, math.Abs(mean), 0.5)
}

func TestPipelineDCBlockRejectsGaps(t *testing.T) {
	tim := timeVector(8, 8)
	row := []float64{1, 2, math.NaN(), 4, 5, 6, 7, 8}

	p := New(&Config{DCBlockCutoff: 1})
	_, err := p.Run([][]float64{row}, tim)
	assert.ErrorIs(t, err, specest.ErrMissingData)
}

func TestPipelineTaperAndPad(t *testing.T) {
	n := 16
	tim := timeVector(n, float64(n))
	row := make([]float64, n)
	for i := range row {
		row[i] = 1
	}

	p := New(&Config{Taper: taper.Hanning, Pad: 24})
	out, err := p.Run([][]float64{row}, tim)
	require.NoError(t, err)
	require.Len(t, out[0], 24)

	// symmetric Hanning zeroes the first sample, padding zeroes the tail
	assert.InDelta(t, 0, out[0][0], 1e-15)
	for j := n; j < 24; j++ {
		assert.Equal(t, 0.0, out[0][j])
	}
	// the taper peak survives
	assert.Greater(t, out[0][n/2], 0.9)
}

func TestPipelineInputUntouched(t *testing.T) {
	tim := timeVector(4, 4)
	row := []float64{1, 2, 3, 4}

	p := New(&Config{Demean: true})
	_, err := p.Run([][]float64{row}, tim)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, row)
}

func TestPipelineFeedsNaNFFT(t *testing.T) {
	// preprocessing must keep the missingness pattern intact so the
	// gap-tolerant estimator still sees it
	n := 32
	tim := timeVector(n, float64(n))
	nan := math.NaN()

	dat := make([][]float64, 2)
	for c := range dat {
		row := make([]float64, n)
		for j := range row {
			row[j] = 2 + math.Cos(2*math.Pi*3*float64(j)/float64(n))
		}
		row[4], row[11] = nan, nan
		dat[c] = row
	}

	p := New(&Config{Demean: true, Detrend: true})
	pre, err := p.Run(dat, tim)
	require.NoError(t, err)
	require.Equal(t, specest.DatatypeUniformMissing, specest.Classify(pre))

	spec, err := specest.NaNFFT(pre, tim, nil)
	require.NoError(t, err)
	require.Len(t, spec, 2)
	require.Len(t, spec[0], n)
}

func TestPipelineValidation(t *testing.T) {
	tim := timeVector(4, 4)

	p := New(nil)
	_, err := p.Run(nil, tim)
	assert.ErrorIs(t, err, specest.ErrEmptyData)

	_, err = p.Run([][]float64{{1, 2}, {1}}, tim)
	assert.ErrorIs(t, err, specest.ErrRaggedData)

	_, err = p.Run([][]float64{{1, 2}}, []float64{0})
	assert.ErrorIs(t, err, specest.ErrShortTime)
}

func TestDCBlockerCutoff(t *testing.T) {
	d := NewDCBlocker(1000, 10)
	assert.Greater(t, d.Pole(), 0.0)
	assert.Less(t, d.Pole(), 1.0)
	assert.InDelta(t, 10, d.CutoffFrequency(1000), 1e-9)
}
