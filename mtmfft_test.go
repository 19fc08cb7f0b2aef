package specest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/cortexdsp/specest/taper"
)

func TestMTMFFTHanningMatchesManualTransform(t *testing.T) {
	n := 64
	tim := timeVector(n, float64(n))
	dat := [][]float64{testSignal(n, 0)}

	res, err := MTMFFT(dat, tim, &MTMConfig{Taper: taper.Hanning})
	require.NoError(t, err)
	require.Equal(t, 1, res.NumTapers)
	require.Len(t, res.Spectrum, 1)
	require.Len(t, res.Spectrum[0], 1)
	require.Len(t, res.Spectrum[0][0], n/2+1)

	set, err := taper.NewGenerator().Generate(&taper.Config{
		Type:      taper.Hanning,
		Size:      n,
		Normalize: true,
	})
	require.NoError(t, err)

	tapered, err := set.Apply(0, dat[0])
	require.NoError(t, err)
	want := fourier.NewFFT(n).Coefficients(nil, tapered)

	for j := range want {
		assert.InDelta(t, real(want[j]), real(res.Spectrum[0][0][j]), 1e-12, "bin %d", j)
		assert.InDelta(t, imag(want[j]), imag(res.Spectrum[0][0][j]), 1e-12, "bin %d", j)
	}
}

func TestMTMFFTPowerPeaksAtTone(t *testing.T) {
	n := 32
	fsample := 32.0
	tim := timeVector(n, fsample)

	dat := make([][]float64, 2)
	for c := range dat {
		row := make([]float64, n)
		for j := range row {
			row[j] = math.Cos(2 * math.Pi * 4 * float64(j) / float64(n))
		}
		dat[c] = row
	}

	res, err := MTMFFT(dat, tim, &MTMConfig{Taper: taper.Sine, NumTapers: 3})
	require.NoError(t, err)
	require.Equal(t, 3, res.NumTapers)

	power := res.Power()
	require.Len(t, power, 2)
	for c := range power {
		peak := 0
		for j := range power[c] {
			if power[c][j] > power[c][peak] {
				peak = j
			}
		}
		assert.Equal(t, 4, peak, "channel %d", c)
		assert.InDelta(t, 4.0, res.Freqs[peak], 1e-9)
	}
}

func TestMTMFFTPadding(t *testing.T) {
	n := 16
	fsample := 16.0
	tim := timeVector(n, fsample)
	dat := [][]float64{testSignal(n, 0)}

	res, err := MTMFFT(dat, tim, &MTMConfig{Taper: taper.Hanning, Pad: 32})
	require.NoError(t, err)
	assert.Equal(t, 32, res.NFFT)
	assert.Len(t, res.Freqs, 17)
	assert.InDelta(t, 0.5, res.FreqResolution(), 1e-12)
	assert.InDelta(t, fsample/2, res.Freqs[len(res.Freqs)-1], 1e-9)
}

func TestMTMFFTRejectsMissingData(t *testing.T) {
	n := 16
	tim := timeVector(n, float64(n))
	dat := [][]float64{testSignal(n, 0)}
	dat[0][5] = math.NaN()

	_, err := MTMFFT(dat, tim, nil)
	assert.ErrorIs(t, err, ErrMissingData)
}
