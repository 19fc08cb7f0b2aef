package taper

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateHanning(t *testing.T) {
	set, err := NewGenerator().Generate(&Config{Type: Hanning, Size: 9})
	require.NoError(t, err)
	require.Len(t, set.Tapers, 1)

	w := set.Tapers[0]
	assert.InDelta(t, 0, w[0], 1e-15)
	assert.InDelta(t, 0, w[8], 1e-15)
	assert.InDelta(t, 1, w[4], 1e-15) // symmetric window peaks mid-span
}

func TestGenerateNormalized(t *testing.T) {
	for _, typ := range []Type{Hanning, Hamming, Rectangular} {
		set, err := NewGenerator().Generate(&Config{Type: typ, Size: 32, Normalize: true})
		require.NoError(t, err)

		energy := 0.0
		for _, v := range set.Tapers[0] {
			energy += v * v
		}
		assert.InDelta(t, 1, energy, 1e-12, "type %s", typ)
	}
}

func TestSineFamilyOrthonormal(t *testing.T) {
	n, k := 64, 5
	set, err := NewGenerator().Generate(&Config{Type: Sine, Size: n, NumTapers: k})
	require.NoError(t, err)
	require.Len(t, set.Tapers, k)

	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			dot := 0.0
			for s := 0; s < n; s++ {
				dot += set.Tapers[i][s] * set.Tapers[j][s]
			}
			want := 0.0
			if i == j {
				want = 1.0
			}
			assert.InDelta(t, want, dot, 1e-12, "tapers %d,%d", i, j)
		}
	}
}

func TestGeneratorCache(t *testing.T) {
	g := NewGenerator()
	cfg := &Config{Type: Hanning, Size: 16, Normalize: true}

	a, err := g.Generate(cfg)
	require.NoError(t, err)
	b, err := g.Generate(cfg)
	require.NoError(t, err)
	assert.Same(t, a, b)

	// a different configuration misses the cache
	c, err := g.Generate(&Config{Type: Hanning, Size: 16})
	require.NoError(t, err)
	assert.NotSame(t, a, c)
}

func TestGenerateValidation(t *testing.T) {
	g := NewGenerator()

	_, err := g.Generate(&Config{Type: Hanning, Size: 0})
	assert.Error(t, err)

	_, err = g.Generate(&Config{Type: "triangular", Size: 8})
	assert.Error(t, err)

	_, err = g.Generate(&Config{Type: Sine, Size: 8, NumTapers: -1})
	assert.Error(t, err)
}

func TestApplyKeepsNaN(t *testing.T) {
	set, err := NewGenerator().Generate(&Config{Type: Hamming, Size: 4})
	require.NoError(t, err)

	out, err := set.Apply(0, []float64{1, math.NaN(), 3, 4})
	require.NoError(t, err)
	assert.False(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))

	_, err = set.Apply(1, []float64{1, 2, 3, 4})
	assert.Error(t, err)

	_, err = set.Apply(0, []float64{1, 2})
	assert.Error(t, err)
}
