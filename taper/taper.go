// Package taper generates the windowing functions (tapers) applied to time
// series ahead of spectral estimation, including the orthonormal sine taper
// family used for multitaper estimates.
package taper

import (
	"fmt"
	"math"

	"github.com/cortexdsp/specest/logging"
)

// Type identifies a taper family
type Type string

const (
	Hanning     Type = "hanning"
	Hamming     Type = "hamming"
	Rectangular Type = "rectangular"

	// Sine is the orthonormal sine taper family of Riedel & Sidorenko,
	// a lightweight stand-in for Slepian sequences in multitaper estimates.
	Sine Type = "sine"
)

// Config holds taper generation parameters
type Config struct {
	Type Type `json:"type"`
	Size int  `json:"size"`

	// NumTapers is the family size; only meaningful for Sine, ignored (and
	// fixed to 1) for single-taper types.
	NumTapers int `json:"num_tapers"`

	// Normalize scales every taper to unit energy (sum of squares = 1),
	// the convention multitaper spectral estimates expect.
	Normalize bool `json:"normalize"`
}

// DefaultConfig returns a single normalized Hanning taper configuration.
func DefaultConfig() *Config {
	return &Config{
		Type:      Hanning,
		Size:      1024,
		NumTapers: 1,
		Normalize: true,
	}
}

// Set is a generated taper family: one row per taper, Size samples each.
type Set struct {
	Type   Type        `json:"type"`
	Size   int         `json:"size"`
	Tapers [][]float64 `json:"tapers"`
}

// Apply multiplies the i-th taper into a copy of signal. NaN samples stay
// NaN, so a missingness pattern survives tapering.
func (s *Set) Apply(i int, signal []float64) ([]float64, error) {
	if i < 0 || i >= len(s.Tapers) {
		return nil, fmt.Errorf("taper: index %d out of range (%d tapers)", i, len(s.Tapers))
	}
	if len(signal) != s.Size {
		return nil, fmt.Errorf("taper: signal length %d does not match taper size %d", len(signal), s.Size)
	}
	out := make([]float64, s.Size)
	for t, w := range s.Tapers[i] {
		out[t] = w * signal[t]
	}
	return out, nil
}

// Generator builds tapers and caches them by configuration. A Generator is
// not safe for concurrent use; the Sets it returns are immutable and are.
type Generator struct {
	logger logging.Logger
	cache  map[string]*Set
}

// NewGenerator creates a taper generator with an empty cache.
func NewGenerator() *Generator {
	return &Generator{
		logger: logging.WithFields(logging.Fields{
			"component": "taper_generator",
		}),
		cache: make(map[string]*Set),
	}
}

// Generate builds (or fetches from cache) the taper set for config.
func (g *Generator) Generate(config *Config) (*Set, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Size <= 0 {
		return nil, fmt.Errorf("taper: size must be positive, got %d", config.Size)
	}

	numTapers := config.NumTapers
	if config.Type != Sine {
		numTapers = 1
	}
	if numTapers <= 0 {
		return nil, fmt.Errorf("taper: num_tapers must be positive, got %d", config.NumTapers)
	}

	key := fmt.Sprintf("%s_%d_%d_%t", config.Type, config.Size, numTapers, config.Normalize)
	if cached, ok := g.cache[key]; ok {
		return cached, nil
	}

	var tapers [][]float64
	switch config.Type {
	case Hanning:
		tapers = [][]float64{hanning(config.Size)}
	case Hamming:
		tapers = [][]float64{hamming(config.Size)}
	case Rectangular:
		tapers = [][]float64{rectangular(config.Size)}
	case Sine:
		tapers = sineFamily(config.Size, numTapers)
	default:
		return nil, fmt.Errorf("taper: unknown taper type %q", config.Type)
	}

	if config.Normalize {
		for _, w := range tapers {
			normalizeEnergy(w)
		}
	}

	set := &Set{Type: config.Type, Size: config.Size, Tapers: tapers}
	g.cache[key] = set

	g.logger.Debug("Generated taper set", logging.Fields{
		"type":       config.Type,
		"size":       config.Size,
		"num_tapers": len(tapers),
	})
	return set, nil
}

func hanning(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for t := 0; t < n; t++ {
		w[t] = 0.5 * (1 - math.Cos(2*math.Pi*float64(t)/float64(n-1)))
	}
	return w
}

func hamming(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for t := 0; t < n; t++ {
		w[t] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(t)/float64(n-1))
	}
	return w
}

func rectangular(n int) []float64 {
	w := make([]float64, n)
	for t := 0; t < n; t++ {
		w[t] = 1
	}
	return w
}

// sineFamily builds k orthonormal sine tapers:
// w_k[t] = sqrt(2/(n+1)) * sin(pi*(k+1)*(t+1)/(n+1)).
func sineFamily(n, k int) [][]float64 {
	tapers := make([][]float64, k)
	amp := math.Sqrt(2 / float64(n+1))
	for i := 0; i < k; i++ {
		w := make([]float64, n)
		for t := 0; t < n; t++ {
			w[t] = amp * math.Sin(math.Pi*float64(i+1)*float64(t+1)/float64(n+1))
		}
		tapers[i] = w
	}
	return tapers
}

func normalizeEnergy(w []float64) {
	energy := 0.0
	for _, v := range w {
		energy += v * v
	}
	if energy <= 0 {
		return
	}
	scale := 1 / math.Sqrt(energy)
	for t := range w {
		w[t] *= scale
	}
}
