package specest

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/cortexdsp/specest/logging"
	"github.com/cortexdsp/specest/taper"
)

// MTMConfig controls a multitaper transform.
type MTMConfig struct {
	// Taper selects the taper family; taper.Sine yields a true multitaper
	// estimate, the single-taper types a conventional windowed FFT.
	Taper taper.Type `json:"taper"`

	// NumTapers is the sine-family size. Ignored for single-taper types.
	NumTapers int `json:"num_tapers"`

	// Pad zero-pads every channel to this many samples before the
	// transform. Zero or anything below the data length means no padding.
	Pad int `json:"pad"`

	// MaxWorkers caps the per-channel fan-out. Zero picks a CPU-count
	// based default.
	MaxWorkers int `json:"max_workers"`
}

// DefaultMTMConfig returns a single Hanning-tapered configuration.
func DefaultMTMConfig() *MTMConfig {
	return &MTMConfig{Taper: taper.Hanning, NumTapers: 1}
}

// MTMResult holds the tapered half-spectra of a multichannel signal.
type MTMResult struct {
	// Spectrum is indexed taper x channel x frequency bin and holds the
	// non-redundant half-spectrum (bins 0..floor(nfft/2)).
	Spectrum [][][]complex128 `json:"-"`

	Freqs      []float64 `json:"freqs"`
	SampleRate float64   `json:"sample_rate"`
	NumTapers  int       `json:"num_tapers"`
	NFFT       int       `json:"nfft"`
}

// Power returns the taper-averaged power per channel and frequency bin.
func (r *MTMResult) Power() [][]float64 {
	if len(r.Spectrum) == 0 {
		return nil
	}
	nChan := len(r.Spectrum[0])
	nBins := len(r.Freqs)

	power := make([][]float64, nChan)
	for c := range power {
		power[c] = make([]float64, nBins)
	}
	for _, tap := range r.Spectrum {
		for c, row := range tap {
			for f, v := range row {
				mag := cmplx.Abs(v)
				power[c][f] += mag * mag
			}
		}
	}
	scale := 1 / float64(len(r.Spectrum))
	for c := range power {
		for f := range power[c] {
			power[c][f] *= scale
		}
	}
	return power
}

// MTMFFT computes the multitaper Fourier transform of gap-free
// channel-by-sample data. Every channel is multiplied by each
// energy-normalized taper and transformed; the result keeps the per-taper
// complex half-spectra so that callers can form power, cross-spectra or
// coherence downstream.
//
// Data containing NaN cells is rejected with ErrMissingData: route gapped
// data through NaNFFT instead.
func MTMFFT(dat [][]float64, tim []float64, cfg *MTMConfig) (*MTMResult, error) {
	if cfg == nil {
		cfg = DefaultMTMConfig()
	}

	nSamp, err := validateInput(dat, tim)
	if err != nil {
		return nil, err
	}
	if Classify(dat) != DatatypeNoMissing {
		return nil, ErrMissingData
	}
	nChan := len(dat)

	fsample, err := SampleRate(tim)
	if err != nil {
		return nil, err
	}

	nfft := nSamp
	if cfg.Pad > nfft {
		nfft = cfg.Pad
	}

	tapers, err := taper.NewGenerator().Generate(&taper.Config{
		Type:      cfg.Taper,
		Size:      nSamp,
		NumTapers: cfg.NumTapers,
		Normalize: true,
	})
	if err != nil {
		return nil, err
	}
	numTapers := len(tapers.Tapers)

	logger := logging.WithFields(logging.Fields{
		"component":  "mtmfft",
		"channels":   nChan,
		"samples":    nSamp,
		"nfft":       nfft,
		"taper":      cfg.Taper,
		"num_tapers": numTapers,
	})
	logger.Debug("Computing multitaper spectrum")

	nBins := nfft/2 + 1
	spectrum := make([][][]complex128, numTapers)
	for k := range spectrum {
		spectrum[k] = make([][]complex128, nChan)
	}
	errs := make([]error, nChan)

	numWorkers := workerCount(nChan, cfg.MaxWorkers)
	jobs := make(chan int, nChan)

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// fourier.FFT keeps scratch state, so each worker owns one.
			plan := fourier.NewFFT(nfft)
			padded := make([]float64, nfft)

			for c := range jobs {
				for k := 0; k < numTapers; k++ {
					tapered, err := tapers.Apply(k, dat[c])
					if err != nil {
						errs[c] = err
						break
					}
					copy(padded, tapered)
					for t := nSamp; t < nfft; t++ {
						padded[t] = 0
					}
					spectrum[k][c] = plan.Coefficients(nil, padded)
				}
			}
		}()
	}

	for c := 0; c < nChan; c++ {
		jobs <- c
	}
	close(jobs)
	wg.Wait()

	for c, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", c, err)
		}
	}

	freqs := make([]float64, nBins)
	for i := range freqs {
		freqs[i] = fsample * float64(i) / float64(nfft)
	}

	return &MTMResult{
		Spectrum:   spectrum,
		Freqs:      freqs,
		SampleRate: fsample,
		NumTapers:  numTapers,
		NFFT:       nfft,
	}, nil
}

// FreqResolution is the spacing of the frequency axis in Hz.
func (r *MTMResult) FreqResolution() float64 {
	if r.NFFT == 0 {
		return math.NaN()
	}
	return r.SampleRate / float64(r.NFFT)
}
