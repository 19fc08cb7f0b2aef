// Package preproc applies channel-wise preprocessing ahead of spectral
// estimation: baseline (mean) removal, linear detrending, DC-block
// filtering, tapering and zero padding. Demeaning and detrending skip NaN
// samples and leave them in place, so a missingness pattern survives the
// pipeline and can still be handled by the gap-tolerant estimator.
package preproc

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/cortexdsp/specest"
	"github.com/cortexdsp/specest/logging"
	"github.com/cortexdsp/specest/taper"
)

// Config selects the pipeline stages. Stages run in a fixed order:
// demean, detrend, DC block, taper, pad.
type Config struct {
	Demean  bool `json:"demean"`
	Detrend bool `json:"detrend"`

	// DCBlockCutoff enables the DC-blocking filter with the given -3dB
	// cutoff in Hz. Zero disables it. The filter is recursive and refuses
	// channels containing NaN samples.
	DCBlockCutoff float64 `json:"dc_block_cutoff"`

	// Taper multiplies each channel by a single taper of this type.
	// Empty disables tapering.
	Taper taper.Type `json:"taper"`

	// Pad zero-pads every channel to this many samples. Zero or anything
	// below the data length means no padding.
	Pad int `json:"pad"`

	// MaxWorkers caps the per-channel fan-out. Zero picks a CPU-count
	// based default.
	MaxWorkers int `json:"max_workers"`
}

// DefaultConfig returns a demean-only configuration.
func DefaultConfig() *Config {
	return &Config{Demean: true}
}

// Pipeline applies a fixed preprocessing configuration to data matrices.
type Pipeline struct {
	cfg    *Config
	gen    *taper.Generator
	logger logging.Logger
}

// New creates a pipeline for the given configuration.
func New(cfg *Config) *Pipeline {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Pipeline{
		cfg: cfg,
		gen: taper.NewGenerator(),
		logger: logging.WithFields(logging.Fields{
			"component": "preproc",
		}),
	}
}

// Run preprocesses a channel-by-sample matrix. The input is never modified;
// the returned matrix has Pad samples per channel when padding is enabled,
// the input length otherwise.
func (p *Pipeline) Run(dat [][]float64, tim []float64) ([][]float64, error) {
	if len(dat) == 0 || len(dat[0]) == 0 {
		return nil, specest.ErrEmptyData
	}
	nSamp := len(dat[0])
	for _, row := range dat {
		if len(row) != nSamp {
			return nil, specest.ErrRaggedData
		}
	}

	fsample, err := specest.SampleRate(tim)
	if err != nil {
		return nil, err
	}

	var taperRow []float64
	if p.cfg.Taper != "" {
		set, err := p.gen.Generate(&taper.Config{
			Type: p.cfg.Taper,
			Size: nSamp,
		})
		if err != nil {
			return nil, err
		}
		taperRow = set.Tapers[0]
	}

	nChan := len(dat)
	p.logger.Debug("Running preprocessing pipeline", logging.Fields{
		"channels": nChan,
		"samples":  nSamp,
		"fsample":  fsample,
	})

	out := make([][]float64, nChan)
	errs := make([]error, nChan)

	numWorkers := workerCount(nChan, p.cfg.MaxWorkers)
	jobs := make(chan int, nChan)

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				out[c], errs[c] = p.runChannel(dat[c], fsample, taperRow)
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
	return out, nil
}

func (p *Pipeline) runChannel(row []float64, fsample float64, taperRow []float64) ([]float64, error) {
	work := make([]float64, len(row))
	copy(work, row)

	if p.cfg.Demean {
		Demean(work)
	}
	if p.cfg.Detrend {
		Detrend(work)
	}
	if p.cfg.DCBlockCutoff > 0 {
		if hasNaN(work) {
			return nil, fmt.Errorf("dc block: %w", specest.ErrMissingData)
		}
		work = NewDCBlocker(fsample, p.cfg.DCBlockCutoff).ProcessBuffer(work)
	}
	if taperRow != nil {
		for t := range work {
			work[t] *= taperRow[t]
		}
	}
	if p.cfg.Pad > len(work) {
		padded := make([]float64, p.cfg.Pad)
		copy(padded, work)
		work = padded
	}
	return work, nil
}

// Demean subtracts the mean of the observed (non-NaN) samples in place.
// NaN cells are left untouched.
func Demean(row []float64) {
	valid := make([]float64, 0, len(row))
	for _, v := range row {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return
	}
	mean := stat.Mean(valid, nil)
	for t, v := range row {
		if !math.IsNaN(v) {
			row[t] = v - mean
		}
	}
}

// Detrend removes the least-squares line through the observed (non-NaN)
// samples in place, using the sample index as abscissa. NaN cells are left
// untouched.
func Detrend(row []float64) {
	xs := make([]float64, 0, len(row))
	ys := make([]float64, 0, len(row))
	for t, v := range row {
		if !math.IsNaN(v) {
			xs = append(xs, float64(t))
			ys = append(ys, v)
		}
	}
	if len(ys) < 2 {
		Demean(row)
		return
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	for t, v := range row {
		if !math.IsNaN(v) {
			row[t] = v - (alpha + beta*float64(t))
		}
	}
}

func hasNaN(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

func workerCount(numJobs, maxWorkers int) int {
	workers := runtime.NumCPU()
	if maxWorkers > 0 {
		workers = maxWorkers
	}
	if workers > numJobs {
		workers = numJobs
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}
