package specest

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/cortexdsp/specest/logging"
)

// machEps is the float64 machine epsilon used for the singular-value cutoff.
const machEps = 2.220446049250313e-16

// Config controls a NaNFFT call. The zero value (or nil) asks for automatic
// missingness classification and a call-scoped basis.
type Config struct {
	// Basis is an optional precomputed regression basis. It must have been
	// built for the same sample count as the data. When nil the estimator
	// builds its own, scoped to the call.
	Basis *Basis `json:"-"`

	// Datatype overrides missingness classification. Leave as DatatypeAuto
	// to have the data inspected.
	Datatype Datatype `json:"datatype"`

	// MaxWorkers caps the per-channel fan-out for channel-varying data.
	// Zero picks a CPU-count based default.
	MaxWorkers int `json:"max_workers"`
}

// DefaultConfig returns a Config with automatic classification.
func DefaultConfig() *Config {
	return &Config{Datatype: DatatypeAuto}
}

// NaNFFT computes the Fourier transform of a channel-by-sample matrix that
// may contain NaN cells marking missing samples.
//
// Gap-free data goes straight through a forward FFT. Data whose NaN columns
// are shared by all channels is fit against a DFT-normalized cosine/sine
// basis restricted to the observed columns, using a minimum-norm
// least-squares solve, and the coefficients are folded back into a full
// symmetric complex spectrum. Data with a channel-varying NaN pattern is
// dispatched channel by channel, sharing one basis.
//
// The result is channels x samples in the layout of a full-length complex
// FFT; callers wanting the non-redundant half truncate to bins
// 0..floor(n/2). A channel with no observed samples yields an all-NaN row.
func NaNFFT(dat [][]float64, tim []float64, cfg *Config) ([][]complex128, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	nSamp, err := validateInput(dat, tim)
	if err != nil {
		return nil, err
	}
	nChan := len(dat)

	dtype := cfg.Datatype
	if dtype == DatatypeAuto {
		dtype = Classify(dat)
	}

	logger := logging.WithFields(logging.Fields{
		"component": "nanfft",
		"channels":  nChan,
		"samples":   nSamp,
		"datatype":  dtype.String(),
	})
	logger.Debug("Estimating spectrum")

	switch dtype {
	case DatatypeNoMissing:
		spectrum := make([][]complex128, nChan)
		for c, row := range dat {
			spectrum[c] = fft.FFTReal(row)
		}
		return spectrum, nil

	case DatatypeUniformMissing:
		basis, err := callBasis(cfg, nSamp)
		if err != nil {
			return nil, err
		}
		return estimateUniform(dat, basis)

	case DatatypeChannelVarying:
		basis, err := callBasis(cfg, nSamp)
		if err != nil {
			return nil, err
		}
		return estimatePerChannel(dat, basis, cfg.MaxWorkers, logger)

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedDatatype, dtype)
	}
}

// SampleRate derives the sampling rate from the first two entries of a
// uniformly sampled time vector.
func SampleRate(tim []float64) (float64, error) {
	if len(tim) < 2 {
		return 0, ErrShortTime
	}
	dt := tim[1] - tim[0]
	if dt <= 0 {
		return 0, ErrNonIncreasingTime
	}
	return 1 / dt, nil
}

// Frequencies returns the frequency axis of an n-point transform of data
// sampled on tim: fsample*h/n for bins h = 0..floor(n/2).
func Frequencies(tim []float64, n int) ([]float64, error) {
	fsample, err := SampleRate(tim)
	if err != nil {
		return nil, err
	}
	freqs := make([]float64, n/2+1)
	for h := range freqs {
		freqs[h] = fsample * float64(h) / float64(n)
	}
	return freqs, nil
}

func validateInput(dat [][]float64, tim []float64) (int, error) {
	if len(dat) == 0 || len(dat[0]) == 0 {
		return 0, ErrEmptyData
	}
	nSamp := len(dat[0])
	for _, row := range dat {
		if len(row) != nSamp {
			return 0, ErrRaggedData
		}
	}
	// Only the first two time entries are consumed (sample-rate derivation),
	// so the vector is not required to cover every sample.
	if _, err := SampleRate(tim); err != nil {
		return 0, err
	}
	return nSamp, nil
}

func callBasis(cfg *Config, nSamp int) (*Basis, error) {
	if cfg.Basis == nil {
		return NewBasis(nSamp), nil
	}
	if cfg.Basis.Len() != nSamp {
		return nil, fmt.Errorf("%w: basis built for %d samples, data has %d",
			ErrBasisMismatch, cfg.Basis.Len(), nSamp)
	}
	return cfg.Basis, nil
}

// estimateUniform handles data whose NaN columns are shared across channels:
// the valid-column mask of channel 0 holds for all of them.
func estimateUniform(dat [][]float64, basis *Basis) ([][]complex128, error) {
	nChan := len(dat)
	nSamp := basis.Len()

	valid := make([]int, 0, nSamp)
	for j, v := range dat[0] {
		if !math.IsNaN(v) {
			valid = append(valid, j)
		}
	}

	// Nothing observed: estimation would be meaningless, return NaN rows.
	if len(valid) == 0 {
		return nanSpectrum(nChan, nSamp), nil
	}
	if len(valid) == nSamp {
		// No column is actually missing; the regression degenerates to an
		// exact orthogonal projection, but the plain FFT is cheaper.
		// Callers forcing the datatype still want the regression result,
		// so fall through.
		logging.Debug("uniform-missing data has no NaN columns",
			logging.Fields{"component": "nanfft"})
	}

	design := basis.restricted(valid) // len(valid) x rows

	observed := mat.NewDense(len(valid), nChan, nil)
	for i, j := range valid {
		for c := 0; c < nChan; c++ {
			observed.Set(i, c, dat[c][j])
		}
	}

	coeffs, err := solveMinNorm(design, observed)
	if err != nil {
		return nil, err
	}
	return basis.assemble(coeffs, nChan), nil
}

// solveMinNorm computes the minimum-norm least-squares solution X of
// design*X ≈ rhs through the SVD pseudo-inverse. Singular values below
// machEps * max(dim) * s_max are treated as zero, the conventional rcond
// cutoff; the rank-deficient and underdetermined cases thus resolve to the
// smallest-norm solution rather than failing.
func solveMinNorm(design, rhs *mat.Dense) (*mat.Dense, error) {
	m, n := design.Dims()

	var svd mat.SVD
	if ok := svd.Factorize(design, mat.SVDThin); !ok {
		return nil, fmt.Errorf("specest: SVD of %dx%d design matrix did not converge", m, n)
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)

	tol := 0.0
	if len(values) > 0 {
		tol = machEps * float64(max(m, n)) * values[0]
	}

	// proj = S^+ U^T rhs, scaling each row by the reciprocal singular value
	// or zero once below the cutoff (values come back descending).
	var proj mat.Dense
	proj.Mul(u.T(), rhs)
	for i, s := range values {
		row := proj.RawRowView(i)
		if s > tol {
			floats.Scale(1/s, row)
		} else {
			floats.Scale(0, row)
		}
	}

	var x mat.Dense
	x.Mul(&v, &proj)
	return &x, nil
}

// estimatePerChannel fans channel-varying data out over a worker pool. Each
// channel is a fresh single-channel problem (gap-free, uniformly gapped, or
// fully missing) sharing the read-only basis; output rows are disjoint so no
// locking is needed beyond the final wait.
func estimatePerChannel(dat [][]float64, basis *Basis, maxWorkers int, logger logging.Logger) ([][]complex128, error) {
	nChan := len(dat)

	spectrum := make([][]complex128, nChan)
	errs := make([]error, nChan)

	numWorkers := workerCount(nChan, maxWorkers)
	jobs := make(chan int, nChan)

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				spectrum[c], errs[c] = estimateChannel(dat[c], basis)
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

	logger.Debug("Per-channel estimation completed", logging.Fields{
		"workers": numWorkers,
	})
	return spectrum, nil
}

// estimateChannel resolves one channel: its own NaN pattern is by definition
// uniform, so it bottoms out in the gap-free or uniform-missing path.
func estimateChannel(row []float64, basis *Basis) ([]complex128, error) {
	hasNaN := false
	for _, v := range row {
		if math.IsNaN(v) {
			hasNaN = true
			break
		}
	}
	if !hasNaN {
		return fft.FFTReal(row), nil
	}

	out, err := estimateUniform([][]float64{row}, basis)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// nanSpectrum builds a channels-by-samples matrix of NaN+NaNi cells.
func nanSpectrum(nChan, nSamp int) [][]complex128 {
	nan := complex(math.NaN(), math.NaN())
	spectrum := make([][]complex128, nChan)
	for c := range spectrum {
		row := make([]complex128, nSamp)
		for j := range row {
			row[j] = nan
		}
		spectrum[c] = row
	}
	return spectrum
}

// workerCount sizes the per-channel worker pool: never more workers than
// channels, never more than the CPU count unless the caller insists.
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
