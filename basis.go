package specest

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Basis holds the cosine/sine regression vectors used by the gap-tolerant
// estimator. The rows are sampled at n points over one full period and scaled
// so that regression coefficients line up with the bins of a real-input DFT
// of length n: the DC row and, for even n, the Nyquist row carry 1/n, every
// other row carries 2/n.
//
// A Basis is immutable once built and may be shared across calls and across
// goroutines for any signal with the same sample count.
type Basis struct {
	n       int        // sample count
	k       int        // cosine harmonics: floor(n/2)+1
	numSine int        // retained sine harmonics
	vectors *mat.Dense // (k+numSine) x n
}

// NewBasis builds the regression basis for signals of n samples.
//
// Cosine rows cover harmonics 0..K-1 with K = floor(n/2)+1. Sine rows cover
// the same harmonics except those that are identically zero: harmonic 0
// always, and harmonic K-1 (Nyquist) when n is even. The retained rows are
// stacked cosines first, sines after, which together always span n rows.
func NewBasis(n int) *Basis {
	k := n/2 + 1
	numSine := k - 1
	if n%2 == 0 {
		numSine = k - 2
	}
	if numSine < 0 {
		numSine = 0
	}

	vectors := mat.NewDense(k+numSine, n, nil)

	for h := 0; h < k; h++ {
		scale := 2.0 / float64(n)
		if h == 0 || (n%2 == 0 && h == k-1) {
			scale = 1.0 / float64(n)
		}
		for t := 0; t < n; t++ {
			arg := 2 * math.Pi * float64(h) * float64(t) / float64(n)
			vectors.Set(h, t, scale*math.Cos(arg))
		}
	}

	for s := 0; s < numSine; s++ {
		h := s + 1 // the zero-valued DC sine is dropped
		scale := 2.0 / float64(n)
		for t := 0; t < n; t++ {
			arg := 2 * math.Pi * float64(h) * float64(t) / float64(n)
			vectors.Set(k+s, t, scale*math.Sin(arg))
		}
	}

	return &Basis{
		n:       n,
		k:       k,
		numSine: numSine,
		vectors: vectors,
	}
}

// Len returns the sample count the basis was built for.
func (b *Basis) Len() int { return b.n }

// Rows returns the number of basis vectors.
func (b *Basis) Rows() int { return b.k + b.numSine }

// At returns the t-th sample of basis vector r.
func (b *Basis) At(r, t int) float64 { return b.vectors.At(r, t) }

// restricted copies the basis columns selected by valid into a
// len(valid)-by-Rows matrix, transposed so that it can serve directly as the
// design matrix of the least-squares problem.
func (b *Basis) restricted(valid []int) *mat.Dense {
	rows := b.Rows()
	design := mat.NewDense(len(valid), rows, nil)
	for i, j := range valid {
		for r := 0; r < rows; r++ {
			design.Set(i, r, b.vectors.At(r, j))
		}
	}
	return design
}

// assemble folds a coefficient matrix (Rows x channels, as produced by the
// least-squares solve) back into the full-length symmetric complex spectrum
// of a real-input DFT. Bin h takes the cosine coefficient as real part and
// the negated sine coefficient as imaginary part; bin n-h is its conjugate.
func (b *Basis) assemble(coeffs *mat.Dense, nChan int) [][]complex128 {
	n, k := b.n, b.k

	spectrum := make([][]complex128, nChan)
	for c := 0; c < nChan; c++ {
		row := make([]complex128, n)
		row[0] = complex(coeffs.At(0, c), 0)

		lastInner := k - 1
		if n%2 == 0 {
			lastInner = k - 2
			row[k-1] = complex(coeffs.At(k-1, c), 0) // Nyquist
		}
		for h := 1; h <= lastInner; h++ {
			re := coeffs.At(h, c)
			im := -coeffs.At(k+h-1, c)
			row[h] = complex(re, im)
			row[n-h] = complex(re, -im)
		}

		spectrum[c] = row
	}
	return spectrum
}
