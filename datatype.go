package specest

import "math"

// Datatype classifies how NaN samples are distributed over a
// channel-by-sample matrix.
type Datatype int

const (
	// DatatypeAuto lets the estimator inspect the data itself.
	DatatypeAuto Datatype = iota

	// DatatypeNoMissing marks data without any NaN cell.
	DatatypeNoMissing

	// DatatypeUniformMissing marks data where every sample column is either
	// fully observed or NaN on all channels.
	DatatypeUniformMissing

	// DatatypeChannelVarying marks data where the NaN pattern differs across
	// channels at some sample column.
	DatatypeChannelVarying
)

func (d Datatype) String() string {
	switch d {
	case DatatypeAuto:
		return "auto"
	case DatatypeNoMissing:
		return "no_missing"
	case DatatypeUniformMissing:
		return "uniform_missing"
	case DatatypeChannelVarying:
		return "channel_varying"
	default:
		return "unknown"
	}
}

// Classify inspects a channel-by-sample matrix and reports its missingness
// regime. Classification is total: every matrix falls into exactly one of
// the three regimes and no error path exists.
func Classify(dat [][]float64) Datatype {
	if len(dat) == 0 || len(dat[0]) == 0 {
		return DatatypeNoMissing
	}

	nChan := len(dat)
	nSamp := len(dat[0])

	hasNaN := false
	for j := 0; j < nSamp; j++ {
		nanCount := 0
		for i := 0; i < nChan; i++ {
			if j < len(dat[i]) && math.IsNaN(dat[i][j]) {
				nanCount++
			}
		}
		if nanCount == 0 {
			continue
		}
		hasNaN = true
		if nanCount != nChan {
			// One column with a partial NaN pattern settles it.
			return DatatypeChannelVarying
		}
	}

	if hasNaN {
		return DatatypeUniformMissing
	}
	return DatatypeNoMissing
}
