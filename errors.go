package specest

import "errors"

var (
	// ErrEmptyData is returned when the input matrix has no channels or no samples.
	ErrEmptyData = errors.New("specest: empty data matrix")

	// ErrRaggedData is returned when channels have differing sample counts.
	ErrRaggedData = errors.New("specest: channels have differing sample counts")

	// ErrShortTime is returned when the time vector has fewer than two entries.
	ErrShortTime = errors.New("specest: time vector needs at least two samples")

	// ErrNonIncreasingTime is returned when the time vector does not increase.
	ErrNonIncreasingTime = errors.New("specest: time vector is not strictly increasing")

	// ErrBasisMismatch is returned when a supplied basis does not match the
	// sample count of the data.
	ErrBasisMismatch = errors.New("specest: basis sample count does not match data")

	// ErrUnsupportedDatatype is returned when a caller-supplied datatype
	// override is not one of the enumerated missingness regimes.
	ErrUnsupportedDatatype = errors.New("specest: unsupported missingness datatype")

	// ErrMissingData is returned by estimators that require gap-free input.
	ErrMissingData = errors.New("specest: data contains NaN samples")
)
