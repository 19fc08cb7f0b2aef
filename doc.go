// Package specest estimates frequency-domain representations of multichannel
// time series. Its centerpiece is NaNFFT, a Fourier estimator that tolerates
// missing samples (NaN cells): where a plain FFT would poison the whole
// spectrum, NaNFFT falls back to least-squares regression of the observed
// samples against a cosine/sine basis matching the normalization of a
// real-input DFT. MTMFFT provides a conventional multitaper transform for
// gap-free data.
package specest
