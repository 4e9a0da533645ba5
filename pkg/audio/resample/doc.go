// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts audio between different sample rates
// Package resample provides audio sample rate conversion.
//
// Linear converts a single chunk with no carried state and is what the
// chunk decoder uses. Resampler converts a continuous interleaved stream
// and interpolates across chunk boundaries.
//
// Example:
//
//	out := resample.Linear(samples, 16000, 24000)
//
//	r := resample.New(16000, 24000, 1)
//	out = r.Resample(frame)
package resample
