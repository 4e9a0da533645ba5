// ABOUTME: Analysis taps and samplers for waveform display
// ABOUTME: Tap records live audio; Sampler snapshots it into byte buffers
// Package analysis provides non-destructive read points on live audio.
//
// A Tap is written from the audio thread (capture frames, mixer output)
// and keeps a ring of the most recent samples. A Sampler is owned by the
// display loop; each Update copies the tap's latest window into a fixed
// size byte buffer in the 0-255 time-domain range, 128 being silence.
//
// Example:
//
//	tap := analysis.NewTap(2048)
//	s := analysis.NewSampler(2048)
//	s.Bind(tap)
//	s.Update()
//	draw(s.Data())
package analysis
